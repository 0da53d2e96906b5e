package pairing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/securefile"
)

var ErrNotPaired = errors.New("extension not paired")

type pairingFile struct {
	Schema   int    `json:"schema"`
	Token    string `json:"token"`
	PairedAt string `json:"pairedAt"`
}

// Store keeps the token the browser extension presents on wallet endpoints.
// The approval screen issues a fresh token on every pairing.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewStoreFromEnv resolves pairing.json in the user config directory.
func NewStoreFromEnv() (*Store, error) {
	path, err := securefile.ResolvePath(constants.PairingFile)
	if err != nil {
		return nil, err
	}
	return NewStore(path), nil
}

func (s *Store) Path() string { return s.path }

// Pair issues a new token, replacing the previous one.
func (s *Store) Pair() (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pf := pairingFile{
		Schema:   constants.SchemaV1,
		Token:    token,
		PairedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := securefile.WriteJSON(s.path, pf); err != nil {
		return "", fmt.Errorf("write pairing file: %w", err)
	}
	return token, nil
}

// Token returns the current token. Missing file = not paired yet.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !securefile.Exists(s.path) {
		return "", ErrNotPaired
	}
	pf, err := securefile.ReadJSON[pairingFile](s.path)
	if err != nil {
		return "", fmt.Errorf("read pairing file: %w", err)
	}
	token := strings.TrimSpace(pf.Token)
	if token == "" {
		return "", ErrNotPaired
	}
	return token, nil
}

func (s *Store) Paired() bool {
	_, err := s.Token()
	return err == nil
}

// Verify checks got against the current token in constant time.
func (s *Store) Verify(got string) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return errors.New("pairing token mismatch")
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
