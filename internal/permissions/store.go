package permissions

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/securefile"
)

// On-disk representation
type permissionFile struct {
	Schema  int                        `json:"schema"`
	Granted map[string]map[string]bool `json:"granted"` // chain identifier -> origin -> allowed
	Updated string                     `json:"updated,omitempty"`
}

// Store is the authoritative list of origins allowed to use each chain.
type Store struct {
	mu      sync.RWMutex
	path    string
	granted map[string]map[string]bool
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		granted: make(map[string]map[string]bool),
	}
}

func NewStoreFromEnv() (*Store, error) {
	path, err := securefile.ResolvePath(constants.PermissionsFile)
	if err != nil {
		return nil, err
	}
	return NewStore(path), nil
}

// Load reads the grants from disk.
// Missing file = no grants (first run).
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !securefile.Exists(s.path) {
		return nil
	}

	pf, err := securefile.ReadJSON[permissionFile](s.path)
	if err != nil {
		return fmt.Errorf("read permissions file: %w", err)
	}
	if pf.Granted == nil {
		pf.Granted = make(map[string]map[string]bool)
	}
	s.granted = pf.Granted
	return nil
}

func (s *Store) saveLocked() error {
	pf := permissionFile{
		Schema:  constants.SchemaV1,
		Granted: s.granted,
		Updated: time.Now().UTC().Format(time.RFC3339),
	}
	if err := securefile.WriteJSON(s.path, pf); err != nil {
		return fmt.Errorf("write permissions file: %w", err)
	}
	return nil
}

// Grant allows origin to use chainID and persists it.
func (s *Store) Grant(chainID, origin string) error {
	return s.set(chainID, origin, true)
}

// Revoke removes the grant of origin for chainID and persists it.
func (s *Store) Revoke(chainID, origin string) error {
	return s.set(chainID, origin, false)
}

func (s *Store) set(chainID, origin string, allowed bool) error {
	id := chains.ChainIdentifier(chainID)
	o := NormalizeOrigin(origin)
	if id == "" || o == "" {
		return fmt.Errorf("invalid permission target chain=%q origin=%q", chainID, origin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byOrigin, ok := s.granted[id]
	if !ok {
		if !allowed {
			return nil
		}
		byOrigin = make(map[string]bool)
		s.granted[id] = byOrigin
	}
	if allowed {
		byOrigin[o] = true
	} else {
		delete(byOrigin, o)
		if len(byOrigin) == 0 {
			delete(s.granted, id)
		}
	}
	return s.saveLocked()
}

func (s *Store) IsGranted(chainID, origin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[chains.ChainIdentifier(chainID)][NormalizeOrigin(origin)]
}

// List returns chain identifier -> sorted origins (safe for JSON responses).
func (s *Store) List() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.granted))
	for id, byOrigin := range s.granted {
		origins := make([]string, 0, len(byOrigin))
		for o, ok := range byOrigin {
			if ok {
				origins = append(origins, o)
			}
		}
		sort.Strings(origins)
		out[id] = origins
	}
	return out
}

// NormalizeOrigin reduces an origin to scheme://host, or "" when invalid.
func NormalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}
