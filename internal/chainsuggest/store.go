package chainsuggest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/interaction"
	"github.com/quantumauth-io/chain-suggest-agent/internal/metrics"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Interactions is the part of the pending interaction queue the store needs.
type Interactions interface {
	Datas(typ string) []interaction.WaitingData
	Approve(ctx context.Context, typ, id string, result any) error
	Reject(ctx context.Context, typ, id string) error
	RejectAll(ctx context.Context, typ string) error
}

// Suggestion is a chain suggestion waiting for the user.
type Suggestion struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Origin    string           `json:"origin"`
	ChainInfo chains.ChainInfo `json:"chainInfo"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Store backs the "add chain" approval screen. It exposes the first waiting
// suggestion, the community document for it, and forwards decisions to the
// interaction queue.
type Store struct {
	interactions Interactions
	repo         CommunityRepo
	httpClient   *http.Client

	mu          sync.RWMutex
	loading     int
	community   *chains.ChainInfo
	communityID string
}

type Option func(*Store)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.httpClient = c }
}

func NewStore(interactions Interactions, repo CommunityRepo, opts ...Option) *Store {
	s := &Store{
		interactions: interactions,
		repo:         repo.withDefaults(),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WaitingSuggestedChainInfo returns the oldest waiting suggestion, if any.
func (s *Store) WaitingSuggestedChainInfo() (Suggestion, bool, error) {
	datas := s.interactions.Datas(constants.SuggestChainInfoType)
	if len(datas) == 0 {
		return Suggestion{}, false, nil
	}

	w := datas[0]
	var payload chains.SuggestedChainInfo
	if err := w.Decode(&payload); err != nil {
		return Suggestion{}, false, fmt.Errorf("decode suggested chain info %s: %w", w.ID, err)
	}

	origin := payload.Origin
	if origin == "" {
		origin = w.Origin
	}
	return Suggestion{
		ID:        w.ID,
		Type:      w.Type,
		Origin:    origin,
		ChainInfo: payload.ChainInfo,
		CreatedAt: w.CreatedAt,
	}, true, nil
}

// WaitingCount is the number of chain suggestions in the queue.
func (s *Store) WaitingCount() int {
	return len(s.interactions.Datas(constants.SuggestChainInfoType))
}

func (s *Store) CommunityChainInfoRepoURL() string {
	return s.repo.RepoURL()
}

func (s *Store) CommunityChainInfoURL(chainID string) string {
	return s.repo.ChainInfoURL(chainID)
}

// CommunityChainInfo returns the last fetched community document and the
// chain identifier it was fetched for.
func (s *Store) CommunityChainInfo() (*chains.ChainInfo, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.community == nil {
		return nil, ""
	}
	c := *s.community
	return &c, s.communityID
}

// FetchCommunityChainInfo loads the community document for the waiting
// suggestion. It does nothing when no suggestion is waiting.
func (s *Store) FetchCommunityChainInfo(ctx context.Context) error {
	s.beginLoading()
	defer s.endLoading()

	waiting, ok, err := s.WaitingSuggestedChainInfo()
	if err != nil {
		return err
	}
	if !ok {
		metrics.CommunityFetches.WithLabelValues(metrics.FetchSkipped).Inc()
		return nil
	}

	id := chains.ChainIdentifier(waiting.ChainInfo.ChainID)

	s.mu.Lock()
	if s.communityID != id {
		s.community = nil
		s.communityID = ""
	}
	s.mu.Unlock()

	rawURL := s.repo.RawChainInfoURL(waiting.ChainInfo.ChainID)
	info, err := fetchChainInfo(ctx, s.httpClient, rawURL)
	if err != nil {
		if errors.Is(err, ErrCommunityChainInfoNotFound) {
			metrics.CommunityFetches.WithLabelValues(metrics.FetchNotFound).Inc()
			log.Info("no community chain info", "chain_identifier", id)
		} else {
			metrics.CommunityFetches.WithLabelValues(metrics.FetchError).Inc()
			log.Error("community chain info fetch failed", "chain_identifier", id, "error", err)
		}
		return err
	}

	s.mu.Lock()
	s.community = &info
	s.communityID = id
	s.mu.Unlock()

	metrics.CommunityFetches.WithLabelValues(metrics.FetchOK).Inc()
	log.Info("community chain info loaded", "chain_identifier", id, "url", rawURL)
	return nil
}

// Approve approves the waiting suggestion with the (possibly edited) chain info.
func (s *Store) Approve(ctx context.Context, chainInfo chains.ChainInfoWithRepoUpdateOptions) error {
	waiting, ok, err := s.WaitingSuggestedChainInfo()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.ApproveByID(ctx, waiting.ID, chainInfo)
}

// ApproveByID approves the suggestion with the given interaction id. It
// returns interaction.ErrNotFound when that suggestion was already decided.
func (s *Store) ApproveByID(ctx context.Context, id string, chainInfo chains.ChainInfoWithRepoUpdateOptions) error {
	s.beginLoading()
	defer s.endLoading()

	return s.interactions.Approve(ctx, constants.SuggestChainInfoType, id, chainInfo)
}

// Reject rejects the waiting suggestion.
func (s *Store) Reject(ctx context.Context) error {
	waiting, ok, err := s.WaitingSuggestedChainInfo()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.RejectByID(ctx, waiting.ID)
}

// RejectByID rejects the suggestion with the given interaction id.
func (s *Store) RejectByID(ctx context.Context, id string) error {
	s.beginLoading()
	defer s.endLoading()

	return s.interactions.Reject(ctx, constants.SuggestChainInfoType, id)
}

// RejectAll rejects every waiting chain suggestion.
func (s *Store) RejectAll(ctx context.Context) error {
	s.beginLoading()
	defer s.endLoading()

	return s.interactions.RejectAll(ctx, constants.SuggestChainInfoType)
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

func (s *Store) beginLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *Store) endLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}
