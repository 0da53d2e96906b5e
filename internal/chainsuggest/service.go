package chainsuggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/permissions"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var ErrInvalidOrigin = errors.New("invalid origin")

// Enqueuer blocks until the user decides on an interaction.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ, origin string, data any) (json.RawMessage, error)
}

// ChainRegistry is where approved chains end up.
type ChainRegistry interface {
	Get(ctx context.Context, chainID string) (chains.StoredChain, bool, error)
	Add(ctx context.Context, info chains.ChainInfo, updateFromRepoDisabled, suggested bool) (chains.StoredChain, error)
}

// Grants records which origins may use a chain.
type Grants interface {
	Grant(chainID, origin string) error
}

// EVMVerifier checks the evm endpoint a chain declares.
type EVMVerifier interface {
	Verify(ctx context.Context, info chains.ChainInfo) error
}

// SuggestResult is returned to the dApp that suggested the chain.
type SuggestResult struct {
	Chain        chains.StoredChain `json:"chain"`
	AlreadyKnown bool               `json:"alreadyKnown"`
}

// Service handles chain suggestions coming from dApps: it validates them,
// parks them in the interaction queue for the approval screen and registers
// the chain once approved.
type Service struct {
	queue    Enqueuer
	registry ChainRegistry
	grants   Grants
	evm      EVMVerifier
}

type ServiceOption func(*Service)

// WithEVMVerifier probes the evm endpoint of new suggestions before they are
// shown to the user.
func WithEVMVerifier(v EVMVerifier) ServiceOption {
	return func(s *Service) { s.evm = v }
}

func NewService(queue Enqueuer, registry ChainRegistry, grants Grants, opts ...ServiceOption) *Service {
	s := &Service{queue: queue, registry: registry, grants: grants}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestChainInfo blocks until the user approves or rejects the suggestion.
// A chain that is already known is not queued again.
func (s *Service) SuggestChainInfo(ctx context.Context, origin string, info chains.ChainInfo) (SuggestResult, error) {
	origin = permissions.NormalizeOrigin(origin)
	if origin == "" {
		return SuggestResult{}, ErrInvalidOrigin
	}

	info.Normalize()
	if err := chains.Validate(info); err != nil {
		return SuggestResult{}, err
	}

	existing, ok, err := s.registry.Get(ctx, info.ChainID)
	if err != nil {
		return SuggestResult{}, err
	}
	if ok {
		if err := s.grants.Grant(existing.Info.ChainID, origin); err != nil {
			return SuggestResult{}, err
		}
		log.Info("suggested chain already known", "chain_id", info.ChainID, "origin", origin)
		return SuggestResult{Chain: existing, AlreadyKnown: true}, nil
	}

	if s.evm != nil {
		if err := s.evm.Verify(ctx, info); err != nil {
			return SuggestResult{}, fmt.Errorf("%w: %w", chains.ErrInvalidChainInfo, err)
		}
	}

	raw, err := s.queue.Enqueue(ctx, constants.SuggestChainInfoType, origin, chains.SuggestedChainInfo{
		ChainInfo: info,
		Origin:    origin,
	})
	if err != nil {
		return SuggestResult{}, err
	}

	var approved chains.ChainInfoWithRepoUpdateOptions
	if err := json.Unmarshal(raw, &approved); err != nil {
		return SuggestResult{}, fmt.Errorf("decode approved chain info: %w", err)
	}
	approved.Normalize()

	// the approval screen may edit endpoints, never the chain itself
	if chains.ChainIdentifier(approved.ChainID) != info.Identifier() {
		return SuggestResult{}, fmt.Errorf("%w: approved chainId %q does not match suggested %q",
			chains.ErrInvalidChainInfo, approved.ChainID, info.ChainID)
	}

	stored, err := s.registry.Add(ctx, approved.ChainInfo, approved.UpdateFromRepoDisabled, true)
	if errors.Is(err, chains.ErrChainExists) {
		// another suggestion of the same chain was approved while this one waited
		existing, ok, getErr := s.registry.Get(ctx, approved.ChainID)
		if getErr != nil {
			return SuggestResult{}, getErr
		}
		if !ok {
			return SuggestResult{}, err
		}
		if err := s.grants.Grant(existing.Info.ChainID, origin); err != nil {
			return SuggestResult{}, err
		}
		log.Info("suggested chain added concurrently", "chain_id", existing.Info.ChainID, "origin", origin)
		return SuggestResult{Chain: existing, AlreadyKnown: true}, nil
	}
	if err != nil {
		return SuggestResult{}, err
	}
	if err := s.grants.Grant(stored.Info.ChainID, origin); err != nil {
		return SuggestResult{}, err
	}

	log.Info("suggested chain added",
		"chain_id", stored.Info.ChainID,
		"origin", origin,
		"update_from_repo_disabled", stored.UpdateFromRepoDisabled,
	)
	return SuggestResult{Chain: stored}, nil
}
