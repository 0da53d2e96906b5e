package chains

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/securefile"
)

var (
	ErrChainExists   = errors.New("chain already exists")
	ErrChainNotFound = errors.New("chain not found")
)

// registryFile is the on-disk representation of the registry.
type registryFile struct {
	Schema int                    `json:"schema"`
	Chains map[string]StoredChain `json:"chains"` // key = chain identifier
}

func newEmptyRegistryFile() registryFile {
	return registryFile{
		Schema: constants.SchemaV1,
		Chains: map[string]StoredChain{},
	}
}

// Registry holds the chains known to the wallet, keyed by chain identifier
// so that a revision bump ("cosmoshub-4" -> "cosmoshub-5") maps to the same entry.
type Registry struct {
	mu     sync.RWMutex
	path   string
	loaded bool
	store  registryFile
}

func NewRegistry(path string) *Registry {
	return &Registry{
		path:  path,
		store: newEmptyRegistryFile(),
	}
}

// NewRegistryFromEnv resolves chains.json in the user config directory.
func NewRegistryFromEnv() (*Registry, error) {
	path, err := securefile.ResolvePath(constants.ChainsFile)
	if err != nil {
		return nil, err
	}
	return NewRegistry(path), nil
}

func (r *Registry) Path() string { return r.path }

// Load reads the registry from disk. Missing file = empty registry.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ctx)
}

func (r *Registry) loadLocked(ctx context.Context) error {
	_ = ctx

	r.loaded = true
	if !securefile.Exists(r.path) {
		r.store = newEmptyRegistryFile()
		return nil
	}

	f, err := securefile.ReadJSON[registryFile](r.path)
	if err != nil {
		return fmt.Errorf("read chains file: %w", err)
	}

	norm := newEmptyRegistryFile()
	if f.Schema != 0 {
		norm.Schema = f.Schema
	}
	for _, c := range f.Chains {
		c.Info.Normalize()
		id := c.Info.Identifier()
		if id == "" {
			// skip invalid entries rather than bricking startup
			continue
		}
		c.Identifier = id
		norm.Chains[id] = c
	}

	r.store = norm
	return nil
}

func (r *Registry) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	return r.loadLocked(ctx)
}

func (r *Registry) persist() error {
	return securefile.WriteJSON(r.path, r.store)
}

// Has reports whether a chain with the same identifier as chainID is known.
func (r *Registry) Has(ctx context.Context, chainID string) (bool, error) {
	_, ok, err := r.Get(ctx, chainID)
	return ok, err
}

func (r *Registry) Get(ctx context.Context, chainID string) (StoredChain, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return StoredChain{}, false, err
	}
	c, ok := r.store.Chains[ChainIdentifier(chainID)]
	return c, ok, nil
}

// Add stores a new chain; it fails when the identifier is already present.
func (r *Registry) Add(ctx context.Context, info ChainInfo, updateFromRepoDisabled, suggested bool) (StoredChain, error) {
	info.Normalize()
	if err := Validate(info); err != nil {
		return StoredChain{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return StoredChain{}, err
	}

	id := info.Identifier()
	if existing, ok := r.store.Chains[id]; ok {
		return StoredChain{}, fmt.Errorf("%w: %s (chainId %s)", ErrChainExists, id, existing.Info.ChainID)
	}

	c := StoredChain{
		Identifier:             id,
		Info:                   info,
		UpdateFromRepoDisabled: updateFromRepoDisabled,
		Suggested:              suggested,
		AddedAt:                time.Now().UTC().Format(time.RFC3339),
	}
	r.store.Chains[id] = c
	if err := r.persist(); err != nil {
		delete(r.store.Chains, id)
		return StoredChain{}, err
	}
	return c, nil
}

// Remove deletes a chain by id. Removing an unknown chain is a no-op.
func (r *Registry) Remove(ctx context.Context, chainID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	id := ChainIdentifier(chainID)
	if _, ok := r.store.Chains[id]; !ok {
		return nil
	}
	delete(r.store.Chains, id)
	return r.persist()
}

// List returns all chains sorted by identifier.
func (r *Registry) List(ctx context.Context) ([]StoredChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make([]StoredChain, 0, len(r.store.Chains))
	for _, c := range r.store.Chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// EnsureFromConfig merges built-in chains into the registry:
//   - first run: creates the file
//   - later runs: adds only missing chains, never touches user entries
func (r *Registry) EnsureFromConfig(ctx context.Context, defaults []ChainInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}

	changed := !securefile.Exists(r.path)
	now := time.Now().UTC().Format(time.RFC3339)

	for _, info := range defaults {
		info.Normalize()
		if err := Validate(info); err != nil {
			return fmt.Errorf("default chain %q: %w", info.ChainID, err)
		}
		id := info.Identifier()
		if _, ok := r.store.Chains[id]; ok {
			continue
		}
		r.store.Chains[id] = StoredChain{
			Identifier: id,
			Info:       info,
			AddedAt:    now,
		}
		changed = true
	}

	if changed {
		return r.persist()
	}
	return nil
}
