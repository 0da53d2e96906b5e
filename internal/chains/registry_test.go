package chains

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddGetList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chains.json")
	r := NewRegistry(path)

	added, err := r.Add(ctx, validChainInfo(), true, true)
	require.NoError(t, err)
	require.Equal(t, "osmosis", added.Identifier)
	require.True(t, added.UpdateFromRepoDisabled)
	require.NotEmpty(t, added.AddedAt)

	got, ok, err := r.Get(ctx, "osmosis-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "osmosis-1", got.Info.ChainID)

	_, err = r.Add(ctx, validChainInfo(), false, false)
	require.ErrorIs(t, err, ErrChainExists)

	reloaded := NewRegistry(path)
	require.NoError(t, reloaded.Load(ctx))
	list, err := reloaded.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "osmosis", list[0].Identifier)
}

func TestRegistryAddValidates(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "chains.json"))
	bad := validChainInfo()
	bad.RPC = ""

	_, err := r.Add(context.Background(), bad, false, false)
	require.ErrorIs(t, err, ErrInvalidChainInfo)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(filepath.Join(t.TempDir(), "chains.json"))
	_, err := r.Add(ctx, validChainInfo(), false, false)
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, "osmosis-1"))
	require.NoError(t, r.Remove(ctx, "osmosis-1"))

	has, err := r.Has(ctx, "osmosis-1")
	require.NoError(t, err)
	require.False(t, has)
}

func TestRegistryEnsureFromConfig(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chains.json")
	r := NewRegistry(path)

	user := validChainInfo()
	user.RPC = "https://my-own-node.example"
	_, err := r.Add(ctx, user, true, true)
	require.NoError(t, err)

	juno := validChainInfo()
	juno.ChainID = "juno-1"
	juno.ChainName = "Juno"
	require.NoError(t, r.EnsureFromConfig(ctx, []ChainInfo{validChainInfo(), juno}))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "juno", list[0].Identifier)
	// user entry is never overwritten by defaults
	require.Equal(t, "https://my-own-node.example", list[1].Info.RPC)
}

func TestRegistryLoadSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema":1,"chains":{"x":{"info":{"chainId":""}},"osmosis":{"info":{"chainId":"osmosis-1"}}}}`), 0o600))

	r := NewRegistry(path)
	require.NoError(t, r.Load(context.Background()))
	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "osmosis", list[0].Identifier)
}
