package chainsuggest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/quantumauth-io/chain-suggest-agent/internal/chains"
	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
	"github.com/quantumauth-io/chain-suggest-agent/internal/interaction"
	"github.com/quantumauth-io/chain-suggest-agent/internal/permissions"
	"github.com/stretchr/testify/require"
)

type serviceHarness struct {
	queue    *interaction.Queue
	registry *chains.Registry
	perms    *permissions.Store
	service  *Service
	store    *Store
}

func newServiceHarness(t *testing.T) serviceHarness {
	t.Helper()
	dir := t.TempDir()

	q := interaction.NewQueue()
	reg := chains.NewRegistry(filepath.Join(dir, "chains.json"))
	perms := permissions.NewStore(filepath.Join(dir, "permissions.json"))

	return serviceHarness{
		queue:    q,
		registry: reg,
		perms:    perms,
		service:  NewService(q, reg, perms),
		store:    NewStore(q, CommunityRepo{Organization: "o", Repository: "r"}),
	}
}

type suggestOutcome struct {
	res SuggestResult
	err error
}

func (h serviceHarness) suggestAsync(t *testing.T, origin string, info chains.ChainInfo) <-chan suggestOutcome {
	t.Helper()
	out := make(chan suggestOutcome, 1)
	go func() {
		res, err := h.service.SuggestChainInfo(context.Background(), origin, info)
		out <- suggestOutcome{res: res, err: err}
	}()
	require.Eventually(t, func() bool {
		return len(h.queue.Datas(constants.SuggestChainInfoType)) > 0
	}, time.Second, 5*time.Millisecond)
	return out
}

func TestSuggestApproveAddsChainAndGrantsOrigin(t *testing.T) {
	h := newServiceHarness(t)
	done := h.suggestAsync(t, "https://dapp.example/page", testChainInfo("osmosis-1"))

	waiting, ok, err := h.store.WaitingSuggestedChainInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://dapp.example", waiting.Origin)

	edited := waiting.ChainInfo
	edited.RPC = "https://rpc.osmosis.example"
	require.NoError(t, h.store.Approve(context.Background(), chains.ChainInfoWithRepoUpdateOptions{
		ChainInfo:              edited,
		UpdateFromRepoDisabled: true,
	}))

	out := <-done
	require.NoError(t, out.err)
	require.False(t, out.res.AlreadyKnown)
	require.Equal(t, "osmosis", out.res.Chain.Identifier)
	require.Equal(t, "https://rpc.osmosis.example", out.res.Chain.Info.RPC)
	require.True(t, out.res.Chain.UpdateFromRepoDisabled)
	require.True(t, out.res.Chain.Suggested)

	has, err := h.registry.Has(context.Background(), "osmosis-1")
	require.NoError(t, err)
	require.True(t, has)
	require.True(t, h.perms.IsGranted("osmosis-1", "https://dapp.example"))
}

func TestSuggestRejected(t *testing.T) {
	h := newServiceHarness(t)
	done := h.suggestAsync(t, "https://dapp.example", testChainInfo("osmosis-1"))

	require.NoError(t, h.store.Reject(context.Background()))

	out := <-done
	require.ErrorIs(t, out.err, interaction.ErrRejected)

	has, err := h.registry.Has(context.Background(), "osmosis-1")
	require.NoError(t, err)
	require.False(t, has)
	require.False(t, h.perms.IsGranted("osmosis-1", "https://dapp.example"))
}

func TestSuggestKnownChainSkipsQueue(t *testing.T) {
	h := newServiceHarness(t)
	_, err := h.registry.Add(context.Background(), testChainInfo("osmosis-1"), false, false)
	require.NoError(t, err)

	res, err := h.service.SuggestChainInfo(context.Background(), "https://dapp.example", testChainInfo("osmosis-2"))
	require.NoError(t, err)
	require.True(t, res.AlreadyKnown)
	require.Empty(t, h.queue.Datas(constants.SuggestChainInfoType))
	require.True(t, h.perms.IsGranted("osmosis-1", "https://dapp.example"))
}

func TestSuggestSameChainTwiceWhileWaiting(t *testing.T) {
	h := newServiceHarness(t)
	first := h.suggestAsync(t, "https://one.example", testChainInfo("osmosis-1"))
	second := make(chan suggestOutcome, 1)
	go func() {
		res, err := h.service.SuggestChainInfo(context.Background(), "https://two.example", testChainInfo("osmosis-1"))
		second <- suggestOutcome{res: res, err: err}
	}()
	require.Eventually(t, func() bool {
		return len(h.queue.Datas(constants.SuggestChainInfoType)) == 2
	}, time.Second, 5*time.Millisecond)

	approve := chains.ChainInfoWithRepoUpdateOptions{ChainInfo: testChainInfo("osmosis-1")}
	require.NoError(t, h.store.Approve(context.Background(), approve))
	out := <-first
	require.NoError(t, out.err)
	require.False(t, out.res.AlreadyKnown)

	require.NoError(t, h.store.Approve(context.Background(), approve))
	out = <-second
	require.NoError(t, out.err)
	require.True(t, out.res.AlreadyKnown)
	require.Equal(t, "osmosis-1", out.res.Chain.Info.ChainID)

	require.True(t, h.perms.IsGranted("osmosis-1", "https://one.example"))
	require.True(t, h.perms.IsGranted("osmosis-1", "https://two.example"))
}

func TestDecideByID(t *testing.T) {
	h := newServiceHarness(t)
	first := h.suggestAsync(t, "https://one.example", testChainInfo("osmosis-1"))
	second := make(chan suggestOutcome, 1)
	go func() {
		res, err := h.service.SuggestChainInfo(context.Background(), "https://two.example", testChainInfo("juno-1"))
		second <- suggestOutcome{res: res, err: err}
	}()
	require.Eventually(t, func() bool {
		return len(h.queue.Datas(constants.SuggestChainInfoType)) == 2
	}, time.Second, 5*time.Millisecond)

	shown, ok, err := h.store.WaitingSuggestedChainInfo()
	require.NoError(t, err)
	require.True(t, ok)

	// decided elsewhere while the screen still shows it
	require.NoError(t, h.store.Reject(context.Background()))
	require.ErrorIs(t, (<-first).err, interaction.ErrRejected)

	err = h.store.ApproveByID(context.Background(), shown.ID, chains.ChainInfoWithRepoUpdateOptions{ChainInfo: shown.ChainInfo})
	require.ErrorIs(t, err, interaction.ErrNotFound)
	require.ErrorIs(t, h.store.RejectByID(context.Background(), shown.ID), interaction.ErrNotFound)
	require.False(t, h.store.IsLoading())

	next, ok, err := h.store.WaitingSuggestedChainInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "juno-1", next.ChainInfo.ChainID)

	require.NoError(t, h.store.RejectByID(context.Background(), next.ID))
	require.ErrorIs(t, (<-second).err, interaction.ErrRejected)
}

func TestSuggestApprovedWithDifferentChainFails(t *testing.T) {
	h := newServiceHarness(t)
	done := h.suggestAsync(t, "https://dapp.example", testChainInfo("osmosis-1"))

	require.NoError(t, h.store.Approve(context.Background(), chains.ChainInfoWithRepoUpdateOptions{
		ChainInfo: testChainInfo("juno-1"),
	}))

	out := <-done
	require.ErrorIs(t, out.err, chains.ErrInvalidChainInfo)
}

func TestSuggestValidatesInput(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.SuggestChainInfo(context.Background(), "nope", testChainInfo("osmosis-1"))
	require.ErrorIs(t, err, ErrInvalidOrigin)

	bad := testChainInfo("osmosis-1")
	bad.Currencies = nil
	_, err = h.service.SuggestChainInfo(context.Background(), "https://dapp.example", bad)
	require.ErrorIs(t, err, chains.ErrInvalidChainInfo)
	require.Empty(t, h.queue.Datas(constants.SuggestChainInfoType))
}

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context, _ chains.ChainInfo) error {
	f.calls++
	return f.err
}

func TestSuggestEVMVerification(t *testing.T) {
	h := newServiceHarness(t)
	verifier := &fakeVerifier{err: errors.New("evm chain id mismatch")}
	service := NewService(h.queue, h.registry, h.perms, WithEVMVerifier(verifier))

	_, err := service.SuggestChainInfo(context.Background(), "https://dapp.example", testChainInfo("evmos_9001-2"))
	require.ErrorIs(t, err, chains.ErrInvalidChainInfo)
	require.Equal(t, 1, verifier.calls)
	require.Empty(t, h.queue.Datas(constants.SuggestChainInfoType))

	// known chains are not probed again
	_, err = h.registry.Add(context.Background(), testChainInfo("osmosis-1"), false, false)
	require.NoError(t, err)
	res, err := service.SuggestChainInfo(context.Background(), "https://dapp.example", testChainInfo("osmosis-1"))
	require.NoError(t, err)
	require.True(t, res.AlreadyKnown)
	require.Equal(t, 1, verifier.calls)
}
