package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testType = "suggest-chain-info"

type payload struct {
	ChainID string `json:"chainId"`
}

// enqueueAsync starts a blocking Enqueue and waits until the entry is visible.
func enqueueAsync(t *testing.T, q *Queue, ctx context.Context, typ string, data any) <-chan error {
	t.Helper()

	before := len(q.Datas(typ))
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, typ, "https://app.example", data)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return len(q.Datas(typ)) == before+1
	}, time.Second, 5*time.Millisecond)
	return errCh
}

func TestEnqueueApproveReturnsResult(t *testing.T) {
	q := NewQueue()

	var (
		wg     sync.WaitGroup
		result json.RawMessage
		err    error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err = q.Enqueue(context.Background(), testType, "https://app.example", payload{ChainID: "osmosis-1"})
	}()

	require.Eventually(t, func() bool { return len(q.Datas(testType)) == 1 }, time.Second, 5*time.Millisecond)

	waiting := q.Datas(testType)[0]
	require.Equal(t, testType, waiting.Type)
	require.Equal(t, "https://app.example", waiting.Origin)
	require.NotEmpty(t, waiting.ID)

	var p payload
	require.NoError(t, waiting.Decode(&p))
	require.Equal(t, "osmosis-1", p.ChainID)

	require.NoError(t, q.Approve(context.Background(), testType, waiting.ID, payload{ChainID: "osmosis-2"}))
	wg.Wait()

	require.NoError(t, err)
	require.JSONEq(t, `{"chainId":"osmosis-2"}`, string(result))
	require.Empty(t, q.Datas(testType))
}

func TestRejectReturnsErrRejected(t *testing.T) {
	q := NewQueue()
	errCh := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "juno-1"})

	id := q.Datas(testType)[0].ID
	require.NoError(t, q.Reject(context.Background(), testType, id))
	require.ErrorIs(t, <-errCh, ErrRejected)

	// second decision on the same id is unknown
	require.ErrorIs(t, q.Reject(context.Background(), testType, id), ErrNotFound)
}

func TestApproveWrongTypeIsNotFound(t *testing.T) {
	q := NewQueue()
	errCh := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "juno-1"})

	id := q.Datas(testType)[0].ID
	require.ErrorIs(t, q.Approve(context.Background(), "other", id, nil), ErrNotFound)
	require.Len(t, q.Datas(testType), 1)

	require.NoError(t, q.Reject(context.Background(), testType, id))
	require.ErrorIs(t, <-errCh, ErrRejected)
}

func TestRejectAllOnlyTouchesType(t *testing.T) {
	q := NewQueue()
	first := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "a-1"})
	second := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "b-1"})
	other := enqueueAsync(t, q, context.Background(), "sign", payload{ChainID: "c-1"})

	require.NoError(t, q.RejectAll(context.Background(), testType))
	require.ErrorIs(t, <-first, ErrRejected)
	require.ErrorIs(t, <-second, ErrRejected)
	require.Empty(t, q.Datas(testType))
	require.Len(t, q.Datas("sign"), 1)

	require.NoError(t, q.RejectAll(context.Background(), "sign"))
	require.ErrorIs(t, <-other, ErrRejected)

	// empty queue is fine
	require.NoError(t, q.RejectAll(context.Background(), testType))
}

func TestDatasKeepsInsertionOrder(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a-1", "b-1", "c-1"} {
		enqueueAsync(t, q, context.Background(), testType, payload{ChainID: id})
	}

	datas := q.Datas(testType)
	require.Len(t, datas, 3)
	for i, want := range []string{"a-1", "b-1", "c-1"} {
		var p payload
		require.NoError(t, datas[i].Decode(&p))
		require.Equal(t, want, p.ChainID)
	}
	require.NoError(t, q.RejectAll(context.Background(), testType))
}

func TestEnqueueContextCancelRemovesEntry(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := enqueueAsync(t, q, ctx, testType, payload{ChainID: "a-1"})

	cancel()
	err := <-errCh
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, q.Datas(testType))
}

func TestDecisionWinsOverLateCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		w, done, err := q.push(testType, "https://app.example", payload{ChainID: "a-1"})
		require.NoError(t, err)
		require.NoError(t, q.Approve(context.Background(), testType, w.ID, payload{ChainID: "a-1"}))

		// both the outcome and ctx are ready here
		result, err := q.wait(ctx, w, done)
		require.NoError(t, err)
		require.JSONEq(t, `{"chainId":"a-1"}`, string(result))
	}
	require.Empty(t, q.Datas(testType))
}

func TestExpiredInteractionsAreSwept(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Unix(1_700_000_000, 0)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	q := NewQueue(WithTTL(time.Minute), WithClock(clock))
	errCh := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "a-1"})

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	require.Empty(t, q.Datas(testType))
	require.ErrorIs(t, <-errCh, ErrExpired)
	require.Equal(t, 0, q.Len())
}

func TestSubscribeIsSignalled(t *testing.T) {
	q := NewQueue()
	ch, unsubscribe := q.Subscribe()
	defer unsubscribe()

	errCh := enqueueAsync(t, q, context.Background(), testType, payload{ChainID: "a-1"})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	require.NoError(t, q.RejectAll(context.Background(), testType))
	require.ErrorIs(t, <-errCh, ErrRejected)
}

func TestEnqueueRequiresType(t *testing.T) {
	q := NewQueue()
	_, err := q.Enqueue(context.Background(), " ", "", nil)
	require.Error(t, err)
}
