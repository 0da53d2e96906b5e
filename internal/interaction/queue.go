package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantumauth-io/chain-suggest-agent/internal/metrics"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Queue is an in-memory queue of interactions waiting for the user.
// Producers block in Enqueue; the approval screen lists, approves and
// rejects entries by type.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry
	order   []string

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

type Option func(*Queue)

// WithTTL expires interactions that wait longer than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) { q.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		now:     time.Now,
		entries: make(map[string]*entry),
		subs:    make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue registers an interaction and blocks until it is approved, rejected,
// expired or ctx is done. The approval result is returned as raw JSON.
func (q *Queue) Enqueue(ctx context.Context, typ, origin string, data any) (json.RawMessage, error) {
	w, done, err := q.push(typ, origin, data)
	if err != nil {
		return nil, err
	}
	return q.wait(ctx, w, done)
}

func (q *Queue) wait(ctx context.Context, w WaitingData, done <-chan outcome) (json.RawMessage, error) {
	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if !q.remove(w.ID) {
			// already taken by a decision; its outcome is on the way
			out := <-done
			return out.result, out.err
		}
		q.resolved(w.Type, metrics.OutcomeCancelled)
		q.notify()
		return nil, ctx.Err()
	}
}

func (q *Queue) push(typ, origin string, data any) (WaitingData, <-chan outcome, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return WaitingData{}, nil, fmt.Errorf("interaction type is required")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return WaitingData{}, nil, fmt.Errorf("marshal interaction data: %w", err)
	}

	e := &entry{
		data: WaitingData{
			ID:        uuid.NewString(),
			Type:      typ,
			Origin:    origin,
			Data:      raw,
			CreatedAt: q.now(),
		},
		done: make(chan outcome, 1),
	}

	q.mu.Lock()
	q.entries[e.data.ID] = e
	q.order = append(q.order, e.data.ID)
	q.mu.Unlock()

	metrics.InteractionsEnqueued.WithLabelValues(typ).Inc()
	metrics.InteractionsWaiting.WithLabelValues(typ).Inc()
	log.Info("interaction enqueued", "id", e.data.ID, "type", typ, "origin", origin)

	q.notify()
	return e.data, e.done, nil
}

// Datas returns the interactions of typ still waiting, oldest first.
func (q *Queue) Datas(typ string) []WaitingData {
	q.sweep()

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]WaitingData, 0)
	for _, id := range q.order {
		e := q.entries[id]
		if e != nil && e.data.Type == typ {
			out = append(out, e.data)
		}
	}
	return out
}

// Approve resolves a waiting interaction with result.
func (q *Queue) Approve(ctx context.Context, typ, id string, result any) error {
	_ = ctx

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal approval result: %w", err)
	}

	e, err := q.take(typ, id)
	if err != nil {
		return err
	}
	e.done <- outcome{result: raw}
	q.resolved(typ, metrics.OutcomeApproved)
	log.Info("interaction approved", "id", id, "type", typ)

	q.notify()
	return nil
}

// Reject resolves a waiting interaction with ErrRejected.
func (q *Queue) Reject(ctx context.Context, typ, id string) error {
	_ = ctx

	e, err := q.take(typ, id)
	if err != nil {
		return err
	}
	e.done <- outcome{err: ErrRejected}
	q.resolved(typ, metrics.OutcomeRejected)
	log.Info("interaction rejected", "id", id, "type", typ)

	q.notify()
	return nil
}

// RejectAll rejects every waiting interaction of typ.
func (q *Queue) RejectAll(ctx context.Context, typ string) error {
	_ = ctx

	q.mu.Lock()
	var rejected []*entry
	kept := q.order[:0]
	for _, id := range q.order {
		e := q.entries[id]
		if e == nil {
			continue
		}
		if e.data.Type == typ {
			rejected = append(rejected, e)
			delete(q.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	q.mu.Unlock()

	for _, e := range rejected {
		e.done <- outcome{err: ErrRejected}
		q.resolved(typ, metrics.OutcomeRejected)
	}
	if len(rejected) > 0 {
		log.Info("interactions rejected", "type", typ, "count", len(rejected))
		q.notify()
	}
	return nil
}

// Len returns the number of waiting interactions of every type.
func (q *Queue) Len() int {
	q.sweep()

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Subscribe returns a channel signalled (coalesced) whenever the queue changes.
func (q *Queue) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	q.subsMu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch
	q.subsMu.Unlock()

	return ch, func() {
		q.subsMu.Lock()
		delete(q.subs, id)
		q.subsMu.Unlock()
	}
}

func (q *Queue) notify() {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (q *Queue) take(typ, id string) (*entry, error) {
	q.sweep()

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[id]
	if !ok || e.data.Type != typ {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, typ, id)
	}
	q.removeLocked(id)
	return e, nil
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[id]; !ok {
		return false
	}
	q.removeLocked(id)
	return true
}

func (q *Queue) removeLocked(id string) {
	delete(q.entries, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// sweep expires interactions older than the ttl.
func (q *Queue) sweep() {
	if q.ttl <= 0 {
		return
	}

	now := q.now()

	q.mu.Lock()
	var expired []*entry
	for _, id := range q.order {
		e := q.entries[id]
		if e != nil && now.Sub(e.data.CreatedAt) > q.ttl {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		q.removeLocked(e.data.ID)
	}
	q.mu.Unlock()

	for _, e := range expired {
		e.done <- outcome{err: ErrExpired}
		q.resolved(e.data.Type, metrics.OutcomeExpired)
		log.Warn("interaction expired", "id", e.data.ID, "type", e.data.Type)
	}
	if len(expired) > 0 {
		q.notify()
	}
}

func (q *Queue) resolved(typ, result string) {
	metrics.InteractionsResolved.WithLabelValues(typ, result).Inc()
	metrics.InteractionsWaiting.WithLabelValues(typ).Dec()
}
