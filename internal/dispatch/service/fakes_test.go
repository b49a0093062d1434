package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	ddomain "github.com/corvusHold/courier/internal/dispatch/domain"
	edomain "github.com/corvusHold/courier/internal/email/domain"
	evdomain "github.com/corvusHold/courier/internal/events/domain"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
	tdomain "github.com/corvusHold/courier/internal/tenants/domain"
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	mu        sync.Mutex
	queue     []qdomain.EmailEvent
	counters  map[string]string
	ttls      map[string]time.Duration
	requeued  int
	getCalls  int
	incrCalls int
	now       func() time.Time

	dequeueErr error
	requeueErr error
	getErr     error
	setErr     error
	incrErr    error
}

func newMemStore() *memStore {
	return &memStore{counters: map[string]string{}, ttls: map[string]time.Duration{}, now: time.Now}
}

func (m *memStore) Enqueue(_ context.Context, e qdomain.EmailEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, e)
	return nil
}

func (m *memStore) Dequeue(_ context.Context) (*qdomain.EmailEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dequeueErr != nil {
		return nil, m.dequeueErr
	}
	if len(m.queue) == 0 {
		return nil, nil
	}
	e := m.queue[0]
	m.queue = m.queue[1:]
	return &e, nil
}

func (m *memStore) Requeue(ctx context.Context, e qdomain.EmailEvent) error {
	if m.requeueErr != nil {
		return m.requeueErr
	}
	m.mu.Lock()
	m.requeued++
	m.mu.Unlock()
	e.RetryCount++
	e.Timestamp = m.now().UnixMilli()
	return m.Enqueue(ctx, e)
}

func (m *memStore) Len(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queue)), nil
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.counters[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.counters[key] = value
	delete(m.ttls, key)
	return nil
}

func (m *memStore) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	n, _ := strconv.ParseInt(m.counters[key], 10, 64)
	n++
	m.counters[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memStore) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := m.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrCalls++
	if _, ok := m.ttls[key]; !ok {
		m.ttls[key] = ttl
	}
	return n, nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[key]; ok {
		m.ttls[key] = ttl
	}
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) pending() []qdomain.EmailEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]qdomain.EmailEvent(nil), m.queue...)
}

// fakeSender records every message and fails while failures > 0.
type fakeSender struct {
	mu       sync.Mutex
	sent     []edomain.Message
	calls    int
	failures int
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg edomain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		if f.err != nil {
			return f.err
		}
		return errors.New("gateway returned 502")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeQuota is a QuotaTracker with a fixed remaining value.
type fakeQuota struct {
	remaining int
	checks    int
	recorded  []string
}

func (f *fakeQuota) Remaining(context.Context, string) int {
	f.checks++
	return f.remaining
}

func (f *fakeQuota) RecordSend(_ context.Context, tenantID string) error {
	f.recorded = append(f.recorded, tenantID)
	return nil
}

func (f *fakeQuota) Status(context.Context, string) (ddomain.QuotaStatus, error) {
	return ddomain.QuotaStatus{}, nil
}

// fakeDirectory maps tenant ids to creation times.
type fakeDirectory struct {
	created map[string]time.Time
	err     error
}

func (f fakeDirectory) CreatedAt(_ context.Context, id string) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	t, ok := f.created[id]
	if !ok {
		return time.Time{}, tdomain.ErrTenantNotFound
	}
	return t, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []evdomain.Event
}

func (c *capturePublisher) Publish(_ context.Context, e evdomain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}
