package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-test persistence collaborator with a switchable
// failure mode.
type memStore struct {
	mu      sync.Mutex
	records []*Record
	err     error
	panics  bool
}

func (m *memStore) Store(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panics {
		panic("store exploded")
	}
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) last() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

func TestSink_PersistsSubmittedRecord(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st, WithWorkers(2), WithQueueSize(8))
	require.NoError(t, err)
	defer s.Close()

	s.Submit(context.Background(), &Record{CorrelationID: "c1", Method: "POST", Path: "/x"})

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "c1", st.last().CorrelationID)
}

func TestSink_StampsIdentityAtSubmitTime(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st, WithIdentity(ContextIdentity{}))
	require.NoError(t, err)
	defer s.Close()

	ctx := WithPrincipal(context.Background(), "alice", []string{"admin", "ops"})
	s.Submit(ctx, &Record{CorrelationID: "c1"})

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	rec := st.last()
	assert.Equal(t, "alice", rec.Principal)
	assert.Equal(t, []string{"admin", "ops"}, rec.Roles)
}

func TestSink_AnonymousWithoutPrincipal(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st, WithIdentity(ContextIdentity{}))
	require.NoError(t, err)
	defer s.Close()

	s.Submit(context.Background(), &Record{CorrelationID: "c1"})

	require.Eventually(t, func() bool { return st.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, AnonymousPrincipal, st.last().Principal)
	assert.Nil(t, st.last().Roles)
}

func TestSink_StoreFailureIsSwallowed(t *testing.T) {
	st := &memStore{err: errors.New("db down")}
	s, err := NewSink(st)
	require.NoError(t, err)

	// Submitting must neither error nor panic; the record is dropped.
	s.Submit(context.Background(), &Record{CorrelationID: "doomed"})
	require.NoError(t, s.Close())

	assert.Zero(t, st.count())
}

func TestSink_StorePanicIsContained(t *testing.T) {
	st := &memStore{panics: true}
	s, err := NewSink(st, WithWorkers(1))
	require.NoError(t, err)

	s.Submit(context.Background(), &Record{CorrelationID: "boom"})
	require.NoError(t, s.Close())

	// Pool workers survived the panic; nothing escaped to the caller.
	assert.Zero(t, st.count())
}

func TestSink_CloseDrainsQueue(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st, WithWorkers(2), WithQueueSize(64))
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		s.Submit(context.Background(), &Record{CorrelationID: "c", Method: "GET", Path: "/x"})
	}
	require.NoError(t, s.Close())

	assert.Equal(t, n, st.count(), "Close must drain queued records")
}

func TestSink_SubmitAfterCloseDropsSilently(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s.Submit(context.Background(), &Record{CorrelationID: "late"})

	assert.Zero(t, st.count())
}

func TestSink_ConcurrentSubmissions(t *testing.T) {
	st := &memStore{}
	s, err := NewSink(st, WithWorkers(4), WithQueueSize(16))
	require.NoError(t, err)

	const goroutines, perG = 8, 25
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				s.Submit(context.Background(), &Record{CorrelationID: "c"})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	assert.Equal(t, goroutines*perG, st.count())
}

func TestSink_NilRecordIgnored(t *testing.T) {
	s, err := NewSink(&memStore{})
	require.NoError(t, err)
	defer s.Close()

	s.Submit(context.Background(), nil)
}
