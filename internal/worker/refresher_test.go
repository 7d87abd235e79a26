package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/service"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) Snapshot(_ context.Context) (service.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return service.Snapshot{}, s.err
	}
	return service.Snapshot{GeneratedAt: time.Unix(int64(s.calls), 0)}, nil
}

func (s *countingSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRefresher_LatestComputesOnce(t *testing.T) {
	src := &countingSource{}
	r, err := NewRefresher(src, nil, time.Minute)
	require.NoError(t, err)

	first, err := r.Latest(context.Background())
	require.NoError(t, err)
	second, err := r.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.count())
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
}

func TestRefresher_FailedRefreshKeepsPrevious(t *testing.T) {
	src := &countingSource{}
	r, err := NewRefresher(src, nil, time.Minute)
	require.NoError(t, err)
	prev, err := r.Refresh(context.Background())
	require.NoError(t, err)

	src.err = errors.New("store down")
	_, err = r.Refresh(context.Background())
	require.Error(t, err)

	latest, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prev.GeneratedAt, latest.GeneratedAt)
}

func TestRefresher_RunsOnSchedule(t *testing.T) {
	src := &countingSource{}
	r, err := NewRefresher(src, nil, time.Second)
	require.NoError(t, err)
	r.Start()
	defer r.Stop(context.Background())

	assert.Eventually(t, func() bool { return src.count() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRefresher_RejectsBadSchedule(t *testing.T) {
	r, err := NewRefresher(&countingSource{}, nil, time.Minute)
	require.NoError(t, err)
	assert.ErrorContains(t, r.schedule("@every never"), "schedule dashboard refresh")
}

func TestStartSyncWorker_RegistersHandlers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartSyncWorker(service.NewSyncService(dispatcher, nil, nil))
	StartSyncWorker(nil)

	err := dispatcher.Publish(context.Background(), events.New(events.EventCaseCreated, "SAC-1", "x", time.Now(), events.CaseCreatedPayload{}))
	assert.NoError(t, err)
}
