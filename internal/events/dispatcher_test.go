package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventCaseCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.CaseID)
		return errors.New("boom")
	})
	d.Subscribe(EventCaseCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.CaseID)
		return nil
	})
	d.Subscribe(EventCaseStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventCaseCreated, "SAC-1", "Laura", time.Now(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first:SAC-1", "second:SAC-1"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventPasswordResetRequested}))
}

func TestNew_AssignsID(t *testing.T) {
	a := New(EventCaseCreated, "SAC-1", "x", time.Now(), nil)
	b := New(EventCaseCreated, "SAC-1", "x", time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
