package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	mu      sync.Mutex
	cutoffs []time.Time
	count   int
	err     error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.count, f.err
}

func (f *fakeMarker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep(t *testing.T) {
	marker := &fakeMarker{count: 3}
	s := NewOverdueSweeper(marker, Config{Interval: time.Hour}, discard())
	fixed := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Time{fixed}, marker.cutoffs)

	marker.err = errors.New("connection refused")
	_, err = s.Sweep(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestStart_Disabled(t *testing.T) {
	marker := &fakeMarker{}
	s := NewOverdueSweeper(marker, Config{}, discard())

	assert.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 0, marker.calls())
}

func TestStart_SweepsUntilCancelled(t *testing.T) {
	marker := &fakeMarker{}
	s := NewOverdueSweeper(marker, Config{Interval: 5 * time.Millisecond}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return marker.calls() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
