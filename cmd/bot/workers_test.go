package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionchat/internal/mediagroup"
)

func TestShutdown_ProcessesPendingAlbums(t *testing.T) {
	w := newWorkers(2, time.Second)

	var (
		mu      sync.Mutex
		handled []mediagroup.Group
	)
	albums := mediagroup.New(mediagroup.Options{
		Debounce: time.Hour,
		OnFlush: func(g mediagroup.Group) {
			w.Go(func(ctx context.Context) {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				handled = append(handled, g)
				mu.Unlock()
			})
		},
	})
	albums.Add(mediagroup.Item{ChatID: 1, UserID: 7, GroupID: "album", FileID: "a", Caption: "what is this?"})
	albums.Add(mediagroup.Item{ChatID: 1, UserID: 7, GroupID: "album", FileID: "b"})

	// The signal context is already gone by the time shutdown runs.
	sigCtx, stop := context.WithCancel(context.Background())
	stop()
	require.Error(t, sigCtx.Err())

	var stopped bool
	shutdown(func() { stopped = true }, albums, w, time.Second, slog.New(slog.DiscardHandler))

	assert.True(t, stopped)
	assert.Equal(t, 0, albums.Pending())
	require.Len(t, handled, 1)
	assert.Equal(t, []string{"a", "b"}, handled[0].FileIDs)
	assert.Equal(t, "what is this?", handled[0].Caption)
}

func TestWorkers_DrainCancelsAfterGrace(t *testing.T) {
	w := newWorkers(1, time.Minute)

	started := make(chan struct{})
	var cancelled atomic.Bool
	w.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-started

	assert.False(t, w.Drain(20*time.Millisecond))
	assert.True(t, cancelled.Load())
}

func TestWorkers_RequestDeadline(t *testing.T) {
	w := newWorkers(0, 50*time.Millisecond)

	var hasDeadline atomic.Bool
	w.Go(func(ctx context.Context) {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
	})

	assert.True(t, w.Drain(time.Second))
	assert.True(t, hasDeadline.Load())
}
