// Package mediagroup collects the photos of a Telegram album, which arrive as
// separate updates, into one group flushed after a quiet period.
package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

type Item struct {
	ChatID  int64
	UserID  int64
	GroupID string
	Caption string
	FileID  string
}

type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	pending  map[string]*pending
	closed   bool
}

type pending struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pending),
	}
}

// Add queues item and restarts its group's timer. Items without a group or
// file are ignored, as is anything added after Close.
func (a *Aggregator) Add(item Item) {
	if item.GroupID == "" || item.FileID == "" {
		return
	}

	key := fmt.Sprintf("%d:%s", item.ChatID, item.GroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	p, ok := a.pending[key]
	if !ok {
		p = &pending{group: Group{ChatID: item.ChatID, UserID: item.UserID}}
		owner := p
		p.timer = time.AfterFunc(a.debounce, func() { a.flush(key, owner) })
		a.pending[key] = p
	} else {
		p.timer.Reset(a.debounce)
	}

	p.group.FileIDs = append(p.group.FileIDs, item.FileID)
	// Telegram puts the album caption on one of the items, not always the first.
	if item.Caption != "" {
		p.group.Caption = item.Caption
	}
}

// Pending reports how many groups are waiting for their timer.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Close stops all timers and flushes whatever is pending synchronously.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	groups := make([]Group, 0, len(a.pending))
	for key, p := range a.pending {
		p.timer.Stop()
		groups = append(groups, p.group)
		delete(a.pending, key)
	}
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush == nil {
		return
	}
	for _, g := range groups {
		onFlush(g)
	}
}

// flush ignores timers that belong to a group already flushed under key.
func (a *Aggregator) flush(key string, owner *pending) {
	a.mu.Lock()
	p, ok := a.pending[key]
	if !ok || p != owner {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(p.group)
	}
}
