package mediagroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitGroup(t *testing.T, ch <-chan Group) Group {
	t.Helper()
	select {
	case g := <-ch:
		return g
	case <-time.After(2 * time.Second):
		t.Fatal("group was not flushed")
		return Group{}
	}
}

func TestAggregator_CollectsAlbum(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, UserID: 7, GroupID: "g", FileID: "f1"})
	a.Add(Item{ChatID: 1, UserID: 7, GroupID: "g", FileID: "f2", Caption: "compare"})
	a.Add(Item{ChatID: 1, UserID: 7, GroupID: "g", FileID: "f3"})
	assert.Equal(t, 1, a.Pending())

	g := waitGroup(t, flushed)
	assert.Equal(t, int64(1), g.ChatID)
	assert.Equal(t, int64(7), g.UserID)
	assert.Equal(t, "compare", g.Caption)
	assert.Equal(t, []string{"f1", "f2", "f3"}, g.FileIDs)
	assert.Equal(t, 0, a.Pending())
}

func TestAggregator_SeparatesChats(t *testing.T) {
	flushed := make(chan Group, 2)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, GroupID: "same", FileID: "a"})
	a.Add(Item{ChatID: 2, GroupID: "same", FileID: "b"})

	byChat := map[int64][]string{}
	for i := 0; i < 2; i++ {
		g := waitGroup(t, flushed)
		byChat[g.ChatID] = g.FileIDs
	}
	assert.Equal(t, []string{"a"}, byChat[1])
	assert.Equal(t, []string{"b"}, byChat[2])
}

func TestAggregator_IgnoresIncompleteItems(t *testing.T) {
	a := New(Options{Debounce: time.Hour})

	a.Add(Item{ChatID: 1, FileID: "f"})
	a.Add(Item{ChatID: 1, GroupID: "g"})

	assert.Equal(t, 0, a.Pending())
}

func TestAggregator_CloseFlushesPending(t *testing.T) {
	var got []Group
	a := New(Options{Debounce: time.Hour, OnFlush: func(g Group) { got = append(got, g) }})

	a.Add(Item{ChatID: 3, GroupID: "g", FileID: "f1"})
	a.Close()

	require.Len(t, got, 1)
	assert.Equal(t, []string{"f1"}, got[0].FileIDs)

	a.Add(Item{ChatID: 3, GroupID: "g2", FileID: "f2"})
	assert.Equal(t, 0, a.Pending())
}
