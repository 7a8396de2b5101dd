package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rbright/signstream/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestStoreReadsMostRecentFirst(t *testing.T) {
	store := New(0)
	store.Prepend(sentence(1, "S1"))
	store.Prepend(sentence(2, "S2"))
	store.Prepend(sentence(3, "S3"))

	require.Equal(t, []string{"S3", "S2", "S1"}, texts(store))
	require.Equal(t, 3, store.Len())
}

func TestStoreAllIsRestartable(t *testing.T) {
	store := New(0)
	store.Prepend(sentence(1, "a"))
	store.Prepend(sentence(2, "b"))

	seq := store.All()
	first := collect(seq)
	second := collect(seq)
	require.Equal(t, first, second)

	store.Prepend(sentence(3, "c"))
	require.Equal(t, []string{"c", "b", "a"}, collect(seq))
}

func TestStoreAllStopsEarly(t *testing.T) {
	store := New(0)
	for i := int64(1); i <= 5; i++ {
		store.Prepend(sentence(i, "x"))
	}

	seen := 0
	for range store.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestStoreSnapshotUnaffectedByLaterPrepend(t *testing.T) {
	store := New(0)
	store.Prepend(sentence(1, "a"))

	var got []string
	for s := range store.All() {
		store.Prepend(sentence(2, "b"))
		got = append(got, s.Text)
	}
	require.Equal(t, []string{"a"}, got)
	require.Equal(t, 2, store.Len())
}

func TestStoreMaxEntriesDropsOldest(t *testing.T) {
	store := New(2)
	store.Prepend(sentence(1, "one"))
	store.Prepend(sentence(2, "two"))
	store.Prepend(sentence(3, "three"))

	require.Equal(t, []string{"three", "two"}, texts(store))
	_, ok := store.Find(1)
	require.False(t, ok)
}

func TestStoreAtCapCompactsInBatches(t *testing.T) {
	store := New(3)
	for i := int64(1); i <= 6; i++ {
		store.Prepend(sentence(i, "s"))
	}
	require.Equal(t, 3, store.Len())
	require.Len(t, store.items, 6)

	// The seventh insert compacts; the next two reuse the same backing array.
	store.Prepend(sentence(7, "s"))
	require.Len(t, store.items, 4)
	base := &store.items[0]
	store.Prepend(sentence(8, "s"))
	store.Prepend(sentence(9, "s"))
	require.Same(t, base, &store.items[0])
	require.LessOrEqual(t, cap(store.items), 6)

	var ids []int64
	for _, s := range store.Recent(0) {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []int64{9, 8, 7}, ids)
	_, ok := store.Find(6)
	require.False(t, ok)
	latest, ok := store.Latest()
	require.True(t, ok)
	require.Equal(t, int64(9), latest.ID)
}

func TestStoreRecentAndLatest(t *testing.T) {
	store := New(0)
	_, ok := store.Latest()
	require.False(t, ok)
	require.Empty(t, store.Recent(3))

	store.Prepend(sentence(1, "one"))
	store.Prepend(sentence(2, "two"))
	store.Prepend(sentence(3, "three"))

	latest, ok := store.Latest()
	require.True(t, ok)
	require.Equal(t, int64(3), latest.ID)

	recent := store.Recent(2)
	require.Len(t, recent, 2)
	require.Equal(t, "three", recent[0].Text)
	require.Equal(t, "two", recent[1].Text)
	require.Len(t, store.Recent(0), 3)
}

func TestStoreReplay(t *testing.T) {
	store := New(0)
	store.Prepend(sentence(7, "good morning"))
	speaker := &fakeSpeaker{}

	require.True(t, store.Replay(context.Background(), 7, speaker))
	require.False(t, store.Replay(context.Background(), 99, speaker))
	require.False(t, store.Replay(context.Background(), 7, nil))
	require.Equal(t, []string{"good morning"}, speaker.texts)
}

func TestStoreConcurrentPrepend(t *testing.T) {
	store := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			store.Prepend(sentence(id, "x"))
			_ = collect(store.All())
		}(int64(i))
	}
	wg.Wait()
	require.Equal(t, 50, store.Len())
}

func sentence(id int64, text string) transcript.Sentence {
	return transcript.Sentence{ID: id, Text: text, CreatedAt: time.Unix(id, 0)}
}

func texts(store *Store) []string {
	return collect(store.All())
}

func collect(seq func(func(transcript.Sentence) bool)) []string {
	out := []string{}
	for s := range seq {
		out = append(out, s.Text)
	}
	return out
}

type fakeSpeaker struct {
	texts []string
}

func (f *fakeSpeaker) SpeakManual(_ context.Context, text string) bool {
	f.texts = append(f.texts, text)
	return true
}
