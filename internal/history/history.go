// Package history keeps the finalized sentences of one session.
package history

import (
	"context"
	"iter"
	"sync"

	"github.com/rbright/signstream/internal/transcript"
)

// ManualSpeaker issues user-initiated speech requests.
type ManualSpeaker interface {
	SpeakManual(ctx context.Context, text string) bool
}

// Store is an append-only sentence log read most-recent-first.
type Store struct {
	mu sync.RWMutex
	// items is oldest first and may hold up to 2*maxEntries; only the
	// trailing maxEntries are visible.
	items      []transcript.Sentence
	maxEntries int
}

// New returns a store. maxEntries <= 0 keeps every sentence.
func New(maxEntries int) *Store {
	return &Store{maxEntries: maxEntries}
}

// Prepend records s as the newest entry.
func (s *Store) Prepend(sentence transcript.Sentence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Compact once per maxEntries inserts instead of on every insert at the cap.
	if s.maxEntries > 0 && len(s.items) >= 2*s.maxEntries {
		kept := make([]transcript.Sentence, s.maxEntries, 2*s.maxEntries)
		copy(kept, s.items[len(s.items)-s.maxEntries:])
		s.items = kept
	}
	s.items = append(s.items, sentence)
}

// visible returns the retained window. Callers hold s.mu.
func (s *Store) visible() []transcript.Sentence {
	items := s.items
	if s.maxEntries > 0 && len(items) > s.maxEntries {
		items = items[len(items)-s.maxEntries:]
	}
	return items[:len(items):len(items)]
}

// All yields sentences newest first. Each iteration reads a fresh snapshot.
func (s *Store) All() iter.Seq[transcript.Sentence] {
	return func(yield func(transcript.Sentence) bool) {
		snapshot := s.snapshot()
		for i := len(snapshot) - 1; i >= 0; i-- {
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

// Recent returns up to n sentences newest first. n <= 0 returns all of them.
func (s *Store) Recent(n int) []transcript.Sentence {
	out := make([]transcript.Sentence, 0)
	for sentence := range s.All() {
		if n > 0 && len(out) >= n {
			break
		}
		out = append(out, sentence)
	}
	return out
}

// Len returns the number of stored sentences.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visible())
}

// Find looks a sentence up by id.
func (s *Store) Find(id int64) (transcript.Sentence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.visible()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].ID == id {
			return items[i], true
		}
	}
	return transcript.Sentence{}, false
}

// Latest returns the newest sentence, if any.
func (s *Store) Latest() (transcript.Sentence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.visible()
	if len(items) == 0 {
		return transcript.Sentence{}, false
	}
	return items[len(items)-1], true
}

// Replay speaks sentence id through speaker. Unknown ids are a no-op.
func (s *Store) Replay(ctx context.Context, id int64, speaker ManualSpeaker) bool {
	sentence, ok := s.Find(id)
	if !ok || speaker == nil {
		return false
	}
	return speaker.SpeakManual(ctx, sentence.Text)
}

// snapshot returns the visible window; entries are never mutated in place.
func (s *Store) snapshot() []transcript.Sentence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible()
}
