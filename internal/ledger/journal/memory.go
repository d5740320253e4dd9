package journal

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryJournal keeps entries in a slice indexed by block-1.
type InMemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemory() *InMemoryJournal {
	return &InMemoryJournal{}
}

func (j *InMemoryJournal) Append(_ context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if want := uint64(len(j.entries)) + 1; entry.Block != want {
		return fmt.Errorf("append block %d: %w (want %d)", entry.Block, ErrOutOfOrder, want)
	}
	j.entries = append(j.entries, entry)
	return nil
}

func (j *InMemoryJournal) Range(_ context.Context, from, to uint64) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if from == 0 {
		from = 1
	}
	if to > uint64(len(j.entries)) {
		to = uint64(len(j.entries))
	}
	if from > to {
		return nil, nil
	}
	out := make([]Entry, to-from+1)
	copy(out, j.entries[from-1:to])
	return out, nil
}

func (j *InMemoryJournal) Height(_ context.Context) (uint64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.entries)), nil
}
