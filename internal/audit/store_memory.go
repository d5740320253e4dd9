package audit

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps events in append order. Used by tests and by the
// gateway when DATABASE_URL is unset.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
	seen   map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]struct{})}
}

// Append ignores an event whose ID was already stored, like the Postgres store.
func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID != "" {
		if _, dup := s.seen[event.ID]; dup {
			return nil
		}
		s.seen[event.ID] = struct{}{}
	}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]Event, error) {
	return s.filter(func(e Event) bool { return strings.EqualFold(e.Subject, subject) }), nil
}

func (s *InMemoryStore) ListByTx(_ context.Context, txHash string) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.TxHash == txHash }), nil
}

// All returns every stored event in append order.
func (s *InMemoryStore) All() []Event {
	return s.filter(func(Event) bool { return true })
}

func (s *InMemoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Event{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
