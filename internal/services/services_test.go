package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"diary/internal/amqp"
	"diary/internal/core"
	"diary/internal/store/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.EntryChangedMessage
	err  error
}

func (p *fakePublisher) PublishEntryChanged(_ context.Context, msg *amqp.EntryChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) sent() []*amqp.EntryChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.EntryChangedMessage(nil), p.msgs...)
}

// seeded returns a store with Work (Plan, Execute) and Health (Run) plus the
// loaded taxonomy.
func seeded(t *testing.T) (*memory.Store, []core.Category) {
	t.Helper()
	clock := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	s := memory.NewSeeded().WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	cats, err := s.ListCategories(context.Background(), true)
	if err != nil || len(cats) != 2 {
		t.Fatalf("seed: %v %d", err, len(cats))
	}
	return s, cats
}
