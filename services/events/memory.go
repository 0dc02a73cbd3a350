package eventsvc

import (
	"context"
	"sync"

	"github.com/trezcool/paes/core"
)

// MemoryPublisher keeps events in memory. For development and tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []core.Event
	Err    error // returned by Publish when set
}

var _ core.EventPublisher = (*MemoryPublisher)(nil)

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (pub *MemoryPublisher) Publish(_ context.Context, evt core.Event) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.Err != nil {
		return pub.Err
	}
	pub.events = append(pub.events, evt)
	return nil
}

// Events returns the events published so far, oldest first.
func (pub *MemoryPublisher) Events() []core.Event {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return append([]core.Event(nil), pub.events...)
}
