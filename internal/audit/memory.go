package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryPublisher collects events in memory, for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything emitted so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ByAction returns emitted events with the given action.
func (p *MemoryPublisher) ByAction(action string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
