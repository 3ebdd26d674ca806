package syncengine

import "sync"

// Bus fans ProgressEvents out to any number of subscribers, generalizing
// spec.md §6's single "sync-progress" channel into an in-process pub/sub
// any observer — the CLI's progress bar, tests, a future IPC transport —
// can attach to.
type Bus struct {
	mu   sync.Mutex
	subs []chan<- ProgressEvent
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers ch to receive every future Publish. The caller owns
// ch's lifetime and should Unsubscribe before closing it.
func (b *Bus) Subscribe(ch chan<- ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, ch)
}

// Unsubscribe removes ch. No-op if ch was never subscribed.
func (b *Bus) Unsubscribe(ch chan<- ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish sends event to every current subscriber. Sends are non-blocking
// — a slow or full subscriber drops the event rather than stalling the
// run, since progress reporting must never be on the critical path of a
// sync.
func (b *Bus) Publish(event ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		select {
		case s <- event:
		default:
		}
	}
}
