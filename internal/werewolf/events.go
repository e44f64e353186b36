package werewolf

import "sync"

// Event tells subscribers that a game's state changed and a fresh Snapshot
// is worth taking.
type Event struct {
	GameID string
	Kind   string
	Phase  Phase
	Day    int
}

// broadcaster fans events out to subscribers.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Event]struct{})}
}

func (b *broadcaster) subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Lagging subscriber; the next event carries it forward.
		}
	}
	b.mu.Unlock()
}

// closeAll closes every subscriber channel once the game is over.
func (b *broadcaster) closeAll() {
	b.mu.Lock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
