package werewolf

import (
	"context"
	"sync"
)

// outbox runs collaborator calls one at a time, in the order they were
// queued, on its own goroutine. push never blocks, so it is safe to call
// while holding the game mutex.
type outbox struct {
	mu     sync.Mutex
	queue  []func(context.Context)
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newOutbox() *outbox {
	return &outbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// push queues f. It reports false once the outbox is closed.
func (o *outbox) push(f func(context.Context)) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, f)
	o.mu.Unlock()
	o.signal()
	return true
}

// close lets run drain what is queued and then return.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) run(ctx context.Context) {
	defer close(o.done)
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			closed := o.closed
			o.mu.Unlock()
			if closed {
				return
			}
			<-o.wake
			continue
		}
		f := o.queue[0]
		o.queue[0] = nil
		o.queue = o.queue[1:]
		o.mu.Unlock()
		f(ctx)
	}
}

// flush waits until everything queued so far has run.
func (o *outbox) flush() {
	ch := make(chan struct{})
	if !o.push(func(context.Context) { close(ch) }) {
		<-o.done
		return
	}
	<-ch
}
