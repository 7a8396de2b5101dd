package transport

import "sync"

type eventKind int

const (
	eventOpen eventKind = iota + 1
	eventMessage
	eventClose
)

type event struct {
	kind    eventKind
	connID  string
	payload string
	err     error
}

// inbox is an unbounded FIFO drained by a single goroutine. Listeners observe
// events in push order and push never blocks.
type inbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []event
	closed bool
	done   chan struct{}
}

func newInbox(deliver func(event)) *inbox {
	in := &inbox{done: make(chan struct{})}
	in.cond = sync.NewCond(&in.mu)
	go in.run(deliver)
	return in
}

func (in *inbox) push(ev event) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.items = append(in.items, ev)
	in.cond.Signal()
}

func (in *inbox) run(deliver func(event)) {
	defer close(in.done)
	for {
		in.mu.Lock()
		for len(in.items) == 0 && !in.closed {
			in.cond.Wait()
		}
		if len(in.items) == 0 {
			in.mu.Unlock()
			return
		}
		ev := in.items[0]
		in.items[0] = event{}
		in.items = in.items[1:]
		in.mu.Unlock()

		deliver(ev)
	}
}

// close stops intake and waits for queued events to be delivered.
func (in *inbox) close() {
	in.mu.Lock()
	in.closed = true
	in.cond.Broadcast()
	in.mu.Unlock()
	<-in.done
}
