package wayland

// EventQueue holds events for a subset of objects until the application
// chooses to dispatch them. Display.Dispatch still does the reading; it
// merely parks events for proxies that were added to a queue.
type EventQueue struct {
	dsp     *Display
	pending []queuedEvent
}

type queuedEvent struct {
	p *Proxy
	m event
}

func (dsp *Display) NewEventQueue() *EventQueue {
	return &EventQueue{dsp: dsp}
}

// AddProxy moves p's future events to q. Objects created through p
// inherit the queue.
func (q *EventQueue) AddProxy(p *Proxy) {
	if p.dsp != q.dsp {
		panic("wayland: proxy belongs to a different display")
	}
	p.queue = q
}

// Len returns the number of events waiting in q.
func (q *EventQueue) Len() int { return len(q.pending) }

// Dispatch delivers all events queued so far and returns the display's
// error, if any.
func (q *EventQueue) Dispatch() error {
	for len(q.pending) > 0 {
		ev := q.pending[0]
		q.pending[0] = queuedEvent{}
		q.pending = q.pending[1:]
		q.dsp.deliver(ev.p, ev.m)
	}
	return q.dsp.err
}

// Roundtrip is Display.Roundtrip for objects on q: it reads events until
// the compositor has caught up and dispatches the ones queued on q.
func (q *EventQueue) Roundtrip() error {
	done := false
	cb := q.dsp.Sync(func(uint32) { done = true })
	q.AddProxy(cb.proxy)
	for !done {
		if err := q.Dispatch(); err != nil {
			return err
		}
		if done {
			break
		}
		if err := q.dsp.Dispatch(); err != nil {
			return err
		}
	}
	return q.Dispatch()
}
