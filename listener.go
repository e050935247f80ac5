package wayland

import "golang.org/x/exp/slices"

// eventHandler receives the events addressed to one proxy. The display
// calls it synchronously from Dispatch, passing the proxy the event was
// addressed to so the handler can check that it owns it.
type eventHandler interface {
	handleEvent(p *Proxy, opcode uint16, args eventArgs) error
}

// eventArgs reads the arguments of an event in order. The first failed
// read makes Err non-nil and later reads return zero values.
type eventArgs interface {
	ReadUint() uint32
	ReadInt() int32
	ReadString() string
	ReadArray() []byte
	Err() error
}

// Listeners is a list of callbacks for one kind of event.
type Listeners[E any] struct {
	next int
	ls   []listener[E]
}

type listener[E any] struct {
	id int
	fn func(E)
}

// Add registers fn and returns a function that unregisters it.
func (l *Listeners[E]) Add(fn func(E)) (remove func()) {
	if fn == nil {
		panic("wayland: nil listener")
	}
	l.next++
	id := l.next
	l.ls = append(l.ls, listener[E]{id: id, fn: fn})
	return func() {
		l.ls = slices.DeleteFunc(l.ls, func(x listener[E]) bool { return x.id == id })
	}
}

// Len returns the number of registered listeners.
func (l *Listeners[E]) Len() int { return len(l.ls) }

// emit calls every listener registered at the time of the call, in
// registration order. Listeners may add or remove listeners while running.
func (l *Listeners[E]) emit(ev E) {
	if len(l.ls) == 0 {
		return
	}
	for _, x := range slices.Clone(l.ls) {
		x.fn(ev)
	}
}

func (l *Listeners[E]) clear() {
	l.ls = nil
}

// checkTarget asserts that an event reached the object it was meant for.
func checkTarget(got, want *Proxy) {
	if got != want {
		panic("wayland: misrouted event: delivered to a handler that doesn't own the object")
	}
}
