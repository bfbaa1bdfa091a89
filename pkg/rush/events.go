package rush

import "sync"

// emitter is a per-channel callback registry. Subscribing returns an
// unsubscribe func; emit dispatches synchronously outside the lock so
// handlers may subscribe or unsubscribe reentrantly.
type emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
}

func (e *emitter[T]) on(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

func (e *emitter[T]) emit(value T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.handlers))
	for _, fn := range e.handlers {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (e *emitter[T]) removeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = nil
}
