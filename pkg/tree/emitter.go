package tree

// Emitter is a synchronous observer list. Handlers run in subscription order
// on the goroutine that calls Emit. The zero value is ready to use.
type Emitter[T any] struct {
	handlers []subscription[T]
	nextID   int
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscription[T]{id: id, fn: fn})
	return func() {
		for i, h := range e.handlers {
			if h.id == id {
				// Copy so an Emit in progress keeps iterating its own snapshot.
				next := make([]subscription[T], 0, len(e.handlers)-1)
				next = append(next, e.handlers[:i]...)
				e.handlers = append(next, e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every handler registered at the time of the call.
func (e *Emitter[T]) Emit(v T) {
	handlers := e.handlers
	for _, h := range handlers {
		h.fn(v)
	}
}

// Len returns the number of live subscriptions.
func (e *Emitter[T]) Len() int {
	return len(e.handlers)
}
