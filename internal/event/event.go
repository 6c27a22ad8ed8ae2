// Package event contains a minimal synchronous observer list.
package event

// Emitter calls subscribed handlers in subscription order. Not safe for concurrent use.
type Emitter[T any] struct {
	handlers []handler[T]
	nextID   int
}

type handler[T any] struct {
	id int
	fn func(T)
}

// On subscribes fn and returns a function removing the subscription, calling it more than once is a no-op.
func (e *Emitter[T]) On(fn func(T)) func() {
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, handler[T]{id, fn})
	return func() {
		e.off(id)
	}
}

func (e *Emitter[T]) off(id int) {
	for i, h := range e.handlers {
		if h.id == id {
			handlers := make([]handler[T], 0, len(e.handlers)-1)
			handlers = append(handlers, e.handlers[:i]...)
			e.handlers = append(handlers, e.handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every handler subscribed before the call.
func (e *Emitter[T]) Emit(value T) {
	for _, h := range e.handlers {
		h.fn(value)
	}
}

func (e *Emitter[T]) Len() int {
	return len(e.handlers)
}

func (e *Emitter[T]) Clear() {
	e.handlers = nil
}
