package host

import (
	"sync"
)

// Disposable releases a resource or subscription.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. It runs on every Dispose
// call; wrap it with DisposeOnce when that matters.
type DisposableFunc func()

// Dispose implements Disposable.
func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

// DisposeOnce returns a Disposable that runs fn on the first Dispose only.
func DisposeOnce(fn func()) Disposable {
	var once sync.Once
	return DisposableFunc(func() {
		if fn != nil {
			once.Do(fn)
		}
	})
}

// Emitter is a typed event source. Handlers run synchronously on the
// goroutine that calls Fire, in subscription order, outside any lock.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
	order    []int
	disposed bool
}

// Subscribe registers fn. Disposing the returned handle stops delivery.
func (e *Emitter[T]) Subscribe(fn func(T)) Disposable {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed || fn == nil {
		return DisposableFunc(func() {})
	}
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn
	e.order = append(e.order, id)

	return DisposeOnce(func() { e.remove(id) })
}

// Fire delivers v to every current subscriber.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	handlers := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		if fn, ok := e.handlers[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Len returns the number of live subscriptions.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Dispose drops every subscription; later Subscribe calls are inert.
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.handlers = nil
	e.order = nil
}

func (e *Emitter[T]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
