package stream

// Observer receives the notifications of a stream: zero or more values
// followed by at most one terminal signal.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// Observable is anything that can be subscribed to.
type Observable[T any] interface {
	Subscribe(observer Observer[T]) Disposable
}

// Disposable cancels a subscription or releases a resource. Dispose is
// idempotent.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. The function may be
// called more than once.
type DisposableFunc func()

// Dispose calls f.
func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

type noopDisposable struct{}

func (noopDisposable) Dispose() {}

// Nop is a Disposable that does nothing.
var Nop Disposable = noopDisposable{}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

func (o ObserverFuncs[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o ObserverFuncs[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc[T any] func(observer Observer[T]) Disposable

// Subscribe calls f.
func (f ObservableFunc[T]) Subscribe(observer Observer[T]) Disposable {
	return f(observer)
}
