// Package stream is a push-based reactive stream runtime.
//
// A subscription to a Stream builds a chain of stages, one per operator,
// that ends in the subscriber's Observer. Every chain is owned by a Box:
// the subscription handle that serialises notifications, tracks the
// terminal state and releases the chain and its upstream exactly once.
//
// # Building pipelines
//
//	src := stream.FromSlice([]int{3, 1, 4, 1, 5})
//	evens := stream.Where(src, func(v int) bool { return v%2 == 0 })
//	top, err := stream.Await(ctx, stream.Max(evens))
//
// Operators are generic functions rather than methods because Go methods
// cannot introduce type parameters. Custom operators implement Operator
// and embed Link in their stages.
//
// # Threading
//
// Sources may notify from any goroutine. A notification that arrives while
// another is being processed by the same chain is queued and drained by the
// goroutine already inside the chain, so stages never observe concurrent
// calls. The same queue carries resumptions of asynchronous work (await
// continuations, throttle timers, inner subscriptions of Switch).
package stream
