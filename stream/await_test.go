package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	rxerrors "github.com/kbukum/rxkit/errors"
)

func TestFilterAwait_CompletedAwaiters(t *testing.T) {
	s := FilterAwait(Just(1, 2, 3, 4), func(v int) Awaiter[bool] { return Completed(v%2 == 0) })
	got := collect(t, s)
	if !equal(got, []int{2, 4}) {
		t.Errorf("got %v, want [2 4]", got)
	}
}

func TestTransformAwait_Async(t *testing.T) {
	s := TransformAwait(Just(21), func(v int) Awaiter[int] {
		return Go(context.Background(), func(context.Context) (int, error) {
			time.Sleep(5 * time.Millisecond)
			return v * 2, nil
		})
	})
	got := collect(t, s)
	if !equal(got, []int{42}) {
		t.Errorf("got %v, want [42]", got)
	}
}

func TestTransformAwait_DefersCompletion(t *testing.T) {
	subj := NewSubject[int]()
	pending := NewFuture[string]()
	rec := &recorder[string]{}
	Subscribe(TransformAwait(subj.Stream(), func(int) Awaiter[string] { return pending }), rec)

	subj.OnNext(1)
	subj.OnCompleted()
	if rec.completions() != 0 {
		t.Fatal("completed while a result was pending")
	}

	pending.Resolve("done")
	if !equal(rec.items(), []string{"done"}) {
		t.Errorf("got %v, want [done]", rec.items())
	}
	if rec.completions() != 1 {
		t.Error("expected completion after the pending result")
	}
}

func TestTransformAwait_ErrorNotDeferred(t *testing.T) {
	subj := NewSubject[int]()
	pending := NewFuture[int]()
	rec := &recorder[int]{}
	Subscribe(TransformAwait(subj.Stream(), func(int) Awaiter[int] { return pending }), rec)

	boom := errors.New("boom")
	subj.OnNext(1)
	subj.OnError(boom)
	if !errors.Is(rec.failure(), boom) {
		t.Fatalf("got %v, want immediate error", rec.failure())
	}
	pending.Resolve(5)
	if len(rec.items()) != 0 {
		t.Errorf("value delivered after error: %v", rec.items())
	}
}

func TestFilterAwait_OverlappingNotification(t *testing.T) {
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(FilterAwait(subj.Stream(), func(int) Awaiter[bool] { return NewFuture[bool]() }), rec)

	subj.OnNext(1)
	subj.OnNext(2)
	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeOverlappingNotification) {
		t.Errorf("got %v, want OVERLAPPING_NOTIFICATION", rec.failure())
	}
}

func TestFilterAwait_FailedAwaiter(t *testing.T) {
	boom := errors.New("lookup failed")
	rec := &recorder[int]{}
	Subscribe(FilterAwait(Just(1), func(int) Awaiter[bool] { return Failed[bool](boom) }), rec)
	if !errors.Is(rec.failure(), boom) {
		t.Errorf("got %v, want lookup failure", rec.failure())
	}
}

func TestFilterAwait_PredicatePanics(t *testing.T) {
	rec := &recorder[int]{}
	Subscribe(FilterAwait(Just(1, 2), func(int) Awaiter[bool] { panic("boom") }), rec)

	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeCallbackPanic) {
		t.Fatalf("got %v, want CALLBACK_PANIC", rec.failure())
	}
	if len(rec.items()) != 0 || rec.completions() != 0 {
		t.Errorf("unexpected delivery after panic: %v", rec.items())
	}
}

func TestTransformAwait_NilAwaiterFails(t *testing.T) {
	rec := &recorder[int]{}
	Subscribe(TransformAwait(Just(1), func(int) Awaiter[int] { return nil }), rec)

	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeCallbackFailed) {
		t.Errorf("got %v, want CALLBACK_FAILED", rec.failure())
	}
}

func TestTransformAwait_ResultPanics(t *testing.T) {
	rec := &recorder[int]{}
	Subscribe(TransformAwait(Just(1), func(int) Awaiter[int] { return panickyAwaiter{} }), rec)

	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeCallbackPanic) {
		t.Errorf("got %v, want CALLBACK_PANIC", rec.failure())
	}
}

func TestWithExecutor_MarshalsResumption(t *testing.T) {
	var hops atomic.Int32
	exec := ExecutorFunc(func(fn func()) {
		hops.Add(1)
		fn()
	})
	subj := NewSubject[int]()
	pending := NewFuture[bool]()
	rec := &recorder[int]{}
	Subscribe(FilterAwait(subj.Stream(), func(int) Awaiter[bool] { return pending }, WithExecutor(exec)), rec)

	subj.OnNext(9)
	pending.Resolve(true)
	if hops.Load() != 1 {
		t.Errorf("executor used %d times, want 1", hops.Load())
	}
	if !equal(rec.items(), []int{9}) {
		t.Errorf("got %v, want [9]", rec.items())
	}
}

func TestFuture_WaitAndResult(t *testing.T) {
	f := NewFuture[int]()
	if _, err := f.GetResult(); !rxerrors.IsCode(err, rxerrors.ErrCodeInternal) {
		t.Errorf("got %v, want INTERNAL_ERROR before completion", err)
	}
	ran := false
	f.OnCompleted(func() { ran = true })
	f.Resolve(3)
	f.Reject(errors.New("ignored"))
	if !ran {
		t.Error("continuation did not run")
	}
	v, err := f.Wait(context.Background())
	if err != nil || v != 3 {
		t.Errorf("got (%v, %v), want (3, nil)", v, err)
	}
}

func TestFromChannel(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "x"
	v, err := FromChannel(ch).Wait(context.Background())
	if err != nil || v != "x" {
		t.Errorf("got (%q, %v), want (x, nil)", v, err)
	}

	closed := make(chan string)
	close(closed)
	if _, err := FromChannel(closed).Wait(context.Background()); !errors.Is(err, rxerrors.ErrNoElements) {
		t.Errorf("got %v, want NO_ELEMENTS", err)
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) { panic("worker") })
	_, err := f.Wait(context.Background())
	if !rxerrors.IsCode(err, rxerrors.ErrCodeCallbackPanic) {
		t.Errorf("got %v, want CALLBACK_PANIC", err)
	}
}

type panickyAwaiter struct{}

func (panickyAwaiter) IsCompleted() bool { return true }
func (panickyAwaiter) OnCompleted(fn func()) { fn() }
func (panickyAwaiter) GetResult() (int, error) { panic("result unavailable") }
