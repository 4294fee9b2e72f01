package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFromSlice_ToSlice(t *testing.T) {
	got, err := ToSlice(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestEmpty_Completes(t *testing.T) {
	rec := &recorder[int]{}
	box := Subscribe(Empty[int](), rec)
	if rec.completions() != 1 {
		t.Errorf("expected completion, got %d", rec.completions())
	}
	if box.State() != StateCompleted {
		t.Errorf("got state %v, want completed", box.State())
	}
	if !box.Released() {
		t.Error("expected box to be released after completion")
	}
}

func TestFail_DeliversError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder[int]{}
	box := Subscribe(Fail[int](boom), rec)
	if !errors.Is(rec.failure(), boom) {
		t.Errorf("got %v, want %v", rec.failure(), boom)
	}
	if box.State() != StateFaulted {
		t.Errorf("got state %v, want faulted", box.State())
	}
}

func TestSubscribe_SingleTerminalSignal(t *testing.T) {
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	box := Subscribe(subj.Stream(), rec)

	stage := box.Chain().(*sinkStage[int])
	subj.OnNext(1)
	subj.OnCompleted()
	// Drive the sink directly: the subject itself refuses a second terminal.
	stage.OnCompleted()
	stage.OnError(errors.New("late"))
	stage.OnNext(2)

	if rec.completions() != 1 {
		t.Errorf("got %d completions, want 1", rec.completions())
	}
	if rec.failure() != nil {
		t.Errorf("unexpected error %v", rec.failure())
	}
	if !equal(rec.items(), []int{1}) {
		t.Errorf("got %v, want [1]", rec.items())
	}
}

func TestBox_DisposeStopsDeliveryAndReleasesUpstream(t *testing.T) {
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	box := Subscribe(subj.Stream(), rec)

	subj.OnNext(1)
	box.Dispose()
	box.Dispose()
	subj.OnNext(2)

	if !equal(rec.items(), []int{1}) {
		t.Errorf("got %v, want [1]", rec.items())
	}
	if subj.HasObservers() {
		t.Error("expected upstream subscription to be disposed")
	}
	if box.State() != StateDisposed {
		t.Errorf("got state %v, want disposed", box.State())
	}
	if rec.completions() != 0 {
		t.Error("disposal must not signal completion")
	}
}

func TestBox_DisposeFromInsideNotification(t *testing.T) {
	subj := NewSubject[int]()
	var box *Box
	var got []int
	box = SubscribeFuncs(subj.Stream(), func(v int) {
		got = append(got, v)
		box.Dispose()
		if box.Released() {
			t.Error("box released while a notification is in flight")
		}
	}, nil, nil)

	subj.OnNext(1)
	subj.OnNext(2)

	if !equal(got, []int{1}) {
		t.Errorf("got %v, want [1]", got)
	}
	if !box.Released() {
		t.Error("expected release once the notification returned")
	}
	if subj.HasObservers() {
		t.Error("expected upstream subscription to be disposed")
	}
}

func TestBox_DisposeWhileSubscribing(t *testing.T) {
	disposed := atomic.Bool{}
	src := ObservableFunc[int](func(o Observer[int]) Disposable {
		o.OnNext(1)
		o.OnCompleted()
		return DisposableFunc(func() { disposed.Store(true) })
	})
	rec := &recorder[int]{}
	Subscribe(From[int](src), rec)
	if !disposed.Load() {
		t.Error("handle returned after termination should be disposed immediately")
	}
}

func TestSubscribe_SerializesConcurrentNotifications(t *testing.T) {
	subj := NewSubject[int]()
	var inFlight, overlaps, count atomic.Int64
	Subscribe(subj.Stream(), ObserverFuncs[int]{Next: func(int) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Microsecond)
		count.Add(1)
		inFlight.Add(-1)
	}})

	const workers, perWorker = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				subj.OnNext(i)
			}
		}()
	}
	wg.Wait()

	if overlaps.Load() != 0 {
		t.Errorf("observer entered concurrently %d times", overlaps.Load())
	}
	if count.Load() != workers*perWorker {
		t.Errorf("got %d notifications, want %d", count.Load(), workers*perWorker)
	}
}

func TestFromSlice_StopsAfterTake(t *testing.T) {
	var pulled int
	src := Do(FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8}), func(int) { pulled++ })
	got, err := ToSlice(context.Background(), Take(src, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !equal(got, []int{1, 2}) {
		t.Errorf("got %v, want [1 2]", got)
	}
	if pulled != 2 {
		t.Errorf("source emitted %d values, want 2", pulled)
	}
}

func TestFromChan(t *testing.T) {
	ch := make(chan int)
	go func() {
		for i := 1; i <= 3; i++ {
			ch <- i
		}
		close(ch)
	}()
	got, err := ToSlice(context.Background(), FromChan(context.Background(), ch))
	if err != nil {
		t.Fatal(err)
	}
	if !equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromChan_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)
	rec := &recorder[int]{}
	Subscribe(FromChan(ctx, ch), rec)
	cancel()
	waitFor(t, func() bool { return rec.failure() != nil })
	if !errors.Is(rec.failure(), context.Canceled) {
		t.Errorf("got %v, want context.Canceled", rec.failure())
	}
}

func TestSubject_LateSubscriberGetsTerminal(t *testing.T) {
	subj := NewSubject[string]()
	subj.OnCompleted()
	rec := &recorder[string]{}
	Subscribe(subj.Stream(), rec)
	if rec.completions() != 1 {
		t.Errorf("got %d completions, want 1", rec.completions())
	}
}

func TestAwait_FirstValue(t *testing.T) {
	v, err := Await(context.Background(), Just("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if v != "a" {
		t.Errorf("got %q, want %q", v, "a")
	}
}

func TestAwait_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, Never[int]())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestToFuture_DisposesAfterFirstValue(t *testing.T) {
	subj := NewSubject[int]()
	f := ToFuture(subj.Stream())
	subj.OnNext(7)
	v, err := f.GetResult()
	if err != nil || v != 7 {
		t.Errorf("got (%v, %v), want (7, nil)", v, err)
	}
	if subj.HasObservers() {
		t.Error("expected subscription to be disposed after the first value")
	}
}

// --- helpers ---

type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed int
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recorder[T]) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder[T]) items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func equal[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
