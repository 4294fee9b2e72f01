package stream

import (
	"errors"
	"testing"
)

func TestSwitch_FollowsLatestInner(t *testing.T) {
	outer := NewSubject[Observable[int]]()
	a, b := NewSubject[int](), NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(Switch(outer.Stream()), rec)

	outer.OnNext(a)
	a.OnNext(1)
	outer.OnNext(b)
	if a.HasObservers() {
		t.Error("previous inner subscription should be disposed")
	}
	a.OnNext(2)
	b.OnNext(3)

	if !equal(rec.items(), []int{1, 3}) {
		t.Errorf("got %v, want [1 3]", rec.items())
	}

	outer.OnCompleted()
	if rec.completions() != 0 {
		t.Fatal("completed while the inner stream was still active")
	}
	b.OnCompleted()
	if rec.completions() != 1 {
		t.Error("expected completion after outer and inner completed")
	}
}

func TestSwitch_InnerError(t *testing.T) {
	outer := NewSubject[Observable[int]]()
	inner := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(Switch(outer.Stream()), rec)

	boom := errors.New("inner")
	outer.OnNext(inner)
	inner.OnError(boom)
	if !errors.Is(rec.failure(), boom) {
		t.Errorf("got %v, want inner error", rec.failure())
	}
	if outer.HasObservers() {
		t.Error("expected outer subscription to be released")
	}
}

func TestSwitch_DisposeReleasesInner(t *testing.T) {
	outer := NewSubject[Observable[int]]()
	inner := NewSubject[int]()
	box := Subscribe(Switch(outer.Stream()), &recorder[int]{})
	outer.OnNext(inner)
	box.Dispose()
	if inner.HasObservers() || outer.HasObservers() {
		t.Error("expected inner and outer subscriptions to be disposed")
	}
}

func TestSwitchMap_SynchronousInners(t *testing.T) {
	s := SwitchMap(Just(1, 2), func(v int) Observable[int] { return Just(v*10, v*10+1) })
	got := collect(t, s)
	if !equal(got, []int{10, 11, 20, 21}) {
		t.Errorf("got %v, want [10 11 20 21]", got)
	}
}
