package stream

import (
	"context"
	"errors"
	"math"
	"testing"

	rxerrors "github.com/kbukum/rxkit/errors"
)

func collect[T any](t *testing.T, s *Stream[T]) []T {
	t.Helper()
	got, err := ToSlice(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestWhere(t *testing.T) {
	got := collect(t, Where(Just(1, 2, 3, 4, 5, 6), func(v int) bool { return v%2 == 0 }))
	if !equal(got, []int{2, 4, 6}) {
		t.Errorf("got %v, want [2 4 6]", got)
	}
}

func TestWhereIndexed(t *testing.T) {
	got := collect(t, WhereIndexed(Just("a", "b", "c", "d"), func(_ string, i int) bool { return i%2 == 1 }))
	if !equal(got, []string{"b", "d"}) {
		t.Errorf("got %v, want [b d]", got)
	}
}

func TestSkipThenTake_ReleasesUpstream(t *testing.T) {
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(Take(Skip(subj.Stream(), 2), 2), rec)

	for i := 1; i <= 6; i++ {
		subj.OnNext(i)
	}

	if !equal(rec.items(), []int{3, 4}) {
		t.Errorf("got %v, want [3 4]", rec.items())
	}
	if rec.completions() != 1 {
		t.Errorf("got %d completions, want 1", rec.completions())
	}
	if subj.HasObservers() {
		t.Error("expected upstream to be disposed after take completed")
	}
}

func TestTake_ZeroNeverSubscribes(t *testing.T) {
	subscribed := 0
	src := From[int](ObservableFunc[int](func(o Observer[int]) Disposable {
		subscribed++
		return Nop
	}))
	rec := &recorder[int]{}
	Subscribe(Take(src, 0), rec)
	if subscribed != 0 {
		t.Errorf("source subscribed %d times, want 0", subscribed)
	}
	if rec.completions() != 1 {
		t.Error("expected immediate completion")
	}
}

func TestTake_MoreThanAvailable(t *testing.T) {
	got := collect(t, Take(Just(1, 2), 5))
	if !equal(got, []int{1, 2}) {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestSkipWhile_IsSticky(t *testing.T) {
	got := collect(t, SkipWhile(Just(1, 2, 5, 1, 2), func(v int) bool { return v < 3 }))
	if !equal(got, []int{5, 1, 2}) {
		t.Errorf("got %v, want [5 1 2]", got)
	}
}

func TestTakeWhile_CompletesOnFirstMiss(t *testing.T) {
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(TakeWhile(subj.Stream(), func(v int) bool { return v < 3 }), rec)
	for _, v := range []int{1, 2, 5, 1} {
		subj.OnNext(v)
	}
	if !equal(rec.items(), []int{1, 2}) {
		t.Errorf("got %v, want [1 2]", rec.items())
	}
	if rec.completions() != 1 {
		t.Error("expected completion")
	}
	if subj.HasObservers() {
		t.Error("expected upstream to be disposed")
	}
}

func TestTakeWhileIndexed(t *testing.T) {
	got := collect(t, TakeWhileIndexed(Just(9, 9, 9, 9), func(_ int, i int) bool { return i < 3 }))
	if len(got) != 3 {
		t.Errorf("got %v, want three values", got)
	}
}

func TestDistinct(t *testing.T) {
	got := collect(t, Distinct(Just(1, 2, 1, 3, 2)))
	if !equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestDistinctBy(t *testing.T) {
	got := collect(t, DistinctBy(Just("apple", "avocado", "banana", "blueberry", "cherry"), func(s string) byte { return s[0] }))
	if !equal(got, []string{"apple", "banana", "cherry"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilter_PredicateStatePerSubscription(t *testing.T) {
	s := Take(Just(1, 2, 3), 2)
	first := collect(t, s)
	second := collect(t, s)
	if !equal(first, second) {
		t.Errorf("subscriptions shared predicate state: %v vs %v", first, second)
	}
}

func TestFilter_PanicBecomesError(t *testing.T) {
	s := Where(Just(1, 2, 3), func(v int) bool {
		if v == 2 {
			panic("bad predicate")
		}
		return true
	})
	rec := &recorder[int]{}
	Subscribe(s, rec)
	if !equal(rec.items(), []int{1}) {
		t.Errorf("got %v, want [1]", rec.items())
	}
	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeCallbackPanic) {
		t.Errorf("got %v, want CALLBACK_PANIC", rec.failure())
	}
}

func TestFilter_PredicateError(t *testing.T) {
	boom := errors.New("boom")
	op := Filter("custom", func() Predicate[int] {
		return PredicateFunc[int](func(int) (Verdict, error) { return Drop, boom })
	})
	rec := &recorder[int]{}
	Subscribe(Pipe(Just(1), op), rec)
	if !rxerrors.IsCode(rec.failure(), rxerrors.ErrCodeCallbackFailed) {
		t.Errorf("got %v, want CALLBACK_FAILED", rec.failure())
	}
	if !errors.Is(rec.failure(), boom) {
		t.Error("expected the predicate error as cause")
	}
}

func TestTakePredicate_Overflow(t *testing.T) {
	p := &takePredicate[int]{count: math.MaxUint64, taken: math.MaxUint64}
	_, err := p.Evaluate(0)
	if !rxerrors.IsCode(err, rxerrors.ErrCodeCounterOverflow) {
		t.Errorf("got %v, want COUNTER_OVERFLOW", err)
	}
}

func TestIndexCounter_Overflow(t *testing.T) {
	p := &indexCounter{op: "where", n: math.MaxInt}
	if _, err := p.next(); !rxerrors.IsCode(err, rxerrors.ErrCodeCounterOverflow) {
		t.Errorf("got %v, want COUNTER_OVERFLOW", err)
	}
}

func TestSelect(t *testing.T) {
	got := collect(t, Select(Just(1, 2, 3), func(v int) (string, error) {
		return string(rune('a' + v - 1)), nil
	}))
	if !equal(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v, want [a b c]", got)
	}
}

func TestSelectIndexed(t *testing.T) {
	got := collect(t, SelectIndexed(Just(10, 20), func(v, i int) (int, error) { return v + i, nil }))
	if !equal(got, []int{10, 21}) {
		t.Errorf("got %v, want [10 21]", got)
	}
}

func TestSelect_ErrorStopsStream(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder[int]{}
	Subscribe(Select(Just(1, 2, 3), func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	}), rec)
	if !equal(rec.items(), []int{1}) {
		t.Errorf("got %v, want [1]", rec.items())
	}
	if !errors.Is(rec.failure(), boom) {
		t.Errorf("got %v, want wrapped boom", rec.failure())
	}
}
