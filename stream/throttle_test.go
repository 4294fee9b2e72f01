package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestThrottle_EmitsAfterQuietPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(Throttle(subj.Stream(), 100*time.Millisecond, WithClock(clock)), rec)

	subj.OnNext(1)
	clock.Advance(50 * time.Millisecond)
	subj.OnNext(2)
	clock.Advance(50 * time.Millisecond)
	if len(rec.items()) != 0 {
		t.Fatalf("emitted before the quiet period: %v", rec.items())
	}

	clock.Advance(60 * time.Millisecond)
	waitFor(t, func() bool { return len(rec.items()) == 1 })
	if !equal(rec.items(), []int{2}) {
		t.Errorf("got %v, want [2]", rec.items())
	}
}

func TestThrottle_CompletionFlushesPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	subj := NewSubject[string]()
	rec := &recorder[string]{}
	Subscribe(Throttle(subj.Stream(), time.Second, WithClock(clock)), rec)

	subj.OnNext("a")
	subj.OnNext("b")
	subj.OnCompleted()

	if !equal(rec.items(), []string{"b"}) {
		t.Errorf("got %v, want [b]", rec.items())
	}
	if rec.completions() != 1 {
		t.Error("expected completion")
	}
}

func TestThrottle_ErrorDiscardsPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	Subscribe(Throttle(subj.Stream(), time.Second, WithClock(clock)), rec)

	boom := errors.New("boom")
	subj.OnNext(1)
	subj.OnError(boom)
	clock.Advance(2 * time.Second)
	time.Sleep(5 * time.Millisecond)

	if len(rec.items()) != 0 {
		t.Errorf("got %v, want nothing", rec.items())
	}
	if !errors.Is(rec.failure(), boom) {
		t.Errorf("got %v, want boom", rec.failure())
	}
}

func TestThrottle_DisposeStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	subj := NewSubject[int]()
	rec := &recorder[int]{}
	box := Subscribe(Throttle(subj.Stream(), time.Second, WithClock(clock)), rec)

	subj.OnNext(1)
	box.Dispose()
	clock.Advance(2 * time.Second)
	time.Sleep(5 * time.Millisecond)

	if len(rec.items()) != 0 {
		t.Errorf("got %v after dispose", rec.items())
	}
}
