package meshmpm

import (
	"testing"
	"time"
)

// TestTimerFireValidAfterArm checks the common case: a timer fires and its
// generation still matches.
func TestTimerFireValidAfterArm(t *testing.T) {
	p := newPeer(testMAC(0x01))
	ch := make(chan timerFire, 1)
	p.arm(timerRetry, 5*time.Millisecond, ch)

	select {
	case f := <-ch:
		if !f.valid() {
			t.Fatal("expected timer fire to still be valid")
		}
		if f.kind != timerRetry {
			t.Fatalf("expected timerRetry, got %v", f.kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

// TestCancelAllInvalidatesInFlightFire is spec.md §8 invariant 6: a timer
// that was already queued to fire before cancelAll bumps the generation
// must be observed as stale once it is finally read off the channel.
func TestCancelAllInvalidatesInFlightFire(t *testing.T) {
	p := newPeer(testMAC(0x01))
	ch := make(chan timerFire, 1)
	p.arm(timerHolding, 0, ch) // fires as soon as the runtime schedules it

	time.Sleep(20 * time.Millisecond) // let the AfterFunc callback run and post to ch
	p.cancelAll()

	select {
	case f := <-ch:
		if f.valid() {
			t.Fatal("expected the in-flight fire to be stale after cancelAll")
		}
	default:
		t.Fatal("expected a queued fire to read from the channel")
	}
}

func TestCancelStopsTimerBeforeFire(t *testing.T) {
	p := newPeer(testMAC(0x01))
	ch := make(chan timerFire, 1)
	p.arm(timerConfirm, 50*time.Millisecond, ch)
	p.cancel(timerConfirm)

	select {
	case f := <-ch:
		t.Fatalf("cancelled timer must not fire, got %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestArmReplacesExistingTimer(t *testing.T) {
	p := newPeer(testMAC(0x01))
	ch := make(chan timerFire, 2)
	p.arm(timerRetry, 200*time.Millisecond, ch)
	p.arm(timerRetry, 10*time.Millisecond, ch)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("rearmed timer never fired")
	}
	select {
	case f := <-ch:
		t.Fatalf("the superseded timer must have been stopped, got extra fire %+v", f)
	case <-time.After(250 * time.Millisecond):
	}
}
