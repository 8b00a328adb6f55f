package meshmpm

import "testing"

// TestScenarioAOpenSentTransition is spec.md §8 Scenario A's middle step:
// an OPEN from the peer while LISTEN sends our own OPEN and a CONFIRM and
// moves us to OPEN_SENT.
func TestScenarioAOpenSentTransition(t *testing.T) {
	p := newPeer(testMAC(0x01))
	ev := DeriveOpenEvent(p, 10, 0x0001, true)
	if ev != EventOpnAcpt {
		t.Fatalf("expected OPN_ACPT, got %v", ev)
	}
	if p.PeerLID != 0x0001 {
		t.Fatalf("expected peer_lid=0x0001, got %#x", p.PeerLID)
	}

	a := ApplyEvent(p, ev)
	if p.PlinkState != PlinkOpenSent {
		t.Fatalf("expected OPEN_SENT, got %v", p.PlinkState)
	}
	if !a.SendOpen || !a.SendConfirm || !a.ArmRetry {
		t.Fatalf("expected SendOpen+SendConfirm+ArmRetry, got %+v", a)
	}
}

func TestScenarioAFullPeering(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.MyLID = 0x00AA

	ev := DeriveOpenEvent(p, 10, 0x0001, true)
	ApplyEvent(p, ev)
	if p.PlinkState != PlinkOpenSent {
		t.Fatalf("expected OPEN_SENT after OPEN, got %v", p.PlinkState)
	}

	ev = DeriveConfirmEvent(p, 10, p.MyLID, p.PeerLID, true)
	if ev != EventCnfAcpt {
		t.Fatalf("expected CNF_ACPT, got %v", ev)
	}
	ApplyEvent(p, ev)
	if p.PlinkState != PlinkCnfRcvd {
		t.Fatalf("expected CNF_RCVD, got %v", p.PlinkState)
	}

	a := ApplyEvent(p, EventOpnAcpt)
	if p.PlinkState != PlinkEstab {
		t.Fatalf("expected ESTAB, got %v", p.PlinkState)
	}
	if !a.DeriveKeys || !a.Established {
		t.Fatalf("expected DeriveKeys+Established, got %+v", a)
	}
}

// TestScenarioBLivelockBreaker is spec.md §8 Scenario B: a CLOSE with a
// mismatched plid is still accepted while ESTAB.
func TestScenarioBLivelockBreaker(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkEstab
	p.PeerLID = 0x0042

	ev := DeriveCloseEvent(p, 0x9999) // does not match stored peer_lid
	if ev != EventClsAcpt {
		t.Fatalf("expected CLS_ACPT regardless of LID mismatch, got %v", ev)
	}
	ApplyEvent(p, ev)
	if p.PlinkState != PlinkHolding {
		t.Fatalf("expected HOLDING, got %v", p.PlinkState)
	}
}

// TestIgnoredEventsNeverChangeState is spec.md §8 invariant 4.
func TestIgnoredEventsNeverChangeState(t *testing.T) {
	for _, st := range []PlinkState{PlinkListen, PlinkOpenSent, PlinkOpenRcvd, PlinkCnfRcvd, PlinkEstab, PlinkHolding, PlinkBlocked} {
		for _, ev := range []Event{EventOpnIgnr, EventCnfIgnr, EventClsIgnr} {
			p := newPeer(testMAC(0x01))
			p.PlinkState = st
			ApplyEvent(p, ev)
			if p.PlinkState != st {
				t.Fatalf("%v + %v: state changed to %v", st, ev, p.PlinkState)
			}
		}
	}
}

// TestBlockedIgnoresAllEvents is spec.md §8 invariant 5 at the FSM layer:
// for a BLOCKED peer the transition table changes no state and returns no
// actions, so no Send* action is ever produced. The engine's separate
// transmitClose guard is not exercised here.
func TestBlockedIgnoresAllEvents(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkBlocked
	for _, ev := range []Event{EventOpnAcpt, EventOpnRjct, EventCnfAcpt, EventCnfRjct, EventClsAcpt} {
		a := ApplyEvent(p, ev)
		if p.PlinkState != PlinkBlocked {
			t.Fatalf("BLOCKED peer transitioned on %v to %v", ev, p.PlinkState)
		}
		if a != (Actions{}) {
			t.Fatalf("BLOCKED peer produced actions on %v: %+v", ev, a)
		}
	}
}

func TestHoldingRestartsOnClose(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkHolding
	a := ApplyEvent(p, EventClsAcpt)
	if p.PlinkState != PlinkListen {
		t.Fatalf("expected restart to LISTEN, got %v", p.PlinkState)
	}
	if !a.Restarted {
		t.Fatalf("expected Restarted action, got %+v", a)
	}
}

func TestApplyTimeoutRetryExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkOpenSent

	for i := 0; i < cfg.MaxRetries; i++ {
		a := ApplyTimeout(p, timerRetry, cfg)
		if !a.SendOpen || p.PlinkState != PlinkOpenSent {
			t.Fatalf("retry %d: expected a retransmit, got %+v (state %v)", i, a, p.PlinkState)
		}
	}
	a := ApplyTimeout(p, timerRetry, cfg)
	if p.PlinkState != PlinkHolding {
		t.Fatalf("expected HOLDING after retries exhausted, got %v", p.PlinkState)
	}
	if !a.SendClose {
		t.Fatalf("expected SendClose, got %+v", a)
	}
}

func TestApplyTimeoutHoldingRestarts(t *testing.T) {
	cfg := DefaultConfig()
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkHolding
	a := ApplyTimeout(p, timerHolding, cfg)
	if p.PlinkState != PlinkListen || !a.Restarted {
		t.Fatalf("expected restart to LISTEN, got %v / %+v", p.PlinkState, a)
	}
}
