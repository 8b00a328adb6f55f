package meshmpm

import (
	"testing"
	"time"

	"github.com/go-kit/log"

	"meshmpm/protocol"
)

func newTestEngine(t *testing.T) (*Engine, *fakeDriver) {
	t.Helper()
	cfg := DefaultConfig()
	local := testMAC(0x01)
	rsn, err := NewRSNContext(local, cfg.SAEGroups)
	if err != nil {
		t.Fatal(err)
	}
	drv := &fakeDriver{}
	e := NewEngine(cfg, local, drv, rsn, nil, log.NewNopLogger())
	go e.Run()
	t.Cleanup(e.Stop)
	return e, drv
}

func waitForState(t *testing.T, e *Engine, addr MAC, want PlinkState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		var state PlinkState
		var ok bool
		e.call(func() {
			var p *Peer
			p, ok = e.table.Get(addr)
			if ok {
				state = p.PlinkState
			}
		})
		if ok && state == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("peer %s never reached %v", addr, want)
}

// TestScenarioACleanPeering is spec.md §8 Scenario A end to end, with RSN
// disabled: discover the peer, receive its OPEN, receive its CONFIRM,
// reach ESTAB with no AMPE/SAE involved.
func TestScenarioACleanPeering(t *testing.T) {
	e, drv := newTestEngine(t)
	peer := testMAC(0x02)

	if _, err := e.Discover(peer, []byte{0x02, 0x04}); err != nil {
		t.Fatal(err)
	}
	if len(drv.staAdd) != 1 {
		t.Fatalf("expected 1 sta_add call, got %d", len(drv.staAdd))
	}

	openFrame, err := BuildOpen(DefaultConfig(), MAC{}, MAC{}, 0x0001, 0, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.DeliverAction(ActionFrame{Src: peer, Bssid: e.local, Category: protocol.CategorySelfProtected, Data: openFrame})

	waitForState(t, e, peer, PlinkOpenSent)

	var myLID uint16
	e.call(func() {
		p, _ := e.table.Get(peer)
		myLID = p.MyLID
	})
	if myLID == 0 {
		t.Fatal("expected a non-zero my_lid to have been assigned")
	}

	// The peer's own OPN_ACPT of our just-sent OPEN: per the literal
	// transition table (spec.md §4.5), OPEN_SENT + OPN_ACPT -> OPEN_RCVD,
	// not straight to ESTAB — reaching ESTAB needs both sides' OPENs
	// mutually accepted before the final CONFIRM.
	e.DeliverAction(ActionFrame{Src: peer, Bssid: e.local, Category: protocol.CategorySelfProtected, Data: openFrame})
	waitForState(t, e, peer, PlinkOpenRcvd)

	confirmFrame, err := BuildConfirm(DefaultConfig(), MAC{}, MAC{}, myLID, 0x0001, 0, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.DeliverAction(ActionFrame{Src: peer, Bssid: e.local, Category: protocol.CategorySelfProtected, Data: confirmFrame})

	waitForState(t, e, peer, PlinkEstab)

	if len(drv.action) < 3 {
		t.Fatalf("expected at least 3 action frames sent (OPEN, CONFIRM, CONFIRM), got %d", len(drv.action))
	}
}

// TestScenarioBLivelockBreakerEngine exercises the same invariant as
// TestScenarioBLivelockBreaker but through the engine's action-frame path.
func TestScenarioBLivelockBreakerEngine(t *testing.T) {
	e, _ := newTestEngine(t)
	peer := testMAC(0x02)

	var createErr error
	e.call(func() {
		p, err := e.table.Create(peer)
		if err != nil {
			createErr = err
			return
		}
		p.PlinkState = PlinkEstab
		p.PeerLID = 0x0042
		p.MyLID = 0x0099
	})
	if createErr != nil {
		t.Fatal(createErr)
	}

	closeFrame, err := BuildClose(DefaultConfig(), 0x0099, 0x9999, protocol.ReasonCloseRcvd)
	if err != nil {
		t.Fatal(err)
	}
	e.DeliverAction(ActionFrame{Src: peer, Bssid: e.local, Category: protocol.CategorySelfProtected, Data: closeFrame})

	waitForState(t, e, peer, PlinkHolding)
}
