package meshmpm

import "testing"

func TestNewPeerStartsAtListen(t *testing.T) {
	p := newPeer(testMAC(0x01))
	if p.PlinkState != PlinkListen {
		t.Fatalf("expected LISTEN, got %v", p.PlinkState)
	}
	if p.Established() {
		t.Fatal("a freshly created peer must not be Established")
	}
	if p.SAEAccepted() {
		t.Fatal("a freshly created peer must not report SAEAccepted")
	}
}

// TestEstablishedRequiresFullKeyState is spec.md §3's invariant:
// plink_state = ESTAB ⇒ my_lid ≠ 0 ∧ peer_lid ≠ 0 ∧ aek and mtk are set.
func TestEstablishedRequiresFullKeyState(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.PlinkState = PlinkEstab
	if p.Established() {
		t.Fatal("ESTAB alone, with no LIDs/keys, must not report Established")
	}

	p.MyLID = 1
	p.PeerLID = 2
	if p.Established() {
		t.Fatal("LIDs without AEK/MTK must not report Established")
	}

	p.AEK = []byte{0x01}
	p.MTK = []byte{0x02}
	if !p.Established() {
		t.Fatal("ESTAB with LIDs and keys set must report Established")
	}
}

func TestMACLessOrdering(t *testing.T) {
	a, b := testMAC(0x01), testMAC(0x02)
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected b not < a")
	}

	min, max := sortedMACs(b, a)
	if min != a || max != b {
		t.Fatalf("sortedMACs(b, a) = (%v, %v), want (%v, %v)", min, max, a, b)
	}
}

func TestSAEAcceptedRequiresSession(t *testing.T) {
	p := newPeer(testMAC(0x01))
	p.SAE = &SAESession{State: SAEConfirmed}
	if p.SAEAccepted() {
		t.Fatal("CONFIRMED session must not report SAEAccepted")
	}
	p.SAE.State = SAEAccepted
	if !p.SAEAccepted() {
		t.Fatal("ACCEPTED session must report SAEAccepted")
	}
}
