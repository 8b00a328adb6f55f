package meshmpm

import (
	"bytes"
	"fmt"

	"meshmpm/protocol"
)

// MAC is a 6-byte 802.11 hardware address, the immutable key of a Peer
// record (spec.md §3).
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Less reports whether m sorts before other lexicographically over the
// 6 address bytes, the comparator spec.md §4.2 uses to pick min/max(M,P)
// so both peering ends derive identical key material regardless of who
// initiated (nonces are ordered separately, by sortedNonces in keys.go).
func (m MAC) Less(other MAC) bool {
	return bytes.Compare(m[:], other[:]) < 0
}

// sortedMACs returns (min, max) of a and b by MAC.Less.
func sortedMACs(a, b MAC) (min, max MAC) {
	if a.Less(b) {
		return a, b
	}
	return b, a
}

// PlinkState is the MPM FSM state, spec.md §4.5.
type PlinkState int

const (
	PlinkListen PlinkState = iota
	PlinkOpenSent
	PlinkOpenRcvd
	PlinkCnfRcvd
	PlinkEstab
	PlinkHolding
	PlinkBlocked
)

func (s PlinkState) String() string {
	switch s {
	case PlinkListen:
		return "LISTEN"
	case PlinkOpenSent:
		return "OPEN_SENT"
	case PlinkOpenRcvd:
		return "OPEN_RCVD"
	case PlinkCnfRcvd:
		return "CNF_RCVD"
	case PlinkEstab:
		return "ESTAB"
	case PlinkHolding:
		return "HOLDING"
	case PlinkBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN_STATE"
	}
}

// SAEState is sta->sae->state from spec.md §3: "absent / committed /
// confirmed / accepted / nothing". Absent (no session object has ever been
// created) is distinguished from Nothing (a session exists but has been
// reset, e.g. after MESH_AUTH_RETRY is exhausted) because a peer carries no
// session at all until the SAE driver's first Start allocates one.
type SAEState int

const (
	SAEAbsent SAEState = iota
	SAENothing
	SAECommitted
	SAEConfirmed
	SAEAccepted
)

func (s SAEState) String() string {
	switch s {
	case SAEAbsent:
		return "ABSENT"
	case SAENothing:
		return "NOTHING"
	case SAECommitted:
		return "COMMITTED"
	case SAEConfirmed:
		return "CONFIRMED"
	case SAEAccepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN_SAE_STATE"
	}
}

// SAESession tracks one peer's SAE authentication attempt. The commit/
// confirm/PWE math itself is external (SAEEngine, sae.go): this struct
// only holds the bookkeeping the spec assigns to the peer record.
type SAESession struct {
	State SAEState
	PMK   [32]byte
	Group int
	// Engine is the abstract SAE primitive handle for this attempt; nil
	// until Start allocates one.
	Engine SAEEngine
}

// Peer is one mesh neighbor record, spec.md §3.
type Peer struct {
	Addr MAC

	PlinkState PlinkState
	MyLID      uint16
	PeerLID    uint16

	MyNonce   [32]byte
	PeerNonce [32]byte

	Reason  protocol.ReasonCode
	Retries int

	SAE          *SAESession
	SAEAuthRetry int

	AEK  []byte
	MTK  []byte
	MGTK [16]byte

	SuppRates []byte
	AuthAlg   protocol.AuthAlg

	// internal timer bookkeeping (timer.go); not part of the spec's
	// data model but required so a peer's timers can be cancelled on
	// removal without leaving a dangling callback (spec.md §5).
	timers peerTimers
}

// newPeer creates a record in its initial LISTEN state (spec.md §3
// "Lifecycle").
func newPeer(addr MAC) *Peer {
	return &Peer{
		Addr:       addr,
		PlinkState: PlinkListen,
	}
}

// Established reports the invariant "plink_state = ESTAB ⇒ my_lid ≠ 0 ∧
// peer_lid ≠ 0 ∧ aek and mtk are set" (spec.md §3).
func (p *Peer) Established() bool {
	return p.PlinkState == PlinkEstab && p.MyLID != 0 && p.PeerLID != 0 &&
		len(p.AEK) > 0 && len(p.MTK) > 0
}

// SAEAccepted reports whether this peer's SAE session has reached
// ACCEPTED, the prerequisite for any AMPE-protected OPEN to be accepted
// (spec.md §3's sae.state invariant).
func (p *Peer) SAEAccepted() bool {
	return p.SAE != nil && p.SAE.State == SAEAccepted
}
