package meshmpm

import "meshmpm/protocol"

// Event is one of the eight peering events the FSM's transition table is
// indexed by, spec.md §4.5: derived from an inbound OPEN/CONFIRM/CLOSE
// frame by DeriveOpenEvent/DeriveConfirmEvent/DeriveCloseEvent below.
// TIMEOUT is handled separately by ApplyTimeout since its effect already
// depends on which timer fired, not on a table lookup by current state
// alone.
type Event int

const (
	EventOpnAcpt Event = iota
	EventOpnRjct
	EventOpnIgnr
	EventCnfAcpt
	EventCnfRjct
	EventCnfIgnr
	EventClsAcpt
	EventClsIgnr
)

func (e Event) String() string {
	switch e {
	case EventOpnAcpt:
		return "OPN_ACPT"
	case EventOpnRjct:
		return "OPN_RJCT"
	case EventOpnIgnr:
		return "OPN_IGNR"
	case EventCnfAcpt:
		return "CNF_ACPT"
	case EventCnfRjct:
		return "CNF_RJCT"
	case EventCnfIgnr:
		return "CNF_IGNR"
	case EventClsAcpt:
		return "CLS_ACPT"
	case EventClsIgnr:
		return "CLS_IGNR"
	default:
		return "UNKNOWN_EVENT"
	}
}

// DeriveOpenEvent implements spec.md §4.5.2's OPEN derivation: ignore
// (not reject) when there is no free peer slot or the peer record
// already carries a conflicting non-zero peer_lid; accept and record
// plid otherwise; a caller-determined policy mismatch (rates/cipher)
// always rejects.
func DeriveOpenEvent(p *Peer, freeCount int, plid uint16, policyOK bool) Event {
	if freeCount <= 0 {
		return EventOpnIgnr
	}
	if p.PeerLID != 0 && p.PeerLID != plid {
		return EventOpnIgnr
	}
	if !policyOK {
		return EventOpnRjct
	}
	p.PeerLID = plid
	return EventOpnAcpt
}

// DeriveConfirmEvent implements spec.md §4.5.2's CONFIRM derivation.
func DeriveConfirmEvent(p *Peer, freeCount int, llid, plid uint16, policyOK bool) Event {
	if freeCount <= 0 {
		return EventCnfIgnr
	}
	if p.MyLID != llid || p.PeerLID != plid {
		return EventCnfIgnr
	}
	if !policyOK {
		return EventCnfRjct
	}
	return EventCnfAcpt
}

// DeriveCloseEvent implements spec.md §4.5.2's CLOSE derivation and its
// livelock-breaker carve-out: a CLOSE received while ESTAB is accepted
// without checking LIDs at all, so that a peer who believes it is
// established cannot get stuck ignoring a well-formed CLOSE from a side
// that already restarted (spec.md §8 Scenario B).
func DeriveCloseEvent(p *Peer, plid uint16) Event {
	if p.PlinkState == PlinkEstab {
		return EventClsAcpt
	}
	if p.PeerLID != plid {
		return EventClsIgnr
	}
	return EventClsAcpt
}

// Actions is what ApplyEvent/ApplyTimeout tell the caller to do; the FSM
// itself never touches the driver or the crypto layer — it only mutates
// plink_state and the peer record's own fields (spec.md §5: "no
// suspension points inside a transition").
type Actions struct {
	SendOpen    bool
	SendConfirm bool
	SendClose   bool
	Reason      protocol.ReasonCode

	ArmRetry    bool
	ArmConfirm  bool
	ArmHolding  bool
	CancelAll   bool

	// DeriveKeys is set on the transition into ESTAB (OPEN_RCVD on
	// CNF_ACPT, or CNF_RCVD on OPN_ACPT): the caller must derive the MTK,
	// install it via the driver, and mark the peer established.
	DeriveKeys bool

	Established bool
	Restarted   bool
}

// ApplyEvent runs the transition table of spec.md §4.5 for peer p against
// event ev, mutating p.PlinkState and returning what the caller must do.
// Ignored events (*_IGNR) are a documented no-op: no state change, no
// output, per the table's note. An event with no defined transition for
// the peer's current state (e.g. CNF_ACPT while LISTEN) is also a no-op,
// the table's "unknown transitions are logged and dropped" clause —
// callers are expected to log before calling if they want that observed.
func ApplyEvent(p *Peer, ev Event) Actions {
	switch ev {
	case EventOpnIgnr, EventCnfIgnr, EventClsIgnr:
		return Actions{}
	}

	switch p.PlinkState {
	case PlinkListen:
		switch ev {
		case EventOpnAcpt:
			p.PlinkState = PlinkOpenSent
			return Actions{SendOpen: true, SendConfirm: true, ArmRetry: true, CancelAll: true}
		case EventClsAcpt:
			p.PlinkState = PlinkListen
			return Actions{Restarted: true, CancelAll: true}
		}

	case PlinkOpenSent:
		switch ev {
		case EventOpnAcpt:
			p.PlinkState = PlinkOpenRcvd
			return Actions{SendConfirm: true, ArmRetry: true, CancelAll: true}
		case EventOpnRjct, EventCnfRjct:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonPolicyViolation
			return Actions{SendClose: true, Reason: p.Reason, ArmHolding: true, CancelAll: true}
		case EventCnfAcpt:
			p.PlinkState = PlinkCnfRcvd
			return Actions{ArmConfirm: true, CancelAll: true}
		case EventClsAcpt:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonCloseRcvd
			return Actions{SendClose: true, ArmHolding: true, CancelAll: true}
		}

	case PlinkOpenRcvd:
		switch ev {
		case EventOpnAcpt:
			return Actions{SendConfirm: true}
		case EventOpnRjct, EventCnfRjct:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonPolicyViolation
			return Actions{SendClose: true, Reason: p.Reason, ArmHolding: true, CancelAll: true}
		case EventCnfAcpt:
			p.PlinkState = PlinkEstab
			return Actions{DeriveKeys: true, Established: true, CancelAll: true}
		case EventClsAcpt:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonCloseRcvd
			return Actions{SendClose: true, ArmHolding: true, CancelAll: true}
		}

	case PlinkCnfRcvd:
		switch ev {
		case EventOpnAcpt:
			p.PlinkState = PlinkEstab
			return Actions{DeriveKeys: true, SendConfirm: true, Established: true, CancelAll: true}
		case EventOpnRjct, EventCnfRjct:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonPolicyViolation
			return Actions{SendClose: true, Reason: p.Reason, ArmHolding: true, CancelAll: true}
		case EventClsAcpt:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonCloseRcvd
			return Actions{SendClose: true, ArmHolding: true, CancelAll: true}
		}

	case PlinkEstab:
		switch ev {
		case EventOpnAcpt:
			return Actions{SendConfirm: true}
		case EventClsAcpt:
			p.PlinkState = PlinkHolding
			p.Reason = protocol.ReasonCloseRcvd
			return Actions{SendClose: true, ArmHolding: true, CancelAll: true}
		}

	case PlinkHolding:
		switch ev {
		case EventOpnAcpt, EventOpnRjct, EventCnfRjct, EventCnfAcpt:
			return Actions{SendClose: true, Reason: p.Reason}
		case EventClsAcpt:
			p.PlinkState = PlinkListen
			return Actions{Restarted: true, CancelAll: true}
		}

	case PlinkBlocked:
		// Ignore all peering events; no output (spec.md §4.5 table).
		return Actions{}
	}

	return Actions{}
}

// ApplyTimeout runs the retry/confirm/holding timer policy of spec.md
// §4.5 "Timers". p.Retries counts the retransmit attempts already made by
// the retry and confirm timers together (it is reset only when the holding
// timer restarts the peer to LISTEN); cfg.MaxRetries bounds it.
func ApplyTimeout(p *Peer, kind timerKind, cfg *Config) Actions {
	switch kind {
	case timerRetry:
		if p.PlinkState != PlinkOpenSent && p.PlinkState != PlinkOpenRcvd {
			return Actions{}
		}
		if p.Retries < cfg.MaxRetries {
			p.Retries++
			return Actions{SendOpen: true, ArmRetry: true}
		}
		p.PlinkState = PlinkHolding
		p.Reason = protocol.ReasonConfirmTimeout
		return Actions{SendClose: true, Reason: p.Reason, ArmHolding: true, CancelAll: true}

	case timerConfirm:
		if p.PlinkState != PlinkCnfRcvd {
			return Actions{}
		}
		if p.Retries < cfg.MaxRetries {
			p.Retries++
			return Actions{SendConfirm: true, ArmConfirm: true}
		}
		p.PlinkState = PlinkHolding
		p.Reason = protocol.ReasonConfirmTimeout
		return Actions{SendClose: true, Reason: p.Reason, ArmHolding: true, CancelAll: true}

	case timerHolding:
		if p.PlinkState != PlinkHolding {
			return Actions{}
		}
		p.PlinkState = PlinkListen
		p.Retries = 0
		return Actions{Restarted: true}
	}
	return Actions{}
}
