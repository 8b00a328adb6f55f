package protocol

import (
	"encoding/binary"
	"fmt"
)

// PeeringMgmt is the decoded Mesh Peering Management IE payload: the
// sender's own link ID (LLID), optionally the peer's link ID it is
// echoing back (PLID, present on CONFIRM and CLOSE), and optionally a
// reason code (present on CLOSE). Its wire layout is:
//
//	LLID (2, always) || PLID (2, CONFIRM and CLOSE) || Reason (2, CLOSE only)
//
// DecodePeeringMgmt reads a 4-byte payload as LLID || PLID, so a Reason is
// only recovered when a PLID precedes it.
//
// which is why its length varies by action type, matching the
// original_source's comment "ie_len == 7" check for CLOSE carrying a plid.
type PeeringMgmt struct {
	LLID   uint16
	PLID   uint16
	HasPLID bool
	Reason  uint16
	HasReason bool
}

func (p PeeringMgmt) Encode() []byte {
	out := make([]byte, 2, 6)
	binary.BigEndian.PutUint16(out, p.LLID)
	if p.HasPLID {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], p.PLID)
		out = append(out, b[:]...)
	}
	if p.HasReason {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], p.Reason)
		out = append(out, b[:]...)
	}
	return out
}

func DecodePeeringMgmt(b []byte) (PeeringMgmt, error) {
	var p PeeringMgmt
	if len(b) < 2 {
		return p, fmt.Errorf("protocol: peering mgmt IE too short: %d bytes", len(b))
	}
	p.LLID = binary.BigEndian.Uint16(b[0:2])
	switch len(b) {
	case 2:
	case 4:
		p.PLID = binary.BigEndian.Uint16(b[2:4])
		p.HasPLID = true
	case 6:
		p.PLID = binary.BigEndian.Uint16(b[2:4])
		p.HasPLID = true
		p.Reason = binary.BigEndian.Uint16(b[4:6])
		p.HasReason = true
	default:
		return p, fmt.Errorf("protocol: peering mgmt IE has unexpected length %d", len(b))
	}
	return p, nil
}

// AMPEElement is the decrypted AMPE information element payload, per
// spec.md §4.3 step 1:
//
//	selected_pairwise_suite (4) || local_nonce (32) || peer_nonce (32) || MGTK (16) || key_RSC (8) || key_expiration (4)
const ampeElementLen = 4 + NonceLen + NonceLen + MGTKLen + 8 + 4

type AMPEElement struct {
	SelectedPairwiseSuite SuiteSelector
	LocalNonce            [NonceLen]byte
	PeerNonce             [NonceLen]byte
	MGTK                  [MGTKLen]byte
	KeyRSC                [8]byte
	KeyExpiration         [4]byte
}

func (a AMPEElement) Encode() []byte {
	out := make([]byte, 0, ampeElementLen)
	out = append(out, a.SelectedPairwiseSuite[:]...)
	out = append(out, a.LocalNonce[:]...)
	out = append(out, a.PeerNonce[:]...)
	out = append(out, a.MGTK[:]...)
	out = append(out, a.KeyRSC[:]...)
	out = append(out, a.KeyExpiration[:]...)
	return out
}

// DecodeAMPEElement parses the AMPE IE (EID + len + payload), requiring
// EID == AMPE and a payload at least ampeElementLen bytes, per spec.md
// §4.3 step 5.
func DecodeAMPEElement(eid EID, payload []byte) (AMPEElement, error) {
	var a AMPEElement
	if eid != EIDAMPE {
		return a, fmt.Errorf("protocol: expected AMPE element, got %s", eid)
	}
	if len(payload) < ampeElementLen {
		return a, fmt.Errorf("protocol: AMPE element too short: %d < %d", len(payload), ampeElementLen)
	}
	off := 0
	copy(a.SelectedPairwiseSuite[:], payload[off:off+4])
	off += 4
	copy(a.LocalNonce[:], payload[off:off+NonceLen])
	off += NonceLen
	copy(a.PeerNonce[:], payload[off:off+NonceLen])
	off += NonceLen
	copy(a.MGTK[:], payload[off:off+MGTKLen])
	off += MGTKLen
	copy(a.KeyRSC[:], payload[off:off+8])
	off += 8
	copy(a.KeyExpiration[:], payload[off:off+4])
	return a, nil
}

// FarFutureExpiration is "all-ones" key_expiration, used under the
// static-MGTK non-goal (spec.md §4.3 step 1).
var FarFutureExpiration = [4]byte{0xff, 0xff, 0xff, 0xff}
