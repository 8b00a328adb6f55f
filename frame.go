package meshmpm

import (
	"meshmpm/crypto"
	"meshmpm/protocol"
)

// aad builds the 3-component additional-authenticated-data vector spec.md
// §4.3 requires: the two peering MAC addresses (order depends on role,
// see below) plus the action frame bytes from the category field up to
// (but not including) the AMPE element itself. Grounded on
// mesh_rsn_get_skip_auth_header_len / mesh_rsn_protect_frame's AAD
// construction in original_source.
//
// The sender authenticates [local, peer, header]; the receiver, per
// spec.md §4.3 step 5's "AAD MAC order is swapped by convention",
// recomputes with [peer, local, header] so both sides bind the same pair
// of addresses regardless of who encrypted.
func aad(first, second MAC, header []byte) [][]byte {
	return [][]byte{first[:], second[:], header}
}

// ProtectFrame encrypts the AMPE element for transmission, spec.md §4.3
// steps 1-4: build the plaintext AMPE element, derive AAD from the
// frame's own header bytes (everything already written to builder before
// this call), AES-SIV encrypt with the peer's AEK, and append the result
// as the encrypted AMPE element's ciphertext bytes under EID_AMPE followed
// by an EID_MIC-tagged element carrying the SIV.
//
// Callers must have already written the category/action/peering-IE
// header to b before calling ProtectFrame, since that header is the
// third AAD component.
func ProtectFrame(b *protocol.Builder, aek []byte, local, peer MAC, elem protocol.AMPEElement) error {
	plaintext := elem.Encode()
	vector := aad(local, peer, b.Built())
	out, err := crypto.Encrypt(aek, plaintext, vector)
	if err != nil {
		return newErr(ClassCryptoAuthFail, err, "AES-SIV encrypt AMPE element for %s", peer)
	}
	// out = SIV (16 bytes) || ciphertext(len(plaintext)). spec.md §4.3 step 4
	// carries the SIV in the MIC element and the ciphertext in the AMPE
	// element, so that the AMPE element on the wire stays a fixed,
	// recognizable length.
	siv, ct := out[:16], out[16:]
	if err := b.IE(protocol.EIDAMPE, ct); err != nil {
		return err
	}
	return b.IE(protocol.EIDMIC, siv)
}

// ProcessAMPE decrypts and validates a received AMPE element, spec.md
// §4.3 step 5. header is the frame's bytes from the category field up to
// (not including) the AMPE element's own 2-byte EID/len header —
// identical in content to what the sender authenticated, just recomputed
// locally from the received frame.
//
// On success it returns the decoded element as carried in the frame. It
// does not check the element's PeerNonce; the caller does that with
// ValidatePeerNonce before copying the nonce and MGTK onto the Peer record.
func ProcessAMPE(aek []byte, local, peer MAC, header []byte, mic, ampeCiphertext []byte) (protocol.AMPEElement, error) {
	var zero protocol.AMPEElement
	vector := aad(peer, local, header)
	ciphertext := append(append([]byte{}, mic...), ampeCiphertext...)
	plaintext, err := crypto.Decrypt(aek, ciphertext, vector)
	if err != nil {
		return zero, newErr(ClassCryptoAuthFail, err, "AES-SIV decrypt AMPE element from %s", peer)
	}
	elem, err := decodeAMPEPlaintext(plaintext)
	if err != nil {
		return zero, newErr(ClassTransientFrame, err, "decode decrypted AMPE element from %s", peer)
	}
	return elem, nil
}

// decodeAMPEPlaintext parses the raw decrypted AMPE element payload
// (EID/len already stripped — this is the plaintext ProtectFrame
// encrypted, not a wire element).
func decodeAMPEPlaintext(b []byte) (protocol.AMPEElement, error) {
	return protocol.DecodeAMPEElement(protocol.EIDAMPE, b)
}

// ValidatePeerNonce enforces spec.md §4.3 step 5's nonce invariant: the
// peer_nonce carried in a received AMPE element must be either all-zero
// (first OPEN, peer hasn't seen ours yet) or equal to recorded, our own
// local nonce for this peering (the engine passes p.MyNonce). Any other
// value indicates a stale or replayed frame (spec.md §8 Scenario F);
// ValidatePeerNonce then returns false and the caller drops the frame.
func ValidatePeerNonce(recorded [32]byte, received [32]byte) bool {
	var zero [32]byte
	if received == zero {
		return true
	}
	return received == recorded
}

// BuildOpen writes a complete OPEN self-protected action frame: category,
// action field, capability info, supported rates / mesh ID / mesh config
// elements the caller supplies pre-built, the peering management IE, and
// finally (if elem is non-nil) a protected AMPE element. Grounded on
// mesh_mpm_send_plink_action(OPEN) in original_source.
func BuildOpen(cfg *Config, local, peer MAC, llid uint16, capInfo uint16, ies [][]byte, aek []byte, elem *protocol.AMPEElement) ([]byte, error) {
	b := protocol.NewBuilder(cfg.MaxFrameLen)
	if err := writeActionHeader(b, protocol.ActionOpen, capInfo); err != nil {
		return nil, err
	}
	for _, ie := range ies {
		if err := b.Bytes(ie); err != nil {
			return nil, err
		}
	}
	pm := protocol.PeeringMgmt{LLID: llid}
	if err := b.IE(protocol.EIDPeeringMgmt, pm.Encode()); err != nil {
		return nil, err
	}
	if elem != nil {
		if err := ProtectFrame(b, aek, local, peer, *elem); err != nil {
			return nil, err
		}
	}
	return b.Built(), nil
}

// BuildConfirm writes a CONFIRM frame, echoing the peer's link ID as
// PLID alongside our own LLID, per spec.md §4.5.
func BuildConfirm(cfg *Config, local, peer MAC, llid, plid uint16, aid uint16, ies [][]byte, aek []byte, elem *protocol.AMPEElement) ([]byte, error) {
	b := protocol.NewBuilder(cfg.MaxFrameLen)
	if err := writeActionHeader(b, protocol.ActionConfirm, 0); err != nil {
		return nil, err
	}
	if err := b.U16LE(aid); err != nil {
		return nil, err
	}
	for _, ie := range ies {
		if err := b.Bytes(ie); err != nil {
			return nil, err
		}
	}
	pm := protocol.PeeringMgmt{LLID: llid, PLID: plid, HasPLID: true}
	if err := b.IE(protocol.EIDPeeringMgmt, pm.Encode()); err != nil {
		return nil, err
	}
	if elem != nil {
		if err := ProtectFrame(b, aek, local, peer, *elem); err != nil {
			return nil, err
		}
	}
	return b.Built(), nil
}

// BuildClose writes a CLOSE frame carrying the given reason code, per
// spec.md §4.5. peerLID may be zero if this side never learned it; the
// PLID field is then sent as zero.
func BuildClose(cfg *Config, llid, peerLID uint16, reason protocol.ReasonCode) ([]byte, error) {
	b := protocol.NewBuilder(cfg.MaxFrameLen)
	if err := writeActionHeader(b, protocol.ActionClose, 0); err != nil {
		return nil, err
	}
	pm := protocol.PeeringMgmt{LLID: llid, PLID: peerLID, HasPLID: true, Reason: uint16(reason), HasReason: true}
	if err := b.IE(protocol.EIDPeeringMgmt, pm.Encode()); err != nil {
		return nil, err
	}
	return b.Built(), nil
}

func writeActionHeader(b *protocol.Builder, action protocol.ActionField, capInfo uint16) error {
	if err := b.Byte(byte(protocol.CategorySelfProtected)); err != nil {
		return err
	}
	if err := b.Byte(byte(action)); err != nil {
		return err
	}
	if action == protocol.ActionOpen {
		return b.U16LE(capInfo)
	}
	return nil
}
