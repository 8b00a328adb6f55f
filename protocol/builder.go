package protocol

import (
	"encoding/binary"
	"fmt"
)

// Builder accumulates a self-protected action frame. It replaces the
// teacher's wpabuf-style "alloc a fixed tailroom, Put bytes, hope it fits"
// idiom (mesh_mpm_send_plink_action / mesh_rsn_protect_frame in
// original_source) with a growth-checked writer, per spec.md §9's redesign
// note: overflow becomes a typed error, not an out-of-bounds write.
type Builder struct {
	buf []byte
	max int
}

// ErrFrameTooLarge is returned when a Builder write would exceed the
// configured maximum frame size.
type ErrFrameTooLarge struct {
	Attempted, Max int
}

func (e ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("protocol: frame would grow to %d bytes, max %d", e.Attempted, e.Max)
}

// NewBuilder returns a Builder capped at maxLen bytes (typically the
// driver's MTU for action frames).
func NewBuilder(maxLen int) *Builder {
	return &Builder{buf: make([]byte, 0, 256), max: maxLen}
}

func (b *Builder) grow(n int) error {
	if len(b.buf)+n > b.max {
		return ErrFrameTooLarge{Attempted: len(b.buf) + n, Max: b.max}
	}
	return nil
}

// Byte appends a single byte.
func (b *Builder) Byte(v byte) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.buf = append(b.buf, v)
	return nil
}

// Bytes appends raw bytes verbatim.
func (b *Builder) Bytes(v []byte) error {
	if err := b.grow(len(v)); err != nil {
		return err
	}
	b.buf = append(b.buf, v...)
	return nil
}

// U16 appends a big-endian uint16 (802.11 link IDs and reason codes are
// big-endian on the wire in this module's framing; field-internal
// multi-byte integers such as capability info remain little-endian per the
// 802.11 standard and are written with U16LE).
func (b *Builder) U16(v uint16) error {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return b.Bytes(tmp[:])
}

// U16LE appends a little-endian uint16.
func (b *Builder) U16LE(v uint16) error {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return b.Bytes(tmp[:])
}

// U32LE appends a little-endian uint32.
func (b *Builder) U32LE(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return b.Bytes(tmp[:])
}

// IE appends an information element: EID, 1-byte length, payload.
func (b *Builder) IE(eid EID, payload []byte) error {
	if len(payload) > 255 {
		return fmt.Errorf("protocol: IE payload %d exceeds 255 bytes", len(payload))
	}
	if err := b.Byte(byte(eid)); err != nil {
		return err
	}
	if err := b.Byte(byte(len(payload))); err != nil {
		return err
	}
	return b.Bytes(payload)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return len(b.buf) }

// Built returns the accumulated frame.
func (b *Builder) Built() []byte { return b.buf }

// Element is a single parsed information element: its EID, its payload,
// and the byte offset (within the frame) at which its 2-byte header
// begins. The offset is what the AMPE codec needs to compute AAD spans
// (spec.md §4.3).
type Element struct {
	EID    EID
	Data   []byte
	Offset int
}

// ParseElements walks a flat, non-nested run of EID/len/payload IEs
// starting at offset `start` in frame, stopping at the end of the slice.
// Malformed elements (truncated length) yield ErrTruncatedElement — a
// TransientFrameError per spec.md §7.
//
// This plays the role the spec treats as an external collaborator
// ("action-frame element parsing is delegated to an external parser" —
// spec.md §9): callers that need typed fields (supp_rates, mesh_id, the
// peering management IE, …) look up elements by EID from the returned
// slice rather than this function knowing about any specific IE's
// semantics.
func ParseElements(frame []byte, start int) ([]Element, error) {
	var elems []Element
	i := start
	for i < len(frame) {
		if i+2 > len(frame) {
			return nil, ErrTruncatedElement{Offset: i}
		}
		eid := EID(frame[i])
		l := int(frame[i+1])
		if i+2+l > len(frame) {
			return nil, ErrTruncatedElement{Offset: i}
		}
		elems = append(elems, Element{
			EID:    eid,
			Data:   frame[i+2 : i+2+l],
			Offset: i,
		})
		i += 2 + l
	}
	return elems, nil
}

// ErrTruncatedElement is a TransientFrameError (spec.md §7): the element
// at Offset claims a length that runs past the end of the frame.
type ErrTruncatedElement struct{ Offset int }

func (e ErrTruncatedElement) Error() string {
	return fmt.Sprintf("protocol: truncated information element at offset %d", e.Offset)
}

// Find returns the first element with the given EID, and whether it was
// present.
func Find(elems []Element, eid EID) (Element, bool) {
	for _, e := range elems {
		if e.EID == eid {
			return e, true
		}
	}
	return Element{}, false
}
