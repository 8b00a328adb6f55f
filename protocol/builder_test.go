package protocol

import (
	"bytes"
	"testing"
)

func TestBuilderIERoundTrip(t *testing.T) {
	b := NewBuilder(64)
	if err := b.Byte(byte(CategorySelfProtected)); err != nil {
		t.Fatal(err)
	}
	if err := b.IE(EIDMeshID, []byte("mesh")); err != nil {
		t.Fatal(err)
	}
	if err := b.IE(EIDMeshConfig, bytes.Repeat([]byte{0x01}, 7)); err != nil {
		t.Fatal(err)
	}

	elems, err := ParseElements(b.Built(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(elems) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elems))
	}
	meshID, ok := Find(elems, EIDMeshID)
	if !ok || string(meshID.Data) != "mesh" {
		t.Fatalf("mesh ID element mismatch: %+v", meshID)
	}
}

func TestBuilderOverflow(t *testing.T) {
	b := NewBuilder(4)
	if err := b.Bytes([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := b.Byte(5); err == nil {
		t.Fatal("expected overflow error")
	} else if _, ok := err.(ErrFrameTooLarge); !ok {
		t.Fatalf("expected ErrFrameTooLarge, got %T", err)
	}
}

func TestParseElementsTruncated(t *testing.T) {
	frame := []byte{byte(EIDMeshID), 5, 1, 2} // claims 5 bytes, only 2 present
	if _, err := ParseElements(frame, 0); err == nil {
		t.Fatal("expected truncated element error")
	}
}

func TestPeeringMgmtVariants(t *testing.T) {
	open := PeeringMgmt{LLID: 0x0001}
	decoded, err := DecodePeeringMgmt(open.Encode())
	if err != nil || decoded.LLID != 0x0001 || decoded.HasPLID {
		t.Fatalf("open round trip mismatch: %+v, err=%v", decoded, err)
	}

	confirm := PeeringMgmt{LLID: 0x0001, PLID: 0x0002, HasPLID: true}
	decoded, err = DecodePeeringMgmt(confirm.Encode())
	if err != nil || !decoded.HasPLID || decoded.PLID != 0x0002 || decoded.HasReason {
		t.Fatalf("confirm round trip mismatch: %+v, err=%v", decoded, err)
	}

	clo := PeeringMgmt{LLID: 1, PLID: 2, HasPLID: true, Reason: uint16(ReasonCloseRcvd), HasReason: true}
	decoded, err = DecodePeeringMgmt(clo.Encode())
	if err != nil || !decoded.HasReason || decoded.Reason != uint16(ReasonCloseRcvd) {
		t.Fatalf("close round trip mismatch: %+v, err=%v", decoded, err)
	}
}

func TestAMPEElementRoundTrip(t *testing.T) {
	var elem AMPEElement
	elem.SelectedPairwiseSuite = SuiteCCMP
	for i := range elem.LocalNonce {
		elem.LocalNonce[i] = byte(i)
	}
	elem.KeyExpiration = FarFutureExpiration

	decoded, err := DecodeAMPEElement(EIDAMPE, elem.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SelectedPairwiseSuite != SuiteCCMP || decoded.LocalNonce != elem.LocalNonce {
		t.Fatalf("AMPE element round trip mismatch: %+v", decoded)
	}
}
