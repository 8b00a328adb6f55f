package transporttest

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// DecodeAction wraps a raw self-protected action frame body in a minimal
// 802.11 management frame and decodes it back through gopacket/layers,
// giving integration tests a way to exercise the module against frames
// that have actually round-tripped through a Dot11 layer rather than
// being handed to the engine as already-split Go structs. Grounded on
// the decode pattern in the wmap sniffer's handshake handling (which
// reads EAPOL/Dot11 layers off a gopacket.Packet rather than parsing
// raw bytes by hand).
func DecodeAction(raw []byte, addr1, addr2, addr3 [6]byte) gopacket.Packet {
	dot11 := &layers.Dot11{
		Type:     layers.Dot11TypeMgmtAction,
		Proto:    0,
		Flags:    0,
		Address1: addr1[:],
		Address2: addr2[:],
		Address3: addr3[:],
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	payload := gopacket.Payload(raw)
	if err := gopacket.SerializeLayers(buf, opts, dot11, payload); err != nil {
		return nil
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeDot11, gopacket.Default)
}

// ActionBody extracts the frame body (everything after the Dot11 header)
// from a packet built by DecodeAction, the inverse operation a test uses
// to hand the round-tripped bytes back to Engine.DeliverAction.
func ActionBody(pkt gopacket.Packet) []byte {
	appLayer := pkt.ApplicationLayer()
	if appLayer == nil {
		return nil
	}
	return appLayer.Payload()
}
