// Package transporttest provides a loopback UDP harness and a Dot11
// action-frame decode helper used by integration tests, kept out of the
// core codec path the way the teacher keeps conn.go's Listen/pconnV4
// machinery separate from the wire-format code in protocol.go.
package transporttest

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
)

// sock wraps an ipv4.PacketConn the same way the teacher's pconnV4 wraps
// one in conn.go: a named type over the library's PacketConn so
// LocalAddr/Close can be reached through its embedded net.PacketConn
// field without re-deriving the dual-stack Listen() machinery this
// module doesn't need.
type sock ipv4.PacketConn

func (s *sock) raw() *ipv4.PacketConn  { return (*ipv4.PacketConn)(s) }
func (s *sock) LocalAddr() net.Addr    { return s.Conn.LocalAddr() }
func (s *sock) Close() error           { return s.Conn.Close() }

// Loopback is a UDP packet-conn pair wired to each other on 127.0.0.1,
// standing in for the two ends of a wireless link in tests that want a
// real (if fake-medium) send/receive round trip instead of calling
// Engine methods directly.
type Loopback struct {
	A, B *sock
}

// NewLoopback opens two UDP sockets on 127.0.0.1.
func NewLoopback() (*Loopback, error) {
	a, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "listen A")
	}
	b, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "listen B")
	}
	return &Loopback{
		A: (*sock)(ipv4.NewPacketConn(a)),
		B: (*sock)(ipv4.NewPacketConn(b)),
	}, nil
}

func (l *Loopback) Close() {
	l.A.Close()
	l.B.Close()
}

// SendAtoB writes a frame from A to B.
func (l *Loopback) SendAtoB(frame []byte) error {
	_, err := l.A.raw().WriteTo(frame, nil, l.B.LocalAddr())
	return err
}

// SendBtoA writes a frame from B to A.
func (l *Loopback) SendBtoA(frame []byte) error {
	_, err := l.B.raw().WriteTo(frame, nil, l.A.LocalAddr())
	return err
}

// Read reads one datagram off s, blocking until one arrives.
func (s *sock) Read() ([]byte, error) {
	buf := make([]byte, 2304)
	n, _, _, err := s.raw().ReadFrom(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
