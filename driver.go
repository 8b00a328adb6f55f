package meshmpm

import "meshmpm/protocol"

// StaFlag is one of the driver sta_add flags bitmask values, spec.md §6.
type StaFlag uint32

const (
	StaFlagWMM        StaFlag = 1 << 0
	StaFlagAuthorized StaFlag = 1 << 1
)

// StaAddParams mirrors the driver's hostapd_sta_add_params (spec.md §6):
// the fields the core pushes down when it creates or updates a station
// entry.
type StaAddParams struct {
	Addr           MAC
	SuppRates      []byte
	PlinkState     PlinkState
	AID            uint16
	ListenInterval uint16
	Flags          StaFlag
	// Set mirrors the original's params.set=1: true means "update an
	// existing entry" rather than insert a new one (spec.md §6).
	Set bool
}

// KeyAlg identifies which cipher a SetKey call installs.
type KeyAlg int

const (
	KeyAlgCCMP KeyAlg = iota
	KeyAlgIGTK
)

// Driver is the abstract collaborator spec.md §6 calls "what the core
// calls out to": frame transmission and key/station installation. The
// actual radio path, scanning, and hardware key installation are
// explicitly out of scope (spec.md §1) — this module only needs the
// narrow synchronous contract below, modeled on the teacher's Conn
// interface (conn.go) the same way: a small set of methods the session
// layer calls without knowing or caring how they are backed.
type Driver interface {
	// SendAction transmits a self-protected action frame. freq is the
	// channel frequency to transmit on (0 = current channel).
	SendAction(freq int, dst, src, bssid MAC, frame []byte) error

	// SendMLME transmits a raw management frame (used for AUTH frames
	// carrying SAE payloads). noAck requests no-ack transmission.
	SendMLME(frame []byte, noAck bool) error

	// StaAdd creates or (params.Set) updates a station entry.
	StaAdd(params StaAddParams) error

	// SetKey installs a pairwise key (addr non-nil) or a group key
	// (addr nil, per spec.md §6) at the given key index.
	SetKey(alg KeyAlg, addr *MAC, idx int, isTx bool, seq [6]byte, key []byte) error
}

// AuthFrame is what arrives through Driver's "events delivered in" path
// for AUTH frames (spec.md §6: mgmt_rx), already split out from the raw
// 802.11 header by the caller.
type AuthFrame struct {
	Src, Dst    MAC
	Alg         protocol.AuthAlg
	Transaction protocol.SAETransaction
	Status      protocol.StatusCode
	Payload     []byte
}

// ActionFrame is what arrives through Driver's action_rx path (spec.md
// §6). Data starts at the category byte (spec.md §4.3's "cat" pointer,
// the first byte of the AAD header span) so the AMPE codec can recompute
// the same header bytes the sender authenticated.
type ActionFrame struct {
	Src, Bssid MAC
	Category   protocol.Category
	Data       []byte
}
