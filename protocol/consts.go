// Package protocol holds the 802.11s self-protected action frame and AUTH
// frame wire constants, element IDs, and the frame builder/parser used by
// the mesh peering core. It is the analogue of the teacher's nested
// protocol package: enum-like typed constants with a String() method per
// family (protocol/protocol_strings.go), plus the wire codec that the
// teacher keeps at its module root (protocol.go) — both land here since,
// unlike IKEv2, there is no separate SA-transform negotiation subproblem
// to keep apart from the raw frame layout.
package protocol

// Category is the 802.11 management action-frame category byte.
type Category uint8

const (
	CategorySelfProtected Category = 15
)

// ActionField is the self-protected action frame subtype (the second byte,
// right after Category), per spec.md §6.
type ActionField uint8

const (
	ActionOpen    ActionField = 1
	ActionConfirm ActionField = 2
	ActionClose   ActionField = 3
)

func (a ActionField) String() string {
	switch a {
	case ActionOpen:
		return "OPEN"
	case ActionConfirm:
		return "CONFIRM"
	case ActionClose:
		return "CLOSE"
	default:
		return "UNKNOWN_ACTION"
	}
}

// EID is an information element ID carried in a self-protected action
// frame, per spec.md §6's ordered IE list.
type EID uint8

const (
	EIDSuppRates     EID = 1
	EIDExtSuppRates  EID = 50
	EIDMeshID        EID = 114
	EIDMeshConfig    EID = 113
	EIDPeeringMgmt   EID = 117
	EIDHTCapabilites EID = 45
	EIDHTOperation   EID = 61
	EIDAMPE          EID = 139
	EIDMIC           EID = 140
)

// AuthAlg is the 802.11 authentication algorithm field carried in AUTH
// frames.
type AuthAlg uint16

const (
	AuthAlgSAE AuthAlg = 3
)

// SAETransaction is the auth_transaction field of an SAE AUTH frame.
type SAETransaction uint16

const (
	SAETransCommit  SAETransaction = 1
	SAETransConfirm SAETransaction = 2
)

// StatusCode mirrors the 802.11 AUTH frame status_code field.
type StatusCode uint16

const (
	StatusSuccess          StatusCode = 0
	StatusUnsupportedGroup StatusCode = 77 // finite cyclic group not supported, spec.md §4.4 SAE group fallback
)

// ReasonCode is the close reason code carried in the Mesh Peering
// Management IE of a CLOSE frame, per spec.md §4.5 / §9.
type ReasonCode uint16

const (
	ReasonNone             ReasonCode = 0
	ReasonPolicyViolation  ReasonCode = 47 // MESH_CAPABILITY_POLICY_VIOLATION
	ReasonCloseRcvd        ReasonCode = 52 // MESH_CLOSE_RCVD
	ReasonMaxPeers         ReasonCode = 51 // MESH_MAX_PEERS
	ReasonConfirmTimeout   ReasonCode = 53 // MESH_CONFIRM_TIMEOUT
)

// SuiteSelector is a 4-byte cipher/AKM suite selector, OUI || suite type,
// as used both in AEK/MTK context construction (spec.md §4.2) and in the
// AMPE element's selected_pairwise_suite field (spec.md §4.3).
type SuiteSelector [4]byte

// SuiteSAE is the AKM suite selector used throughout the key schedule
// context strings ("SAE" in spec.md §4.2's context construction).
var SuiteSAE = SuiteSelector{0x00, 0x0F, 0xAC, 8}

// SuiteCCMP is the pairwise cipher suite selector placed in the AMPE
// element's selected_pairwise_suite field.
var SuiteCCMP = SuiteSelector{0x00, 0x0F, 0xAC, 4}

const (
	// AEKLen is AEK_LEN from spec.md §3/§4.2: 32 bytes, split by AES-SIV
	// into a 16-byte CMAC key and a 16-byte CTR key (AES-128-SIV).
	AEKLen   = 32
	MTKLen   = 16 // MTK_LEN, bytes (pairwise temporal key material, CCMP-sized)
	MGTKLen  = 16
	NonceLen = 32
)
