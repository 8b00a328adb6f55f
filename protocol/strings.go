package protocol

// reasonNames mirrors the teacher's protocol/protocol_strings.go map-based
// Stringer pattern (a package-level map plus a short String() method)
// rather than a generated stringer, since this module defines far fewer
// enumerants than IKEv2's transform registry did.
var reasonNames = map[ReasonCode]string{
	ReasonNone:            "REASON_NONE",
	ReasonPolicyViolation: "MESH_CAPABILITY_POLICY_VIOLATION",
	ReasonCloseRcvd:       "MESH_CLOSE_RCVD",
	ReasonMaxPeers:        "MESH_MAX_PEERS",
	ReasonConfirmTimeout:  "MESH_CONFIRM_TIMEOUT",
}

func (r ReasonCode) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "REASON_UNKNOWN"
}

var eidNames = map[EID]string{
	EIDSuppRates:     "SuppRates",
	EIDExtSuppRates:  "ExtSuppRates",
	EIDMeshID:        "MeshID",
	EIDMeshConfig:    "MeshConfig",
	EIDPeeringMgmt:   "PeeringMgmt",
	EIDHTCapabilites: "HTCapabilities",
	EIDHTOperation:   "HTOperation",
	EIDAMPE:          "AMPE",
	EIDMIC:           "MIC",
}

func (e EID) String() string {
	if s, ok := eidNames[e]; ok {
		return s
	}
	return "EID_UNKNOWN"
}
