package meshmpm

import "meshmpm/crypto"

// RSNContext is the mesh-wide security context, spec.md §3 "Mesh RSN
// context": the handful of fields shared by every peer's AMPE/SAE
// processing rather than owned by any one Peer record. Grounded on
// original_source's struct mesh_rsn_data (mesh_rsn.h).
type RSNContext struct {
	LocalAddr MAC

	// MGTK is the locally generated mesh group temporal key, written once
	// at startup and handed out to every peer that reaches ESTAB (spec.md
	// §3: "write-once after initial generation").
	MGTK [16]byte

	// SAEGroups is the configured, ordered list of groups new SAE attempts
	// walk (spec.md §4.4); groupCursor is the index of the group most
	// recently tried, shared across peers the way mesh_rsn_data.sae_group
	// is a single field on the RSN context rather than per-peer.
	SAEGroups   []int
	groupCursor int

	// SAEToken is the anti-clogging token most recently echoed by a
	// not-yet-peered STA's SAE commit rejection, supplemented from
	// original_source's mesh_rsn_auth_sae_sta's reliance on a token
	// field threaded through wpa_supplicant's SAE implementation (spec.md
	// doesn't name this field explicitly but references "anti-clogging"
	// in the SAE driver's Non-goals carve-out).
	SAEToken []byte
}

// NewRSNContext builds a context with a freshly generated MGTK, per
// spec.md §3's "generated once at startup".
func NewRSNContext(local MAC, groups []int) (*RSNContext, error) {
	mgtk, err := crypto.RandBytes(16)
	if err != nil {
		return nil, newErr(ClassDriverFailure, err, "generate MGTK")
	}
	ctx := &RSNContext{LocalAddr: local, SAEGroups: groups}
	copy(ctx.MGTK[:], mgtk)
	return ctx, nil
}

// CurrentSAEGroup returns the group the cursor currently points at
// without advancing it, grounded on mesh_rsn_sae_group in
// original_source: the cursor is a field on the RSN context, not on any
// one peer, so it is persistent across attempts (spec.md §4.4.1, "so we
// do not loop forever") — a fresh Start against a new peer, or a retry
// against the same one, resumes from whichever group the last fallback
// left it on rather than restarting the walk from the first configured
// group every time.
func (r *RSNContext) CurrentSAEGroup() (group int, ok bool) {
	if r.groupCursor < 0 || r.groupCursor >= len(r.SAEGroups) {
		return 0, false
	}
	return r.SAEGroups[r.groupCursor], true
}

// NextSAEGroup advances the cursor to the next configured group and
// returns it, used on a GROUP_NOT_SUPPORTED-style rejection; it never
// wraps past the end of the configured list (spec.md §4.4 "SAE group
// fallback").
func (r *RSNContext) NextSAEGroup() (group int, ok bool) {
	r.groupCursor++
	return r.CurrentSAEGroup()
}

// ResetSAEGroupCursor restarts group selection from the first configured
// group. Exposed for callers that need an explicit restart (e.g. an
// operator-triggered re-peering of an otherwise exhausted context); the
// ordinary SAE attempt path no longer calls this implicitly.
func (r *RSNContext) ResetSAEGroupCursor() {
	r.groupCursor = 0
}

// SetSAEGroups replaces the configured SAE group list, e.g. on a
// configuration reload, and revalidates the cursor against it. Grounded
// on mesh_rsn_sae_group's index_within_array bounds check in
// original_source: a cursor left pointing past the end of a shrunk list
// is reset to the first group rather than silently treated as exhausted
// forever.
func (r *RSNContext) SetSAEGroups(groups []int) {
	r.SAEGroups = groups
	if r.groupCursor < 0 || r.groupCursor >= len(groups) {
		r.groupCursor = 0
	}
}

// newNonce returns a fresh 32-byte local nonce (spec.md §3's local_nonce
// field), generated the same way MGTK is.
func newNonce() ([32]byte, error) {
	var n [32]byte
	b, err := crypto.RandBytes(32)
	if err != nil {
		return n, newErr(ClassDriverFailure, err, "generate nonce")
	}
	copy(n[:], b)
	return n, nil
}
