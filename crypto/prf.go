// Package crypto adapts the primitive operations the mesh peering core
// needs from a cryptography library into the small, pure set the rest of
// the module consumes: a PRF for key derivation, AES-SIV for AMPE framing,
// and a source of randomness. Nothing here negotiates a ciphersuite — the
// mesh security stack is fixed (SHA-256 PRF, AES-SIV, SAE over the
// configured groups) so, unlike the teacher's cipherSuite, there is no
// per-session transform table to build.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// prf is a single HMAC-SHA256 application; sha256PRF below iterates it in
// counter mode the way the teacher's Tkm.prfplus expands SKEYSEED into
// KEYMAT, except the "data" half of each round is label||context instead of
// a running previous-round accumulator, matching the AEK/MTK construction
// in spec.md §4.2.
func prf(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SHA256PRF derives outLen bytes from key, label and context using the
// counter-mode construction:
//
//	P = prf(key, label || 0x00 || context || counter) || prf(key, label || 0x00 || context || counter+1) || ...
//
// truncated to outLen bytes. counter starts at 1 and is a single byte, as
// in the teacher's PRF+ (RFC 7296 section 2.13), which this mirrors.
func SHA256PRF(key []byte, label string, context []byte, outLen int) []byte {
	var out []byte
	data := make([]byte, 0, len(label)+1+len(context)+1)
	data = append(data, []byte(label)...)
	data = append(data, 0x00)
	data = append(data, context...)
	round := byte(1)
	for len(out) < outLen {
		in := append(append([]byte{}, data...), round)
		out = append(out, prf(key, in)...)
		round++
	}
	return out[:outLen]
}
