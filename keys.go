package meshmpm

import (
	"encoding/binary"

	"meshmpm/crypto"
	"meshmpm/protocol"
)

// DeriveAEK computes the AMPE Encryption Key from the PMK, spec.md §4.2:
//
//	AEK = SHA256-PRF(PMK, "AEK Derivation", suite || min(M,P) || max(M,P), 32)
//
// Grounded on mesh_rsn_derive_aek in original_source, which builds the
// same context octet string from the selected pairwise suite and the two
// peers' MAC addresses sorted so both ends compute identical context
// bytes regardless of who is "local" (spec.md §4.2 "role symmetry").
func DeriveAEK(pmk []byte, suite protocol.SuiteSelector, local, peer MAC) []byte {
	min, max := sortedMACs(local, peer)
	ctx := make([]byte, 0, len(suite)+6+6)
	ctx = append(ctx, suite[:]...)
	ctx = append(ctx, min[:]...)
	ctx = append(ctx, max[:]...)
	return crypto.SHA256PRF(pmk, "AEK Derivation", ctx, protocol.AEKLen)
}

// DeriveMTK computes the Mesh Temporal Key, spec.md §4.2:
//
//	MTK = SHA256-PRF(PMK, "Temporal Key Derivation",
//	        min(nonce)||max(nonce)||min(lid)||max(lid)||suite||min(MAC)||max(MAC), 16)
//
// Every component that could otherwise differ between the two peerings'
// independent computations is sorted the same way (nonces, link IDs,
// addresses), grounded on mesh_rsn_derive_mtk in original_source.
func DeriveMTK(pmk []byte, suite protocol.SuiteSelector, localNonce, peerNonce [32]byte, localLID, peerLID uint16, local, peer MAC) []byte {
	minNonce, maxNonce := sortedNonces(localNonce, peerNonce)
	minLID, maxLID := sortedUint16(localLID, peerLID)
	minMAC, maxMAC := sortedMACs(local, peer)

	ctx := make([]byte, 0, 32+32+2+2+len(suite)+6+6)
	ctx = append(ctx, minNonce[:]...)
	ctx = append(ctx, maxNonce[:]...)
	ctx = binary.BigEndian.AppendUint16(ctx, minLID)
	ctx = binary.BigEndian.AppendUint16(ctx, maxLID)
	ctx = append(ctx, suite[:]...)
	ctx = append(ctx, minMAC[:]...)
	ctx = append(ctx, maxMAC[:]...)

	return crypto.SHA256PRF(pmk, "Temporal Key Derivation", ctx, protocol.MTKLen)
}

// DerivePMKID computes the PMK identifier used to match a cached SAE
// result to a peer without re-running SAE, supplemented from
// mesh_rsn_get_pmkid in original_source (the spec's distillation omits
// PMKID caching; SPEC_FULL.md §Supplemented features reinstates it).
func DerivePMKID(pmk []byte, local, peer MAC) []byte {
	min, max := sortedMACs(local, peer)
	ctx := make([]byte, 0, 12)
	ctx = append(ctx, min[:]...)
	ctx = append(ctx, max[:]...)
	return crypto.SHA256PRF(pmk, "PMK Name", ctx, 16)
}

func sortedNonces(a, b [32]byte) (min, max [32]byte) {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return a, b
			}
			return b, a
		}
	}
	return a, b
}

func sortedUint16(a, b uint16) (min, max uint16) {
	if a < b {
		return a, b
	}
	return b, a
}
