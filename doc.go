// Package meshmpm implements the IEEE 802.11s Mesh Peering Management
// (MPM) core, its Authenticated Mesh Peering Exchange (AMPE) framing layer,
// the AEK/MTK key schedule, and the SAE authenticator driver used to
// bootstrap a peer's PMK. It consumes an abstract driver for frame
// transmission and key installation (Driver), and an abstract SAE engine
// for the password-authenticated commit/confirm exchange (SAEEngine);
// neither the radio path nor the SAE primitive math live in this module.
//
// The layout mirrors the teacher IKE implementation this was built from:
// one root package holding the session-level orchestration (peer records,
// the peering FSM, the SAE driver, the key schedule, the event loop), and
// two narrow subpackages, protocol (wire constants and the frame
// builder/parser) and crypto (AES-SIV and the PRF), that the root package
// consumes.
package meshmpm
