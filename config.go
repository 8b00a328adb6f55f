package meshmpm

import "time"

// Config is analogous to the teacher's Config/DefaultConfig (config.go):
// a single struct holding every tunable the core needs, with a defaulted
// constructor so callers only override what they care about.
type Config struct {
	// Timer durations, spec.md §4.5 "Timers".
	RetryTimeout     time.Duration
	ConfirmTimeout   time.Duration
	HoldingTimeout   time.Duration
	MaxRetries       int // retries before OPEN_SENT/OPEN_RCVD -> HOLDING

	// SAE driver policy, spec.md §4.4.
	AuthTimeout time.Duration // MESH_AUTH_TIMEOUT
	AuthRetries int           // MESH_AUTH_RETRY

	// SAEGroups is the ordered, -1-terminated-in-spirit list of SAE
	// groups to try, represented as a plain bounded slice per spec.md
	// §9's redesign note (no sentinel value needed in Go).
	SAEGroups []int

	// MaxPeers caps the peer table (spec.md §3's "only while the peer
	// table is below its configured capacity").
	MaxPeers int

	// MaxSuppRates caps the merged supported-rates slice copied onto a
	// peer record (spec.md §3 "supp_rates[] ... ≤ platform cap").
	MaxSuppRates int

	// MaxFrameLen bounds outbound self-protected action frames
	// (protocol.Builder's tailroom check).
	MaxFrameLen int
}

// DefaultConfig returns the configuration used by the scenarios in
// spec.md §8 unless a test overrides a field.
func DefaultConfig() *Config {
	return &Config{
		RetryTimeout:   1 * time.Second,
		ConfirmTimeout: 1 * time.Second,
		HoldingTimeout: 2 * time.Second,
		MaxRetries:     4,

		AuthTimeout: 10 * time.Second,
		AuthRetries: 3,

		SAEGroups: []int{19, 20, 21},

		MaxPeers:     32,
		MaxSuppRates: 32,
		MaxFrameLen:  2304, // 802.11 aMPDUMaxLength-ish ceiling for a single MMPDU
	}
}
