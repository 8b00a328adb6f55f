package meshmpm

import "time"

// timerKind distinguishes which of a peer's timers fired, so Engine can
// dispatch TIMEOUT "by which timer fired" (spec.md §4.5 "Events").
type timerKind int

const (
	timerRetry timerKind = iota
	timerConfirm
	timerHolding
	timerAuth
)

func (k timerKind) String() string {
	switch k {
	case timerRetry:
		return "retry"
	case timerConfirm:
		return "confirm"
	case timerHolding:
		return "holding"
	case timerAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// timerFire is posted on Engine.timerCh when a peer timer expires.
type timerFire struct {
	peer *Peer
	kind timerKind
	gen  uint64
}

// peerTimers holds the live *time.Timer handles for one peer plus a
// generation counter. Every armed timer's callback captures the
// generation current at arm time; Engine only acts on a fire if the
// peer's generation still matches, so a timer that outlives its peer's
// removal (or a state transition that rearms it) is inert rather than
// racing the FSM — this is the generation-tagging half of spec.md §9's
// "memory-safe timer cancellation" redesign note. Since removal in Go
// does not free memory out from under a stale closure the way the
// original C implementation's srv_add_timeout/eloop_cancel_timeout pair
// must guard against, generation tagging here is about correctness of
// FSM transitions, not memory safety — but the invariant in spec.md §8
// ("no timer callback observes a freed record") is preserved the same
// way: a fire with a stale generation is dropped before it touches
// anything.
type peerTimers struct {
	gen     uint64
	active  map[timerKind]*time.Timer
}

func (t *peerTimers) ensure() {
	if t.active == nil {
		t.active = make(map[timerKind]*time.Timer)
	}
}

// arm (re)starts the timer of the given kind for peer p, cancelling any
// existing timer of that kind first. On fire it posts a timerFire to ch.
func (p *Peer) arm(kind timerKind, d time.Duration, ch chan<- timerFire) {
	p.timers.ensure()
	if existing, ok := p.timers.active[kind]; ok {
		existing.Stop()
	}
	gen := p.timers.gen
	p.timers.active[kind] = time.AfterFunc(d, func() {
		ch <- timerFire{peer: p, kind: kind, gen: gen}
	})
}

// cancel stops the timer of the given kind, if armed.
func (p *Peer) cancel(kind timerKind) {
	p.timers.ensure()
	if existing, ok := p.timers.active[kind]; ok {
		existing.Stop()
		delete(p.timers.active, kind)
	}
}

// cancelAll stops every armed timer for p and bumps its generation so
// any already-fired-but-not-yet-processed timerFire values become stale.
// Whoever removes a peer from the table must call this first (spec.md §5,
// see Table.Remove); Engine calls it on every BLOCKED transition (spec.md
// §4.4 on_timer).
func (p *Peer) cancelAll() {
	p.timers.ensure()
	for k, t := range p.timers.active {
		t.Stop()
		delete(p.timers.active, k)
	}
	p.timers.gen++
}

// valid reports whether a timerFire's captured generation still matches
// the peer's current generation, i.e. whether the firing timer is still
// the one in effect.
func (f timerFire) valid() bool {
	return f.peer.timers.gen == f.gen
}
