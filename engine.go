package meshmpm

import (
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"meshmpm/protocol"
)

// Engine is the single-threaded event loop that owns the peer table and
// drives the MPM FSM, the AMPE codec, and the SAE driver, spec.md §5:
// "all state transitions happen from three event sources: driver-
// delivered frames, expiring timers, locally invoked API calls." It plays
// the role the teacher's Session.Run plays for an IKE SA, generalized
// from one peering to the whole table (spec.md §3's peer table is engine-
// owned, not per-peer).
type Engine struct {
	cfg    *Config
	local  MAC
	driver Driver
	rsn    *RSNContext
	sae    *SAEDriver
	table  *Table
	logger log.Logger

	timerCh chan timerFire
	authCh  chan AuthFrame
	actCh   chan ActionFrame
	apiCh   chan func()
	done    chan struct{}

	lidCursor uint16
}

// NewEngine wires an Engine. saeFactory may be nil, whatever cfg.SAEGroups
// holds: the engine then runs without an SAE driver (RSN fully disabled is
// out of scope per spec.md §6, but the no-RSN *frame path* used by
// Scenario A still needs to run without ever touching SAE).
func NewEngine(cfg *Config, local MAC, driver Driver, rsn *RSNContext, saeFactory SAEEngineFactory, logger log.Logger) *Engine {
	e := &Engine{
		cfg:     cfg,
		local:   local,
		driver:  driver,
		rsn:     rsn,
		table:   newTable(cfg.MaxPeers),
		logger:  logger,
		timerCh: make(chan timerFire, 64),
		authCh:  make(chan AuthFrame, 16),
		actCh:   make(chan ActionFrame, 16),
		apiCh:   make(chan func(), 16),
		done:    make(chan struct{}),
	}
	if saeFactory != nil {
		e.sae = NewSAEDriver(rsn, saeFactory, driver, cfg, e.timerCh)
	}
	return e
}

// Run is the cooperative event loop, spec.md §5: no transition preempts
// another, and a timer callback that races an in-flight event is simply
// serialized behind it by the channel.
func (e *Engine) Run() {
	for {
		select {
		case f := <-e.timerCh:
			e.handleTimerFire(f)
		case af := <-e.authCh:
			e.handleAuthFrame(af)
		case act := <-e.actCh:
			e.handleActionFrame(act)
		case fn := <-e.apiCh:
			fn()
		case <-e.done:
			return
		}
	}
}

// Stop terminates Run's loop.
func (e *Engine) Stop() { close(e.done) }

// DeliverAuth enqueues an inbound AUTH frame (spec.md §6 mgmt_rx).
func (e *Engine) DeliverAuth(f AuthFrame) { e.authCh <- f }

// DeliverAction enqueues an inbound self-protected action frame (spec.md
// §6 action_rx).
func (e *Engine) DeliverAction(f ActionFrame) { e.actCh <- f }

// call runs fn on the event loop goroutine and blocks until it has run,
// giving local API calls (spec.md §5's third event source) the same
// serialization guarantee as frame and timer delivery.
func (e *Engine) call(fn func()) {
	done := make(chan struct{})
	e.apiCh <- func() { fn(); close(done) }
	<-done
}

// Discover is the "beacon-equivalent call" of spec.md §8 Scenario A: it
// creates a peer record if absent and registers it with the driver in
// LISTEN, flags WMM|AUTHORIZED, mirroring wpa_mesh_new_mesh_peer's
// sta_add in original_source.
func (e *Engine) Discover(addr MAC, suppRates []byte) (p *Peer, err error) {
	e.call(func() {
		p, err = e.table.Create(addr)
		if err != nil {
			return
		}
		p.SuppRates = mergeSuppRates(p.SuppRates, suppRates)
		if len(p.SuppRates) > e.cfg.MaxSuppRates {
			p.SuppRates = p.SuppRates[:e.cfg.MaxSuppRates]
		}
		err = e.driver.StaAdd(StaAddParams{
			Addr:       addr,
			SuppRates:  p.SuppRates,
			PlinkState: p.PlinkState,
			Flags:      StaFlagWMM | StaFlagAuthorized,
		})
		if err != nil {
			err = errors.Wrap(err, "sta_add on discover")
		}
	})
	return p, err
}

// mergeSuppRates is copy_supp_rates from original_source: the union of
// the rates already on the record and the newly observed set, not a
// straight overwrite, so a later, shorter advertisement never drops rates
// a peer previously proved it supports (SPEC_FULL.md supplemented
// feature).
func mergeSuppRates(existing, incoming []byte) []byte {
	seen := make(map[byte]bool, len(existing)+len(incoming))
	out := make([]byte, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range incoming {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StartPeering begins authentication (if configured) toward addr,
// spec.md §4.4 "start(peer)". If no SAE driver is wired (RSN not
// configured), it authorizes the peer for MPM directly, matching
// Scenario A's no-RSN path.
func (e *Engine) StartPeering(addr MAC) error {
	var outErr error
	e.call(func() {
		p, ok := e.table.Get(addr)
		if !ok {
			outErr = newErr(ClassResourceExhaustion, nil, "unknown peer %s", addr)
			return
		}
		if e.sae == nil {
			e.openLocal(p)
			return
		}
		if err := e.sae.Start(p); err != nil {
			outErr = err
			level.Warn(e.logger).Log("msg", "SAE start failed", "peer", addr, "err", err)
		}
	})
	return outErr
}

// openLocal sends our own OPEN and transitions LISTEN -> OPEN_SENT,
// mirroring mesh_mpm_plink_open in original_source: the initiating side
// does not wait for an inbound OPN_ACPT event to start since it has none
// to react to yet.
func (e *Engine) openLocal(p *Peer) {
	if p.PlinkState != PlinkListen {
		return
	}
	p.MyLID = e.nextLID()
	p.PlinkState = PlinkOpenSent
	e.commitPlinkState(p)
	e.transmitOpen(p)
	p.arm(timerRetry, e.cfg.RetryTimeout, e.timerCh)
}

// commitPlinkState pushes a plink_state-only sta_add update to the
// driver, grounded on wpa_mesh_set_plink_state's second, set=1 sta_add
// call in original_source: the initial sta_add made at Discover only
// ever inserts the station with whatever state it had at that moment, so
// every later transition needs its own explicit update for the driver's
// station table to track plink_state.
func (e *Engine) commitPlinkState(p *Peer) {
	err := e.driver.StaAdd(StaAddParams{
		Addr:       p.Addr,
		PlinkState: p.PlinkState,
		Set:        true,
	})
	if err != nil {
		level.Warn(e.logger).Log("msg", "sta_add plink_state update failed", "peer", p.Addr, "state", p.PlinkState, "err", err)
	}
}

// nextLID hands out a nonzero 16-bit local link identifier, scoped to
// this Engine (one per interface, same as original_source's per-interface
// lid counter) rather than shared process-wide, and only ever called from
// the single-threaded event loop goroutine so it needs no locking of its
// own. It skips 0 on wraparound since every caller treats MyLID==0 as
// "not yet assigned".
func (e *Engine) nextLID() uint16 {
	e.lidCursor++
	if e.lidCursor == 0 {
		e.lidCursor = 1
	}
	return e.lidCursor
}

// handleAuthFrame dispatches a received AUTH frame to the SAE driver and,
// on SAE completing ACCEPTED, authorizes the peer for MPM peering
// (spec.md §4.4 on_accepted -> "authorize_peer").
func (e *Engine) handleAuthFrame(f AuthFrame) {
	if e.sae == nil {
		return
	}
	p, ok := e.table.Get(f.Src)
	if !ok {
		return
	}
	var err error
	switch f.Transaction {
	case protocol.SAETransCommit:
		err = e.sae.OnCommit(p, f.Status, f.Payload)
	case protocol.SAETransConfirm:
		err = e.sae.OnConfirm(p, f.Status, f.Payload)
		if err == nil && p.SAEAccepted() {
			e.installAEK(p)
			e.openLocal(p)
		}
	}
	if err != nil {
		level.Warn(e.logger).Log("msg", "SAE processing failed", "peer", f.Src, "err", err)
	}
}

// handleTimerFire drops stale fires (spec.md §8 invariant 6) and
// otherwise dispatches to either the SAE driver's auth timer policy or
// the FSM's retry/confirm/holding policy.
func (e *Engine) handleTimerFire(f timerFire) {
	if !f.valid() {
		return
	}
	p := f.peer
	if f.kind == timerAuth {
		if e.sae == nil {
			return
		}
		if err := e.sae.OnTimer(p); err != nil {
			p.PlinkState = PlinkBlocked
			p.cancelAll()
			e.commitPlinkState(p)
			level.Warn(e.logger).Log("msg", "SAE authentication blocked peer", "peer", p.Addr, "err", err)
		}
		return
	}
	oldState := p.PlinkState
	actions := ApplyTimeout(p, f.kind, e.cfg)
	e.perform(p, actions)
	if p.PlinkState != oldState {
		e.commitPlinkState(p)
	}
}

// handleActionFrame parses, decrypts (if protected), and derives/applies
// the FSM event for one self-protected action frame, spec.md §4.5.2 and
// §4.3's process_ampe.
func (e *Engine) handleActionFrame(af ActionFrame) {
	if len(af.Data) < 2 {
		return
	}
	action := protocol.ActionField(af.Data[1])
	headerEnd := 2 // category (1) + action field (1)
	switch action {
	case protocol.ActionOpen, protocol.ActionConfirm:
		headerEnd = 4 // + capability info (2) or AID (2)
	}
	if len(af.Data) < headerEnd {
		return
	}
	elems, err := protocol.ParseElements(af.Data, headerEnd)
	if err != nil {
		level.Debug(e.logger).Log("msg", "dropping malformed action frame", "peer", af.Src, "err", err)
		return
	}
	pmIE, ok := protocol.Find(elems, protocol.EIDPeeringMgmt)
	if !ok {
		return
	}
	pm, err := protocol.DecodePeeringMgmt(pmIE.Data)
	if err != nil {
		level.Debug(e.logger).Log("msg", "dropping malformed peering mgmt IE", "peer", af.Src, "err", err)
		return
	}

	p, ok := e.table.Get(af.Src)
	if !ok {
		p, err = e.table.Create(af.Src)
		if err != nil {
			return // ResourceExhaustion: refuse to add the peer (spec.md §7)
		}
	}

	var ampeElem *protocol.AMPEElement
	if aekElem, hasAMPE := protocol.Find(elems, protocol.EIDAMPE); hasAMPE {
		micElem, hasMIC := protocol.Find(elems, protocol.EIDMIC)
		if !hasMIC || len(p.AEK) == 0 {
			return // TransientFrameError or not yet keyed: drop (spec.md §7)
		}
		// Both the AMPE and MIC elements are written after every other
		// element (ProtectFrame appends AMPE then MIC), so the header
		// authenticated by the sender is everything before the AMPE
		// element's own EID/len bytes.
		decoded, err := ProcessAMPE(p.AEK, e.local, af.Src, af.Data[:aekElem.Offset], micElem.Data, aekElem.Data)
		if err != nil {
			level.Debug(e.logger).Log("msg", "AMPE processing failed", "peer", af.Src, "err", err)
			return // CryptoAuthFail/TransientFrameError: drop, no FSM change
		}
		if !ValidatePeerNonce(p.MyNonce, decoded.PeerNonce) {
			level.Warn(e.logger).Log("msg", "rejecting AMPE nonce replay", "peer", af.Src)
			return
		}
		p.PeerNonce = decoded.LocalNonce
		p.MGTK = decoded.MGTK
		ampeElem = &decoded
	}

	var ev Event
	switch action {
	case protocol.ActionOpen:
		ev = DeriveOpenEvent(p, e.table.FreeCount(), pm.LLID, e.policyOK(p))
	case protocol.ActionConfirm:
		ev = DeriveConfirmEvent(p, e.table.FreeCount(), pm.LLID, pm.PLID, e.policyOK(p))
	case protocol.ActionClose:
		ev = DeriveCloseEvent(p, pm.PLID)
		if pm.HasReason {
			p.Reason = protocol.ReasonCode(pm.Reason)
		}
	default:
		return
	}

	oldState := p.PlinkState
	actions := ApplyEvent(p, ev)
	e.perform(p, actions)
	if p.PlinkState != oldState {
		e.commitPlinkState(p)
	}
	_ = ampeElem
}

// policyOK is the rate/cipher/RSN-readiness check spec.md §4.5.2 leaves
// as "policy mismatch yields *_RJCT": a peer is acceptable once it has
// completed SAE (when SAE is configured). Advertised rates and ciphers are
// not compared, so no rate or cipher mismatch makes policyOK false.
func (e *Engine) policyOK(p *Peer) bool {
	if e.sae != nil && !p.SAEAccepted() {
		return false
	}
	return true
}

// perform executes the side effects an FSM transition asked for: arming/
// cancelling timers, transmitting OPEN/CONFIRM/CLOSE, and on DeriveKeys,
// computing and installing the MTK.
func (e *Engine) perform(p *Peer, a Actions) {
	if a == (Actions{}) {
		return
	}
	if a.CancelAll {
		p.cancelAll()
	}
	if a.DeriveKeys {
		e.deriveAndInstallMTK(p)
	}
	if a.SendOpen {
		// A locally generated link ID is assigned the first time we have
		// something to put in it, whether that is openLocal's own
		// initiation or the LISTEN -> OPEN_SENT transition triggered by
		// receiving the peer's OPEN first (spec.md §8 Scenario A).
		if p.MyLID == 0 {
			p.MyLID = e.nextLID()
		}
		e.transmitOpen(p)
	}
	if a.SendConfirm {
		e.transmitConfirm(p)
	}
	if a.SendClose {
		e.transmitClose(p, a.Reason)
	}
	if a.ArmRetry {
		p.arm(timerRetry, e.cfg.RetryTimeout, e.timerCh)
	}
	if a.ArmConfirm {
		p.arm(timerConfirm, e.cfg.ConfirmTimeout, e.timerCh)
	}
	if a.ArmHolding {
		p.arm(timerHolding, e.cfg.HoldingTimeout, e.timerCh)
		level.Info(e.logger).Log("msg", "peer holding", "peer", p.Addr, "reason", a.Reason)
	}
	if a.Established {
		level.Info(e.logger).Log("msg", "peering established", "peer", p.Addr)
	}
}

// installAEK derives and stores the AMPE encryption key the moment SAE
// produces a PMK (spec.md §4.2), and generates this peering's own local
// nonce alongside it (spec.md §3's local_nonce is per-peering state, not
// a process-wide value, so it is rolled fresh per accepted SAE session
// rather than once at startup the way MGTK is). Every AMPE-protected
// OPEN/CONFIRM this peering builds or parses from here on is keyed by
// p.AEK and carries p.MyNonce.
func (e *Engine) installAEK(p *Peer) {
	p.AEK = DeriveAEK(p.SAE.PMK[:], protocol.SuiteSAE, e.local, p.Addr)
	nonce, err := newNonce()
	if err != nil {
		level.Warn(e.logger).Log("msg", "generate local nonce failed", "peer", p.Addr, "err", err)
		return
	}
	p.MyNonce = nonce
}

func (e *Engine) deriveAndInstallMTK(p *Peer) {
	if len(p.AEK) == 0 {
		// No RSN configured for this peering (Scenario A's no-RSN path):
		// there is no MTK to derive or install.
		return
	}
	mtk := DeriveMTK(p.SAE.PMK[:], protocol.SuiteSAE, p.MyNonce, p.PeerNonce, p.MyLID, p.PeerLID, e.local, p.Addr)
	p.MTK = mtk
	var seq [6]byte
	if err := e.driver.SetKey(KeyAlgCCMP, &p.Addr, 0, true, seq, mtk); err != nil {
		level.Warn(e.logger).Log("msg", "install MTK failed", "peer", p.Addr, "err", err)
	}
}

func (e *Engine) transmitOpen(p *Peer) {
	elem := e.ampeElementFor(p)
	frame, err := BuildOpen(e.cfg, e.local, p.Addr, p.MyLID, 0, nil, p.AEK, elem)
	if err != nil {
		level.Warn(e.logger).Log("msg", "build OPEN failed", "peer", p.Addr, "err", err)
		return
	}
	if err := e.driver.SendAction(0, p.Addr, e.local, e.local, frame); err != nil {
		level.Warn(e.logger).Log("msg", "send OPEN failed", "peer", p.Addr, "err", err)
	}
}

func (e *Engine) transmitConfirm(p *Peer) {
	elem := e.ampeElementFor(p)
	frame, err := BuildConfirm(e.cfg, e.local, p.Addr, p.MyLID, p.PeerLID, 0, nil, p.AEK, elem)
	if err != nil {
		level.Warn(e.logger).Log("msg", "build CONFIRM failed", "peer", p.Addr, "err", err)
		return
	}
	if err := e.driver.SendAction(0, p.Addr, e.local, e.local, frame); err != nil {
		level.Warn(e.logger).Log("msg", "send CONFIRM failed", "peer", p.Addr, "err", err)
	}
}

func (e *Engine) transmitClose(p *Peer, reason protocol.ReasonCode) {
	if p.PlinkState == PlinkBlocked {
		// A peer in BLOCKED never transmits an action frame (spec.md §8
		// invariant 5).
		return
	}
	frame, err := BuildClose(e.cfg, p.MyLID, p.PeerLID, reason)
	if err != nil {
		level.Warn(e.logger).Log("msg", "build CLOSE failed", "peer", p.Addr, "err", err)
		return
	}
	if err := e.driver.SendAction(0, p.Addr, e.local, e.local, frame); err != nil {
		level.Warn(e.logger).Log("msg", "send CLOSE failed", "peer", p.Addr, "err", err)
	}
}

// ampeElementFor builds the plaintext AMPE element for p, or nil if this
// peering has no AEK yet (the no-RSN path).
func (e *Engine) ampeElementFor(p *Peer) *protocol.AMPEElement {
	if len(p.AEK) == 0 {
		return nil
	}
	return &protocol.AMPEElement{
		SelectedPairwiseSuite: protocol.SuiteCCMP,
		LocalNonce:            p.MyNonce,
		PeerNonce:             p.PeerNonce,
		MGTK:                  e.rsn.MGTK,
		KeyExpiration:         protocol.FarFutureExpiration,
	}
}

// ApplyQoSInfo and UpdateHTOpMode are feature stubs: original_source's
// mesh_mpm.c carries commented-out WMM QoS info copy and HT operation mode
// update branches rather than a decided implementation, so this module
// surfaces both as explicit "not implemented" rather than guessing the
// intended behavior. Both always return ErrNotImplemented; no
// configuration setting enables them.
func (e *Engine) ApplyQoSInfo(addr MAC, qosInfo byte) error {
	return ErrNotImplemented
}

func (e *Engine) UpdateHTOpMode(addr MAC, opMode uint16) error {
	return ErrNotImplemented
}
