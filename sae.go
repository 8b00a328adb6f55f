package meshmpm

import "meshmpm/protocol"

// SAEEngine is the abstract SAE primitive contract, spec.md §1/§6: the
// actual Diffie-Hellman-over-a-group commit/confirm math is an external
// collaborator this module only drives, the same way the spec treats the
// wireless driver as external. A production binary wires in a real
// implementation of the SAE finite field or ECC group arithmetic; tests
// wire in a scripted fake.
type SAEEngine interface {
	// Group returns the finite cyclic group number this engine instance
	// was constructed for.
	Group() int

	// BuildCommit returns this side's SAE commit message body (scalar and
	// element, group-dependent encoding) to embed in an AUTH frame.
	BuildCommit() ([]byte, error)

	// ProcessCommit consumes the peer's commit message body. Returns
	// ErrGroupNotSupported if peer rejected with that status, surfaced so
	// the SAE driver can advance RSNContext's group cursor.
	ProcessCommit(body []byte) error

	// BuildConfirm returns this side's SAE confirm message body once both
	// commits have been processed.
	BuildConfirm() ([]byte, error)

	// ProcessConfirm consumes the peer's confirm message body and, on
	// success, finalizes the shared PMK.
	ProcessConfirm(body []byte) error

	// PMK returns the derived pairwise master key. Valid only after
	// ProcessConfirm has succeeded.
	PMK() [32]byte
}

// ErrGroupNotSupported is returned by SAEEngine.ProcessCommit when the
// peer's rejection status indicated an unsupported group, spec.md §4.4
// "SAE group fallback".
var ErrGroupNotSupported = newErr(ClassSAEFailure, nil, "peer rejected SAE group")

// SAEEngineFactory constructs a fresh SAEEngine for the given group,
// injected into the SAE driver so tests can substitute a fake without the
// driver depending on a concrete SAE library.
type SAEEngineFactory func(group int) (SAEEngine, error)

// SAEDriver runs the SAE authentication exchange ahead of AMPE peering,
// spec.md §4.4. It owns the per-peer retry/timeout policy and group
// fallback; the actual protocol math is delegated to an SAEEngine.
// Grounded on mesh_rsn_auth_sae_sta / mesh_rsn_sae_group in
// original_source.
type SAEDriver struct {
	rsn     *RSNContext
	factory SAEEngineFactory
	driver  Driver
	cfg     *Config
	timerCh chan<- timerFire
}

// NewSAEDriver builds a SAE driver bound to the given RSN context, engine
// factory, and output driver.
func NewSAEDriver(rsn *RSNContext, factory SAEEngineFactory, driver Driver, cfg *Config, timerCh chan<- timerFire) *SAEDriver {
	return &SAEDriver{rsn: rsn, factory: factory, driver: driver, cfg: cfg, timerCh: timerCh}
}

// Start begins SAE authentication with peer, spec.md §4.4 "on_start":
// allocates an engine for whichever group the RSN context's cursor
// currently points at, builds and sends a commit, and arms the auth
// timeout. The cursor itself is not reset here — it is shared state on
// the RSN context, persistent across peers and attempts, per spec.md
// §4.4.1 and RSNContext.CurrentSAEGroup's doc comment.
func (d *SAEDriver) Start(p *Peer) error {
	group, ok := d.rsn.CurrentSAEGroup()
	if !ok {
		return newErr(ClassSAEFailure, nil, "no SAE groups configured")
	}
	p.SAEAuthRetry = 0
	return d.startWithGroup(p, group)
}

func (d *SAEDriver) startWithGroup(p *Peer, group int) error {
	engine, err := d.factory(group)
	if err != nil {
		return newErr(ClassSAEFailure, err, "construct SAE engine for group %d", group)
	}
	p.SAE = &SAESession{State: SAECommitted, Group: group, Engine: engine}

	commit, err := engine.BuildCommit()
	if err != nil {
		return newErr(ClassSAEFailure, err, "build SAE commit")
	}
	if len(d.rsn.SAEToken) > 0 {
		commit = append(append([]byte{}, d.rsn.SAEToken...), commit...)
		d.rsn.SAEToken = nil
	}
	if err := d.sendAuth(p, protocol.SAETransCommit, protocol.StatusSuccess, commit); err != nil {
		return err
	}
	p.arm(timerAuth, d.cfg.AuthTimeout, d.timerCh)
	return nil
}

// OnCommit processes a peer commit frame, spec.md §4.4. A "group not
// supported" rejection, signalled either by the peer's status code or by
// ProcessCommit returning ErrGroupNotSupported, advances the group cursor
// and restarts with the next group; once no group is left the session is
// reset to NOTHING. Every failure is returned as a ClassSAEFailure error;
// the auth timer armed by the last commit stays in place, so OnTimer's
// retry limit is what finally blocks the peer.
func (d *SAEDriver) OnCommit(p *Peer, status protocol.StatusCode, body []byte) error {
	if p.SAE == nil {
		return newErr(ClassSAEFailure, nil, "commit received with no SAE session")
	}
	if status != protocol.StatusSuccess {
		if status != protocol.StatusUnsupportedGroup {
			return newErr(ClassSAEFailure, nil, "peer rejected SAE commit with status %d", status)
		}
		if group, ok := d.rsn.NextSAEGroup(); ok {
			return d.startWithGroup(p, group)
		}
		p.SAE.State = SAENothing
		return newErr(ClassSAEFailure, nil, "peer rejected all configured SAE groups")
	}

	if err := p.SAE.Engine.ProcessCommit(body); err != nil {
		if err == ErrGroupNotSupported {
			if group, ok := d.rsn.NextSAEGroup(); ok {
				return d.startWithGroup(p, group)
			}
			p.SAE.State = SAENothing
		}
		return newErr(ClassSAEFailure, err, "process SAE commit")
	}
	confirm, err := p.SAE.Engine.BuildConfirm()
	if err != nil {
		return newErr(ClassSAEFailure, err, "build SAE confirm")
	}
	if err := d.sendAuth(p, protocol.SAETransConfirm, protocol.StatusSuccess, confirm); err != nil {
		return err
	}
	p.SAE.State = SAEConfirmed
	p.arm(timerAuth, d.cfg.AuthTimeout, d.timerCh)
	return nil
}

// OnConfirm processes a peer confirm frame. On success the session moves
// to ACCEPTED and its PMK is captured onto the peer record.
func (d *SAEDriver) OnConfirm(p *Peer, status protocol.StatusCode, body []byte) error {
	if p.SAE == nil || p.SAE.State != SAEConfirmed {
		return newErr(ClassSAEFailure, nil, "confirm received out of sequence")
	}
	if status != protocol.StatusSuccess {
		p.SAE.State = SAENothing
		return newErr(ClassSAEFailure, nil, "peer rejected SAE confirm")
	}
	if err := p.SAE.Engine.ProcessConfirm(body); err != nil {
		return newErr(ClassSAEFailure, err, "process SAE confirm")
	}
	p.SAE.PMK = p.SAE.Engine.PMK()
	p.SAE.State = SAEAccepted
	p.cancel(timerAuth)
	return nil
}

// OnTimer handles an expired auth timer, spec.md §4.4 MESH_AUTH_TIMEOUT /
// MESH_AUTH_RETRY: retry up to AuthRetries times, then give up and let
// the caller drive the peer to BLOCKED.
func (d *SAEDriver) OnTimer(p *Peer) error {
	if p.SAE == nil {
		return nil
	}
	p.SAEAuthRetry++
	if p.SAEAuthRetry > d.cfg.AuthRetries {
		p.SAE.State = SAENothing
		return newErr(ClassSAEFailure, nil, "SAE authentication retries exhausted")
	}
	return d.startWithGroup(p, p.SAE.Group)
}

func (d *SAEDriver) sendAuth(p *Peer, trans protocol.SAETransaction, status protocol.StatusCode, body []byte) error {
	frame := protocol.EncodeAuthFrame(protocol.AuthAlgSAE, trans, status, body)
	if err := d.driver.SendMLME(frame, false); err != nil {
		return newErr(ClassDriverFailure, err, "send SAE auth frame to %s", p.Addr)
	}
	return nil
}
