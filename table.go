package meshmpm

// Table is the peer table: a hash-indexed set of peer records keyed by
// MAC, owned by the MPM engine and read-borrowed by the other components
// during a single event dispatch (spec.md §5 "Shared resource policy").
//
// This replaces the original_source's manual open-addressed hash plus
// linked list (mesh_get_sta/mesh_sta_hash_add/mesh_sta_add in
// mesh_mpm.c) with a plain Go map, per spec.md §9's redesign note: Go's
// map already is the associative container the note asks for, and a MAC
// is a stable, comparable key — no separate generation tag is needed for
// the table itself. Timer cancellation safety (the other half of that
// note) is handled in timer.go by tagging each armed timer with the
// generation counter on the Peer it was armed for, so a stale callback
// that fires after the peer was replaced is a no-op.
//
// Table is not safe for concurrent use; it is owned by one Engine's
// single-threaded event loop per spec.md §5.
type Table struct {
	peers    map[MAC]*Peer
	capacity int
}

func newTable(capacity int) *Table {
	return &Table{peers: make(map[MAC]*Peer), capacity: capacity}
}

// Get returns the peer record for addr, if any.
func (t *Table) Get(addr MAC) (*Peer, bool) {
	p, ok := t.peers[addr]
	return p, ok
}

// Len returns the number of known peers.
func (t *Table) Len() int { return len(t.peers) }

// FreeCount is plink_free_count() from mesh_mpm.c: how many more peers
// can be admitted. Spec.md §4.5.2 treats a free count of zero as a reason
// to ignore an incoming OPEN/CONFIRM rather than accept it.
func (t *Table) FreeCount() int {
	n := t.capacity - len(t.peers)
	if n < 0 {
		return 0
	}
	return n
}

// Create adds a new peer record for addr if one does not already exist,
// enforcing the capacity invariant from spec.md §3 ("only while the peer
// table is below its configured capacity"). Returns the existing record
// if addr is already known (discovery is idempotent).
func (t *Table) Create(addr MAC) (*Peer, error) {
	if p, ok := t.peers[addr]; ok {
		return p, nil
	}
	if t.FreeCount() <= 0 {
		return nil, newErr(ClassResourceExhaustion, nil,
			"peer table at capacity (%d)", t.capacity)
	}
	p := newPeer(addr)
	t.peers[addr] = p
	return p, nil
}

// Remove deletes a peer record. The caller (Engine) must cancel all of
// the peer's timers before calling Remove, per spec.md §5's cancellation
// invariant; Remove itself only drops the table's reference.
func (t *Table) Remove(addr MAC) {
	delete(t.peers, addr)
}

// Range calls fn for every peer in the table. fn must not mutate the
// table.
func (t *Table) Range(fn func(*Peer)) {
	for _, p := range t.peers {
		fn(p)
	}
}
