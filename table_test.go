package meshmpm

import "testing"

func TestTableCreateIdempotent(t *testing.T) {
	tbl := newTable(4)
	addr := testMAC(0x01)

	p1, err := tbl.Create(addr)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := tbl.Create(addr)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("Create must return the existing record for a known address")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 peer, got %d", tbl.Len())
	}
}

// TestTableCapacityExhaustion is spec.md §3's "only while the peer table
// is below its configured capacity" invariant.
func TestTableCapacityExhaustion(t *testing.T) {
	tbl := newTable(2)
	if _, err := tbl.Create(testMAC(0x01)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Create(testMAC(0x02)); err != nil {
		t.Fatal(err)
	}
	if tbl.FreeCount() != 0 {
		t.Fatalf("expected FreeCount 0, got %d", tbl.FreeCount())
	}

	_, err := tbl.Create(testMAC(0x03))
	if err == nil {
		t.Fatal("expected ResourceExhaustion error at capacity")
	}
	merr, ok := err.(*Error)
	if !ok || merr.Class != ClassResourceExhaustion {
		t.Fatalf("expected ClassResourceExhaustion, got %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("overflowing Create must not add a record, got Len=%d", tbl.Len())
	}
}

func TestTableRemoveFreesCapacity(t *testing.T) {
	tbl := newTable(1)
	addr := testMAC(0x01)
	if _, err := tbl.Create(addr); err != nil {
		t.Fatal(err)
	}
	if tbl.FreeCount() != 0 {
		t.Fatal("expected no free slots")
	}
	tbl.Remove(addr)
	if tbl.FreeCount() != 1 {
		t.Fatalf("expected 1 free slot after Remove, got %d", tbl.FreeCount())
	}
	if _, ok := tbl.Get(addr); ok {
		t.Fatal("Get must not find a removed peer")
	}
}

func TestTableRange(t *testing.T) {
	tbl := newTable(4)
	tbl.Create(testMAC(0x01))
	tbl.Create(testMAC(0x02))

	seen := 0
	tbl.Range(func(p *Peer) { seen++ })
	if seen != 2 {
		t.Fatalf("expected Range to visit 2 peers, got %d", seen)
	}
}
