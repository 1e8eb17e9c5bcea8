package arena

import "testing"

func TestStaticAllocationIsZeroedAndSized(t *testing.T) {
	a := New()
	b := a.Static(16)
	if len(b) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
	for _, v := range b {
		if v != 0 {
			t.Fatalf("expected zeroed static allocation")
		}
	}
	if a.Stats().NumBytesAllocated != 16 {
		t.Fatalf("expected stats to track 16 bytes, got %+v", a.Stats())
	}
}

func TestDynamicGrowsInPlaceWhenCapacityAvailable(t *testing.T) {
	a := New()
	d := a.NewDynamic(4)
	d.Append([]byte{1, 2})
	capBefore := d.Cap()
	d.Append([]byte{3, 4}) // still fits within initial capacity
	if d.Cap() != capBefore {
		t.Fatalf("expected no relocation while capacity available: %d -> %d", capBefore, d.Cap())
	}
	if d.Len() != 4 {
		t.Fatalf("expected 4 bytes written, got %d", d.Len())
	}
}

func TestDynamicRelocatesAndCopiesWhenBlocked(t *testing.T) {
	a := New()
	d := a.NewDynamic(2)
	d.Append([]byte{1, 2})
	d.Append([]byte{3, 4, 5, 6, 7, 8})
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got := d.Bytes()
	if len(got) != len(want) {
		t.Fatalf("expected %d bytes after relocation, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFinalizeCopiesToStaticAndDetachesDynamic(t *testing.T) {
	a := New()
	d := a.NewDynamic(4)
	d.Append([]byte{9, 8, 7})
	static := d.Finalize()
	if len(static) != 3 || static[0] != 9 || static[1] != 8 || static[2] != 7 {
		t.Fatalf("unexpected finalized bytes: %v", static)
	}
	if d.Len() != 0 {
		t.Fatalf("expected dynamic buffer detached after Finalize")
	}
}
