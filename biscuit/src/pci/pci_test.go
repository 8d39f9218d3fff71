package pci

import (
	"testing"

	"hashtable"
)

// Cfgread*/Cfgwrite* and Enumerate drive the legacy 0xCF8/0xCFC ports
// directly, which fault outside ring 0 (see DESIGN.md). These tests
// populate devs by hand, the same state Enumerate would have built, and
// exercise the query iterators and the chipset probe table against it.

func populate(t *testing.T, ds []Dev_t) {
	t.Helper()
	devMu.Lock()
	devs = append([]Dev_t(nil), ds...)
	devMu.Unlock()
	savedIndex := byBDF
	byBDF = hashtable.MkHash(64)
	for _, d := range ds {
		byBDF.Set(bdfKey(d.Bus, d.Dev, d.Fn), d)
	}
	t.Cleanup(func() {
		devMu.Lock()
		devs = nil
		devMu.Unlock()
		byBDF = savedIndex
	})
}

func TestQueryAllSnapshotsDevs(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 1, Fn: 0, Baseclass: 0x01, Subclass: 0x06},
		{Bus: 0, Dev: 2, Fn: 0, Baseclass: 0x02, Subclass: 0x00},
	})

	var got []Dev_t
	for d := range Query_all() {
		got = append(got, d)
	}
	if len(got) != 2 {
		t.Fatalf("got %d devices, want 2", len(got))
	}
}

func TestQueryByBaseclassFilters(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 1, Fn: 0, Baseclass: 0x01, Subclass: 0x06}, // SATA controller
		{Bus: 0, Dev: 2, Fn: 0, Baseclass: 0x02, Subclass: 0x00}, // ethernet
		{Bus: 0, Dev: 3, Fn: 0, Baseclass: 0x01, Subclass: 0x01}, // IDE controller
	})

	var storage []Dev_t
	for d := range Query_by_baseclass(0x01) {
		storage = append(storage, d)
	}
	if len(storage) != 2 {
		t.Fatalf("got %d baseclass-0x01 devices, want 2", len(storage))
	}
	for _, d := range storage {
		if d.Baseclass != 0x01 {
			t.Fatalf("non-matching device leaked through filter: %+v", d)
		}
	}
}

func TestQueryByClassFiltersBaseclassAndSubclass(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 1, Fn: 0, Baseclass: 0x01, Subclass: 0x06},
		{Bus: 0, Dev: 2, Fn: 0, Baseclass: 0x01, Subclass: 0x01},
	})

	var matched []Dev_t
	for d := range Query_by_class(0x01, 0x06) {
		matched = append(matched, d)
	}
	if len(matched) != 1 {
		t.Fatalf("got %d matches, want 1", len(matched))
	}
	if matched[0].Dev != 1 {
		t.Fatalf("matched wrong device: %+v", matched[0])
	}
}

func TestQueryEarlyStop(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 1, Fn: 0},
		{Bus: 0, Dev: 2, Fn: 0},
		{Bus: 0, Dev: 3, Fn: 0},
	})

	n := 0
	for range Query_all() {
		n++
		if n == 1 {
			break
		}
	}
	if n != 1 {
		t.Fatalf("iteration did not stop early, visited %d", n)
	}
}

func TestAddrEncodesBusDevFnOffset(t *testing.T) {
	got := addr(1, 2, 3, 0x10)
	want := uint32(1)<<31 | uint32(1)<<16 | uint32(2)<<11 | uint32(3)<<8 | 0x10
	if got != want {
		t.Fatalf("addr() = %#x, want %#x", got, want)
	}
}

func TestAddrMasksOffsetToDwordAligned(t *testing.T) {
	got := addr(0, 0, 0, 0x13)
	if got&0xfc != 0x10 {
		t.Fatalf("addr() did not mask offset to dword alignment: %#x", got)
	}
}

func TestLookupFindsEnumeratedDevice(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 1, Fn: 0, Vendor: 0x8086, Device: 0xabcd},
		{Bus: 1, Dev: 2, Fn: 1, Vendor: 0x10de, Device: 0x1111},
	})

	d, ok := Lookup(1, 2, 1)
	if !ok {
		t.Fatal("Lookup did not find a device that was populated")
	}
	if d.Vendor != 0x10de || d.Device != 0x1111 {
		t.Fatalf("Lookup returned wrong device: %+v", d)
	}
}

func TestLookupMissReturnsFalse(t *testing.T) {
	populate(t, []Dev_t{{Bus: 0, Dev: 1, Fn: 0}})

	if _, ok := Lookup(9, 9, 9); ok {
		t.Fatal("Lookup must fail for a (bus,dev,fn) never enumerated")
	}
}

func TestProbeChipsetsInvokesMatchingProbe(t *testing.T) {
	populate(t, []Dev_t{
		{Bus: 0, Dev: 4, Fn: 0, Vendor: 0x8086, Device: 0x1234},
		{Bus: 0, Dev: 5, Fn: 0, Vendor: 0x10de, Device: 0x5678},
	})

	savedTable := chipsetTable
	chipsetTable = nil
	t.Cleanup(func() { chipsetTable = savedTable })

	var probed []Dev_t
	Register_chipset(ChipsetEntry_t{
		Vendor: 0x8086, Device: 0x1234,
		Probe: func(d Dev_t) { probed = append(probed, d) },
	})

	Probe_chipsets()

	if len(probed) != 1 {
		t.Fatalf("probe ran %d times, want 1", len(probed))
	}
	if probed[0].Dev != 4 {
		t.Fatalf("probe ran on wrong device: %+v", probed[0])
	}
}
