package cpu

import "testing"

// Current and Cpuinfo execute the CPUID instruction via platform's
// assembly stubs, built for the kernel's target architecture and absent
// any body a hosted test binary could link (see DESIGN.md). The
// registry itself is plain slice bookkeeping, tested directly here.

func TestRegisterAppendsAndReturnsPointer(t *testing.T) {
	Reset()
	c := Register(7, true)
	if c.LapicID != 7 || !c.IsBSP {
		t.Fatalf("Register returned %+v", *c)
	}
	if Count() != 1 {
		t.Fatalf("Count() = %d, want 1", Count())
	}
}

func TestByLapicIDFindsRegisteredCpu(t *testing.T) {
	Reset()
	Register(1, true)
	Register(2, false)

	c, ok := ByLapicID(2)
	if !ok || c.LapicID != 2 || c.IsBSP {
		t.Fatalf("ByLapicID(2) = %+v, %v", c, ok)
	}
}

func TestByLapicIDMissReturnsFalse(t *testing.T) {
	Reset()
	Register(1, true)
	if _, ok := ByLapicID(99); ok {
		t.Fatal("ByLapicID must fail for an unregistered APIC ID")
	}
}

func TestAllReflectsRegistrationOrder(t *testing.T) {
	Reset()
	Register(3, true)
	Register(4, false)
	all := All()
	if len(all) != 2 || all[0].LapicID != 3 || all[1].LapicID != 4 {
		t.Fatalf("All() = %+v", all)
	}
}

func TestResetClearsRegistry(t *testing.T) {
	Register(5, true)
	Reset()
	if Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", Count())
	}
}

func TestStatusMentionsEveryRegisteredCpu(t *testing.T) {
	Reset()
	Register(1, true)
	Register(2, false)
	s := Status()
	if s == "" {
		t.Fatal("Status() must describe registered CPUs")
	}
}
