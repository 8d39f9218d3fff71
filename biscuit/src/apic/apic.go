// Package apic drives the local APIC (timer, EOI, IPIs) and the I/O
// APIC (redirection-table programming), spec §4.4. Register offsets are
// grounded on the reference pack's IOAPIC model in
// tinyrange-cc/internal/devices/amd64/chipset/ioapic.go, re-expressed
// here as a driver issuing MMIO reads/writes rather than that pack's
// device-emulation direction.
package apic

import (
	"mem"
	"pgtbl"
	"platform"
	"vm"
)

const pfx = "apic: "

// Local APIC register offsets (byte offset from the LAPIC MMIO base).
const (
	lapicID        = 0x020
	lapicVersion   = 0x030
	lapicEOI       = 0x0B0
	lapicSpurious  = 0x0F0
	lapicICRLow    = 0x300
	lapicICRHigh   = 0x310
	lapicLVTTimer  = 0x320
	lapicTimerInit = 0x380
	lapicTimerCur  = 0x390
	lapicTimerDiv  = 0x3E0
)

const lapicDefaultPhys = 0xFEE00000

/// Local_t drives the calling CPU's local APIC through its MMIO window.
type Local_t struct {
	base platform.Volatile32
}

var localBase uintptr

/// Map_local maps the local APIC's MMIO page into the kernel's portion
/// of ptd at a fixed kernel virtual address, once at boot.
func Map_local(ptd *pgtbl.Ptd_t, kvaddr uintptr) {
	vm.Map_memio(ptd, mem.Pa_t(lapicDefaultPhys), 4096, kvaddr)
	localBase = kvaddr
}

func reg(off uintptr) platform.Volatile32 {
	return platform.MMIO32(localBase).At(off)
}

/// Init_local sets the timer divide register to a fixed divide-by-16
/// and unmasks the spurious-interrupt vector, the minimum needed for EOI
/// and IPI delivery to work. The timer is not calibrated: no initial
/// count or timer mode is programmed here.
func Init_local(spuriousVector uint32) {
	reg(lapicSpurious).Store(spuriousVector | 0x100)
	reg(lapicTimerDiv).Store(0x3) // divide by 16
}

/// EOI signals end-of-interrupt to the local APIC.
func EOI() {
	reg(lapicEOI).Store(0)
}

/// LapicID returns this CPU's local APIC ID as read from the MMIO ID
/// register (the authoritative source; platform.LapicID reads CPUID,
/// which can disagree on an x2APIC system — this kernel targets the
/// classic MMIO APIC only, per scope).
func LapicID() uint32 {
	return reg(lapicID).Load() >> 24
}

// IPI kinds, spec §4.4 "send_ipi".
const (
	IPIInit    = 0x5
	IPIStartup = 0x6
	IPIFixed   = 0x0
	IPINMI     = 0x4
)

const ipiMaxSpin = 1 << 20

/// Send_ipi writes ICR high then low to issue an inter-processor
/// interrupt, then polls the delivery-status bit with a bounded spin.
/// Returns false on timeout (spec §5 "Cancellation & timeouts").
func Send_ipi(apicID uint32, kind uint32, vector uint8, deassert bool) bool {
	reg(lapicICRHigh).Store(apicID << 24)

	low := uint32(vector) | kind<<8
	if kind == IPIInit && !deassert {
		low |= 1 << 14 // assert
	}
	if kind == IPIInit && deassert {
		low |= 1 << 15 // level trigger for deassert
	}
	reg(lapicICRLow).Store(low)

	for i := 0; i < ipiMaxSpin; i++ {
		if reg(lapicICRLow).Load()&(1<<12) == 0 {
			return true
		}
		platform.Pause()
	}
	return false
}
