// Package irq is the IRQ manager: vector-space bookkeeping, handler
// chains, and top-half dispatch (spec §4.9).
package irq

import (
	"reflect"
	"sync"

	"acpi"
	"apic"
	"cmdline"
	"cpu"
	"msi"
	"pci"
)

const pfx = "irq: "

// Vector-space bands (spec §4.9).
const (
	VecExceptionLo = 0x00
	VecExceptionHi = 0x1F
	VecPICLo       = 0x20
	VecPICHi       = 0x2F
	VecAPICLo      = 0x30
	VecAPICHi      = 0x7F
	VecSyscall     = 0x80
	VecIPILo       = 0x80
	VecIPIHi       = 0x8F
)

// NBands is the number of 16-wide APIC priority bands between VecAPICLo
// and VecAPICHi, highest priority at the top (spec §4.9).
const NBands = 5
const bandWidth = 16

/// Handler_f is one interrupt handler. Returning true requests the
/// debugger (spec §4.9 step 3 "OR their return values into a
/// debug-requested flag").
type Handler_f func() bool

type vector_t struct {
	inUse     bool
	irq       int // -1 for MSI-only vectors with no backing IRQ line
	pinnedBSP bool
	isMSI     bool
	polarity  uint8
	trigger   uint8
	handlers  []Handler_f
}

var (
	mu      sync.Mutex
	vectors [256]vector_t
	irqVec  = map[int]int{} // irq line -> assigned vector, APIC mode only

	mode     = cmdline.ApicModeFixedBSP
	routing  acpi.Routing_t
	ioapic   *apic.IOApic_t
	cpuCount = 1
)

/// Configure records the boot-chosen delivery mode, resolved config-
/// table routing, and the primary I/O APIC handle; boot sequencing
/// calls this once, before any add_handler_* call.
func Configure(apicMode int, r acpi.Routing_t, io *apic.IOApic_t, ncpu int) {
	mu.Lock()
	defer mu.Unlock()
	mode = apicMode
	routing = r
	ioapic = io
	cpuCount = ncpu
}

func bandRange(priority int) (int, int) {
	if priority < 0 {
		priority = 0
	}
	if priority >= NBands {
		priority = NBands - 1
	}
	// priority 0 is highest, occupying the topmost band.
	hi := VecAPICHi - priority*bandWidth
	lo := hi - bandWidth + 1
	return lo, hi
}

func firstUnused(lo, hi int) (int, bool) {
	for v := hi; v >= lo; v-- {
		if !vectors[v].inUse {
			return v, true
		}
	}
	return 0, false
}

func vectorForIrq(irq int) (int, bool) {
	v, ok := irqVec[irq]
	return v, ok
}

func programRedirection(v *vector_t, vec int) {
	if ioapic == nil || v.irq < 0 {
		return
	}
	deliveryMode := apic.ModePhysicalFixed
	switch mode {
	case cmdline.ApicModeLogicalFixed:
		deliveryMode = apic.ModeLogicalFixed
	case cmdline.ApicModeLogicalLowestPrio:
		deliveryMode = apic.ModeLogicalLowestPrio
	}
	ioapic.Add_redir_entry(uint8(v.irq), v.polarity, v.trigger, uint8(vec), deliveryMode, cpuCount)
}

/// Add_isr resolves a vector for irq and appends isr to its handler
/// chain, per spec §4.9's "add_isr" algorithm.
//
// irq is a raw IRQ line in PIC mode or an already-routed APIC pin in
// APIC mode; pass -1 for an MSI handler, which always receives a fresh
// vector regardless of irq bookkeeping.
func Add_isr(irqLine int, priority int, isr Handler_f, forceBSP bool, dev *pci.Dev_t, isMSI bool, polarity, trigger uint8) (int, bool) {
	mu.Lock()
	defer mu.Unlock()

	var vec int
	firstAssignment := true

	switch {
	case mode == cmdline.ApicModePIC && !isMSI:
		vec = irqLine + 0x20
		firstAssignment = !vectors[vec].inUse

	case isMSI:
		lo, hi := bandRange(priority)
		v, ok := firstUnused(lo, hi)
		if !ok {
			return 0, false
		}
		vec = v

	default: // APIC mode, non-MSI: reuse existing vector if any
		if v, ok := vectorForIrq(irqLine); ok {
			vec = v
			firstAssignment = false
		} else {
			lo, hi := bandRange(priority)
			v, ok := firstUnused(lo, hi)
			if !ok {
				return 0, false
			}
			vec = v
			irqVec[irqLine] = vec
		}
	}

	v := &vectors[vec]
	if firstAssignment {
		v.inUse = true
		v.irq = irqLine
		v.isMSI = isMSI
		v.pinnedBSP = forceBSP
		v.polarity = polarity
		v.trigger = trigger
		if isMSI && dev != nil {
			addr, data := msi.ConfigMSI(uint8(cpu.Current()), msi.Msivec_t(vec))
			pci.Configure_msi(*dev, addr, data)
		} else if mode != cmdline.ApicModePIC {
			programRedirection(v, vec)
		}
	}

	for _, h := range v.handlers {
		if sameHandler(h, isr) {
			return vec, true
		}
	}
	v.handlers = append(v.handlers, isr)
	return vec, true
}

func sameHandler(a, b Handler_f) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
