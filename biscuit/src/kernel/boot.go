// Package kernel sequences boot: frame allocator, page tables, heap,
// address-space tables, config-table parsing, the BSP's local APIC,
// the driver manager, PCI, IRQ balancing, and the optional in-kernel
// self-test (spec §2, §8).
package kernel

import (
	"unsafe"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"acpi"
	"apic"
	"cmdline"
	"cpu"
	"drivers"
	"heap"
	"irq"
	"mem"
	"mptable"
	"pci"
	"pgtbl"
	"ramdisk"
)

const pfx = "kernel: "

/// ExecLevel_t is the execution level handle_interrupt's caller tracks
/// across a trap (spec §4.9 step 3 "save previous execution level").
/// Process management owns transitions between these; this kernel only
/// names them so the vector-space dispatch code can type its save slot.
type ExecLevel_t int

const (
	LevelKernel ExecLevel_t = iota
	LevelUser
	LevelInterrupt
)

/// BootInfo_t is what the multiboot loader hands off (spec §6).
type BootInfo_t struct {
	CmdLine        string
	FrameStart     uint32 // first usable physical frame
	FrameCount     uint32 // usable frame count
	RamdiskPhys    []uint8 // nil if no module was loaded
	KernelEndData  uintptr
	KernelPTDPhys  mem.Pa_t
}

/// State_t holds everything boot sequencing assembles, threaded through
/// do_test and the boot-summary banner.
type State_t struct {
	Config    cmdline.Config_t
	KernelPTD *pgtbl.Ptd_t
	Routing   acpi.Routing_t
	Local     bool // local APIC mapped
	IOApic    *apic.IOApic_t
}

/// Boot runs the sequence spec §2 describes end to end: frame-alloc
/// init, the initial page tables (already built by the assembly
/// bootstrap before Go code runs; this only installs the recursive
/// slot), heap, address-space tables, config-table parse, BSP local
/// APIC init, driver manager, PCI enumeration and chipset probing,
/// driver registration, and IRQ balancing.
func Boot(bi BootInfo_t) *State_t {
	cfg := cmdline.Parse(bi.CmdLine)

	mem.Phys_init(bi.FrameStart, bi.FrameCount)

	// The assembly bootstrap identity-maps [0, VLOW+something) 1:1 before
	// any Go code runs, so the kernel's own page directory frame (which
	// the bootstrap allocates out of that low region) is reachable at a
	// virtual address equal to its physical one.
	ptd := ptdAt(bi.KernelPTDPhys)
	pgtbl.Init_recursive(ptd, bi.KernelPTDPhys)
	pgtbl.Bind_transient(ptd)

	const initialHeap = 1 << 20
	mapRange(ptd, mem.VHEAP, initialHeap)
	heap.Init(mem.VHEAP, initialHeap, mem.VMMIO, heapExtend(ptd), cfg)

	drivers.Reset()
	cpu.Reset()

	var routing acpi.Routing_t
	if cfg.UseACPI {
		routing = acpi.Resolve()
	} else {
		routing = acpi.ResolveMPOnly(mptable.Scan())
	}

	st := &State_t{Config: cfg, KernelPTD: ptd, Routing: routing}

	if id, addr, ok := routing.Primary_ioapic(); ok {
		_ = id
		st.IOApic = apic.Map_ioapic(ptd, addr, mem.VMMIO+uintptr(mem.PGSIZE))
	}

	apic.Map_local(ptd, mem.VMMIO)
	apic.Init_local(irq.VecSyscall | 0x0F) // spurious vector in the IPI band
	st.Local = true

	irq.Configure(cfg.Apic, routing, st.IOApic, cpu.Count())

	pci.Enumerate()
	pci.Probe_chipsets()

	if bi.RamdiskPhys != nil {
		ramdisk.Init(bi.RamdiskPhys, drivers.D_RAMDISK)
	}
	drivers.Register_char_dev(drivers.D_PROF, drivers.ProfDev{})

	irq.Irq_balance(nil)

	if cfg.DoTest {
		Do_test(st)
	}

	return st
}

func ptdAt(phys mem.Pa_t) *pgtbl.Ptd_t {
	return (*pgtbl.Ptd_t)(unsafe.Pointer(uintptr(phys)))
}

// mapRange maps count bytes starting at va, rounded up to whole pages,
// to freshly allocated frames.
func mapRange(ptd *pgtbl.Ptd_t, va uintptr, count uintptr) {
	end := va + count
	for p := va; p < end; p += uintptr(mem.PGSIZE) {
		pa, ok := mem.Physmem.Get_page()
		if !ok {
			panic(pfx + "out of memory mapping initial region")
		}
		pgtbl.Map_page(ptd, p, pa, true, false)
	}
}

func heapExtend(ptd *pgtbl.Ptd_t) heap.Extend_f {
	top := mem.VHEAP + uintptr(1<<20)
	return func(newTop uintptr) (uintptr, bool) {
		for top < newTop {
			pa, ok := mem.Physmem.Get_page()
			if !ok {
				return top, false
			}
			pgtbl.Map_page(ptd, top, pa, true, false)
			top += uintptr(mem.PGSIZE)
		}
		return top, true
	}
}

/// Boot_summary formats a boot banner: free frame count, CPU count, the
/// per-CPU status lines, and whether an I/O APIC was mapped, with large
/// numbers grouped using a locale-aware printer instead of a
/// hand-rolled thousands separator (SPEC_FULL.md domain-stack wiring).
func Boot_summary(st *State_t) string {
	p := message.NewPrinter(language.English)
	s := p.Sprintf("frames free: %d\n", mem.Physmem.Nfree())
	s += p.Sprintf("cpus: %d\n", cpu.Count())
	s += cpu.Status()
	if st.IOApic != nil {
		s += "ioapic: mapped\n"
	}
	return s
}
