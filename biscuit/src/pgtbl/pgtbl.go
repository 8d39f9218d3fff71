// Package pgtbl is the page-table manager: a single-level 1024-entry
// page directory (Ptd_t) per address space, written directly by
// Map_page/Unmap_page, with a recursive self-map in its last slot, plus the page-fault classifier that decides
// whether a fault is fatal, a user SEGV, or a benign lazy mapping.
package pgtbl

import (
	"fmt"

	"caller"
	"defs"
	"lock"
	"mem"
	"platform"

	"golang.org/x/arch/x86/x86asm"
)

const pfx = "pgtbl: "

/// Pte_t is a single 32-bit page table entry: present/rw/us/pcd bits plus
/// a 20-bit frame number in the high bits (mem.PTE_ADDR).
type Pte_t uint32

/// Present reports the PTE_P bit.
func (p Pte_t) Present() bool { return p&Pte_t(mem.PTE_P) != 0 }

/// Writable reports the PTE_W bit.
func (p Pte_t) Writable() bool { return p&Pte_t(mem.PTE_W) != 0 }

/// User reports the PTE_U bit.
func (p Pte_t) User() bool { return p&Pte_t(mem.PTE_U) != 0 }

/// Frame returns the physical frame address encoded in the entry.
func (p Pte_t) Frame() mem.Pa_t { return mem.Pa_t(p) & mem.PTE_ADDR }

func mkpte(frame mem.Pa_t, rw, us, pcd bool) Pte_t {
	e := Pte_t(frame&mem.PTE_ADDR) | Pte_t(mem.PTE_P)
	if rw {
		e |= Pte_t(mem.PTE_W)
	}
	if us {
		e |= Pte_t(mem.PTE_U)
	}
	if pcd {
		e |= Pte_t(mem.PTE_PCD)
	}
	return e
}

/// Ptd_t is a 1024-entry page directory: a flat single level mapping
/// 4MB per entry's worth of PTEs, the entire address space described by
/// one physical frame.
type Ptd_t [1024]Pte_t

/// PTX returns the PTD index for virtual address va.
func PTX(va uintptr) int {
	return int(va>>22) & 0x3ff
}

/// PTEX returns the page-table index within the PTD's referenced page
/// table for virtual address va. (Each PTD entry here addresses a single
/// frame directly; there is no second-level table, matching spec.md §3's
/// single-level PTD — this kernel maps 4KB pages one PTD slot at a time,
/// so PTEX is unused by Map_page/Unmap_page and is exposed only for
/// diagnostics that must reconstruct a faulting linear address.)
func PTEX(va uintptr) int {
	return int(va>>12) & 0x3ff
}

/// recursiveSlotOf returns the PTD entry for the recursive window,
/// reached by indexing the PTD as if it were its own page table.
func recursiveSlotOf(ptd *Ptd_t) *Pte_t {
	return &ptd[mem.PTD_RECURSIVE_SLOT]
}

/// Init_recursive installs the recursive self-map at the last PTD slot:
/// ptd[1023] points at ptd's own physical frame.
func Init_recursive(ptd *Ptd_t, ptdPhys mem.Pa_t) {
	*recursiveSlotOf(ptd) = mkpte(ptdPhys, true, false, false)
}

/// Map_page installs a present mapping va -> pa in ptd with the given
/// permissions. It panics if va is already mapped, matching the
/// teacher's XXXPANIC-on-invariant-breach discipline: callers check
/// Lookup first if overwrite is intended.
func Map_page(ptd *Ptd_t, va uintptr, pa mem.Pa_t, rw, us bool) {
	i := PTX(va)
	if ptd[i].Present() {
		panic("pgtbl: map_page: already mapped")
	}
	ptd[i] = mkpte(pa, rw, us, false)
	platform.Invlpg(va)
}

/// Unmap_page removes the mapping at va, returning the physical frame
/// that was mapped there. It panics if va was not mapped.
func Unmap_page(ptd *Ptd_t, va uintptr) mem.Pa_t {
	i := PTX(va)
	if !ptd[i].Present() {
		panic("pgtbl: unmap_page: not mapped")
	}
	pa := ptd[i].Frame()
	ptd[i] = 0
	platform.Invlpg(va)
	return pa
}

/// Lookup returns the PTE for va and whether it is present.
func Lookup(ptd *Ptd_t, va uintptr) (Pte_t, bool) {
	i := PTX(va)
	return ptd[i], ptd[i].Present()
}

// Transient mapping slots (mem.VTRANSIENT..+NTRANSIENT pages) let kernel
// code touch an arbitrary physical frame briefly without a permanent
// PTD entry — this kernel's equivalent of the teacher's amd64 direct map,
// sized for a 32-bit address space that cannot map all of RAM at once.

var transient struct {
	mu   lock.Spinlock_t
	busy [mem.NTRANSIENT]bool
	ptds [mem.NTRANSIENT]*Ptd_t // set by Bind_transient, from the kernel's boot sequencer
}

/// Bind_transient installs the PTD used by Attach_page/Detach_page; the
/// kernel boot sequencer calls it once with the always-resident kernel
/// address space.
func Bind_transient(ptd *Ptd_t) {
	saved := transient.mu.Acquire()
	defer transient.mu.Release(saved)
	for i := range transient.ptds {
		transient.ptds[i] = ptd
	}
}

/// Attach_page maps physical frame pa into a free transient slot and
/// returns the virtual address to use. Panics if no slot is free — the
/// caller's own misuse (forgotten Detach_page), not a resource exhaustion
/// condition meant to be recovered from. Claiming a slot and mapping it
/// are done under the same lock so two CPUs can never race onto the same
/// slot for different frames.
func Attach_page(pa mem.Pa_t) uintptr {
	saved := transient.mu.Acquire()
	defer transient.mu.Release(saved)
	for i := 0; i < mem.NTRANSIENT; i++ {
		if !transient.busy[i] {
			transient.busy[i] = true
			va := mem.VTRANSIENT + uintptr(i)*uintptr(mem.PGSIZE)
			Map_page(transient.ptds[i], va, pa, true, false)
			return va
		}
	}
	panic("pgtbl: attach_page: no free transient slot")
}

/// Detach_page releases the transient mapping previously returned by
/// Attach_page.
func Detach_page(va uintptr) {
	saved := transient.mu.Acquire()
	defer transient.mu.Release(saved)
	i := int((va - mem.VTRANSIENT) / uintptr(mem.PGSIZE))
	if i < 0 || i >= mem.NTRANSIENT || !transient.busy[i] {
		panic("pgtbl: detach_page: not attached")
	}
	Unmap_page(transient.ptds[i], va)
	transient.busy[i] = false
}

/// Clone_ptd copies all 1024 entries of src, as they are, into a freshly
/// allocated PTD (for the common area shared across processes); no frame
/// is copied, so dst shares every mapped frame with src. It then
/// re-installs the recursive slot to point at the new PTD's own frame.
func Clone_ptd(src *Ptd_t, dst *Ptd_t, dstPhys mem.Pa_t) {
	*dst = *src
	Init_recursive(dst, dstPhys)
}

// Fault classification, per spec §4.2:
//   reserved-bit set                       -> Fatal
//   not present, instruction fetch          -> Segv
//   not present, supervisor mode            -> Fatal
//   not present, user mode                  -> Segv
//   present, access permitted               -> Resolved (lazy TLB refresh)
//   present, supervisor write to read-only  -> Fatal
//   present, other access denied            -> Segv

/// Class_t enumerates the page-fault classifier's outcomes.
type Class_t int

const (
	Fatal Class_t = iota
	Segv
	Resolved
)

const (
	ecodePresent  = 1 << 0
	ecodeWrite    = 1 << 1
	ecodeUser     = 1 << 2
	ecodeReserved = 1 << 3
	ecodeInstr    = 1 << 4
)

/// Classify inspects the hardware error code and the PTE (if any) found
/// at the faulting address and returns the fault class. text is the
/// faulting code page, used only to disassemble the instruction for
/// diagnostics on a Fatal/Segv outcome.
func Classify(ptd *Ptd_t, va uintptr, ecode uintptr, text []byte, textOff int) Class_t {
	if ecode&ecodeReserved != 0 {
		diag("reserved-bit page fault", va, ecode, text, textOff)
		return Fatal
	}
	pte, present := Lookup(ptd, va)
	if !present {
		if ecode&ecodeInstr != 0 {
			return Segv
		}
		if ecode&ecodeUser == 0 {
			diag("supervisor fault on unmapped page", va, ecode, text, textOff)
			return Fatal
		}
		return Segv
	}
	wantWrite := ecode&ecodeWrite != 0
	wantUser := ecode&ecodeUser != 0
	if wantWrite && !pte.Writable() {
		if !wantUser {
			diag("supervisor fault: write to read-only page", va, ecode, text, textOff)
			return Fatal
		}
		return Segv
	}
	if wantUser && !pte.User() {
		return Segv
	}
	return Resolved
}

func diag(msg string, va uintptr, ecode uintptr, text []byte, textOff int) {
	inst := "?"
	if textOff >= 0 && textOff < len(text) {
		if d, err := x86asm.Decode(text[textOff:], 32); err == nil {
			inst = d.String()
		}
	}
	fmt.Printf(pfx+"%s: va=%#x ecode=%#x instr=%s\n", msg, va, ecode, inst)
	caller.Callerdump(2)
}

/// Validate_buffer checks that [va, va+len) lies entirely within
/// present, permitted pages of ptd, for the syscall dispatcher's
/// user-pointer validation (spec §4.2, §6).
func Validate_buffer(ptd *Ptd_t, va uintptr, length int, wantWrite bool) defs.Err_t {
	if length < 0 {
		return -defs.EINVAL
	}
	start := va &^ (uintptr(mem.PGSIZE) - 1)
	end := va + uintptr(length)
	if end < va {
		// va+length wrapped past the top of the 32-bit address space: a
		// syscall argument the dispatcher must reject outright rather
		// than let the loop below run zero iterations and report the
		// buffer valid.
		return -defs.EFAULT
	}
	for p := start; p < end; p += uintptr(mem.PGSIZE) {
		pte, present := Lookup(ptd, p)
		if !present || !pte.User() {
			return -defs.EFAULT
		}
		if wantWrite && !pte.Writable() {
			return -defs.EFAULT
		}
	}
	return 0
}
