// Package vm implements the per-process address space and its per-task
// stack allocators (spec §3 "Process address space", §4.4 "Address-space
// / stack allocator"). It replaces the teacher's COW/demand-paged/
// file-backed mmap design (vm.Vm_t previously tracked Vminfo_t regions,
// reference-counted shared pages, and VFILE mmap) with the simpler model
// this kernel supports: one flat PTD per process, a bump-allocated brk,
// and a free-list of fixed-size per-task kernel stack slots. No
// demand-paged file backing, no COW (spec Non-goals).
package vm

import (
	"sort"
	"unsafe"

	"lock"
	"mem"
	"pgtbl"
)

const pfx = "vm: "

// StackPages is the number of pages ("K") reserved per task stack, and
// StackGap the unmapped guard-page count ("G") separating consecutive
// task stacks, per spec §3's stack-allocator description.
const (
	StackPages = 8
	StackGap   = 1
)

/// TaskStack_t is one entry in a process' list of per-task stack
/// allocations: the task it belongs to and the base virtual address of
/// its K-page region.
type TaskStack_t struct {
	Tid  int
	Base uintptr
}

/// Vm_t is a process' address space: its page directory, the current
/// break, the end of the static data segment, and the list of per-task
/// stacks carved out of the kernel-stack region. Lock-hierarchy
/// position: "address_space.lock" in the §4.4 partial order, acquired
/// before heap_lock and st_lock[pid], and before frame_lock directly.
type Vm_t struct {
	lock.Spinlock_t
	PTD     *pgtbl.Ptd_t
	PTDPhys mem.Pa_t
	Brk     uintptr
	EndData uintptr
	stacks  []TaskStack_t
}

func ptrAt(va uintptr) unsafe.Pointer {
	return unsafe.Pointer(va)
}

/// Init_user_area installs a fresh PTD for a new address space, cloning
/// the shared common-area mappings from the kernel's always-resident
/// PTD (the lower 128MB identical across every process, spec §3), and
/// sets Brk/EndData to the end of the static image.
func Init_user_area(kernelPTD *pgtbl.Ptd_t, endData uintptr) (*Vm_t, bool) {
	pa, ok := mem.Physmem.Get_page()
	if !ok {
		return nil, false
	}
	va := pgtbl.Attach_page(pa)
	ptd := (*pgtbl.Ptd_t)(ptrAt(va))
	pgtbl.Clone_ptd(kernelPTD, ptd, pa)
	pgtbl.Detach_page(va)

	as := &Vm_t{
		PTD:     ptd,
		PTDPhys: pa,
		Brk:     endData,
		EndData: endData,
	}
	return as, true
}

func roundupPage(v uintptr) uintptr {
	return (v + uintptr(mem.PGSIZE) - 1) &^ (uintptr(mem.PGSIZE) - 1)
}

/// Sbrk grows or shrinks the break by incr bytes (incr may be negative)
/// and returns the previous break. Growing maps new pages on demand;
/// shrinking unmaps and frees them. Returns ok=false on allocation
/// failure, leaving Brk unchanged.
func (as *Vm_t) Sbrk(incr int) (uintptr, bool) {
	saved := as.Acquire()
	defer as.Release(saved)

	old := as.Brk
	newbrk := uintptr(int(old) + incr)

	oldpg := roundupPage(old)
	newpg := roundupPage(newbrk)

	if newpg > oldpg {
		for va := oldpg; va < newpg; va += uintptr(mem.PGSIZE) {
			pa, ok := mem.Physmem.Get_page()
			if !ok {
				for unva := oldpg; unva < va; unva += uintptr(mem.PGSIZE) {
					mem.Physmem.Put_page(pgtbl.Unmap_page(as.PTD, unva))
				}
				return 0, false
			}
			pgtbl.Map_page(as.PTD, va, pa, true, true)
		}
	} else if newpg < oldpg {
		for va := newpg; va < oldpg; va += uintptr(mem.PGSIZE) {
			if _, present := pgtbl.Lookup(as.PTD, va); present {
				mem.Physmem.Put_page(pgtbl.Unmap_page(as.PTD, va))
			}
		}
	}

	as.Brk = newbrk
	return old, true
}

// slotStride is the virtual distance from one task-stack slot's base to
// the next: StackPages mapped pages plus StackGap unmapped guard pages.
var slotStride = uintptr(StackPages+StackGap) * uintptr(mem.PGSIZE)

// slotBase returns the base virtual address of stack slot n.
func slotBase(n int) uintptr {
	return mem.VKSTACKS + uintptr(n)*slotStride
}

// freeSlot returns the lowest free stack-slot index, reusing whatever
// Release_task_stack vacated before growing past the highest slot ever
// handed out (spec §4.4's "scan for the first gap"). Sorting the slots
// currently in use once and walking them in order finds that gap in
// O(n log n); probing slotTaken(0), slotTaken(1), ... against the whole
// list for each candidate index is the O(n^2) version this replaced.
func (as *Vm_t) freeSlot() int {
	taken := make([]int, len(as.stacks))
	for i, s := range as.stacks {
		taken[i] = int((s.Base - mem.VKSTACKS) / slotStride)
	}
	sort.Ints(taken)

	slot := 0
	for _, t := range taken {
		if t != slot {
			break
		}
		slot++
	}
	return slot
}

/// Reserve_task_stack allocates the lowest free per-task stack slot for
/// tid — reusing a slot Release_task_stack vacated before growing into a
/// new one, per spec §4.4's "scan for the first gap" allocator — maps
/// StackPages present+writable supervisor-only pages there, and returns the base
/// address. Slots are separated by StackGap unmapped guard pages so a
/// stack overflow faults instead of corrupting a neighbor.
func (as *Vm_t) Reserve_task_stack(tid int) (uintptr, bool) {
	saved := as.Acquire()
	defer as.Release(saved)

	base := slotBase(as.freeSlot())

	mapped := 0
	for i := 0; i < StackPages; i++ {
		pa, ok := mem.Physmem.Get_page()
		if !ok {
			for j := 0; j < mapped; j++ {
				va := base + uintptr(j)*uintptr(mem.PGSIZE)
				mem.Physmem.Put_page(pgtbl.Unmap_page(as.PTD, va))
			}
			return 0, false
		}
		va := base + uintptr(i)*uintptr(mem.PGSIZE)
		pgtbl.Map_page(as.PTD, va, pa, true, false)
		mapped++
	}

	as.stacks = append(as.stacks, TaskStack_t{Tid: tid, Base: base})
	return base, true
}

/// Release_task_stack removes tid's stack allocation from the list and
/// unmaps and frees its pages (spec §3: "removes the allocator from the
/// list under st_lock, then unmaps every page and frees the frames").
func (as *Vm_t) Release_task_stack(tid int) {
	saved := as.Acquire()
	defer as.Release(saved)

	idx := -1
	for i, s := range as.stacks {
		if s.Tid == tid {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(pfx + "release_task_stack: no such task")
	}
	base := as.stacks[idx].Base
	as.stacks = append(as.stacks[:idx], as.stacks[idx+1:]...)

	for i := 0; i < StackPages; i++ {
		va := base + uintptr(i)*uintptr(mem.PGSIZE)
		mem.Physmem.Put_page(pgtbl.Unmap_page(as.PTD, va))
	}
}

func copyPage(dstva, srcva uintptr) {
	dst := (*mem.Bytepg_t)(ptrAt(dstva))
	src := (*mem.Bytepg_t)(ptrAt(srcva))
	*dst = *src
}

/// Clone makes a new address space sharing the same common-area mappings
/// but an independent set of per-task stacks and break, the way the
/// teacher's proc.Clone forked address spaces — minus COW, since this
/// kernel copies private pages eagerly (Non-goal: no demand paging).
func (as *Vm_t) Clone(kernelPTD *pgtbl.Ptd_t) (*Vm_t, bool) {
	child, ok := Init_user_area(kernelPTD, as.EndData)
	if !ok {
		return nil, false
	}
	saved := as.Acquire()
	defer as.Release(saved)

	for va := as.EndData; va < as.Brk; va += uintptr(mem.PGSIZE) {
		pte, present := pgtbl.Lookup(as.PTD, va)
		if !present {
			continue
		}
		npa, ok := mem.Physmem.Get_page()
		if !ok {
			child.freeAddrSpace(va)
			return nil, false
		}
		srcva := pgtbl.Attach_page(pte.Frame())
		dstva := pgtbl.Attach_page(npa)
		copyPage(dstva, srcva)
		pgtbl.Detach_page(srcva)
		pgtbl.Detach_page(dstva)
		pgtbl.Map_page(child.PTD, va, npa, pte.Writable(), true)
	}
	child.Brk = as.Brk
	return child, true
}

// freeAddrSpace unmaps and frees every page Clone had already copied into
// this (still-private, not yet published) address space below copiedUpTo,
// then frees its page-directory frame itself, mirroring the
// partial-failure unwind Sbrk already does for brk growth.
func (as *Vm_t) freeAddrSpace(copiedUpTo uintptr) {
	for va := as.EndData; va < copiedUpTo; va += uintptr(mem.PGSIZE) {
		if _, present := pgtbl.Lookup(as.PTD, va); present {
			mem.Physmem.Put_page(pgtbl.Unmap_page(as.PTD, va))
		}
	}
	mem.Physmem.Put_page(as.PTDPhys)
}

/// Map_memio maps an MMIO physical window [pa, pa+length) into the
/// kernel's portion of the address space as writable, supervisor-only
/// pages, returning the virtual base.
func Map_memio(ptd *pgtbl.Ptd_t, pa mem.Pa_t, length uintptr, base uintptr) uintptr {
	n := (length + uintptr(mem.PGSIZE) - 1) / uintptr(mem.PGSIZE)
	for i := uintptr(0); i < n; i++ {
		va := base + i*uintptr(mem.PGSIZE)
		fpa := pa + mem.Pa_t(i)*mem.Pa_t(mem.PGSIZE)
		pgtbl.Map_page(ptd, va, fpa, true, false)
	}
	return base
}
