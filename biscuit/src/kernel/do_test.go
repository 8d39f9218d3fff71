package kernel

import (
	"unsafe"

	"heap"
	"mem"
	"pgtbl"
	"vm"
)

func ptrAt(va uintptr) unsafe.Pointer {
	return unsafe.Pointer(va)
}

const vTest1 uintptr = 0x20000000
const vTest2 uintptr = 0x20001000

/// Do_test runs the in-kernel self-test suite spec §8 names when the
/// cmdline's do_test=1 is set, panicking on the first violated
/// invariant (there is no test harness to report back to at this point
/// in boot).
func Do_test(st *State_t) {
	testPaging(st)
	testAlignedMalloc()
	testStackAllocator(st)
}

func testPaging(st *State_t) {
	pa, ok := mem.Physmem.Get_page()
	if !ok {
		panic(pfx + "do_test: paging: out of memory")
	}
	pgtbl.Map_page(st.KernelPTD, vTest1, pa, true, false)
	pgtbl.Map_page(st.KernelPTD, vTest2, pa, true, false)

	p1 := (*mem.Bytepg_t)(ptrAt(vTest1))
	p2 := (*mem.Bytepg_t)(ptrAt(vTest2))
	for i := 0; i < 256; i++ {
		p1[i] = uint8(i)
	}
	for i := 0; i < 256; i++ {
		if p2[i] != uint8(i) {
			panic(pfx + "do_test: paging: aliased mapping mismatch")
		}
	}

	pgtbl.Unmap_page(st.KernelPTD, vTest1)
	pgtbl.Unmap_page(st.KernelPTD, vTest2)
	mem.Physmem.Put_page(pa)
}

func testAlignedMalloc() {
	p, ok := heap.Malloc_aligned(100, 256)
	if !ok {
		panic(pfx + "do_test: aligned malloc: out of memory")
	}
	if p%256 != 0 {
		panic(pfx + "do_test: aligned malloc: misaligned result")
	}
	heap.Free(p)
}

func testStackAllocator(st *State_t) {
	as, ok := vm.Init_user_area(st.KernelPTD, mem.VLOW)
	if !ok {
		panic(pfx + "do_test: stack allocator: out of memory")
	}
	first, ok := as.Reserve_task_stack(1)
	if !ok {
		panic(pfx + "do_test: stack allocator: first reservation failed")
	}
	second, ok := as.Reserve_task_stack(2)
	if !ok {
		panic(pfx + "do_test: stack allocator: second reservation failed")
	}
	// Each reservation's base is its lowest page; spec §8 scenario 3
	// requires the second allocator's lowest page to clear the first's
	// highest page (base + (K-1)*PAGE) by more than G pages.
	firstHighest := first + uintptr(vm.StackPages-1)*uintptr(mem.PGSIZE)
	if second < firstHighest+uintptr(vm.StackGap+1)*uintptr(mem.PGSIZE) {
		panic(pfx + "do_test: stack allocator: guard gap violated")
	}
	as.Release_task_stack(2)
	as.Release_task_stack(1)
}
