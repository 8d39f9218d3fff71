package mem

// Virtual memory layout for the single 4GB 32-bit address
// space each process' page directory describes (spec §3 "Process address
// space" layout list). Unlike the teacher's amd64 direct map, there is no
// room in a 32-bit space to map all of physical memory at once; kernel
// code that needs to touch an arbitrary frame goes through pgtbl's
// transient attach_page/detach_page slots instead.

/// VLOW is the base of low memory and the kernel image.
const VLOW uintptr = 0x00100000

/// VRAMDISK is the base of the RAM-disk window.
const VRAMDISK uintptr = 0x10000000

/// VHEAP is the base of the kernel heap.
const VHEAP uintptr = 0x18000000

/// VMMIO is the base of the memory-mapped I/O window.
const VMMIO uintptr = 0x20000000

/// VUSER is the lowest user code/data/heap address, above the shared
/// 128MB common area.
const VUSER uintptr = 0x08000000

/// COMMONAREA_LEN is the length of the shared lower common area, the
/// same across every process.
const COMMONAREA_LEN uintptr = 128 << 20

/// VUSTACK is the base of the user stack region.
const VUSTACK uintptr = 0x38000000

/// VKSTACKS is the base of the per-task kernel stack region.
const VKSTACKS uintptr = 0xf0000000

/// VTRANSIENT is the base of the reserved transient-mapping slots used by
/// pgtbl's attach_page/detach_page.
const VTRANSIENT uintptr = 0xffc00000

/// NTRANSIENT is the number of transient-mapping slots.
const NTRANSIENT = 16

/// VRECURSIVE is the virtual base of the recursive PTD window: the last
/// PTD entry points back at the PTD itself, so indexing into this window
/// reaches every PTE as ordinary memory.
const VRECURSIVE uintptr = 0xffc00000 + NTRANSIENT*uintptr(PGSIZE)

/// PTD_RECURSIVE_SLOT is the fixed PTD index (1023, the last entry) used
/// for the recursive self-map.
const PTD_RECURSIVE_SLOT = 1023
