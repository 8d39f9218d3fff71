// Package mem implements the physical frame allocator and the raw page
// table entry / page directory types shared by pgtbl, heap, and vm.
//
// The target is a single 32-bit x86 address space: one page directory
// (pgtbl.Ptd_t) with 1024 entries, no intermediate levels, and a fixed
// recursive self-map at the last PTD slot (see dmap.go). Physical
// memory is tracked by a flat bitmap rather than the teacher's refcounted
// free lists, since this kernel has no copy-on-write or shared-mapping
// page sharing to account for (see SPEC_FULL.md Non-goals).
package mem

import (
	"lock"
	"oommsg"
	"stats"
)

const pfx = "mem: "

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// PTE_P marks a page-table entry as present.
const PTE_P Pa_t = 1 << 0

/// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 1

/// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 2

/// PTE_PCD disables caching for the page.
const PTE_PCD Pa_t = 1 << 4

/// PTE_ADDR extracts the 20-bit frame number from a PTE.
const PTE_ADDR Pa_t = PGMASK

/// Pa_t represents a 32-bit physical address.
type Pa_t uint32

/// Bytepg_t is a byte-addressed page.
type Bytepg_t [PGSIZE]uint8

/// NFRAMES is the number of 4KB frames addressable by a 32-bit physical
/// address space (4GB / 4KB).
const NFRAMES = 1 << 20

/// Physmem_t is the flat-bitmap frame allocator: one bit per frame, a
/// free-cursor hint for the next probable free frame, and a single
/// spinlock serializing both (spec §4.1; lock-order leaf "frame_lock").
type Physmem_t struct {
	lock.Spinlock_t
	bitmap   [NFRAMES / 32]uint32
	startfrm uint32 // first frame index usable by the allocator
	nframes  uint32 // total usable frames
	cursor   uint32 // next frame index to probe
	free     uint32 // count of free frames, for OOM reporting
}

/// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

// allocStats tallies frame-allocator traffic. A no-op when stats.Stats
// is false, same as every other counter in the stats package; compiled
// in regardless so enabling the build flag needs no code changes here.
var allocStats struct {
	Allocs      stats.Counter_t
	Frees       stats.Counter_t
	OOMs        stats.Counter_t
	AllocCycles stats.Cycles_t
}

/// Stats returns a human-readable dump of frame-allocator counters, or
/// the empty string when stats.Stats is disabled.
func Stats() string {
	return stats.Stats2String(allocStats)
}

/// Phys_init reserves [start, end) (in frame units) as the allocatable
/// pool and marks every other frame permanently used. Frames below
/// startfrm are assumed to hold the kernel image, multiboot structures,
/// and the frames the bootstrap page tables already occupy.
func Phys_init(startfrm, nframes uint32) *Physmem_t {
	phys := Physmem
	phys.startfrm = startfrm
	phys.nframes = nframes
	phys.cursor = startfrm
	// mark every frame outside [startfrm, startfrm+nframes) as used so a
	// stray get_page never walks off the managed pool.
	for i := range phys.bitmap {
		phys.bitmap[i] = ^uint32(0)
	}
	for f := startfrm; f < startfrm+nframes; f++ {
		phys.clearbit(f)
	}
	phys.free = nframes
	return phys
}

func (phys *Physmem_t) setbit(f uint32) {
	phys.bitmap[f/32] |= 1 << (f % 32)
}

func (phys *Physmem_t) clearbit(f uint32) {
	phys.bitmap[f/32] &^= 1 << (f % 32)
}

func (phys *Physmem_t) tstbit(f uint32) bool {
	return phys.bitmap[f/32]&(1<<(f%32)) != 0
}

/// Get_page allocates one frame, returning its physical address. On
/// exhaustion it notifies oommsg.OomCh and returns ok=false; the caller
/// surfaces a typed memory-exhaustion error (defs.ENOMEM) rather than
/// Get_page itself, matching the teacher's convention of pushing errno
/// translation to the call site.
func (phys *Physmem_t) Get_page() (Pa_t, bool) {
	tstart := stats.Rdtsc()
	saved := phys.Acquire()
	defer phys.Release(saved)

	start := phys.cursor
	for n := uint32(0); n < phys.nframes; n++ {
		f := phys.startfrm + (start-phys.startfrm+n)%phys.nframes
		if !phys.tstbit(f) {
			phys.setbit(f)
			phys.free--
			phys.cursor = f + 1
			allocStats.Allocs.Inc()
			allocStats.AllocCycles.Add(tstart)
			return Pa_t(f) << PGSHIFT, true
		}
	}
	phys.reportOOM()
	return 0, false
}

/// Put_page frees the frame at physical address pa. It panics if the
/// frame is already free, mirroring the teacher's XXXPANIC discipline
/// for invariant violations rather than returning an error for what is
/// always a caller bug.
func (phys *Physmem_t) Put_page(pa Pa_t) {
	f := uint32(pa >> PGSHIFT)
	saved := phys.Acquire()
	defer phys.Release(saved)

	if f < phys.startfrm || f >= phys.startfrm+phys.nframes {
		panic("put_page: frame outside managed pool")
	}
	if !phys.tstbit(f) {
		panic("put_page: double free")
	}
	phys.clearbit(f)
	phys.free++
	allocStats.Frees.Inc()
}

/// Nfree reports the number of currently free frames.
func (phys *Physmem_t) Nfree() uint32 {
	saved := phys.Acquire()
	defer phys.Release(saved)
	return phys.free
}

func (phys *Physmem_t) reportOOM() {
	allocStats.OOMs.Inc()
	resume := make(chan bool)
	select {
	case oommsg.OomCh <- oommsg.Oommsg_t{Need: 1, Resume: resume}:
		<-resume
	default:
		// no reclaim loop listening; caller's ENOMEM path still fires.
	}
}
