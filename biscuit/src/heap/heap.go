// Package heap is the kernel heap: malloc, malloc_aligned, and free
// backed by a doubly-linked boundary-tag freelist, serialized by a
// single spinlock (spec §4.3). The segment-list layout is grounded on
// the reference pack's ARM heap (mazboot/heap.go); the lock embedding
// follows the teacher's style of carrying a lock directly on the
// manager struct rather than a separate handle.
package heap

import (
	"unsafe"

	"cmdline"
	"lock"
	"util"
)

const pfx = "heap: "

const alignment = 16

// backptrSize is the width of the segment-address back-pointer stashed
// immediately before every data pointer Malloc_aligned returns. Storing
// it lets Free locate the header even when align > segHdrSize pushed
// the data pointer past the header's natural end, following the
// reference pack's ARM heap (mazboot/heap.go kmalloc/kfree).
const backptrSize = unsafe.Sizeof(uintptr(0))

// segment_t is the boundary-tag header placed at the start of every
// free or allocated block. allocated blocks' data area begins
// somewhere at or after segHdrSize+backptrSize past the header,
// wherever satisfies the requested alignment.
type segment_t struct {
	next      *segment_t
	prev      *segment_t
	allocated bool
	size      uintptr // total size including this header
}

var segHdrSize = unsafe.Sizeof(segment_t{})

// Extend_f grows the heap by mapping newly allocated frames up to a new
// top, bounded by the start of the MMIO region; it returns the new
// top address, or ok=false if no more room exists (spec §4.3
// "Extension").
type Extend_f func(newTop uintptr) (uintptr, bool)

/// Heap_t is the kernel heap manager: a spinlock-guarded boundary-tag
/// freelist plus the extension callback and optional validator.
/// Lock-hierarchy position: "heap_lock" in the §4.4 partial order,
/// acquired after address_space.lock and before pt_lock[pid].
type Heap_t struct {
	lock.Spinlock_t
	head     *segment_t
	top      uintptr
	limit    uintptr // mmio region base; extension never grows past this
	extend   Extend_f
	validate bool
}

var theHeap Heap_t

func segAt(addr uintptr) *segment_t {
	return (*segment_t)(unsafe.Pointer(addr))
}

func addrOf(s *segment_t) uintptr {
	return uintptr(unsafe.Pointer(s))
}

/// Init installs the heap over [start, start+initial) and records the
/// extension callback and the MMIO-region boundary it must not cross.
/// The validator is enabled when cfg.HeapValidate is set.
func Init(start uintptr, initial uintptr, limit uintptr, extend Extend_f, cfg cmdline.Config_t) {
	theHeap.head = segAt(start)
	*theHeap.head = segment_t{size: initial}
	theHeap.top = start + initial
	theHeap.limit = limit
	theHeap.extend = extend
	theHeap.validate = cfg.HeapValidate
}

/// Malloc allocates size bytes aligned to `alignment` and returns the
/// data pointer, or ok=false on exhaustion.
func Malloc(size uintptr) (uintptr, bool) {
	return Malloc_aligned(size, alignment)
}

/// Malloc_aligned allocates size bytes whose returned pointer is a
/// multiple of align, which must be a power of two; an align below
/// `alignment` is raised to `alignment`. Extends the heap via the registered callback when the
/// freelist cannot satisfy the request.
func Malloc_aligned(size uintptr, align uintptr) (uintptr, bool) {
	if align == 0 || align&(align-1) != 0 {
		panic(pfx + "malloc_aligned: align not a power of 2")
	}
	if align < alignment {
		align = alignment
	}
	// Worst case: the data pointer (header+backptr, then rounded up to
	// align) lands align-1 bytes past where it would with no padding.
	worst := util.Roundup(segHdrSize+backptrSize+size+(align-1), alignment)

	saved := theHeap.Acquire()
	defer theHeap.Release(saved)
	if theHeap.validate {
		theHeap.sweep()
	}

	for {
		if seg, ok := theHeap.findfit(worst); ok {
			return theHeap.carve(seg, size, align), true
		}
		if !theHeap.growby(worst) {
			return 0, false
		}
	}
}

func (h *Heap_t) findfit(need uintptr) (*segment_t, bool) {
	for s := h.head; s != nil; s = s.next {
		if !s.allocated && s.size >= need {
			return s, true
		}
	}
	return nil, false
}

// carve allocates size bytes aligned to align out of the free segment s,
// which findfit already verified is at least worst(size, align) bytes —
// big enough that the rounded-up used below can never exceed s.size. It
// computes the actual (not worst-case) bytes consumed from s's real
// address, splits off any remainder, and returns the aligned data
// pointer with its segment back-pointer recorded just before it.
func (h *Heap_t) carve(s *segment_t, size uintptr, align uintptr) uintptr {
	dataPtr := util.Roundup(addrOf(s)+segHdrSize+backptrSize, align)
	used := util.Roundup(dataPtr+size-addrOf(s), alignment)

	minSplit := segHdrSize + alignment
	if s.size >= used+minSplit {
		rest := segAt(addrOf(s) + used)
		*rest = segment_t{next: s.next, prev: s, size: s.size - used}
		if rest.next != nil {
			rest.next.prev = rest
		}
		s.next = rest
		s.size = used
	}
	s.allocated = true
	*(*uintptr)(unsafe.Pointer(dataPtr - backptrSize)) = addrOf(s)
	return dataPtr
}

func (h *Heap_t) growby(need uintptr) bool {
	newTop, ok := h.extend(h.top + need)
	if !ok || newTop > h.limit {
		return false
	}
	grown := newTop - h.top
	tail := tailSegment(h.head)
	if tail.allocated {
		ns := segAt(h.top)
		*ns = segment_t{prev: tail, size: grown}
		tail.next = ns
	} else {
		tail.size += grown
	}
	h.top = newTop
	return true
}

func tailSegment(head *segment_t) *segment_t {
	s := head
	for s.next != nil {
		s = s.next
	}
	return s
}

/// Free releases a block previously returned by Malloc/Malloc_aligned,
/// coalescing with adjacent free neighbors.
func Free(ptr uintptr) {
	saved := theHeap.Acquire()
	defer theHeap.Release(saved)

	s := segAt(*(*uintptr)(unsafe.Pointer(ptr - backptrSize)))
	if !s.allocated {
		panic(pfx + "free: double free")
	}
	s.allocated = false

	if s.next != nil && !s.next.allocated {
		s.size += s.next.size
		s.next = s.next.next
		if s.next != nil {
			s.next.prev = s
		}
	}
	if s.prev != nil && !s.prev.allocated {
		s.prev.size += s.size
		s.prev.next = s.next
		if s.next != nil {
			s.next.prev = s.prev
		}
	}
	if theHeap.validate {
		theHeap.sweep()
	}
}

// sweep walks the freelist checking each segment's size against the
// span between consecutive headers, panicking on the first corruption
// found. Gated by cmdline's heap_validate boot parameter (spec §4.3).
func (h *Heap_t) sweep() {
	for s := h.head; s != nil && s.next != nil; s = s.next {
		want := addrOf(s.next) - addrOf(s)
		if s.size != want {
			panic(pfx + "heap corruption: segment size mismatch")
		}
		if s.next.prev != s {
			panic(pfx + "heap corruption: broken back-link")
		}
	}
}

/// Nbytes returns the total bytes currently covered by the heap,
/// allocated and free.
func Nbytes() uintptr {
	saved := theHeap.Acquire()
	defer theHeap.Release(saved)
	return theHeap.top - addrOf(theHeap.head)
}
