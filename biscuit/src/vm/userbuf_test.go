package vm

import (
	"testing"
	"unsafe"

	"defs"
	"mem"
	"pgtbl"
)

// Copyout/Copyin/Userreadn/Userwriten dereference the validated virtual
// address directly, so unlike pgtbl's own tests these need the PTE to
// point at real, addressable memory rather than an arbitrary frame
// number. backingPtd hands back a one-page Go byte array together with
// a PTD mapping its own address as both the virtual and (unused)
// physical frame, bypassing Map_page's privileged Invlpg entirely (see
// DESIGN.md).
func backingPtd(rw bool) (*pgtbl.Ptd_t, uintptr, *[mem.PGSIZE]byte) {
	page := &[mem.PGSIZE]byte{}
	va := uintptr(unsafe.Pointer(page))

	bits := uint32(mem.PTE_P | mem.PTE_U)
	if rw {
		bits |= uint32(mem.PTE_W)
	}
	pte := pgtbl.Pte_t(uint32(va)&uint32(mem.PTE_ADDR) | bits)

	ptd := &pgtbl.Ptd_t{}
	ptd[pgtbl.PTX(va)] = pte
	return ptd, va, page
}

func TestUserbufCopyoutWritesIntoUserMemory(t *testing.T) {
	ptd, va, page := backingPtd(true)
	as := &Vm_t{PTD: ptd}

	var ub Userbuf_t
	ub.Ub_init(as, va, 4)
	n, err := ub.Copyout([]uint8{1, 2, 3, 4})
	if err != 0 || n != 4 {
		t.Fatalf("Copyout = %d, %d", n, err)
	}
	if page[0] != 1 || page[3] != 4 {
		t.Fatalf("Copyout did not write through to backing memory: %v", page[:4])
	}
	if ub.Remain() != 0 {
		t.Fatalf("Remain() = %d, want 0", ub.Remain())
	}
}

func TestUserbufCopyoutClampsToRemainder(t *testing.T) {
	ptd, va, _ := backingPtd(true)
	as := &Vm_t{PTD: ptd}

	var ub Userbuf_t
	ub.Ub_init(as, va, 2)
	n, err := ub.Copyout([]uint8{1, 2, 3, 4})
	if err != 0 || n != 2 {
		t.Fatalf("Copyout = %d, %d, want 2, 0", n, err)
	}
}

func TestUserbufCopyinReadsFromUserMemory(t *testing.T) {
	ptd, va, page := backingPtd(false)
	page[0], page[1] = 9, 8
	as := &Vm_t{PTD: ptd}

	var ub Userbuf_t
	ub.Ub_init(as, va, 2)
	dst := make([]uint8, 2)
	n, err := ub.Copyin(dst)
	if err != 0 || n != 2 || dst[0] != 9 || dst[1] != 8 {
		t.Fatalf("Copyin = %v, %d, %d", dst, n, err)
	}
}

func TestUserbufCopyoutRejectsReadOnlyPage(t *testing.T) {
	ptd, va, _ := backingPtd(false)
	as := &Vm_t{PTD: ptd}

	var ub Userbuf_t
	ub.Ub_init(as, va, 4)
	if _, err := ub.Copyout([]uint8{1}); err != -defs.EFAULT {
		t.Fatalf("Copyout on read-only page: err=%d, want -EFAULT", err)
	}
}

func TestUserreadnWriten32RoundTrip(t *testing.T) {
	ptd, va, _ := backingPtd(true)
	as := &Vm_t{PTD: ptd}

	if err := Userwriten(as, va, 4, 0x1234abcd); err != 0 {
		t.Fatalf("Userwriten: err=%d", err)
	}
	got, err := Userreadn(as, va, 4)
	if err != 0 || got != 0x1234abcd {
		t.Fatalf("Userreadn = %#x, %d, want %#x, 0", got, err, 0x1234abcd)
	}
}

func TestUserreadnUnmappedIsEfault(t *testing.T) {
	as := &Vm_t{PTD: &pgtbl.Ptd_t{}}
	if _, err := Userreadn(as, 0x9000_0000, 4); err != -defs.EFAULT {
		t.Fatalf("Userreadn on unmapped page: err=%d, want -EFAULT", err)
	}
}
