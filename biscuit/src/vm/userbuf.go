package vm

import (
	"unsafe"

	"defs"
	"pgtbl"
	"util"
)

// / Userbuf_t validates and copies bytes between kernel buffers and a
// / user-space range, the syscall dispatcher's primitive for validating
// / a caller-supplied pointer before touching it (spec §6). Unlike the
// / teacher's version it carries no Userio_i-style fdops dependency;
// / every method works directly against an address space's PTD.
type Userbuf_t struct {
	userva uintptr
	len    int
	off    int
	as     *Vm_t
}

// / Ub_init initialises the buffer for the given address space.
func (ub *Userbuf_t) Ub_init(as *Vm_t, uva uintptr, length int) {
	if length < 0 {
		panic(pfx + "userbuf: negative length")
	}
	ub.userva = uva
	ub.len = length
	ub.off = 0
	ub.as = as
}

// / Remain returns the number of unread bytes left in the buffer.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

// / Total returns the buffer's total length.
func (ub *Userbuf_t) Total() int {
	return ub.len
}

/// Copyout copies from the kernel buffer src into the user range,
/// validating every touched page is present, user-accessible, and
/// writable before any byte crosses the boundary.
func (ub *Userbuf_t) Copyout(src []uint8) (int, defs.Err_t) {
	n := util.Min(len(src), ub.Remain())
	if n == 0 {
		return 0, 0
	}
	dstva := ub.userva + uintptr(ub.off)
	if err := pgtbl.Validate_buffer(ub.as.PTD, dstva, n, true); err != 0 {
		return 0, err
	}
	dst := (*[1 << 30]uint8)(unsafe.Pointer(dstva))[:n:n]
	copy(dst, src[:n])
	ub.off += n
	return n, 0
}

/// Copyin copies from the user range into the kernel buffer dst,
/// validating the source pages are present and user-accessible.
func (ub *Userbuf_t) Copyin(dst []uint8) (int, defs.Err_t) {
	n := util.Min(len(dst), ub.Remain())
	if n == 0 {
		return 0, 0
	}
	srcva := ub.userva + uintptr(ub.off)
	if err := pgtbl.Validate_buffer(ub.as.PTD, srcva, n, false); err != 0 {
		return 0, err
	}
	src := (*[1 << 30]uint8)(unsafe.Pointer(srcva))[:n:n]
	copy(dst, src)
	ub.off += n
	return n, 0
}

/// Userreadn reads an n-byte (1/2/4/8) little-endian integer at va.
func Userreadn(as *Vm_t, va uintptr, n int) (int, defs.Err_t) {
	if err := pgtbl.Validate_buffer(as.PTD, va, n, false); err != 0 {
		return 0, err
	}
	b := (*[8]uint8)(unsafe.Pointer(va))[:n:n]
	return util.Readn(b, n, 0), 0
}

/// Userwriten writes val using n bytes (1/2/4/8) at va.
func Userwriten(as *Vm_t, va uintptr, n int, val int) defs.Err_t {
	if err := pgtbl.Validate_buffer(as.PTD, va, n, true); err != 0 {
		return err
	}
	b := (*[8]uint8)(unsafe.Pointer(va))[:n:n]
	util.Writen(b, n, 0, val)
	return 0
}
