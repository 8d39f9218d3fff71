// Package scall is the syscall dispatcher: a fixed table indexed by the
// call number carried in the trap context, validating user pointers
// before handing off to a backend (spec §4.12).
package scall

import (
	"defs"
	"pgtbl"
	"vm"
)

const pfx = "scall: "

// NSyscalls bounds the call-number space. Out-of-range numbers return
// -ENOSYS (spec §4.12).
const NSyscalls = 128

/// Direction_t says which way a validated buffer argument flows.
type Direction_t int

const (
	DirRead  Direction_t = iota // kernel writes into the user buffer
	DirWrite                    // kernel reads from the user buffer
)

/// Ctx_t is the subset of the trap context a syscall adapter needs:
/// the five register-carried integer/pointer arguments and the field
/// the dispatcher writes the signed return value into.
type Ctx_t struct {
	As         *vm.Vm_t
	A1, A2, A3 uintptr
	A4, A5     uintptr
	Eax        int32 // syscall number in, return value out
	Restart    bool  // set by PM when a restartable syscall must re-enter
}

/// Backend_f is a syscall's implementation: it reads its arguments out
/// of ctx and returns the signed value the dispatcher stores back into
/// ctx.Eax (negative is -errno).
type Backend_f func(ctx *Ctx_t) int

/// entry_t is one syscall table slot. restartable marks syscalls that
/// re-enter the same adapter with the original context when interrupted
/// by a signal installed SA_RESTART-style (spec §4.12).
type entry_t struct {
	backend     Backend_f
	restartable bool
	// bufArg, when nonzero, names which of A1..A5 is a user pointer this
	// adapter validates before calling backend; bufLenArg names which
	// argument holds its length. 0 means no buffer argument.
	bufArg, bufLenArg int
	dir               Direction_t
}

var table [NSyscalls]*entry_t

/// Register installs backend at call number num. bufArg/bufLenArg index
/// into 1..5 (matching A1..A5); pass 0 for syscalls with no user buffer
/// to validate.
func Register(num int, backend Backend_f, restartable bool, bufArg, bufLenArg int, dir Direction_t) {
	table[num] = &entry_t{backend: backend, restartable: restartable,
		bufArg: bufArg, bufLenArg: bufLenArg, dir: dir}
}

func argn(ctx *Ctx_t, n int) uintptr {
	switch n {
	case 1:
		return ctx.A1
	case 2:
		return ctx.A2
	case 3:
		return ctx.A3
	case 4:
		return ctx.A4
	case 5:
		return ctx.A5
	}
	return 0
}

/// Dispatch is the syscall adapter layer: validate, unpack, call,
/// store. Called with interrupts enabled, from the int 0x80 path (spec
/// §4.9 step 3, §4.12).
func Dispatch(ctx *Ctx_t) {
	num := int(ctx.Eax)
	if num < 0 || num >= NSyscalls || table[num] == nil {
		ctx.Eax = int32(-defs.ENOSYS)
		return
	}
	e := table[num]

	if e.bufArg != 0 {
		va := argn(ctx, e.bufArg)
		length := int(argn(ctx, e.bufLenArg))
		wantWrite := e.dir == DirRead
		if err := pgtbl.Validate_buffer(ctx.As.PTD, va, length, wantWrite); err != 0 {
			ctx.Eax = int32(err)
			return
		}
	}

	for {
		rv := e.backend(ctx)
		if rv == -int(defs.EPAUSE) && e.restartable && ctx.Restart {
			ctx.Restart = false
			continue
		}
		ctx.Eax = int32(rv)
		return
	}
}
