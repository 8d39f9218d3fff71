package scall

import (
	"testing"

	"defs"
	"pgtbl"
	"vm"
)

func resetTable() {
	for i := range table {
		table[i] = nil
	}
}

// Validate_buffer only inspects the PTE's present/user/writable bits, so
// the frame number here is arbitrary and never dereferenced.
func ptdWithUserPage(va uintptr, writable bool) *pgtbl.Ptd_t {
	ptd := &pgtbl.Ptd_t{}
	pte := pgtbl.Pte_t(0x00100000 | 0x1 | 0x4) // present | user
	if writable {
		pte |= 0x2
	}
	ptd[pgtbl.PTX(va)] = pte
	return ptd
}

func TestDispatchUnregisteredIsEnosys(t *testing.T) {
	resetTable()
	ctx := &Ctx_t{Eax: 5}
	Dispatch(ctx)
	if ctx.Eax != int32(-defs.ENOSYS) {
		t.Fatalf("Eax = %d, want -ENOSYS", ctx.Eax)
	}
}

func TestDispatchOutOfRangeIsEnosys(t *testing.T) {
	resetTable()
	ctx := &Ctx_t{Eax: NSyscalls}
	Dispatch(ctx)
	if ctx.Eax != int32(-defs.ENOSYS) {
		t.Fatalf("Eax = %d, want -ENOSYS", ctx.Eax)
	}
	ctx2 := &Ctx_t{Eax: -1}
	Dispatch(ctx2)
	if ctx2.Eax != int32(-defs.ENOSYS) {
		t.Fatalf("Eax = %d, want -ENOSYS", ctx2.Eax)
	}
}

func TestDispatchCallsBackendAndStoresResult(t *testing.T) {
	resetTable()
	Register(1, func(ctx *Ctx_t) int { return 42 }, false, 0, 0, DirRead)
	ctx := &Ctx_t{Eax: 1}
	Dispatch(ctx)
	if ctx.Eax != 42 {
		t.Fatalf("Eax = %d, want 42", ctx.Eax)
	}
}

func TestDispatchValidatesBufferArgument(t *testing.T) {
	resetTable()
	va := uintptr(0x8000_0000)
	called := false
	Register(2, func(ctx *Ctx_t) int {
		called = true
		return 0
	}, false, 1, 2, DirWrite)

	ctx := &Ctx_t{
		Eax: 2,
		A1:  va,
		A2:  uintptr(16),
		As:  &vm.Vm_t{PTD: ptdWithUserPage(va, true)},
	}
	Dispatch(ctx)
	if !called {
		t.Fatal("backend should run once buffer validation succeeds")
	}
	if ctx.Eax != 0 {
		t.Fatalf("Eax = %d, want 0", ctx.Eax)
	}
}

func TestDispatchRejectsUnmappedBuffer(t *testing.T) {
	resetTable()
	called := false
	Register(3, func(ctx *Ctx_t) int {
		called = true
		return 0
	}, false, 1, 2, DirWrite)

	ctx := &Ctx_t{
		Eax: 3,
		A1:  uintptr(0x9000_0000),
		A2:  uintptr(16),
		As:  &vm.Vm_t{PTD: &pgtbl.Ptd_t{}},
	}
	Dispatch(ctx)
	if called {
		t.Fatal("backend must not run when buffer validation fails")
	}
	if ctx.Eax != int32(-defs.EFAULT) {
		t.Fatalf("Eax = %d, want -EFAULT", ctx.Eax)
	}
}

func TestDispatchRestartLoopsUntilRestartCleared(t *testing.T) {
	resetTable()
	calls := 0
	Register(4, func(ctx *Ctx_t) int {
		calls++
		if calls == 1 {
			return -int(defs.EPAUSE)
		}
		return 7
	}, true, 0, 0, DirRead)

	ctx := &Ctx_t{Eax: 4, Restart: true}
	Dispatch(ctx)
	if calls != 2 {
		t.Fatalf("backend ran %d times, want 2", calls)
	}
	if ctx.Eax != 7 {
		t.Fatalf("Eax = %d, want 7", ctx.Eax)
	}
	if ctx.Restart {
		t.Fatal("Restart must be cleared before re-entering the backend")
	}
}

func TestDispatchNonRestartableStopsAtEpause(t *testing.T) {
	resetTable()
	calls := 0
	Register(5, func(ctx *Ctx_t) int {
		calls++
		return -int(defs.EPAUSE)
	}, false, 0, 0, DirRead)

	ctx := &Ctx_t{Eax: 5, Restart: true}
	Dispatch(ctx)
	if calls != 1 {
		t.Fatalf("backend ran %d times, want 1 (not restartable)", calls)
	}
	if ctx.Eax != int32(-defs.EPAUSE) {
		t.Fatalf("Eax = %d, want -EPAUSE", ctx.Eax)
	}
}
