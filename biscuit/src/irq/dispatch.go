package irq

import (
	"apic"
	"cmdline"
	"platform"
	"stats"
)

/// SyscallHook is called for vector 0x80 with interrupts enabled, the
/// syscall dispatcher's entry point (wired by the kernel package at
/// boot; spec §4.9 step 3 "int 0x80 ⇒ ... invoke the syscall
/// dispatcher").
var SyscallHook func(cpuid uint32)

/// ExceptionHook is called for vectors below 0x20 (#PF, #NM, and
/// everything else the debugger would otherwise own). Process
/// management and the debugger are out of this kernel's scope (spec
/// Non-goals), so the kernel package wires only what it implements
/// (the page-fault classifier) and leaves the rest unhandled.
var ExceptionHook func(cpuid uint32, vector uint8)

/// DebuggerActive reports whether the (unimplemented) debugger wants
/// every non-exception, non-debugger vector swallowed (spec §4.9 step
/// 1). Always false: no debugger exists in this kernel's scope.
var DebuggerActive = func() bool { return false }

/// Handle_interrupt is the top-half dispatch entry point (spec §4.9).
/// It returns true when the handler chain asked for the debugger
/// (meaningless without one, but preserved for fidelity) and increments
/// every counter and EOI step the spec names; it does not perform the
/// scheduler hand-off of steps 4-6, which belong to process management,
/// out of scope here.
func Handle_interrupt(cpuid uint32, vector uint8) bool {
	if DebuggerActive() && vector >= VecPICLo {
		do_eoi(int(vector))
		return false
	}

	stats.IncIrq(cpuid, vector)

	switch {
	case vector == VecSyscall:
		if SyscallHook != nil {
			SyscallHook(cpuid)
		}
		return false

	case vector < VecPICLo:
		if ExceptionHook != nil {
			ExceptionHook(cpuid, vector)
		}
		return false

	case vector >= VecPICLo:
		debugRequested := runChain(int(vector))
		do_eoi(int(vector))
		return debugRequested
	}
	return false
}

func runChain(vector int) bool {
	mu.Lock()
	handlers := append([]Handler_f(nil), vectors[vector].handlers...)
	mu.Unlock()

	requested := false
	for _, h := range handlers {
		if h() {
			requested = true
		}
	}
	return requested
}

/// do_eoi signals end-of-interrupt for vector, skipping the exception
/// range and vectors 0x80/0x81, which never EOI (spec §4.9 "EOI").
func do_eoi(vector int) {
	if vector < VecPICLo {
		return
	}
	if vector == VecSyscall || vector == VecSyscall+1 {
		return
	}
	mu.Lock()
	m := mode
	mu.Unlock()
	if m == cmdline.ApicModePIC {
		pic_eoi(vector)
		return
	}
	apic.EOI()
}

// PIC command port and OCW2 non-specific-EOI command, for the legacy
// fallback path.
const (
	picMasterCmd = 0x20
	picSlaveCmd  = 0xA0
	picEOICmd    = 0x20
)

func pic_eoi(vector int) {
	irqLine := vector - VecPICLo
	if irqLine >= 8 {
		platform.Outb(platform.Port(picSlaveCmd), picEOICmd)
	}
	platform.Outb(platform.Port(picMasterCmd), picEOICmd)
}
