// Package platform is the only place in the kernel allowed to forge a raw
// physical address, I/O port, or MMIO register out of an integer. Every
// other package receives opaque values minted here and moves them around
// without ever constructing one from scratch.
package platform

import "unsafe"

const pfx = "platform: "

// Port_t is an x86 I/O port number. It can only be produced by a literal
// Port() conversion in this package.
type Port_t uint16

// Port converts a raw port number into a Port_t. Callers outside this
// package use it only for well-known, documented ports (0xCF8, 0x70, ...).
func Port(p uint16) Port_t { return Port_t(p) }

// Msr_t is a model-specific register index.
type Msr_t uint32

// Volatile32 is a pointer to a 32-bit hardware register. Its Load and
// Store are plain Go pointer dereferences of that address; nothing in
// them keeps the compiler from reordering, combining or eliding an
// access.
type Volatile32 struct {
	addr uintptr
}

// MMIO32 wraps a previously mapped virtual address (obtained from
// vm.Map_memio) as a 32-bit register window.
func MMIO32(va uintptr) Volatile32 {
	return Volatile32{addr: va}
}

// Load reads the register.
func (v Volatile32) Load() uint32 {
	return *(*uint32)(unsafe.Pointer(v.addr))
}

// Store writes the register.
func (v Volatile32) Store(val uint32) {
	*(*uint32)(unsafe.Pointer(v.addr)) = val
}

// At returns the register at byte offset off from v's base.
func (v Volatile32) At(off uintptr) Volatile32 {
	return Volatile32{addr: v.addr + off}
}

// Outb/Inb/Outw/Inw/Outl/Inl are implemented in platform_386.s; their Go
// declarations carry no body by design (see spec.md Design Notes §9).

// Outb writes a byte to an I/O port.
func Outb(port Port_t, val uint8)

// Inb reads a byte from an I/O port.
func Inb(port Port_t) uint8

// Outw writes a 16-bit word to an I/O port.
func Outw(port Port_t, val uint16)

// Inw reads a 16-bit word from an I/O port.
func Inw(port Port_t) uint16

// Outl writes a 32-bit dword to an I/O port.
func Outl(port Port_t, val uint32)

// Inl reads a 32-bit dword from an I/O port.
func Inl(port Port_t) uint32

// Cpuid executes the CPUID instruction for the given leaf/subleaf and
// returns eax/ebx/ecx/edx.
func Cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

// Rdmsr reads a model-specific register.
func Rdmsr(msr Msr_t) uint64

// Wrmsr writes a model-specific register.
func Wrmsr(msr Msr_t, val uint64)

// Rdtsc returns the timestamp counter.
func Rdtsc() uint64

// Invlpg invalidates the local TLB entry for the given virtual address.
func Invlpg(va uintptr)

// Cli disables interrupts on the current CPU and returns the prior
// interrupt-enable state of EFLAGS.IF, for Sti to restore.
func Cli() bool

// Sti restores the interrupt-enable state previously returned by Cli.
func Sti(wasEnabled bool)

// Halt executes HLT, waiting for the next interrupt.
func Halt()

// Pause executes a PAUSE instruction, for spin-wait loops.
func Pause()

// CAS32 performs an atomic compare-and-swap on *addr.
func CAS32(addr *uint32, old, new uint32) bool

// LapicID returns this CPU's local APIC ID (from CPUID leaf 1, ebx[31:24]).
func LapicID() uint32 {
	_, ebx, _, _ := Cpuid(1, 0)
	return ebx >> 24
}
