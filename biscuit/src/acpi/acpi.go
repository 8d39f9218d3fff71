// Package acpi scans the ACPI RSDP, RSDT, MADT, and FADT tables for
// CPUs, I/O APICs, and interrupt-source overrides (spec §4.5). Only
// static-table parsing is implemented — no AML execution (spec
// Non-goals). Only the 32-bit RSDT is walked; an ACPI 2.0+ XSDT is not
// read. The RSDP scan window and checksum-verification style are
// grounded on the reference pack's gopheros acpi driver.
package acpi

import (
	"unsafe"

	"cpu"
)

const pfx = "acpi: "

const (
	rsdpLocationLow uintptr = 0xe0000
	rsdpLocationHi  uintptr = 0xfffff
	rsdpAlignment   uintptr = 16
)

var rsdpSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

type rsdp_t struct {
	Signature [8]byte
	Checksum  uint8
	OEMID     [6]byte
	Revision  uint8
	RsdtAddr  uint32
	// ACPI 2.0+ fields (XSDT address, extended length/checksum) follow
	// but are unused: Scan reads only the RSDT root.
}

type sdtHeader_t struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       uint32
	CreatorRevision uint32
}

/// IOApic_t describes one I/O APIC discovered in the MADT.
type IOApic_t struct {
	ID      uint8
	Addr    uint32
	GSIBase uint32
}

/// Override_t is a MADT Interrupt Source Override entry: ISA irq N is
/// actually wired to global system interrupt GSI with the given
/// polarity/trigger mode.
type Override_t struct {
	Bus      uint8
	SourceIRQ uint8
	GSI      uint32
	Polarity uint8
	Trigger  uint8
}

/// Tables_t is the parsed result of Scan: every CPU found is registered
/// directly with the cpu package; I/O APICs and overrides are kept here
/// for the routing lookups in routing.go.
type Tables_t struct {
	Found     bool
	IOApics   []IOApic_t
	Overrides []Override_t
}

func checksum(base uintptr, length uint32) bool {
	var sum uint8
	for i := uint32(0); i < length; i++ {
		sum += *(*uint8)(unsafe.Pointer(base + uintptr(i)))
	}
	return sum == 0
}

func findRSDP() (uintptr, bool) {
	for p := rsdpLocationLow; p < rsdpLocationHi; p += rsdpAlignment {
		r := (*rsdp_t)(unsafe.Pointer(p))
		if r.Signature == rsdpSignature {
			if checksum(p, 20) {
				return p, true
			}
		}
	}
	return 0, false
}

/// Scan locates the RSDP, walks the RSDT for the MADT and FADT, and
/// registers every Local-APIC CPU entry with the cpu package. Returns
/// Tables_t{Found: false} if no RSDP is present, so the caller (kernel
/// boot sequencing) can fall back to mptable.
func Scan() Tables_t {
	addr, ok := findRSDP()
	if !ok {
		return Tables_t{}
	}
	r := (*rsdp_t)(unsafe.Pointer(addr))
	rsdt := (*sdtHeader_t)(unsafe.Pointer(uintptr(r.RsdtAddr)))
	if !checksum(uintptr(r.RsdtAddr), rsdt.Length) {
		return Tables_t{}
	}

	n := (rsdt.Length - uint32(unsafe.Sizeof(sdtHeader_t{}))) / 4
	base := uintptr(r.RsdtAddr) + unsafe.Sizeof(sdtHeader_t{})

	out := Tables_t{Found: true}
	for i := uint32(0); i < n; i++ {
		entryAddr := *(*uint32)(unsafe.Pointer(base + uintptr(i)*4))
		hdr := (*sdtHeader_t)(unsafe.Pointer(uintptr(entryAddr)))
		if !checksum(uintptr(entryAddr), hdr.Length) {
			continue
		}
		switch string(hdr.Signature[:]) {
		case "APIC":
			parseMADT(uintptr(entryAddr), hdr.Length, &out)
		case "FACP":
			// FADT: this kernel has no power-management or SCI use for
			// it yet, so only its presence/checksum is validated.
		}
	}
	return out
}

const (
	madtTypeLocalAPIC   = 0
	madtTypeIOAPIC      = 1
	madtTypeISOverride  = 2
)

func parseMADT(base uintptr, length uint32, out *Tables_t) {
	hdrLen := uint32(unsafe.Sizeof(sdtHeader_t{})) + 8 // + local apic addr, flags
	p := base + uintptr(hdrLen)
	end := base + uintptr(length)
	for p < end {
		typ := *(*uint8)(unsafe.Pointer(p))
		reclen := *(*uint8)(unsafe.Pointer(p + 1))
		if reclen == 0 {
			break
		}
		switch typ {
		case madtTypeLocalAPIC:
			apicID := *(*uint8)(unsafe.Pointer(p + 3))
			flags := *(*uint32)(unsafe.Pointer(p + 4))
			if flags&1 != 0 {
				cpu.Register(uint32(apicID), false)
			}
		case madtTypeIOAPIC:
			id := *(*uint8)(unsafe.Pointer(p + 2))
			addr := *(*uint32)(unsafe.Pointer(p + 4))
			gsiBase := *(*uint32)(unsafe.Pointer(p + 8))
			out.IOApics = append(out.IOApics, IOApic_t{ID: id, Addr: addr, GSIBase: gsiBase})
		case madtTypeISOverride:
			bus := *(*uint8)(unsafe.Pointer(p + 2))
			src := *(*uint8)(unsafe.Pointer(p + 3))
			gsi := *(*uint32)(unsafe.Pointer(p + 4))
			flags := *(*uint16)(unsafe.Pointer(p + 8))
			// MPS INTI flags: 0 = conforms to the (ISA) bus, i.e.
			// active-high/edge; 1 = high/edge; 3 = low/level.
			var pol, trig uint8 = PolarityHigh, TriggerEdge
			if flags&0x3 == 3 {
				pol = PolarityLow
			}
			if (flags>>2)&0x3 == 3 {
				trig = TriggerLevel
			}
			out.Overrides = append(out.Overrides, Override_t{
				Bus: bus, SourceIRQ: src, GSI: gsi,
				Polarity: pol, Trigger: trig,
			})
		}
		p += uintptr(reclen)
	}
}
