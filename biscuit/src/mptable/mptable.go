// Package mptable scans the MP Floating Pointer Structure and MP
// Configuration Table for CPUs, buses, I/O APICs, and IRQ/local-interrupt
// routing entries — the fallback config-table source when no ACPI RSDP
// is present, or when acpi's routing lookups miss (spec §4.5).
package mptable

import (
	"unsafe"

	"cpu"
)

const pfx = "mptable: "

var floatSignature = [4]byte{'_', 'M', 'P', '_'}
var configSignature = [4]byte{'P', 'C', 'M', 'P'}

const (
	biosROMLow  uintptr = 0xf0000
	biosROMHi   uintptr = 0xfffff
	ebdaPtrAddr uintptr = 0x40e
	alignment   uintptr = 16
)

type floatPtr_t struct {
	Signature   [4]byte
	ConfigAddr  uint32
	Length      uint8
	Version     uint8
	Checksum    uint8
	Feature     [5]uint8
}

type configHeader_t struct {
	Signature   [4]byte
	Length      uint16
	Version     uint8
	Checksum    uint8
	OEMID       [8]byte
	ProductID   [12]byte
	OEMTable    uint32
	OEMLength   uint16
	EntryCount  uint16
	LapicAddr   uint32
	ExtLength   uint16
	ExtChecksum uint8
	_           uint8
}

const (
	entryCPU      = 0
	entryBus      = 1
	entryIOAPIC   = 2
	entryIOIntr   = 3
	entryLocalIntr = 4
)

/// Bus_t records an MP Configuration Table bus entry (e.g. "PCI   " or
/// "ISA   "), indexed by its bus ID for IRQ-routing lookups.
type Bus_t struct {
	ID   uint8
	Name string
}

/// IOIntr_t is an I/O interrupt routing entry: source bus/IRQ (or PCI
/// bus/device/pin) to destination I/O APIC and pin.
type IOIntr_t struct {
	IntrType  uint8
	Polarity  uint8
	Trigger   uint8
	SrcBus    uint8
	SrcIRQ    uint8
	DstAPICID uint8
	DstPin    uint8
}

/// IOApic_t records an MP Configuration Table I/O APIC entry.
type IOApic_t struct {
	ID   uint8
	Addr uint32
}

/// Tables_t is the parsed result of Scan.
type Tables_t struct {
	Found   bool
	Buses   []Bus_t
	IOApics []IOApic_t
	IOIntrs []IOIntr_t
}

func checksum8(base uintptr, length int) uint8 {
	var sum uint8
	for i := 0; i < length; i++ {
		sum += *(*uint8)(unsafe.Pointer(base + uintptr(i)))
	}
	return sum
}

func scanFor(sig [4]byte, low, hi uintptr) (uintptr, bool) {
	for p := low; p < hi; p += alignment {
		var probe [4]byte
		probe[0] = *(*uint8)(unsafe.Pointer(p))
		probe[1] = *(*uint8)(unsafe.Pointer(p + 1))
		probe[2] = *(*uint8)(unsafe.Pointer(p + 2))
		probe[3] = *(*uint8)(unsafe.Pointer(p + 3))
		if probe == sig {
			return p, true
		}
	}
	return 0, false
}

func findFloatPtr() (uintptr, bool) {
	ebda := uintptr(*(*uint16)(unsafe.Pointer(ebdaPtrAddr))) << 4
	if ebda != 0 {
		if p, ok := scanFor(floatSignature, ebda, ebda+1024); ok {
			return p, true
		}
	}
	return scanFor(floatSignature, biosROMLow, biosROMHi)
}

/// Scan locates the MP Floating Pointer Structure, walks the MP
/// Configuration Table, and registers every CPU entry with the cpu
/// package.
func Scan() Tables_t {
	fp, ok := findFloatPtr()
	if !ok {
		return Tables_t{}
	}
	f := (*floatPtr_t)(unsafe.Pointer(fp))
	if checksum8(fp, int(f.Length)*16) != 0 {
		return Tables_t{}
	}
	if f.ConfigAddr == 0 {
		// default configuration, no explicit table: not modeled here,
		// matching the teacher's reference kernels which target QEMU's
		// full-table MP implementation rather than the legacy defaults.
		return Tables_t{}
	}

	cfgAddr := uintptr(f.ConfigAddr)
	cfg := (*configHeader_t)(unsafe.Pointer(cfgAddr))
	if cfg.Signature != configSignature {
		return Tables_t{}
	}
	if checksum8(cfgAddr, int(cfg.Length)) != 0 {
		return Tables_t{}
	}

	out := Tables_t{Found: true}
	p := cfgAddr + unsafe.Sizeof(configHeader_t{})
	for i := uint16(0); i < cfg.EntryCount; i++ {
		typ := *(*uint8)(unsafe.Pointer(p))
		switch typ {
		case entryCPU:
			lapicID := *(*uint8)(unsafe.Pointer(p + 1))
			flags := *(*uint8)(unsafe.Pointer(p + 3))
			isBSP := flags&0x2 != 0
			if flags&0x1 != 0 {
				cpu.Register(uint32(lapicID), isBSP)
			}
			p += 20
		case entryBus:
			id := *(*uint8)(unsafe.Pointer(p + 1))
			var name [6]byte
			for j := 0; j < 6; j++ {
				name[j] = *(*uint8)(unsafe.Pointer(p + 2 + uintptr(j)))
			}
			out.Buses = append(out.Buses, Bus_t{ID: id, Name: string(name[:])})
			p += 8
		case entryIOAPIC:
			id := *(*uint8)(unsafe.Pointer(p + 1))
			addr := *(*uint32)(unsafe.Pointer(p + 4))
			out.IOApics = append(out.IOApics, IOApic_t{ID: id, Addr: addr})
			p += 8
		case entryIOIntr:
			intrType := *(*uint8)(unsafe.Pointer(p + 1))
			flags := *(*uint16)(unsafe.Pointer(p + 2))
			srcBus := *(*uint8)(unsafe.Pointer(p + 4))
			srcIRQ := *(*uint8)(unsafe.Pointer(p + 5))
			dstID := *(*uint8)(unsafe.Pointer(p + 6))
			dstPin := *(*uint8)(unsafe.Pointer(p + 7))
			out.IOIntrs = append(out.IOIntrs, IOIntr_t{
				IntrType: intrType, Polarity: uint8(flags & 0x3), Trigger: uint8((flags >> 2) & 0x3),
				SrcBus: srcBus, SrcIRQ: srcIRQ, DstAPICID: dstID, DstPin: dstPin,
			})
			p += 8
		case entryLocalIntr:
			p += 8
		default:
			// unrecognized entry type: nothing past the fixed-size
			// CPU/Bus/IOAPIC/IOIntr/LocalIntr records is expected on the
			// boards this kernel targets.
			p += 8
		}
	}
	return out
}

/// BusNamed returns the bus ID whose MP bus-type string has the given
/// prefix (e.g. "PCI" or "ISA"), used by the routing lookups.
func (t *Tables_t) BusNamed(prefix string) (uint8, bool) {
	for _, b := range t.Buses {
		if len(b.Name) >= len(prefix) && b.Name[:len(prefix)] == prefix {
			return b.ID, true
		}
	}
	return 0, false
}

/// Get_apic_pin_isa resolves the I/O APIC pin for ISA irq via the IO
/// interrupt routing entries whose source bus is the ISA bus.
//
// Quirk carried over from the system this table format originates from:
// the scan matches by src_irq but falls through to PIC-mode addressing
// (apic_pin = irq) when no MP routing entry names it, rather than
// failing the lookup outright — kept as-is as an Open Question decision
// (see DESIGN.md), not "fixed" to fail closed.
func (t *Tables_t) Get_apic_pin_isa(irq uint8) (pin uint8, ok bool) {
	isaBus, hasISA := t.BusNamed("ISA")
	for _, e := range t.IOIntrs {
		if hasISA && e.SrcBus == isaBus && e.SrcIRQ == irq {
			return e.DstPin, true
		}
	}
	return irq, true
}

/// Get_apic_pin_pci resolves the I/O APIC pin for a PCI (bus, device,
/// pinLetter) triple, pinLetter being 0='A'..3='D'.
func (t *Tables_t) Get_apic_pin_pci(bus, device uint8, pinLetter uint8) (pin uint8, ok bool) {
	srcIRQ := (device << 2) | pinLetter
	for _, e := range t.IOIntrs {
		if e.SrcBus == bus && e.SrcIRQ == srcIRQ {
			return e.DstPin, true
		}
	}
	return 0, false
}
