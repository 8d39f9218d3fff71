// Package cpu is the CPU registry: a per-CPU entry populated from CPUID
// and the config-table parser, queried by the APIC driver and the IRQ
// balancer (spec §2 "CPU registry").
package cpu

import (
	"fmt"

	"platform"
)

const pfx = "cpu: "

/// Cpu_t describes one logical CPU detected on the system.
type Cpu_t struct {
	LapicID  uint32
	IsBSP    bool
	ApicVer  uint32
	Started  bool
	Vendor   string
	Family   uint32
	Model    uint32
}

var registry []Cpu_t

/// Reset clears the registry; used by boot-sequencing and tests.
func Reset() {
	registry = nil
}

/// Register adds a CPU entry, typically once per MADT local-APIC entry
/// or MP Configuration Table CPU entry discovered at boot.
func Register(lapicID uint32, isBSP bool) *Cpu_t {
	registry = append(registry, Cpu_t{LapicID: lapicID, IsBSP: isBSP})
	return &registry[len(registry)-1]
}

/// All returns every registered CPU entry.
func All() []Cpu_t {
	return registry
}

/// Count returns the number of registered CPUs.
func Count() int {
	return len(registry)
}

/// ByLapicID looks up a registered CPU by its local APIC ID.
func ByLapicID(id uint32) (*Cpu_t, bool) {
	for i := range registry {
		if registry[i].LapicID == id {
			return &registry[i], true
		}
	}
	return nil, false
}

/// Current returns the local APIC ID of the calling CPU, read fresh via
/// CPUID rather than cached, so it is always accurate even before the
/// registry is populated.
func Current() uint32 {
	return platform.LapicID()
}

/// Cpuinfo reads and decodes CPUID leaves 0/1 into vendor string,
/// family, and model, the way the teacher's reference kernels report
/// boot-time CPU identification.
func Cpuinfo() (vendor string, family, model uint32) {
	_, ebx, ecx, edx := platform.Cpuid(0, 0)
	vendor = vendorString(ebx, edx, ecx)

	eax1, _, _, _ := platform.Cpuid(1, 0)
	base := (eax1 >> 8) & 0xf
	extFam := (eax1 >> 20) & 0xff
	if base == 0xf {
		family = base + extFam
	} else {
		family = base
	}
	baseModel := (eax1 >> 4) & 0xf
	extModel := (eax1 >> 16) & 0xf
	if base == 0x6 || base == 0xf {
		model = (extModel << 4) | baseModel
	} else {
		model = baseModel
	}
	return
}

func vendorString(ebx, edx, ecx uint32) string {
	b := make([]byte, 12)
	putDword(b[0:4], ebx)
	putDword(b[4:8], edx)
	putDword(b[8:12], ecx)
	return string(b)
}

func putDword(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

/// Status formats a one-line summary of every registered CPU, for the
/// boot banner and do_test diagnostics.
func Status() string {
	s := ""
	for _, c := range registry {
		role := "AP"
		if c.IsBSP {
			role = "BSP"
		}
		s += fmt.Sprintf("cpu lapic=%d (%s) started=%v\n", c.LapicID, role, c.Started)
	}
	return s
}
