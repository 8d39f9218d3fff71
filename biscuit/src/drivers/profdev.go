package drivers

import (
	"bytes"

	"github.com/google/pprof/profile"

	"defs"
	"stats"
)

// ProfDev is the D_PROF character device: reading it snapshots the
// per-CPU per-vector interrupt counters (spec.md §4.9 step 2) into a
// pprof-compatible profile.Profile instead of a bespoke text format
// (SPEC_FULL.md domain-stack wiring).
type ProfDev struct{}

func (ProfDev) Open(minor int) defs.Err_t  { return 0 }
func (ProfDev) Close(minor int) defs.Err_t { return 0 }

func (ProfDev) Write(minor int, buf []uint8) (int, defs.Err_t) {
	return 0, -defs.EINVAL
}

/// Read serializes a fresh interrupt-count profile into buf, truncating
/// if buf is shorter than the encoded profile (same convention as a
/// /proc-style pseudo-file).
func (ProfDev) Read(minor int, buf []uint8) (int, defs.Err_t) {
	p := snapshot()
	var b bytes.Buffer
	if err := p.Write(&b); err != nil {
		return 0, -defs.EINVAL
	}
	n := copy(buf, b.Bytes())
	return n, 0
}

func snapshot() *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "interrupts", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "vector", Unit: "count"},
		Period:     1,
	}

	locByVector := map[uint8]*profile.Location{}
	for vec := 0; vec < stats.MaxVectors; vec++ {
		total := stats.IrqTotal(uint8(vec))
		if total == 0 {
			continue
		}
		loc, ok := locByVector[uint8(vec)]
		if !ok {
			fn := &profile.Function{
				ID:   uint64(len(p.Function)) + 1,
				Name: vectorName(uint8(vec)),
			}
			p.Function = append(p.Function, fn)
			loc = &profile.Location{
				ID:   uint64(len(p.Location)) + 1,
				Line: []profile.Line{{Function: fn}},
			}
			p.Location = append(p.Location, loc)
			locByVector[uint8(vec)] = loc
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{total},
		})
	}
	return p
}

func vectorName(vec uint8) string {
	switch {
	case vec < 0x20:
		return "exception"
	case vec < 0x30:
		return "pic-irq"
	case vec < 0x80:
		return "apic-irq"
	case vec == 0x80:
		return "syscall"
	default:
		return "ipi"
	}
}
