package acpi

import "mptable"

const (
	PolarityHigh = 0
	PolarityLow  = 1
	TriggerEdge  = 0
	TriggerLevel = 1
)

/// Routing_t is the merged view over whichever config tables were found
/// at boot: ACPI wins when present, MP tables are the fallback (spec
/// §4.5: "where both are present, ACPI wins for bus/IRQ routing").
type Routing_t struct {
	acpi Tables_t
	mp   mptable.Tables_t
}

/// Resolve scans both table formats (boot sequencing calls this once)
/// and returns the merged routing view used by apic_pin_for_isa,
/// apic_pin_for_pci, trigger_polarity, and primary_ioapic.
func Resolve() Routing_t {
	return Routing_t{acpi: Scan(), mp: mptable.Scan()}
}

/// ResolveMPOnly builds a routing view from an already-scanned MP
/// Configuration Table with no ACPI side at all, for boot sequencing
/// when cfg.UseACPI is false: the caller still wants MP-table routing,
/// just with ACPI's tables never consulted (spec §4.5's disable knob),
/// rather than Resolve()'s ACPI-wins merge.
func ResolveMPOnly(mp mptable.Tables_t) Routing_t {
	return Routing_t{mp: mp}
}

/// Apic_pin_for_isa resolves the I/O APIC pin routed to ISA irq.
func (r Routing_t) Apic_pin_for_isa(irq uint8) (uint8, bool) {
	if r.acpi.Found {
		for _, o := range r.acpi.Overrides {
			if o.SourceIRQ == irq {
				return uint8(o.GSI), true
			}
		}
		// no override named this irq under ACPI: use the MP table's
		// ISA routing when one was found (see mptable.Get_apic_pin_isa's
		// documented quirk), otherwise map it straight through.
		if r.mp.Found {
			return r.mp.Get_apic_pin_isa(irq)
		}
		return irq, true
	}
	if r.mp.Found {
		return r.mp.Get_apic_pin_isa(irq)
	}
	return irq, true
}

/// Apic_pin_for_pci resolves the I/O APIC pin for a PCI (bus, device,
/// pinLetter) triple. ACPI has no per-function PCI routing table of its
/// own in this kernel's scope (that lives in the DSDT's _PRT, which is
/// AML and out of scope per Non-goals), so PCI routing always comes from
/// the MP Configuration Table when present.
func (r Routing_t) Apic_pin_for_pci(bus, device, pinLetter uint8) (uint8, bool) {
	if r.mp.Found {
		return r.mp.Get_apic_pin_pci(bus, device, pinLetter)
	}
	return 0, false
}

/// Trigger_polarity returns the trigger mode and polarity routed pin
/// should be programmed with. Per spec §4.5's bus-default rule: a PCI
/// source is level/active-low, an ISA source is edge/active-high, unless
/// an explicit ACPI override says otherwise. isISA selects which bus
/// default applies when no override matches.
func (r Routing_t) Trigger_polarity(apicPin uint8, isISA bool) (polarity, trigger uint8) {
	if r.acpi.Found {
		for _, o := range r.acpi.Overrides {
			if uint8(o.GSI) == apicPin {
				return o.Polarity, o.Trigger
			}
		}
	}
	if isISA {
		return PolarityHigh, TriggerEdge
	}
	return PolarityLow, TriggerLevel
}

/// Primary_ioapic returns the lowest-GSI-base I/O APIC, the one assumed
/// to own the legacy ISA IRQ range.
func (r Routing_t) Primary_ioapic() (id uint8, addr uint32, ok bool) {
	if r.acpi.Found && len(r.acpi.IOApics) > 0 {
		best := r.acpi.IOApics[0]
		for _, a := range r.acpi.IOApics[1:] {
			if a.GSIBase < best.GSIBase {
				best = a
			}
		}
		return best.ID, best.Addr, true
	}
	if r.mp.Found && len(r.mp.IOApics) > 0 {
		a := r.mp.IOApics[0]
		return a.ID, a.Addr, true
	}
	return 0, 0, false
}
