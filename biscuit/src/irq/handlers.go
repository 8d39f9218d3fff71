package irq

import (
	"cmdline"
	"pci"
)

/// Add_handler_pci wires handler to dev's interrupt line: MSI when the
/// device supports it and the boot parameter permits, else the APIC pin
/// (or legacy IRQ line in PIC mode) resolved from the config tables
/// (spec §4.9 "add_handler_pci").
func Add_handler_pci(handler Handler_f, priority int, dev pci.Dev_t, useMSI bool) (int, bool) {
	mu.Lock()
	r, m := routing, mode
	mu.Unlock()

	if dev.HasMSI && useMSI {
		return Add_isr(-1, priority, handler, true, &dev, true, 0, 0)
	}

	if m == cmdline.ApicModePIC {
		return Add_isr(int(dev.InterruptLine), priority, handler, true, &dev, false, 0, 0)
	}

	pin, ok := r.Apic_pin_for_pci(dev.Bus, dev.Dev, 0)
	if !ok {
		return 0, false
	}
	polarity, trigger := r.Trigger_polarity(pin, false)
	return Add_isr(int(pin), priority, handler, true, &dev, false, polarity, trigger)
}

/// Add_handler_pci_bdf resolves (bus, dev, fn) against the enumerated
/// device table and wires handler to it, for drivers that only keep the
/// address of their device rather than the Dev_t returned by
/// enumeration.
func Add_handler_pci_bdf(handler Handler_f, priority int, bus, dev, fn uint8, useMSI bool) (int, bool) {
	d, ok := pci.Lookup(bus, dev, fn)
	if !ok {
		return 0, false
	}
	return Add_handler_pci(handler, priority, d, useMSI)
}

/// Add_handler_isa wires handler to an ISA interrupt line: the APIC pin
/// resolved from ACPI (MP fallback) in APIC mode, or the raw IRQ number
/// in PIC mode (spec §4.9 "add_handler_isa"). When pin is true the
/// resulting vector is pinned to the BSP.
func Add_handler_isa(handler Handler_f, priority int, irqLine int, pin bool) (int, bool) {
	mu.Lock()
	r, m := routing, mode
	mu.Unlock()

	if m == cmdline.ApicModePIC {
		return Add_isr(irqLine, priority, handler, pin, nil, false, 0, 0)
	}

	apicPin, ok := r.Apic_pin_for_isa(uint8(irqLine))
	if !ok {
		return 0, false
	}
	polarity, trigger := r.Trigger_polarity(apicPin, true)
	return Add_isr(int(apicPin), priority, handler, pin, nil, false, polarity, trigger)
}
