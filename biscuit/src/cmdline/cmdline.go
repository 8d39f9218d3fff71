// Package cmdline parses the multiboot command-line string into a typed
// Config_t, the way the teacher's limits package held typed, globally
// reachable configuration (see SPEC_FULL.md §6).
package cmdline

import "strconv"

const pfx = "cmdline: "

/// MAX_CMD_LINE bounds the command-line string length accepted from the
/// bootloader.
const MAX_CMD_LINE = 1024

/// Config_t holds every recognized boot parameter, with the compile-time
/// defaults spec.md §6 lists. Unrecognized keys are ignored, matching the
/// teacher's permissive boot-arg handling.
type Config_t struct {
	HeapValidate  bool
	UseDebugPort  bool
	UseVboxPort   bool
	DoTest        bool
	Root          string
	Apic          int
	Loglevel      int
	NetLoglevel   int
	EthLoglevel   int
	IrqLog        bool
	PataRO        bool
	AhciRO        bool
	SchedIPI      bool
	Vga           bool
	UseBiosFont   bool
	TcpDisableCC  bool
	IrqWatch      int
	UseACPI       bool
	UseMSI        bool
}

// Apic delivery modes, spec §6 "apic ∈ {0,1,2,3}".
const (
	ApicModePIC                 = 0
	ApicModeFixedBSP            = 1
	ApicModeLogicalFixed        = 2
	ApicModeLogicalLowestPrio   = 3
)

/// Defaults returns the compile-time default configuration.
func Defaults() Config_t {
	return Config_t{
		HeapValidate: false,
		UseDebugPort: false,
		UseVboxPort:  false,
		DoTest:       false,
		Root:         "/",
		Apic:         ApicModeFixedBSP,
		Loglevel:     1,
		NetLoglevel:  0,
		EthLoglevel:  0,
		IrqLog:       false,
		PataRO:       false,
		AhciRO:       false,
		SchedIPI:     true,
		Vga:          true,
		UseBiosFont:  true,
		TcpDisableCC: false,
		IrqWatch:     -1,
		UseACPI:      true,
		UseMSI:       true,
	}
}

/// Parse splits the flat "key=value key2=value2" command line and
/// overlays recognized keys onto the compile-time defaults.
func Parse(line string) Config_t {
	cfg := Defaults()
	if len(line) > MAX_CMD_LINE {
		line = line[:MAX_CMD_LINE]
	}
	for _, tok := range splitFields(line) {
		k, v, ok := splitKV(tok)
		if !ok {
			continue
		}
		apply(&cfg, k, v)
	}
	return cfg
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

func splitKV(tok string) (string, string, bool) {
	for i := 0; i < len(tok); i++ {
		if tok[i] == '=' {
			return tok[:i], tok[i+1:], true
		}
	}
	return tok, "1", true
}

func truthy(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}

func apply(cfg *Config_t, k, v string) {
	switch k {
	case "heap_validate":
		cfg.HeapValidate = truthy(v)
	case "use_debug_port":
		cfg.UseDebugPort = truthy(v)
	case "use_vbox_port":
		cfg.UseVboxPort = truthy(v)
	case "do_test":
		cfg.DoTest = truthy(v)
	case "root":
		cfg.Root = v
	case "apic":
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Apic = n
		}
	case "loglevel":
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loglevel = n
		}
	case "net_loglevel":
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NetLoglevel = n
		}
	case "eth_loglevel":
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EthLoglevel = n
		}
	case "irq_log":
		cfg.IrqLog = truthy(v)
	case "pata_ro":
		cfg.PataRO = truthy(v)
	case "ahci_ro":
		cfg.AhciRO = truthy(v)
	case "sched_ipi":
		cfg.SchedIPI = truthy(v)
	case "vga":
		cfg.Vga = truthy(v)
	case "use_bios_font":
		cfg.UseBiosFont = truthy(v)
	case "tcp_disable_cc":
		cfg.TcpDisableCC = truthy(v)
	case "irq_watch":
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IrqWatch = n
		}
	case "use_acpi":
		cfg.UseACPI = truthy(v)
	case "use_msi":
		cfg.UseMSI = truthy(v)
	}
}
