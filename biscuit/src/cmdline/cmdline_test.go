package cmdline

import "testing"

func TestDefaultsMatchSpec(t *testing.T) {
	d := Defaults()
	if d.Apic != ApicModeFixedBSP {
		t.Fatalf("default apic mode = %d, want %d", d.Apic, ApicModeFixedBSP)
	}
	if d.IrqWatch != -1 {
		t.Fatalf("default irq_watch = %d, want -1 (disabled)", d.IrqWatch)
	}
	if d.Root != "/" {
		t.Fatalf("default root = %q, want /", d.Root)
	}
	if !d.UseACPI {
		t.Fatal("default use_acpi must be true")
	}
}

func TestParseOverlaysRecognizedKeys(t *testing.T) {
	cfg := Parse("root=/dev/ram0 apic=2 heap_validate=1 loglevel=3 irq_watch=40")
	if cfg.Root != "/dev/ram0" {
		t.Fatalf("root = %q", cfg.Root)
	}
	if cfg.Apic != ApicModeLogicalFixed {
		t.Fatalf("apic = %d, want %d", cfg.Apic, ApicModeLogicalFixed)
	}
	if !cfg.HeapValidate {
		t.Fatal("heap_validate should be true")
	}
	if cfg.Loglevel != 3 {
		t.Fatalf("loglevel = %d, want 3", cfg.Loglevel)
	}
	if cfg.IrqWatch != 40 {
		t.Fatalf("irq_watch = %d, want 40", cfg.IrqWatch)
	}
}

func TestParseIgnoresUnrecognizedKeys(t *testing.T) {
	cfg := Parse("bogus_key=7 root=/x")
	if cfg.Root != "/x" {
		t.Fatalf("root = %q, want /x", cfg.Root)
	}
}

func TestParseBareKeyDefaultsToOne(t *testing.T) {
	cfg := Parse("do_test vga=0")
	if !cfg.DoTest {
		t.Fatal("bare key do_test should be truthy")
	}
	if cfg.Vga {
		t.Fatal("vga=0 should be false")
	}
}

func TestParseTruncatesOverlongLine(t *testing.T) {
	long := make([]byte, MAX_CMD_LINE+100)
	for i := range long {
		long[i] = 'a'
	}
	// Should not panic despite exceeding MAX_CMD_LINE.
	_ = Parse(string(long))
}

func TestParseWhitespaceSeparatesFieldsOnTabsAndSpaces(t *testing.T) {
	cfg := Parse("root=/a\tapic=3  loglevel=2")
	if cfg.Root != "/a" {
		t.Fatalf("root = %q", cfg.Root)
	}
	if cfg.Apic != ApicModeLogicalLowestPrio {
		t.Fatalf("apic = %d", cfg.Apic)
	}
	if cfg.Loglevel != 2 {
		t.Fatalf("loglevel = %d", cfg.Loglevel)
	}
}
