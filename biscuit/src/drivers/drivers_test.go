package drivers

import (
	"defs"
	"testing"
)

type fakeBlk struct{}

func (fakeBlk) Open(minor int) defs.Err_t  { return 0 }
func (fakeBlk) Close(minor int) defs.Err_t { return 0 }
func (fakeBlk) Read(minor, blocks, lba int, buf []uint8) (int, defs.Err_t) {
	return len(buf), 0
}
func (fakeBlk) Write(minor, blocks, lba int, buf []uint8) (int, defs.Err_t) {
	return len(buf), 0
}

type fakeChar struct{}

func (fakeChar) Open(minor int) defs.Err_t     { return 0 }
func (fakeChar) Close(minor int) defs.Err_t    { return 0 }
func (fakeChar) Read(minor int, buf []uint8) (int, defs.Err_t)  { return 0, 0 }
func (fakeChar) Write(minor int, buf []uint8) (int, defs.Err_t) { return len(buf), 0 }

func TestRegisterAndGetBlkDev(t *testing.T) {
	Reset()
	if err := Register_blk_dev(D_RAMDISK, fakeBlk{}); err != 0 {
		t.Fatalf("register failed: %d", err)
	}
	if Get_blk_dev_ops(D_RAMDISK) == nil {
		t.Fatal("expected registered block ops back")
	}
	if Get_char_dev_ops(D_RAMDISK) != nil {
		t.Fatal("a block-device slot must not satisfy a char-device lookup")
	}
}

func TestRegisterTwiceIsEalready(t *testing.T) {
	Reset()
	if err := Register_char_dev(D_CONSOLE, fakeChar{}); err != 0 {
		t.Fatalf("first register failed: %d", err)
	}
	if err := Register_char_dev(D_CONSOLE, fakeChar{}); err != -defs.EALREADY {
		t.Fatalf("second register = %d, want -EALREADY", err)
	}
}

func TestRegisterOutOfRangeMajorIsEinval(t *testing.T) {
	Reset()
	if err := Register_blk_dev(NMajors, fakeBlk{}); err != -defs.EINVAL {
		t.Fatalf("out-of-range major = %d, want -EINVAL", err)
	}
	if err := Register_blk_dev(-1, fakeBlk{}); err != -defs.EINVAL {
		t.Fatalf("negative major = %d, want -EINVAL", err)
	}
}

func TestGetOpsOnEmptySlotIsNil(t *testing.T) {
	Reset()
	if Get_blk_dev_ops(D_RAMDISK) != nil {
		t.Fatal("unregistered major must return nil block ops")
	}
	if Get_char_dev_ops(D_PROF) != nil {
		t.Fatal("unregistered major must return nil char ops")
	}
}

func TestDevnumSplitdevRoundTrip(t *testing.T) {
	cases := []struct{ major, minor int }{
		{0, 0}, {1, 5}, {D_RAMDISK, 255}, {31, 1},
	}
	for _, c := range cases {
		dn := Devnum(c.major, c.minor)
		major, minor := Splitdev(dn)
		if major != c.major || minor != c.minor {
			t.Fatalf("Splitdev(Devnum(%d,%d)) = (%d,%d)", c.major, c.minor, major, minor)
		}
	}
}
