// Package ramdisk is the RAM disk block device: a byte window over the
// physical memory range the multiboot module loader identified at boot
// (spec §4.11).
package ramdisk

import (
	"defs"
	"drivers"
)

const pfx = "ramdisk: "

const blockSize = 512

/// Ramdisk_t is the sole RAM disk instance, backed by a physical-window
/// slice mapped once at boot.
type Ramdisk_t struct {
	window []uint8
}

var disk Ramdisk_t

/// Init installs window (already mapped by boot sequencing, spanning
/// [start, end) of the multiboot module) as the RAM disk's backing
/// store and registers it under major.
func Init(window []uint8, major int) defs.Err_t {
	disk = Ramdisk_t{window: window}
	return drivers.Register_blk_dev(major, Ramdisk_t{window: window})
}

func (r Ramdisk_t) validMinor(minor int) bool {
	return minor == 0
}

/// Open validates minor; the RAM disk has exactly one device, minor 0.
func (r Ramdisk_t) Open(minor int) defs.Err_t {
	if !r.validMinor(minor) {
		return -defs.ENODEV
	}
	return 0
}

/// Close is a no-op: the RAM disk has no per-open state.
func (r Ramdisk_t) Close(minor int) defs.Err_t {
	if !r.validMinor(minor) {
		return -defs.ENODEV
	}
	return 0
}

/// Read copies blocks*blockSize bytes starting at lba into buf,
/// returning a typed I/O error if the window would overflow.
func (r Ramdisk_t) Read(minor int, blocks int, lba int, buf []uint8) (int, defs.Err_t) {
	if !r.validMinor(minor) {
		return 0, -defs.ENODEV
	}
	off := lba * blockSize
	n := blocks * blockSize
	if off < 0 || n < 0 || off+n > len(r.window) || n > len(buf) {
		return 0, -defs.EIO
	}
	copy(buf, r.window[off:off+n])
	return n, 0
}

/// Write copies blocks*blockSize bytes from buf into the window at lba.
func (r Ramdisk_t) Write(minor int, blocks int, lba int, buf []uint8) (int, defs.Err_t) {
	if !r.validMinor(minor) {
		return 0, -defs.ENODEV
	}
	off := lba * blockSize
	n := blocks * blockSize
	if off < 0 || n < 0 || off+n > len(r.window) || n > len(buf) {
		return 0, -defs.EIO
	}
	copy(r.window[off:off+n], buf[:n])
	return n, 0
}
