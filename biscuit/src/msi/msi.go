// Package msi allocates MSI interrupt vectors and builds the
// message-address/message-data pair PCI devices program into their MSI
// capability (spec §4.8).
package msi

import "sync"

const pfx = "msi: "

// Msivec_t represents an MSI interrupt vector.
type Msivec_t uint

// Msivecs_t tracks available MSI vectors.
type Msivecs_t struct {
	sync.Mutex
	avail map[Msivec_t]bool
}

var msivecs = Msivecs_t{
	avail: map[Msivec_t]bool{56: true, 57: true, 58: true, 59: true, 60: true,
		61: true, 62: true, 63: true},
}

// Msi_alloc allocates an available MSI vector.
func Msi_alloc() Msivec_t {
	msivecs.Lock()
	defer msivecs.Unlock()

	for i := range msivecs.avail {
		delete(msivecs.avail, i)
		return i
	}
	panic("no more MSI vecs")
}

// Msi_free releases a previously allocated MSI vector.
func Msi_free(vector Msivec_t) {
	msivecs.Lock()
	defer msivecs.Unlock()

	if msivecs.avail[vector] {
		panic("double free")
	}
	msivecs.avail[vector] = true
}

// MSI message-address layout (Intel SDM vol 3, 10.11): fixed 0xFEE
// region base, destination APIC ID in bits [19:12], redirection-hint and
// destination-mode bits below that.
const msiAddrBase uint32 = 0xFEE00000

/// ConfigMSI builds the 32-bit message address and message data a PCI
/// device's MSI capability is programmed with so that, on an edge, it
/// raises vector on the local APIC of apicID.
func ConfigMSI(apicID uint8, vector Msivec_t) (addr uint32, data uint32) {
	addr = msiAddrBase | uint32(apicID)<<12
	data = uint32(vector) // edge-triggered, fixed delivery mode (bits 8:10 = 0)
	return
}
