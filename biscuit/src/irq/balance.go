package irq

import "cmdline"

/// Irq_balance re-programs every non-pinned, non-MSI vector's
/// redirection entry using the boot-time delivery mode, and asks the
/// PCI driver to re-program MSI message addresses by calling
/// msiRebalance when it is non-nil (spec §4.9 "Balancing"). Idempotent and retryable.
func Irq_balance(msiRebalance func()) {
	mu.Lock()
	m := mode
	for vec := VecAPICLo; vec <= VecAPICHi; vec++ {
		v := &vectors[vec]
		if !v.inUse || v.pinnedBSP || v.isMSI || m == cmdline.ApicModePIC {
			continue
		}
		programRedirection(v, vec)
	}
	mu.Unlock()

	if msiRebalance != nil {
		msiRebalance()
	}
}
