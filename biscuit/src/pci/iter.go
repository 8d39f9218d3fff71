package pci

import "iter"

/// Query_all ranges over every device found by the last Enumerate call.
func Query_all() iter.Seq[Dev_t] {
	return func(yield func(Dev_t) bool) {
		devMu.RLock()
		snap := append([]Dev_t(nil), devs...)
		devMu.RUnlock()

		for _, d := range snap {
			if !yield(d) {
				return
			}
		}
	}
}

/// Query_by_baseclass ranges over devices whose base class code matches.
func Query_by_baseclass(baseclass uint8) iter.Seq[Dev_t] {
	return func(yield func(Dev_t) bool) {
		for d := range Query_all() {
			if d.Baseclass == baseclass {
				if !yield(d) {
					return
				}
			}
		}
	}
}

/// Query_by_class ranges over devices whose (baseclass, subclass) pair
/// matches.
func Query_by_class(baseclass, subclass uint8) iter.Seq[Dev_t] {
	return func(yield func(Dev_t) bool) {
		for d := range Query_all() {
			if d.Baseclass == baseclass && d.Subclass == subclass {
				if !yield(d) {
					return
				}
			}
		}
	}
}
