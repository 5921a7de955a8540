// Package busaddr declares the symbolic bus-address lookup consumed by
// the print-spi-err path (spec.md §6): resolving a numeric bus address to
// a human-readable name for the "sender bus address" field of an exported
// telemetry frame.
package busaddr

// Lookup resolves a bus address to a symbolic name.
type Lookup interface {
	Lookup(addr uint16) (name string, ok bool)
}
