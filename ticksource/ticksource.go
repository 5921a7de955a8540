// Package ticksource declares the process-wide monotonic tick source
// consumed by the Reporter when stamping records (spec.md §6).
package ticksource

// Source returns a monotonically increasing tick count.
type Source interface {
	Now() uint32
}
