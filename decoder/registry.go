// Package decoder implements the pluggable decoder registry: a
// fixed-capacity table mapping a source-tag range to a decode callback,
// used to render a record to text. Modeled as a small fixed-size array of
// tagged entries rather than a map, per design note §9 ("avoid dynamic
// allocation so the subsystem remains usable on a target without a
// heap") — the same reasoning the teacher applies to its own
// fixed-resource singletons (block_manager.go's bounded LRU cache).
package decoder

import (
	"errors"
	"fmt"
)

// Callback renders one error event to text and returns it. It is handed
// the caller-owned 150-byte formatting buffer and may render into it or
// return a static string without touching it.
type Callback func(buf []byte, source uint16, errCode int32, argument uint16) string

// FormatBufSize is the fixed formatting buffer size decode callbacks are
// handed, matching the original's char buf[150].
const FormatBufSize = 150

var (
	// ErrTableFull is returned when all decoder slots are already used.
	ErrTableFull = errors.New("errlog: decoder table full")
	// ErrInvalidRange is returned when min > max.
	ErrInvalidRange = errors.New("errlog: invalid decoder source range")
	// ErrOverlap is returned when a new range intersects an installed one.
	ErrOverlap = errors.New("errlog: decoder source range overlaps an existing entry")
)

type entry struct {
	min, max uint16
	decode   Callback
	flags    uint32
}

// Registry is a fixed-capacity table of decoder entries, written only
// during startup registration and read by every report/replay.
type Registry struct {
	capacity int
	entries  []entry
}

// New returns an empty registry with room for capacity entries.
func New(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		entries:  make([]entry, 0, capacity),
	}
}

// Register installs a decoder for the inclusive source range [min, max].
// Fails with ErrTableFull if every slot is used, ErrInvalidRange if
// min > max, or ErrOverlap if [min,max] intersects any installed range.
// On success the entry is appended, preserving registration order.
func (r *Registry) Register(min, max uint16, decode Callback, flags uint32) error {
	if min > max {
		return ErrInvalidRange
	}
	if len(r.entries) >= r.capacity {
		return ErrTableFull
	}
	for _, e := range r.entries {
		if min <= e.max && e.min <= max {
			return ErrOverlap
		}
	}
	r.entries = append(r.entries, entry{min: min, max: max, decode: decode, flags: flags})
	return nil
}

// Decode scans the table in registration order and invokes the first
// entry whose range contains source and whose flags match queryFlags
// (flags&queryFlags != 0), or whose flags check is skipped entirely when
// queryFlags == 0. If no entry matches, formats the fallback
// "Unknown Source" string into buf and returns it.
func (r *Registry) Decode(buf []byte, source uint16, errCode int32, argument uint16, queryFlags uint32) string {
	for _, e := range r.entries {
		if source < e.min || source > e.max {
			continue
		}
		if queryFlags != 0 && e.flags&queryFlags == 0 {
			continue
		}
		return e.decode(buf, source, errCode, argument)
	}
	text := fmt.Sprintf("Unknown Source : source = %d, error = %d, argument = %d", source, errCode, argument)
	n := copy(buf, text)
	return string(buf[:n])
}
