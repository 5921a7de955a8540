// Package replay implements the Replayer: print mode (walks the log
// newest-first, writing formatted lines to the console) and export mode
// (walks the log newest-first, copying raw records into a caller-supplied
// byte buffer behind a frame header of tag, sender bus address and record
// count). Both modes share one traversal
// algorithm, varying only in what happens on an accepted record and on a
// corrupt/missing block. Grounded on lsm/sstable/sstable.go's disk-block
// reconstruction-with-validation loop and original_source/error.c's
// error_log_replay backward ring walk.
package replay

import (
	"context"
	"fmt"

	"errlog/busaddr"
	"errlog/console"
	"errlog/decoder"
	"errlog/model"
	"errlog/persist"
	"errlog/ring"
)

// Replayer walks the combined RAM-ring/persisted-block log.
type Replayer struct {
	ring      *ring.Store
	persister *persist.Persister // nil when persistence is disabled
	decoder   *decoder.Registry
	console   console.Sink
}

// New returns a Replayer over store, optionally backed by persister.
func New(store *ring.Store, persister *persist.Persister, reg *decoder.Registry, sink console.Sink) *Replayer {
	return &Replayer{ring: store, persister: persister, decoder: reg, console: sink}
}

// sink receives traversal events. Print and export modes each implement
// this differently; the walk itself is identical either way.
type sink interface {
	// accept is called for each valid record whose level meets the
	// caller's threshold. Returns true to stop the walk.
	accept(rec model.ErrorRecord) bool
	// gap reports a block-number discontinuity (print mode only).
	gap(expected, got uint16)
	// blockInvalid reports a block that failed signature/CRC validation
	// and was not the expected end-of-log (print mode only).
	blockInvalid(addr uint16)
	// blankLine marks the skip-break within a block where the first
	// invalid slot was hit scanning downward (print mode only).
	blankLine()
}

type noopEvents struct{}

func (noopEvents) gap(uint16, uint16)  {}
func (noopEvents) blockInvalid(uint16) {}
func (noopEvents) blankLine()          {}

// Print walks the log newest-first, writing one formatted line per
// accepted record to the console. num == 0 means unlimited; otherwise
// stops once num records have been emitted.
func (r *Replayer) Print(ctx context.Context, num uint16, minLevel uint8) error {
	emitted := 0
	limit := int(num)
	s := &printSink{r: r, limit: limit, emitted: &emitted}
	if r.persister != nil {
		return r.walkBlocks(ctx, minLevel, s)
	}
	r.walkRing(minLevel, limit, s)
	return nil
}

// ExportToMemory walks the log newest-first, serializing each accepted
// record into dest[model.FrameHeaderSize:] as a fixed-width image. The
// frame is prefixed per spec.md §6's exported-memory table: frame tag(1),
// senderBusAddr(1), record count(2). Stops when the remaining space would
// not hold another record. Returns the number of bytes written (including
// the header).
func (r *Replayer) ExportToMemory(ctx context.Context, dest []byte, minLevel uint8, senderBusAddr uint8) (int, error) {
	if len(dest) < model.FrameHeaderSize {
		return 0, nil
	}
	count := 0
	off := model.FrameHeaderSize
	s := &exportSink{dest: dest, off: &off, count: &count}

	var err error
	if r.persister != nil {
		err = r.walkBlocks(ctx, minLevel, s)
	} else {
		r.walkRing(minLevel, -1, s)
	}

	dest[0] = model.SPIErrorDatTag
	dest[1] = senderBusAddr
	putUint16(dest[2:4], uint16(count))
	return off, err
}

// --- print sink ---

type printSink struct {
	r       *Replayer
	limit   int
	emitted *int
}

func (s *printSink) accept(rec model.ErrorRecord) bool {
	s.r.console.Print(s.r.formatLine(rec))
	*s.emitted++
	return s.limit > 0 && *s.emitted >= s.limit
}

func (s *printSink) gap(expected, got uint16) {
	s.r.console.Print(fmt.Sprintf("-- gap in block log: expected number %d, found %d --", expected, got))
}

func (s *printSink) blockInvalid(addr uint16) {
	s.r.console.Print(fmt.Sprintf("-- block at address %d failed signature/checksum validation --", addr))
}

func (s *printSink) blankLine() {
	s.r.console.Print("")
}

func (r *Replayer) formatLine(rec model.ErrorRecord) string {
	buf := make([]byte, decoder.FormatBufSize)
	text := r.decoder.Decode(buf, rec.Source, rec.Err, rec.Argument, 0)
	return fmt.Sprintf("%d:%s(%d) : %s", rec.Time, model.Band(rec.Level), rec.Level, text)
}

// --- export sink ---

type exportSink struct {
	noopEvents
	dest  []byte
	off   *int
	count *int
}

func (s *exportSink) accept(rec model.ErrorRecord) bool {
	if *s.off+model.RecordSize > len(s.dest) {
		return true
	}
	rec.Put(s.dest[*s.off : *s.off+model.RecordSize])
	*s.off += model.RecordSize
	*s.count++
	return false
}

func putUint16(buf []byte, v uint16) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
}

// PrintSPIErr is the print-spi-err consumer side of the exported memory
// format (spec.md §6): it decodes a frame produced by ExportToMemory and
// writes one formatted line per record to sink, resolving the sending
// node's symbolic name through lookup. A frame with the wrong tag is
// rejected outright rather than partially decoded.
func PrintSPIErr(frame []byte, reg *decoder.Registry, lookup busaddr.Lookup, sink console.Sink) error {
	if len(frame) < model.FrameHeaderSize {
		return fmt.Errorf("errlog: exported frame too short: %d bytes", len(frame))
	}
	if frame[0] != model.SPIErrorDatTag {
		return fmt.Errorf("errlog: exported frame has wrong tag 0x%02x", frame[0])
	}
	senderAddr := frame[1]
	count := uint16(frame[2]) | uint16(frame[3])<<8

	name, ok := "", false
	if lookup != nil {
		name, ok = lookup.Lookup(uint16(senderAddr))
	}
	if !ok {
		name = fmt.Sprintf("bus-addr-%d", senderAddr)
	}

	off := model.FrameHeaderSize
	for i := uint16(0); i < count; i++ {
		if off+model.RecordSize > len(frame) {
			return fmt.Errorf("errlog: exported frame truncated at record %d of %d", i, count)
		}
		rec := model.UnmarshalRecord(frame[off : off+model.RecordSize])
		off += model.RecordSize

		buf := make([]byte, decoder.FormatBufSize)
		text := reg.Decode(buf, rec.Source, rec.Err, rec.Argument, 0)
		sink.Print(fmt.Sprintf("[%s] %d:%s(%d) : %s", name, rec.Time, model.Band(rec.Level), rec.Level, text))
	}
	return nil
}

// --- RAM-ring traversal (persistence disabled) ---

// walkRing walks the RAM ring backward from next_idx-1, stopping at the
// first invalid slot, honoring limit (<=0 means unlimited).
func (r *Replayer) walkRing(minLevel uint8, limit int, s sink) {
	slots, nextIdx := r.ring.Snapshot()
	n := len(slots)
	if n == 0 {
		return
	}
	idx := nextIdx
	start := idx
	emitted := 0
	for {
		idx--
		if idx < 0 {
			idx = n - 1
		}
		rec := slots[idx]
		if !rec.IsValid() {
			break
		}
		if rec.Level >= minLevel {
			if s.accept(rec) {
				return
			}
			emitted++
			if limit > 0 && emitted >= limit {
				return
			}
		}
		if idx == start {
			break
		}
	}
}

// --- persisted-block traversal ---

// walkBlocks walks blocks backward from the persister's current address,
// reading each through the shared transfer buffer under the storage
// lock, validating signature and CRC, detecting block-number gaps, and
// iterating each block's record array from N-1 down to 0, skipping
// invalid slots rather than stopping at the first one: the newest block
// is only partially filled, and OnRecord appends at the bottom of the
// array, so its invalid (zeroed) slots sit above the valid ones, not
// below as in the RAM ring. Stops on wrapping back to the starting
// address or when a block predicted to be empty (expected number reached
// 0) fails validation.
func (r *Replayer) walkBlocks(ctx context.Context, minLevel uint8, s sink) error {
	p := r.persister
	layout := p.Layout()
	driver := p.Driver()
	xfer := p.XferBuf()

	if err := driver.Lock(ctx); err != nil {
		return err
	}
	defer driver.Unlock()

	buf, err := xfer.Get(ctx, int(layout.BlockSize))
	if err != nil {
		return err
	}
	defer xfer.Free()

	startAddr := p.CurrentBlock()
	addr := startAddr
	expectedNumber := p.BlockNumber()
	last := false // design note §9(3): initialised false

	first := true
	for {
		if !first && addr == startAddr {
			break
		}
		first = false

		if err := driver.ReadBlock(ctx, addr, buf); err != nil {
			return err
		}
		blk, perr := model.ParseBlock(buf, layout)
		if perr != nil {
			if last {
				break
			}
			s.blockInvalid(addr)
			addr = p.PrevBlockAddr(addr)
			if expectedNumber == 0 {
				break
			}
			expectedNumber--
			continue
		}

		if blk.Number != expectedNumber {
			s.gap(expectedNumber, blk.Number)
			expectedNumber = blk.Number
		}

		stop := false
		sawInvalid := false
		for i := len(blk.Records) - 1; i >= 0; i-- {
			rec := blk.Records[i]
			if !rec.IsValid() {
				if !sawInvalid {
					s.blankLine()
					sawInvalid = true
				}
				continue
			}
			if rec.Level >= minLevel {
				if s.accept(rec) {
					stop = true
					break
				}
			}
		}
		if stop {
			return nil
		}

		if expectedNumber == 0 {
			last = true
		}
		addr = p.PrevBlockAddr(addr)
		if expectedNumber > 0 {
			expectedNumber--
		}
	}
	return nil
}
