// Package persist implements the Block Persister: it wraps the Record
// Store into a fixed-layout Block and writes it back to a designated
// block-address range on external storage, advancing to the next block
// when the ring wraps. Grounded on lsm/wal/wal.go's block-at-a-time
// durable write / advance-on-full state machine and on
// lsm/block_manager/block_manager.go's address-keyed read/write shape.
package persist

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"errlog/model"
	"errlog/ring"
	"errlog/storage"
	"errlog/xferbuf"
)

// ErrNotRunning is returned by operations that require a completed
// RecordingStart when the persister has not yet been started (spec.md
// §7: "running remains false, so subsequent reports are RAM-only").
var ErrNotRunning = errors.New("errlog: persister not running")

// Persister owns the current block, the storage address cursor, and the
// running flag. Its mutable state (currentBlock, running, block.Number)
// is only ever mutated from within the ring's mutex region, per spec.md
// §3 ownership rules; Persister itself adds no additional mutex.
type Persister struct {
	driver storage.Driver
	xfer   xferbuf.Buffer
	log    *zap.SugaredLogger

	layout    model.Layout
	addrStart uint16
	addrEnd   uint16

	block        *model.Block
	currentBlock uint16
	running      bool
}

// New returns a Persister for the given device and address range. It is
// inert (Running() == false) until RecordingStart succeeds.
func New(driver storage.Driver, xfer xferbuf.Buffer, layout model.Layout, addrStart, addrEnd uint16, log *zap.SugaredLogger) *Persister {
	return &Persister{
		driver:    driver,
		xfer:      xfer,
		log:       log,
		layout:    layout,
		addrStart: addrStart,
		addrEnd:   addrEnd,
		block:     model.NewBlock(layout),
	}
}

// Running reports whether RecordingStart has completed successfully.
func (p *Persister) Running() bool { return p.running }

// CurrentBlock returns the storage address the next write lands at.
func (p *Persister) CurrentBlock() uint16 { return p.currentBlock }

// BlockNumber returns the in-memory block's current sequence number.
func (p *Persister) BlockNumber() uint16 { return p.block.Number }

func (p *Persister) wrapAddr(addr uint16) uint16 {
	if addr >= p.addrEnd {
		return p.addrStart
	}
	return addr
}

func (p *Persister) prevAddr(addr uint16) uint16 {
	if addr <= p.addrStart {
		return p.addrEnd - 1
	}
	return addr - 1
}

// RecordingStart scans persistent storage for the newest existing block,
// sets the current address to the following block, bumps the in-memory
// block number, writes the in-memory block, and sets running. Storage
// lock and transfer buffer acquisition are retried with bounded backoff
// honoring ctx's deadline as the RTOS wait timeout.
func (p *Persister) RecordingStart(ctx context.Context, ring *ring.Store) error {
	if err := p.driver.Init(ctx); err != nil {
		p.log.Warnw("errlog: storage init failed, staying RAM-only", "err", err)
		return err
	}

	if err := withBackoff(ctx, func() (struct{}, error) { return struct{}{}, p.driver.Lock(ctx) }); err != nil {
		p.log.Warnw("errlog: storage lock failed during recording start, staying RAM-only", "err", err)
		return err
	}
	defer p.driver.Unlock()

	buf, err := withBackoff(ctx, func() ([]byte, error) { return p.xfer.Get(ctx, int(p.layout.BlockSize)) })
	if err != nil {
		p.log.Warnw("errlog: transfer buffer acquisition failed during recording start, staying RAM-only", "err", err)
		return err
	}
	defer p.xfer.Free()

	var (
		foundAddr   uint16
		foundNumber uint16
		found       bool
	)

	for addr := p.addrStart; addr < p.addrEnd; addr++ {
		if err := p.driver.ReadBlock(ctx, addr, buf); err != nil {
			continue
		}
		blk, err := model.ParseBlock(buf, p.layout)
		if err != nil {
			continue
		}
		// Tie-break: "later encountered wins", predicate is >=.
		if !found || blk.Number >= foundNumber {
			foundAddr = addr
			foundNumber = blk.Number
			found = true
		}
	}

	ring.Lock()
	defer ring.Unlock()
	if found {
		p.currentBlock = p.wrapAddr(foundAddr + 1)
		p.block.Number = foundNumber + 1
	} else {
		p.currentBlock = p.addrStart
		p.block.Number = 0
	}

	out := p.block.Marshal(p.layout)
	if err := p.driver.WriteBlock(ctx, p.currentBlock, out); err != nil {
		p.log.Warnw("errlog: initial block write failed, staying RAM-only", "err", err)
		return err
	}

	p.running = true
	return nil
}

// OnRecord is invoked by the Reporter, while still holding the ring
// mutex, immediately after a ring.Store.RecordUnlocked call. It
// serializes the current in-memory block (computing the CRC over every
// byte except the checksum) and writes the whole block back to
// currentBlock, so a power loss between ring-slot writes leaves the most
// recent error persisted. On BlockFull it advances currentBlock
// (wrapping), clears the RAM record array, and bumps the block number.
func (p *Persister) OnRecord(ctx context.Context, ring *ring.Store, full ring.Fullness) error {
	if !p.running {
		return ErrNotRunning
	}

	slots := ring.SlotsLocked()
	copy(p.block.Records, slots)

	out := p.block.Marshal(p.layout)
	if err := p.driver.WriteBlock(ctx, p.currentBlock, out); err != nil {
		p.log.Warnw("errlog: block write failed", "addr", p.currentBlock, "err", err)
		return err
	}

	if full == ring.Full {
		p.currentBlock = p.wrapAddr(p.currentBlock + 1)
		ring.ClearSlotsLocked()
		for i := range p.block.Records {
			p.block.Records[i] = model.ErrorRecord{}
		}
		p.block.Number++
	}
	return nil
}

// ClearSavedErrors erases [addrStart, addrEnd) on storage and, on
// success, resets the in-memory block, the ring cursor, and the address/
// number cursors. Runs under the ring mutex.
func (p *Persister) ClearSavedErrors(ctx context.Context, ring *ring.Store) error {
	ring.Lock()
	defer ring.Unlock()

	if err := withBackoff(ctx, func() (struct{}, error) { return struct{}{}, p.driver.Lock(ctx) }); err != nil {
		return err
	}
	defer p.driver.Unlock()

	if err := p.driver.Erase(ctx, p.addrStart, p.addrEnd); err != nil {
		return err
	}

	ring.ClearSlotsLocked()
	p.block = model.NewBlock(p.layout)
	p.currentBlock = p.addrStart
	return nil
}

// PrevBlockAddr exposes the wrap-aware address decrement used by the
// Replayer to walk blocks backward.
func (p *Persister) PrevBlockAddr(addr uint16) uint16 { return p.prevAddr(addr) }

// AddrRange returns the configured [start, end) storage address range.
func (p *Persister) AddrRange() (uint16, uint16) { return p.addrStart, p.addrEnd }

// Layout returns the block geometry this persister was built with.
func (p *Persister) Layout() model.Layout { return p.layout }

// Driver exposes the underlying storage driver to the Replayer, which
// shares the same device and transfer buffer for its own block walk.
func (p *Persister) Driver() storage.Driver { return p.driver }

// XferBuf exposes the shared transfer buffer to the Replayer.
func (p *Persister) XferBuf() xferbuf.Buffer { return p.xfer }

func withBackoff[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil {
			return v, err
		}
		return v, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(2*time.Second))
}
