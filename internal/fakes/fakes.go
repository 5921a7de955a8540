// Package fakes provides in-memory test doubles for every external
// collaborator the errlog core consumes: storage.Driver, xferbuf.Buffer,
// ticksource.Source, console.Sink. Grounded on
// lsm/block_manager/block_manager_test.go's temp-file-backed test double
// shape, adapted to an in-memory byte-slice device since the core itself
// never assumes a filesystem.
package fakes

import (
	"context"
	"fmt"
	"sync"
)

// MemDriver is an in-memory storage.Driver backed by a map from address to
// block.
type MemDriver struct {
	mu        sync.Mutex
	blockSize uint64
	blocks    map[uint16][]byte
	locked    bool

	// FailRead/FailWrite/FailLock, when set, make the corresponding call
	// return this error unconditionally; used to simulate a faulted
	// device in tests.
	FailRead, FailWrite, FailLock error
}

// NewMemDriver returns a driver with numBlocks blocks of the given size,
// all initially zeroed (parses as "uninitialised" per spec.md §3).
func NewMemDriver(blockSize uint64, numBlocks int) *MemDriver {
	d := &MemDriver{blockSize: blockSize, blocks: make(map[uint16][]byte, numBlocks)}
	for i := 0; i < numBlocks; i++ {
		d.blocks[uint16(i)] = make([]byte, blockSize)
	}
	return d
}

func (d *MemDriver) Init(ctx context.Context) error { return nil }

func (d *MemDriver) Lock(ctx context.Context) error {
	if d.FailLock != nil {
		return d.FailLock
	}
	d.mu.Lock()
	d.locked = true
	return nil
}

func (d *MemDriver) Unlock() {
	d.locked = false
	d.mu.Unlock()
}

func (d *MemDriver) ReadBlock(ctx context.Context, addr uint16, buf []byte) error {
	if d.FailRead != nil {
		return d.FailRead
	}
	blk, ok := d.blocks[addr]
	if !ok {
		return fmt.Errorf("errlog/fakes: no such block %d", addr)
	}
	copy(buf, blk)
	return nil
}

func (d *MemDriver) WriteBlock(ctx context.Context, addr uint16, buf []byte) error {
	if d.FailWrite != nil {
		return d.FailWrite
	}
	blk, ok := d.blocks[addr]
	if !ok {
		return fmt.Errorf("errlog/fakes: no such block %d", addr)
	}
	copy(blk, buf)
	return nil
}

func (d *MemDriver) Erase(ctx context.Context, start, end uint16) error {
	for a := start; a < end; a++ {
		if blk, ok := d.blocks[a]; ok {
			for i := range blk {
				blk[i] = 0
			}
		}
	}
	return nil
}

func (d *MemDriver) BlockSize() uint64 { return d.blockSize }

// CorruptByte flips one byte in a stored block, used by tests exercising
// testable property 9 (CRC detection).
func (d *MemDriver) CorruptByte(addr uint16, offset int) {
	if blk, ok := d.blocks[addr]; ok && offset < len(blk) {
		blk[offset] ^= 0xFF
	}
}

// MemBuffer is a simple (non-semaphore) xferbuf.Buffer for single-
// threaded tests.
type MemBuffer struct {
	buf []byte
}

func NewMemBuffer(size int) *MemBuffer { return &MemBuffer{buf: make([]byte, size)} }

func (b *MemBuffer) Get(ctx context.Context, size int) ([]byte, error) {
	if size > len(b.buf) {
		size = len(b.buf)
	}
	return b.buf[:size], nil
}

func (b *MemBuffer) Free() {}

// Clock is a manually-advanced ticksource.Source.
type Clock struct {
	mu  sync.Mutex
	now uint32
}

func (c *Clock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// Set pins the clock to a specific value (for deterministic assertions).
func (c *Clock) Set(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = v
}

// LineSink is a console.Sink that records every printed line.
type LineSink struct {
	mu    sync.Mutex
	Lines []string
}

func (s *LineSink) Print(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lines = append(s.Lines, line)
}

func (s *LineSink) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Lines))
	copy(out, s.Lines)
	return out
}
