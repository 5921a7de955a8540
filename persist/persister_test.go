package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"errlog/internal/fakes"
	"errlog/internal/xlog"
	"errlog/model"
	"errlog/ring"
)

func newTestPersister(t *testing.T, addrStart, addrEnd uint16) (*Persister, *fakes.MemDriver) {
	t.Helper()
	layout := model.NewLayout(512)
	driver := fakes.NewMemDriver(512, int(addrEnd))
	xfer := fakes.NewMemBuffer(512)
	return New(driver, xfer, layout, addrStart, addrEnd, xlog.Noop()), driver
}

// On uninitialised (all-zero) storage, RecordingStart must find nothing
// and fall back to the start of the address range at block number 0.
func TestRecordingStartOnUninitialisedStorage(t *testing.T) {
	p, _ := newTestPersister(t, 0, 4)
	store := ring.New(p.layout.N)

	require.NoError(t, p.RecordingStart(context.Background(), store))
	require.True(t, p.Running())
	require.Equal(t, uint16(0), p.CurrentBlock())
	require.Equal(t, uint16(0), p.BlockNumber())
}

// Testable property 8: when two stored blocks carry the same sequence
// number, the later-scanned address (higher address) wins the tie-break,
// and the next write lands one past it.
func TestRecordingStartTieBreakPrefersLaterAddress(t *testing.T) {
	p, driver := newTestPersister(t, 0, 4)
	store := ring.New(p.layout.N)

	tied := model.NewBlock(p.layout)
	tied.Number = 5
	tied.Records[0] = model.ErrorRecord{Valid: model.ErrorDatMagic, Level: 90, Source: 1, Err: 1, Argument: 0, Time: 1}
	buf := tied.Marshal(p.layout)

	require.NoError(t, driver.WriteBlock(context.Background(), 1, buf))
	require.NoError(t, driver.WriteBlock(context.Background(), 2, buf))

	require.NoError(t, p.RecordingStart(context.Background(), store))
	require.Equal(t, uint16(3), p.CurrentBlock(), "must land one past the higher-address tied block (addr 2)")
	require.Equal(t, uint16(6), p.BlockNumber(), "number must be one past the tied blocks' shared number")
}

// A single stored block with the highest number wins outright (no tie),
// and recording resumes after it, wrapping the address range if needed.
func TestRecordingStartResumesAfterNewestBlock(t *testing.T) {
	p, driver := newTestPersister(t, 0, 2)
	store := ring.New(p.layout.N)

	blk := model.NewBlock(p.layout)
	blk.Number = 9
	buf := blk.Marshal(p.layout)
	require.NoError(t, driver.WriteBlock(context.Background(), 1, buf))

	require.NoError(t, p.RecordingStart(context.Background(), store))
	// addr 1 is the last valid index in [0,2); one past it wraps to 0.
	require.Equal(t, uint16(0), p.CurrentBlock())
	require.Equal(t, uint16(10), p.BlockNumber())
}

// OnRecord advances the current block address and bumps the in-memory
// block number only when the ring signals Full; a non-full record keeps
// rewriting the same block in place.
func TestOnRecordAdvancesOnlyWhenRingFull(t *testing.T) {
	p, driver := newTestPersister(t, 0, 4)
	store := ring.New(p.layout.N)
	require.NoError(t, p.RecordingStart(context.Background(), store))

	store.Lock()
	full := store.RecordUnlocked(90, 1, 1, 0, 1)
	require.NoError(t, p.OnRecord(context.Background(), store, full))
	store.Unlock()

	require.Equal(t, uint16(0), p.CurrentBlock(), "non-full record must not advance the block address")
	require.Equal(t, uint16(0), p.BlockNumber())

	raw := make([]byte, 512)
	require.NoError(t, driver.ReadBlock(context.Background(), 0, raw))
	written, err := model.ParseBlock(raw, p.layout)
	require.NoError(t, err)
	require.True(t, written.Records[0].IsValid())

	// Fill the rest of the block's capacity to force a wrap.
	for i := 1; i < p.layout.N; i++ {
		store.Lock()
		full = store.RecordUnlocked(90, uint16(i), int32(i), 0, uint32(i))
		require.NoError(t, p.OnRecord(context.Background(), store, full))
		store.Unlock()
	}

	require.Equal(t, uint16(1), p.CurrentBlock(), "block must advance once the ring signals full")
	require.Equal(t, uint16(1), p.BlockNumber())
}

// ClearSavedErrors erases the configured address range and resets the
// persister back to a fresh, block-0, number-0 state.
func TestClearSavedErrorsResetsState(t *testing.T) {
	p, driver := newTestPersister(t, 0, 4)
	store := ring.New(p.layout.N)
	require.NoError(t, p.RecordingStart(context.Background(), store))

	store.Lock()
	full := store.RecordUnlocked(90, 1, 1, 0, 1)
	require.NoError(t, p.OnRecord(context.Background(), store, full))
	store.Unlock()

	require.NoError(t, p.ClearSavedErrors(context.Background(), store))
	require.Equal(t, uint16(0), p.CurrentBlock())
	require.Equal(t, uint16(0), p.BlockNumber())

	raw := make([]byte, 512)
	require.NoError(t, driver.ReadBlock(context.Background(), 0, raw))
	for _, b := range raw {
		require.Equal(t, byte(0), b, "erased storage must read back all zero")
	}

	slots, nextIdx := store.Snapshot()
	require.Equal(t, 0, nextIdx)
	for _, rec := range slots {
		require.False(t, rec.IsValid())
	}
}

// A locked driver propagates its failure instead of silently continuing;
// RecordingStart must leave the persister not running.
func TestRecordingStartPropagatesLockFailure(t *testing.T) {
	p, driver := newTestPersister(t, 0, 2)
	store := ring.New(p.layout.N)
	driver.FailLock = context.DeadlineExceeded

	err := p.RecordingStart(context.Background(), store)
	require.Error(t, err)
	require.False(t, p.Running())
}

// OnRecord refuses to run before RecordingStart has completed.
func TestOnRecordRequiresRunning(t *testing.T) {
	p, _ := newTestPersister(t, 0, 2)
	store := ring.New(p.layout.N)

	store.Lock()
	full := store.RecordUnlocked(90, 1, 1, 0, 1)
	err := p.OnRecord(context.Background(), store, full)
	store.Unlock()

	require.ErrorIs(t, err, ErrNotRunning)
}
