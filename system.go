// Package errlog is the on-device diagnostic-logging core: it wires the
// Decoder Registry, Record Store, Block Persister, Reporter, and
// Replayer into a single owned context, per design note §9 ("re-
// architect as a single owned context passed to every public operation,
// instantiated once at startup; all previously-global functions become
// methods on it"). There is no teardown: a System lives for the lifetime
// of the process that builds it.
package errlog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"errlog/console"
	"errlog/decoder"
	"errlog/internal/config"
	"errlog/internal/xlog"
	"errlog/model"
	"errlog/persist"
	"errlog/reporter"
	"errlog/replay"
	"errlog/ring"
	"errlog/storage"
	"errlog/ticksource"
	"errlog/xferbuf"
)

// System is the process-wide diagnostic-logging core.
type System struct {
	Ring      *ring.Store
	Decoder   *decoder.Registry
	Persister *persist.Persister // nil when persistence is disabled
	Reporter  *reporter.Reporter
	Replayer  *replay.Replayer

	log *zap.SugaredLogger
}

// Options configures New. Driver/Xfer are only required when
// Cfg.Persistence.Enabled is true. Console and Tick are required; a nil Log falls back to a no-op
// logger.
type Options struct {
	Cfg     *config.Config
	Driver  storage.Driver
	Xfer    xferbuf.Buffer
	Tick    ticksource.Source
	Console console.Sink
	Log     *zap.SugaredLogger
}

// New builds a System per the given options. It does not start
// persistence: call RecordingStart for that, matching spec.md §3's
// lifecycle (init zeroes and prepares everything; recording_start is a
// separate, possibly-failing step).
func New(opts Options) *System {
	cfg := opts.Cfg
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log
	if log == nil {
		log = xlog.Noop()
	}

	capacity := int(cfg.Ring.Capacity)
	reg := decoder.New(cfg.Decoder.TableCapacity)
	if err := reg.Register(0, model.BusSourceReserved-1, busDecoder, 0); err != nil {
		log.Warnw("errlog: failed to seed platform bus decoder entry", "err", err)
	}

	var persister *persist.Persister
	if cfg.Persistence.Enabled && opts.Driver != nil {
		layout := model.NewLayout(uint64(cfg.Persistence.BlockSize.Bytes()))
		persister = persist.New(opts.Driver, opts.Xfer, layout, cfg.Persistence.AddrStart, cfg.Persistence.AddrEnd, log)
		// With persistence the ring mirrors one block's record array.
		capacity = layout.N
	}
	store := ring.New(capacity)

	rep := reporter.New(store, persister, reg, opts.Tick, opts.Console, log, cfg.Reporter.LogLevel, cfg.Reporter.ConsoleEcho)
	rpl := replay.New(store, persister, reg, opts.Console)

	return &System{
		Ring:      store,
		Decoder:   reg,
		Persister: persister,
		Reporter:  rep,
		Replayer:  rpl,
		log:       log,
	}
}

// RecordingStart scans persistent storage for the newest existing block
// and begins persisting new blocks from the following address. A no-op
// returning nil when persistence is disabled.
func (s *System) RecordingStart(ctx context.Context) error {
	if s.Persister == nil {
		return nil
	}
	return s.Persister.RecordingStart(ctx, s.Ring)
}

// Report is shorthand for s.Reporter.Report.
func (s *System) Report(ctx context.Context, level uint8, source uint16, errCode int32, argument uint16) {
	s.Reporter.Report(ctx, level, source, errCode, argument)
}

// ClearSavedErrors erases the persisted block range and resets the ring.
// Returns persist.ErrNotRunning when persistence is disabled.
func (s *System) ClearSavedErrors(ctx context.Context) error {
	if s.Persister == nil {
		return persist.ErrNotRunning
	}
	return s.Persister.ClearSavedErrors(ctx, s.Ring)
}

// busDecoder seeds the reserved [0, model.BusSourceReserved) source range
// at construction so bus-internal sources never fall through to the
// generic "Unknown Source" fallback. It carries no symbol table of its
// own, so it formats the bare numbers. Because registered ranges may not
// overlap, no later registration can claim any part of this range.
func busDecoder(buf []byte, source uint16, errCode int32, argument uint16) string {
	text := fmt.Sprintf("bus source = %d, error = %d, argument = %d", source, errCode, argument)
	n := copy(buf, text)
	return string(buf[:n])
}
