// Package reporter implements the Reporter: the public entry point that
// filters by log level, stamps a record with a tick value, forwards it to
// the Record Store (and Block Persister), and optionally echoes it to the
// console. Grounded on original_source/error.c's report_error/
// set_error_level and on lsm/lsm.go's config-loaded-globals-become-
// struct-fields pattern.
package reporter

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"errlog/console"
	"errlog/decoder"
	"errlog/model"
	"errlog/persist"
	"errlog/ring"
	"errlog/ticksource"
)

// Reporter is the public report(level, source, err, argument) entry
// point. The Persister is optional: when nil, reports are RAM-only.
type Reporter struct {
	ring      *ring.Store
	persister *persist.Persister
	decoder   *decoder.Registry
	tick      ticksource.Source
	console   console.Sink
	log       *zap.SugaredLogger

	level     atomic.Uint32
	consoleOn bool
}

// New builds a Reporter. persister and console may be nil: a nil
// persister means RAM-only operation; a nil console means reports are
// never echoed regardless of consoleEcho.
func New(store *ring.Store, persister *persist.Persister, reg *decoder.Registry, tick ticksource.Source, sink console.Sink, log *zap.SugaredLogger, initialLevel uint8, consoleEcho bool) *Reporter {
	r := &Reporter{
		ring:      store,
		persister: persister,
		decoder:   reg,
		tick:      tick,
		console:   sink,
		log:       log,
		consoleOn: consoleEcho,
	}
	r.level.Store(uint32(initialLevel))
	return r
}

// SetLevel atomically replaces the log-level threshold and returns the
// prior value.
func (r *Reporter) SetLevel(level uint8) uint8 {
	old := r.level.Swap(uint32(level))
	return uint8(old)
}

// Level returns the current log-level threshold.
func (r *Reporter) Level() uint8 {
	return uint8(r.level.Load())
}

// Report is the public entry point. If level is below the current
// threshold it returns immediately without sampling the tick source or
// touching the ring. Otherwise it stamps the record, forwards it to the
// ring (and, if persistence is running, to the Persister, within the same
// critical section), and — if console echo is enabled — emits one
// formatted line.
func (r *Reporter) Report(ctx context.Context, level uint8, source uint16, errCode int32, argument uint16) {
	if level < r.Level() {
		return
	}

	tick := r.tick.Now()

	r.ring.Lock()
	full := r.ring.RecordUnlocked(level, source, errCode, argument, tick)
	if r.persister != nil && r.persister.Running() {
		if err := r.persister.OnRecord(ctx, r.ring, full); err != nil {
			r.log.Warnw("errlog: failed to persist block after record", "err", err)
		}
	}
	r.ring.Unlock()

	if r.consoleOn && r.console != nil {
		r.console.Print(r.formatLine(tick, level, source, errCode, argument))
	}
}

func (r *Reporter) formatLine(tick uint32, level uint8, source uint16, errCode int32, argument uint16) string {
	buf := make([]byte, decoder.FormatBufSize)
	text := r.decoder.Decode(buf, source, errCode, argument, 0)
	return fmt.Sprintf("%d:%s(%d) : %s", tick, model.Band(level), level, text)
}
