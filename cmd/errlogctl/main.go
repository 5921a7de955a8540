// Command errlogctl drives the errlog core against a simulated
// storage/tick backend, exercising the CLI/diagnostic surface called out
// in spec.md §6 (replay's num/min_level parameters) plus report,
// set-level, and clear. Grounded on the controlplane cmd/ + cobra layout
// seen elsewhere in the retrieval pack.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"errlog"
	"errlog/internal/config"
	"errlog/internal/fakes"
	"errlog/internal/xlog"
)

var sys *errlog.System

func buildSystem(persistenceEnabled bool) *errlog.System {
	cfg := config.Default()
	cfg.Persistence.Enabled = persistenceEnabled

	log, err := xlog.New(zapcore.InfoLevel)
	if err != nil {
		log = xlog.Noop()
	}

	console := &fakes.LineSink{}
	clock := &fakes.Clock{}

	opts := errlog.Options{
		Cfg:     cfg,
		Tick:    clock,
		Console: stdoutSink{console},
		Log:     log,
	}
	if persistenceEnabled {
		blockCount := int(cfg.Persistence.AddrEnd - cfg.Persistence.AddrStart)
		opts.Driver = fakes.NewMemDriver(uint64(cfg.Persistence.BlockSize.Bytes()), blockCount)
		opts.Xfer = fakes.NewMemBuffer(int(cfg.Persistence.BlockSize.Bytes()))
	}

	s := errlog.New(opts)
	if persistenceEnabled {
		if err := s.RecordingStart(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "recording start failed, continuing RAM-only: %v\n", err)
		}
	}
	return s
}

// stdoutSink adapts a fakes.LineSink-backed console onto real stdout for
// interactive CLI use while keeping the captured lines available.
type stdoutSink struct{ inner *fakes.LineSink }

func (s stdoutSink) Print(line string) {
	s.inner.Print(line)
	fmt.Println(line)
}

func main() {
	var persistFlag bool

	root := &cobra.Command{
		Use:   "errlogctl",
		Short: "drive the errlog diagnostic-logging core",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			sys = buildSystem(persistFlag)
		},
	}
	root.PersistentFlags().BoolVar(&persistFlag, "persist", false, "enable the block persister against a simulated storage device")

	root.AddCommand(reportCmd(), replayCmd(), setLevelCmd(), clearCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <level> <source> <err> <argument>",
		Short: "report one error event",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return err
			}
			source, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return err
			}
			errCode, err := strconv.ParseInt(args[2], 10, 32)
			if err != nil {
				return err
			}
			argument, err := strconv.ParseUint(args[3], 10, 16)
			if err != nil {
				return err
			}
			sys.Report(cmd.Context(), uint8(level), uint16(source), int32(errCode), uint16(argument))
			return nil
		},
	}
}

func replayCmd() *cobra.Command {
	var num, minLevel uint16
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "print the log newest-first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sys.Replayer.Print(cmd.Context(), num, uint8(minLevel))
		},
	}
	cmd.Flags().Uint16Var(&num, "num", 0, "max records to print (0 = unlimited)")
	cmd.Flags().Uint16Var(&minLevel, "min-level", 0, "minimum severity level")
	return cmd
}

func setLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-level <level>",
		Short: "set the log-level threshold, printing the prior value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return err
			}
			old := sys.Reporter.SetLevel(uint8(level))
			fmt.Printf("previous log level: %d\n", old)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "erase the persisted log and reset the ring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sys.ClearSavedErrors(cmd.Context())
		},
	}
}
