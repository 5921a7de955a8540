// Package console declares the operator-facing console-print sink
// consumed by the Reporter and the Replayer (spec.md §6). This is a
// narrow injected capability, not a logging framework: the line format
// it receives is spec-mandated and must pass through unmodified.
package console

// Sink accepts one formatted line at a time.
type Sink interface {
	Print(line string)
}
