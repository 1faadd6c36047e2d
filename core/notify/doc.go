// Package notify delivers change notifications emitted by the sync engine.
//
// Sinks are fire-and-forget. The engine never learns whether a notification
// reached anyone, so notification problems cannot fail a sync step.
//
//   - Broadcaster: non-blocking fan-out to subscriber channels
//   - LogSink: debug logging through zap
//   - Multi: combines sinks
//   - Nop: discards everything
package notify
