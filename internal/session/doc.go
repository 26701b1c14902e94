// Package session tracks one conversion attempt from submission to terminal state.
//
// The package splits into three layers:
//
//  1. [Session] : the authoritative in-memory state (input, phase, stage
//     progress, append-only log, result). Mutators are pure state transforms
//     with no I/O.
//  2. [Reconciler] : merges streamed events and polled snapshots into the
//     Session and owns phase transitions. The terminal signal is structured
//     (stage "pipeline" with state Completed or Failed); terminal merges are
//     idempotent, so the first channel to report completion wins.
//  3. [Controller] : the lifecycle manager. It validates input before any
//     network call, issues the submission under a timeout, owns the event
//     stream handle, reconnects with bounded backoff, and falls back to
//     rate-limited status polling when the stream stalls. Reset is the single
//     cancellation point and recovers from any phase.
//
// Presentation layers (the CLI watcher and the TUI) consume immutable session
// snapshots from the Controller's updates channel and never mutate state
// directly.
package session
