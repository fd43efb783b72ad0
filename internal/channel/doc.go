// Package channel implements the lock-step query protocol spoken by the
// alias oracle.
//
// # Protocol
//
// The oracle prints one line per alias query:
//
//	<token> <token> <Kind>: ...
//
// and then blocks until the harness writes back a single digit and a
// newline. Exactly one reply is written and flushed per query before the
// next line is read; replies are never batched or written ahead.
//
// Two line prefixes end the query phase:
//
//	; ModuleID   the module follows; copy every later byte to the sink
//	Failed       the oracle gave up; the run is aborted
//
// # States
//
//	AwaitingQuery ──query──▶ RespondAndAwait ──query──▶ RespondAndAwait ...
//	      │                        │
//	      │                        └──header──▶ StreamingModule ──EOF──▶ Closed
//	      └──failure/violation/timeout──▶ Aborted
//
// # Ownership
//
// A Channel, its LineTransport, and the process behind a ProcessOracle
// belong to a single Replay call. Nothing survives the call, so replays can
// run concurrently without sharing state.
package channel
