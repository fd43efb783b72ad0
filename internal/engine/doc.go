// Package engine runs a sensitivity probe over one module.
//
// # Probe Flow
//
//	[Count]  identity replay ─→ module.base.ll, M MayAlias queries
//	   ↓
//	[Baseline] compile + measure input module ─→ size0
//	   ↓
//	[For each selected k in 0..M-1, up to Workers at once]
//	   Substitute(k) ─→ file<k>.ll
//	   Compile       ─→ file<k>.out
//	   MeasureSize   ─→ Record{k, size, outcome}
//
// The oracle cannot seek or rewind, so each index is a full replay from the
// first query: O(Q) per substitution and O(M·Q) for a probe. Every replay
// answers all queries exactly as the baseline did except the k-th MayAlias
// query, which receives the policy's override code.
//
// # Failure Isolation
//
// A failure in the baseline (replay, compile, or measure) aborts the probe,
// since there is nothing to compare against. A failure in index k becomes a
// record with a failure outcome and never affects another index. Worker
// goroutines always return nil to the errgroup so no sibling is cancelled.
//
// # Determinism
//
// Records are sorted by index regardless of completion order, and run IDs
// come from an IDGenerator so tests can pin them.
package engine
