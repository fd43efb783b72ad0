// Package alias defines the data model shared by every stage of the prober.
//
// An oracle run is a sequence of alias queries. Each query carries an
// AliasKind that the oracle computed on its own; the harness answers with a
// protocol Code. Answering a query with its own code reproduces the oracle's
// unmodified behavior. Answering a MayAlias query with any other code is a
// substitution.
//
// # Protocol codes
//
//	NoAlias      0
//	MustAlias    1
//	PartialAlias 2
//	MayAlias     3
//
// The mapping is fixed by the oracle. An unknown kind token is a protocol
// violation and is never mapped to a guessed code.
//
// # Ordinals
//
// Every QueryEvent has two positions: its Ordinal in the full query stream
// and, for MayAlias events only, its MayOrdinal among MayAlias events. A
// SubstitutionPlan targets a MayOrdinal, since only MayAlias answers are
// eligible for substitution.
package alias
