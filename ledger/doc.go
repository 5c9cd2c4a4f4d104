// Package ledger implements the owner-scoped append-only secret ledger. It
// enforces dense per-owner indexing, assigns ledger timestamps, and emits one
// notification event per append for off-chain indexers. Persistence is
// delegated to a record store; the ledger itself is the only write path and
// serializes appends, which is what keeps the 0..count-1 invariant intact
// under concurrent callers.
package ledger
