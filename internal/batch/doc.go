// Package batch orchestrates a restore run over a directory of exports. It
// snapshots the destination once, skips entries whose stem is already
// occupied, routes each remaining entry by probed kind, and records the run
// in the journal. Failures are per-entry, never per-batch.
package batch
