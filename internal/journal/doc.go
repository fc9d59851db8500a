// Package journal persists batch run history in SQLite: one row per run and
// one per entry outcome. The journal is reporting state only; skip decisions
// always come from the destination filesystem, never from here.
package journal
