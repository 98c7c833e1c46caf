// Package catalog holds the deduplicated set of discovered domains and
// persists it as a JSON document.
//
// The Catalog is the single owner of discovered records. Every new record is
// flushed immediately through the Store (read, merge, atomic write) and
// forwarded to registered sinks such as the run-history database. Full
// snapshots with run metadata are written at checkpoints and at the end of a
// run.
package catalog
