// Package database provides SQLite-based run history for tldcrawl.
//
// The JSON catalog written by the catalog package is the primary artifact
// of a run. This package keeps a second, queryable record next to it:
//   - One row per crawl run with its strategies, status and counters
//   - Every domain ever discovered, attributed to the run that found it
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. The database is a single file next to the catalog
// 2. The CGO-free driver keeps cross-compilation easy
// 3. WAL mode lets the history command read while a crawl writes
package database
