// Package model defines the core data structures used throughout tldcrawl.
//
// This package contains the following main types:
//   - Target: the URL classifier bound to one top-level domain suffix
//   - FrontierItem: a (URL, depth) pair waiting in the crawl frontier
//   - DomainRecord: the canonical unit of output, one per discovered domain
//   - CatalogDocument: the persisted catalog with its run metadata
//   - RunStats: a read-only snapshot of the run counters
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, catalog, discovery and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The URL helpers in url.go are pure, total functions. Malformed input yields
// false or an empty string, never a panic.
package model
