// Package discovery runs a crawl: it schedules the discovery strategies,
// runs the worker pool alongside them and owns the run state.
//
// Strategies:
//   - ct_log: certificate transparency search (crt.sh)
//   - seed: the configured seed domains
//   - zone_transfer: AXFR attempts against the zone's name servers
//   - search:<engine>: search-engine result scraping, one per engine
//   - bruteforce: common subdomain labels probed with HEAD requests
//
// Design decision: Strategies only see an Env with narrow interfaces to the
// frontier and the catalog. They can be tested with in-memory fakes, and no
// package-level mutable state is shared between runs.
package discovery
