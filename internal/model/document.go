package model

import (
	"slices"
	"time"
)

// DocumentMetadata describes the run that produced a catalog document.
type DocumentMetadata struct {
	// CrawlDate is the start time of the run that last wrote the document.
	CrawlDate time.Time `json:"crawl_date"`

	// DomainsFound is the number of records in Domains.
	DomainsFound int `json:"domains_found"`

	// CrawlDuration is the elapsed run time formatted by time.Duration.String.
	CrawlDuration string `json:"crawl_duration"`

	// SearchEnginesUsed lists the engines queried by the search strategy.
	SearchEnginesUsed []string `json:"search_engines_used"`

	// DiscoveryMethods lists the strategies enabled for the run.
	DiscoveryMethods []string `json:"discovery_methods,omitempty"`

	// LastUpdated is set on every incremental flush.
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	// RunID identifies the run in the history database.
	RunID string `json:"run_id,omitempty"`
}

// CatalogDocument is the persisted catalog: the sole handoff artifact read by
// the dashboard and API collaborators.
type CatalogDocument struct {
	Metadata DocumentMetadata `json:"metadata"`
	Domains  []DomainRecord   `json:"domains"`
}

// NewCatalogDocument creates an empty document with a non-nil domain list.
func NewCatalogDocument() *CatalogDocument {
	return &CatalogDocument{
		Metadata: DocumentMetadata{SearchEnginesUsed: []string{}},
		Domains:  []DomainRecord{},
	}
}

// Contains reports whether a record for the canonical form of domain exists.
func (d *CatalogDocument) Contains(domain string) bool {
	key := CanonicalDomain(domain)
	return slices.ContainsFunc(d.Domains, func(r DomainRecord) bool {
		return CanonicalDomain(r.Domain) == key
	})
}

// CountByMethod returns the number of records per discovery method.
func (d *CatalogDocument) CountByMethod() map[DiscoveryMethod]int {
	counts := make(map[DiscoveryMethod]int)
	for _, r := range d.Domains {
		counts[r.DiscoveryMethod]++
	}
	return counts
}

// RunStats is a read-only snapshot of the crawl counters, polled by status
// reporters.
type RunStats struct {
	Running           bool          `json:"is_running"`
	PagesCrawled      int64         `json:"pages_crawled"`
	DomainsDiscovered int           `json:"domains_discovered"`
	StartTime         time.Time     `json:"start_time"`
	Elapsed           time.Duration `json:"elapsed_time"`
}
