package model

import (
	"time"
)

// DiscoveryMethod names the strategy that first found a domain.
type DiscoveryMethod string

const (
	// MethodSeed marks a domain found by fetching a seed page.
	MethodSeed DiscoveryMethod = "seed"
	// MethodCrawl marks a domain whose page was fetched during link following.
	MethodCrawl DiscoveryMethod = "crawl"
	// MethodLink marks a domain seen as an outbound link on a crawled page.
	MethodLink DiscoveryMethod = "link"
	// MethodCertificateTransparency marks a domain mined from CT logs.
	MethodCertificateTransparency DiscoveryMethod = "certificate_transparency"
	// MethodSubdomainEnumeration marks a domain found by brute forcing labels.
	MethodSubdomainEnumeration DiscoveryMethod = "subdomain_enumeration"
	// MethodZoneTransfer marks a domain returned by an AXFR response.
	MethodZoneTransfer DiscoveryMethod = "dns_zone_transfer"
	// MethodSearchEngine marks a domain whose page was reached from search results.
	MethodSearchEngine DiscoveryMethod = "search_engine"
)

// String returns the method as stored in the catalog.
func (m DiscoveryMethod) String() string {
	return string(m)
}

// PageMetadata holds the descriptive fields extracted from a page.
// Absent fields are left empty and omitted from JSON.
type PageMetadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    string   `json:"keywords,omitempty"`
	H1Tags      []string `json:"h1_tags,omitempty"`
}

// IsZero reports whether no metadata field was extracted.
func (m PageMetadata) IsZero() bool {
	return m.Title == "" && m.Description == "" && m.Keywords == "" && len(m.H1Tags) == 0
}

// DomainRecord is the canonical unit of output, one per discovered domain.
//
// Design decision: Domain is the catalog key and is always stored in its
// canonical form (see CanonicalDomain). The first record for a domain wins;
// later discoveries never overwrite it, so DiscoveredAt and DiscoveryMethod
// always describe the earliest sighting in the run.
type DomainRecord struct {
	Domain          string          `json:"domain"`
	URL             string          `json:"url"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Keywords        string          `json:"keywords,omitempty"`
	H1Tags          []string        `json:"h1_tags,omitempty"`
	DiscoveredAt    time.Time       `json:"discovered_at"`
	DiscoveryMethod DiscoveryMethod `json:"discovery_method"`
}

// NewDomainRecord creates a record for the host of rawURL.
// It returns false when rawURL has no host.
func NewDomainRecord(rawURL string, method DiscoveryMethod, meta PageMetadata) (DomainRecord, bool) {
	domain := CanonicalDomain(ExtractDomain(rawURL))
	if domain == "" {
		return DomainRecord{}, false
	}
	return DomainRecord{
		Domain:          domain,
		URL:             rawURL,
		Title:           meta.Title,
		Description:     meta.Description,
		Keywords:        meta.Keywords,
		H1Tags:          meta.H1Tags,
		DiscoveredAt:    time.Now().UTC(),
		DiscoveryMethod: method,
	}, true
}

// FrontierItem is a URL waiting to be fetched together with its link depth.
// Source names the producer and becomes the discovery method of the record
// created when the page is fetched.
type FrontierItem struct {
	URL    string
	Depth  int
	Source DiscoveryMethod
}
