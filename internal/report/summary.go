package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/tldcrawl/internal/model"
)

// Count is a label with the number of records carrying it.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary aggregates a catalog document for the human-readable formats.
type Summary struct {
	CrawlDate     time.Time `json:"crawl_date"`
	CrawlDuration string    `json:"crawl_duration,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	Engines       []string  `json:"search_engines_used"`
	Total         int       `json:"total"`
	WithTitle     int       `json:"with_title"`
	// Methods counts records per discovery method, largest first.
	Methods []Count `json:"methods"`
	// Zones counts records per registration zone (e.g. "gov.rw").
	Zones []Count `json:"zones"`
	// Newest holds the most recently discovered records, newest first.
	Newest []model.DomainRecord `json:"newest,omitempty"`
}

// newestLimit bounds Summary.Newest.
const newestLimit = 10

// NewSummary computes the summary of doc.
func NewSummary(doc *model.CatalogDocument) *Summary {
	s := &Summary{
		CrawlDate:     doc.Metadata.CrawlDate,
		CrawlDuration: doc.Metadata.CrawlDuration,
		RunID:         doc.Metadata.RunID,
		Engines:       doc.Metadata.SearchEnginesUsed,
		Total:         len(doc.Domains),
	}

	methods := make(map[string]int)
	for m, n := range doc.CountByMethod() {
		methods[MethodLabel(m)] += n
	}
	s.Methods = sortedCounts(methods)

	zones := make(map[string]int)
	for _, r := range doc.Domains {
		if r.Title != "" {
			s.WithTitle++
		}
		zones[Zone(r.Domain)]++
	}
	s.Zones = sortedCounts(zones)

	s.Newest = slices.Clone(doc.Domains)
	slices.SortStableFunc(s.Newest, func(a, b model.DomainRecord) int {
		return b.DiscoveredAt.Compare(a.DiscoveredAt)
	})
	if len(s.Newest) > newestLimit {
		s.Newest = s.Newest[:newestLimit]
	}
	return s
}

func sortedCounts(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for label, n := range m {
		counts = append(counts, Count{Label: label, Count: n})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return counts
}

// titleCaser is not safe for concurrent use; MethodLabel builds one per call.
func titleCaser() cases.Caser {
	return cases.Title(language.English)
}

// MethodLabel turns a discovery method into a display label,
// e.g. "dns_zone_transfer" into "Dns Zone Transfer".
func MethodLabel(m model.DiscoveryMethod) string {
	if m == "" {
		return "Unknown"
	}
	return titleCaser().String(strings.ReplaceAll(string(m), "_", " "))
}

// secondLevel are the registry-operated zones below the national suffix.
var secondLevel = []string{"ac", "co", "coop", "gov", "mil", "net", "org"}

// Zone returns the registration zone of domain: "minict.gov.rw" yields
// "gov.rw" while direct registrations such as "risa.rw" yield "rw".
func Zone(domain string) string {
	labels := strings.Split(strings.Trim(domain, "."), ".")
	n := len(labels)
	if n >= 3 && slices.Contains(secondLevel, labels[n-2]) {
		return labels[n-2] + "." + labels[n-1]
	}
	return labels[n-1]
}
