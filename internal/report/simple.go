package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/tldcrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	out io.Writer

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose lists every domain instead of only the newest ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose lists every domain in the report.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{out: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs doc in human-readable format.
func (w *SimpleWriter) Write(doc *model.CatalogDocument) (int, error) {
	s := NewSummary(doc)
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeCounts(&sb, "DISCOVERY METHODS", s.Methods)
	w.writeCounts(&sb, "ZONES", s.Zones)
	if w.verbose {
		w.writeDomains(&sb, "DOMAINS", doc.Domains)
	} else {
		w.writeDomains(&sb, "NEWEST DOMAINS", s.Newest)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.out, sb.String())
}

func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       DOMAIN CATALOG REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Crawl Date:     %s\n", formatDate(s))
	fmt.Fprintf(sb, "Duration:       %s\n", orDash(s.CrawlDuration))
	if s.RunID != "" {
		fmt.Fprintf(sb, "Run ID:         %s\n", s.RunID)
	}
	if len(s.Engines) > 0 {
		fmt.Fprintf(sb, "Search Engines: %s\n", strings.Join(s.Engines, ", "))
	}
	fmt.Fprintf(sb, "Domains:        %d (%d with title)\n", s.Total, s.WithTitle)
	sb.WriteString("\n")
}

// writeCounts writes one labelled count table.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, title string, counts []Count) {
	if len(counts) == 0 && !w.showEmpty {
		return
	}
	writeRule(sb, title)
	if len(counts) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-28s %6d\n", c.Label+":", c.Count)
	}
	sb.WriteString("\n")
}

// writeDomains writes one line per record.
func (w *SimpleWriter) writeDomains(sb *strings.Builder, title string, recs []model.DomainRecord) {
	if len(recs) == 0 && !w.showEmpty {
		return
	}
	writeRule(sb, title)
	if len(recs) == 0 {
		sb.WriteString("  No domains\n\n")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(sb, "  [+] %s\n", r.Domain)
		fmt.Fprintf(sb, "      %s via %s\n", r.URL, MethodLabel(r.DiscoveryMethod))
		if r.Title != "" {
			fmt.Fprintf(sb, "      Title: %s\n", truncateString(r.Title, 60))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by tldcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
