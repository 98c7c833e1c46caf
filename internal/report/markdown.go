package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/tldcrawl/internal/model"
)

// maxMarkdownDomains caps the domain table. Larger catalogs are summarized
// and the reader is pointed at the JSON or XLSX export.
const maxMarkdownDomains = 500

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid charts for the discovery method distribution
type MarkdownWriter struct {
	out io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{out: output}
}

// Write outputs doc in Markdown format.
func (w *MarkdownWriter) Write(doc *model.CatalogDocument) (int, error) {
	summary := NewSummary(doc)
	cw := &countingWriter{out: w.out}
	md := markdown.NewMarkdown(cw)

	w.writeHeader(md, summary)
	w.writeMethods(md, summary)
	w.writeZones(md, summary)
	w.writeDomains(md, doc)
	w.writeFooter(md)

	err := md.Build()
	return cw.n, err
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Domain Catalog Report")
	md.PlainText("")

	engines := "-"
	if len(s.Engines) > 0 {
		engines = strings.Join(s.Engines, ", ")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Crawl Date", formatDate(s)},
			{"Duration", orDash(s.CrawlDuration)},
			{"Run ID", orDash(s.RunID)},
			{"Search Engines", engines},
			{"Domains", strconv.Itoa(s.Total)},
			{"Domains With Title", strconv.Itoa(s.WithTitle)},
		},
	})
	md.PlainText("")

	if s.Total == 0 {
		md.Warningf("The catalog is empty. Check the crawl log for network or proxy errors.")
		md.PlainText("")
	}
}

// writeMethods writes the discovery method table and pie chart.
func (w *MarkdownWriter) writeMethods(md *markdown.Markdown, s *Summary) {
	if len(s.Methods) == 0 {
		return
	}
	md.H2("Discovery Methods")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Methods))
	for _, c := range s.Methods {
		rows = append(rows, []string{c.Label, strconv.Itoa(c.Count)})
	}
	md.Table(markdown.TableSet{Header: []string{"Method", "Domains"}, Rows: rows})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Domains by Discovery Method"),
		piechart.WithShowData(true),
	)
	for _, c := range s.Methods {
		chart.LabelAndIntValue(c.Label, uint64(c.Count)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeZones writes the per-zone breakdown.
func (w *MarkdownWriter) writeZones(md *markdown.Markdown, s *Summary) {
	if len(s.Zones) == 0 {
		return
	}
	md.H2("Zones")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Zones))
	for _, c := range s.Zones {
		rows = append(rows, []string{"`" + c.Label + "`", strconv.Itoa(c.Count)})
	}
	md.Table(markdown.TableSet{Header: []string{"Zone", "Domains"}, Rows: rows})
	md.PlainText("")
}

// writeDomains writes the domain table.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, doc *model.CatalogDocument) {
	if len(doc.Domains) == 0 {
		return
	}
	md.H2("Domains")
	md.PlainText("")

	domains := doc.Domains
	if len(domains) > maxMarkdownDomains {
		md.Note(fmt.Sprintf("Showing the first %d of %d domains. Use the JSON or XLSX format for the full list.",
			maxMarkdownDomains, len(domains)))
		md.PlainText("")
		domains = domains[:maxMarkdownDomains]
	}

	rows := make([][]string, len(domains))
	for i, r := range domains {
		rows[i] = []string{
			r.Domain,
			truncateString(r.URL, 60),
			escapeCell(truncateString(orDash(r.Title), 50)),
			MethodLabel(r.DiscoveryMethod),
			r.DiscoveredAt.UTC().Format("2006-01-02 15:04"),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "URL", "Title", "Method", "Discovered (UTC)"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [tldcrawl](https://github.com/nao1215/tldcrawl)*")
}

func formatDate(s *Summary) string {
	if s.CrawlDate.IsZero() {
		return "-"
	}
	return s.CrawlDate.UTC().Format("2006-01-02 15:04:05 MST")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escapeCell keeps page titles from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
