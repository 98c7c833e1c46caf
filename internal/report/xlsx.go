package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/tldcrawl/internal/model"
)

// Sheet names of the XLSX export.
const (
	domainsSheet = "Domains"
	summarySheet = "Summary"
)

// XLSXWriter exports the catalog as a spreadsheet with one row per domain
// and a summary sheet.
//
// Design decision: The catalog is usually consumed by analysts who filter
// and sort it by hand, so the domain sheet carries an auto filter and a
// frozen header row.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{out: output}
}

var domainColumns = []string{"Domain", "URL", "Title", "Description", "Keywords", "H1 Tags", "Method", "Discovered (UTC)"}

// Write outputs doc as an XLSX workbook.
func (w *XLSXWriter) Write(doc *model.CatalogDocument) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", domainsSheet); err != nil {
		return 0, err
	}
	if err := writeDomainSheet(f, doc); err != nil {
		return 0, fmt.Errorf("failed to write %s sheet: %w", domainsSheet, err)
	}
	if err := writeSummarySheet(f, NewSummary(doc)); err != nil {
		return 0, fmt.Errorf("failed to write %s sheet: %w", summarySheet, err)
	}

	n, err := f.WriteTo(w.out)
	return int(n), err
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
}

func writeDomainSheet(f *excelize.File, doc *model.CatalogDocument) error {
	header := make([]any, len(domainColumns))
	for i, c := range domainColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(domainsSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range doc.Domains {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Domain,
			r.URL,
			r.Title,
			r.Description,
			r.Keywords,
			strings.Join(r.H1Tags, " | "),
			string(r.DiscoveryMethod),
			r.DiscoveredAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(domainsSheet, cell, &row); err != nil {
			return err
		}
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(domainsSheet, 1, 1, style); err != nil {
		return err
	}
	if err := f.SetColWidth(domainsSheet, "A", "B", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(domainsSheet, "C", "F", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(domainsSheet, "G", "H", 22); err != nil {
		return err
	}
	if err := f.SetPanes(domainsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(domainColumns), len(doc.Domains)+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(domainsSheet, "A1:"+last, nil)
}

func writeSummarySheet(f *excelize.File, s *Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Crawl Date", formatDate(s)},
		{"Duration", orDash(s.CrawlDuration)},
		{"Run ID", orDash(s.RunID)},
		{"Search Engines", strings.Join(s.Engines, ", ")},
		{"Domains", s.Total},
		{"Domains With Title", s.WithTitle},
		{},
		{"Method", "Domains"},
	}
	for _, c := range s.Methods {
		rows = append(rows, []any{c.Label, c.Count})
	}
	rows = append(rows, []any{}, []any{"Zone", "Domains"})
	for _, c := range s.Zones {
		rows = append(rows, []any{c.Label, c.Count})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 28)
}
