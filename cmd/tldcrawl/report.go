package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/model"
	"github.com/nao1215/tldcrawl/internal/report"
)

// Report formats.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatXLSX     = "xlsx"
)

var (
	// errUnknownFormat is returned for an unsupported --format value.
	errUnknownFormat = errors.New("unknown report format (use text, json, markdown or xlsx)")

	// errXLSXNeedsOutput is returned when an XLSX report would go to stdout.
	errXLSXNeedsOutput = errors.New("xlsx reports need --output")
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [catalog-file]",
		Short: "Render a catalog file as text, JSON, Markdown or XLSX",
		Long: `Report reads a catalog document and renders it.

Without an argument the rolling catalog of the configured suffix is read,
e.g. data/rw_domains.json. Timestamped archives can be passed explicitly.

Examples:
  # Summary on the terminal
  tldcrawl report

  # Markdown with a discovery method chart
  tldcrawl report -f markdown -o catalog.md

  # Spreadsheet for manual review
  tldcrawl report -f xlsx -o catalog.xlsx data/rw_domains_20240501_130000.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("format", "f", formatText, "Report format: text, json, markdown or xlsx")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("output-dir", config.DefaultOutputDir, "Directory holding the catalog files")
	cmd.Flags().String("suffix", config.DefaultTargetSuffix, "Top-level domain whose catalog is read")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	path, err := catalogPath(cmd, args)
	if err != nil {
		return err
	}
	doc, err := catalog.ReadDocument(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	return writeReport(doc, format, outputPath, getVerboseFlag(cmd), cmd.OutOrStdout())
}

// catalogPath returns the explicit argument or the rolling catalog path.
func catalogPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	dir, err := cmd.Flags().GetString("output-dir")
	if err != nil {
		return "", err
	}
	suffix, err := cmd.Flags().GetString("suffix")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, catalog.FileName(model.NewTarget(suffix).Label())), nil
}

// newReportWriter returns the writer for format.
func newReportWriter(format string, w io.Writer, verbose bool) (report.Writer, error) {
	switch strings.ToLower(format) {
	case formatText:
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	case formatJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithSummary(getVersion())), nil
	case formatMarkdown, "md":
		return report.NewMarkdownWriter(w), nil
	case formatXLSX:
		return report.NewXLSXWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownFormat, format)
	}
}

// writeReport renders doc to outputPath, or to stdout when it is empty.
func writeReport(doc *model.CatalogDocument, format, outputPath string, verbose bool, stdout io.Writer) error {
	if outputPath == "" {
		if strings.EqualFold(format, formatXLSX) {
			return errXLSXNeedsOutput
		}
		w, err := newReportWriter(format, stdout, verbose)
		if err != nil {
			return err
		}
		_, err = w.Write(doc)
		return err
	}

	// Validate the format before touching the file system.
	if _, err := newReportWriter(format, io.Discard, verbose); err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := newReportWriter(format, f, verbose)
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := w.Write(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
