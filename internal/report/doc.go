// Package report renders a catalog document for people and other tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output, optionally wrapped with a summary
//   - MarkdownWriter: Tables and a mermaid chart for sharing
//   - XLSXWriter: A spreadsheet for manual filtering
//
// Design decision: We separate report writing from the catalog data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats without
// modifying the catalog file layout.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
