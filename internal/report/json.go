package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/tldcrawl/internal/model"
)

// JSONWriter re-emits a catalog document as JSON, optionally wrapped with
// its Summary for tools that do not want to recompute counts.
//
// Design decision: We use encoding/json because the catalog file itself is
// encoding/json output. HTML escaping is disabled for the same reason: page
// titles such as "Trade & Industry" must read the same in both files.
type JSONWriter struct {
	out io.Writer

	prefix string
	indent string

	// version is set by WithSummary; an empty value means the bare
	// document is written.
	version     string
	withSummary bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent after prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithSummary writes a JSONReport holding version, the Summary and the
// document instead of the bare document.
func WithSummary(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.withSummary = true
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter on output. Output is compact unless
// an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{out: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the wrapped form written with WithSummary. The catalog
// document is nested unchanged because other tools read its layout.
type JSONReport struct {
	Version  string                 `json:"version"`
	Summary  *Summary               `json:"summary"`
	Document *model.CatalogDocument `json:"document"`
}

// Write encodes doc followed by a newline.
func (w *JSONWriter) Write(doc *model.CatalogDocument) (int, error) {
	var v any = doc
	if w.withSummary {
		v = &JSONReport{Version: w.version, Summary: NewSummary(doc), Document: doc}
	}

	cw := &countingWriter{out: w.out}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	err := enc.Encode(v)
	return cw.n, err
}
