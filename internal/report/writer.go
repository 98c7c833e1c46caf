package report

import (
	"io"

	"github.com/nao1215/tldcrawl/internal/model"
)

// Writer renders a catalog document in one output format.
//
// Write returns the number of bytes written to the destination, so a
// caller can tell an empty report from a failed one.
type Writer interface {
	Write(doc *model.CatalogDocument) (int, error)
}

// MultiWriter renders one document through several Writers in order, e.g.
// a text summary on the terminal and a JSON copy in a file.
//
// Design decision: io.MultiWriter cannot be used because each format must
// render the document itself; the byte streams differ per destination.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a MultiWriter over writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders doc with every writer and returns the byte total. The first
// error stops the remaining writers.
func (m *MultiWriter) Write(doc *model.CatalogDocument) (int, error) {
	total := 0
	for _, w := range m.writers {
		n, err := w.Write(doc)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// countingWriter tallies the bytes that reach out for writers whose
// library does not report a count.
type countingWriter struct {
	out io.Writer
	n   int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.out.Write(p)
	c.n += n
	return n, err
}
