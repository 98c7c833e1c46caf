package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/tldcrawl/internal/model"
)

// archiveLayout is the timestamp format of archived snapshots.
const archiveLayout = "20060102_150405"

// FileName returns the rolling catalog file name for a target label,
// e.g. "rw_domains.json" for "rw".
func FileName(label string) string {
	return label + "_domains.json"
}

// ArchiveName returns the timestamped copy name for a target label.
func ArchiveName(label string, t time.Time) string {
	return label + "_domains_" + t.Format(archiveLayout) + ".json"
}

// Store reads and writes the catalog document.
//
// Design decision: Every write goes to a temp file in the destination
// directory followed by a rename, so a reader (or a crash) only ever sees
// the previous complete document or the new one. All writes in the process
// are serialized by one mutex, which makes read-merge-write safe against
// concurrent flushes from workers and strategies.
type Store struct {
	dir   string
	label string
	now   func() time.Time

	// rename is os.Rename; tests replace it to simulate a crash between
	// staging and commit.
	rename func(oldpath, newpath string) error

	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the time source for LastUpdated and archive names.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// withRename replaces the commit step. Test only.
func withRename(fn func(oldpath, newpath string) error) StoreOption {
	return func(s *Store) {
		s.rename = fn
	}
}

// NewStore creates a Store writing FileName(label) inside dir.
func NewStore(dir, label string, opts ...StoreOption) *Store {
	s := &Store{
		dir:    dir,
		label:  label,
		now:    time.Now,
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the rolling catalog file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName(s.label))
}

// Load reads the catalog file. A missing file yields an empty document and
// no error. A corrupt file yields an empty document and an error wrapping
// ErrCorruptDocument.
func (s *Store) Load() (*model.CatalogDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*model.CatalogDocument, error) {
	doc, err := ReadDocument(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewCatalogDocument(), nil
	}
	if err != nil {
		return model.NewCatalogDocument(), err
	}
	return doc, nil
}

// ReadDocument parses the catalog document at path.
func ReadDocument(path string) (*model.CatalogDocument, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, err
	}
	doc := model.NewCatalogDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
	}
	if doc.Domains == nil {
		doc.Domains = []model.DomainRecord{}
	}
	return doc, nil
}

// Merge adds rec to the document on disk unless its domain is already
// present. A corrupt file is moved aside and replaced.
func (s *Store) Merge(rec model.DomainRecord) error {
	if model.CanonicalDomain(rec.Domain) == "" {
		return ErrEmptyDomain
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrCorruptDocument) {
			return err
		}
		if qerr := s.quarantine(); qerr != nil {
			return errors.Join(err, qerr)
		}
	}
	if doc.Contains(rec.Domain) {
		return nil
	}

	doc.Domains = append(doc.Domains, rec)
	doc.Metadata.DomainsFound = len(doc.Domains)
	updated := s.now().UTC()
	doc.Metadata.LastUpdated = &updated
	return s.write(s.Path(), doc)
}

// WriteSnapshot writes doc as the full catalog. Records already on disk but
// missing from doc are kept, so a snapshot taken concurrently with a Merge
// never drops the merged record.
func (s *Store) WriteSnapshot(doc *model.CatalogDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *doc
	out.Domains = append([]model.DomainRecord{}, doc.Domains...)
	if existing, err := s.load(); err == nil {
		for _, rec := range existing.Domains {
			if !out.Contains(rec.Domain) {
				out.Domains = append(out.Domains, rec)
			}
		}
	}
	out.Metadata.DomainsFound = len(out.Domains)
	updated := s.now().UTC()
	out.Metadata.LastUpdated = &updated
	return s.write(s.Path(), &out)
}

// Archive copies the current catalog file to a timestamped name and
// returns its path.
func (s *Store) Archive() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, ArchiveName(s.label, s.now()))
	if err := s.write(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// write encodes doc and atomically replaces path.
func (s *Store) write(path string, doc *model.CatalogDocument) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return s.writeAtomic(path, buf.Bytes())
}

// writeAtomic stages data in a temp file next to path and renames it over
// path.
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage catalog: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // the catalog is meant to be read by other tools
		return fmt.Errorf("failed to set catalog permissions: %w", err)
	}
	if err := s.rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	committed = true
	return nil
}

// quarantine renames an unreadable catalog file out of the way.
func (s *Store) quarantine() error {
	bad := strings.TrimSuffix(s.Path(), ".json") + ".corrupt-" + s.now().Format(archiveLayout) + ".json"
	if err := os.Rename(s.Path(), bad); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to move corrupt catalog aside: %w", err)
	}
	return nil
}
