package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ShardWriter fans merged records out to the 27 final shard files, creating
// each shard lazily on first use and writing its header row. Records must
// arrive in lexicographic term order; the writer does not re-sort.
type ShardWriter struct {
	dir     string
	files   map[string]*os.File
	writers map[string]*csv.Writer
}

// NewShardWriter creates the shard directory and returns a writer over it.
func NewShardWriter(dir string) (*ShardWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shard directory: %w", err)
	}
	return &ShardWriter{
		dir:     dir,
		files:   make(map[string]*os.File),
		writers: make(map[string]*csv.Writer),
	}, nil
}

// Write appends one (term, postings) record to the shard implied by the
// term's first byte.
func (w *ShardWriter) Write(term string, postings []Posting) error {
	name := ShardName(term)
	cw, ok := w.writers[name]
	if !ok {
		f, err := os.Create(filepath.Join(w.dir, name))
		if err != nil {
			return fmt.Errorf("creating shard %s: %w", name, err)
		}
		cw = csv.NewWriter(f)
		if err := cw.Write([]string{"token", "postings"}); err != nil {
			f.Close()
			return fmt.Errorf("writing shard header %s: %w", name, err)
		}
		w.files[name] = f
		w.writers[name] = cw
	}
	return cw.Write([]string{term, FormatPostings(postings)})
}

// Close flushes and closes every open shard. The first error encountered is
// returned; all files are closed regardless.
func (w *ShardWriter) Close() error {
	var firstErr error
	for name, cw := range w.writers {
		cw.Flush()
		if err := cw.Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flushing shard %s: %w", name, err)
		}
	}
	for name, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing shard %s: %w", name, err)
		}
	}
	return firstErr
}

// WritePartial writes one sorted partial index to path: the shard row
// format without a header row.
func WritePartial(path string, records []PartialRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating partial %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rec := range records {
		if err := w.Write([]string{rec.Term, FormatPostings(rec.Postings)}); err != nil {
			return fmt.Errorf("writing partial %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing partial %s: %w", path, err)
	}
	return f.Close()
}

// PartialRecord is one (term, postings) pair of a partial index.
type PartialRecord struct {
	Term     string
	Postings []Posting
}

// PartialReader streams one sealed partial index in term order.
type PartialReader struct {
	path string
	f    *os.File
	r    *csv.Reader
}

// OpenPartial opens a sealed partial index for merging.
func OpenPartial(path string) (*PartialReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening partial %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	return &PartialReader{path: path, f: f, r: r}, nil
}

// Next returns the next record. It returns io.EOF when the stream is
// exhausted.
func (p *PartialReader) Next() (PartialRecord, error) {
	record, err := p.r.Read()
	if err == io.EOF {
		return PartialRecord{}, io.EOF
	}
	if err != nil {
		return PartialRecord{}, fmt.Errorf("reading partial %s: %w", p.path, err)
	}
	postings, err := ParsePostings(record[1])
	if err != nil {
		return PartialRecord{}, fmt.Errorf("partial %s row %q: %w", p.path, record[0], err)
	}
	return PartialRecord{Term: record[0], Postings: postings}, nil
}

// Close closes the underlying file.
func (p *PartialReader) Close() error {
	return p.f.Close()
}

// Path returns the on-disk path of the partial.
func (p *PartialReader) Path() string {
	return p.path
}
