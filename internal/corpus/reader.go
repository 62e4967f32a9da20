// Package corpus streams web documents out of a corpus directory.
//
// A corpus is a directory tree of files, each file holding newline-delimited
// JSON records of the form {"url": string, "content": html}. Files are
// discovered by glob pattern and records are yielded one at a time; no file
// is ever loaded whole.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxRecordBytes bounds a single corpus line to prevent memory overload on
// pathological records.
const MaxRecordBytes = 50 * 1024 * 1024

// Record is one corpus document: a URL and its raw HTML content.
type Record struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Reader discovers and streams corpus files under a root directory.
type Reader struct {
	root    string
	pattern string
}

// NewReader returns a Reader over root. pattern is a doublestar glob
// relative to root; "**/*" matches every file in the tree.
func NewReader(root, pattern string) *Reader {
	if pattern == "" {
		pattern = "**/*"
	}
	return &Reader{root: root, pattern: pattern}
}

// Files returns the corpus file paths in sorted order. Doc-id assignment
// follows this order, so it must be deterministic across runs.
func (r *Reader) Files() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(r.root), r.pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing corpus %s: %w", r.root, err)
	}

	var files []string
	for _, m := range matches {
		full := filepath.Join(r.root, m)
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", full, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, full)
	}
	sort.Strings(files)
	return files, nil
}

// EachRecord streams the JSON records of one corpus file through fn in file
// order. Malformed lines are logged and skipped; an error returned by fn
// aborts the stream and propagates.
func (r *Reader) EachRecord(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxRecordBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("skipping malformed corpus record", "file", path, "line", lineNo, "error", err)
			continue
		}
		if rec.URL == "" {
			slog.Warn("skipping corpus record without url", "file", path, "line", lineNo)
			continue
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	return nil
}
