package indexer

import (
	"log/slog"
	"sort"

	"github.com/cmorrow/quarry/internal/corpus"
	"github.com/cmorrow/quarry/internal/store"
)

// Flush thresholds for the in-memory accumulator, in bytes of accounted
// working set.
const (
	DefaultFlushThreshold     = 3 * 1024 * 1024
	LargeCorpusFlushThreshold = 1024 * 1024 * 1024

	// postingAccountingBytes is the fixed per-posting charge used by the
	// explicit byte accounting; term bytes are charged once per term.
	postingAccountingBytes = 16
)

// Builder accumulates an in-memory inverted index and flushes sorted
// partial indices to disk whenever the accounted size crosses the flush
// threshold. It is the single owner of all mutable build state; the
// accumulator merge point is not safe for concurrent use.
type Builder struct {
	proc      *Processor
	st        *store.Store
	threshold int

	acc      map[string][]store.Posting
	accBytes int

	partials []string
}

// NewBuilder returns a Builder flushing to st's partial files. threshold
// is the accumulator byte budget; zero selects the default.
func NewBuilder(st *store.Store, proc *Processor, threshold int) *Builder {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Builder{
		proc:      proc,
		st:        st,
		threshold: threshold,
		acc:       make(map[string][]store.Posting),
	}
}

// Ingest processes one corpus record and folds its contribution into the
// accumulator, flushing a partial index if the byte budget is exceeded.
// Records the processor skips (duplicate or empty URLs) are absorbed here.
func (b *Builder) Ingest(rec corpus.Record) error {
	docID, counts, ok := b.proc.Process(rec)
	if !ok {
		return nil
	}

	for term, freq := range counts {
		postings, seen := b.acc[term]
		if !seen {
			b.accBytes += len(term)
		}
		b.acc[term] = append(postings, store.Posting{DocID: docID, Score: float64(freq)})
		b.accBytes += postingAccountingBytes
	}

	if b.accBytes >= b.threshold {
		return b.Flush()
	}
	return nil
}

// Flush writes the accumulator as the next sorted partial index and clears
// it. Flushing an empty accumulator is a no-op.
func (b *Builder) Flush() error {
	if len(b.acc) == 0 {
		return nil
	}

	terms := make([]string, 0, len(b.acc))
	for term := range b.acc {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	records := make([]store.PartialRecord, len(terms))
	for i, term := range terms {
		records[i] = store.PartialRecord{Term: term, Postings: b.acc[term]}
	}

	path := b.st.PartialPath(len(b.partials))
	if err := store.WritePartial(path, records); err != nil {
		return err
	}
	slog.Debug("flushed partial index", "path", path, "terms", len(terms), "accountedBytes", b.accBytes)

	b.partials = append(b.partials, path)
	b.acc = make(map[string][]store.Posting)
	b.accBytes = 0
	return nil
}

// Partials returns the paths of all partial indices flushed so far, in
// flush order.
func (b *Builder) Partials() []string {
	return b.partials
}
