package indexer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/cmorrow/quarry/internal/store"
)

// ErrMergeInvariant indicates a corrupted partial index: a stream yielded
// terms out of lexicographic order. The merge aborts; partials are left on
// disk for diagnosis.
var ErrMergeInvariant = errors.New("merge invariant violation")

// mergeStream is one open partial with its current frontier record.
type mergeStream struct {
	r        *store.PartialReader
	head     store.PartialRecord
	lastTerm string
	started  bool
}

// advance loads the stream's next record, enforcing strict term ordering
// within the stream. It reports false when the stream is exhausted.
func (m *mergeStream) advance() (bool, error) {
	rec, err := m.r.Next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if m.started && rec.Term <= m.lastTerm {
		return false, fmt.Errorf("%w: %s yields %q after %q", ErrMergeInvariant, m.r.Path(), rec.Term, m.lastTerm)
	}
	m.head = rec
	m.lastTerm = rec.Term
	m.started = true
	return true, nil
}

// Merge performs the k-way external merge of the given partial indices
// into the final shards under st, transforming raw frequencies to TF-IDF
// with totalDocs as the corpus size. On success all partials are deleted.
// It returns the number of unique terms written.
func Merge(st *store.Store, partials []string, totalDocs int) (int, error) {
	streams := make([]*mergeStream, 0, len(partials))
	defer func() {
		for _, s := range streams {
			s.r.Close()
		}
	}()

	for _, path := range partials {
		r, err := store.OpenPartial(path)
		if err != nil {
			return 0, err
		}
		s := &mergeStream{r: r}
		ok, err := s.advance()
		if err != nil {
			r.Close()
			return 0, err
		}
		if !ok {
			r.Close()
			continue
		}
		streams = append(streams, s)
	}

	w, err := store.NewShardWriter(st.IndexDir())
	if err != nil {
		return 0, err
	}

	uniqueTerms := 0
	for len(streams) > 0 {
		// min term across the frontier, stable on ties by stream order
		minTerm := streams[0].head.Term
		for _, s := range streams[1:] {
			if s.head.Term < minTerm {
				minTerm = s.head.Term
			}
		}

		var postings []store.Posting
		contributed := make([]*mergeStream, 0, len(streams))
		for _, s := range streams {
			if s.head.Term == minTerm {
				postings = append(postings, s.head.Postings...)
				contributed = append(contributed, s)
			}
		}

		merged := consolidate(postings)
		for i := range merged {
			merged[i].Score = tfidf(merged[i].Score, totalDocs, len(merged))
		}

		if err := w.Write(minTerm, merged); err != nil {
			w.Close()
			return 0, err
		}
		uniqueTerms++

		// advance every contributing stream, dropping exhausted ones
		next := streams[:0]
		for _, s := range streams {
			keep := true
			for _, c := range contributed {
				if s == c {
					ok, err := s.advance()
					if err != nil {
						w.Close()
						return 0, err
					}
					if !ok {
						s.r.Close()
						keep = false
					}
					break
				}
			}
			if keep {
				next = append(next, s)
			}
		}
		streams = next
	}

	if err := w.Close(); err != nil {
		return 0, err
	}

	for _, path := range partials {
		if err := os.Remove(path); err != nil {
			return 0, fmt.Errorf("deleting merged partial: %w", err)
		}
	}
	return uniqueTerms, nil
}

// consolidate sorts postings by doc id and sums scores for equal ids.
// Duplicate ids cannot arise from a correct build, but the merge stays
// correct if they do.
func consolidate(postings []store.Posting) []store.Posting {
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})

	out := postings[:0]
	for _, p := range postings {
		if n := len(out); n > 0 && out[n-1].DocID == p.DocID {
			out[n-1].Score += p.Score
			continue
		}
		out = append(out, p)
	}
	return out
}

// tfidf computes (1 + log10(raw)) * log10(N/df), rounded to two decimals
// at write time so the on-disk format is bit-stable across runs.
func tfidf(raw float64, totalDocs, df int) float64 {
	v := (1 + math.Log10(raw)) * math.Log10(float64(totalDocs)/float64(df))
	return math.Round(v*100) / 100
}
