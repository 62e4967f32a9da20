package search

import (
	"math"
	"sort"

	"github.com/cmorrow/quarry/internal/analysis"
	"github.com/cmorrow/quarry/internal/store"
)

// Quartile-prune bounds: at most maxRetained candidate documents enter the
// ranking stage, and the quarter cut only applies once it would retain at
// least minQuartile documents.
const (
	maxRetained = 500
	minQuartile = 10
)

// Evaluator ranks documents for natural-language queries against a sealed
// index.
type Evaluator struct {
	cache     *Cache
	idToURL   map[uint32]string
	important map[string]struct{}
}

// NewEvaluator returns an Evaluator reading posting lists through cache.
// important is the build-time important-word set used for the query boost.
func NewEvaluator(cache *Cache, idToURL map[uint32]string, important map[string]struct{}) *Evaluator {
	return &Evaluator{cache: cache, idToURL: idToURL, important: important}
}

// Search tokenizes the query and returns URLs ordered by descending
// relevance. An empty result means no query term matched any document.
// Callers may trim the ranking to a display cutoff.
func (e *Evaluator) Search(query string) ([]string, error) {
	queryTerms := analysis.Tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	// deduplicate preserving first occurrence; count occurrences per
	// unique term for the query vector
	var unique []string
	counts := make(map[string]int)
	for _, term := range queryTerms {
		if counts[term] == 0 {
			unique = append(unique, term)
		}
		counts[term]++
	}
	queryVec := make([]float64, len(unique))
	for i, term := range unique {
		queryVec[i] = float64(counts[term])
	}

	// fetch posting lists through the cache
	lists := make([][]store.Posting, len(unique))
	anyMatch := false
	for i, term := range unique {
		postings, err := e.cache.Retrieve(term)
		if err != nil {
			return nil, err
		}
		lists[i] = postings
		if len(postings) > 0 {
			anyMatch = true
		}
	}
	if !anyMatch {
		return nil, nil
	}

	// sparse document-term matrix: one dense row per mentioned document
	vectors := make(map[uint32][]float64)
	for i, postings := range lists {
		for _, p := range postings {
			row, ok := vectors[p.DocID]
			if !ok {
				row = make([]float64, len(unique))
				vectors[p.DocID] = row
			}
			row[i] = p.Score
		}
	}

	retained, avgMax := pruneToQuartile(vectors)

	scores := make(map[uint32]float64, len(retained))
	if len(unique) < 3 {
		// short-query fast path: lexical overlap dominates, skip the
		// cosine machinery
		for _, docID := range retained {
			var sum float64
			for _, v := range vectors[docID] {
				sum += v
			}
			scores[docID] = sum
		}
	} else {
		boost := 0
		for _, term := range unique {
			if _, ok := e.important[term]; ok {
				boost++
			}
		}

		queryNorm := normalize(queryVec)
		for _, docID := range retained {
			row := vectors[docID]
			docNorm := normalize(row)

			var cos float64
			for i := range queryNorm {
				cos += queryNorm[i] * docNorm[i]
			}

			meanPart := 0.0
			if avgMax != 0 {
				meanPart = mean(row) / avgMax
			}

			base := 0.6*cos + 0.4*meanPart
			scores[docID] = base * float64(1+boost)
		}
	}

	// order by descending score, ascending doc id on ties for
	// deterministic output
	ranked := make([]uint32, len(retained))
	copy(ranked, retained)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})

	urls := make([]string, 0, len(ranked))
	for _, docID := range ranked {
		if url, ok := e.idToURL[docID]; ok {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

// pruneToQuartile keeps the best candidate documents by mean vector value:
// the top quarter when that keeps at least minQuartile documents, everything
// otherwise, capped at maxRetained. It also returns the mean of the
// top-ranked document's vector, the normalization reference for the
// mean-score ranking component.
func pruneToQuartile(vectors map[uint32][]float64) ([]uint32, float64) {
	if len(vectors) == 0 {
		return nil, 0
	}

	type docMean struct {
		docID uint32
		mean  float64
	}
	means := make([]docMean, 0, len(vectors))
	for docID, row := range vectors {
		means = append(means, docMean{docID: docID, mean: mean(row)})
	}
	sort.Slice(means, func(i, j int) bool {
		if means[i].mean != means[j].mean {
			return means[i].mean > means[j].mean
		}
		return means[i].docID < means[j].docID
	})

	keep := len(means) / 4
	if keep < minQuartile {
		keep = len(means)
	}
	if keep > maxRetained {
		keep = maxRetained
	}

	retained := make([]uint32, keep)
	for i := range retained {
		retained[i] = means[i].docID
	}
	return retained, means[0].mean
}

// normalize returns v scaled to unit L2 length. A zero vector normalizes to
// the zero vector.
func normalize(v []float64) []float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}
	out := make([]float64, len(v))
	if sumSquares == 0 {
		return out
	}
	length := math.Sqrt(sumSquares)
	for i, x := range v {
		out[i] = x / length
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
