package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/quarry/internal/store"
)

// newEvaluator builds an index from (term -> postings) rows and returns an
// evaluator over it.
func newEvaluator(t *testing.T, rows map[string][]store.Posting, idToURL map[uint32]string, important map[string]struct{}) *Evaluator {
	t.Helper()
	st := store.New(t.TempDir())
	w, err := store.NewShardWriter(st.IndexDir())
	require.NoError(t, err)
	for term, postings := range rows {
		require.NoError(t, w.Write(term, postings))
	}
	require.NoError(t, w.Close())

	cache, err := NewCache(st, 0)
	require.NoError(t, err)
	if important == nil {
		important = map[string]struct{}{}
	}
	return NewEvaluator(cache, idToURL, important)
}

func TestSearchShortQuerySumPath(t *testing.T) {
	// doc 0: <h1>Apple</h1> orange orange; doc 1: apple
	// appl is in both docs (idf 0), orang only in doc 0
	e := newEvaluator(t,
		map[string][]store.Posting{
			"appl":  {{DocID: 0, Score: 0}, {DocID: 1, Score: 0}},
			"orang": {{DocID: 0, Score: 0.39}},
		},
		map[uint32]string{0: "http://a.example/", 1: "http://b.example/"},
		map[string]struct{}{"appl": {}},
	)

	urls, err := e.Search("apple orange")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example/", "http://b.example/"}, urls)
}

func TestSearchEmptyQuery(t *testing.T) {
	e := newEvaluator(t, nil, nil, nil)

	for _, q := range []string{"", "   ", "!!!"} {
		urls, err := e.Search(q)
		require.NoError(t, err)
		assert.Empty(t, urls, "query %q", q)
	}
}

func TestSearchNoMatches(t *testing.T) {
	e := newEvaluator(t,
		map[string][]store.Posting{"appl": {{DocID: 0, Score: 1}}},
		map[uint32]string{0: "http://a.example/"},
		nil,
	)

	urls, err := e.Search("zebra quagga")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestSearchCosineBlendRanking(t *testing.T) {
	// doc 0 matches all three query terms evenly; doc 1 matches only one,
	// strongly. The blend favors the broad match.
	e := newEvaluator(t,
		map[string][]store.Posting{
			"appl":   {{DocID: 0, Score: 1}, {DocID: 1, Score: 2}},
			"orang":  {{DocID: 0, Score: 1}},
			"banana": {{DocID: 0, Score: 1}},
		},
		map[uint32]string{0: "http://broad.example/", 1: "http://narrow.example/"},
		nil,
	)

	urls, err := e.Search("apple orange banana")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://broad.example/", "http://narrow.example/"}, urls)
}

func TestSearchImportantBoostPreservesOrder(t *testing.T) {
	rows := map[string][]store.Posting{
		"appl":   {{DocID: 0, Score: 1}, {DocID: 1, Score: 2}},
		"orang":  {{DocID: 0, Score: 1}},
		"banana": {{DocID: 0, Score: 1}},
	}
	idToURL := map[uint32]string{0: "http://broad.example/", 1: "http://narrow.example/"}

	plain := newEvaluator(t, rows, idToURL, nil)
	boosted := newEvaluator(t, rows, idToURL, map[string]struct{}{"appl": {}, "banana": {}})

	urlsPlain, err := plain.Search("apple orange banana")
	require.NoError(t, err)
	urlsBoosted, err := boosted.Search("apple orange banana")
	require.NoError(t, err)

	// the boost multiplies every document by the same (1+b) factor
	assert.Equal(t, urlsPlain, urlsBoosted)
}

func TestSearchDeterministic(t *testing.T) {
	rows := map[string][]store.Posting{
		"appl":  {{DocID: 0, Score: 0.5}, {DocID: 1, Score: 0.5}, {DocID: 2, Score: 0.5}},
		"orang": {{DocID: 1, Score: 0.5}, {DocID: 2, Score: 0.5}},
		"pear":  {{DocID: 2, Score: 0.5}},
	}
	idToURL := map[uint32]string{
		0: "http://zero.example/",
		1: "http://one.example/",
		2: "http://two.example/",
	}

	e := newEvaluator(t, rows, idToURL, nil)
	first, err := e.Search("apple orange pear")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for i := 0; i < 5; i++ {
		got, err := e.Search("apple orange pear")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestSearchQuartilePrune(t *testing.T) {
	// 50 candidate documents: the quarter cut retains the top 12 by mean
	postings := make([]store.Posting, 50)
	idToURL := make(map[uint32]string, 50)
	for i := range postings {
		postings[i] = store.Posting{DocID: uint32(i), Score: float64(50 - i)}
		idToURL[uint32(i)] = fmt.Sprintf("http://doc%02d.example/", i)
	}

	e := newEvaluator(t, map[string][]store.Posting{"appl": postings}, idToURL, nil)

	urls, err := e.Search("apple")
	require.NoError(t, err)
	require.Len(t, urls, 12)

	// scores descend with doc id here, so the retained set is ids 0..11
	for i, url := range urls {
		assert.Equal(t, fmt.Sprintf("http://doc%02d.example/", i), url)
	}
}

func TestSearchSmallCandidateSetNotPruned(t *testing.T) {
	// fewer than 40 candidates: the quarter cut would retain under 10
	// documents, so everything is kept
	postings := make([]store.Posting, 20)
	idToURL := make(map[uint32]string, 20)
	for i := range postings {
		postings[i] = store.Posting{DocID: uint32(i), Score: float64(20 - i)}
		idToURL[uint32(i)] = fmt.Sprintf("http://doc%02d.example/", i)
	}

	e := newEvaluator(t, map[string][]store.Posting{"appl": postings}, idToURL, nil)

	urls, err := e.Search("apple")
	require.NoError(t, err)
	assert.Len(t, urls, 20)
}
