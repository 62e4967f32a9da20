package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmorrow/quarry/internal/corpus"
)

func TestProcessImportantWordBoost(t *testing.T) {
	p := NewProcessor()

	docID, counts, ok := p.Process(corpus.Record{
		URL:     "http://a.example/",
		Content: "<h1>Apple</h1> orange orange",
	})
	require.True(t, ok)
	assert.Equal(t, uint32(0), docID)

	// "appl" came from an h1, so its raw frequency is multiplied by 100
	assert.Equal(t, map[string]int{"appl": 100, "orang": 2}, counts)
	assert.Contains(t, p.ImportantWords(), "appl")
	assert.NotContains(t, p.ImportantWords(), "orang")
}

func TestProcessImportantSetGrowsDuringBuild(t *testing.T) {
	p := NewProcessor()

	// before any structural tag mentions apple, it scores unboosted
	_, counts, ok := p.Process(corpus.Record{URL: "http://early.example/", Content: "apple"})
	require.True(t, ok)
	assert.Equal(t, map[string]int{"appl": 1}, counts)

	_, _, ok = p.Process(corpus.Record{URL: "http://h1.example/", Content: "<h1>Apple</h1>"})
	require.True(t, ok)

	// later documents see the updated set
	_, counts, ok = p.Process(corpus.Record{URL: "http://late.example/", Content: "apple"})
	require.True(t, ok)
	assert.Equal(t, map[string]int{"appl": 100}, counts)
}

func TestProcessStructuralTags(t *testing.T) {
	p := NewProcessor()
	_, _, ok := p.Process(corpus.Record{
		URL: "http://tags.example/",
		Content: `<h1>alpha</h1><h2>bravo</h2><h3>charlie</h3>
<strong>delta</strong><b>echo</b><p>foxtrot</p><em>golf</em>`,
	})
	require.True(t, ok)

	for _, term := range []string{"alpha", "bravo", "charli", "delta", "echo"} {
		assert.Contains(t, p.ImportantWords(), term)
	}
	for _, term := range []string{"foxtrot", "golf"} {
		assert.NotContains(t, p.ImportantWords(), term)
	}
}

func TestProcessDuplicateURL(t *testing.T) {
	p := NewProcessor()

	_, _, ok := p.Process(corpus.Record{URL: "http://x.example/#a", Content: "one"})
	require.True(t, ok)

	// same canonical URL after fragment stripping: silent skip, no doc id
	_, _, ok = p.Process(corpus.Record{URL: "http://x.example/#b", Content: "two"})
	assert.False(t, ok)

	assert.Equal(t, 1, p.DocCount())
	assert.Equal(t, []string{"http://x.example/"}, p.URLs())
}

func TestProcessDocIDsContiguous(t *testing.T) {
	p := NewProcessor()
	for i, url := range []string{"http://a.example/", "http://b.example/", "http://c.example/"} {
		docID, _, ok := p.Process(corpus.Record{URL: url, Content: "text"})
		require.True(t, ok)
		assert.Equal(t, uint32(i), docID)
	}
}

func TestProcessEmptyContentStillClaimsID(t *testing.T) {
	p := NewProcessor()
	docID, counts, ok := p.Process(corpus.Record{URL: "http://empty.example/", Content: ""})
	require.True(t, ok)
	assert.Equal(t, uint32(0), docID)
	assert.Empty(t, counts)
	assert.Equal(t, 1, p.DocCount())
}

func TestProcessWholeDocumentCountedOnce(t *testing.T) {
	p := NewProcessor()
	// nested markup must not double count: "word" appears twice in text,
	// not four times via parent and child elements
	_, counts, ok := p.Process(corpus.Record{
		URL:     "http://nest.example/",
		Content: "<div><p>word</p><p>word</p></div>",
	})
	require.True(t, ok)
	assert.Equal(t, map[string]int{"word": 2}, counts)
}
