// Package indexer builds the inverted index: per-document processing,
// bounded-memory accumulation with partial flushes, and the k-way external
// merge that produces the final partitioned index.
package indexer

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cmorrow/quarry/internal/analysis"
	"github.com/cmorrow/quarry/internal/corpus"
)

// importantSelector matches the structural-emphasis elements whose text
// feeds the important-word set.
const importantSelector = "h1, h2, h3, strong, b"

// Processor turns corpus records into posting contributions. It owns the
// URL/doc-id registry and the global important-word set, both of which grow
// monotonically over one build.
type Processor struct {
	urlToID   map[string]uint32
	urls      []string
	important map[string]struct{}
}

// NewProcessor returns an empty Processor.
func NewProcessor() *Processor {
	return &Processor{
		urlToID:   make(map[string]uint32),
		important: make(map[string]struct{}),
	}
}

// canonicalURL strips the fragment from a URL. First occurrence of a
// canonical URL wins; later duplicates are skipped.
func canonicalURL(raw string) string {
	canon, _, _ := strings.Cut(raw, "#")
	return canon
}

// Process ingests one corpus record and returns the allocated doc id plus
// the term-to-score contribution for the document. ok is false when the
// record was skipped (duplicate URL, or a URL that is empty once its
// fragment is stripped); skipped records consume no doc id. Content never
// causes a skip: HTML that cannot be parsed is tokenized as plain text.
//
// Terms found inside structural-emphasis tags are added to the global
// important-word set before scoring, so a term is boosted in the same
// document that introduces it. Scores are raw frequencies, multiplied by
// 100 for terms in the important-word set as of this document.
func (p *Processor) Process(rec corpus.Record) (docID uint32, counts map[string]int, ok bool) {
	canon := canonicalURL(rec.URL)
	if canon == "" {
		slog.Warn("skipping record with empty canonical url", "url", rec.URL)
		return 0, nil, false
	}
	if _, seen := p.urlToID[canon]; seen {
		// duplicate URL, silent skip
		return 0, nil, false
	}

	// empty or tokenless content still claims a doc id: the URL was
	// ingested, it just contributes no postings
	terms := p.extractTerms(rec)

	counts = make(map[string]int)
	for _, term := range terms {
		counts[term]++
	}
	for term := range counts {
		if _, boosted := p.important[term]; boosted {
			counts[term] *= 100
		}
	}

	docID = uint32(len(p.urls))
	p.urlToID[canon] = docID
	p.urls = append(p.urls, canon)
	return docID, counts, true
}

// extractTerms parses the record's HTML, harvests important words, and
// returns the document-wide token stream. Content that cannot be parsed as
// HTML is tokenized as plain text.
func (p *Processor) extractTerms(rec corpus.Record) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Content))
	if err != nil {
		slog.Warn("treating unparseable html as plain text", "url", rec.URL, "error", err)
		return analysis.Tokenize(rec.Content)
	}

	doc.Find(importantSelector).Each(func(_ int, s *goquery.Selection) {
		for _, term := range analysis.Tokenize(s.Text()) {
			p.important[term] = struct{}{}
		}
	})

	// document-wide bag of words: every text node once, with no
	// per-element double counting, joined by spaces so that words in
	// adjacent elements stay separate
	var texts []string
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			texts = append(texts, s.Text())
		}
	})
	return analysis.Tokenize(strings.Join(texts, " "))
}

// DocCount returns the number of documents processed so far.
func (p *Processor) DocCount() int {
	return len(p.urls)
}

// URLs returns the canonical URLs indexed by doc id.
func (p *Processor) URLs() []string {
	return p.urls
}

// ImportantWords returns the important-word set accumulated so far. The
// map is live; callers must not mutate it.
func (p *Processor) ImportantWords() map[string]struct{} {
	return p.important
}
