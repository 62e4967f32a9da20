package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Posting pairs a document id with a score for one term.
//
// During the build phase the score is a raw (possibly boosted) term
// frequency; after the merge it is a TF-IDF value rounded to two decimals.
// Both render through the same codec: integral values carry no decimal
// point, so raw frequencies round-trip as integers.
type Posting struct {
	DocID uint32
	Score float64
}

// FormatPostings renders a posting list as the on-disk postings field:
// "docid:score" pairs joined by ", ".
func FormatPostings(postings []Posting) string {
	var sb strings.Builder
	for i, p := range postings {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatUint(uint64(p.DocID), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(p.Score, 'f', -1, 64))
	}
	return sb.String()
}

// ParsePostings parses a postings field produced by FormatPostings.
func ParsePostings(field string) ([]Posting, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}

	parts := strings.Split(field, ",")
	postings := make([]Posting, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		id, score, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("malformed posting %q", part)
		}
		docID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed doc id in posting %q: %w", part, err)
		}
		val, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed score in posting %q: %w", part, err)
		}
		postings = append(postings, Posting{DocID: uint32(docID), Score: val})
	}
	return postings, nil
}
