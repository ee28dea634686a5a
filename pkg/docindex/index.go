// Package docindex stores reference documents and retrieves the ones
// most relevant to a query. The researcher step uses it to ground
// prompts in caller-supplied material. Scoring is keyword overlap, not
// embeddings; the interface leaves room to swap that out.
package docindex

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrClosed is returned from operations on a closed index.
var ErrClosed = errors.New("docindex: index closed")

// Result is one retrieved document with its relevance score.
// Higher scores are more relevant; scores are comparable only within
// one Search call.
type Result struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Index is a collection-keyed document store with relevance search.
type Index interface {
	// Search returns up to topK documents from the collection ordered
	// by descending relevance to query. Documents with zero relevance
	// are omitted, so fewer than topK results is common.
	Search(ctx context.Context, collection, query string, topK int) ([]Result, error)

	// AddDocuments appends texts to the collection. Empty strings are
	// skipped. Duplicates are stored again, not deduplicated.
	AddDocuments(ctx context.Context, collection string, texts []string) error

	// Close releases underlying resources.
	Close() error
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases text and splits it into alphanumeric terms.
func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// termSet builds a set of unique terms.
func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// score counts query terms present in the document, normalized by the
// query's term count so scores stay in [0, 1].
func score(queryTerms map[string]struct{}, doc string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := termSet(doc)
	hits := 0
	for t := range queryTerms {
		if _, ok := docTerms[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}
