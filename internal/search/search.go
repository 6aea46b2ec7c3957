// Package search finds candidate web pages for a question.
package search

import (
	"context"

	"github.com/ppiankov/askweb/internal/model"
)

// DefaultMaxResults is the number of web hits used as evidence
const DefaultMaxResults = 5

// WebSearcher returns ranked web hits for a query
type WebSearcher interface {
	Search(ctx context.Context, query string, max int) ([]model.WebResult, error)
}
