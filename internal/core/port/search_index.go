package port

import (
	"context"

	"github.com/arklim/account-service/internal/core/domain"
)

// SearchHit is a single id-keyed match returned by the index.
type SearchHit struct {
	ID string
}

// SearchResult carries one page of hits and the engine's total.
type SearchResult struct {
	Hits      []SearchHit
	TotalHits int64
}

// SearchIndex mirrors user documents for full-text lookup.
type SearchIndex interface {
	Search(ctx context.Context, query string, page, hitsPerPage int) (*SearchResult, error)
	UpdateDocuments(ctx context.Context, docs []domain.UserDocument) error
	DeleteDocuments(ctx context.Context, ids []string) error
}
