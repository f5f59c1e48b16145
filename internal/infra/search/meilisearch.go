package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
)

const primaryKey = "id"

// UserIndex mirrors user documents into a Meilisearch index.
type UserIndex struct {
	client  meilisearch.ServiceManager
	index   meilisearch.IndexManager
	uid     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewUserIndex connects to Meilisearch using cfg.
func NewUserIndex(cfg config.SearchSettings, logger *zap.Logger) *UserIndex {
	opts := []meilisearch.Option{}
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	client := meilisearch.New(cfg.URL, opts...)

	return &UserIndex{
		client:  client,
		index:   client.Index(cfg.UserIndex),
		uid:     cfg.UserIndex,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (i *UserIndex) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.timeout)
}

// EnsureIndex enqueues creation of the user index. An existing index only fails the async task.
func (i *UserIndex) EnsureIndex(ctx context.Context) error {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	task, err := i.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
		Uid:        i.uid,
		PrimaryKey: primaryKey,
	})
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.uid, err)
	}

	i.logger.Info("search index ensured",
		zap.String("index", i.uid),
		zap.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// Search runs a paginated query and returns the matching ids in relevance order.
func (i *UserIndex) Search(ctx context.Context, query string, page, hitsPerPage int) (*port.SearchResult, error) {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	resp, err := i.index.SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Page:                 int64(page),
		HitsPerPage:          int64(hitsPerPage),
		AttributesToRetrieve: []string{primaryKey},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", i.uid, err)
	}

	hits, err := decodeHits(resp.Hits)
	if err != nil {
		return nil, err
	}

	return &port.SearchResult{
		Hits:      hits,
		TotalHits: resp.TotalHits,
	}, nil
}

func decodeHits(raw any) ([]port.SearchHit, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode search hits: %w", err)
	}

	var docs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}

	hits := make([]port.SearchHit, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		hits = append(hits, port.SearchHit{ID: doc.ID})
	}
	return hits, nil
}

// UpdateDocuments upserts docs by id.
func (i *UserIndex) UpdateDocuments(ctx context.Context, docs []domain.UserDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	task, err := i.index.UpdateDocumentsWithContext(ctx, docs, primaryKey)
	if err != nil {
		return fmt.Errorf("update documents in %s: %w", i.uid, err)
	}

	i.logger.Debug("search documents enqueued",
		zap.String("index", i.uid),
		zap.Int("count", len(docs)),
		zap.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// DeleteDocuments removes the documents with the given ids.
func (i *UserIndex) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	task, err := i.index.DeleteDocumentsWithContext(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete documents from %s: %w", i.uid, err)
	}

	i.logger.Debug("search documents deletion enqueued",
		zap.String("index", i.uid),
		zap.Int("count", len(ids)),
		zap.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// HealthCheck reports whether the search engine answers.
func (i *UserIndex) HealthCheck(ctx context.Context) error {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	health, err := i.client.HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("search health: %w", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("search health: status %s", health.Status)
	}
	return nil
}

var _ port.SearchIndex = (*UserIndex)(nil)
