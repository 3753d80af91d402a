package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/querykeeper/internal/rules"
	"github.com/solatis/querykeeper/internal/types"
)

// ErrNoDocument indicates the store holds no query document yet.
var ErrNoDocument = errors.New("no query document stored")

// DocumentRecord is one row of query_documents.
type DocumentRecord struct {
	DocumentID types.DocumentID `db:"document_id"`
	RootID     string           `db:"root_id"`
	Document   string           `db:"document"`
	RuleCount  int              `db:"rule_count"`
	CreatedAt  int64            `db:"created_at"` // unix milliseconds
}

// DocumentSummary is a row of list-query-documents.
type DocumentSummary struct {
	DocumentID types.DocumentID `db:"document_id" json:"document_id"`
	RootID     string           `db:"root_id" json:"root_id"`
	RuleCount  int              `db:"rule_count" json:"rule_count"`
	CreatedAt  int64            `db:"created_at" json:"created_at"`
}

// Tree decodes the stored document.
func (r DocumentRecord) Tree() (*types.RuleGroup, error) {
	tree, err := types.DecodeTree([]byte(r.Document))
	if err != nil {
		return nil, fmt.Errorf("stored document %s: %w", r.DocumentID, err)
	}
	return tree, nil
}

// Store persists rule trees as append-only document versions.
// The latest version is the one served to editors.
type Store struct {
	queries *Queries
	now     func() time.Time
}

// NewStore creates a Store over loaded named queries.
func NewStore(queries *Queries) *Store {
	return &Store{queries: queries, now: time.Now}
}

// Save stores tree as a new document version and returns its record.
func (s *Store) Save(ctx context.Context, tree *types.RuleGroup) (DocumentRecord, error) {
	if tree == nil {
		return DocumentRecord{}, fmt.Errorf("%w: nil tree", types.ErrInvalidTree)
	}
	if types.Depth(tree) > types.MaxTreeDepth {
		return DocumentRecord{}, types.ErrTreeTooDeep
	}

	body, err := json.Marshal(tree)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to encode tree: %w", err)
	}

	record := DocumentRecord{
		DocumentID: types.NewDocumentID(),
		RootID:     tree.ID,
		Document:   string(body),
		RuleCount:  rules.Measure(tree).Leaves,
		CreatedAt:  s.now().UnixMilli(),
	}

	if _, err := s.queries.Exec(ctx, "insert-query-document",
		record.DocumentID, record.RootID, record.Document, record.RuleCount, record.CreatedAt,
	); err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to insert document: %w", err)
	}
	return record, nil
}

// Latest returns the most recently saved document, or ErrNoDocument.
func (s *Store) Latest(ctx context.Context) (DocumentRecord, error) {
	var record DocumentRecord
	err := s.queries.Get(ctx, "get-latest-query-document", &record)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentRecord{}, ErrNoDocument
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to load latest document: %w", err)
	}
	return record, nil
}

// Get returns one document version by id, or ErrNoDocument.
func (s *Store) Get(ctx context.Context, id types.DocumentID) (DocumentRecord, error) {
	var record DocumentRecord
	err := s.queries.Get(ctx, "get-query-document", &record, id)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentRecord{}, ErrNoDocument
	}
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return record, nil
}

// List returns up to limit document summaries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	summaries := []DocumentSummary{}
	if err := s.queries.Select(ctx, "list-query-documents", &summaries, limit); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return summaries, nil
}

// Count returns the number of stored document versions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.queries.Get(ctx, "count-query-documents", &n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Prune deletes versions older than before, always keeping the latest one.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.queries.Exec(ctx, "prune-query-documents", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune documents: %w", err)
	}
	return res.RowsAffected()
}
