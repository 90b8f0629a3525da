package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	"github.com/docledger/docledger/internal/middleware"
)

// querier is the subset of pgx shared by a pool and a transaction, so the
// same repository code runs inside and outside WithinTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres document/graph store.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository creates a Postgres-backed repository over a connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

var _ portsrepo.DocumentRepositoryWithTx = (*Repository)(nil)

func (r *Repository) SaveDocument(ctx context.Context, doc domain.Document) error {
	groups, err := json.Marshal(doc.Groups)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.Hash, err)
	}
	query := `
		INSERT INTO documents (hash, node_type, creator, created_at, groups)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO NOTHING`
	_, err = r.q.Exec(ctx, query, doc.Hash, domain.NodeType(doc), doc.Creator, doc.CreatedAt, groups)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.Hash, err)
	}
	return nil
}

func (r *Repository) FindDocumentByHash(ctx context.Context, hash string) (*domain.Document, error) {
	query := `SELECT hash, creator, created_at, groups FROM documents WHERE hash = $1`
	var doc domain.Document
	var groups []byte
	err := r.q.QueryRow(ctx, query, hash).Scan(&doc.Hash, &doc.Creator, &doc.CreatedAt, &groups)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", apperrors.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document %s: %w", hash, err)
	}
	if err := json.Unmarshal(groups, &doc.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", hash, err)
	}
	return &doc, nil
}

func (r *Repository) EraseDocument(ctx context.Context, hash string, cascade bool) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM documents WHERE hash = $1`, hash); err != nil {
		return fmt.Errorf("failed to erase document %s: %w", hash, err)
	}
	if cascade {
		query := `DELETE FROM relations WHERE from_hash = $1 OR to_hash = $1`
		if _, err := r.q.Exec(ctx, query, hash); err != nil {
			return fmt.Errorf("failed to erase relations of %s: %w", hash, err)
		}
	}
	return nil
}

func (r *Repository) Link(ctx context.Context, creator, from, to, kind, reverseKind string) error {
	query := `
		INSERT INTO relations (from_hash, kind, to_hash, creator)
		VALUES ($1, $2, $3, $4), ($3, $5, $1, $4)
		ON CONFLICT (from_hash, kind, to_hash) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, from, kind, to, creator, reverseKind); err != nil {
		return fmt.Errorf("failed to link %s -[%s]-> %s: %w", from, kind, to, err)
	}
	return nil
}

func (r *Repository) Unlink(ctx context.Context, from, to, kind, reverseKind string) error {
	query := `
		DELETE FROM relations
		WHERE (from_hash = $1 AND kind = $2 AND to_hash = $3)
		   OR (from_hash = $3 AND kind = $4 AND to_hash = $1)`
	if _, err := r.q.Exec(ctx, query, from, kind, to, reverseKind); err != nil {
		return fmt.Errorf("failed to unlink %s -[%s]-> %s: %w", from, kind, to, err)
	}
	return nil
}

func (r *Repository) FindRelation(ctx context.Context, from, kind string) (*domain.Relation, error) {
	query := `
		SELECT from_hash, to_hash, kind FROM relations
		WHERE from_hash = $1 AND kind = $2
		ORDER BY seq LIMIT 1`
	var rel domain.Relation
	err := r.q.QueryRow(ctx, query, from, kind).Scan(&rel.From, &rel.To, &rel.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find relation %s -[%s]->: %w", from, kind, err)
	}
	return &rel, nil
}

func (r *Repository) ListRelationsFrom(ctx context.Context, from, kind string) ([]domain.Relation, error) {
	query := `
		SELECT from_hash, to_hash, kind FROM relations
		WHERE from_hash = $1 AND kind = $2
		ORDER BY seq`
	rows, err := r.q.Query(ctx, query, from, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations %s -[%s]->: %w", from, kind, err)
	}
	defer rows.Close()

	var rels []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		if err := rows.Scan(&rel.From, &rel.To, &rel.Kind); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func (r *Repository) SetCurrentHash(ctx context.Context, key, hash string) error {
	query := `
		INSERT INTO current_docs (key, hash) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET hash = EXCLUDED.hash`
	if _, err := r.q.Exec(ctx, query, key, hash); err != nil {
		return fmt.Errorf("failed to set current hash for %q: %w", key, err)
	}
	return nil
}

func (r *Repository) GetCurrentHash(ctx context.Context, key string) (string, error) {
	var hash string
	err := r.q.QueryRow(ctx, `SELECT hash FROM current_docs WHERE key = $1`, key).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: current hash for key %q", apperrors.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current hash for %q: %w", key, err)
	}
	return hash, nil
}

func (r *Repository) DeleteCurrentHash(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM current_docs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete current hash for %q: %w", key, err)
	}
	return nil
}

func (r *Repository) IncrementCounter(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`
	var value int64
	if err := r.q.QueryRow(ctx, query, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to increment counter %q: %w", name, err)
	}
	return value, nil
}

func (r *Repository) UpsertCursor(ctx context.Context, cursor domain.Cursor) error {
	query := `
		INSERT INTO cursors (source, last_cursor) VALUES ($1, $2)
		ON CONFLICT (source) DO UPDATE SET last_cursor = EXCLUDED.last_cursor`
	if _, err := r.q.Exec(ctx, query, cursor.Source, cursor.LastCursor); err != nil {
		return fmt.Errorf("failed to upsert cursor for %q: %w", cursor.Source, err)
	}
	return nil
}

func (r *Repository) FindCursorBySource(ctx context.Context, source string) (*domain.Cursor, error) {
	var cursor domain.Cursor
	err := r.q.QueryRow(ctx, `SELECT source, last_cursor FROM cursors WHERE source = $1`, source).
		Scan(&cursor.Source, &cursor.LastCursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: cursor for source %q", apperrors.ErrNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cursor for %q: %w", source, err)
	}
	return &cursor, nil
}

func (r *Repository) ListCursors(ctx context.Context) ([]domain.Cursor, error) {
	rows, err := r.q.Query(ctx, `SELECT source, last_cursor FROM cursors ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}
	defer rows.Close()

	var cursors []domain.Cursor
	for rows.Next() {
		var cursor domain.Cursor
		if err := rows.Scan(&cursor.Source, &cursor.LastCursor); err != nil {
			return nil, err
		}
		cursors = append(cursors, cursor)
	}
	return cursors, rows.Err()
}

func (r *Repository) ListDocumentsByType(ctx context.Context, nodeType string, limit int) ([]domain.Document, error) {
	query := `
		SELECT hash, creator, created_at, groups FROM documents
		WHERE node_type = $1
		ORDER BY created_at, hash
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, nodeType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", nodeType, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var groups []byte
		if err := rows.Scan(&doc.Hash, &doc.Creator, &doc.CreatedAt, &groups); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(groups, &doc.Groups); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.Hash, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// WithinTx runs fn against a transaction-bound repository, committing on
// success and rolling back on error or panic.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo portsrepo.DocumentRepository) error) error {
	if r.pool == nil {
		return fmt.Errorf("%w: nested transactions are not supported", apperrors.ErrInternal)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, &Repository{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
