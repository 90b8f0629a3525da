package repositories

import (
	"context"

	"github.com/docledger/docledger/internal/core/domain"
)

// DocumentRepository is the contract with the content-addressed document/graph
// store. Documents are immutable once written (the hash is the identity);
// "mutation" is writing a new document and repointing the current-hash index.
// Relations are typed directed edges, always maintained as forward/reverse
// pairs through Link/Unlink so the two directions cannot diverge.
type DocumentRepository interface {
	// SaveDocument persists a document under its content hash. Saving a hash
	// that already exists is a no-op (content-addressed idempotency).
	SaveDocument(ctx context.Context, doc domain.Document) error

	// FindDocumentByHash loads a document, apperrors.ErrNotFound if absent.
	FindDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)

	// EraseDocument deletes a document and, when cascade is set, every
	// relation touching it in either direction.
	EraseDocument(ctx context.Context, hash string, cascade bool) error

	// Link creates the forward (from→to, kind) and reverse (to→from,
	// reverseKind) relations as one operation.
	Link(ctx context.Context, creator, from, to, kind, reverseKind string) error

	// Unlink removes both directions of a relation pair.
	Unlink(ctx context.Context, from, to, kind, reverseKind string) error

	// FindRelation returns the relation (from, kind) if it exists, nil if not.
	FindRelation(ctx context.Context, from, kind string) (*domain.Relation, error)

	// ListRelationsFrom returns all relations leaving from with the given kind.
	ListRelationsFrom(ctx context.Context, from, kind string) ([]domain.Relation, error)

	// SetCurrentHash atomically repoints the key → current-document index.
	SetCurrentHash(ctx context.Context, key, hash string) error

	// GetCurrentHash resolves the current document hash for a key,
	// apperrors.ErrNotFound if the key was never set.
	GetCurrentHash(ctx context.Context, key string) (string, error)

	// DeleteCurrentHash retires an index key. Deleting an absent key is a no-op.
	DeleteCurrentHash(ctx context.Context, key string) error

	// IncrementCounter bumps a named monotonic counter and returns the new
	// value. The first increment returns 1.
	IncrementCounter(ctx context.Context, name string) (int64, error)

	// UpsertCursor records the last ingested cursor for an event source.
	UpsertCursor(ctx context.Context, cursor domain.Cursor) error

	// FindCursorBySource returns the cursor for a source, ErrNotFound if none.
	FindCursorBySource(ctx context.Context, source string) (*domain.Cursor, error)

	// ListCursors returns all known source cursors.
	ListCursors(ctx context.Context) ([]domain.Cursor, error)

	// ListDocumentsByType returns up to limit documents whose system group
	// carries the given node type. Used by bounded-batch cleanup.
	ListDocumentsByType(ctx context.Context, nodeType string, limit int) ([]domain.Document, error)
}

// DocumentRepositoryWithTx extends the store with an all-or-nothing unit of
// work. Every lifecycle operation runs inside exactly one WithinTx call:
// either all of its document writes, relation wiring and balance updates take
// effect, or none do.
type DocumentRepositoryWithTx interface {
	DocumentRepository

	WithinTx(ctx context.Context, fn func(ctx context.Context, repo DocumentRepository) error) error
}
