package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/docledger/internal/adapters/database/memory"
	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
)

func testDoc(label string) domain.Document {
	return domain.NewDocument("tester", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), domain.ContentGroups{
		{
			Label:    domain.GroupDetails,
			Contents: []domain.Content{domain.StringContent("label", label)},
		},
		domain.SystemGroup(label, domain.TypeEvent),
	})
}

func TestSaveAndFindDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doc := testDoc("a")

	require.NoError(t, store.SaveDocument(ctx, doc))
	// Saving identical content again is a no-op, not an error.
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.FindDocumentByHash(ctx, doc.Hash)
	require.NoError(t, err)
	assert.Equal(t, doc, *got)

	_, err = store.FindDocumentByHash(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLinkWritesBothDirections(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Link(ctx, "tester", "a", "b", "owns", "ownedby"))
	require.NoError(t, store.Link(ctx, "tester", "a", "b", "owns", "ownedby")) // dedupe

	forward, err := store.FindRelation(ctx, "a", "owns")
	require.NoError(t, err)
	require.NotNil(t, forward)
	assert.Equal(t, "b", forward.To)

	reverse, err := store.FindRelation(ctx, "b", "ownedby")
	require.NoError(t, err)
	require.NotNil(t, reverse)
	assert.Equal(t, "a", reverse.To)

	rels, err := store.ListRelationsFrom(ctx, "a", "owns")
	require.NoError(t, err)
	assert.Len(t, rels, 1)

	require.NoError(t, store.Unlink(ctx, "a", "b", "owns", "ownedby"))
	forward, err = store.FindRelation(ctx, "a", "owns")
	require.NoError(t, err)
	assert.Nil(t, forward)
	reverse, err = store.FindRelation(ctx, "b", "ownedby")
	require.NoError(t, err)
	assert.Nil(t, reverse)
}

func TestEraseDocumentCascadesRelations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doc := testDoc("a")

	require.NoError(t, store.SaveDocument(ctx, doc))
	require.NoError(t, store.Link(ctx, "tester", doc.Hash, "other", "owns", "ownedby"))
	require.NoError(t, store.Link(ctx, "tester", "third", doc.Hash, "refs", "refdby"))

	require.NoError(t, store.EraseDocument(ctx, doc.Hash, true))

	_, err := store.FindDocumentByHash(ctx, doc.Hash)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	rel, err := store.FindRelation(ctx, doc.Hash, "owns")
	require.NoError(t, err)
	assert.Nil(t, rel)
	rel, err = store.FindRelation(ctx, "third", "refs")
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestCurrentHashIndex(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.GetCurrentHash(ctx, "root")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, store.SetCurrentHash(ctx, "root", "abc"))
	hash, err := store.GetCurrentHash(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "abc", hash)

	require.NoError(t, store.DeleteCurrentHash(ctx, "root"))
	_, err = store.GetCurrentHash(ctx, "root")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Deleting an absent key is a no-op.
	assert.NoError(t, store.DeleteCurrentHash(ctx, "root"))
}

func TestIncrementCounter(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first, err := store.IncrementCounter(ctx, "ids")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := store.IncrementCounter(ctx, "ids")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestCursors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.UpsertCursor(ctx, domain.Cursor{Source: "bank", LastCursor: "1"}))
	require.NoError(t, store.UpsertCursor(ctx, domain.Cursor{Source: "bank", LastCursor: "2"}))
	require.NoError(t, store.UpsertCursor(ctx, domain.Cursor{Source: "alpha", LastCursor: "x"}))

	cursor, err := store.FindCursorBySource(ctx, "bank")
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.LastCursor)

	_, err = store.FindCursorBySource(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	cursors, err := store.ListCursors(ctx)
	require.NoError(t, err)
	require.Len(t, cursors, 2)
	assert.Equal(t, "alpha", cursors[0].Source, "cursor listing is sorted by source")
}

func TestListDocumentsByTypeHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, label := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveDocument(ctx, testDoc(label)))
	}

	docs, err := store.ListDocumentsByType(ctx, domain.TypeEvent, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.ListDocumentsByType(ctx, domain.TypeEvent, -1)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = store.ListDocumentsByType(ctx, domain.TypeAccount, -1)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doc := testDoc("a")

	err := store.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		return repo.SaveDocument(ctx, doc)
	})
	require.NoError(t, err)

	_, err = store.FindDocumentByHash(ctx, doc.Hash)
	assert.NoError(t, err)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doc := testDoc("a")
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		if err := repo.SaveDocument(ctx, doc); err != nil {
			return err
		}
		if err := repo.SetCurrentHash(ctx, "root", doc.Hash); err != nil {
			return err
		}
		if _, err := repo.IncrementCounter(ctx, "ids"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.FindDocumentByHash(ctx, doc.Hash)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = store.GetCurrentHash(ctx, "root")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	n, err := store.IncrementCounter(ctx, "ids")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter increments inside a failed unit of work must not stick")
}
