package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// EventService handles external event ingestion and the 1:1 event↔component
// binding. Events are opaque payloads hung off the singleton event bucket;
// ingestion is restricted to trusted accounts and advances a per-source
// cursor.
type EventService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewEventService creates the event service.
func NewEventService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{repo: repo, now: now}
}

var _ portssvc.EventSvcFacade = (*EventService)(nil)

// IngestEvent stores an event document under the event bucket and advances
// the source cursor. Re-ingesting identical content is idempotent on the
// document, the cursor still moves.
func (s *EventService) IngestEvent(ctx context.Context, issuer string, req dto.IngestEventRequest) (*domain.Event, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var event domain.Event
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		if err := requireTrusted(ctx, repo, issuer); err != nil {
			return err
		}
		now := s.now()
		bucket, err := ensureEventBucket(ctx, repo, issuer, now)
		if err != nil {
			return err
		}
		doc := domain.NewDocument(issuer, now, req.ToContentGroups())
		if err := repo.SaveDocument(ctx, doc); err != nil {
			return err
		}
		if err := repo.Link(ctx, issuer, bucket, doc.Hash, domain.RelBucketEvent, domain.RelRevBucketEvt); err != nil {
			return err
		}
		if err := repo.UpsertCursor(ctx, domain.Cursor{Source: req.Source, LastCursor: req.Cursor}); err != nil {
			return err
		}
		event, err = domain.EventFromDocument(doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Event ingested",
		slog.String("event_hash", event.Hash),
		slog.String("source", event.Source),
		slog.String("cursor", event.Cursor),
	)
	return &event, nil
}

// componentTransaction resolves the transaction owning a component.
func componentTransaction(ctx context.Context, repo portsrepo.DocumentRepository, componentHash string) (domain.Transaction, error) {
	rel, err := repo.FindRelation(ctx, componentHash, domain.RelRevComponent)
	if err != nil {
		return domain.Transaction{}, err
	}
	if rel == nil {
		return domain.Transaction{}, fmt.Errorf("%w: component %s has no owning transaction", apperrors.ErrIntegrity, componentHash)
	}
	return loadTransaction(ctx, repo, rel.To)
}

// BindEvent binds an event to a component of an unapproved transaction. The
// 1:1 constraint is enforced from both directions.
func (s *EventService) BindEvent(ctx context.Context, updater, eventHash, componentHash string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		trx, err := componentTransaction(ctx, repo, componentHash)
		if err != nil {
			return err
		}
		if trx.Approved() {
			return fmt.Errorf("%w: %s: %w", apperrors.ErrConflict, trx.Hash, ErrTransactionApproved)
		}
		return bindEventToComponent(ctx, repo, updater, eventHash, componentHash)
	})
	if err != nil {
		return err
	}
	logger.Info("Event bound",
		slog.String("event_hash", eventHash),
		slog.String("component_hash", componentHash),
	)
	return nil
}

// UnbindEvent removes an existing event↔component binding. The transaction
// must still be unapproved; approved postings keep their evidence.
func (s *EventService) UnbindEvent(ctx context.Context, updater, eventHash, componentHash string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		trx, err := componentTransaction(ctx, repo, componentHash)
		if err != nil {
			return err
		}
		if trx.Approved() {
			return fmt.Errorf("%w: %s: %w", apperrors.ErrConflict, trx.Hash, ErrTransactionApproved)
		}
		rel, err := repo.FindRelation(ctx, componentHash, domain.RelEvent)
		if err != nil {
			return err
		}
		if rel == nil || rel.To != eventHash {
			return fmt.Errorf("%w: component %s is not bound to event %s", apperrors.ErrNotFound, componentHash, eventHash)
		}
		return repo.Unlink(ctx, componentHash, eventHash, domain.RelEvent, domain.RelRevEvent)
	})
	if err != nil {
		return err
	}
	logger.Info("Event unbound",
		slog.String("event_hash", eventHash),
		slog.String("component_hash", componentHash),
	)
	return nil
}

// GetEvent loads one event.
func (s *EventService) GetEvent(ctx context.Context, eventHash string) (*domain.Event, error) {
	doc, err := s.repo.FindDocumentByHash(ctx, eventHash)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventHash, err)
	}
	if nodeType := domain.NodeType(*doc); nodeType != domain.TypeEvent {
		return nil, fmt.Errorf("%w: document %s is a %s, not an event", apperrors.ErrValidation, eventHash, nodeType)
	}
	event, err := domain.EventFromDocument(*doc)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListCursors returns the last ingested cursor of every known source.
func (s *EventService) ListCursors(ctx context.Context) ([]domain.Cursor, error) {
	return s.repo.ListCursors(ctx)
}
