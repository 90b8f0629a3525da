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
	"github.com/docledger/docledger/internal/middleware"
)

// removableTypes are the node types cleanup may erase. Structural nodes
// (root, ledgers, accounts, balances, buckets, settings) are never eligible.
var removableTypes = map[string]bool{
	domain.TypeTransaction: true,
	domain.TypeComponent:   true,
	domain.TypeEvent:       true,
}

// CleanupService erases documents of selected node types in bounded batches.
// One invocation removes at most domain.MaxRemovableDocs documents and
// reports whether more remain, so callers re-invoke instead of looping
// unbounded inside one unit of work.
type CleanupService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewCleanupService creates the cleanup service.
func NewCleanupService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) *CleanupService {
	if now == nil {
		now = time.Now
	}
	return &CleanupService{repo: repo, now: now}
}

var _ portssvc.CleanupSvcFacade = (*CleanupService)(nil)

// Clean erases up to domain.MaxRemovableDocs documents of the given node
// types, cascading their relations. Trusted accounts only.
func (s *CleanupService) Clean(ctx context.Context, requester string, nodeTypes []string) (int, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if len(nodeTypes) == 0 {
		return 0, false, fmt.Errorf("%w: no node types given", apperrors.ErrValidation)
	}
	for _, nt := range nodeTypes {
		if !removableTypes[nt] {
			return 0, false, fmt.Errorf("%w: node type %q is not removable", apperrors.ErrValidation, nt)
		}
	}

	removed := 0
	more := false
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		if err := requireTrusted(ctx, repo, requester); err != nil {
			return err
		}
		for _, nt := range nodeTypes {
			budget := domain.MaxRemovableDocs - removed
			if budget == 0 {
				// Batch exhausted; peek before claiming more work remains.
				remaining, err := repo.ListDocumentsByType(ctx, nt, 1)
				if err != nil {
					return err
				}
				if len(remaining) > 0 {
					more = true
					return nil
				}
				continue
			}
			// One extra row tells us whether this type alone exceeds the batch.
			docs, err := repo.ListDocumentsByType(ctx, nt, budget+1)
			if err != nil {
				return err
			}
			if len(docs) > budget {
				more = true
				docs = docs[:budget]
			}
			for _, doc := range docs {
				if err := repo.EraseDocument(ctx, doc.Hash, true); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	logger.Info("Cleanup batch finished",
		slog.Int("removed", removed),
		slog.Bool("more", more),
		slog.String("requester", requester),
	)
	return removed, more, nil
}
