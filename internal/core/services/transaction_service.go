package services

import (
	"context"
	"errors"
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

var (
	// ErrTransactionApproved guards the terminal state: an approved
	// transaction can no longer be modified, deleted or re-approved.
	ErrTransactionApproved = errors.New("cannot modify an approved transaction")

	// ErrEventAlreadyBound enforces the 1:1 event↔component constraint.
	ErrEventAlreadyBound = errors.New("event is already bound to a component")

	// ErrComponentAlreadyBound is the same constraint seen from the component side.
	ErrComponentAlreadyBound = errors.New("component is already bound to an event")
)

// TransactionService orchestrates the transaction lifecycle:
//
//	{absent} → create → unapproved → {update*, approve, delete}
//
// with approved as a terminal state. Every operation runs as one unit of
// work; a precondition violation aborts with no partial state observable.
type TransactionService struct {
	repo      portsrepo.DocumentRepositoryWithTx
	balances  *BalanceService
	publisher portssvc.ApprovedTrxPublisher
	now       portssvc.Clock
}

// NewTransactionService creates the lifecycle controller. publisher may be
// nil when no broker is configured.
func NewTransactionService(
	repo portsrepo.DocumentRepositoryWithTx,
	balances *BalanceService,
	publisher portssvc.ApprovedTrxPublisher,
	now portssvc.Clock,
) *TransactionService {
	if now == nil {
		now = time.Now
	}
	return &TransactionService{
		repo:      repo,
		balances:  balances,
		publisher: publisher,
		now:       now,
	}
}

var _ portssvc.TransactionSvcFacade = (*TransactionService)(nil)

// Upsert creates a transaction when trxHash is empty, otherwise replaces the
// unapproved transaction at trxHash. Update is delete-then-recreate: the old
// version's documents and relations are fully removed and the new payload is
// persisted under the preserved logical id, yielding a fresh content hash.
func (s *TransactionService) Upsert(ctx context.Context, issuer, trxHash string, payload dto.TransactionPayload, approve bool) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var result domain.Transaction
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		var id int64
		if trxHash == "" {
			var err error
			id, err = repo.IncrementCounter(ctx, nextTransactionIDName)
			if err != nil {
				return fmt.Errorf("failed to allocate transaction id: %w", err)
			}
		} else {
			existing, err := loadTransaction(ctx, repo, trxHash)
			if err != nil {
				return err
			}
			if existing.Approved() {
				return fmt.Errorf("%w: %s: %w", apperrors.ErrConflict, trxHash, ErrTransactionApproved)
			}
			id = existing.ID
			if err := s.eraseTransaction(ctx, repo, existing); err != nil {
				return err
			}
		}

		trx, err := s.persistTransaction(ctx, repo, issuer, id, payload, approve)
		if err != nil {
			return err
		}
		result = trx
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Transaction upserted",
		slog.Int64("trx_id", result.ID),
		slog.String("trx_hash", result.Hash),
		slog.Bool("approved", approve),
	)
	if approve {
		s.publishApproved(ctx, result)
	}
	return &result, nil
}

// persistTransaction lowers the payload into documents and relations. With
// approve set, balance closure is validated and every component's signed
// amount is propagated before the operation completes.
func (s *TransactionService) persistTransaction(ctx context.Context, repo portsrepo.DocumentRepository, issuer string, id int64, payload dto.TransactionPayload, approve bool) (domain.Transaction, error) {
	groups, err := payload.ToContentGroups(id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	trx, err := domain.ParseTransaction(groups)
	if err != nil {
		return domain.Transaction{}, err
	}

	ledger, err := loadLedger(ctx, repo, trx.LedgerHash)
	if err != nil {
		return domain.Transaction{}, err
	}

	if approve {
		if err := trx.CheckBalanced(); err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		trx.Approver = issuer
	}

	now := s.now()
	trxDoc := domain.NewDocument(issuer, now, trx.Groups())
	trx.Hash = trxDoc.Hash
	if err := repo.SaveDocument(ctx, trxDoc); err != nil {
		return domain.Transaction{}, err
	}

	for i := range trx.Components {
		cmp := &trx.Components[i]
		if err := ensureAllowed(ctx, repo, cmp.Amount.Symbol); err != nil {
			return domain.Transaction{}, err
		}
		if _, err := loadAccount(ctx, repo, cmp.AccountHash); err != nil {
			return domain.Transaction{}, err
		}
		if err := s.persistComponent(ctx, repo, issuer, trx.Hash, i, cmp, now); err != nil {
			return domain.Transaction{}, err
		}
		if approve {
			if err := s.balances.applyDelta(ctx, repo, issuer, cmp.AccountHash, ledger.Hash, cmp.SignedAmount(), true); err != nil {
				return domain.Transaction{}, err
			}
		}
	}

	bucket, err := bucketOf(ctx, repo, ledger.Hash)
	if err != nil {
		return domain.Transaction{}, err
	}
	partition := domain.RelUnapproved
	if approve {
		partition = domain.RelApproved
	}
	if err := repo.Link(ctx, issuer, bucket, trx.Hash, partition, domain.RelRevTrx); err != nil {
		return domain.Transaction{}, err
	}
	return trx, nil
}

// persistComponent stores one component document and wires its relations:
// transaction↔component pair, component→account, and the optional 1:1 event
// binding. The component index is folded into the system group so identical
// postings within one transaction still hash to distinct documents.
func (s *TransactionService) persistComponent(ctx context.Context, repo portsrepo.DocumentRepository, issuer, trxHash string, index int, cmp *domain.Component, now time.Time) error {
	groups := cmp.Groups()
	for gi, g := range groups {
		if g.Label == domain.GroupSystem {
			for ci, c := range g.Contents {
				if c.Label == domain.FieldNodeLabel {
					groups[gi].Contents[ci] = domain.StringContent(domain.FieldNodeLabel, fmt.Sprintf("%s_%d", domain.TypeComponent, index))
				}
			}
		}
	}
	cmpDoc := domain.NewDocument(issuer, now, groups)
	cmp.Hash = cmpDoc.Hash
	if err := repo.SaveDocument(ctx, cmpDoc); err != nil {
		return err
	}
	if err := repo.Link(ctx, issuer, trxHash, cmp.Hash, domain.RelComponent, domain.RelRevComponent); err != nil {
		return err
	}
	if err := repo.Link(ctx, issuer, cmp.Hash, cmp.AccountHash, domain.RelComponentAcc, domain.RelRevCompAcc); err != nil {
		return err
	}
	if cmp.EventHash != "" {
		if err := bindEventToComponent(ctx, repo, issuer, cmp.EventHash, cmp.Hash); err != nil {
			return err
		}
	}
	return nil
}

// eraseTransaction removes a transaction's component documents (cascading all
// their relations, event bindings included) and then the transaction document
// itself. Referenced accounts and events are never touched.
func (s *TransactionService) eraseTransaction(ctx context.Context, repo portsrepo.DocumentRepository, trx domain.Transaction) error {
	for _, cmp := range trx.Components {
		if err := repo.EraseDocument(ctx, cmp.Hash, true); err != nil {
			return err
		}
	}
	return repo.EraseDocument(ctx, trx.Hash, true)
}

// Delete removes an unapproved transaction. Approved transactions are
// immutable and cannot be deleted.
func (s *TransactionService) Delete(ctx context.Context, deleter, trxHash string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		trx, err := loadTransaction(ctx, repo, trxHash)
		if err != nil {
			return err
		}
		if trx.Approved() {
			return fmt.Errorf("%w: %s: %w", apperrors.ErrConflict, trxHash, ErrTransactionApproved)
		}
		return s.eraseTransaction(ctx, repo, trx)
	})
	if err != nil {
		return err
	}
	logger.Info("Transaction deleted", slog.String("trx_hash", trxHash), slog.String("deleter", deleter))
	return nil
}

// Approve validates balance closure, stamps the approver, applies balance
// propagation for every component and moves the transaction from the
// unapproved to the approved bucket partition. Stamping the approver changes
// the content hash, so the transaction document is re-persisted and every
// relation is repointed within the same unit of work.
func (s *TransactionService) Approve(ctx context.Context, approver, trxHash string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var result domain.Transaction
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		trx, err := loadTransaction(ctx, repo, trxHash)
		if err != nil {
			return err
		}
		if trx.Approved() {
			return fmt.Errorf("%w: %s: %w", apperrors.ErrConflict, trxHash, ErrTransactionApproved)
		}
		// Integrity check before any mutation: every component must still be
		// wired to its account.
		for _, cmp := range trx.Components {
			rel, err := repo.FindRelation(ctx, cmp.Hash, domain.RelComponentAcc)
			if err != nil {
				return err
			}
			if rel == nil {
				return fmt.Errorf("%w: component %s of transaction %s has no account link", apperrors.ErrIntegrity, cmp.Hash, trxHash)
			}
		}
		if err := trx.CheckBalanced(); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}

		ledger, err := loadLedger(ctx, repo, trx.LedgerHash)
		if err != nil {
			return err
		}
		bucket, err := bucketOf(ctx, repo, ledger.Hash)
		if err != nil {
			return err
		}

		trx.Approver = approver
		now := s.now()
		newDoc := domain.NewDocument(approver, now, trx.Groups())

		if err := repo.SaveDocument(ctx, newDoc); err != nil {
			return err
		}
		for _, cmp := range trx.Components {
			if err := repo.Unlink(ctx, trxHash, cmp.Hash, domain.RelComponent, domain.RelRevComponent); err != nil {
				return err
			}
			if err := repo.Link(ctx, approver, newDoc.Hash, cmp.Hash, domain.RelComponent, domain.RelRevComponent); err != nil {
				return err
			}
		}
		if err := repo.Unlink(ctx, bucket, trxHash, domain.RelUnapproved, domain.RelRevTrx); err != nil {
			return err
		}
		if err := repo.Link(ctx, approver, bucket, newDoc.Hash, domain.RelApproved, domain.RelRevTrx); err != nil {
			return err
		}
		if err := repo.EraseDocument(ctx, trxHash, true); err != nil {
			return err
		}

		for _, cmp := range trx.Components {
			if err := s.balances.applyDelta(ctx, repo, approver, cmp.AccountHash, ledger.Hash, cmp.SignedAmount(), true); err != nil {
				return err
			}
		}

		trx.Hash = newDoc.Hash
		result = trx
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Transaction approved",
		slog.Int64("trx_id", result.ID),
		slog.String("trx_hash", result.Hash),
		slog.String("approver", approver),
	)
	s.publishApproved(ctx, result)
	return &result, nil
}

// publishApproved emits the approval notification. Best-effort: the approval
// is already committed, so a publish failure is logged, never propagated.
func (s *TransactionService) publishApproved(ctx context.Context, trx domain.Transaction) {
	if s.publisher == nil {
		return
	}
	totals := make(map[string]string)
	for _, cmp := range trx.Components {
		if cmp.Tag != domain.DebitNormal {
			continue
		}
		if existing, ok := totals[cmp.Amount.Symbol]; ok {
			prev := domain.MustParseAsset(existing)
			sum, err := prev.Add(cmp.Amount)
			if err != nil {
				continue
			}
			totals[cmp.Amount.Symbol] = sum.String()
		} else {
			totals[cmp.Amount.Symbol] = cmp.Amount.String()
		}
	}
	evt := dto.TransactionApprovedEvent{
		TrxID:      trx.ID,
		TrxHash:    trx.Hash,
		LedgerHash: trx.LedgerHash,
		Approver:   trx.Approver,
		ApprovedAt: s.now(),
		Totals:     totals,
	}
	if err := s.publisher.PublishApproved(ctx, evt); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish approval event",
			slog.Int64("trx_id", trx.ID), slog.String("error", err.Error()))
	}
}

// GetTransaction loads a transaction with its components.
func (s *TransactionService) GetTransaction(ctx context.Context, trxHash string) (*domain.Transaction, error) {
	trx, err := loadTransaction(ctx, s.repo, trxHash)
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// ListTransactions returns one partition of a ledger's bucket.
func (s *TransactionService) ListTransactions(ctx context.Context, ledgerHash string, approved bool) ([]domain.Transaction, error) {
	bucket, err := bucketOf(ctx, s.repo, ledgerHash)
	if err != nil {
		return nil, err
	}
	partition := domain.RelUnapproved
	if approved {
		partition = domain.RelApproved
	}
	rels, err := s.repo.ListRelationsFrom(ctx, bucket, partition)
	if err != nil {
		return nil, err
	}
	transactions := make([]domain.Transaction, 0, len(rels))
	for _, rel := range rels {
		trx, err := loadTransaction(ctx, s.repo, rel.To)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, trx)
	}
	return transactions, nil
}

// bindEventToComponent wires the optional 1:1 event↔component binding,
// enforced from both directions.
func bindEventToComponent(ctx context.Context, repo portsrepo.DocumentRepository, creator, eventHash, componentHash string) error {
	eventDoc, err := repo.FindDocumentByHash(ctx, eventHash)
	if err != nil {
		return fmt.Errorf("event %s: %w", eventHash, err)
	}
	if nodeType := domain.NodeType(*eventDoc); nodeType != domain.TypeEvent {
		return fmt.Errorf("%w: document %s is a %s, not an event", apperrors.ErrValidation, eventHash, nodeType)
	}
	if rel, err := repo.FindRelation(ctx, eventHash, domain.RelRevEvent); err != nil {
		return err
	} else if rel != nil {
		return fmt.Errorf("%w: event %s: %w", apperrors.ErrConflict, eventHash, ErrEventAlreadyBound)
	}
	if rel, err := repo.FindRelation(ctx, componentHash, domain.RelEvent); err != nil {
		return err
	} else if rel != nil {
		return fmt.Errorf("%w: component %s: %w", apperrors.ErrConflict, componentHash, ErrComponentAlreadyBound)
	}
	return repo.Link(ctx, creator, componentHash, eventHash, domain.RelEvent, domain.RelRevEvent)
}
