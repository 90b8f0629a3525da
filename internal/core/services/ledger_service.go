package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// Default account tree seeded into every new ledger. Opening balances for
// later accounts are posted against Equity/Opening Balances.
const (
	defaultEquityName   = "Equity"
	openingBalancesName = "Opening Balances"

	defaultEquityCode   = "3000"
	openingBalancesCode = "3900"
)

// LedgerService manages ledger nodes under the singleton root document, each
// with its transaction bucket and default equity accounts.
type LedgerService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewLedgerService creates the ledger service.
func NewLedgerService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{repo: repo, now: now}
}

var _ portssvc.LedgerSvcFacade = (*LedgerService)(nil)

// ensureRootNode returns the singleton root document hash, creating it on
// first use and registering it in the current-hash index.
func ensureRootNode(ctx context.Context, repo portsrepo.DocumentRepository, creator string, now time.Time) (string, error) {
	hash, err := repo.GetCurrentHash(ctx, domain.CurrentRootKey)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}
	doc := domain.NewDocument(creator, now, domain.ContentGroups{
		{Label: domain.GroupDetails},
		domain.SystemGroup(domain.TypeRoot, domain.TypeRoot),
	})
	if err := repo.SaveDocument(ctx, doc); err != nil {
		return "", err
	}
	if err := repo.SetCurrentHash(ctx, domain.CurrentRootKey, doc.Hash); err != nil {
		return "", err
	}
	return doc.Hash, nil
}

// ensureEventBucket returns the singleton event bucket hung off the root,
// creating it on first use.
func ensureEventBucket(ctx context.Context, repo portsrepo.DocumentRepository, creator string, now time.Time) (string, error) {
	rootHash, err := ensureRootNode(ctx, repo, creator, now)
	if err != nil {
		return "", err
	}
	rel, err := repo.FindRelation(ctx, rootHash, domain.RelEventBucket)
	if err != nil {
		return "", err
	}
	if rel != nil {
		return rel.To, nil
	}
	doc := domain.NewDocument(creator, now, domain.ContentGroups{
		{Label: domain.GroupDetails},
		domain.SystemGroup("events", domain.TypeBucket),
	})
	if err := repo.SaveDocument(ctx, doc); err != nil {
		return "", err
	}
	if err := repo.Link(ctx, creator, rootHash, doc.Hash, domain.RelEventBucket, domain.RelRevEventBkt); err != nil {
		return "", err
	}
	return doc.Hash, nil
}

// CreateLedger creates a ledger under the root: the ledger document, its
// transaction bucket and the default Equity / Opening Balances accounts, all
// as one unit of work. Ledger names are unique case-insensitively.
func (s *LedgerService) CreateLedger(ctx context.Context, creator string, req dto.CreateLedgerRequest) (*dto.LedgerResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: ledger name cannot be empty", apperrors.ErrValidation)
	}

	var resp dto.LedgerResponse
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		now := s.now()
		rootHash, err := ensureRootNode(ctx, repo, creator, now)
		if err != nil {
			return err
		}
		if _, err := ensureEventBucket(ctx, repo, creator, now); err != nil {
			return err
		}

		existing, err := repo.ListRelationsFrom(ctx, rootHash, domain.RelLedger)
		if err != nil {
			return err
		}
		for _, rel := range existing {
			ledger, err := loadLedger(ctx, repo, rel.To)
			if err != nil {
				return err
			}
			if domain.SameName(ledger.Name, name) {
				return fmt.Errorf("%w: ledger %q already exists", apperrors.ErrDuplicate, name)
			}
		}

		ledger := domain.Ledger{Name: name}
		ledgerDoc := domain.NewDocument(creator, now, ledger.Groups())
		ledger.Hash = ledgerDoc.Hash
		if err := repo.SaveDocument(ctx, ledgerDoc); err != nil {
			return err
		}
		if err := repo.Link(ctx, creator, rootHash, ledger.Hash, domain.RelLedger, domain.RelRevLedger); err != nil {
			return err
		}

		// The bucket document carries its ledger's hash so buckets of
		// different ledgers never collide on content hash.
		bucketDoc := domain.NewDocument(creator, now, domain.ContentGroups{
			{
				Label:    domain.GroupDetails,
				Contents: []domain.Content{domain.HashContent(domain.FieldTrxLedger, ledger.Hash)},
			},
			domain.SystemGroup(domain.TypeBucket, domain.TypeBucket),
		})
		if err := repo.SaveDocument(ctx, bucketDoc); err != nil {
			return err
		}
		if err := repo.Link(ctx, creator, ledger.Hash, bucketDoc.Hash, domain.RelBucket, domain.RelRevBucket); err != nil {
			return err
		}

		equity, err := createAccountNode(ctx, repo, creator, ledger.Hash, ledger.Hash,
			defaultEquityName, domain.CreditNormal, defaultEquityCode, now)
		if err != nil {
			return err
		}
		if _, err := createAccountNode(ctx, repo, creator, equity.Hash, ledger.Hash,
			openingBalancesName, domain.CreditNormal, openingBalancesCode, now); err != nil {
			return err
		}

		resp = dto.LedgerResponse{Hash: ledger.Hash, Name: ledger.Name, BucketHash: bucketDoc.Hash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Ledger created", slog.String("ledger_hash", resp.Hash), slog.String("name", resp.Name))
	return &resp, nil
}

// GetLedger loads one ledger and its bucket.
func (s *LedgerService) GetLedger(ctx context.Context, ledgerHash string) (*dto.LedgerResponse, error) {
	ledger, err := loadLedger(ctx, s.repo, ledgerHash)
	if err != nil {
		return nil, err
	}
	bucket, err := bucketOf(ctx, s.repo, ledgerHash)
	if err != nil {
		return nil, err
	}
	return &dto.LedgerResponse{Hash: ledger.Hash, Name: ledger.Name, BucketHash: bucket}, nil
}

// ListLedgers returns every ledger under the root. An uninitialized store has
// no root yet, which is an empty list rather than an error.
func (s *LedgerService) ListLedgers(ctx context.Context) ([]dto.LedgerResponse, error) {
	rootHash, err := s.repo.GetCurrentHash(ctx, domain.CurrentRootKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []dto.LedgerResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	rels, err := s.repo.ListRelationsFrom(ctx, rootHash, domain.RelLedger)
	if err != nil {
		return nil, err
	}
	ledgers := make([]dto.LedgerResponse, 0, len(rels))
	for _, rel := range rels {
		ledger, err := loadLedger(ctx, s.repo, rel.To)
		if err != nil {
			return nil, err
		}
		bucket, err := bucketOf(ctx, s.repo, ledger.Hash)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, dto.LedgerResponse{Hash: ledger.Hash, Name: ledger.Name, BucketHash: bucket})
	}
	return ledgers, nil
}
