package services

import (
	"context"
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

// AccountService manages the per-ledger account tree. Accounts hang off the
// ledger node (or another account) through ownership relation pairs, and every
// account carries exactly one balance document reached through the
// current-hash index.
type AccountService struct {
	repo portsrepo.DocumentRepositoryWithTx
	trx  *TransactionService
	now  portssvc.Clock
}

// NewAccountService creates the account service. The transaction service is
// needed so opening balances can be posted inside the account's own unit of
// work.
func NewAccountService(repo portsrepo.DocumentRepositoryWithTx, trx *TransactionService, now portssvc.Clock) *AccountService {
	if now == nil {
		now = time.Now
	}
	return &AccountService{repo: repo, trx: trx, now: now}
}

var _ portssvc.AccountSvcFacade = (*AccountService)(nil)

// listChildAccounts loads the direct children of a ledger or account node.
func listChildAccounts(ctx context.Context, repo portsrepo.DocumentRepository, parentHash string) ([]domain.Account, error) {
	rels, err := repo.ListRelationsFrom(ctx, parentHash, domain.RelAccount)
	if err != nil {
		return nil, err
	}
	children := make([]domain.Account, 0, len(rels))
	for _, rel := range rels {
		child, err := loadAccount(ctx, repo, rel.To)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// findChildAccountByName returns the sibling with the given name, nil if none.
// Comparison is case-insensitive, the same rule sibling uniqueness uses.
func findChildAccountByName(ctx context.Context, repo portsrepo.DocumentRepository, parentHash, name string) (*domain.Account, error) {
	children, err := listChildAccounts(ctx, repo, parentHash)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if domain.SameName(children[i].Name, name) {
			return &children[i], nil
		}
	}
	return nil, nil
}

// createAccountNode persists one account under a parent (ledger node or
// another account of the same ledger), wires the ownership pair and seeds the
// empty balance document. The ledger service reuses it for default accounts.
func createAccountNode(ctx context.Context, repo portsrepo.DocumentRepository, creator, parentHash, ledgerHash, name string, tag domain.TagType, code string, now time.Time) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, fmt.Errorf("%w: account name cannot be empty", apperrors.ErrValidation)
	}
	if strings.Contains(name, "/") {
		return domain.Account{}, fmt.Errorf("%w: account name %q cannot contain '/'", apperrors.ErrValidation, name)
	}

	var path string
	if parentHash == ledgerHash {
		if _, err := loadLedger(ctx, repo, ledgerHash); err != nil {
			return domain.Account{}, err
		}
		path = name
	} else {
		parent, err := loadAccount(ctx, repo, parentHash)
		if err != nil {
			return domain.Account{}, err
		}
		if parent.LedgerHash != ledgerHash {
			return domain.Account{}, fmt.Errorf("%w: parent account %s belongs to ledger %s, not %s",
				apperrors.ErrValidation, parentHash, parent.LedgerHash, ledgerHash)
		}
		path = parent.Path + "/" + name
	}

	existing, err := findChildAccountByName(ctx, repo, parentHash, name)
	if err != nil {
		return domain.Account{}, err
	}
	if existing != nil {
		return domain.Account{}, fmt.Errorf("%w: account %q already exists under %s", apperrors.ErrDuplicate, name, parentHash)
	}

	account := domain.Account{
		Name:       name,
		TagType:    tag,
		Code:       code,
		Path:       path,
		ParentHash: parentHash,
		LedgerHash: ledgerHash,
	}
	doc := domain.NewDocument(creator, now, account.Groups())
	account.Hash = doc.Hash
	if err := repo.SaveDocument(ctx, doc); err != nil {
		return domain.Account{}, err
	}
	if err := repo.Link(ctx, creator, parentHash, account.Hash, domain.RelAccount, domain.RelRevAccount); err != nil {
		return domain.Account{}, err
	}
	if err := createBalance(ctx, repo, creator, account.Hash, now); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// openingBalancesAccount resolves the ledger's Equity/Opening Balances account
// seeded at ledger creation.
func openingBalancesAccount(ctx context.Context, repo portsrepo.DocumentRepository, ledgerHash string) (domain.Account, error) {
	equity, err := findChildAccountByName(ctx, repo, ledgerHash, defaultEquityName)
	if err != nil {
		return domain.Account{}, err
	}
	if equity == nil {
		return domain.Account{}, fmt.Errorf("%w: ledger %s has no %s account", apperrors.ErrIntegrity, ledgerHash, defaultEquityName)
	}
	openings, err := findChildAccountByName(ctx, repo, equity.Hash, openingBalancesName)
	if err != nil {
		return domain.Account{}, err
	}
	if openings == nil {
		return domain.Account{}, fmt.Errorf("%w: ledger %s has no %s account", apperrors.ErrIntegrity, ledgerHash, openingBalancesName)
	}
	return *openings, nil
}

// CreateAccount creates an account under an existing parent. When opening
// balances are requested they are posted as one approved transaction against
// the ledger's Opening Balances account, all inside the same unit of work.
func (s *AccountService) CreateAccount(ctx context.Context, creator string, req dto.CreateAccountRequest) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	tag, err := domain.ParseTagType(req.TagType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	var account domain.Account
	err = s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		account, err = createAccountNode(ctx, repo, creator, req.ParentHash, req.LedgerHash, req.Name, tag, req.Code, s.now())
		if err != nil {
			return err
		}
		if len(req.OpeningBalances) == 0 {
			return nil
		}

		openings, err := openingBalancesAccount(ctx, repo, req.LedgerHash)
		if err != nil {
			return err
		}
		counterTag := domain.CreditNormal
		if tag == domain.CreditNormal {
			counterTag = domain.DebitNormal
		}
		payload := dto.TransactionPayload{
			Name:       "opening_balances",
			Memo:       fmt.Sprintf("Opening balances for %s", account.Path),
			Date:       s.now(),
			LedgerHash: req.LedgerHash,
		}
		for _, ob := range req.OpeningBalances {
			payload.Components = append(payload.Components,
				dto.ComponentRequest{
					AccountHash: account.Hash,
					Amount:      ob.Amount,
					Currency:    ob.Currency,
					Precision:   ob.Precision,
					Type:        string(tag),
					Memo:        "opening balance",
				},
				dto.ComponentRequest{
					AccountHash: openings.Hash,
					Amount:      ob.Amount,
					Currency:    ob.Currency,
					Precision:   ob.Precision,
					Type:        string(counterTag),
					Memo:        "opening balance",
				},
			)
		}
		id, err := repo.IncrementCounter(ctx, nextTransactionIDName)
		if err != nil {
			return fmt.Errorf("failed to allocate transaction id: %w", err)
		}
		if _, err := s.trx.persistTransaction(ctx, repo, creator, id, payload, true); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Account created",
		slog.String("account_hash", account.Hash),
		slog.String("path", account.Path),
		slog.String("ledger_hash", account.LedgerHash),
	)
	return &account, nil
}

// ensureLeafWithoutPostings guards update and delete: both are restricted to
// leaf accounts no component references, so the content hash can change (or
// vanish) without invalidating children paths or posted transactions.
func ensureLeafWithoutPostings(ctx context.Context, repo portsrepo.DocumentRepository, accountHash string) error {
	children, err := repo.ListRelationsFrom(ctx, accountHash, domain.RelAccount)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("%w: account %s has child accounts", apperrors.ErrConflict, accountHash)
	}
	components, err := repo.ListRelationsFrom(ctx, accountHash, domain.RelRevCompAcc)
	if err != nil {
		return err
	}
	if len(components) > 0 {
		return fmt.Errorf("%w: account %s is referenced by transaction components", apperrors.ErrConflict, accountHash)
	}
	return nil
}

// UpdateAccount renames a leaf account and/or changes its code. The content
// hash changes, so the document is replaced and the ownership pair plus the
// balance record are repointed to the new identity.
func (s *AccountService) UpdateAccount(ctx context.Context, updater string, accountHash string, req dto.UpdateAccountRequest) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var account domain.Account
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		current, err := loadAccount(ctx, repo, accountHash)
		if err != nil {
			return err
		}
		if err := ensureLeafWithoutPostings(ctx, repo, accountHash); err != nil {
			return err
		}

		account = current
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: account name cannot be empty", apperrors.ErrValidation)
			}
			if strings.Contains(name, "/") {
				return fmt.Errorf("%w: account name %q cannot contain '/'", apperrors.ErrValidation, name)
			}
			if !domain.SameName(name, current.Name) {
				sibling, err := findChildAccountByName(ctx, repo, current.ParentHash, name)
				if err != nil {
					return err
				}
				if sibling != nil {
					return fmt.Errorf("%w: account %q already exists under %s", apperrors.ErrDuplicate, name, current.ParentHash)
				}
			}
			account.Name = name
			if current.ParentHash == current.LedgerHash {
				account.Path = name
			} else {
				parent, err := loadAccount(ctx, repo, current.ParentHash)
				if err != nil {
					return err
				}
				account.Path = parent.Path + "/" + name
			}
		}
		if req.Code != nil {
			account.Code = *req.Code
		}

		now := s.now()
		doc := domain.NewDocument(updater, now, account.Groups())
		if doc.Hash == current.Hash {
			return nil
		}
		account.Hash = doc.Hash
		if err := repo.SaveDocument(ctx, doc); err != nil {
			return err
		}
		if err := repo.Unlink(ctx, current.ParentHash, current.Hash, domain.RelAccount, domain.RelRevAccount); err != nil {
			return err
		}
		if err := repo.Link(ctx, updater, current.ParentHash, account.Hash, domain.RelAccount, domain.RelRevAccount); err != nil {
			return err
		}

		// Carry the balance record over to the new identity.
		balance, err := loadBalance(ctx, repo, current.Hash)
		if err != nil {
			return err
		}
		if err := repo.Unlink(ctx, current.Hash, balance.Hash, domain.RelBalances, domain.RelRevBalances); err != nil {
			return err
		}
		if err := repo.EraseDocument(ctx, balance.Hash, true); err != nil {
			return err
		}
		if err := repo.DeleteCurrentHash(ctx, balanceKey(current.Hash)); err != nil {
			return err
		}
		balance.Hash = ""
		balance.AccountHash = account.Hash
		if _, err := persistBalance(ctx, repo, updater, balance, now); err != nil {
			return err
		}

		return repo.EraseDocument(ctx, current.Hash, true)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Account updated",
		slog.String("account_hash", account.Hash),
		slog.String("path", account.Path),
	)
	return &account, nil
}

// DeleteAccount removes a leaf account with no postings and empty balances,
// erasing its balance record and every relation in the same unit of work.
func (s *AccountService) DeleteAccount(ctx context.Context, deleter string, accountHash string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		if _, err := loadAccount(ctx, repo, accountHash); err != nil {
			return err
		}
		if err := ensureLeafWithoutPostings(ctx, repo, accountHash); err != nil {
			return err
		}
		balance, err := loadBalance(ctx, repo, accountHash)
		if err != nil {
			return err
		}
		for _, a := range balance.Local {
			if !a.IsZero() {
				return fmt.Errorf("%w: account %s has a non-zero %s balance", apperrors.ErrConflict, accountHash, a.Symbol)
			}
		}
		for _, a := range balance.Global {
			if !a.IsZero() {
				return fmt.Errorf("%w: account %s has a non-zero %s balance", apperrors.ErrConflict, accountHash, a.Symbol)
			}
		}
		if err := repo.EraseDocument(ctx, balance.Hash, true); err != nil {
			return err
		}
		if err := repo.DeleteCurrentHash(ctx, balanceKey(accountHash)); err != nil {
			return err
		}
		return repo.EraseDocument(ctx, accountHash, true)
	})
	if err != nil {
		return err
	}
	logger.Info("Account deleted", slog.String("account_hash", accountHash), slog.String("deleter", deleter))
	return nil
}

// GetAccount loads one account.
func (s *AccountService) GetAccount(ctx context.Context, accountHash string) (*domain.Account, error) {
	account, err := loadAccount(ctx, s.repo, accountHash)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountPath rebuilds the ancestor chain by walking parent links up to the
// ledger node. The walk is iterative and doubles as an integrity check of the
// stored path.
func (s *AccountService) GetAccountPath(ctx context.Context, accountHash string) (string, error) {
	account, err := loadAccount(ctx, s.repo, accountHash)
	if err != nil {
		return "", err
	}
	segments := []string{account.Name}
	current := account
	for current.ParentHash != current.LedgerHash {
		parent, err := loadAccount(ctx, s.repo, current.ParentHash)
		if err != nil {
			return "", fmt.Errorf("%w: broken parent chain at %s: %v", apperrors.ErrIntegrity, current.Hash, err)
		}
		segments = append(segments, parent.Name)
		current = parent
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/"), nil
}

// ListChildren returns the direct children of a ledger or account node.
func (s *AccountService) ListChildren(ctx context.Context, accountHash string) ([]domain.Account, error) {
	return listChildAccounts(ctx, s.repo, accountHash)
}
