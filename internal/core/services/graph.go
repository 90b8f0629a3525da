package services

import (
	"context"
	"fmt"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
)

// Shared document-graph loaders used across the services in this package.
// They all operate on an explicit store handle so lifecycle operations can run
// them inside their own unit of work.

func loadAccount(ctx context.Context, repo portsrepo.DocumentRepository, hash string) (domain.Account, error) {
	doc, err := repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: %w", hash, err)
	}
	if nodeType := domain.NodeType(*doc); nodeType != domain.TypeAccount {
		return domain.Account{}, fmt.Errorf("%w: document %s is a %s, not an account", apperrors.ErrValidation, hash, nodeType)
	}
	return domain.AccountFromDocument(*doc)
}

func loadLedger(ctx context.Context, repo portsrepo.DocumentRepository, hash string) (domain.Ledger, error) {
	doc, err := repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("ledger %s: %w", hash, err)
	}
	if nodeType := domain.NodeType(*doc); nodeType != domain.TypeLedger {
		return domain.Ledger{}, fmt.Errorf("%w: document %s is a %s, not a ledger", apperrors.ErrValidation, hash, nodeType)
	}
	return domain.LedgerFromDocument(*doc)
}

// loadTransaction rebuilds a transaction from its document and the component
// documents reached over component relations.
func loadTransaction(ctx context.Context, repo portsrepo.DocumentRepository, hash string) (domain.Transaction, error) {
	doc, err := repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", hash, err)
	}
	if nodeType := domain.NodeType(*doc); nodeType != domain.TypeTransaction {
		return domain.Transaction{}, fmt.Errorf("%w: document %s is a %s, not a transaction", apperrors.ErrValidation, hash, nodeType)
	}
	rels, err := repo.ListRelationsFrom(ctx, hash, domain.RelComponent)
	if err != nil {
		return domain.Transaction{}, err
	}
	componentDocs := make([]domain.Document, 0, len(rels))
	for _, rel := range rels {
		cd, err := repo.FindDocumentByHash(ctx, rel.To)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: component %s of transaction %s is missing", apperrors.ErrIntegrity, rel.To, hash)
		}
		componentDocs = append(componentDocs, *cd)
	}
	trx, err := domain.TransactionFromDocument(*doc, componentDocs)
	if err != nil {
		return domain.Transaction{}, err
	}
	// Event bindings can be made or removed after the component document was
	// written, so the relation is authoritative, not the stored field.
	for i := range trx.Components {
		rel, err := repo.FindRelation(ctx, trx.Components[i].Hash, domain.RelEvent)
		if err != nil {
			return domain.Transaction{}, err
		}
		if rel != nil {
			trx.Components[i].EventHash = rel.To
		} else {
			trx.Components[i].EventHash = ""
		}
	}
	return trx, nil
}

// bucketOf resolves a ledger's transaction bucket.
func bucketOf(ctx context.Context, repo portsrepo.DocumentRepository, ledgerHash string) (string, error) {
	rel, err := repo.FindRelation(ctx, ledgerHash, domain.RelBucket)
	if err != nil {
		return "", err
	}
	if rel == nil {
		return "", fmt.Errorf("%w: ledger %s has no transaction bucket", apperrors.ErrIntegrity, ledgerHash)
	}
	return rel.To, nil
}

// balanceKey is the current-hash index key for an account's balance document.
func balanceKey(accountHash string) string {
	return "balances:" + accountHash
}
