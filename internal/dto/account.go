package dto

import (
	"github.com/shopspring/decimal"

	"github.com/docledger/docledger/internal/core/domain"
)

// CreateAccountRequest creates a child of an existing account or ledger node.
type CreateAccountRequest struct {
	ParentHash string `json:"parentHash" binding:"required"`
	LedgerHash string `json:"ledgerHash" binding:"required"`
	Name       string `json:"name" binding:"required"`
	TagType    string `json:"tagType" binding:"required,oneof=DEBIT CREDIT"`
	Code       string `json:"code"`
	// OpeningBalances optionally seeds the account with a balanced transaction
	// against the ledger's Opening Balances account.
	OpeningBalances []OpeningBalance `json:"openingBalances,omitempty" binding:"omitempty,dive"`
}

// OpeningBalance is one seeded amount for a new account.
type OpeningBalance struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Currency  string          `json:"currency" binding:"required,assetsymbol"`
	Precision uint8           `json:"precision" binding:"lte=18"`
}

// UpdateAccountRequest renames an account and/or changes its code.
type UpdateAccountRequest struct {
	Name *string `json:"name,omitempty"`
	Code *string `json:"code,omitempty"`
}

// AccountResponse mirrors a persisted account.
type AccountResponse struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	TagType    string `json:"tagType"`
	Code       string `json:"code"`
	Path       string `json:"path"`
	ParentHash string `json:"parentHash"`
	LedgerHash string `json:"ledgerHash"`
}

// ToAccountResponse converts a domain account to its API shape.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		Hash:       a.Hash,
		Name:       a.Name,
		TagType:    string(a.TagType),
		Code:       a.Code,
		Path:       a.Path,
		ParentHash: a.ParentHash,
		LedgerHash: a.LedgerHash,
	}
}

// BalanceResponse renders one account's local and global slices.
type BalanceResponse struct {
	AccountHash string            `json:"accountHash"`
	Revision    int64             `json:"revision"`
	Local       map[string]string `json:"local"`
	Global      map[string]string `json:"global"`
}

// ToBalanceResponse converts a balance record, rendering amounts in canonical
// asset form keyed by symbol.
func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	resp := BalanceResponse{
		AccountHash: b.AccountHash,
		Revision:    b.Revision,
		Local:       make(map[string]string, len(b.Local)),
		Global:      make(map[string]string, len(b.Global)),
	}
	for sym, a := range b.Local {
		resp.Local[sym] = a.String()
	}
	for sym, a := range b.Global {
		resp.Global[sym] = a.String()
	}
	return resp
}
