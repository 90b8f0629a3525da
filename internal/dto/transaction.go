package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/docledger/docledger/internal/core/domain"
)

// ComponentRequest is one posting line in an upsert payload. Amount is a
// non-negative magnitude; Type selects the posting side.
type ComponentRequest struct {
	AccountHash string          `json:"accountHash" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"required,assetsymbol"`
	Precision   uint8           `json:"precision" binding:"lte=18"`
	Type        string          `json:"type" binding:"required,oneof=DEBIT CREDIT"`
	Memo        string          `json:"memo"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	EventHash   string          `json:"eventHash,omitempty"`
}

// TransactionPayload is the nested structured payload of an upsert request.
type TransactionPayload struct {
	Name       string             `json:"name"`
	Memo       string             `json:"memo" binding:"required"`
	Date       time.Time          `json:"date" binding:"required"`
	LedgerHash string             `json:"ledgerHash" binding:"required"`
	Components []ComponentRequest `json:"components" binding:"required,min=1,dive"`
}

// ToContentGroups lowers the typed payload into the document content-group
// form the transaction model parses: one details group plus one component
// group per posting. The id is supplied by the lifecycle controller.
func (p TransactionPayload) ToContentGroups(id int64) (domain.ContentGroups, error) {
	groups := domain.ContentGroups{
		{
			Label: domain.GroupDetails,
			Contents: []domain.Content{
				domain.StringContent(domain.FieldTrxName, p.Name),
				domain.StringContent(domain.FieldTrxMemo, p.Memo),
				domain.TimeContent(domain.FieldTrxDate, p.Date),
				domain.HashContent(domain.FieldTrxLedger, p.LedgerHash),
				domain.IntContent(domain.FieldTrxID, id),
			},
		},
	}
	for _, c := range p.Components {
		amount, err := domain.AssetFromDecimal(c.Amount, c.Currency, c.Precision)
		if err != nil {
			return nil, err
		}
		contents := []domain.Content{
			domain.HashContent(domain.FieldComponentAccount, c.AccountHash),
			domain.AssetContent(domain.FieldComponentAmount, amount),
			domain.StringContent(domain.FieldComponentTag, c.Type),
			domain.StringContent(domain.FieldComponentMemo, c.Memo),
			domain.StringContent(domain.FieldComponentFrom, c.From),
			domain.StringContent(domain.FieldComponentTo, c.To),
		}
		if c.EventHash != "" {
			contents = append(contents, domain.HashContent(domain.FieldComponentEvent, c.EventHash))
		}
		groups = append(groups, domain.ContentGroup{Label: domain.GroupComponent, Contents: contents})
	}
	return groups, nil
}

// UpsertTransactionRequest is the HTTP body for create/update.
type UpsertTransactionRequest struct {
	TrxHash string             `json:"trxHash,omitempty"`
	Approve bool               `json:"approve"`
	Payload TransactionPayload `json:"payload" binding:"required"`
}

// ComponentResponse mirrors a persisted component.
type ComponentResponse struct {
	Hash        string          `json:"hash"`
	AccountHash string          `json:"accountHash"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Precision   uint8           `json:"precision"`
	Type        string          `json:"type"`
	Memo        string          `json:"memo"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	EventHash   string          `json:"eventHash,omitempty"`
}

// TransactionResponse mirrors a persisted transaction.
type TransactionResponse struct {
	Hash       string              `json:"hash"`
	ID         int64               `json:"id"`
	Name       string              `json:"name"`
	Memo       string              `json:"memo"`
	Date       time.Time           `json:"date"`
	LedgerHash string              `json:"ledgerHash"`
	Approver   string              `json:"approver,omitempty"`
	Approved   bool                `json:"approved"`
	Components []ComponentResponse `json:"components"`
}

// ToTransactionResponse converts a domain transaction to its API shape.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		Hash:       t.Hash,
		ID:         t.ID,
		Name:       t.Name,
		Memo:       t.Memo,
		Date:       t.Date,
		LedgerHash: t.LedgerHash,
		Approver:   t.Approver,
		Approved:   t.Approved(),
	}
	for _, c := range t.Components {
		resp.Components = append(resp.Components, ComponentResponse{
			Hash:        c.Hash,
			AccountHash: c.AccountHash,
			Amount:      c.Amount.Decimal(),
			Currency:    c.Amount.Symbol,
			Precision:   c.Amount.Precision,
			Type:        string(c.Tag),
			Memo:        c.Memo,
			From:        c.From,
			To:          c.To,
			EventHash:   c.EventHash,
		})
	}
	return resp
}

// TransactionApprovedEvent is the message published after approval.
type TransactionApprovedEvent struct {
	TrxID      int64             `json:"trxId"`
	TrxHash    string            `json:"trxHash"`
	LedgerHash string            `json:"ledgerHash"`
	Approver   string            `json:"approver"`
	ApprovedAt time.Time         `json:"approvedAt"`
	Totals     map[string]string `json:"totals"` // per-currency debit total, canonical asset form
}
