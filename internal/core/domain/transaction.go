package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/docledger/docledger/internal/apperrors"
)

// ErrUnbalanced is returned by CheckBalanced when any currency's signed
// component sum is non-zero.
var ErrUnbalanced = errors.New("transaction does not balance")

// Component is one posting within a transaction: a non-negative magnitude plus
// a DEBIT/CREDIT tag against a single account. The tag, not the stored sign,
// determines the sign applied during balance propagation.
type Component struct {
	Hash        string  `json:"hash"`
	AccountHash string  `json:"accountHash"`
	Amount      Asset   `json:"amount"`
	Tag         TagType `json:"tag"`
	Memo        string  `json:"memo"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	EventHash   string  `json:"eventHash,omitempty"`
}

// SignedAmount is the contribution the component makes to balance sums and
// propagation: +amount for DEBIT, −amount for CREDIT.
func (c Component) SignedAmount() Asset {
	if c.Tag == CreditNormal {
		return c.Amount.Negated()
	}
	return c.Amount
}

// Groups encodes the component as document content groups.
func (c Component) Groups() ContentGroups {
	contents := []Content{
		HashContent(FieldComponentAccount, c.AccountHash),
		AssetContent(FieldComponentAmount, c.Amount),
		StringContent(FieldComponentTag, string(c.Tag)),
		StringContent(FieldComponentMemo, c.Memo),
		StringContent(FieldComponentFrom, c.From),
		StringContent(FieldComponentTo, c.To),
	}
	if c.EventHash != "" {
		contents = append(contents, HashContent(FieldComponentEvent, c.EventHash))
	}
	return ContentGroups{
		{Label: GroupDetails, Contents: contents},
		SystemGroup(TypeComponent, TypeComponent),
	}
}

// ComponentFromDocument decodes a persisted component document.
func ComponentFromDocument(doc Document) (Component, error) {
	groups := doc.Groups
	account, err := groups.GetHash(GroupDetails, FieldComponentAccount)
	if err != nil {
		return Component{}, err
	}
	amount, err := groups.GetAsset(GroupDetails, FieldComponentAmount)
	if err != nil {
		return Component{}, err
	}
	rawTag, err := groups.GetString(GroupDetails, FieldComponentTag)
	if err != nil {
		return Component{}, err
	}
	tag, err := ParseTagType(rawTag)
	if err != nil {
		return Component{}, err
	}
	memo, err := groups.GetString(GroupDetails, FieldComponentMemo)
	if err != nil {
		return Component{}, err
	}
	from, err := groups.GetString(GroupDetails, FieldComponentFrom)
	if err != nil {
		return Component{}, err
	}
	to, err := groups.GetString(GroupDetails, FieldComponentTo)
	if err != nil {
		return Component{}, err
	}
	cmp := Component{
		Hash:        doc.Hash,
		AccountHash: account,
		Amount:      amount,
		Tag:         tag,
		Memo:        memo,
		From:        from,
		To:          to,
	}
	if event, err := groups.GetHash(GroupDetails, FieldComponentEvent); err == nil {
		cmp.EventHash = event
	}
	return cmp, nil
}

// Transaction is an ordered set of components under a single ledger. ID is the
// monotonic logical identity, assigned once and preserved across edits; the
// document hash changes on every edit.
type Transaction struct {
	Hash       string      `json:"hash"`
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Memo       string      `json:"memo"`
	Date       time.Time   `json:"date"`
	LedgerHash string      `json:"ledgerHash"`
	Approver   string      `json:"approver,omitempty"`
	Components []Component `json:"components"`
}

// Approved reports whether the transaction has been approved. Approval is
// one-way; an approved transaction can no longer be edited or deleted.
func (t Transaction) Approved() bool {
	return t.Approver != ""
}

// ParseTransaction builds a transaction from a structured payload: exactly one
// details group, every other group labeled component. Any missing mandatory
// field, malformed group label, invalid tag or invalid amount fails the whole
// parse; nothing is persisted on a parse error.
func ParseTransaction(groups ContentGroups) (Transaction, error) {
	detailCount := 0
	for _, g := range groups {
		if g.Label == GroupDetails {
			detailCount++
		}
	}
	if detailCount != 1 {
		return Transaction{}, fmt.Errorf("%w: expected exactly one %q group, found %d",
			apperrors.ErrValidation, GroupDetails, detailCount)
	}

	memo, err := groups.GetString(GroupDetails, FieldTrxMemo)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	date, err := groups.GetTime(GroupDetails, FieldTrxDate)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	ledger, err := groups.GetHash(GroupDetails, FieldTrxLedger)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	id, err := groups.GetInt(GroupDetails, FieldTrxID)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	trx := Transaction{
		ID:         id,
		Memo:       memo,
		Date:       date,
		LedgerHash: ledger,
	}
	if name, err := groups.GetString(GroupDetails, FieldTrxName); err == nil {
		trx.Name = name
	}
	if approver, err := groups.GetString(GroupDetails, FieldTrxApprover); err == nil {
		trx.Approver = approver
	}

	for i, g := range groups {
		if g.Label == GroupDetails || g.Label == GroupSystem {
			continue
		}
		if g.Label != GroupComponent {
			return Transaction{}, fmt.Errorf("%w: wrong group label %q at index %d, expecting %q",
				apperrors.ErrValidation, g.Label, i, GroupComponent)
		}
		cmp, err := parseComponentGroup(g)
		if err != nil {
			return Transaction{}, err
		}
		trx.Components = append(trx.Components, cmp)
	}
	return trx, nil
}

func parseComponentGroup(g ContentGroup) (Component, error) {
	wrapped := ContentGroups{g}
	account, err := wrapped.GetHash(GroupComponent, FieldComponentAccount)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	amount, err := wrapped.GetAsset(GroupComponent, FieldComponentAmount)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if !amount.IsValid() || amount.IsNegative() {
		return Component{}, fmt.Errorf("%w: invalid component amount %s", apperrors.ErrValidation, amount)
	}
	rawTag, err := wrapped.GetString(GroupComponent, FieldComponentTag)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	tag, err := ParseTagType(rawTag)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	memo, err := wrapped.GetString(GroupComponent, FieldComponentMemo)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	from, err := wrapped.GetString(GroupComponent, FieldComponentFrom)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	to, err := wrapped.GetString(GroupComponent, FieldComponentTo)
	if err != nil {
		return Component{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	cmp := Component{
		AccountHash: account,
		Amount:      amount,
		Tag:         tag,
		Memo:        memo,
		From:        from,
		To:          to,
	}
	if event, err := wrapped.GetHash(GroupComponent, FieldComponentEvent); err == nil {
		cmp.EventHash = event
	}
	return cmp, nil
}

// TransactionFromDocument rebuilds a transaction from its persisted document
// plus the component documents reached over component relations. Used by
// update/delete/approve, where the caller supplies only a hash.
func TransactionFromDocument(doc Document, componentDocs []Document) (Transaction, error) {
	trx, err := ParseTransaction(doc.Groups)
	if err != nil {
		return Transaction{}, err
	}
	trx.Hash = doc.Hash
	trx.Components = trx.Components[:0]
	for _, cd := range componentDocs {
		cmp, err := ComponentFromDocument(cd)
		if err != nil {
			return Transaction{}, fmt.Errorf("%w: component %s: %v", apperrors.ErrIntegrity, cd.Hash, err)
		}
		trx.Components = append(trx.Components, cmp)
	}
	return trx, nil
}

// DetailsGroup encodes the transaction header for persistence.
func (t Transaction) DetailsGroup() ContentGroup {
	contents := []Content{
		StringContent(FieldTrxName, t.Name),
		StringContent(FieldTrxMemo, t.Memo),
		TimeContent(FieldTrxDate, t.Date),
		HashContent(FieldTrxLedger, t.LedgerHash),
		IntContent(FieldTrxID, t.ID),
	}
	if t.Approver != "" {
		contents = append(contents, StringContent(FieldTrxApprover, t.Approver))
	}
	return ContentGroup{Label: GroupDetails, Contents: contents}
}

// Groups encodes the transaction header document (components are persisted as
// separate documents linked by relations).
func (t Transaction) Groups() ContentGroups {
	return ContentGroups{
		t.DetailsGroup(),
		SystemGroup(TypeTransaction, TypeTransaction),
	}
}

// CheckBalanced verifies the double-entry invariant: for every currency symbol
// across the components, the signed sum (+DEBIT, −CREDIT) must be exactly
// zero, computed with precision-adjusting addition. The error names the first
// offending currency and its residual.
func (t Transaction) CheckBalanced() error {
	totals := make(map[string]Asset)
	order := make([]string, 0, len(t.Components))
	for _, cmp := range t.Components {
		if _, seen := totals[cmp.Amount.Symbol]; !seen {
			order = append(order, cmp.Amount.Symbol)
		}
		var err error
		totals, err = SumBySymbol(totals, cmp.SignedAmount())
		if err != nil {
			return err
		}
	}
	for _, sym := range order {
		if residual := totals[sym]; !residual.IsZero() {
			return fmt.Errorf("%w: currency %s has residual %s", ErrUnbalanced, sym, residual)
		}
	}
	return nil
}
