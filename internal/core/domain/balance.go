package domain

import (
	"sort"
	"strings"
)

// Balance holds one account's running totals per currency symbol. Local covers
// the account's own postings; Global covers the account plus the roll-up of
// every descendant. After any completed propagation:
//
//	Global(account) = Local(account) + Σ Global(child)
//
// currency-wise, for all direct children.
type Balance struct {
	Hash        string           `json:"hash"`
	AccountHash string           `json:"accountHash"`
	Local       map[string]Asset `json:"local"`
	Global      map[string]Asset `json:"global"`
	Revision    int64            `json:"revision"`
}

// NewBalance returns the empty balance for a freshly created account.
func NewBalance(accountHash string) Balance {
	return Balance{
		AccountHash: accountHash,
		Local:       make(map[string]Asset),
		Global:      make(map[string]Asset),
	}
}

// AddLocal folds a signed amount into the local slot for its symbol.
func (b *Balance) AddLocal(delta Asset) error {
	updated, err := SumBySymbol(b.Local, delta)
	if err != nil {
		return err
	}
	b.Local = updated
	return nil
}

// AddGlobal folds a signed amount into the global slot for its symbol.
func (b *Balance) AddGlobal(delta Asset) error {
	updated, err := SumBySymbol(b.Global, delta)
	if err != nil {
		return err
	}
	b.Global = updated
	return nil
}

// ReplaceGlobal swaps the global slice wholesale, leaving local slots intact.
func (b *Balance) ReplaceGlobal(global map[string]Asset) {
	if global == nil {
		global = make(map[string]Asset)
	}
	b.Global = global
}

// Groups encodes the balance as document content groups. Symbols are emitted
// in sorted order so the content hash is deterministic.
func (b Balance) Groups() ContentGroups {
	contents := []Content{
		HashContent(FieldComponentAccount, b.AccountHash),
		IntContent(FieldRevision, b.Revision),
	}
	for _, sym := range sortedSymbols(b.Local) {
		contents = append(contents, AssetContent(LocalBalancePrefix+sym, b.Local[sym]))
	}
	for _, sym := range sortedSymbols(b.Global) {
		contents = append(contents, AssetContent(GlobalBalancePrefix+sym, b.Global[sym]))
	}
	return ContentGroups{
		{Label: GroupDetails, Contents: contents},
		SystemGroup(TypeBalance, TypeBalance),
	}
}

// BalanceFromDocument decodes a balance document by the local_/global_ field
// naming convention.
func BalanceFromDocument(doc Document) (Balance, error) {
	account, err := doc.Groups.GetHash(GroupDetails, FieldComponentAccount)
	if err != nil {
		return Balance{}, err
	}
	revision, err := doc.Groups.GetInt(GroupDetails, FieldRevision)
	if err != nil {
		return Balance{}, err
	}
	b := NewBalance(account)
	b.Hash = doc.Hash
	b.Revision = revision
	details, _ := doc.Groups.Group(GroupDetails)
	for _, c := range details.Contents {
		if c.Type != ContentAsset {
			continue
		}
		switch {
		case strings.HasPrefix(c.Label, LocalBalancePrefix):
			b.Local[c.AssetValue.Symbol] = c.AssetValue
		case strings.HasPrefix(c.Label, GlobalBalancePrefix):
			b.Global[c.AssetValue.Symbol] = c.AssetValue
		}
	}
	return b, nil
}

func sortedSymbols(m map[string]Asset) []string {
	syms := make([]string, 0, len(m))
	for sym := range m {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// CloneAssets copies a symbol→asset map so callers can mutate freely.
func CloneAssets(m map[string]Asset) map[string]Asset {
	out := make(map[string]Asset, len(m))
	for sym, a := range m {
		out[sym] = a
	}
	return out
}
