package domain

import (
	"fmt"
	"strings"
)

// TagType is the normal balance side of an account: debit-normal accounts
// (assets, expenses) grow on debits, credit-normal accounts (liabilities,
// equity, income) grow on credits.
type TagType string

const (
	DebitNormal  TagType = TagDebit
	CreditNormal TagType = TagCredit
)

// ParseTagType validates the wire form of a tag type. Anything other than the
// two exact literals is rejected.
func ParseTagType(s string) (TagType, error) {
	switch s {
	case TagDebit:
		return DebitNormal, nil
	case TagCredit:
		return CreditNormal, nil
	default:
		return "", fmt.Errorf("invalid tag type %q, expecting %s or %s", s, TagDebit, TagCredit)
	}
}

// Account is one node of a ledger's account tree. Name is unique among
// siblings (case-insensitive); every account except the ledger root has
// exactly one parent. Path is the human-readable ancestor chain.
type Account struct {
	Hash       string  `json:"hash"`
	Name       string  `json:"name"`
	TagType    TagType `json:"tagType"`
	Code       string  `json:"code"`
	Path       string  `json:"path"`
	ParentHash string  `json:"parentHash"`
	LedgerHash string  `json:"ledgerHash"`
}

// SameName compares account names the way sibling uniqueness does.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Groups encodes the account as document content groups.
func (a Account) Groups() ContentGroups {
	return ContentGroups{
		{
			Label: GroupDetails,
			Contents: []Content{
				StringContent(FieldAccountName, a.Name),
				StringContent(FieldAccountTagType, string(a.TagType)),
				StringContent(FieldAccountCode, a.Code),
				StringContent(FieldAccountPath, a.Path),
				HashContent(FieldParentAccount, a.ParentHash),
				HashContent(FieldLedgerAccount, a.LedgerHash),
			},
		},
		SystemGroup(a.Name, TypeAccount),
	}
}

// AccountFromDocument decodes an account document.
func AccountFromDocument(doc Document) (Account, error) {
	name, err := doc.Groups.GetString(GroupDetails, FieldAccountName)
	if err != nil {
		return Account{}, err
	}
	rawTag, err := doc.Groups.GetString(GroupDetails, FieldAccountTagType)
	if err != nil {
		return Account{}, err
	}
	tag, err := ParseTagType(rawTag)
	if err != nil {
		return Account{}, err
	}
	code, err := doc.Groups.GetString(GroupDetails, FieldAccountCode)
	if err != nil {
		return Account{}, err
	}
	path, err := doc.Groups.GetString(GroupDetails, FieldAccountPath)
	if err != nil {
		return Account{}, err
	}
	parent, err := doc.Groups.GetHash(GroupDetails, FieldParentAccount)
	if err != nil {
		return Account{}, err
	}
	ledger, err := doc.Groups.GetHash(GroupDetails, FieldLedgerAccount)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Hash:       doc.Hash,
		Name:       name,
		TagType:    tag,
		Code:       code,
		Path:       path,
		ParentHash: parent,
		LedgerHash: ledger,
	}, nil
}

// SystemGroup builds the standard system group carried by every document kind.
func SystemGroup(nodeLabel, nodeType string) ContentGroup {
	return ContentGroup{
		Label: GroupSystem,
		Contents: []Content{
			StringContent(FieldNodeLabel, nodeLabel),
			StringContent(FieldNodeType, nodeType),
		},
	}
}

// NodeType extracts the system-group type of a document, empty if absent.
func NodeType(doc Document) string {
	g, ok := doc.Groups.Group(GroupSystem)
	if !ok {
		return ""
	}
	c, ok := g.Get(FieldNodeType)
	if !ok {
		return ""
	}
	return c.StringValue
}
