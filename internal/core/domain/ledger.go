package domain

// Ledger is the root of an account tree and the owner of a transaction
// bucket. Balance propagation terminates when the walk reaches the ledger
// node; the ledger itself carries no balance document.
type Ledger struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
}

// Groups encodes the ledger as document content groups.
func (l Ledger) Groups() ContentGroups {
	return ContentGroups{
		{
			Label: GroupDetails,
			Contents: []Content{
				StringContent(FieldAccountName, l.Name),
			},
		},
		SystemGroup(l.Name, TypeLedger),
	}
}

// LedgerFromDocument decodes a ledger document.
func LedgerFromDocument(doc Document) (Ledger, error) {
	name, err := doc.Groups.GetString(GroupDetails, FieldAccountName)
	if err != nil {
		return Ledger{}, err
	}
	return Ledger{Hash: doc.Hash, Name: name}, nil
}
