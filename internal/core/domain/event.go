package domain

import "fmt"

// Event is an opaque external-system record referenced by at most one
// component. The core never interprets its payload beyond the source/cursor
// bookkeeping fields; binding and unbinding is the only interaction.
type Event struct {
	Hash   string        `json:"hash"`
	Source string        `json:"source"`
	Cursor string        `json:"cursor"`
	Groups ContentGroups `json:"groups"`
}

// EventFromDocument decodes the bookkeeping fields of an event document.
func EventFromDocument(doc Document) (Event, error) {
	source, err := doc.Groups.GetString(GroupDetails, FieldEventSource)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: %w", doc.Hash, err)
	}
	cursor, err := doc.Groups.GetString(GroupDetails, FieldEventCursor)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: %w", doc.Hash, err)
	}
	return Event{Hash: doc.Hash, Source: source, Cursor: cursor, Groups: doc.Groups}, nil
}

// Cursor records the last ingested position for one external event source.
type Cursor struct {
	Source     string `json:"source"`
	LastCursor string `json:"lastCursor"`
}
