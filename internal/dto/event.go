package dto

import (
	"sort"

	"github.com/docledger/docledger/internal/core/domain"
)

// IngestEventRequest records an external event under the event bucket and
// advances the per-source cursor. Only trusted accounts may ingest.
type IngestEventRequest struct {
	Source string            `json:"source" binding:"required"`
	Cursor string            `json:"cursor" binding:"required"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ToContentGroups lowers the request into the event document payload. Extra
// fields are emitted in sorted label order so identical requests always hash
// to the same document.
func (r IngestEventRequest) ToContentGroups() domain.ContentGroups {
	contents := []domain.Content{
		domain.StringContent(domain.FieldEventSource, r.Source),
		domain.StringContent(domain.FieldEventCursor, r.Cursor),
	}
	labels := make([]string, 0, len(r.Fields))
	for label := range r.Fields {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		contents = append(contents, domain.StringContent(label, r.Fields[label]))
	}
	return domain.ContentGroups{
		{Label: domain.GroupDetails, Contents: contents},
		domain.SystemGroup(domain.TypeEvent, domain.TypeEvent),
	}
}

// BindEventRequest binds or unbinds an event and a component (1:1 both ways).
type BindEventRequest struct {
	EventHash     string `json:"eventHash" binding:"required"`
	ComponentHash string `json:"componentHash" binding:"required"`
}

// EventResponse mirrors a persisted event's bookkeeping fields.
type EventResponse struct {
	Hash   string `json:"hash"`
	Source string `json:"source"`
	Cursor string `json:"cursor"`
}

// CursorResponse reports the last ingested cursor for one source.
type CursorResponse struct {
	Source     string `json:"source"`
	LastCursor string `json:"lastCursor"`
}
