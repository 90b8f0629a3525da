package services_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	"github.com/docledger/docledger/internal/core/services"
	"github.com/docledger/docledger/internal/dto"
)

type EventServiceTestSuite struct {
	fixtureSuite
}

func TestEventServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EventServiceTestSuite))
}

func (s *EventServiceTestSuite) ingest(source, cursor string) domain.Event {
	event, err := s.svc.Event.IngestEvent(s.ctx, adminUser, dto.IngestEventRequest{
		Source: source,
		Cursor: cursor,
		Fields: map[string]string{"payload": cursor},
	})
	s.Require().NoError(err)
	return *event
}

func (s *EventServiceTestSuite) TestIngestRequiresTrusted() {
	_, err := s.svc.Event.IngestEvent(s.ctx, regularUser, dto.IngestEventRequest{Source: "bank", Cursor: "1"})
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.ErrorIs(err, services.ErrNotTrusted)
}

func (s *EventServiceTestSuite) TestIngestAdvancesCursor() {
	s.ingest("bank", "1")
	s.ingest("bank", "2")
	s.ingest("broker", "a")

	cursors, err := s.svc.Event.ListCursors(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(cursors, 2)
	s.Equal("bank", cursors[0].Source)
	s.Equal("2", cursors[0].LastCursor)
	s.Equal("broker", cursors[1].Source)
	s.Equal("a", cursors[1].LastCursor)
}

func (s *EventServiceTestSuite) TestGetEvent() {
	event := s.ingest("bank", "1")

	got, err := s.svc.Event.GetEvent(s.ctx, event.Hash)
	s.Require().NoError(err)
	s.Equal("bank", got.Source)
	s.Equal("1", got.Cursor)

	// Non-event documents are rejected by type.
	_, err = s.svc.Event.GetEvent(s.ctx, s.cash.Hash)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *EventServiceTestSuite) TestBindAndUnbind() {
	event := s.ingest("bank", "1")
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)
	component := trx.Components[0].Hash

	s.Require().NoError(s.svc.Event.BindEvent(s.ctx, regularUser, event.Hash, component))

	got, err := s.svc.Transaction.GetTransaction(s.ctx, trx.Hash)
	s.Require().NoError(err)
	s.Equal(event.Hash, got.Components[0].EventHash)

	s.Require().NoError(s.svc.Event.UnbindEvent(s.ctx, regularUser, event.Hash, component))

	// Unbinding frees both sides for a new pairing.
	s.NoError(s.svc.Event.BindEvent(s.ctx, regularUser, event.Hash, trx.Components[1].Hash))
}

func (s *EventServiceTestSuite) TestBindingIsOneToOne() {
	first := s.ingest("bank", "1")
	second := s.ingest("bank", "2")
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	s.Require().NoError(s.svc.Event.BindEvent(s.ctx, regularUser, first.Hash, trx.Components[0].Hash))

	err := s.svc.Event.BindEvent(s.ctx, regularUser, second.Hash, trx.Components[0].Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrComponentAlreadyBound)

	err = s.svc.Event.BindEvent(s.ctx, regularUser, first.Hash, trx.Components[1].Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrEventAlreadyBound)
}

func (s *EventServiceTestSuite) TestBindRejectedAfterApproval() {
	event := s.ingest("bank", "1")
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), true)

	err := s.svc.Event.BindEvent(s.ctx, regularUser, event.Hash, trx.Components[0].Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrTransactionApproved)
}

func (s *EventServiceTestSuite) TestUnbindRejectedAfterApproval() {
	event := s.ingest("bank", "1")
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[0].EventHash = event.Hash
	trx := s.mustUpsert(regularUser, "", payload, true)

	err := s.svc.Event.UnbindEvent(s.ctx, regularUser, event.Hash, trx.Components[0].Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrTransactionApproved)
}

func (s *EventServiceTestSuite) TestInlineBindingOnCreate() {
	event := s.ingest("bank", "1")
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[0].EventHash = event.Hash

	trx := s.mustUpsert(regularUser, "", payload, false)
	s.Equal(event.Hash, trx.Components[0].EventHash)

	// A second posting cannot claim the same event.
	other := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "5.00")
	other.Components[0].EventHash = event.Hash
	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "", other, false)
	s.ErrorIs(err, services.ErrEventAlreadyBound)
}

func (s *EventServiceTestSuite) TestDeletingDraftReleasesBinding() {
	event := s.ingest("bank", "1")
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[0].EventHash = event.Hash
	trx := s.mustUpsert(regularUser, "", payload, false)

	s.Require().NoError(s.svc.Transaction.Delete(s.ctx, regularUser, trx.Hash))

	// The event survives the cascade and can be bound again.
	fresh := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "5.00"), false)
	s.NoError(s.svc.Event.BindEvent(s.ctx, regularUser, event.Hash, fresh.Components[0].Hash))
}

func (s *EventServiceTestSuite) TestBindNonEventDocumentRejected() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	err := s.svc.Event.BindEvent(s.ctx, regularUser, s.cash.Hash, trx.Components[0].Hash)
	s.ErrorIs(err, apperrors.ErrValidation)
}
