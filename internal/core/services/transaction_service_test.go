package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	"github.com/docledger/docledger/internal/core/services"
	"github.com/docledger/docledger/internal/dto"
)

type TransactionServiceTestSuite struct {
	fixtureSuite
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func (s *TransactionServiceTestSuite) TestCreateApprovedPropagatesBalances() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), true)

	s.True(trx.Approved())
	s.Equal(regularUser, trx.Approver)
	s.Equal(int64(1), trx.ID)
	s.Len(trx.Components, 2)

	s.Equal("100.00 USD", s.localUSD(s.cash.Hash))
	s.Equal("100.00 USD", s.globalUSD(s.cash.Hash))
	s.Equal("-100.00 USD", s.localUSD(s.revenue.Hash))
	s.Equal("-100.00 USD", s.globalUSD(s.revenue.Hash))

	approved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, true)
	s.Require().NoError(err)
	s.Len(approved, 1)
}

func (s *TransactionServiceTestSuite) TestCreateDraftLeavesBalancesUntouched() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	s.False(trx.Approved())
	s.Equal("none", s.localUSD(s.cash.Hash))
	s.Equal("none", s.localUSD(s.revenue.Hash))

	unapproved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, false)
	s.Require().NoError(err)
	s.Len(unapproved, 1)
}

func (s *TransactionServiceTestSuite) TestUnbalancedApproveRejectedAtomically() {
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[1].Amount = decimal.RequireFromString("90.00")

	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "", payload, true)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	s.ErrorContains(err, "USD")

	// Nothing of the failed unit of work is observable: no documents, no
	// balance movement, and the id counter was never consumed.
	s.Equal("none", s.localUSD(s.cash.Hash))
	unapproved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, false)
	s.Require().NoError(err)
	s.Empty(unapproved)

	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "50.00"), false)
	s.Equal(int64(1), trx.ID)
}

func (s *TransactionServiceTestSuite) TestOutOfRangePrecisionRejected() {
	// A zero-magnitude leg at an out-of-range precision still balances
	// arithmetically; it must be refused outright instead of reaching the
	// balance walk, where rescaling across the gap would wrap.
	s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), true)

	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "50.00")
	payload.Components = append(payload.Components, dto.ComponentRequest{
		AccountHash: s.cash.Hash,
		Amount:      decimal.Zero,
		Currency:    "USD",
		Precision:   200,
		Type:        domain.TagDebit,
	})

	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "", payload, true)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	s.Equal("100.00 USD", s.localUSD(s.cash.Hash))
	s.Equal("100.00 USD", s.globalUSD(s.cash.Hash))
	s.Equal("-100.00 USD", s.localUSD(s.revenue.Hash))
}

func (s *TransactionServiceTestSuite) TestDraftMayBeUnbalanced() {
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components = payload.Components[:1]

	trx := s.mustUpsert(regularUser, "", payload, false)
	s.Len(trx.Components, 1)
}

func (s *TransactionServiceTestSuite) TestUpdatePreservesIDAndChangesHash() {
	original := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "250.00")
	payload.Memo = "corrected amount"
	updated := s.mustUpsert(regularUser, original.Hash, payload, false)

	s.Equal(original.ID, updated.ID)
	s.NotEqual(original.Hash, updated.Hash)
	s.Equal("corrected amount", updated.Memo)

	_, err := s.svc.Transaction.GetTransaction(s.ctx, original.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TransactionServiceTestSuite) TestUpdateApprovedRejected() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), true)

	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, trx.Hash, s.paymentPayload(s.cash.Hash, s.revenue.Hash, "1.00"), false)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrTransactionApproved)
}

func (s *TransactionServiceTestSuite) TestDeleteDraftCascades() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	s.Require().NoError(s.svc.Transaction.Delete(s.ctx, regularUser, trx.Hash))

	_, err := s.svc.Transaction.GetTransaction(s.ctx, trx.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound)
	for _, cmp := range trx.Components {
		_, err := s.store.FindDocumentByHash(s.ctx, cmp.Hash)
		s.ErrorIs(err, apperrors.ErrNotFound)
	}
	unapproved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, false)
	s.Require().NoError(err)
	s.Empty(unapproved)
}

func (s *TransactionServiceTestSuite) TestDeleteApprovedRejected() {
	trx := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), true)

	err := s.svc.Transaction.Delete(s.ctx, regularUser, trx.Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrTransactionApproved)
}

func (s *TransactionServiceTestSuite) TestApproveMovesPartitionAndStampsApprover() {
	draft := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)

	approved, err := s.svc.Transaction.Approve(s.ctx, adminUser, draft.Hash)
	s.Require().NoError(err)
	s.Equal(adminUser, approved.Approver)
	s.Equal(draft.ID, approved.ID)
	s.NotEqual(draft.Hash, approved.Hash, "stamping the approver must change the content hash")

	_, err = s.svc.Transaction.GetTransaction(s.ctx, draft.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound)

	unapproved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, false)
	s.Require().NoError(err)
	s.Empty(unapproved)
	listed, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, true)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(approved.Hash, listed[0].Hash)

	s.Equal("100.00 USD", s.localUSD(s.cash.Hash))
	s.Equal("-100.00 USD", s.localUSD(s.revenue.Hash))
}

func (s *TransactionServiceTestSuite) TestReApproveRejected() {
	draft := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00"), false)
	approved, err := s.svc.Transaction.Approve(s.ctx, adminUser, draft.Hash)
	s.Require().NoError(err)

	_, err = s.svc.Transaction.Approve(s.ctx, adminUser, approved.Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrTransactionApproved)

	// Applied exactly once.
	s.Equal("100.00 USD", s.localUSD(s.cash.Hash))
}

func (s *TransactionServiceTestSuite) TestApproveUnbalancedRejected() {
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components = payload.Components[:1]
	draft := s.mustUpsert(regularUser, "", payload, false)

	_, err := s.svc.Transaction.Approve(s.ctx, adminUser, draft.Hash)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	s.ErrorContains(err, "USD")

	// Still a draft, untouched.
	unapproved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, false)
	s.Require().NoError(err)
	s.Require().Len(unapproved, 1)
	s.Equal(draft.Hash, unapproved[0].Hash)
	s.Equal("none", s.localUSD(s.cash.Hash))
}

func (s *TransactionServiceTestSuite) TestCurrencyOutsideAllowListRejected() {
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[0].Currency = "EUR"
	payload.Components[1].Currency = "EUR"

	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "", payload, false)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.ErrorIs(err, services.ErrCurrencyNotAllowed)
}

func (s *TransactionServiceTestSuite) TestUnknownAccountRejected() {
	payload := s.paymentPayload(s.cash.Hash, s.revenue.Hash, "100.00")
	payload.Components[0].AccountHash = "deadbeef"

	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "", payload, false)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TransactionServiceTestSuite) TestUpdateOfUnknownTransactionRejected() {
	_, err := s.svc.Transaction.Upsert(s.ctx, regularUser, "no-such-hash", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "1.00"), false)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TransactionServiceTestSuite) TestIDsAreMonotonic() {
	first := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "1.00"), false)
	second := s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "2.00"), false)

	s.Equal(first.ID+1, second.ID)
}
