package services_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
)

type BalanceServiceTestSuite struct {
	fixtureSuite
	assets   domain.Account
	checking domain.Account
	savings  domain.Account
}

func TestBalanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BalanceServiceTestSuite))
}

// SetupTest extends the base fixture with a three-level subtree:
//
//	ledger → Assets → Checking
//	               → Savings
func (s *BalanceServiceTestSuite) SetupTest() {
	s.fixtureSuite.SetupTest()
	s.assets = s.createAccount("Assets", domain.TagDebit, s.ledger.Hash, "1100")
	s.checking = s.createAccount("Checking", domain.TagDebit, s.assets.Hash, "1110")
	s.savings = s.createAccount("Savings", domain.TagDebit, s.assets.Hash, "1120")
}

func (s *BalanceServiceTestSuite) TestNewAccountStartsEmpty() {
	balance, err := s.svc.Balance.GetBalances(s.ctx, s.checking.Hash)
	s.Require().NoError(err)
	s.Empty(balance.Local)
	s.Empty(balance.Global)
	s.Equal(int64(1), balance.Revision)
}

func (s *BalanceServiceTestSuite) TestDeltaPropagatesToAncestors() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)

	// Origin gets both slots, ancestors only the global roll-up.
	s.Equal("50.00 USD", s.localUSD(s.checking.Hash))
	s.Equal("50.00 USD", s.globalUSD(s.checking.Hash))
	s.Equal("none", s.localUSD(s.assets.Hash))
	s.Equal("50.00 USD", s.globalUSD(s.assets.Hash))

	// Siblings are untouched.
	s.Equal("none", s.globalUSD(s.savings.Hash))
}

func (s *BalanceServiceTestSuite) TestGlobalIsLocalPlusChildren() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)
	s.mustUpsert(regularUser, "", s.paymentPayload(s.savings.Hash, s.revenue.Hash, "20.00"), true)
	s.mustUpsert(regularUser, "", s.paymentPayload(s.assets.Hash, s.revenue.Hash, "25.00"), true)

	s.Equal("25.00 USD", s.localUSD(s.assets.Hash))
	s.Equal("95.00 USD", s.globalUSD(s.assets.Hash))
	s.Equal("-95.00 USD", s.localUSD(s.revenue.Hash))
}

func (s *BalanceServiceTestSuite) TestApplyDeltaDirect() {
	delta := domain.MustParseAsset("10.00 USD")
	s.Require().NoError(s.svc.Balance.ApplyDelta(s.ctx, adminUser, s.checking.Hash, s.ledger.Hash, delta, true))

	s.Equal("10.00 USD", s.localUSD(s.checking.Hash))
	s.Equal("10.00 USD", s.globalUSD(s.assets.Hash))
}

func (s *BalanceServiceTestSuite) TestApplyDeltaGlobalOnly() {
	delta := domain.MustParseAsset("10.00 USD")
	s.Require().NoError(s.svc.Balance.ApplyDelta(s.ctx, adminUser, s.checking.Hash, s.ledger.Hash, delta, false))

	s.Equal("none", s.localUSD(s.checking.Hash))
	s.Equal("10.00 USD", s.globalUSD(s.checking.Hash))
}

func (s *BalanceServiceTestSuite) TestRecalculateMatchesIncremental() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)
	s.mustUpsert(regularUser, "", s.paymentPayload(s.savings.Hash, s.revenue.Hash, "20.00"), true)
	s.mustUpsert(regularUser, "", s.paymentPayload(s.assets.Hash, s.revenue.Hash, "25.00"), true)

	incremental := s.globalUSD(s.assets.Hash)

	s.Require().NoError(s.svc.Balance.RecalculateGlobalBalances(s.ctx, adminUser, s.checking.Hash, s.ledger.Hash))
	s.Equal(incremental, s.globalUSD(s.assets.Hash))
	s.Equal("50.00 USD", s.globalUSD(s.checking.Hash))
}

func (s *BalanceServiceTestSuite) TestRecalculateRepairsDrift() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)

	// Inject drift at the parent, then recompute from the leaf.
	drift := domain.MustParseAsset("999.00 USD")
	s.Require().NoError(s.svc.Balance.ApplyDelta(s.ctx, adminUser, s.assets.Hash, s.ledger.Hash, drift, false))
	s.Equal("1049.00 USD", s.globalUSD(s.assets.Hash))

	s.Require().NoError(s.svc.Balance.RecalculateGlobalBalances(s.ctx, adminUser, s.checking.Hash, s.ledger.Hash))
	s.Equal("50.00 USD", s.globalUSD(s.assets.Hash))
}

func (s *BalanceServiceTestSuite) TestRevisionAdvancesOnEveryWrite() {
	before, err := s.svc.Balance.GetBalances(s.ctx, s.checking.Hash)
	s.Require().NoError(err)

	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)

	after, err := s.svc.Balance.GetBalances(s.ctx, s.checking.Hash)
	s.Require().NoError(err)
	s.Equal(before.Revision+1, after.Revision)
	s.NotEqual(before.Hash, after.Hash)

	_, err = s.store.FindDocumentByHash(s.ctx, before.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound, "superseded balance document must be erased")
}

// Balance documents record the acting account as their creator, like every
// other document, not the hash of the account they belong to.
func (s *BalanceServiceTestSuite) TestBalanceWritesRecordActingAccount() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.checking.Hash, s.revenue.Hash, "50.00"), true)

	for _, accountHash := range []string{s.checking.Hash, s.assets.Hash} {
		balance, err := s.svc.Balance.GetBalances(s.ctx, accountHash)
		s.Require().NoError(err)
		doc, err := s.store.FindDocumentByHash(s.ctx, balance.Hash)
		s.Require().NoError(err)
		s.Equal(regularUser, doc.Creator)
	}

	s.Require().NoError(s.svc.Balance.RecalculateGlobalBalances(s.ctx, adminUser, s.checking.Hash, s.ledger.Hash))
	balance, err := s.svc.Balance.GetBalances(s.ctx, s.assets.Hash)
	s.Require().NoError(err)
	doc, err := s.store.FindDocumentByHash(s.ctx, balance.Hash)
	s.Require().NoError(err)
	s.Equal(adminUser, doc.Creator)
}

func (s *BalanceServiceTestSuite) TestBalancesOfUnknownAccount() {
	_, err := s.svc.Balance.GetBalances(s.ctx, "no-such-account")
	s.ErrorIs(err, apperrors.ErrIntegrity)
}
