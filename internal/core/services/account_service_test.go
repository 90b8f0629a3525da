package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	"github.com/docledger/docledger/internal/dto"
)

type AccountServiceTestSuite struct {
	fixtureSuite
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (s *AccountServiceTestSuite) TestDefaultTreeSeededAtLedgerCreation() {
	roots, err := s.svc.Account.ListChildren(s.ctx, s.ledger.Hash)
	s.Require().NoError(err)

	var equity *domain.Account
	for i := range roots {
		if roots[i].Name == "Equity" {
			equity = &roots[i]
		}
	}
	s.Require().NotNil(equity, "every ledger starts with an Equity account")
	s.Equal(domain.CreditNormal, equity.TagType)
	s.Equal("3000", equity.Code)

	children, err := s.svc.Account.ListChildren(s.ctx, equity.Hash)
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal("Opening Balances", children[0].Name)
	s.Equal("Equity/Opening Balances", children[0].Path)
	s.Equal("3900", children[0].Code)
}

func (s *AccountServiceTestSuite) TestCreateNestedAccountPath() {
	assets := s.createAccount("Assets", domain.TagDebit, s.ledger.Hash, "1100")
	checking := s.createAccount("Checking", domain.TagDebit, assets.Hash, "1110")

	s.Equal("Assets/Checking", checking.Path)

	path, err := s.svc.Account.GetAccountPath(s.ctx, checking.Hash)
	s.Require().NoError(err)
	s.Equal(checking.Path, path, "walked path must agree with the stored one")
}

func (s *AccountServiceTestSuite) TestSiblingNamesUniqueCaseInsensitive() {
	_, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: s.ledger.Hash,
		LedgerHash: s.ledger.Hash,
		Name:       "  CASH ",
		TagType:    domain.TagDebit,
	})
	s.ErrorIs(err, apperrors.ErrDuplicate)
}

func (s *AccountServiceTestSuite) TestNameValidation() {
	for _, name := range []string{"", "   ", "a/b"} {
		_, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
			ParentHash: s.ledger.Hash,
			LedgerHash: s.ledger.Hash,
			Name:       name,
			TagType:    domain.TagDebit,
		})
		s.ErrorIs(err, apperrors.ErrValidation, "name %q", name)
	}
}

func (s *AccountServiceTestSuite) TestParentMustBelongToSameLedger() {
	other, err := s.svc.Ledger.CreateLedger(s.ctx, adminUser, dto.CreateLedgerRequest{Name: "Side"})
	s.Require().NoError(err)

	_, err = s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: s.cash.Hash,
		LedgerHash: other.Hash,
		Name:       "Stray",
		TagType:    domain.TagDebit,
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *AccountServiceTestSuite) TestOpeningBalancesPostedAndApproved() {
	inventory, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: s.ledger.Hash,
		LedgerHash: s.ledger.Hash,
		Name:       "Inventory",
		TagType:    domain.TagDebit,
		Code:       "1200",
		OpeningBalances: []dto.OpeningBalance{
			{Amount: decimal.RequireFromString("500.00"), Currency: "USD", Precision: 2},
		},
	})
	s.Require().NoError(err)

	s.Equal("500.00 USD", s.localUSD(inventory.Hash))
	s.Equal("500.00 USD", s.globalUSD(inventory.Hash))

	// Counter side lands on Equity/Opening Balances and rolls up to Equity.
	equityChildren, err := s.svc.Account.ListChildren(s.ctx, s.ledger.Hash)
	s.Require().NoError(err)
	var equity domain.Account
	for _, a := range equityChildren {
		if a.Name == "Equity" {
			equity = a
		}
	}
	s.Require().NotEmpty(equity.Hash)
	openings, err := s.svc.Account.ListChildren(s.ctx, equity.Hash)
	s.Require().NoError(err)
	s.Require().Len(openings, 1)
	s.Equal("-500.00 USD", s.localUSD(openings[0].Hash))
	s.Equal("-500.00 USD", s.globalUSD(equity.Hash))

	approved, err := s.svc.Transaction.ListTransactions(s.ctx, s.ledger.Hash, true)
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.True(approved[0].Approved())
	s.Len(approved[0].Components, 2)
}

func (s *AccountServiceTestSuite) TestOpeningBalancesRequireAllowedCurrency() {
	_, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: s.ledger.Hash,
		LedgerHash: s.ledger.Hash,
		Name:       "Vault",
		TagType:    domain.TagDebit,
		OpeningBalances: []dto.OpeningBalance{
			{Amount: decimal.RequireFromString("1.00"), Currency: "EUR", Precision: 2},
		},
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	// The whole unit of work rolled back, account included.
	sibling, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: s.ledger.Hash,
		LedgerHash: s.ledger.Hash,
		Name:       "Vault",
		TagType:    domain.TagDebit,
	})
	s.Require().NoError(err)
	s.NotEmpty(sibling.Hash)
}

func (s *AccountServiceTestSuite) TestUpdateRenamesAndMigratesBalance() {
	temp := s.createAccount("Temp", domain.TagDebit, s.ledger.Hash, "1900")

	newName := "Suspense"
	updated, err := s.svc.Account.UpdateAccount(s.ctx, adminUser, temp.Hash, dto.UpdateAccountRequest{Name: &newName})
	s.Require().NoError(err)
	s.Equal("Suspense", updated.Name)
	s.Equal("Suspense", updated.Path)
	s.NotEqual(temp.Hash, updated.Hash, "renaming must yield a new content hash")

	_, err = s.svc.Account.GetAccount(s.ctx, temp.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound)

	balance, err := s.svc.Balance.GetBalances(s.ctx, updated.Hash)
	s.Require().NoError(err)
	s.Equal(updated.Hash, balance.AccountHash)

	_, err = s.svc.Balance.GetBalances(s.ctx, temp.Hash)
	s.Error(err, "old identity must not keep a balance record")
}

func (s *AccountServiceTestSuite) TestUpdateRejectedForPostedAccount() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "10.00"), true)

	newName := "Petty Cash"
	_, err := s.svc.Account.UpdateAccount(s.ctx, adminUser, s.cash.Hash, dto.UpdateAccountRequest{Name: &newName})
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *AccountServiceTestSuite) TestUpdateRejectedForNonLeaf() {
	assets := s.createAccount("Assets", domain.TagDebit, s.ledger.Hash, "1100")
	s.createAccount("Checking", domain.TagDebit, assets.Hash, "1110")

	newName := "Holdings"
	_, err := s.svc.Account.UpdateAccount(s.ctx, adminUser, assets.Hash, dto.UpdateAccountRequest{Name: &newName})
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *AccountServiceTestSuite) TestDeleteCleanLeaf() {
	scratch := s.createAccount("Scratch", domain.TagDebit, s.ledger.Hash, "1999")

	s.Require().NoError(s.svc.Account.DeleteAccount(s.ctx, adminUser, scratch.Hash))

	_, err := s.svc.Account.GetAccount(s.ctx, scratch.Hash)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *AccountServiceTestSuite) TestDeleteRejectedForPostedAccount() {
	s.mustUpsert(regularUser, "", s.paymentPayload(s.cash.Hash, s.revenue.Hash, "10.00"), true)

	err := s.svc.Account.DeleteAccount(s.ctx, adminUser, s.cash.Hash)
	s.ErrorIs(err, apperrors.ErrConflict)
}
