package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/docledger/docledger/internal/adapters/database/memory"
	"github.com/docledger/docledger/internal/core/domain"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/core/services"
	"github.com/docledger/docledger/internal/dto"
)

const (
	adminUser   = "admin"
	regularUser = "alice"
)

// testClock yields strictly increasing timestamps so document creation times
// are deterministic across runs.
func testClock() portssvc.Clock {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ticks int64
	return func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
}

// fixtureSuite seeds every test with a fresh in-memory store, one ledger with
// its default tree, the USD allow-list entry, a trusted admin account and a
// Cash/Revenue account pair.
type fixtureSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	svc     *portssvc.ServiceContainer
	ledger  dto.LedgerResponse
	cash    domain.Account
	revenue domain.Account
}

func (s *fixtureSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.svc = services.NewServiceContainer(s.store, nil, testClock())

	ledger, err := s.svc.Ledger.CreateLedger(s.ctx, adminUser, dto.CreateLedgerRequest{Name: "Main"})
	s.Require().NoError(err)
	s.ledger = *ledger

	s.Require().NoError(s.svc.Currency.AddCurrency(s.ctx, adminUser, "USD", 2))
	s.Require().NoError(s.svc.Settings.AddTrustedAccount(s.ctx, adminUser, adminUser))

	s.cash = s.createAccount("Cash", domain.TagDebit, s.ledger.Hash, "1000")
	s.revenue = s.createAccount("Revenue", domain.TagCredit, s.ledger.Hash, "4000")
}

func (s *fixtureSuite) createAccount(name, tagType, parentHash, code string) domain.Account {
	account, err := s.svc.Account.CreateAccount(s.ctx, adminUser, dto.CreateAccountRequest{
		ParentHash: parentHash,
		LedgerHash: s.ledger.Hash,
		Name:       name,
		TagType:    tagType,
		Code:       code,
	})
	s.Require().NoError(err)
	return *account
}

// paymentPayload builds a balanced two-component payload moving amount from
// credit to debit.
func (s *fixtureSuite) paymentPayload(debitHash, creditHash, amount string) dto.TransactionPayload {
	return dto.TransactionPayload{
		Name:       "payment",
		Memo:       "test posting",
		Date:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		LedgerHash: s.ledger.Hash,
		Components: []dto.ComponentRequest{
			{
				AccountHash: debitHash,
				Amount:      decimal.RequireFromString(amount),
				Currency:    "USD",
				Precision:   2,
				Type:        domain.TagDebit,
				Memo:        "debit leg",
			},
			{
				AccountHash: creditHash,
				Amount:      decimal.RequireFromString(amount),
				Currency:    "USD",
				Precision:   2,
				Type:        domain.TagCredit,
				Memo:        "credit leg",
			},
		},
	}
}

func (s *fixtureSuite) mustUpsert(issuer, trxHash string, payload dto.TransactionPayload, approve bool) domain.Transaction {
	trx, err := s.svc.Transaction.Upsert(s.ctx, issuer, trxHash, payload, approve)
	s.Require().NoError(err)
	return *trx
}

// localUSD reads the account's own USD posting total in canonical form, "none"
// when the slot is empty.
func (s *fixtureSuite) localUSD(accountHash string) string {
	local, err := s.svc.Balance.GetLocalBalances(s.ctx, accountHash)
	s.Require().NoError(err)
	a, ok := local["USD"]
	if !ok {
		return "none"
	}
	return a.String()
}

func (s *fixtureSuite) globalUSD(accountHash string) string {
	global, err := s.svc.Balance.GetGlobalBalances(s.ctx, accountHash)
	s.Require().NoError(err)
	a, ok := global["USD"]
	if !ok {
		return "none"
	}
	return a.String()
}
