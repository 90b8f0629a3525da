package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// ErrCurrencyNotAllowed is returned when a component's currency is outside
// the configured allow-list.
var ErrCurrencyNotAllowed = errors.New("currency is not in the allowed list")

// currencyService is the currency allow-list gate. The list lives in the
// settings document as zero-amount assets, so each entry carries both the
// symbol code and its reference precision.
type currencyService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewCurrencyService creates the currency service.
func NewCurrencyService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) portssvc.CurrencySvcFacade {
	if now == nil {
		now = time.Now
	}
	return &currencyService{repo: repo, now: now}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

func allowedCurrencies(groups domain.ContentGroups) []domain.Asset {
	g, ok := groups.Group(allowedCurrencyGroup)
	if !ok {
		return nil
	}
	var currencies []domain.Asset
	for _, c := range g.Contents {
		if c.Label == allowedCurrencyLabel && c.Type == domain.ContentAsset {
			currencies = append(currencies, c.AssetValue)
		}
	}
	return currencies
}

// ensureAllowed checks the symbol against the allow-list using the given
// store handle, so lifecycle operations can gate inside their own unit of work.
func ensureAllowed(ctx context.Context, repo portsrepo.DocumentRepository, symbol string) error {
	groups, _, err := loadSettingsGroups(ctx, repo)
	if err != nil {
		return err
	}
	for _, cur := range allowedCurrencies(groups) {
		if cur.Symbol == symbol {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %w", apperrors.ErrValidation, symbol, ErrCurrencyNotAllowed)
}

// EnsureAllowed fails unless the symbol is on the allow-list.
func (s *currencyService) EnsureAllowed(ctx context.Context, symbol string) error {
	return ensureAllowed(ctx, s.repo, symbol)
}

// AddCurrency admits a currency symbol with its reference precision.
func (s *currencyService) AddCurrency(ctx context.Context, updater string, symbol string, precision uint8) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	entry := domain.NewAsset(0, symbol, precision)
	if !entry.IsValid() {
		return fmt.Errorf("%w: malformed currency %q at precision %d", apperrors.ErrValidation, symbol, precision)
	}
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		for _, cur := range allowedCurrencies(groups) {
			if cur.Symbol == symbol {
				return fmt.Errorf("%w: currency %s", apperrors.ErrDuplicate, symbol)
			}
		}
		groups = upsertGroupContent(groups, allowedCurrencyGroup, domain.AssetContent(allowedCurrencyLabel, entry), nil)
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
	if err != nil {
		return err
	}
	logger.Info("Currency allowed", slog.String("symbol", symbol), slog.Int("precision", int(precision)))
	return nil
}

// RemoveCurrency drops a currency from the allow-list.
func (s *currencyService) RemoveCurrency(ctx context.Context, updater string, symbol string) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		groups, removed := removeGroupContent(groups, allowedCurrencyGroup, func(c domain.Content) bool {
			return c.Label == allowedCurrencyLabel && c.AssetValue.Symbol == symbol
		})
		if !removed {
			return fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, symbol)
		}
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
}

// ListCurrencies returns the configured allow-list.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error) {
	groups, _, err := loadSettingsGroups(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	currencies := allowedCurrencies(groups)
	out := make([]dto.CurrencyResponse, 0, len(currencies))
	for _, cur := range currencies {
		out = append(out, dto.CurrencyResponse{Symbol: cur.Symbol, Precision: cur.Precision})
	}
	return out, nil
}
