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
	"github.com/docledger/docledger/internal/middleware"
)

// ErrNotTrusted is returned when a caller outside the trusted-account list
// invokes a trusted-only operation.
var ErrNotTrusted = errors.New("only trusted accounts can perform this action")

// Settings document group and field labels.
const (
	settingsDataGroup     = "settings_data"
	trustedAccountsGroup  = "trusted_accounts"
	trustedAccountLabel   = "trusted_account"
	allowedCurrencyGroup  = "allowed_currencies"
	allowedCurrencyLabel  = "allowed_currency"
	nextTransactionIDName = "next_trx_id"
)

// settingsService owns the settings document: arbitrary typed settings, the
// trusted-account list, and monotonic id allocation. The document is a
// singleton addressed through the current-hash index, replaced wholesale on
// every change.
type settingsService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewSettingsService creates the settings service.
func NewSettingsService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) portssvc.SettingsSvcFacade {
	if now == nil {
		now = time.Now
	}
	return &settingsService{repo: repo, now: now}
}

var _ portssvc.SettingsSvcFacade = (*settingsService)(nil)

// loadSettingsGroups fetches the current settings document payload, returning
// the default empty payload when none has been persisted yet.
func loadSettingsGroups(ctx context.Context, repo portsrepo.DocumentRepository) (domain.ContentGroups, string, error) {
	hash, err := repo.GetCurrentHash(ctx, domain.CurrentSettingsKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.ContentGroups{
			{Label: domain.GroupDetails},
			domain.SystemGroup(domain.TypeSettings, domain.TypeSettings),
		}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	doc, err := repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return nil, "", fmt.Errorf("%w: settings index points at missing document %s", apperrors.ErrIntegrity, hash)
	}
	return doc.Groups, hash, nil
}

// replaceSettingsGroups persists a new settings document and repoints the
// index, erasing the superseded version.
func replaceSettingsGroups(ctx context.Context, repo portsrepo.DocumentRepository, updater string, groups domain.ContentGroups, oldHash string, now time.Time) error {
	doc := domain.NewDocument(updater, now, groups)
	if doc.Hash == oldHash {
		return nil
	}
	if err := repo.SaveDocument(ctx, doc); err != nil {
		return err
	}
	if err := repo.SetCurrentHash(ctx, domain.CurrentSettingsKey, doc.Hash); err != nil {
		return err
	}
	if oldHash != "" {
		if err := repo.EraseDocument(ctx, oldHash, true); err != nil {
			return err
		}
	}
	return nil
}

// groupValues lists the string values stored under a label within a group.
func groupValues(groups domain.ContentGroups, groupLabel, fieldLabel string) []string {
	g, ok := groups.Group(groupLabel)
	if !ok {
		return nil
	}
	var values []string
	for _, c := range g.Contents {
		if c.Label == fieldLabel && c.Type == domain.ContentString {
			values = append(values, c.StringValue)
		}
	}
	return values
}

// upsertGroupContent sets or appends a content entry inside the named group,
// creating the group if needed. When match is non-nil it replaces the first
// entry match reports true for; otherwise the content is appended.
func upsertGroupContent(groups domain.ContentGroups, groupLabel string, content domain.Content, match func(domain.Content) bool) domain.ContentGroups {
	for gi, g := range groups {
		if g.Label != groupLabel {
			continue
		}
		if match != nil {
			for ci, c := range g.Contents {
				if match(c) {
					groups[gi].Contents[ci] = content
					return groups
				}
			}
		}
		groups[gi].Contents = append(groups[gi].Contents, content)
		return groups
	}
	return append(groups, domain.ContentGroup{Label: groupLabel, Contents: []domain.Content{content}})
}

// removeGroupContent drops every entry match reports true for from the named
// group. Returns the updated groups and whether anything was removed.
func removeGroupContent(groups domain.ContentGroups, groupLabel string, match func(domain.Content) bool) (domain.ContentGroups, bool) {
	removed := false
	for gi, g := range groups {
		if g.Label != groupLabel {
			continue
		}
		kept := g.Contents[:0]
		for _, c := range g.Contents {
			if match(c) {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		groups[gi].Contents = kept
	}
	return groups, removed
}

// SetSetting stores one typed setting value under the settings_data group.
func (s *settingsService) SetSetting(ctx context.Context, updater, key string, value domain.Content) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	value.Label = key
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		groups = upsertGroupContent(groups, settingsDataGroup, value, func(c domain.Content) bool {
			return c.Label == key
		})
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
	if err != nil {
		return err
	}
	logger.Info("Setting stored", slog.String("key", key))
	return nil
}

// RemoveSetting deletes a setting; removing an absent key fails with ErrNotFound.
func (s *settingsService) RemoveSetting(ctx context.Context, updater, key string) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		groups, removed := removeGroupContent(groups, settingsDataGroup, func(c domain.Content) bool {
			return c.Label == key
		})
		if !removed {
			return fmt.Errorf("%w: setting %q", apperrors.ErrNotFound, key)
		}
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
}

// GetSettings returns the full settings payload.
func (s *settingsService) GetSettings(ctx context.Context) (domain.ContentGroups, error) {
	groups, _, err := loadSettingsGroups(ctx, s.repo)
	return groups, err
}

// AddTrustedAccount admits an account to the trusted list.
func (s *settingsService) AddTrustedAccount(ctx context.Context, updater, account string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		for _, existing := range groupValues(groups, trustedAccountsGroup, trustedAccountLabel) {
			if existing == account {
				return fmt.Errorf("%w: account %s is trusted already", apperrors.ErrDuplicate, account)
			}
		}
		groups = upsertGroupContent(groups, trustedAccountsGroup, domain.StringContent(trustedAccountLabel, account), nil)
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
	if err != nil {
		return err
	}
	logger.Info("Trusted account added", slog.String("account", account))
	return nil
}

// RemoveTrustedAccount drops an account from the trusted list.
func (s *settingsService) RemoveTrustedAccount(ctx context.Context, updater, account string) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		groups, oldHash, err := loadSettingsGroups(ctx, repo)
		if err != nil {
			return err
		}
		groups, removed := removeGroupContent(groups, trustedAccountsGroup, func(c domain.Content) bool {
			return c.Label == trustedAccountLabel && c.StringValue == account
		})
		if !removed {
			return fmt.Errorf("%w: account %s is not trusted", apperrors.ErrNotFound, account)
		}
		return replaceSettingsGroups(ctx, repo, updater, groups, oldHash, s.now())
	})
}

// RequireTrusted fails unless the account is on the trusted list.
func (s *settingsService) RequireTrusted(ctx context.Context, account string) error {
	return requireTrusted(ctx, s.repo, account)
}

func requireTrusted(ctx context.Context, repo portsrepo.DocumentRepository, account string) error {
	groups, _, err := loadSettingsGroups(ctx, repo)
	if err != nil {
		return err
	}
	for _, trusted := range groupValues(groups, trustedAccountsGroup, trustedAccountLabel) {
		if trusted == account {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %w", apperrors.ErrForbidden, account, ErrNotTrusted)
}

// NextTransactionID allocates the next monotonic transaction id.
func (s *settingsService) NextTransactionID(ctx context.Context) (int64, error) {
	return s.repo.IncrementCounter(ctx, nextTransactionIDName)
}
