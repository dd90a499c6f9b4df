package service

import (
	"context"
	"strconv"
	"strings"

	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/config"
	"github.com/openinvoice/openinvoice/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var knownKeys = map[string]bool{
	domain.KeyStoreName:      true,
	domain.KeySellerID:       true,
	domain.KeyDefaultVATRate: true,
	domain.KeyReceiptFooter:  true,
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Repo   domain.Repository
	Audit  auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	repo  domain.Repository
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		cfg:   p.Config,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

// GetAll returns every known key. Environment defaults fill keys that have
// no database row yet.
func (s *Service) GetAll(ctx context.Context) (map[string]string, error) {
	values := s.defaults()

	stored, err := s.repo.GetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, setting := range stored {
		values[setting.Key] = setting.Value
	}
	return values, nil
}

func (s *Service) Profile(ctx context.Context) (domain.StoreProfile, error) {
	values, err := s.GetAll(ctx)
	if err != nil {
		return domain.StoreProfile{}, err
	}

	vatRate, err := strconv.ParseFloat(values[domain.KeyDefaultVATRate], 64)
	if err != nil {
		vatRate = s.cfg.Store.DefaultVATRate
	}

	return domain.StoreProfile{
		StoreName:      values[domain.KeyStoreName],
		SellerID:       values[domain.KeySellerID],
		DefaultVATRate: vatRate,
		ReceiptFooter:  values[domain.KeyReceiptFooter],
	}, nil
}

func (s *Service) UpdateMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return domain.ErrEmptyUpdate
	}

	for key, value := range values {
		if !knownKeys[key] {
			return domain.ErrUnknownKey
		}
		if key == domain.KeyDefaultVATRate {
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				return domain.ErrInvalidValue
			}
		}
	}

	changed := make([]string, 0, len(values))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := s.repo.Upsert(ctx, tx, key, strings.TrimSpace(value)); err != nil {
				return err
			}
			changed = append(changed, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("settings updated", zap.Strings("keys", changed))
	_ = s.audit.Record(ctx, auditdomain.ActionSettingsUpdated, "settings", nil, map[string]any{
		"keys": changed,
	})
	return nil
}

func (s *Service) defaults() map[string]string {
	return map[string]string{
		domain.KeyStoreName:      s.cfg.Store.Name,
		domain.KeySellerID:       s.cfg.Store.SellerID,
		domain.KeyDefaultVATRate: strconv.FormatFloat(s.cfg.Store.DefaultVATRate, 'f', -1, 64),
		domain.KeyReceiptFooter:  s.cfg.Store.ReceiptFooter,
	}
}
