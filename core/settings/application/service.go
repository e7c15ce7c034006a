package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AzielCF/az-fleet/core/settings/domain"
	"github.com/AzielCF/az-fleet/core/settings/infrastructure"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewFleetSettingsGormRepository(db),
	}
}

// DynamicSettings is the in-database configuration that survives
// restarts and can be changed without redeploying.
type DynamicSettings struct {
	ServerName       string
	DefaultCapacity  *int
	RegistrationOpen *bool
	SweepSuspended   *bool
}

func (s *SettingsService) InitSchema(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	if err := s.repo.InitSchema(ctx); err != nil {
		return nil, err
	}

	ds := &DynamicSettings{}

	if val, _ := s.repo.Get(ctx, domain.KeyServerName); val != "" {
		ds.ServerName = val
	}
	if val, _ := s.repo.Get(ctx, domain.KeyDefaultCapacity); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			ds.DefaultCapacity = &n
		}
	}
	if val, _ := s.repo.Get(ctx, domain.KeyRegistrationOpen); val != "" {
		isOn := isTruthy(val)
		ds.RegistrationOpen = &isOn
	}
	if val, _ := s.repo.Get(ctx, domain.KeySweepSuspended); val != "" {
		isOn := isTruthy(val)
		ds.SweepSuspended = &isOn
	}
	return ds, nil
}

// GetServerName returns the server name persisted by a previous run, or
// empty when none was ever stored.
func (s *SettingsService) GetServerName(ctx context.Context) (string, error) {
	return s.repo.Get(ctx, domain.KeyServerName)
}

// SetServerName persists the resolved server name so later runs keep the
// same identity when the environment stops providing one.
func (s *SettingsService) SetServerName(ctx context.Context, name string) error {
	return s.repo.Set(ctx, domain.KeyServerName, strings.TrimSpace(name))
}

func (s *SettingsService) GetDefaultCapacity(ctx context.Context, fallback int) (int, error) {
	val, err := s.repo.Get(ctx, domain.KeyDefaultCapacity)
	if err != nil {
		return fallback, err
	}
	if n, convErr := strconv.Atoi(val); convErr == nil && n > 0 {
		return n, nil
	}
	return fallback, nil
}

func (s *SettingsService) SetDefaultCapacity(ctx context.Context, v int) error {
	if v < 1 {
		v = 1
	}
	return s.repo.Set(ctx, domain.KeyDefaultCapacity, fmt.Sprintf("%d", v))
}

// IsRegistrationOpen defaults to open unless an operator closed it.
func (s *SettingsService) IsRegistrationOpen(ctx context.Context) bool {
	val, err := s.repo.Get(ctx, domain.KeyRegistrationOpen)
	if err != nil || val == "" {
		return true
	}
	return isTruthy(val)
}

func (s *SettingsService) SetRegistrationOpen(ctx context.Context, open bool) error {
	return s.repo.Set(ctx, domain.KeyRegistrationOpen, boolValue(open))
}

// IsSweepSuspended reports whether the expiration sweep was paused by an
// operator, e.g. during a bulk migration.
func (s *SettingsService) IsSweepSuspended(ctx context.Context) bool {
	val, err := s.repo.Get(ctx, domain.KeySweepSuspended)
	if err != nil || val == "" {
		return false
	}
	return isTruthy(val)
}

func (s *SettingsService) SetSweepSuspended(ctx context.Context, suspended bool) error {
	return s.repo.Set(ctx, domain.KeySweepSuspended, boolValue(suspended))
}

func (s *SettingsService) GetAll(ctx context.Context) ([]domain.Setting, error) {
	return s.repo.GetAll(ctx)
}

func isTruthy(v string) bool {
	vLower := strings.ToLower(v)
	return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
}

func boolValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
