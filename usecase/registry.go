package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	domainRegistry "github.com/AzielCF/az-fleet/domains/registry"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type registryModel struct {
	Phone      string    `gorm:"primaryKey;column:phone"`
	TenantName string    `gorm:"not null;index:idx_registry_tenant"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (registryModel) TableName() string {
	return "global_registry"
}

// --- Service ---

type registryService struct {
	db *gorm.DB
}

// NewRegistryService builds the global phone registry. The registry is
// the single source of truth for "which server hosts this number".
func NewRegistryService(db *gorm.DB) domainRegistry.IRegistryUsecase {
	if err := db.AutoMigrate(&registryModel{}); err != nil {
		logrus.WithError(err).Error("[REGISTRY] failed to migrate global_registry table")
	}
	return &registryService{db: db}
}

func (s *registryService) Lookup(ctx context.Context, phone string) (domainRegistry.Entry, bool, error) {
	var m registryModel
	if err := s.db.WithContext(ctx).First(&m, "phone = ?", phone).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainRegistry.Entry{}, false, nil
		}
		return domainRegistry.Entry{}, false, err
	}
	return fromRegistryModel(m), true, nil
}

func (s *registryService) Insert(ctx context.Context, phone, tenantName string) error {
	return insertRegistryEntry(s.db.WithContext(ctx), phone, CanonicalTenantName(tenantName))
}

func (s *registryService) UpdateTenant(ctx context.Context, phone, tenantName string) error {
	result := s.db.WithContext(ctx).Model(&registryModel{}).
		Where("phone = ?", phone).
		Update("tenant_name", CanonicalTenantName(tenantName))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.NotFoundError("registry: phone " + phone + " not registered.")
	}
	return nil
}

func (s *registryService) Remove(ctx context.Context, phone string) error {
	return s.db.WithContext(ctx).Delete(&registryModel{}, "phone = ?", phone).Error
}

// Check runs the registration cross-check for (phone, tenant): who owns
// the number, and whether the local bot table agrees with the registry.
func (s *registryService) Check(ctx context.Context, phone, tenantName string) (domainRegistry.CheckResult, error) {
	canonical := CanonicalTenantName(tenantName)

	entry, found, err := s.Lookup(ctx, phone)
	if err != nil {
		return domainRegistry.CheckResult{}, err
	}

	if found {
		if entry.TenantName == canonical {
			return domainRegistry.CheckResult{
				Availability: domainRegistry.DuplicateSameTenant,
				OwnerTenant:  entry.TenantName,
			}, nil
		}
		return domainRegistry.CheckResult{
			Availability: domainRegistry.DuplicateOtherTenant,
			OwnerTenant:  entry.TenantName,
		}, nil
	}

	// A local bot row for an unregistered phone means the registry and
	// the bot table diverged. Refuse until an operator repairs it.
	var count int64
	if err := s.db.WithContext(ctx).Model(&botModel{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return domainRegistry.CheckResult{}, err
	}
	if count > 0 {
		return domainRegistry.CheckResult{Availability: domainRegistry.InconsistentLocal}, nil
	}

	return domainRegistry.CheckResult{Availability: domainRegistry.Available}, nil
}

func (s *registryService) List(ctx context.Context) ([]domainRegistry.Entry, error) {
	var models []registryModel
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]domainRegistry.Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, fromRegistryModel(m))
	}
	return entries, nil
}

// insertRegistryEntry claims a phone inside the given handle, which may
// be a transaction. Unique violations are translated into the policy
// errors the registration flow expects.
func insertRegistryEntry(db *gorm.DB, phone, tenantName string) error {
	err := db.Create(&registryModel{Phone: phone, TenantName: tenantName}).Error
	if err == nil {
		return nil
	}
	if !isDuplicateKeyError(err) {
		return err
	}

	var owner registryModel
	if lookupErr := db.First(&owner, "phone = ?", phone).Error; lookupErr == nil {
		if owner.TenantName == tenantName {
			return pkgError.ErrDuplicateOnThisTenant
		}
		return pkgError.DuplicateOnOtherTenant(owner.TenantName)
	}
	return pkgError.ErrDuplicateOnThisTenant
}

// isDuplicateKeyError recognizes unique violations across the drivers
// this repo runs on: lib/pq surfaces code 23505, pgx embeds the
// SQLSTATE in the message, sqlite names the constraint.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// --- Mappers ---

func fromRegistryModel(m registryModel) domainRegistry.Entry {
	return domainRegistry.Entry{
		Phone:      m.Phone,
		TenantName: m.TenantName,
		CreatedAt:  formatTimestamp(m.CreatedAt),
	}
}
