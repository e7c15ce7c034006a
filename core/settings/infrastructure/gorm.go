package infrastructure

import (
	"context"
	"strings"

	"github.com/AzielCF/az-fleet/core/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FleetSettingModel struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (FleetSettingModel) TableName() string {
	return "fleet_settings"
}

type FleetSettingsGormRepository struct {
	db *gorm.DB
}

func NewFleetSettingsGormRepository(db *gorm.DB) *FleetSettingsGormRepository {
	return &FleetSettingsGormRepository{db: db}
}

func (r *FleetSettingsGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&FleetSettingModel{})
}

func (r *FleetSettingsGormRepository) Get(ctx context.Context, key string) (string, error) {
	var m FleetSettingModel
	if err := r.db.WithContext(ctx).First(&m, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(m.Value), nil
}

func (r *FleetSettingsGormRepository) Set(ctx context.Context, key string, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(&FleetSettingModel{
		Key:   key,
		Value: value,
	}).Error
}

func (r *FleetSettingsGormRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&FleetSettingModel{}, "key = ?", key).Error
}

func (r *FleetSettingsGormRepository) GetAll(ctx context.Context) ([]domain.Setting, error) {
	var models []FleetSettingModel
	if err := r.db.WithContext(ctx).Order("key asc").Find(&models).Error; err != nil {
		return nil, err
	}
	settings := make([]domain.Setting, 0, len(models))
	for _, m := range models {
		settings = append(settings, domain.Setting{Key: m.Key, Value: strings.TrimSpace(m.Value)})
	}
	return settings, nil
}
