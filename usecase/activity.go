package usecase

import (
	"context"
	"time"

	domainActivity "github.com/AzielCF/az-fleet/domains/activity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type activityModel struct {
	ID           string    `gorm:"primaryKey"`
	Type         string    `gorm:"not null;index:idx_activities_type"`
	Description  string    `gorm:"not null"`
	BotID        string    `gorm:"index:idx_activities_bot"`
	TenantName   string    `gorm:"index:idx_activities_tenant"`
	Phone        string
	RemoteTenant string
	RemoteBotID  string
	Metadata     string    `gorm:"type:text;default:'{}'"`
	CreatedAt    time.Time `gorm:"not null;index:idx_activities_created"`
}

func (activityModel) TableName() string {
	return "activities"
}

// --- Service ---

type activityService struct {
	db *gorm.DB
}

// NewActivityService builds the append-only audit trail. Rows are never
// updated or deleted.
func NewActivityService(db *gorm.DB) domainActivity.IActivityUsecase {
	if err := db.AutoMigrate(&activityModel{}); err != nil {
		logrus.WithError(err).Error("[ACTIVITY] failed to migrate activities table")
	}
	return &activityService{db: db}
}

// Record appends one entry. A storage failure is logged and swallowed:
// an audit hiccup must never undo the lifecycle operation it describes.
func (s *activityService) Record(ctx context.Context, entry domainActivity.Entry) {
	m := activityModel{
		ID:           entry.ID,
		Type:         string(entry.Type),
		Description:  entry.Description,
		BotID:        entry.BotID,
		TenantName:   CanonicalTenantName(entry.TenantName),
		Phone:        entry.Phone,
		RemoteTenant: CanonicalTenantName(entry.RemoteTenant),
		RemoteBotID:  entry.RemoteBotID,
		Metadata:     entry.Metadata,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Metadata == "" {
		m.Metadata = "{}"
	}

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"type":   m.Type,
			"bot_id": m.BotID,
		}).Error("[ACTIVITY] failed to record entry")
	}
}

func (s *activityService) List(ctx context.Context, filter domainActivity.Filter) ([]domainActivity.Entry, error) {
	query := s.db.WithContext(ctx).Model(&activityModel{})

	if filter.TenantName != "" {
		query = query.Where("tenant_name = ?", CanonicalTenantName(filter.TenantName))
	}
	if filter.BotID != "" {
		query = query.Where("bot_id = ?", filter.BotID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var models []activityModel
	if err := query.Order("created_at desc").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]domainActivity.Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, domainActivity.Entry{
			ID:           m.ID,
			Type:         domainActivity.Type(m.Type),
			Description:  m.Description,
			BotID:        m.BotID,
			TenantName:   m.TenantName,
			Phone:        m.Phone,
			RemoteTenant: m.RemoteTenant,
			RemoteBotID:  m.RemoteBotID,
			Metadata:     m.Metadata,
			CreatedAt:    formatTimestamp(m.CreatedAt),
		})
	}
	return entries, nil
}
