package usecase

import (
	"context"
	"strings"
	"time"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type botModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Phone       string `gorm:"not null;index:idx_bots_phone"`
	Credentials string `gorm:"type:text"`

	AutoLike       bool   `gorm:"default:false"`
	AutoReact      bool   `gorm:"default:false"`
	AutoViewStatus bool   `gorm:"default:false"`
	ChatAgent      bool   `gorm:"default:false"`
	TypingMode     string `gorm:"default:'none'"`

	Messages int64 `gorm:"default:0"`
	Commands int64 `gorm:"default:0"`

	Status           string `gorm:"not null;default:'offline';index:idx_bots_status"`
	ApprovalStatus   string `gorm:"not null;default:'pending';index:idx_bots_approval"`
	ApprovalDate     string
	ExpirationMonths int `gorm:"default:0"`

	TenantName string `gorm:"not null;index:idx_bots_tenant"`
	IsGuest    bool   `gorm:"default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (botModel) TableName() string {
	return "bots"
}

// --- Service ---

type botService struct {
	db *gorm.DB
}

// NewBotService builds the bot row store. Lifecycle decisions live in
// the fleet service; this service only reads and mutates rows.
func NewBotService(db *gorm.DB) domainBot.IBotUsecase {
	if err := db.AutoMigrate(&botModel{}); err != nil {
		logrus.WithError(err).Error("[BOT] failed to migrate bots table")
	}
	return &botService{db: db}
}

func (s *botService) List(ctx context.Context, tenant string) ([]domainBot.Bot, error) {
	query := s.db.WithContext(ctx).Model(&botModel{})
	if tenant != "" {
		query = query.Where("tenant_name = ?", CanonicalTenantName(tenant))
	}

	var models []botModel
	if err := query.Order("name asc").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromBotModels(models), nil
}

func (s *botService) ListApproved(ctx context.Context, tenant string) ([]domainBot.Bot, error) {
	query := s.db.WithContext(ctx).Model(&botModel{}).
		Where("approval_status = ?", string(domainBot.ApprovalApproved))
	if tenant != "" {
		query = query.Where("tenant_name = ?", CanonicalTenantName(tenant))
	}

	var models []botModel
	if err := query.Order("name asc").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromBotModels(models), nil
}

func (s *botService) GetByID(ctx context.Context, id string) (domainBot.Bot, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return domainBot.Bot{}, pkgError.ValidationError("id: cannot be blank.")
	}

	var m botModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", trimmed).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainBot.Bot{}, pkgError.BotNotFound(trimmed)
		}
		return domainBot.Bot{}, err
	}
	return fromBotModel(m), nil
}

func (s *botService) GetByPhone(ctx context.Context, phone string) (domainBot.Bot, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return domainBot.Bot{}, pkgError.ValidationError("phone: cannot be blank.")
	}

	var m botModel
	if err := s.db.WithContext(ctx).First(&m, "phone = ?", trimmed).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainBot.Bot{}, pkgError.NotFoundError("bot: no bot with phone " + trimmed + ".")
		}
		return domainBot.Bot{}, err
	}
	return fromBotModel(m), nil
}

func (s *botService) UpdateName(ctx context.Context, id string, name string) (domainBot.Bot, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return domainBot.Bot{}, pkgError.ValidationError("name: cannot be blank.")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return domainBot.Bot{}, err
	}

	if err := s.db.WithContext(ctx).Model(&botModel{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"name": trimmed, "updated_at": time.Now().UTC()}).Error; err != nil {
		return domainBot.Bot{}, err
	}

	existing.Name = trimmed
	return existing, nil
}

func (s *botService) UpdateFeatures(ctx context.Context, id string, req domainBot.UpdateFeaturesRequest) (domainBot.Bot, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return domainBot.Bot{}, err
	}

	updates := map[string]interface{}{}
	if req.AutoLike != nil {
		updates["auto_like"] = *req.AutoLike
	}
	if req.AutoReact != nil {
		updates["auto_react"] = *req.AutoReact
	}
	if req.AutoViewStatus != nil {
		updates["auto_view_status"] = *req.AutoViewStatus
	}
	if req.ChatAgent != nil {
		updates["chat_agent"] = *req.ChatAgent
	}
	if req.TypingMode != nil {
		mode := strings.ToLower(strings.TrimSpace(*req.TypingMode))
		switch domainBot.TypingMode(mode) {
		case domainBot.TypingNone, domainBot.TypingTyping, domainBot.TypingRecording:
			updates["typing_mode"] = mode
		default:
			return domainBot.Bot{}, pkgError.ValidationError("typing_mode: must be none, typing or recording.")
		}
	}

	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).Model(&botModel{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return domainBot.Bot{}, err
	}
	return s.GetByID(ctx, existing.ID)
}

func (s *botService) SetStatus(ctx context.Context, id string, status domainBot.Status) error {
	result := s.db.WithContext(ctx).Model(&botModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.BotNotFound(id)
	}
	return nil
}

func (s *botService) ConfirmCredentials(ctx context.Context, id string, blob string) error {
	result := s.db.WithContext(ctx).Model(&botModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"credentials": blob, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.BotNotFound(id)
	}
	return nil
}

func (s *botService) IncrementMessages(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&botModel{}).
		Where("id = ?", id).
		Update("messages", gorm.Expr("messages + 1")).Error
}

func (s *botService) IncrementCommands(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&botModel{}).
		Where("id = ?", id).
		Update("commands", gorm.Expr("commands + 1")).Error
}

// --- Mappers ---

func fromBotModel(m botModel) domainBot.Bot {
	typingMode := domainBot.TypingMode(m.TypingMode)
	if typingMode == "" {
		typingMode = domainBot.TypingNone
	}

	return domainBot.Bot{
		ID:          m.ID,
		Name:        m.Name,
		Phone:       m.Phone,
		Credentials: m.Credentials,
		Features: domainBot.Features{
			AutoLike:       m.AutoLike,
			AutoReact:      m.AutoReact,
			AutoViewStatus: m.AutoViewStatus,
			ChatAgent:      m.ChatAgent,
			TypingMode:     typingMode,
		},
		Messages:         m.Messages,
		Commands:         m.Commands,
		Status:           domainBot.Status(m.Status),
		ApprovalStatus:   domainBot.ApprovalStatus(m.ApprovalStatus),
		ApprovalDate:     m.ApprovalDate,
		ExpirationMonths: m.ExpirationMonths,
		TenantName:       m.TenantName,
		IsGuest:          m.IsGuest,
		CreatedAt:        formatTimestamp(m.CreatedAt),
		UpdatedAt:        formatTimestamp(m.UpdatedAt),
	}
}

func fromBotModels(models []botModel) []domainBot.Bot {
	bots := make([]domainBot.Bot, 0, len(models))
	for _, m := range models {
		bots = append(bots, fromBotModel(m))
	}
	return bots
}
