package usecase

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainPairing "github.com/AzielCF/az-fleet/domains/pairing"
	"github.com/AzielCF/az-fleet/infrastructure/valkey"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var pairingPhonePattern = regexp.MustCompile(`^\d{10,15}$`)

// --- Persistence Model ---

type guestSessionModel struct {
	ID        string `gorm:"primaryKey"`
	Phone     string `gorm:"not null;index:idx_guest_sessions_phone"`
	Code      string
	LinkedAt  *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (guestSessionModel) TableName() string {
	return "guest_sessions"
}

// --- Service ---

type pairingService struct {
	db    *gorm.DB
	cache *valkey.Client
}

// NewPairingService builds the pairing front. cache may be nil when
// Valkey is disabled; lookups then hit the database directly.
func NewPairingService(db *gorm.DB, cache *valkey.Client) domainPairing.IPairingUsecase {
	if err := db.AutoMigrate(&guestSessionModel{}); err != nil {
		logrus.WithError(err).Error("[PAIR] failed to migrate guest_sessions table")
	}
	return &pairingService{db: db, cache: cache}
}

// GeneratePairingCode opens a throwaway socket, requests an 8-character
// code for the phone and records the attempt as a guest session. A
// completed link during the teardown grace flips the session to linked.
func (s *pairingService) GeneratePairingCode(ctx context.Context, phone string) (domainPairing.PairingResponse, error) {
	if !pairingPhonePattern.MatchString(phone) {
		return domainPairing.PairingResponse{}, pkgError.ValidationError("phone: must be 10 to 15 digits.")
	}

	resp, err := whatsapp.RequestPairingCode(ctx, phone, s.markLinked)
	if err != nil {
		return domainPairing.PairingResponse{}, err
	}

	s.recordSession(ctx, resp)
	return resp, nil
}

// GetGuestSession reports whether the phone's most recent pairing
// attempt produced a linked session.
func (s *pairingService) GetGuestSession(ctx context.Context, phone string) (domainPairing.GuestSessionResponse, error) {
	if !pairingPhonePattern.MatchString(phone) {
		return domainPairing.GuestSessionResponse{}, pkgError.ValidationError("phone: must be 10 to 15 digits.")
	}

	if s.cache != nil {
		var cached domainPairing.GuestSessionResponse
		if hit, err := s.cache.GetJSON(ctx, s.cache.Key("guest", phone), &cached); err == nil && hit {
			return cached, nil
		}
	}

	var m guestSessionModel
	err := s.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at desc").
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainPairing.GuestSessionResponse{Found: false}, nil
		}
		return domainPairing.GuestSessionResponse{}, err
	}

	resp := domainPairing.GuestSessionResponse{
		Found:     m.LinkedAt != nil,
		SessionID: m.ID,
		Phone:     m.Phone,
	}
	if m.LinkedAt != nil {
		resp.LinkedAt = m.LinkedAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// SweepExpired reaps guest session rows older than the configured TTL
// and clears pairing containers a crashed request left behind.
func (s *pairingService) SweepExpired(ctx context.Context) (int, error) {
	ttl := guestTTL()
	cutoff := time.Now().UTC().Add(-ttl)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&guestSessionModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	reaped := int(result.RowsAffected)

	s.reapStaleContainers(cutoff)

	if reaped > 0 {
		logrus.Infof("[SWEEP] Reaped %d expired guest sessions", reaped)
	}
	return reaped, nil
}

// markLinked is handed to the pairing socket and fires when the phone
// completes the link before teardown. The row may not exist yet when a
// link lands very fast, hence the upsert.
func (s *pairingService) markLinked(requestID, phone string) {
	now := time.Now().UTC()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"linked_at": now}),
	}).Create(&guestSessionModel{
		ID:        requestID,
		Phone:     phone,
		LinkedAt:  &now,
		CreatedAt: now,
	}).Error
	if err != nil {
		logrus.WithError(err).Warnf("[PAIR] Failed to mark guest session %s linked", requestID)
		return
	}

	s.cacheSession(context.Background(), domainPairing.GuestSessionResponse{
		Found:     true,
		SessionID: requestID,
		Phone:     phone,
		LinkedAt:  now.Format(time.RFC3339),
	})
}

// recordSession persists the issued code without clobbering a linked_at
// the observer may have written already.
func (s *pairingService) recordSession(ctx context.Context, resp domainPairing.PairingResponse) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"code": resp.Code}),
	}).Create(&guestSessionModel{
		ID:        resp.RequestID,
		Phone:     resp.Phone,
		Code:      resp.Code,
		CreatedAt: time.Now().UTC(),
	}).Error
	if err != nil {
		logrus.WithError(err).Warnf("[PAIR] Failed to record guest session %s", resp.RequestID)
	}
}

func (s *pairingService) cacheSession(ctx context.Context, resp domainPairing.GuestSessionResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, s.cache.Key("guest", resp.Phone), resp, guestTTL()); err != nil {
		logrus.WithError(err).Debug("[PAIR] guest session cache write failed")
	}
}

// reapStaleContainers removes _pairing directories whose request ended
// without a clean teardown, e.g. across a crash.
func (s *pairingService) reapStaleContainers(cutoff time.Time) {
	root := filepath.Join(coreconfig.Global.Paths.Auth, "_pairing")
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logrus.WithError(err).Warnf("[SWEEP] Failed to remove stale pairing container %s", path)
		} else {
			logrus.Debugf("[SWEEP] Removed stale pairing container %s", path)
		}
	}
}

func guestTTL() time.Duration {
	if coreconfig.Global != nil && coreconfig.Global.Sweep.GuestTTL > 0 {
		return coreconfig.Global.Sweep.GuestTTL
	}
	return 10 * time.Minute
}
