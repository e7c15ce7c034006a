package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainActivity "github.com/AzielCF/az-fleet/domains/activity"
	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainCredential "github.com/AzielCF/az-fleet/domains/credential"
	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	domainRegistry "github.com/AzielCF/az-fleet/domains/registry"
	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// approvalDateLayouts are the formats the expiration sweep accepts.
// New rows are written as RFC 3339; the date-only layout covers rows
// imported from older deployments.
var approvalDateLayouts = []string{time.RFC3339, "2006-01-02"}

type fleetService struct {
	db          *gorm.DB
	bots        domainBot.IBotUsecase
	tenants     domainTenant.ITenantUsecase
	registry    domainRegistry.IRegistryUsecase
	credentials domainCredential.ICredentialUsecase
	activity    domainActivity.IActivityUsecase
	supervisor  *whatsapp.Supervisor
	tenantName  string
}

// NewFleetService wires the registration engine. tenantName is the
// process-local server identity used when a request does not name a
// target tenant.
func NewFleetService(
	db *gorm.DB,
	bots domainBot.IBotUsecase,
	tenants domainTenant.ITenantUsecase,
	registry domainRegistry.IRegistryUsecase,
	credentials domainCredential.ICredentialUsecase,
	activity domainActivity.IActivityUsecase,
	supervisor *whatsapp.Supervisor,
	tenantName string,
) domainFleet.IFleetUsecase {
	return &fleetService{
		db:          db,
		bots:        bots,
		tenants:     tenants,
		registry:    registry,
		credentials: credentials,
		activity:    activity,
		supervisor:  supervisor,
		tenantName:  CanonicalTenantName(tenantName),
	}
}

// Register runs the full acceptance pipeline: decode and validate the
// credentials, extract the phone identity, check the target tenant and
// the global registry, then persist the bot row and the registry claim
// in one transaction.
func (s *fleetService) Register(ctx context.Context, req domainFleet.RegisterRequest) (domainFleet.RegisterResponse, error) {
	name := strings.TrimSpace(req.BotName)
	if name == "" {
		return domainFleet.RegisterResponse{}, pkgError.ValidationError("bot_name: cannot be blank.")
	}

	validated, err := s.credentials.Validate(ctx, domainCredential.ValidateRequest{
		SessionString: req.SessionString,
		Phone:         req.Phone,
	})
	if err != nil {
		return domainFleet.RegisterResponse{}, err
	}
	phone := validated.Phone

	target := CanonicalTenantName(req.TargetTenant)
	if target == "" {
		target = s.tenantName
	}

	tenant, err := s.activeTenant(ctx, target)
	if err != nil {
		return domainFleet.RegisterResponse{}, err
	}
	if !tenant.HasFreeSlot() {
		return domainFleet.RegisterResponse{}, pkgError.TenantFull(tenant.Name, tenant.CurrentCount, tenant.Capacity)
	}

	check, err := s.registry.Check(ctx, phone, target)
	if err != nil {
		return domainFleet.RegisterResponse{}, err
	}
	switch check.Availability {
	case domainRegistry.DuplicateSameTenant:
		if req.FindExisting {
			existing, err := s.bots.GetByPhone(ctx, phone)
			if err == nil && existing.TenantName == target {
				logrus.Infof("[REGISTER] Discovery hit: phone %s already has bot %s on %s", phone, existing.ID, target)
				return domainFleet.RegisterResponse{
					Kind: domainFleet.KindExistingBotFound,
					Bot:  existing,
				}, nil
			}
		}
		return domainFleet.RegisterResponse{}, pkgError.ErrDuplicateOnThisTenant
	case domainRegistry.DuplicateOtherTenant:
		return domainFleet.RegisterResponse{}, pkgError.DuplicateOnOtherTenant(check.OwnerTenant)
	case domainRegistry.InconsistentLocal:
		return domainFleet.RegisterResponse{}, pkgError.ErrInconsistentLocalBot
	}

	now := time.Now().UTC()
	row := botModel{
		ID:             uuid.NewString(),
		Name:           name,
		Phone:          phone,
		Credentials:    strings.TrimSpace(req.SessionString),
		AutoLike:       req.Features.AutoLike,
		AutoReact:      req.Features.AutoReact,
		AutoViewStatus: req.Features.AutoViewStatus,
		ChatAgent:      req.Features.ChatAgent,
		TypingMode:     string(req.Features.TypingMode),
		Status:         string(domainBot.StatusOffline),
		ApprovalStatus: string(domainBot.ApprovalPending),
		TenantName:     target,
		IsGuest:        req.IsGuest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if row.TypingMode == "" {
		row.TypingMode = string(domainBot.TypingNone)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimTenantSlot(tx, target); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		// The registry claim is the system-wide uniqueness gate. A
		// conflict here rolls back the bot row and the counter.
		return insertRegistryEntry(tx, phone, target)
	})
	if err != nil {
		return domainFleet.RegisterResponse{}, err
	}

	bot := fromBotModel(row)
	logrus.Infof("[REGISTER] Bot %s (%s) registered on %s, pending approval", bot.Name, phone, target)
	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeCreation,
		Description: fmt.Sprintf("Bot %s registered on %s", bot.Name, target),
		BotID:       bot.ID,
		TenantName:  target,
		Phone:       phone,
	})

	return domainFleet.RegisterResponse{Kind: domainFleet.KindNewRegistration, Bot: bot}, nil
}

func (s *fleetService) CheckRegistration(ctx context.Context, phone string) (domainFleet.CheckRegistrationResponse, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return domainFleet.CheckRegistrationResponse{}, pkgError.ValidationError("phone: cannot be blank.")
	}

	resp := domainFleet.CheckRegistrationResponse{CurrentTenant: s.tenantName}

	entry, found, err := s.registry.Lookup(ctx, trimmed)
	if err != nil {
		return domainFleet.CheckRegistrationResponse{}, err
	}
	if found {
		resp.Registered = true
		resp.HostingTenant = entry.TenantName
	}

	if bot, err := s.bots.GetByPhone(ctx, trimmed); err == nil {
		resp.HasBotHere = bot.TenantName == s.tenantName
		resp.Bot = &bot
	}

	return resp, nil
}

// Approve grants a run window of the given number of months. Already
// approved bots are left untouched and reported with Changed=false.
func (s *fleetService) Approve(ctx context.Context, botID string, months int) (domainFleet.ApprovalResponse, error) {
	if months < 1 || months > 12 {
		return domainFleet.ApprovalResponse{}, pkgError.ErrBadDuration
	}

	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return domainFleet.ApprovalResponse{}, err
	}

	switch bot.ApprovalStatus {
	case domainBot.ApprovalApproved:
		return domainFleet.ApprovalResponse{Bot: bot, Changed: false}, nil
	case domainBot.ApprovalRejected:
		return domainFleet.ApprovalResponse{}, pkgError.ErrRejected
	}

	approvalDate := time.Now().UTC().Format(time.RFC3339)
	err = s.db.WithContext(ctx).Model(&botModel{}).Where("id = ?", bot.ID).Updates(map[string]interface{}{
		"approval_status":   string(domainBot.ApprovalApproved),
		"approval_date":     approvalDate,
		"expiration_months": months,
		"updated_at":        time.Now().UTC(),
	}).Error
	if err != nil {
		return domainFleet.ApprovalResponse{}, err
	}

	bot.ApprovalStatus = domainBot.ApprovalApproved
	bot.ApprovalDate = approvalDate
	bot.ExpirationMonths = months

	logrus.Infof("[FLEET] Bot %s approved for %d months", bot.ID, months)
	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeApproval,
		Description: fmt.Sprintf("Bot %s approved for %d months", bot.Name, months),
		BotID:       bot.ID,
		TenantName:  bot.TenantName,
		Phone:       bot.Phone,
	})

	return domainFleet.ApprovalResponse{Bot: bot, Changed: true}, nil
}

// Reject marks a registration as refused and stops its worker.
func (s *fleetService) Reject(ctx context.Context, botID string) (domainBot.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return domainBot.Bot{}, err
	}

	err = s.db.WithContext(ctx).Model(&botModel{}).Where("id = ?", bot.ID).Updates(map[string]interface{}{
		"approval_status": string(domainBot.ApprovalRejected),
		"updated_at":      time.Now().UTC(),
	}).Error
	if err != nil {
		return domainBot.Bot{}, err
	}

	if err := s.supervisor.Stop(ctx, bot.ID); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Failed to stop rejected bot %s", bot.ID)
	}

	bot.ApprovalStatus = domainBot.ApprovalRejected
	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeRejection,
		Description: fmt.Sprintf("Bot %s registration rejected", bot.Name),
		BotID:       bot.ID,
		TenantName:  bot.TenantName,
		Phone:       bot.Phone,
	})
	return bot, nil
}

// Revoke moves an approved bot back to pending and clears its window.
// The worker keeps running until an operator stops it.
func (s *fleetService) Revoke(ctx context.Context, botID string) (domainBot.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return domainBot.Bot{}, err
	}

	err = s.db.WithContext(ctx).Model(&botModel{}).Where("id = ?", bot.ID).Updates(map[string]interface{}{
		"approval_status":   string(domainBot.ApprovalPending),
		"approval_date":     "",
		"expiration_months": 0,
		"updated_at":        time.Now().UTC(),
	}).Error
	if err != nil {
		return domainBot.Bot{}, err
	}

	bot.ApprovalStatus = domainBot.ApprovalPending
	bot.ApprovalDate = ""
	bot.ExpirationMonths = 0

	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeRevocation,
		Description: fmt.Sprintf("Bot %s approval revoked", bot.Name),
		BotID:       bot.ID,
		TenantName:  bot.TenantName,
		Phone:       bot.Phone,
	})
	return bot, nil
}

// UpdateCredentials replaces the stored blob with a fresh session for
// the same phone, wipes the old container and restarts the worker. The
// approval state is untouched.
func (s *fleetService) UpdateCredentials(ctx context.Context, botID, sessionString string) (domainBot.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return domainBot.Bot{}, err
	}

	validated, err := s.credentials.Validate(ctx, domainCredential.ValidateRequest{
		SessionString: sessionString,
		Phone:         bot.Phone,
	})
	if err != nil {
		return domainBot.Bot{}, err
	}
	if validated.Phone != bot.Phone {
		return domainBot.Bot{}, pkgError.PhoneMismatch(bot.Phone, validated.Phone)
	}

	if err := s.supervisor.Stop(ctx, bot.ID); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Failed to stop bot %s before credential update", bot.ID)
	}

	blob := strings.TrimSpace(sessionString)
	if err := s.bots.ConfirmCredentials(ctx, bot.ID, blob); err != nil {
		return domainBot.Bot{}, err
	}

	// The old container must go or the worker would keep connecting
	// with the previous session.
	if err := whatsapp.RemoveContainer(bot.TenantName, bot.ID); err != nil {
		return domainBot.Bot{}, err
	}

	s.supervisor.Restart(ctx, bot.ID)

	bot.Credentials = blob
	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeCredentialUpdate,
		Description: fmt.Sprintf("Bot %s credentials replaced", bot.Name),
		BotID:       bot.ID,
		TenantName:  bot.TenantName,
		Phone:       bot.Phone,
	})
	return bot, nil
}

// Migrate moves a bot to another tenant: stop, retarget the row, the
// registry entry and both counters in one transaction, move the
// container, then start on the new home if approved.
func (s *fleetService) Migrate(ctx context.Context, botID, targetTenant string) (domainBot.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return domainBot.Bot{}, err
	}

	target := CanonicalTenantName(targetTenant)
	if target == "" {
		return domainBot.Bot{}, pkgError.ValidationError("target_tenant: cannot be blank.")
	}
	if target == bot.TenantName {
		return domainBot.Bot{}, pkgError.ErrMigrationSameTenant
	}

	tenant, err := s.activeTenant(ctx, target)
	if err != nil {
		return domainBot.Bot{}, err
	}
	if !tenant.HasFreeSlot() {
		return domainBot.Bot{}, pkgError.TenantFull(tenant.Name, tenant.CurrentCount, tenant.Capacity)
	}

	if err := s.supervisor.Stop(ctx, bot.ID); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Failed to stop bot %s before migration", bot.ID)
	}

	source := bot.TenantName
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimTenantSlot(tx, target); err != nil {
			return err
		}
		if err := releaseTenantSlot(tx, source); err != nil {
			return err
		}
		if err := tx.Model(&botModel{}).Where("id = ?", bot.ID).Updates(map[string]interface{}{
			"tenant_name": target,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&registryModel{}).Where("phone = ?", bot.Phone).
			Update("tenant_name", target).Error
	})
	if err != nil {
		return domainBot.Bot{}, err
	}

	if err := whatsapp.MoveContainer(bot.ID, source, target); err != nil {
		logrus.WithError(err).Errorf("[FLEET] Container move failed for bot %s (%s -> %s)", bot.ID, source, target)
		return domainBot.Bot{}, err
	}

	bot.TenantName = target
	logrus.Infof("[FLEET] Bot %s migrated from %s to %s", bot.ID, source, target)

	if bot.ApprovalStatus == domainBot.ApprovalApproved {
		s.supervisor.Start(ctx, bot.ID)
	}

	s.activity.Record(ctx, domainActivity.Entry{
		Type:         domainActivity.TypeMigration,
		Description:  fmt.Sprintf("Bot %s migrated out to %s", bot.Name, target),
		BotID:        bot.ID,
		TenantName:   source,
		Phone:        bot.Phone,
		RemoteTenant: target,
		RemoteBotID:  bot.ID,
	})
	s.activity.Record(ctx, domainActivity.Entry{
		Type:         domainActivity.TypeMigration,
		Description:  fmt.Sprintf("Bot %s migrated in from %s", bot.Name, source),
		BotID:        bot.ID,
		TenantName:   target,
		Phone:        bot.Phone,
		RemoteTenant: source,
		RemoteBotID:  bot.ID,
	})

	return bot, nil
}

// StartBot dispatches an operator start. Policy failures surface here;
// the start attempt itself reports through logs and the ledger.
func (s *fleetService) StartBot(ctx context.Context, botID string) error {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return err
	}

	switch bot.ApprovalStatus {
	case domainBot.ApprovalApproved:
	case domainBot.ApprovalRejected:
		return pkgError.ErrRejected
	case domainBot.ApprovalDormant:
		return pkgError.ErrDormant
	default:
		return pkgError.ErrNotApproved
	}

	s.supervisor.ForceStart(ctx, bot.ID)
	return nil
}

func (s *fleetService) StopBot(ctx context.Context, botID string) error {
	if _, err := s.bots.GetByID(ctx, botID); err != nil {
		return err
	}
	return s.supervisor.Stop(ctx, botID)
}

func (s *fleetService) RestartBot(ctx context.Context, botID string) error {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return err
	}
	s.supervisor.Restart(ctx, bot.ID)
	return nil
}

// DestroyBot removes a bot entirely: worker, container, row, registry
// entry and the tenant slot it held.
func (s *fleetService) DestroyBot(ctx context.Context, botID string) error {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return err
	}

	if err := s.supervisor.Destroy(ctx, bot.ID, bot.TenantName); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&botModel{}, "id = ?", bot.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&registryModel{}, "phone = ?", bot.Phone).Error; err != nil {
			return err
		}
		return releaseTenantSlot(tx, bot.TenantName)
	})
	if err != nil {
		return err
	}

	logrus.Infof("[FLEET] Bot %s (%s) destroyed on %s", bot.ID, bot.Phone, bot.TenantName)
	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeDestruction,
		Description: fmt.Sprintf("Bot %s destroyed", bot.Name),
		BotID:       bot.ID,
		TenantName:  bot.TenantName,
		Phone:       bot.Phone,
	})
	return nil
}

// Batch applies one operation to many bots. Items fail individually;
// one bad id never aborts the rest.
func (s *fleetService) Batch(ctx context.Context, req domainFleet.BatchRequest) (domainFleet.BatchResult, error) {
	switch req.Operation {
	case domainFleet.BatchStart, domainFleet.BatchStop, domainFleet.BatchRestart, domainFleet.BatchApprove:
	default:
		return domainFleet.BatchResult{}, pkgError.ValidationError("operation: must be start, stop, restart or approve.")
	}
	if len(req.BotIDs) == 0 {
		return domainFleet.BatchResult{}, pkgError.ValidationError("bot_ids: cannot be empty.")
	}

	target := CanonicalTenantName(req.TargetTenant)
	result := domainFleet.BatchResult{Total: len(req.BotIDs)}

	for _, botID := range req.BotIDs {
		if err := s.batchItem(ctx, req.Operation, botID, target, req.Months); err != nil {
			result.Failed = append(result.Failed, domainFleet.BatchFailure{
				BotID:  botID,
				Reason: err.Error(),
			})
			continue
		}
		result.Completed++
	}

	logrus.Infof("[FLEET] Batch %s: %d/%d completed", req.Operation, result.Completed, result.Total)
	return result, nil
}

func (s *fleetService) batchItem(ctx context.Context, op domainFleet.BatchOperation, botID, targetTenant string, months int) error {
	if targetTenant != "" {
		bot, err := s.bots.GetByID(ctx, botID)
		if err != nil {
			return err
		}
		if bot.TenantName != targetTenant {
			return pkgError.PolicyError("bot: not hosted on server " + targetTenant + ".")
		}
	}

	switch op {
	case domainFleet.BatchStart:
		return s.StartBot(ctx, botID)
	case domainFleet.BatchStop:
		return s.StopBot(ctx, botID)
	case domainFleet.BatchRestart:
		return s.RestartBot(ctx, botID)
	case domainFleet.BatchApprove:
		_, err := s.Approve(ctx, botID, months)
		return err
	}
	return nil
}

// ResumeTenant starts every approved bot on a tenant, skipping the ones
// the ledger marked for an operator. Returns how many starts were
// dispatched.
func (s *fleetService) ResumeTenant(ctx context.Context, tenantName string) (int, error) {
	canonical := CanonicalTenantName(tenantName)
	if canonical == "" {
		canonical = s.tenantName
	}
	if _, err := s.tenants.GetByName(ctx, canonical); err != nil {
		return 0, err
	}

	dispatched := s.supervisor.ResumeTenant(ctx, canonical)

	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeResume,
		Description: fmt.Sprintf("Resume dispatched %d bot starts on %s", dispatched, canonical),
		TenantName:  canonical,
	})
	return dispatched, nil
}

// SweepExpirations moves approved bots whose window has elapsed to
// dormant and stops their workers. Rows with unparseable approval dates
// are logged and left alone.
func (s *fleetService) SweepExpirations(ctx context.Context) (int, error) {
	var models []botModel
	err := s.db.WithContext(ctx).
		Where("approval_status = ?", string(domainBot.ApprovalApproved)).
		Find(&models).Error
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	expired := 0

	for _, m := range models {
		if m.ExpirationMonths <= 0 || m.ApprovalDate == "" {
			continue
		}

		approvedAt, ok := parseApprovalDate(m.ApprovalDate)
		if !ok {
			logrus.Warnf("[SWEEP] Bot %s has unparseable approval date %q, skipping", m.ID, m.ApprovalDate)
			continue
		}
		if !now.After(approvedAt.AddDate(0, m.ExpirationMonths, 0)) {
			continue
		}

		err := s.db.WithContext(ctx).Model(&botModel{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"approval_status": string(domainBot.ApprovalDormant),
			"updated_at":      time.Now().UTC(),
		}).Error
		if err != nil {
			logrus.WithError(err).Errorf("[SWEEP] Failed to expire bot %s", m.ID)
			continue
		}

		if err := s.supervisor.Stop(ctx, m.ID); err != nil {
			logrus.WithError(err).Warnf("[SWEEP] Failed to stop expired bot %s", m.ID)
		}

		logrus.Infof("[SWEEP] Bot %s approval window elapsed, now dormant", m.ID)
		s.activity.Record(ctx, domainActivity.Entry{
			Type:        domainActivity.TypeExpiration,
			Description: fmt.Sprintf("Bot %s approval expired after %d months", m.Name, m.ExpirationMonths),
			BotID:       m.ID,
			TenantName:  m.TenantName,
			Phone:       m.Phone,
		})
		expired++
	}

	return expired, nil
}

// activeTenant loads a tenant and enforces the registration policy view
// of it: unknown or inactive tenants are both TenantUnknown.
func (s *fleetService) activeTenant(ctx context.Context, name string) (domainTenant.Tenant, error) {
	tenant, err := s.tenants.GetByName(ctx, name)
	if err != nil {
		if _, ok := err.(pkgError.NotFoundError); ok {
			return domainTenant.Tenant{}, pkgError.TenantUnknown(name)
		}
		return domainTenant.Tenant{}, err
	}
	if tenant.Status != domainTenant.StatusActive {
		return domainTenant.Tenant{}, pkgError.TenantUnknown(name)
	}
	return tenant, nil
}

// claimTenantSlot atomically takes one slot on an active tenant inside
// a transaction. RowsAffected zero means the tenant vanished, went
// inactive or filled up; the reload tells which.
func claimTenantSlot(tx *gorm.DB, name string) error {
	result := tx.Model(&tenantModel{}).
		Where("name = ? AND status = ? AND current_count < capacity", name, string(domainTenant.StatusActive)).
		Updates(map[string]interface{}{
			"current_count": gorm.Expr("current_count + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var t tenantModel
	if err := tx.First(&t, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgError.TenantUnknown(name)
		}
		return err
	}
	if t.Status != string(domainTenant.StatusActive) {
		return pkgError.TenantUnknown(name)
	}
	return pkgError.TenantFull(name, t.CurrentCount, t.Capacity)
}

// releaseTenantSlot gives one slot back, never dropping below zero.
func releaseTenantSlot(tx *gorm.DB, name string) error {
	return tx.Model(&tenantModel{}).
		Where("name = ? AND current_count > 0", name).
		Updates(map[string]interface{}{
			"current_count": gorm.Expr("current_count - 1"),
			"updated_at":    time.Now().UTC(),
		}).Error
}

func parseApprovalDate(value string) (time.Time, bool) {
	for _, layout := range approvalDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
