package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainActivity "github.com/AzielCF/az-fleet/domains/activity"
	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	domainRegistry "github.com/AzielCF/az-fleet/domains/registry"
	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	"github.com/AzielCF/az-fleet/pkg/botqueue"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/pkg/ledger"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// --- Fakes ---

// fakeWorker stands in for a socket worker. It flips to online unless
// the factory has a failure budget left for its bot.
type fakeWorker struct {
	mu      sync.Mutex
	row     domainBot.Bot
	status  domainBot.Status
	sink    whatsapp.StatusSink
	factory *fakeFactory
}

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.factory.takeFailure(w.row.ID) {
		w.set(domainBot.StatusError, "connect failed")
		return pkgError.ErrCloseRetriable
	}
	w.set(domainBot.StatusLoading, "start")
	w.set(domainBot.StatusOnline, "connected")
	return nil
}

func (w *fakeWorker) Stop(ctx context.Context) error {
	w.set(domainBot.StatusOffline, "stopped")
	return nil
}

func (w *fakeWorker) Status() domainBot.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *fakeWorker) Bot() domainBot.Bot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.row
}

func (w *fakeWorker) UpdateBot(row domainBot.Bot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.row = row
}

func (w *fakeWorker) SendText(ctx context.Context, jid, text string) (string, error) {
	if w.Status() != domainBot.StatusOnline {
		return "", errors.New("worker is not online")
	}
	return "fake-message-id", nil
}

func (w *fakeWorker) set(to domainBot.Status, reason string) {
	w.mu.Lock()
	from := w.status
	if from == to {
		w.mu.Unlock()
		return
	}
	w.status = to
	row := w.row
	sink := w.sink
	w.mu.Unlock()

	if sink != nil {
		sink(row, from, to, reason)
	}
}

// fakeFactory builds fakeWorkers and tracks start attempts per bot.
type fakeFactory struct {
	mu       sync.Mutex
	failures map[string]int
	attempts map[string]int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		failures: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (f *fakeFactory) build(row domainBot.Bot, sink whatsapp.StatusSink) whatsapp.Worker {
	return &fakeWorker{row: row, status: domainBot.StatusOffline, sink: sink, factory: f}
}

// failNext makes the next n start attempts for a bot fail.
func (f *fakeFactory) failNext(botID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[botID] = n
}

func (f *fakeFactory) takeFailure(botID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[botID]++
	if f.failures[botID] > 0 {
		f.failures[botID]--
		return true
	}
	return false
}

func (f *fakeFactory) startAttempts(botID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[botID]
}

// --- Fixture ---

type fleetFixture struct {
	db       *gorm.DB
	factory  *fakeFactory
	ledger   *ledger.Ledger
	super    *whatsapp.Supervisor
	bots     domainBot.IBotUsecase
	tenants  domainTenant.ITenantUsecase
	registry domainRegistry.IRegistryUsecase
	activity domainActivity.IActivityUsecase
	fleet    domainFleet.IFleetUsecase
}

func newFleetFixture(t *testing.T) *fleetFixture {
	t.Helper()

	base := t.TempDir()
	origGlobal := coreconfig.Global
	t.Cleanup(func() { coreconfig.Global = origGlobal })

	coreconfig.Global = &coreconfig.Config{
		Paths: coreconfig.PathsConfig{
			Auth:    filepath.Join(base, "auth"),
			Storage: filepath.Join(base, "storages"),
			Ledger:  filepath.Join(base, "storages", "failure_ledger.json"),
		},
		Supervisor: coreconfig.SupervisorConfig{
			ConnectTimeout: 2 * time.Second,
			QuiesceDelay:   time.Millisecond,
			RestartDelay:   time.Millisecond,
			Shards:         4,
			QueueSize:      16,
		},
		Sweep: coreconfig.SweepConfig{GuestTTL: time.Minute},
	}
	if err := utils.EnsureBaseDirectories(); err != nil {
		t.Fatalf("EnsureBaseDirectories() error: %v", err)
	}

	dsn := "file:" + filepath.Join(base, "fleet.db") + "?_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	bots := NewBotService(db)
	tenants := NewTenantService(db, "SERVER1", 10)
	registry := NewRegistryService(db)
	activity := NewActivityService(db)
	credentials := NewCredentialService()

	led := ledger.New(coreconfig.Global.Paths.Ledger)
	queue := botqueue.NewOpQueue(4, 16)
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	factory := newFakeFactory()
	super := whatsapp.NewSupervisor(bots, activity, led, queue, factory.build, coreconfig.Global.Supervisor)

	if _, err := tenants.EnsureDefault(context.Background()); err != nil {
		t.Fatalf("EnsureDefault() error: %v", err)
	}

	fleet := NewFleetService(db, bots, tenants, registry, credentials, activity, super, "SERVER1")

	return &fleetFixture{
		db:       db,
		factory:  factory,
		ledger:   led,
		super:    super,
		bots:     bots,
		tenants:  tenants,
		registry: registry,
		activity: activity,
		fleet:    fleet,
	}
}

// sessionStringFor builds a wire-format credential blob whose identity
// resolves to the given phone.
func sessionStringFor(t *testing.T, phone string) string {
	t.Helper()

	doc := map[string]any{
		"creds": map[string]any{
			"noiseKey":          map[string]any{"private": "np", "public": "npub"},
			"signedIdentityKey": map[string]any{"private": "ip", "public": "ipub"},
			"signedPreKey":      map[string]any{"keyId": 1},
			"registrationId":    42,
			"me":                map[string]any{"id": phone + ":7@s.whatsapp.net"},
		},
		"keys": map[string]any{},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal credential doc: %v", err)
	}
	return "TREKKER~" + base64.StdEncoding.EncodeToString(raw)
}

func (f *fleetFixture) addTenant(t *testing.T, name string, capacity int) {
	t.Helper()
	if _, err := f.tenants.Create(context.Background(), domainTenant.CreateTenantRequest{
		Name:     name,
		Capacity: capacity,
	}); err != nil {
		t.Fatalf("Create tenant %s: %v", name, err)
	}
}

func (f *fleetFixture) register(t *testing.T, phone, tenant string) domainBot.Bot {
	t.Helper()
	resp, err := f.fleet.Register(context.Background(), domainFleet.RegisterRequest{
		BotName:       "Bot " + phone,
		SessionString: sessionStringFor(t, phone),
		TargetTenant:  tenant,
	})
	if err != nil {
		t.Fatalf("Register(%s, %s) error: %v", phone, tenant, err)
	}
	if resp.Kind != domainFleet.KindNewRegistration {
		t.Fatalf("Register(%s, %s) kind = %s, want new_registration", phone, tenant, resp.Kind)
	}
	return resp.Bot
}

func (f *fleetFixture) approve(t *testing.T, botID string, months int) domainBot.Bot {
	t.Helper()
	resp, err := f.fleet.Approve(context.Background(), botID, months)
	if err != nil {
		t.Fatalf("Approve(%s, %d) error: %v", botID, months, err)
	}
	return resp.Bot
}

func (f *fleetFixture) tenantCount(t *testing.T, name string) int {
	t.Helper()
	tenant, err := f.tenants.GetByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetByName(%s) error: %v", name, err)
	}
	return tenant.CurrentCount
}

func (f *fleetFixture) hasActivity(t *testing.T, botID string, typ domainActivity.Type) bool {
	t.Helper()
	entries, err := f.activity.List(context.Background(), domainActivity.Filter{BotID: botID, Type: typ})
	if err != nil {
		t.Fatalf("activity List error: %v", err)
	}
	return len(entries) > 0
}

// --- Scenario: new registration, clean path ---

func TestRegisterCleanPath(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	resp, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Clean Bot",
		SessionString: sessionStringFor(t, "254700000001"),
		TargetTenant:  "SERVER1",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	bot := resp.Bot
	if bot.Phone != "254700000001" {
		t.Fatalf("Register() phone = %q, want 254700000001", bot.Phone)
	}
	if bot.ApprovalStatus != domainBot.ApprovalPending {
		t.Fatalf("Register() approval = %s, want pending", bot.ApprovalStatus)
	}
	if bot.Status != domainBot.StatusOffline {
		t.Fatalf("Register() status = %s, want offline", bot.Status)
	}

	entry, found, err := f.registry.Lookup(ctx, "254700000001")
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v), want a registry entry", found, err)
	}
	if entry.TenantName != "SERVER1" {
		t.Fatalf("registry entry tenant = %q, want SERVER1", entry.TenantName)
	}

	if got := f.tenantCount(t, "SERVER1"); got != 1 {
		t.Fatalf("tenant count = %d, want 1", got)
	}
	if !f.hasActivity(t, bot.ID, domainActivity.TypeCreation) {
		t.Fatalf("expected a creation activity for bot %s", bot.ID)
	}
}

// --- Scenario: cross-tenant duplicate ---

func TestRegisterCrossTenantDuplicate(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	if err := f.registry.Insert(ctx, "254700000001", "SERVER2"); err != nil {
		t.Fatalf("registry Insert() error: %v", err)
	}

	_, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Dup Bot",
		SessionString: sessionStringFor(t, "254700000001"),
		TargetTenant:  "SERVER1",
	})
	if err == nil {
		t.Fatalf("Register() expected duplicate error, got nil")
	}
	if !strings.Contains(err.Error(), "SERVER2") {
		t.Fatalf("Register() error = %q, want the hosting tenant named", err.Error())
	}

	bots, err := f.bots.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(bots) != 0 {
		t.Fatalf("expected no bot rows after duplicate rejection, got %d", len(bots))
	}
	if got := f.tenantCount(t, "SERVER1"); got != 0 {
		t.Fatalf("tenant count = %d, want 0", got)
	}
}

// --- Scenario: phone mismatch ---

func TestRegisterPhoneMismatch(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	_, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Mismatch Bot",
		Phone:         "254700000002",
		SessionString: sessionStringFor(t, "254700000001"),
		TargetTenant:  "SERVER1",
	})
	if err == nil {
		t.Fatalf("Register() expected phone mismatch, got nil")
	}
	if !strings.Contains(err.Error(), "254700000002") || !strings.Contains(err.Error(), "254700000001") {
		t.Fatalf("Register() error = %q, want both phones named", err.Error())
	}

	bots, _ := f.bots.List(ctx, "")
	if len(bots) != 0 {
		t.Fatalf("expected no persistence after mismatch, got %d rows", len(bots))
	}
	if _, found, _ := f.registry.Lookup(ctx, "254700000001"); found {
		t.Fatalf("expected no registry entry after mismatch")
	}
}

// --- Capacity boundary ---

func TestRegisterTenantFull(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	f.addTenant(t, "SMALL", 1)
	f.register(t, "254700000001", "SMALL")

	_, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Overflow Bot",
		SessionString: sessionStringFor(t, "254700000002"),
		TargetTenant:  "SMALL",
	})
	if err == nil {
		t.Fatalf("Register() expected TenantFull, got nil")
	}
	if !strings.Contains(err.Error(), "full") {
		t.Fatalf("Register() error = %q, want capacity diagnostics", err.Error())
	}

	if got := f.tenantCount(t, "SMALL"); got != 1 {
		t.Fatalf("tenant count = %d, want 1 after rejected overflow", got)
	}
	if _, found, _ := f.registry.Lookup(ctx, "254700000002"); found {
		t.Fatalf("expected no registry entry for the rejected registration")
	}
}

// --- Discovery intent ---

func TestRegisterFindExisting(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	original := f.register(t, "254700000001", "SERVER1")

	// Plain re-registration of the same phone is a duplicate.
	_, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Again",
		SessionString: sessionStringFor(t, "254700000001"),
		TargetTenant:  "SERVER1",
	})
	if !errors.Is(err, pkgError.ErrDuplicateOnThisTenant) {
		t.Fatalf("Register() error = %v, want DuplicateOnThisTenant", err)
	}

	// With discovery intent the existing row comes back instead.
	resp, err := f.fleet.Register(ctx, domainFleet.RegisterRequest{
		BotName:       "Again",
		SessionString: sessionStringFor(t, "254700000001"),
		TargetTenant:  "SERVER1",
		FindExisting:  true,
	})
	if err != nil {
		t.Fatalf("Register(find_existing) error: %v", err)
	}
	if resp.Kind != domainFleet.KindExistingBotFound {
		t.Fatalf("Register(find_existing) kind = %s, want existing_bot_found", resp.Kind)
	}
	if resp.Bot.ID != original.ID {
		t.Fatalf("Register(find_existing) returned bot %s, want %s", resp.Bot.ID, original.ID)
	}
}

// --- Approval lifecycle ---

func TestApproveBoundsAndRoundTrip(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")

	for _, months := range []int{0, 13, -1} {
		if _, err := f.fleet.Approve(ctx, bot.ID, months); !errors.Is(err, pkgError.ErrBadDuration) {
			t.Fatalf("Approve(months=%d) error = %v, want BadDuration", months, err)
		}
	}
	reloaded, _ := f.bots.GetByID(ctx, bot.ID)
	if reloaded.ApprovalStatus != domainBot.ApprovalPending {
		t.Fatalf("approval mutated by out-of-range months: %s", reloaded.ApprovalStatus)
	}

	approved := f.approve(t, bot.ID, 6)
	if approved.ApprovalStatus != domainBot.ApprovalApproved {
		t.Fatalf("Approve() status = %s, want approved", approved.ApprovalStatus)
	}
	if _, err := time.Parse(time.RFC3339, approved.ApprovalDate); err != nil {
		t.Fatalf("Approve() date %q is not RFC 3339: %v", approved.ApprovalDate, err)
	}

	// Second approve is a no-op.
	again, err := f.fleet.Approve(ctx, bot.ID, 3)
	if err != nil {
		t.Fatalf("second Approve() error: %v", err)
	}
	if again.Changed {
		t.Fatalf("second Approve() reported a mutation")
	}
	if again.Bot.ExpirationMonths != 6 {
		t.Fatalf("second Approve() months = %d, want untouched 6", again.Bot.ExpirationMonths)
	}

	// Revoke clears the window.
	revoked, err := f.fleet.Revoke(ctx, bot.ID)
	if err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if revoked.ApprovalStatus != domainBot.ApprovalPending || revoked.ApprovalDate != "" {
		t.Fatalf("Revoke() left status=%s date=%q, want pending with cleared date",
			revoked.ApprovalStatus, revoked.ApprovalDate)
	}
}

func TestRejectStopsWorkerAndBlocksApprove(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	f.approve(t, bot.ID, 1)

	if err := f.fleet.StartBot(ctx, bot.ID); err != nil {
		t.Fatalf("StartBot() error: %v", err)
	}
	if status, ok := f.super.Status(bot.ID); !ok || status != domainBot.StatusOnline {
		t.Fatalf("worker status = (%s, %v), want online", status, ok)
	}

	if _, err := f.fleet.Reject(ctx, bot.ID); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if status, _ := f.super.Status(bot.ID); status != domainBot.StatusOffline {
		t.Fatalf("worker status after reject = %s, want offline", status)
	}

	if _, err := f.fleet.Approve(ctx, bot.ID, 1); !errors.Is(err, pkgError.ErrRejected) {
		t.Fatalf("Approve() after reject error = %v, want Rejected", err)
	}
}

// --- Scenario: approve then expire ---

func TestApproveThenExpire(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	f.approve(t, bot.ID, 1)

	if err := f.fleet.StartBot(ctx, bot.ID); err != nil {
		t.Fatalf("StartBot() error: %v", err)
	}

	// Rewind the approval date 32 days so a 1-month window has elapsed.
	past := time.Now().UTC().AddDate(0, 0, -32).Format(time.RFC3339)
	if err := f.db.Model(&botModel{}).Where("id = ?", bot.ID).Update("approval_date", past).Error; err != nil {
		t.Fatalf("failed to rewind approval date: %v", err)
	}

	expired, err := f.fleet.SweepExpirations(ctx)
	if err != nil {
		t.Fatalf("SweepExpirations() error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("SweepExpirations() = %d, want 1", expired)
	}

	reloaded, _ := f.bots.GetByID(ctx, bot.ID)
	if reloaded.ApprovalStatus != domainBot.ApprovalDormant {
		t.Fatalf("approval after sweep = %s, want dormant", reloaded.ApprovalStatus)
	}
	if status, _ := f.super.Status(bot.ID); status != domainBot.StatusOffline {
		t.Fatalf("worker status after sweep = %s, want offline", status)
	}
	if !f.hasActivity(t, bot.ID, domainActivity.TypeExpiration) {
		t.Fatalf("expected an expiration activity for bot %s", bot.ID)
	}

	// Dormant bots are excluded from resume but re-approvable.
	dispatched, err := f.fleet.ResumeTenant(ctx, "SERVER1")
	if err != nil {
		t.Fatalf("ResumeTenant() error: %v", err)
	}
	if dispatched != 0 {
		t.Fatalf("ResumeTenant() dispatched %d starts, want 0 for dormant fleet", dispatched)
	}
	if _, err := f.fleet.Approve(ctx, bot.ID, 2); err != nil {
		t.Fatalf("re-Approve() of dormant bot error: %v", err)
	}
}

// --- Scenario: migration capacity ---

func TestMigrateTenantFull(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	f.addTenant(t, "SERVER2", 1)
	f.register(t, "254700000009", "SERVER2")

	bot := f.register(t, "254700000001", "SERVER1")

	_, err := f.fleet.Migrate(ctx, bot.ID, "SERVER2")
	if err == nil {
		t.Fatalf("Migrate() expected TenantFull, got nil")
	}
	if !strings.Contains(err.Error(), "full") {
		t.Fatalf("Migrate() error = %q, want capacity diagnostics", err.Error())
	}

	reloaded, _ := f.bots.GetByID(ctx, bot.ID)
	if reloaded.TenantName != "SERVER1" {
		t.Fatalf("bot tenant after failed migration = %s, want SERVER1", reloaded.TenantName)
	}
	entry, _, _ := f.registry.Lookup(ctx, "254700000001")
	if entry.TenantName != "SERVER1" {
		t.Fatalf("registry entry after failed migration = %s, want SERVER1", entry.TenantName)
	}
}

// --- Migration round trip ---

func TestMigrateRoundTrip(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	f.addTenant(t, "SERVER2", 10)
	bot := f.register(t, "254700000001", "SERVER1")

	// Give the bot a container so the move is observable.
	if err := whatsapp.NewContainer("SERVER1", bot.ID).WriteCredentials("blob-v1"); err != nil {
		t.Fatalf("WriteCredentials() error: %v", err)
	}

	moved, err := f.fleet.Migrate(ctx, bot.ID, "SERVER2")
	if err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if moved.TenantName != "SERVER2" {
		t.Fatalf("Migrate() tenant = %s, want SERVER2", moved.TenantName)
	}

	entry, _, _ := f.registry.Lookup(ctx, "254700000001")
	if entry.TenantName != "SERVER2" {
		t.Fatalf("registry entry = %s, want SERVER2", entry.TenantName)
	}
	if got := f.tenantCount(t, "SERVER1"); got != 0 {
		t.Fatalf("SERVER1 count = %d, want 0", got)
	}
	if got := f.tenantCount(t, "SERVER2"); got != 1 {
		t.Fatalf("SERVER2 count = %d, want 1", got)
	}

	oldPath := utils.BotContainerPathNoCreate("SERVER1", bot.ID)
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("old container %s still exists after migration", oldPath)
	}
	if blob, _ := whatsapp.NewContainer("SERVER2", bot.ID).ReadCredentials(); blob != "blob-v1" {
		t.Fatalf("container credentials after move = %q, want blob-v1", blob)
	}

	// Same-tenant migration is rejected.
	if _, err := f.fleet.Migrate(ctx, bot.ID, "SERVER2"); !errors.Is(err, pkgError.ErrMigrationSameTenant) {
		t.Fatalf("Migrate() to same tenant error = %v, want MigrationSameTenant", err)
	}

	// And back: everything returns to SERVER1.
	back, err := f.fleet.Migrate(ctx, bot.ID, "SERVER1")
	if err != nil {
		t.Fatalf("Migrate() back error: %v", err)
	}
	if back.TenantName != "SERVER1" {
		t.Fatalf("Migrate() back tenant = %s, want SERVER1", back.TenantName)
	}
	entry, _, _ = f.registry.Lookup(ctx, "254700000001")
	if entry.TenantName != "SERVER1" {
		t.Fatalf("registry entry after round trip = %s, want SERVER1", entry.TenantName)
	}
	if blob, _ := whatsapp.NewContainer("SERVER1", bot.ID).ReadCredentials(); blob != "blob-v1" {
		t.Fatalf("container did not follow the bot home")
	}
	if got := f.tenantCount(t, "SERVER2"); got != 0 {
		t.Fatalf("SERVER2 count after round trip = %d, want 0", got)
	}

	if !f.hasActivity(t, bot.ID, domainActivity.TypeMigration) {
		t.Fatalf("expected migration activities for bot %s", bot.ID)
	}
}

// --- Scenario: skip after failures ---

func TestSkipAfterFailuresAndOperatorOverride(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	f.approve(t, bot.ID, 1)

	f.factory.failNext(bot.ID, 2)

	// Two automatic starts fail and cross the skip threshold.
	f.super.Start(ctx, bot.ID)
	f.super.Start(ctx, bot.ID)
	if !f.ledger.IsSkipped(bot.ID) {
		t.Fatalf("ledger did not mark bot %s skipped after two failures", bot.ID)
	}

	// The automatic path now refuses to touch it.
	attempts := f.factory.startAttempts(bot.ID)
	f.super.Start(ctx, bot.ID)
	if f.factory.startAttempts(bot.ID) != attempts {
		t.Fatalf("automatic start attempted a skipped bot")
	}

	// Resume ignores it too.
	dispatched, err := f.fleet.ResumeTenant(ctx, "SERVER1")
	if err != nil {
		t.Fatalf("ResumeTenant() error: %v", err)
	}
	if dispatched != 0 {
		t.Fatalf("ResumeTenant() dispatched %d, want 0 while skipped", dispatched)
	}

	// The operator path still attempts, and success clears the entry.
	if err := f.fleet.StartBot(ctx, bot.ID); err != nil {
		t.Fatalf("StartBot() error: %v", err)
	}
	if status, _ := f.super.Status(bot.ID); status != domainBot.StatusOnline {
		t.Fatalf("worker status = %s, want online after operator start", status)
	}
	if f.ledger.IsSkipped(bot.ID) {
		t.Fatalf("ledger entry survived a successful operator start")
	}
}

// --- Destroy ---

func TestDestroyBotRemovesEverything(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	if err := whatsapp.NewContainer("SERVER1", bot.ID).WriteCredentials("blob"); err != nil {
		t.Fatalf("WriteCredentials() error: %v", err)
	}

	if err := f.fleet.DestroyBot(ctx, bot.ID); err != nil {
		t.Fatalf("DestroyBot() error: %v", err)
	}

	if _, err := f.bots.GetByID(ctx, bot.ID); err == nil {
		t.Fatalf("bot row survived destroy")
	}
	if _, found, _ := f.registry.Lookup(ctx, "254700000001"); found {
		t.Fatalf("registry entry survived destroy")
	}
	if got := f.tenantCount(t, "SERVER1"); got != 0 {
		t.Fatalf("tenant count after destroy = %d, want 0", got)
	}
	path := utils.BotContainerPathNoCreate("SERVER1", bot.ID)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("container %s survived destroy", path)
	}
	if !f.hasActivity(t, bot.ID, domainActivity.TypeDestruction) {
		t.Fatalf("expected a destruction activity")
	}
}

// --- Credential update ---

func TestUpdateCredentialsPreservesApproval(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	f.approve(t, bot.ID, 3)

	// A blob belonging to another phone is refused.
	_, err := f.fleet.UpdateCredentials(ctx, bot.ID, sessionStringFor(t, "254700000002"))
	if err == nil {
		t.Fatalf("UpdateCredentials() expected mismatch error, got nil")
	}

	fresh := sessionStringFor(t, "254700000001")
	updated, err := f.fleet.UpdateCredentials(ctx, bot.ID, fresh)
	if err != nil {
		t.Fatalf("UpdateCredentials() error: %v", err)
	}
	if updated.Credentials != fresh {
		t.Fatalf("UpdateCredentials() did not replace the blob")
	}

	reloaded, _ := f.bots.GetByID(ctx, bot.ID)
	if reloaded.ApprovalStatus != domainBot.ApprovalApproved || reloaded.ExpirationMonths != 3 {
		t.Fatalf("approval not preserved: status=%s months=%d", reloaded.ApprovalStatus, reloaded.ExpirationMonths)
	}
	if !f.hasActivity(t, bot.ID, domainActivity.TypeCredentialUpdate) {
		t.Fatalf("expected a credential_update activity")
	}
}

// --- Batch ---

func TestBatchPerItemFailures(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	a := f.register(t, "254700000001", "SERVER1")
	b := f.register(t, "254700000002", "SERVER1")

	result, err := f.fleet.Batch(ctx, domainFleet.BatchRequest{
		Operation: domainFleet.BatchApprove,
		BotIDs:    []string{a.ID, b.ID, "no-such-bot"},
		Months:    2,
	})
	if err != nil {
		t.Fatalf("Batch() error: %v", err)
	}
	if result.Total != 3 || result.Completed != 2 || len(result.Failed) != 1 {
		t.Fatalf("Batch() = %+v, want total 3 / completed 2 / 1 failure", result)
	}
	if result.Failed[0].BotID != "no-such-bot" {
		t.Fatalf("Batch() failed item = %s, want no-such-bot", result.Failed[0].BotID)
	}

	// Tenant-scoped batches fail off-tenant items individually.
	f.addTenant(t, "SERVER2", 10)
	scoped, err := f.fleet.Batch(ctx, domainFleet.BatchRequest{
		Operation:    domainFleet.BatchStop,
		BotIDs:       []string{a.ID},
		TargetTenant: "SERVER2",
	})
	if err != nil {
		t.Fatalf("Batch(scoped) error: %v", err)
	}
	if scoped.Completed != 0 || len(scoped.Failed) != 1 {
		t.Fatalf("Batch(scoped) = %+v, want the off-tenant item to fail", scoped)
	}
}

// --- Start policy gate ---

func TestStartBotPolicyGate(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")

	if err := f.fleet.StartBot(ctx, bot.ID); !errors.Is(err, pkgError.ErrNotApproved) {
		t.Fatalf("StartBot(pending) error = %v, want NotApproved", err)
	}

	if _, err := f.fleet.Reject(ctx, bot.ID); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if err := f.fleet.StartBot(ctx, bot.ID); !errors.Is(err, pkgError.ErrRejected) {
		t.Fatalf("StartBot(rejected) error = %v, want Rejected", err)
	}
}

// --- Single worker per bot ---

func TestStartIsIdempotentWhileOnline(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	bot := f.register(t, "254700000001", "SERVER1")
	f.approve(t, bot.ID, 1)

	f.super.Start(ctx, bot.ID)
	if status, _ := f.super.Status(bot.ID); status != domainBot.StatusOnline {
		t.Fatalf("worker status = %s, want online", status)
	}

	// Redundant starts find the online worker and leave it alone.
	attempts := f.factory.startAttempts(bot.ID)
	f.super.Start(ctx, bot.ID)
	f.super.Start(ctx, bot.ID)
	if got := f.factory.startAttempts(bot.ID); got != attempts {
		t.Fatalf("online bot was restarted: attempts %d -> %d", attempts, got)
	}
	if status, _ := f.super.Status(bot.ID); status != domainBot.StatusOnline {
		t.Fatalf("worker status after redundant starts = %s, want online", status)
	}
}
