package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AzielCF/az-fleet/core/settings/application"
	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeFleetService implements IFleetUsecase with canned responses so the
// handler tests exercise routing, validation and the recovery middleware
// without a database.
type fakeFleetService struct {
	lastRegister      domainFleet.RegisterRequest
	lastApproveID     string
	lastApproveMonths int
	lastBatch         domainFleet.BatchRequest

	rejectErr error
}

func (f *fakeFleetService) Register(ctx context.Context, req domainFleet.RegisterRequest) (domainFleet.RegisterResponse, error) {
	f.lastRegister = req
	return domainFleet.RegisterResponse{
		Kind: domainFleet.KindNewRegistration,
		Bot:  domainBot.Bot{ID: "bot-1", Name: req.BotName, Phone: req.Phone, TenantName: "SERVER1"},
	}, nil
}

func (f *fakeFleetService) CheckRegistration(ctx context.Context, phone string) (domainFleet.CheckRegistrationResponse, error) {
	return domainFleet.CheckRegistrationResponse{
		Registered:    true,
		HostingTenant: "SERVER1",
		CurrentTenant: "SERVER1",
		HasBotHere:    true,
	}, nil
}

func (f *fakeFleetService) Approve(ctx context.Context, botID string, months int) (domainFleet.ApprovalResponse, error) {
	f.lastApproveID = botID
	f.lastApproveMonths = months
	return domainFleet.ApprovalResponse{
		Bot:     domainBot.Bot{ID: botID, ApprovalStatus: domainBot.ApprovalApproved, ExpirationMonths: months},
		Changed: true,
	}, nil
}

func (f *fakeFleetService) Reject(ctx context.Context, botID string) (domainBot.Bot, error) {
	if f.rejectErr != nil {
		return domainBot.Bot{}, f.rejectErr
	}
	return domainBot.Bot{ID: botID, ApprovalStatus: domainBot.ApprovalRejected}, nil
}

func (f *fakeFleetService) Revoke(ctx context.Context, botID string) (domainBot.Bot, error) {
	return domainBot.Bot{ID: botID, ApprovalStatus: domainBot.ApprovalPending}, nil
}

func (f *fakeFleetService) UpdateCredentials(ctx context.Context, botID, sessionString string) (domainBot.Bot, error) {
	return domainBot.Bot{ID: botID}, nil
}

func (f *fakeFleetService) Migrate(ctx context.Context, botID, targetTenant string) (domainBot.Bot, error) {
	return domainBot.Bot{ID: botID, TenantName: targetTenant}, nil
}

func (f *fakeFleetService) StartBot(ctx context.Context, botID string) error   { return nil }
func (f *fakeFleetService) StopBot(ctx context.Context, botID string) error    { return nil }
func (f *fakeFleetService) RestartBot(ctx context.Context, botID string) error { return nil }
func (f *fakeFleetService) DestroyBot(ctx context.Context, botID string) error { return nil }

func (f *fakeFleetService) Batch(ctx context.Context, req domainFleet.BatchRequest) (domainFleet.BatchResult, error) {
	f.lastBatch = req
	return domainFleet.BatchResult{Total: len(req.BotIDs), Completed: len(req.BotIDs)}, nil
}

func (f *fakeFleetService) ResumeTenant(ctx context.Context, tenantName string) (int, error) {
	return 3, nil
}

func (f *fakeFleetService) SweepExpirations(ctx context.Context) (int, error) {
	return 1, nil
}

type restEnvelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

func newFleetApp(svc domainFleet.IFleetUsecase, settings *application.SettingsService) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestFleet(app, svc, settings)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, restEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	var env restEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	return resp.StatusCode, env
}

func TestFleetRegister_E2E(t *testing.T) {
	svc := &fakeFleetService{}
	app := newFleetApp(svc, nil)

	code, env := doJSON(t, app, http.MethodPost, "/fleet/register", map[string]any{
		"bot_name":       "Support bot",
		"phone":          "254700000001",
		"session_string": "TREKKER~abc",
		"target_tenant":  "SERVER1",
	})

	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %+v", code, env)
	}
	if env.Code != "SUCCESS" || env.Message != "Bot registered" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	var results domainFleet.RegisterResponse
	if err := json.Unmarshal(env.Results, &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if results.Kind != domainFleet.KindNewRegistration {
		t.Fatalf("expected kind %q, got %q", domainFleet.KindNewRegistration, results.Kind)
	}
	if results.Bot.ID != "bot-1" || results.Bot.TenantName != "SERVER1" {
		t.Fatalf("unexpected bot in results: %+v", results.Bot)
	}

	if svc.lastRegister.BotName != "Support bot" || svc.lastRegister.Phone != "254700000001" {
		t.Fatalf("service received wrong request: %+v", svc.lastRegister)
	}
}

func TestFleetRegister_ValidationFailures(t *testing.T) {
	svc := &fakeFleetService{}
	app := newFleetApp(svc, nil)

	// Missing session string.
	code, env := doJSON(t, app, http.MethodPost, "/fleet/register", map[string]any{
		"bot_name": "Support bot",
		"phone":    "254700000001",
	})
	if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d %s", code, env.Code)
	}
	if !strings.Contains(env.Message, "session_string") {
		t.Fatalf("expected message to name session_string, got %q", env.Message)
	}

	// Malformed phone.
	code, env = doJSON(t, app, http.MethodPost, "/fleet/register", map[string]any{
		"bot_name":       "Support bot",
		"phone":          "12ab",
		"session_string": "TREKKER~abc",
	})
	if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR for bad phone, got %d %s", code, env.Code)
	}

	if svc.lastRegister.BotName != "" {
		t.Fatalf("service should never be reached on validation failure, got %+v", svc.lastRegister)
	}
}

func TestFleetRegister_ClosedByOperator(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "settings.db") + "?_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	ctx := context.Background()
	settings := application.NewSettingsService(db)
	if err := settings.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init settings schema: %v", err)
	}
	if err := settings.SetRegistrationOpen(ctx, false); err != nil {
		t.Fatalf("failed to close registration: %v", err)
	}

	svc := &fakeFleetService{}
	app := newFleetApp(svc, settings)

	code, env := doJSON(t, app, http.MethodPost, "/fleet/register", map[string]any{
		"bot_name":       "Support bot",
		"phone":          "254700000001",
		"session_string": "TREKKER~abc",
	})

	if code != http.StatusConflict || env.Code != "POLICY_ERROR" {
		t.Fatalf("expected 409 POLICY_ERROR, got %d %s (%s)", code, env.Code, env.Message)
	}
	if svc.lastRegister.BotName != "" {
		t.Fatalf("service should not be reached when registration is closed")
	}

	// Reopening lets the same request through.
	if err := settings.SetRegistrationOpen(ctx, true); err != nil {
		t.Fatalf("failed to reopen registration: %v", err)
	}
	code, _ = doJSON(t, app, http.MethodPost, "/fleet/register", map[string]any{
		"bot_name":       "Support bot",
		"phone":          "254700000001",
		"session_string": "TREKKER~abc",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200 after reopening, got %d", code)
	}
}

func TestFleetApprove_WindowBounds(t *testing.T) {
	svc := &fakeFleetService{}
	app := newFleetApp(svc, nil)

	for _, months := range []int{0, 13, -2} {
		code, env := doJSON(t, app, http.MethodPost, "/fleet/bots/bot-1/approve", map[string]any{
			"months": months,
		})
		if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
			t.Fatalf("months=%d: expected 400 VALIDATION_ERROR, got %d %s", months, code, env.Code)
		}
	}
	if svc.lastApproveID != "" {
		t.Fatalf("service should not be reached with out-of-bounds months")
	}

	code, env := doJSON(t, app, http.MethodPost, "/fleet/bots/bot-1/approve", map[string]any{
		"months": 6,
	})
	if code != http.StatusOK || env.Message != "Bot approved" {
		t.Fatalf("unexpected response: %d %+v", code, env)
	}
	if svc.lastApproveID != "bot-1" || svc.lastApproveMonths != 6 {
		t.Fatalf("service received wrong approve args: %s %d", svc.lastApproveID, svc.lastApproveMonths)
	}
}

func TestFleetBatch_Validation(t *testing.T) {
	svc := &fakeFleetService{}
	app := newFleetApp(svc, nil)

	// Unknown operation.
	code, env := doJSON(t, app, http.MethodPost, "/fleet/batch", map[string]any{
		"operation": "reboot",
		"bot_ids":   []string{"a"},
	})
	if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR for unknown op, got %d %s", code, env.Code)
	}

	// Approve without months.
	code, env = doJSON(t, app, http.MethodPost, "/fleet/batch", map[string]any{
		"operation": "approve",
		"bot_ids":   []string{"a", "b"},
	})
	if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR for approve without months, got %d %s", code, env.Code)
	}

	// Valid stop batch.
	code, env = doJSON(t, app, http.MethodPost, "/fleet/batch", map[string]any{
		"operation": "stop",
		"bot_ids":   []string{"a", "b"},
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200 for valid batch, got %d (%s)", code, env.Message)
	}

	var result domainFleet.BatchResult
	if err := json.Unmarshal(env.Results, &result); err != nil {
		t.Fatalf("failed to decode batch result: %v", err)
	}
	if result.Total != 2 || result.Completed != 2 {
		t.Fatalf("unexpected batch result: %+v", result)
	}
	if svc.lastBatch.Operation != domainFleet.BatchStop {
		t.Fatalf("service received wrong operation: %s", svc.lastBatch.Operation)
	}
}

func TestFleetServiceErrors_MapThroughRecovery(t *testing.T) {
	svc := &fakeFleetService{rejectErr: pkgError.BotNotFound("ghost")}
	app := newFleetApp(svc, nil)

	code, env := doJSON(t, app, http.MethodPost, "/fleet/bots/ghost/reject", nil)
	if code != http.StatusNotFound || env.Code != "NOT_FOUND_ERROR" {
		t.Fatalf("expected 404 NOT_FOUND_ERROR, got %d %s", code, env.Code)
	}
	if !strings.Contains(env.Message, "ghost") {
		t.Fatalf("expected message to name the bot, got %q", env.Message)
	}

	svc.rejectErr = pkgError.ErrRejected
	code, env = doJSON(t, app, http.MethodPost, "/fleet/bots/bot-1/reject", nil)
	if code != http.StatusConflict || env.Code != "POLICY_ERROR" {
		t.Fatalf("expected 409 POLICY_ERROR, got %d %s", code, env.Code)
	}
}

func TestFleetCheckRegistration_ValidatesPhone(t *testing.T) {
	svc := &fakeFleetService{}
	app := newFleetApp(svc, nil)

	code, env := doJSON(t, app, http.MethodGet, "/fleet/check/abc", nil)
	if code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d %s", code, env.Code)
	}

	code, env = doJSON(t, app, http.MethodGet, "/fleet/check/254700000001", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", code, env.Message)
	}

	var results domainFleet.CheckRegistrationResponse
	if err := json.Unmarshal(env.Results, &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if !results.Registered || results.HostingTenant != "SERVER1" {
		t.Fatalf("unexpected check result: %+v", results)
	}
}
