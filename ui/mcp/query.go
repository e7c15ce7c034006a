package mcp

import (
	"context"
	"fmt"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	domainHealth "github.com/AzielCF/az-fleet/domains/health"
	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type QueryHandler struct {
	tenantService domainTenant.ITenantUsecase
	botService    domainBot.IBotUsecase
	fleetService  domainFleet.IFleetUsecase
	healthService domainHealth.IHealthUsecase
	supervisor    *whatsapp.Supervisor
}

func InitMcpQuery(tenantService domainTenant.ITenantUsecase, botService domainBot.IBotUsecase, fleetService domainFleet.IFleetUsecase, healthService domainHealth.IHealthUsecase, supervisor *whatsapp.Supervisor) *QueryHandler {
	return &QueryHandler{
		tenantService: tenantService,
		botService:    botService,
		fleetService:  fleetService,
		healthService: healthService,
		supervisor:    supervisor,
	}
}

func (h *QueryHandler) AddQueryTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolListTenants(), h.handleListTenants)
	mcpServer.AddTool(h.toolBotStatus(), h.handleBotStatus)
	mcpServer.AddTool(h.toolCheckRegistration(), h.handleCheckRegistration)
	mcpServer.AddTool(h.toolFleetHealth(), h.handleFleetHealth)
}

func (h *QueryHandler) toolListTenants() mcp.Tool {
	return mcp.NewTool(
		"fleet_list_tenants",
		mcp.WithDescription("List every tenant with its capacity, current bot count and status."),
		mcp.WithTitleAnnotation("List Tenants"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func (h *QueryHandler) handleListTenants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_ = request
	tenants, err := h.tenantService.List(ctx)
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("Found %d tenants", len(tenants))
	return mcp.NewToolResultStructured(tenants, fallback), nil
}

func (h *QueryHandler) toolBotStatus() mcp.Tool {
	return mcp.NewTool(
		"fleet_bot_status",
		mcp.WithDescription("Report a bot's stored row plus the live state of its socket worker."),
		mcp.WithTitleAnnotation("Bot Status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("bot_id",
			mcp.Description("The bot identifier."),
			mcp.Required(),
		),
	)
}

func (h *QueryHandler) handleBotStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID, err := request.RequireString("bot_id")
	if err != nil {
		return nil, err
	}

	bot, err := h.botService.GetByID(ctx, botID)
	if err != nil {
		return nil, err
	}

	live, hasWorker := h.supervisor.Status(botID)
	resp := map[string]any{
		"bot":         bot,
		"live_status": live,
		"has_worker":  hasWorker,
	}

	fallback := fmt.Sprintf("Bot %s is %s (worker: %v)", botID, live, hasWorker)
	return mcp.NewToolResultStructured(resp, fallback), nil
}

func (h *QueryHandler) toolCheckRegistration() mcp.Tool {
	return mcp.NewTool(
		"fleet_check_registration",
		mcp.WithDescription("Check whether a phone number is registered anywhere in the fleet and which tenant hosts it."),
		mcp.WithTitleAnnotation("Check Registration"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("phone",
			mcp.Description("The phone number in international format, digits only."),
			mcp.Required(),
		),
	)
}

func (h *QueryHandler) handleCheckRegistration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phone, err := request.RequireString("phone")
	if err != nil {
		return nil, err
	}
	phone = utils.SanitizePhone(phone)

	resp, err := h.fleetService.CheckRegistration(ctx, phone)
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("Phone %s registered: %v", phone, resp.Registered)
	if resp.Registered {
		fallback = fmt.Sprintf("Phone %s is hosted on %s", phone, resp.HostingTenant)
	}
	return mcp.NewToolResultStructured(resp, fallback), nil
}

func (h *QueryHandler) toolFleetHealth() mcp.Tool {
	return mcp.NewTool(
		"fleet_health",
		mcp.WithDescription("Snapshot the controller health: database, Valkey, worker census and failure ledger."),
		mcp.WithTitleAnnotation("Fleet Health"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func (h *QueryHandler) handleFleetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_ = request
	status := h.healthService.Check(ctx)

	fallback := fmt.Sprintf("Healthy: %v, workers online: %d/%d", status.Healthy, status.Workers.Online, status.Workers.Total)
	return mcp.NewToolResultStructured(status, fallback), nil
}
