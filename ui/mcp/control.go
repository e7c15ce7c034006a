package mcp

import (
	"context"
	"fmt"

	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type ControlHandler struct {
	fleetService domainFleet.IFleetUsecase
}

func InitMcpControl(fleetService domainFleet.IFleetUsecase) *ControlHandler {
	return &ControlHandler{fleetService: fleetService}
}

func (h *ControlHandler) AddControlTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolStartBot(), h.handleStartBot)
	mcpServer.AddTool(h.toolStopBot(), h.handleStopBot)
	mcpServer.AddTool(h.toolRestartBot(), h.handleRestartBot)
}

func (h *ControlHandler) toolStartBot() mcp.Tool {
	return mcp.NewTool(
		"fleet_start_bot",
		mcp.WithDescription("Start an approved bot's socket worker. Fails for pending, rejected or dormant bots."),
		mcp.WithTitleAnnotation("Start Bot"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("bot_id",
			mcp.Description("The bot identifier."),
			mcp.Required(),
		),
	)
}

func (h *ControlHandler) handleStartBot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID, err := request.RequireString("bot_id")
	if err != nil {
		return nil, err
	}

	if err := h.fleetService.StartBot(ctx, botID); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Start dispatched for bot %s", botID)), nil
}

func (h *ControlHandler) toolStopBot() mcp.Tool {
	return mcp.NewTool(
		"fleet_stop_bot",
		mcp.WithDescription("Stop a bot's socket worker. The bot row and its credentials are untouched."),
		mcp.WithTitleAnnotation("Stop Bot"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("bot_id",
			mcp.Description("The bot identifier."),
			mcp.Required(),
		),
	)
}

func (h *ControlHandler) handleStopBot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID, err := request.RequireString("bot_id")
	if err != nil {
		return nil, err
	}

	if err := h.fleetService.StopBot(ctx, botID); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Bot %s stopped", botID)), nil
}

func (h *ControlHandler) toolRestartBot() mcp.Tool {
	return mcp.NewTool(
		"fleet_restart_bot",
		mcp.WithDescription("Stop and start a bot's socket worker with a fresh session, bypassing the failure ledger."),
		mcp.WithTitleAnnotation("Restart Bot"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("bot_id",
			mcp.Description("The bot identifier."),
			mcp.Required(),
		),
	)
}

func (h *ControlHandler) handleRestartBot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID, err := request.RequireString("bot_id")
	if err != nil {
		return nil, err
	}

	if err := h.fleetService.RestartBot(ctx, botID); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Bot %s restarted", botID)), nil
}
