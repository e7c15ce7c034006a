package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	"github.com/AzielCF/az-fleet/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the fleet MCP server using SSE",
	Long:  `Start a fleet MCP (Model Context Protocol) server using Server-Sent Events (SSE) transport. This allows AI agents to inspect and steer the bot fleet through a standardized protocol.`,
	Run:   mcpServer,
}

var (
	flagMcpPort string
	flagMcpHost string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&flagMcpPort, "port", "", "Port for the SSE MCP server")
	mcpCmd.Flags().StringVar(&flagMcpHost, "host", "", "Host for the SSE MCP server")
}

func mcpServer(_ *cobra.Command, _ []string) {
	host := coreconfig.Global.MCP.Host
	port := coreconfig.Global.MCP.Port
	if flagMcpHost != "" {
		host = flagMcpHost
	}
	if flagMcpPort != "" {
		port = flagMcpPort
	}

	// No websocket hub runs in this mode, so the supervisor keeps its
	// nil broadcaster and transitions only reach the activity log.
	go resumeFleetAfterBoot()
	startSweepTickers()

	// Create MCP server with capabilities
	mcpServer := server.NewMCPServer(
		"Fleet Controller MCP Server",
		coreconfig.Global.App.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)

	// Add all fleet tools
	queryHandler := mcp.InitMcpQuery(tenantUsecase, botUsecase, fleetUsecase, healthUsecase, supervisor)
	queryHandler.AddQueryTools(mcpServer)

	controlHandler := mcp.InitMcpControl(fleetUsecase)
	controlHandler.AddControlTools(mcpServer)

	// Create SSE server
	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", host, port)),
		server.WithKeepAlive(true),
	)

	// Start the SSE server
	addr := fmt.Sprintf("%s:%s", host, port)
	logrus.Printf("Starting fleet MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s:%s/sse", host, port)
	logrus.Printf("Message endpoint: http://%s:%s/message", host, port)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		StopApp()
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
