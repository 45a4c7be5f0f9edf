package cmd

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/logging"
)

// mcpServer wraps the MCP server around one long-lived driver session.
type mcpServer struct {
	drv *driver.Driver
	mcp *mcpserver.MCPServer
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
	LogLevel  string
	LogFile   string
}

// newMCPServer opens the driver and registers all bromium tools.
func newMCPServer(cfg MCPConfig) (*mcpServer, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	drv, err := driver.Open(driver.Config{Logger: logger})
	if err != nil {
		return nil, err
	}

	s := &mcpServer{drv: drv}
	s.mcp = mcpserver.NewMCPServer(
		"bromium",
		"1.0.0",
	)

	s.registerTools()
	return s, nil
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) close() {
	_ = s.drv.Close()
}

func (s *mcpServer) registerTools() {
	// inspect
	s.mcp.AddTool(
		mcp.NewTool("inspect",
			mcp.WithDescription("Inspect the UI element at screen coordinates. Returns its name, path address, runtime ID, bounds, and snapshot generation."),
			mcp.WithNumber("x", mcp.Description("X screen coordinate"), mcp.Required()),
			mcp.WithNumber("y", mcp.Description("Y screen coordinate"), mcp.Required()),
		),
		s.handleInspect,
	)

	// find
	s.mcp.AddTool(
		mcp.NewTool("find",
			mcp.WithDescription("Find a UI element by its path address, e.g. /Pane[@Name=\"Desktop 1\"]/Pane[@Name=\"Taskbar\"]/Button[@Name=\"Start\"]"),
			mcp.WithString("path", mcp.Description("Element path address"), mcp.Required()),
		),
		s.handleFind,
	)

	// click
	s.mcp.AddTool(
		mcp.NewTool("click",
			mcp.WithDescription("Click on a UI element by path address or at screen coordinates. Stale elements are recovered by path automatically."),
			mcp.WithString("path", mcp.Description("Element path address")),
			mcp.WithNumber("x", mcp.Description("X screen coordinate")),
			mcp.WithNumber("y", mcp.Description("Y screen coordinate")),
			mcp.WithString("button", mcp.Description("Mouse button: left, right (default: left)")),
			mcp.WithBoolean("double", mcp.Description("Double-click")),
			mcp.WithString("hold", mcp.Description("Modifier keys to hold during a single left click, e.g. {CTRL}")),
		),
		s.handleClick,
	)

	// type
	s.mcp.AddTool(
		mcp.NewTool("type",
			mcp.WithDescription("Type text or send key sequences to a UI element. 'keys' interprets control-key notation such as {ENTER} or ^c."),
			mcp.WithString("path", mcp.Description("Element path address")),
			mcp.WithNumber("x", mcp.Description("X screen coordinate")),
			mcp.WithNumber("y", mcp.Description("Y screen coordinate")),
			mcp.WithString("text", mcp.Description("Text to type literally")),
			mcp.WithString("keys", mcp.Description("Key sequence including control keys")),
			mcp.WithString("hold", mcp.Description("Modifier keys to hold while sending keys, e.g. {SHIFT}")),
		),
		s.handleType,
	)

	// launch
	s.mcp.AddTool(
		mcp.NewTool("launch",
			mcp.WithDescription("Launch an application or activate its window if it is already on screen"),
			mcp.WithString("app", mcp.Description("Path to the executable"), mcp.Required()),
			mcp.WithString("path", mcp.Description("Path address naming the target window"), mcp.Required()),
		),
		s.handleLaunch,
	)

	// refresh
	s.mcp.AddTool(
		mcp.NewTool("refresh",
			mcp.WithDescription("Force a fresh walk of the UI tree and return the new snapshot generation"),
		),
		s.handleRefresh,
	)

	// auto_refresh
	s.mcp.AddTool(
		mcp.NewTool("auto_refresh",
			mcp.WithDescription("Enable or disable transparent recovery of stale elements"),
			mcp.WithBoolean("enabled", mcp.Description("Recover stale elements by re-walking the tree"), mcp.Required()),
		),
		s.handleAutoRefresh,
	)

	// cursor
	s.mcp.AddTool(
		mcp.NewTool("cursor",
			mcp.WithDescription("Get the current cursor position in screen coordinates"),
		),
		s.handleCursor,
	)

	// screen
	s.mcp.AddTool(
		mcp.NewTool("screen",
			mcp.WithDescription("Get the primary display metrics (resolution and scale factor)"),
		),
		s.handleScreen,
	)

	// screenshot
	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the primary display to a PNG file and return its path"),
			mcp.WithString("output", mcp.Description("Output file (default: temp dir)")),
			mcp.WithString("annotate", mcp.Description("Path address of an element to box in the image")),
		),
		s.handleScreenshot,
	)
}
