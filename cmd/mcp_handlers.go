package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/danuzzo/bromium/internal/driver"
	"github.com/danuzzo/bromium/internal/model"
	"github.com/danuzzo/bromium/internal/output"
	"github.com/danuzzo/bromium/internal/screenshot"
)

// toolJSON marshals v as the tool's text result.
func toolJSON(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// resolveToolTarget resolves an element from the tool arguments, by path
// address when given and by coordinates otherwise.
func (s *mcpServer) resolveToolTarget(req mcp.CallToolRequest) (*driver.Element, error) {
	if pathStr := req.GetString("path", ""); pathStr != "" {
		path, err := model.ParsePath(pathStr)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		return s.drv.ElementByPath(path)
	}

	args := req.GetArguments()
	if _, okX := args["x"]; okX {
		if _, okY := args["y"]; okY {
			return s.drv.ElementAt(req.GetInt("x", 0), req.GetInt("y", 0))
		}
	}
	return nil, fmt.Errorf("specify either path or both x and y")
}

func (s *mcpServer) handleInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, err := req.RequireInt("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireInt("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	el, err := s.drv.ElementAt(x, y)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.ElementResult{TS: nowMillis(), Element: el.Identity()})
}

func (s *mcpServer) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathStr, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := model.ParsePath(pathStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid path: %v", err)), nil
	}

	el, err := s.drv.ElementByPath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.ElementResult{TS: nowMillis(), Element: el.Identity()})
}

func (s *mcpServer) handleClick(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.resolveToolTarget(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	boundGen := el.Generation()
	button := req.GetString("button", "left")
	double := req.GetBool("double", false)
	hold := req.GetString("hold", "")
	if hold != "" && (double || button != "left") {
		return mcp.NewToolResultError("hold applies to single left clicks only"), nil
	}

	action := "click"
	switch {
	case double:
		action = "double-click"
		err = el.DoubleClick()
	case button == "right":
		action = "right-click"
		err = el.RightClick()
	case button != "left":
		return mcp.NewToolResultError(fmt.Sprintf("unsupported button: %s", button)), nil
	case hold != "":
		action = "hold-click"
		err = el.HoldClick(hold)
	default:
		err = el.Click()
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := el.Identity()
	return toolJSON(output.ActionResult{
		TS:         nowMillis(),
		Action:     action,
		Element:    id,
		Recovered:  id.Generation != boundGen,
		Generation: id.Generation,
	})
}

func (s *mcpServer) handleType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	keys := req.GetString("keys", "")
	hold := req.GetString("hold", "")
	if text == "" && keys == "" {
		return mcp.NewToolResultError("specify text or keys"), nil
	}
	if hold != "" && keys == "" {
		return mcp.NewToolResultError("hold requires keys"), nil
	}

	el, err := s.resolveToolTarget(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	boundGen := el.Generation()
	action := "send-text"
	switch {
	case keys != "" && hold != "":
		action = "hold-send-keys"
		err = el.HoldSendKeys(hold, keys)
	case keys != "":
		action = "send-keys"
		err = el.SendKeys(keys)
	default:
		err = el.SendText(text)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := el.Identity()
	return toolJSON(output.ActionResult{
		TS:         nowMillis(),
		Action:     action,
		Element:    id,
		Recovered:  id.Generation != boundGen,
		Generation: id.Generation,
	})
}

func (s *mcpServer) handleLaunch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appPath, err := req.RequireString("app")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pathStr, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := model.ParsePath(pathStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid path: %v", err)), nil
	}

	if err := s.drv.LaunchOrActivate(appPath, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.LaunchResult{
		TS:          nowMillis(),
		AppPath:     appPath,
		WindowNames: path.WindowNames(),
	})
}

func (s *mcpServer) handleRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.drv.Refresh(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	gen, err := s.drv.Generation()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]uint64{"generation": gen})
}

func (s *mcpServer) handleAutoRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.drv.SetAutoRefresh(enabled); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(map[string]bool{"auto_refresh": enabled})
}

func (s *mcpServer) handleCursor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, y, err := s.drv.CursorPos()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.CursorResult{TS: nowMillis(), X: x, Y: y})
}

func (s *mcpServer) handleScreen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.drv.ScreenMetrics()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.ScreenResult{TS: nowMillis(), Metrics: m})
}

func (s *mcpServer) handleScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := req.GetString("output", "")
	if file == "" {
		file = screenshot.DefaultPath()
	}

	img, err := s.drv.CaptureScreen()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	annotated := false
	if pathStr := req.GetString("annotate", ""); pathStr != "" {
		path, err := model.ParsePath(pathStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid path: %v", err)), nil
		}
		el, err := s.drv.ElementByPath(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		img = screenshot.Annotate(img, []model.Element{el.Identity()})
		annotated = true
	}

	if err := screenshot.SavePNG(img, file); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolJSON(output.ScreenshotResult{TS: nowMillis(), File: file, Annotated: annotated})
}
