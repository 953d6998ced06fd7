// Package abilities exposes the AI core as MCP tools so agent clients can
// send messages and read threads, stats and logs.
package abilities

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vnmchuo/ai-core/internal/aiclient"
	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/dispatch"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/thread"
)

const (
	serverName    = "ai-core"
	serverVersion = "0.1.0"

	defaultLogLimit = 50
	maxLogLimit     = 500
)

type Abilities struct {
	clients *aiclient.Factory
	logger  *logger.Logger
}

func New(clients *aiclient.Factory, log *logger.Logger) *Abilities {
	if log == nil {
		log = logger.Nop()
	}
	return &Abilities{clients: clients, logger: log}
}

// Server returns an MCP server with every tool registered.
func (a *Abilities) Server() *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the AI and return its reply"),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message to send to the AI")),
		mcp.WithString("model", mcp.Description("AI model to use (optional)")),
		mcp.WithNumber("thread_id", mcp.Description("Thread ID to continue conversation (optional)")),
		mcp.WithString("system_message", mcp.Description("System instruction for the AI (optional)")),
	), a.SendMessage)

	s.AddTool(mcp.NewTool("create_thread",
		mcp.WithDescription("Create a new conversation thread"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the conversation thread")),
	), a.CreateThread)

	s.AddTool(mcp.NewTool("get_thread",
		mcp.WithDescription("Retrieve a conversation thread with its messages"),
		mcp.WithNumber("thread_id", mcp.Required(), mcp.Description("Thread ID to retrieve")),
	), a.GetThread)

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Usage statistics of AI calls"),
	), a.GetStats)

	s.AddTool(mcp.NewTool("get_logs",
		mcp.WithDescription("Retrieve detailed logs of AI API calls"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of logs to return"),
			mcp.DefaultNumber(defaultLogLimit),
			mcp.Min(1),
			mcp.Max(maxLogLimit),
		),
		mcp.WithString("model", mcp.Description("Filter by model (optional)")),
		mcp.WithString("status", mcp.Description("Filter by status (optional)"), mcp.Enum(billing.StatusSuccess, billing.StatusError)),
	), a.GetLogs)

	return s
}

// HTTPHandler serves the tools over streamable HTTP.
func (a *Abilities) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(a.Server())
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (a *Abilities) SendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("the message parameter is required"), nil
	}

	client, err := a.clients.New(ctx, req.GetString("model", ""), req.GetString("system_message", ""))
	if err != nil {
		return nil, err
	}
	if id := req.GetInt("thread_id", 0); id > 0 {
		if err := client.LoadThread(ctx, int64(id)); err != nil {
			if errors.Is(err, thread.ErrNotFound) {
				return mcp.NewToolResultError("thread not found"), nil
			}
			return nil, err
		}
	}

	reply, err := client.Send(ctx, message, dispatch.SendOptions{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"response":    reply,
		"model_used":  client.Model(),
		"tokens_used": client.LastTotalTokens(),
		"thread_id":   client.ThreadID(),
		"engine":      client.EngineLabel(),
	})
}

func (a *Abilities) CreateThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("the title parameter is required"), nil
	}

	client, err := a.clients.New(ctx, "", "")
	if err != nil {
		return nil, err
	}
	id, err := client.NewThread(ctx, title)
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]interface{}{
		"thread_id":  id,
		"title":      title,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Abilities) GetThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetInt("thread_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("the thread_id parameter is required"), nil
	}

	t, err := a.clients.Threads.Get(ctx, int64(id))
	if err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			return mcp.NewToolResultError("thread not found"), nil
		}
		return nil, err
	}

	return jsonResult(map[string]interface{}{
		"thread_id":     t.ID,
		"title":         t.Title,
		"messages":      t.Messages,
		"message_count": len(t.Messages),
		"created_at":    t.CreatedAt,
	})
}

type modelUsage struct {
	Model  string `json:"model"`
	Calls  int64  `json:"calls"`
	Tokens int64  `json:"tokens"`
}

func (a *Abilities) GetStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overview, err := a.clients.Logs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	byModel, err := a.clients.Logs.StatsByModel(ctx)
	if err != nil {
		return nil, err
	}

	successRate := 0.0
	if overview.TotalCalls > 0 {
		successRate = math.Round(float64(overview.TotalSuccess)/float64(overview.TotalCalls)*10000) / 100
	}
	models := make([]modelUsage, 0, len(byModel))
	for _, m := range byModel {
		models = append(models, modelUsage{Model: m.Model, Calls: m.Calls, Tokens: m.Tokens})
	}

	return jsonResult(map[string]interface{}{
		"total_calls":           overview.TotalCalls,
		"total_tokens":          overview.TotalTokens,
		"average_response_time": overview.AvgResponseTime,
		"success_rate":          successRate,
		"by_model":              models,
	})
}

type logView struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	Engine    string    `json:"engine"`
	Status    string    `json:"status"`
	Tokens    int       `json:"tokens"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *Abilities) GetLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultLogLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	filter := billing.Filter{
		Model:  req.GetString("model", ""),
		Status: req.GetString("status", ""),
	}

	page, err := a.clients.Logs.List(ctx, filter, limit, 0)
	if err != nil {
		return nil, err
	}

	logs := make([]logView, 0, len(page.Items))
	for _, l := range page.Items {
		logs = append(logs, logView{
			ID:        l.ID,
			Message:   l.InputPreview,
			Response:  l.OutputPreview,
			Model:     l.Model,
			Engine:    l.Engine,
			Status:    l.Status,
			Tokens:    l.TotalTokens,
			Duration:  l.ResponseTime,
			Timestamp: l.CreatedAt,
		})
	}

	return jsonResult(map[string]interface{}{
		"logs":  logs,
		"total": page.Total,
	})
}
