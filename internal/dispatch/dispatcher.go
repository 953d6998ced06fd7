package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/thread"
)

const KindAIError = "ai_error"

// AIError is what a failed send returns. It wraps the adapter failure so
// callers can still reach the ProviderError or TransportError underneath.
type AIError struct {
	Message string
	Err     error
}

func (e *AIError) Error() string { return e.Message }
func (e *AIError) Unwrap() error { return e.Err }
func (e *AIError) Kind() string  { return KindAIError }

type Config struct {
	Model string
	// APIKey, when set, is used for every adapter. Otherwise the key is looked
	// up in APIKeys by adapter name.
	APIKey            string
	APIKeys           map[string]string
	SystemMessage     string
	PersistentMessage string

	Resolver Resolver
	Threads  thread.Store
	Logs     billing.Store
	Logger   *logger.Logger
	Tracer   trace.Tracer
}

type SendOptions struct {
	// Options are merged into the vendor request body.
	Options map[string]any
	// Cost overrides the computed cost of the logged call.
	Cost *float64
}

// Dispatcher holds one conversation: model, system prompts, history and the
// active thread. It is not safe for concurrent use.
type Dispatcher struct {
	model             string
	explicitKey       string
	apiKeys           map[string]string
	systemMessage     string
	persistentMessage string

	resolver Resolver
	provider provider.Provider
	apiKey   string

	chat       []provider.Message
	threadID   int64
	lastTokens int

	threads thread.Store
	logs    billing.Store
	logger  *logger.Logger
	tracer  trace.Tracer
}

func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		model:             cfg.Model,
		explicitKey:       cfg.APIKey,
		apiKeys:           cfg.APIKeys,
		systemMessage:     cfg.SystemMessage,
		persistentMessage: cfg.PersistentMessage,
		resolver:          cfg.Resolver,
		threads:           cfg.Threads,
		logs:              cfg.Logs,
		logger:            cfg.Logger,
		tracer:            cfg.Tracer,
		chat:              []provider.Message{},
	}
	if d.logger == nil {
		d.logger = logger.Nop()
	}
	if d.tracer == nil {
		d.tracer = noop.NewTracerProvider().Tracer("dispatch")
	}
	d.resolve()
	return d
}

func (d *Dispatcher) resolve() {
	d.provider = d.resolver.Resolve(d.model)
	d.apiKey = d.explicitKey
	if d.apiKey == "" {
		d.apiKey = d.apiKeys[d.provider.Name()]
	}
}

func (d *Dispatcher) Model() string   { return d.model }
func (d *Dispatcher) Engine() string  { return d.provider.Name() }
func (d *Dispatcher) ThreadID() int64 { return d.threadID }

func (d *Dispatcher) SystemMessage() string { return d.systemMessage }

// LastTotalTokens is the total token count of the last successful send.
func (d *Dispatcher) LastTotalTokens() int { return d.lastTokens }

// Chat returns a copy of the in-memory history.
func (d *Dispatcher) Chat() []provider.Message {
	out := make([]provider.Message, len(d.chat))
	copy(out, d.chat)
	return out
}

// SetChat replaces the in-memory history. The active thread is unchanged.
func (d *Dispatcher) SetChat(messages []provider.Message) {
	d.chat = append([]provider.Message{}, messages...)
}

// ClearChat forgets the history and the active thread. The stored thread is
// kept.
func (d *Dispatcher) ClearChat() {
	d.chat = []provider.Message{}
	d.threadID = 0
}

// Send sends text as a new user turn.
func (d *Dispatcher) Send(ctx context.Context, text string, opts SendOptions) (string, error) {
	return d.send(ctx, []provider.Message{{Role: provider.RoleUser, Content: text}}, text, true, opts)
}

// SendMessages appends messages after the history and sends them. Only the
// assistant reply is added to the history.
func (d *Dispatcher) SendMessages(ctx context.Context, messages []provider.Message, opts SendOptions) (string, error) {
	preview, _ := json.Marshal(messages)
	return d.send(ctx, messages, string(preview), false, opts)
}

func (d *Dispatcher) send(ctx context.Context, input []provider.Message, preview string, keepInput bool, opts SendOptions) (string, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", d.model),
		attribute.String("engine", d.provider.Name()),
	)

	req := &provider.Request{
		Model:    d.model,
		APIKey:   d.apiKey,
		Messages: d.buildMessages(input),
		Options:  opts.Options,
	}

	start := time.Now()
	resp, err := d.provider.Chat(ctx, req)
	elapsed := time.Since(start).Seconds()

	entry := &billing.UsageLog{
		ThreadID:     d.activeThread(),
		Model:        d.model,
		Engine:       d.provider.Name(),
		ResponseTime: elapsed,
		InputPreview: preview,
	}

	if err != nil {
		entry.Status = billing.StatusError
		entry.ErrorMessage = err.Error()
		d.saveLog(ctx, entry)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("status", billing.StatusError))
		return "", &AIError{Message: err.Error(), Err: err}
	}

	if resp.Engine != "" {
		entry.Engine = resp.Engine
	}
	entry.Status = billing.StatusSuccess
	entry.InputTokens = resp.InputTokens
	entry.OutputTokens = resp.OutputTokens
	entry.TotalTokens = resp.TotalTokens
	entry.OutputPreview = resp.Content
	entry.Cost = opts.Cost
	d.saveLog(ctx, entry)

	d.lastTokens = resp.TotalTokens

	span.SetAttributes(
		attribute.String("status", billing.StatusSuccess),
		attribute.Int("input_tokens", resp.InputTokens),
		attribute.Int("output_tokens", resp.OutputTokens),
		attribute.Int("total_tokens", resp.TotalTokens),
	)

	if keepInput {
		d.chat = append(d.chat, input...)
	}
	d.chat = append(d.chat, provider.Message{Role: provider.RoleAssistant, Content: resp.Content})

	if d.threadID != 0 {
		if err := d.threads.UpdateMessages(ctx, d.threadID, d.chat); err != nil {
			d.logger.Warn("failed to persist thread", "thread_id", d.threadID, "error", err)
		}
	}

	return resp.Content, nil
}

func (d *Dispatcher) buildMessages(input []provider.Message) []provider.Message {
	messages := make([]provider.Message, 0, len(d.chat)+len(input)+2)
	if d.systemMessage != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: d.systemMessage})
	}
	if d.persistentMessage != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: d.persistentMessage})
	}
	messages = append(messages, d.chat...)
	return append(messages, input...)
}

func (d *Dispatcher) activeThread() *int64 {
	if d.threadID == 0 {
		return nil
	}
	id := d.threadID
	return &id
}

// saveLog never fails the send; a lost audit row is only reported.
func (d *Dispatcher) saveLog(ctx context.Context, entry *billing.UsageLog) {
	if _, err := d.logs.Save(ctx, entry); err != nil {
		d.logger.Error("failed to write usage log",
			"model", entry.Model,
			"engine", entry.Engine,
			"status", entry.Status,
			"error", err,
		)
	}
}

// NewThread starts an empty thread with the current model and system message
// and makes it active.
func (d *Dispatcher) NewThread(ctx context.Context, title string) (int64, error) {
	d.chat = []provider.Message{}
	id, err := d.threads.Create(ctx, title, d.model, d.systemMessage)
	if err != nil {
		d.threadID = 0
		return 0, err
	}
	d.threadID = id
	return id, nil
}

// LoadThread makes a stored thread active, adopting its history and model.
// The thread's system message replaces the current one only when it is set.
func (d *Dispatcher) LoadThread(ctx context.Context, id int64) error {
	t, err := d.threads.Get(ctx, id)
	if err != nil {
		return err
	}
	d.chat = append([]provider.Message{}, t.Messages...)
	if t.SystemMessage != "" {
		d.systemMessage = t.SystemMessage
	}
	if t.Model != "" && t.Model != d.model {
		d.model = t.Model
		d.resolve()
	}
	d.threadID = t.ID
	return nil
}

// DeleteThread removes a stored thread. Usage logs that reference it are
// left alone.
func (d *Dispatcher) DeleteThread(ctx context.Context, id int64) (bool, error) {
	deleted, err := d.threads.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if id == d.threadID {
		d.ClearChat()
	}
	return deleted, nil
}

// Threads lists stored thread summaries, most recently updated first.
func (d *Dispatcher) Threads(ctx context.Context, limit, offset int) ([]thread.Summary, error) {
	return d.threads.List(ctx, limit, offset)
}
