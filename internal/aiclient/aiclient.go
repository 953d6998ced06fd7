// Package aiclient is the entry point callers use to talk to a model. It hides
// whether the host platform's AI client or the built-in vendor adapters serve
// the call; either way the call goes through one Dispatcher and is logged
// once.
package aiclient

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/dispatch"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/thread"
)

const (
	EngineHost   = "host"
	EngineNative = "native"
)

var ErrEmptyInput = errors.New("message or chat is required")

type Options struct {
	Model             string
	APIKey            string
	APIKeys           map[string]string
	SystemMessage     string
	PersistentMessage string

	// Host is the host-provided client. When set it serves every call.
	Host provider.Provider
	// Providers are the vendor adapters in priority order. The first one is
	// the default for unknown models.
	Providers []provider.Provider

	Threads thread.Store
	Logs    billing.Store
	Logger  *logger.Logger
	Tracer  trace.Tracer
}

// Input is either a single user message or a conversation.
type Input struct {
	Text     string
	Messages []provider.Message
}

type Client struct {
	*dispatch.Dispatcher
	usingHost bool
}

func New(opts Options) *Client {
	var resolver dispatch.Resolver
	usingHost := opts.Host != nil
	if usingHost {
		resolver = dispatch.NewFixedResolver(opts.Host)
	} else {
		resolver = dispatch.NewPrefixResolver(opts.Providers...)
	}

	d := dispatch.New(dispatch.Config{
		Model:             opts.Model,
		APIKey:            opts.APIKey,
		APIKeys:           opts.APIKeys,
		SystemMessage:     opts.SystemMessage,
		PersistentMessage: opts.PersistentMessage,
		Resolver:          resolver,
		Threads:           opts.Threads,
		Logs:              opts.Logs,
		Logger:            opts.Logger,
		Tracer:            opts.Tracer,
	})
	return &Client{Dispatcher: d, usingHost: usingHost}
}

func (c *Client) UsingHostClient() bool {
	return c.usingHost
}

// EngineLabel is "host" when the host client serves calls, "native" otherwise.
func (c *Client) EngineLabel() string {
	if c.usingHost {
		return EngineHost
	}
	return EngineNative
}

// Call sends input. For a conversation the last message is sent and
// everything before it replaces the history.
func (c *Client) Call(ctx context.Context, input Input, opts dispatch.SendOptions) (string, error) {
	if input.Text != "" {
		return c.Send(ctx, input.Text, opts)
	}
	if len(input.Messages) == 0 {
		return "", ErrEmptyInput
	}

	last := input.Messages[len(input.Messages)-1]
	c.SetChat(input.Messages[:len(input.Messages)-1])
	if last.Role == provider.RoleUser {
		return c.Send(ctx, last.Content, opts)
	}
	return c.SendMessages(ctx, []provider.Message{last}, opts)
}
