package aiclient

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/ai-core/internal/billing"
	"github.com/vnmchuo/ai-core/internal/logger"
	"github.com/vnmchuo/ai-core/internal/provider"
	"github.com/vnmchuo/ai-core/internal/settings"
	"github.com/vnmchuo/ai-core/internal/thread"
)

// Factory builds a Client per request from the current settings, so saved
// keys and the default model apply without a restart.
type Factory struct {
	Settings *settings.Service
	Vendors  []provider.Provider
	Host     provider.Provider
	Threads  thread.Store
	Logs     billing.Store
	Logger   *logger.Logger
	Tracer   trace.Tracer
}

// New returns a client for model, or the configured default model when model
// is empty.
func (f *Factory) New(ctx context.Context, model, systemMessage string) (*Client, error) {
	values, err := f.Settings.Values(ctx)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = values.DefaultModel
	}
	keys, err := f.Settings.APIKeys(ctx)
	if err != nil {
		return nil, err
	}

	return New(Options{
		Model:         model,
		APIKeys:       keys,
		SystemMessage: systemMessage,
		Host:          f.Host,
		Providers:     f.Vendors,
		Threads:       f.Threads,
		Logs:          f.Logs,
		Logger:        f.Logger,
		Tracer:        f.Tracer,
	}), nil
}
