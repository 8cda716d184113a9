package event

import (
	"context"
	"log/slog"
)

// ブローカー未設定時。debug ログだけ出す
type NoopPublisher struct {
	logger *slog.Logger
}

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, key string, _ any) error {
	p.logger.DebugContext(ctx, "event dropped (no broker)", "event", key)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
