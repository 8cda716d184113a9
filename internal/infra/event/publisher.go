package event

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ecshop/internal/config"
)

type Publisher interface {
	Publish(ctx context.Context, key string, data any) error
	io.Closer
}

// New は EVENT_BROKER に応じた Publisher を返す。
func New(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "", config.BrokerNone:
		return NewNoopPublisher(logger), nil
	case config.BrokerKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.BrokerRabbitMQ:
		return NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return nil, fmt.Errorf("unknown event broker: %q", cfg.Broker)
	}
}
