package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error
	FEURL    string // フロントURL（CORS）

	DB DBConfig

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークン有効期限

	RedisURL         string        // 空ならキャッシュなし
	ShippingQuoteTTL time.Duration // 配送見積もりのキャッシュ時間

	GHN    GHNConfig
	Stripe StripeConfig
	Events EventsConfig
	SMTP   SMTPConfig
}

type DBConfig struct {
	Driver   string // postgres / mysql
	URL      string // DATABASE_URL（あれば最優先）
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// 配送業者(GHN)
type GHNConfig struct {
	BaseURL string
	Token   string
	ShopID  string
	Timeout time.Duration
}

func (c GHNConfig) Enabled() bool { return c.Token != "" && c.ShopID != "" }

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

func (c StripeConfig) Enabled() bool { return c.SecretKey != "" }

// ドメインイベントの送り先
const (
	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

type EventsConfig struct {
	Broker       string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

type SMTPConfig struct {
	Host string
	Port string
	From string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	dbPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	accessTTL, err := durationDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	quoteTTL, err := durationDefault("SHIPPING_QUOTE_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	ghnTimeout, err := durationDefault("GHN_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     os.Getenv("PORT"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		FEURL:    os.Getenv("FE_URL"),

		DB: DBConfig{
			Driver:   getenv("DB_DRIVER", "postgres"),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     dbPort,
			User:     getenv("POSTGRES_USER", "postgres"),
			Password: getenv("POSTGRES_PASSWORD", "postgres"),
			Name:     getenv("POSTGRES_DB", "ecshop"),
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		},

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: accessTTL,

		RedisURL:         os.Getenv("REDIS_URL"),
		ShippingQuoteTTL: quoteTTL,

		GHN: GHNConfig{
			BaseURL: getenv("GHN_BASE_URL", "https://online-gateway.ghn.vn/shiip/public-api"),
			Token:   os.Getenv("GHN_TOKEN"),
			ShopID:  os.Getenv("GHN_SHOP_ID"),
			Timeout: ghnTimeout,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(getenv("STRIPE_CURRENCY", "vnd")),
		},
		Events: EventsConfig{
			Broker:       strings.ToLower(getenv("EVENT_BROKER", "none")),
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:   getenv("KAFKA_TOPIC", "ecshop.orders"),
			AMQPURL:      os.Getenv("AMQP_URL"),
			AMQPExchange: getenv("AMQP_EXCHANGE", "ecshop.events"),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: getenv("SMTP_PORT", "587"),
			From: os.Getenv("SMTP_FROM"),
		},
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.DB.Driver {
	case "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or mysql: %q", cfg.DB.Driver)
	}
	switch cfg.Events.Broker {
	case BrokerNone:
	case BrokerKafka:
		if len(cfg.Events.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS is required when EVENT_BROKER=kafka")
		}
	case BrokerRabbitMQ:
		if cfg.Events.AMQPURL == "" {
			return Config{}, fmt.Errorf("AMQP_URL is required when EVENT_BROKER=rabbitmq")
		}
	default:
		return Config{}, fmt.Errorf("EVENT_BROKER must be none, kafka or rabbitmq: %q", cfg.Events.Broker)
	}
	if cfg.Stripe.Enabled() && cfg.Stripe.WebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
