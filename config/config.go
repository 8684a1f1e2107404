package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	Store             StoreConfig
	MySQL             MySQLConfig
	Mongo             MongoConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	FedaPay           FedaPayConfig
	Payments          PaymentsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type StoreConfig struct {
	Driver string
	// MemorySeed lists references registered at startup by the memory driver.
	MemorySeed []string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI                string
	Database           string
	ResourceCollection string
	AuditCollection    string
}

// RedisConfig is optional; an empty Addr disables the status cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers means confirmations are only logged.
type KafkaConfig struct {
	Brokers               []string
	PaymentConfirmedTopic string
}

type LogConfig struct {
	Level string
}

// InternalEndpointsConfig is optional; without an auth address the
// create-payment and status routes are not access controlled.
type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type FedaPayConfig struct {
	APIKey                    string
	Environment               string
	BaseURL                   string
	CallbackURL               string
	SuccessURL                string
	CancelURL                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type PaymentsConfig struct {
	Currency       string
	StoreTimeout   time.Duration
	NotifyTimeout  time.Duration
	StatusCacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("FEDAPAY_API_KEY")
	if apiKey == "" {
		return nil, errors.New("FEDAPAY_API_KEY environment variable is required")
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo))
	mysqlDSN := os.Getenv("MYSQL_DSN")
	mongoURI := os.Getenv("MONGO_URI")
	switch driver {
	case StoreDriverMySQL:
		if mysqlDSN == "" {
			return nil, errors.New("MYSQL_DSN environment variable is required")
		}
	case StoreDriverMongo:
		if mongoURI == "" {
			return nil, errors.New("MONGO_URI environment variable is required")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "fedapay-payments-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Store: StoreConfig{
			Driver:     driver,
			MemorySeed: getListEnv("STORE_MEMORY_SEED"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Mongo: MongoConfig{
			URI:                mongoURI,
			Database:           getEnv("MONGO_DATABASE", "payments"),
			ResourceCollection: getEnv("MONGO_RESOURCE_COLLECTION", "articles"),
			AuditCollection:    getEnv("MONGO_AUDIT_COLLECTION", "payment_audit"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:               getListEnv("KAFKA_BROKERS"),
			PaymentConfirmedTopic: getEnv("KAFKA_PAYMENT_CONFIRMED_TOPIC", "payments.confirmed"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", ""),
		},
		FedaPay: FedaPayConfig{
			APIKey:                    apiKey,
			Environment:               getEnv("FEDAPAY_ENVIRONMENT", "sandbox"),
			BaseURL:                   getEnv("FEDAPAY_BASE_URL", ""),
			CallbackURL:               getEnv("FEDAPAY_CALLBACK_URL", ""),
			SuccessURL:                getEnv("FEDAPAY_SUCCESS_URL", ""),
			CancelURL:                 getEnv("FEDAPAY_CANCEL_URL", ""),
			WebhookSecret:             getEnv("FEDAPAY_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("FEDAPAY_SIGNATURE_TOLERANCE_SECONDS", 300)),
			HTTPTimeout:               getSecondsEnv("FEDAPAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			Currency:       strings.ToUpper(getEnv("PAYMENTS_CURRENCY", "XOF")),
			StoreTimeout:   getSecondsEnv("PAYMENTS_STORE_TIMEOUT_SECONDS", 5*time.Second),
			NotifyTimeout:  getSecondsEnv("PAYMENTS_NOTIFY_TIMEOUT_SECONDS", 10*time.Second),
			StatusCacheTTL: getMinutesEnv("PAYMENTS_STATUS_CACHE_TTL_MINUTES", 24*60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
