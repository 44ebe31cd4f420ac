package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Booking  BookingConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RabbitMQConfig は通知配信用のRabbitMQ設定
// URLが空の場合、通知はログ出力のみにフォールバックする
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// BookingConfig は予約のビジネスポリシー設定
type BookingConfig struct {
	// MinDurationDays / MaxDurationDays はレンタル期間の許容範囲（日数）
	MinDurationDays int
	MaxDurationDays int

	// TxTimeout は予約トランザクションの上限時間
	// 競合時に無期限にブロックしないための境界
	TxTimeout time.Duration

	// PaymentExpiry は保留中予約が支払われないままキャンセルされるまでの期間
	// 0 の場合は自動キャンセルしない（支払いリトライを無期限に許可）
	PaymentExpiry time.Duration

	// RetentionAge はソフトデリート済み予約を物理削除するまでの保持期間
	// 0 の場合は物理削除しない
	RetentionAge time.Duration

	// CleanerInterval はバックグラウンドワーカーの実行間隔
	CleanerInterval time.Duration
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "sewa_in"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "sewa_in.notifications"),
		},
		Booking: BookingConfig{
			MinDurationDays: getIntEnv("BOOKING_MIN_DURATION_DAYS", 1),
			MaxDurationDays: getIntEnv("BOOKING_MAX_DURATION_DAYS", 30),
			TxTimeout:       getDurationEnv("BOOKING_TX_TIMEOUT", 5*time.Second),
			PaymentExpiry:   getDurationEnv("BOOKING_PAYMENT_EXPIRY", 24*time.Hour),
			RetentionAge:    getDurationEnv("BOOKING_RETENTION_AGE", 90*24*time.Hour),
			CleanerInterval: getDurationEnv("BOOKING_CLEANER_INTERVAL", 5*time.Minute),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Enabled はRabbitMQが設定されているかを返す
func (c *RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
