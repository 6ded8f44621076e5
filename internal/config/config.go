package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	MySQL      MySQLConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	JWT        JWTConfig
	Engagement EngagementConfig
	RateLimits RateLimitConfig
	Outbox     OutboxConfig
	Reconcile  ReconcileConfig
	Log        LogConfig
}

type ServerConfig struct {
	Addr    string
	GinMode string
}

type MySQLConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// EngagementConfig 评论与分页相关的阈值
type EngagementConfig struct {
	MaxCommentLength int
	MaxNestingDepth  int
	CommentPageSize  int
	ContentPageSize  int
	MaxPageSize      int
	StatsCacheTTL    time.Duration
}

// RateLimitConfig 每用户每分钟的写入上限，0 表示不限
type RateLimitConfig struct {
	EngagementPerMinute int
	CommentPerMinute    int
	FollowPerMinute     int
}

type OutboxConfig struct {
	BatchSize int
	Interval  time.Duration
	MaxRetry  int
}

type ReconcileConfig struct {
	BatchSize int
	Interval  time.Duration
}

type LogConfig struct {
	Mode string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    getEnv("SERVER_ADDR", ":8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", "user:password@tcp(127.0.0.1:3306)/uniclub?charset=utf8mb4&parseTime=True"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "uniclub.engagement"),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "secret-key"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "refresh-key"),
			AccessTTL:     getEnvAsDuration("JWT_ACCESS_TTL", 30*time.Minute),
			RefreshTTL:    getEnvAsDuration("JWT_REFRESH_TTL", 24*time.Hour),
		},
		Engagement: DefaultEngagement(),
		RateLimits: RateLimitConfig{
			EngagementPerMinute: getEnvAsInt("RATE_ENGAGEMENT_PER_MINUTE", 120),
			CommentPerMinute:    getEnvAsInt("RATE_COMMENT_PER_MINUTE", 20),
			FollowPerMinute:     getEnvAsInt("RATE_FOLLOW_PER_MINUTE", 60),
		},
		Outbox: OutboxConfig{
			BatchSize: getEnvAsInt("OUTBOX_BATCH_SIZE", 200),
			Interval:  getEnvAsDuration("OUTBOX_INTERVAL", time.Second),
			MaxRetry:  getEnvAsInt("OUTBOX_MAX_RETRY", 5),
		},
		Reconcile: ReconcileConfig{
			BatchSize: getEnvAsInt("RECONCILE_BATCH_SIZE", 500),
			Interval:  getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Mode: getEnv("LOG_MODE", "dev"),
		},
	}
}

// DefaultEngagement 环境变量覆盖默认阈值
func DefaultEngagement() EngagementConfig {
	return EngagementConfig{
		MaxCommentLength: getEnvAsInt("MAX_COMMENT_LENGTH", 2000),
		MaxNestingDepth:  getEnvAsInt("MAX_NESTING_DEPTH", 5),
		CommentPageSize:  getEnvAsInt("COMMENT_PAGE_SIZE", 20),
		ContentPageSize:  getEnvAsInt("CONTENT_PAGE_SIZE", 20),
		MaxPageSize:      getEnvAsInt("MAX_PAGE_SIZE", 50),
		StatsCacheTTL:    getEnvAsDuration("STATS_CACHE_TTL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
