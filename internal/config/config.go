package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig PostgreSQL 配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// SchedulerConfig 外部前向排程服务配置（只读拉取）
type SchedulerConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Config eryxon-flow（容量与流控引擎）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Scheduler SchedulerConfig
	Flow      struct {
		// 计算结果缓存 TTL
		CapacityCacheTTL time.Duration
		WipCacheTTL      time.Duration
		// 容量矩阵单次查询的最大天数
		MatrixMaxDays int
		// 变更通知 Stream / 消费组
		ChangeStream  string
		ConsumerGroup string
		ConsumerName  string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, eryxon-flow falls
	// back to seeded memory repos so the dashboard still renders.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "eryxon")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 排程器快照拉取（默认禁用；排程产出也可由排程器直接写 day_allocations）
	cfg.Scheduler.Enabled = getEnv("SCHEDULER_SYNC_ENABLED", "false") == "true"
	cfg.Scheduler.BaseURL = getEnv("SCHEDULER_BASE_URL", "http://localhost:8090")
	cfg.Scheduler.APIKey = getEnv("SCHEDULER_API_KEY", "")
	cfg.Scheduler.Timeout = time.Duration(parseInt(getEnv("SCHEDULER_TIMEOUT_SEC", "30"), 30)) * time.Second

	cfg.Flow.CapacityCacheTTL = time.Duration(parseInt(getEnv("FLOW_CAPACITY_CACHE_TTL_SEC", "60"), 60)) * time.Second
	cfg.Flow.WipCacheTTL = time.Duration(parseInt(getEnv("FLOW_WIP_CACHE_TTL_SEC", "10"), 10)) * time.Second
	cfg.Flow.MatrixMaxDays = parseInt(getEnv("FLOW_MATRIX_MAX_DAYS", "60"), 60)
	cfg.Flow.ChangeStream = getEnv("FLOW_CHANGE_STREAM", "flow:changes")
	cfg.Flow.ConsumerGroup = getEnv("FLOW_CONSUMER_GROUP", "eryxon-flow")
	cfg.Flow.ConsumerName = getEnv("FLOW_CONSUMER_NAME", hostnameOr("eryxon-flow-1"))

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func hostnameOr(def string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return def
}
