package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 模拟服务配置
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Twilio 凭证（缺失时短信降级为不可用，不报错）
	Twilio struct {
		BaseURL    string
		AccountSID string
		AuthToken  string
		FromNumber string
	}

	// Redis 实时数据缓存配置
	Cache struct {
		RealtimeKeyPrefix string // 实时数据缓存键前缀，如 "mediq:patient:"
		RealtimeSuffix    string // 实时数据缓存键后缀，如 ":realtime"
		RealtimeTTL       int    // 实时数据 TTL（秒），默认 30秒
	}

	// 模拟器配置
	Simulator struct {
		IntervalSec     int     // 生成周期间隔（秒），默认 4秒
		CooldownSec     int     // 同一报警键的冷却窗口（秒），默认 300秒
		MinPatients     int     // 每个周期最少生成患者数，默认 5
		MaxPatients     int     // 每个周期最多生成患者数，默认 10
		SeedLimit       int     // 启动时从数据库播种的已有患者数上限，默认 20
		OverloadPercent float64 // 病区超载报警阈值（占用率 %），默认 90
	}

	Log struct {
		Level  string
		Format string
	}
}

// GetDSN 获取数据库连接字符串
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（带默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "mediq")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Twilio.BaseURL = getEnv("TWILIO_BASE_URL", "https://api.twilio.com")
	cfg.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.FromNumber = getEnv("TWILIO_PHONE_NUMBER", "")

	cfg.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "mediq:patient:")
	cfg.Cache.RealtimeSuffix = ":realtime"
	cfg.Cache.RealtimeTTL = 30 // 30秒

	cfg.Simulator.IntervalSec = getEnvInt("SIM_INTERVAL", 4)
	cfg.Simulator.CooldownSec = getEnvInt("SIM_ALERT_COOLDOWN", 300) // 5分钟
	cfg.Simulator.MinPatients = 5
	cfg.Simulator.MaxPatients = 10
	cfg.Simulator.SeedLimit = 20
	cfg.Simulator.OverloadPercent = 90

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
