package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	AI          AIConfig        `mapstructure:"ai"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Upload      UploadConfig    `mapstructure:"upload"`
	Baseline    BaselineConfig  `mapstructure:"baseline"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig 資料庫設定，DSN 為空時使用記憶體儲存
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	UseRPC       bool   `mapstructure:"use_rpc"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// AIConfig LLM 供應商設定
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	VisionModel string        `mapstructure:"vision_model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// UploadConfig 食譜圖片上傳設定
type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension uint  `mapstructure:"max_dimension"`
}

// BaselineConfig 常備品建議設定
type BaselineConfig struct {
	MaxSuggestions int `mapstructure:"max_suggestions"`
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"

	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "ai_provider:", cfg.AI.Provider, "ai_api_key:", maskAPIKey(cfg.AI.APIKey), "ai_model:", cfg.AI.Model)

	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("database.use_rpc", "DATABASE_USE_RPC")
	_ = v.BindEnv("ai.provider", "LLM_PROVIDER")
	_ = v.BindEnv("ai.api_key", "LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("ai.model", "LLM_MODEL")
	_ = v.BindEnv("ai.vision_model", "LLM_VISION_MODEL")
	_ = v.BindEnv("ai.base_url", "LLM_BASE_URL")
	_ = v.BindEnv("ai.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.driver", "CACHE_DRIVER")
	_ = v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	config.Cache.Driver = strings.ToLower(strings.TrimSpace(config.Cache.Driver))
	if config.AI.VisionModel == "" {
		config.AI.VisionModel = config.AI.Model
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "grocery-tracker")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "75s")
	v.SetDefault("server.allow_origins", []string{"*"})

	// 資料庫設定
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.use_rpc", true)
	v.SetDefault("database.max_open_conns", 10)

	// LLM 設定
	v.SetDefault("ai.provider", ProviderOpenRouter)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "openai/gpt-4.1-mini")
	v.SetDefault("ai.vision_model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_tokens", 1200)
	v.SetDefault("ai.timeout", "60s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", CacheDriverMemory)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 上傳設定
	v.SetDefault("upload.max_size_bytes", 8*1024*1024) // 8MB
	v.SetDefault("upload.max_dimension", 1600)

	// 常備品建議
	v.SetDefault("baseline.max_suggestions", 40)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.AI.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported ai provider %q", config.AI.Provider)
	}
	if config.AI.MaxTokens <= 0 {
		return fmt.Errorf("invalid ai max tokens")
	}

	if config.Cache.Enabled {
		switch config.Cache.Driver {
		case CacheDriverMemory, CacheDriverRedis:
		default:
			return fmt.Errorf("unsupported cache driver %q", config.Cache.Driver)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if config.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid upload max size")
	}
	if config.Baseline.MaxSuggestions <= 0 {
		return fmt.Errorf("invalid baseline max suggestions")
	}

	return nil
}
