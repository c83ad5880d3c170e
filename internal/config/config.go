package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	AI          AIConfig         `json:"ai"`
	RAG         RAGConfig        `json:"rag"`
	Upload      UploadConfig     `json:"upload"`
	EmbedCache  EmbedCacheConfig `json:"embed_cache"`
	Jobs        JobsConfig       `json:"jobs"`
	Admin       AdminConfig      `json:"admin"`

	// AIRateLimitSeconds throttles the AI routes per (ip, user, path); zero
	// disables the limiter.
	AIRateLimitSeconds int `json:"ai_rate_limit_seconds"`
}

// AdminConfig seeds the admin account at startup; self-registration only
// ever creates students.
type AdminConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AIEndpoint selects one provider+model pair; Fallbacks are tried in order
// when the primary call fails.
type AIEndpoint struct {
	Provider  string       `json:"provider"`
	Model     string       `json:"model"`
	Data      interface{}  `json:"data"`
	Fallbacks []AIEndpoint `json:"fallbacks"`
}

type AIConfig struct {
	Generate       AIEndpoint `json:"generate"`
	Summarize      AIEndpoint `json:"summarize"`
	Embed          AIEndpoint `json:"embed"`
	TimeoutSeconds int        `json:"timeout_seconds"`
}

type RAGConfig struct {
	ChunkSize       int     `json:"chunk_size"`
	ChunkOverlap    int     `json:"chunk_overlap"`
	SearchThreshold float32 `json:"search_threshold"`
	AskThreshold    float32 `json:"ask_threshold"`
	AskLimit        int     `json:"ask_limit"`
}

type UploadConfig struct {
	MaxFileSizeMB int `json:"max_file_size_mb"`
}

type EmbedCacheConfig struct {
	LRUSize       int `json:"lru_size"`
	LRUTTLMinutes int `json:"lru_ttl_minutes"`
	MaxAgeDays    int `json:"max_age_days"`
}

type JobsConfig struct {
	IndexPendingSpec string `json:"index_pending_spec"`
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Admin.Email != "" && len(cfg.Admin.Password) < 8 {
		return nil, fmt.Errorf("admin.password must be at least 8 characters")
	}
	if cfg.AI.Embed.Provider == "" {
		return nil, fmt.Errorf("ai.embed.provider is required")
	}
	if cfg.AI.Generate.Provider == "" {
		return nil, fmt.Errorf("ai.generate.provider is required")
	}
	if cfg.AI.Summarize.Provider == "" {
		cfg.AI.Summarize = cfg.AI.Generate
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.SearchThreshold == 0 {
		cfg.RAG.SearchThreshold = 0.5
	}
	if cfg.RAG.AskThreshold == 0 {
		cfg.RAG.AskThreshold = 0.4
	}
	if cfg.RAG.AskLimit == 0 {
		cfg.RAG.AskLimit = 5
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 50
	}
	if cfg.EmbedCache.LRUSize == 0 {
		cfg.EmbedCache.LRUSize = 4096
	}
	if cfg.EmbedCache.LRUTTLMinutes == 0 {
		cfg.EmbedCache.LRUTTLMinutes = 120
	}
	if cfg.EmbedCache.MaxAgeDays == 0 {
		cfg.EmbedCache.MaxAgeDays = 30
	}
	if cfg.Jobs.IndexPendingSpec == "" {
		cfg.Jobs.IndexPendingSpec = "*/10 * * * *"
	}
	if cfg.Jobs.CacheCleanupSpec == "" {
		cfg.Jobs.CacheCleanupSpec = "30 3 * * *"
	}
	return &cfg, nil
}
