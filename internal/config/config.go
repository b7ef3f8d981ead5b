package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig   BasicConfig               `json:"basic_config"`
	LLM           LLMConfig                 `json:"llm"`
	Providers     map[string]ProviderConfig `json:"providers"`
	Transcription TranscriptionConfig       `json:"transcription"`
	Tools         ToolsConfig               `json:"tools"`
	FFmpeg        FFmpegConfig              `json:"ffmpeg"`
	Databases     map[string]DatabaseConfig `json:"databases"`
	Redis         RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address" env:"SERVER_ADDRESS"`
	Port              string `json:"port" env:"PORT" env-default:"3000"`
	UploadDir         string `json:"upload_dir" env:"UPLOAD_DIR" env-default:"./uploads"`
	ClientDir         string `json:"client_dir" env:"CLIENT_DIR" env-default:"./client"`
	MaxUploadMB       int    `json:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"50" validate:"gt=0"`
	Registry          string `json:"registry" env:"UPLOAD_REGISTRY" env-default:"sqlite3" validate:"oneof=sqlite3 mysql redis none"`
	TempFileTTL       int    `json:"temp_file_ttl" env:"TEMP_FILE_TTL" env-default:"1440"`
	TempCleanInterval int    `json:"temp_clean_interval" env:"TEMP_CLEAN_INTERVAL" env-default:"60"`
	Debug             bool   `json:"debug" env:"METUTOR_DEBUG"`
}

type LLMConfig struct {
	Provider    string  `json:"provider" env:"LLM_PROVIDER" env-default:"openai" validate:"oneof=openai claude gemini"`
	// Model and VisionModel default per provider when unset.
	Model       string  `json:"model" env:"GPT_MODEL"`
	VisionModel string  `json:"vision_model" env:"GPT_VISION_MODEL"`
	Temperature float64 `json:"temperature" env:"GPT_TEMPERATURE" env-default:"0.3" validate:"gte=0,lte=2"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type TranscriptionConfig struct {
	BaseURL string `json:"base_url" env:"WHISPER_BASE_URL"`
	Model   string `json:"model" env:"WHISPER_MODEL" env-default:"whisper-1"`
	APIKey  string `json:"api_key" env:"WHISPER_API_KEY"`
}

type ToolsConfig struct {
	WebSearch            bool   `json:"web_search" env:"TOOLS_WEB_SEARCH"`
	GoogleAPIKey         string `json:"google_api_key" env:"GOOGLE_API_KEY"`
	GoogleSearchEngineID string `json:"google_search_engine_id" env:"GOOGLE_SEARCH_ENGINE_ID"`
	SearchesPerMinute    int    `json:"searches_per_minute" env:"TOOLS_SEARCHES_PER_MINUTE" env-default:"3" validate:"gte=0"`
}

type FFmpegConfig struct {
	Path string `json:"path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host" env:"REDIS_HOST"`
	Port     int    `json:"port" env:"REDIS_PORT"`
	Username string `json:"username" env:"REDIS_USERNAME"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

const defaultSQLiteDSN = "./data/uploads.db"

type modelDefaults struct {
	chat   string
	vision string
}

// providerModels are used when neither llm nor providers.<name> names a model.
// An empty vision entry means the chat model also reads images.
var providerModels = map[string]modelDefaults{
	"openai": {chat: "gpt-4-turbo-preview", vision: "gpt-4o"},
	"claude": {chat: "claude-3-5-sonnet-latest"},
	"gemini": {chat: "gemini-2.0-flash"},
}

// Load reads configuration from the provided path (defaults to config.json).
// Environment variables override file values; a missing file means env only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	baseDir := filepath.Dir(absPath)
	if _, err := os.Stat(absPath); err == nil {
		if err := cleanenv.ReadConfig(absPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", absPath, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	} else {
		return nil, fmt.Errorf("stat config %s: %w", absPath, err)
	}

	cfg.applyFallbacks()
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	cfg.resolvePaths(baseDir)
	return &cfg, nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	if c.BasicConfig.ServerAddress != "" {
		return c.BasicConfig.ServerAddress
	}
	return ":" + c.BasicConfig.Port
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.BasicConfig.MaxUploadMB) << 20
}

// Provider returns the settings of the active completion provider.
func (c *Config) Provider() ProviderConfig {
	prov := c.Providers[c.LLM.Provider]
	if prov.Model == "" {
		prov.Model = c.LLM.Model
	}
	return prov
}

func (c *Config) applyFallbacks() {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	keys := map[string]string{
		"openai": os.Getenv("OPENAI_API_KEY"),
		"claude": os.Getenv("ANTHROPIC_API_KEY"),
		"gemini": os.Getenv("GEMINI_API_KEY"),
	}
	for name, key := range keys {
		if key == "" {
			continue
		}
		prov := c.Providers[name]
		if prov.APIKey == "" {
			prov.APIKey = key
			c.Providers[name] = prov
		}
	}
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = c.Providers["openai"].APIKey
	}
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = c.Providers["openai"].BaseURL
	}
	c.applyModelDefaults()
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if db := c.Databases["sqlite3"]; db.DSN == "" {
		db.DSN = defaultSQLiteDSN
		c.Databases["sqlite3"] = db
	}
}

func (c *Config) applyModelDefaults() {
	defaults := providerModels[c.LLM.Provider]
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.chat
	}
	if c.LLM.VisionModel != "" {
		return
	}
	c.LLM.VisionModel = defaults.vision
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = c.Provider().Model
	}
}

func (c *Config) resolvePaths(baseDir string) {
	c.BasicConfig.UploadDir = absUnder(baseDir, c.BasicConfig.UploadDir)
	c.BasicConfig.ClientDir = absUnder(baseDir, c.BasicConfig.ClientDir)
	if db := c.Databases["sqlite3"]; db.DSN != ":memory:" && !strings.HasPrefix(db.DSN, "file:") {
		db.DSN = absUnder(baseDir, db.DSN)
		c.Databases["sqlite3"] = db
	}
}

func absUnder(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
