package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
	CORS       CORSConfig
	Analysis   AnalysisConfig
	GCP        GCPConfig
	Models     []ModelConfig
	Escalation EscalationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// StorageConfig holds blob store settings.
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// PresignDuration returns the presign expiry as a duration.
func (s *StorageConfig) PresignDuration() time.Duration {
	return time.Duration(s.PresignExpiry) * time.Second
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AnalysisConfig holds per-request pipeline limits.
type AnalysisConfig struct {
	MaxFiles        int   `mapstructure:"max_files"`
	MaxFileSizeMB   int64 `mapstructure:"max_file_size_mb"`
	MaxRequestMB    int64 `mapstructure:"max_request_mb"`
	FileConcurrency int   `mapstructure:"file_concurrency"`
	PreviewChars    int   `mapstructure:"preview_chars"`
	InlineTextLimit int   `mapstructure:"inline_text_limit"`
}

// MaxFileBytes returns the per-file size limit in bytes.
func (a *AnalysisConfig) MaxFileBytes() int64 {
	return a.MaxFileSizeMB * 1024 * 1024
}

// MaxRequestBytes returns the request body limit in bytes.
func (a *AnalysisConfig) MaxRequestBytes() int64 {
	return a.MaxRequestMB * 1024 * 1024
}

// GCPConfig holds settings shared by Google-hosted models.
type GCPConfig struct {
	Project      string `mapstructure:"project"`
	Location     string `mapstructure:"location"`
	AccessToken  string `mapstructure:"access_token"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
}

// ModelConfig maps one model identity to an invocation strategy.
type ModelConfig struct {
	ID              string  `mapstructure:"id"`
	Kind            string  `mapstructure:"kind"`
	ModelName       string  `mapstructure:"model_name"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Project         string  `mapstructure:"project"`
	Location        string  `mapstructure:"location"`
	EndpointID      string  `mapstructure:"endpoint_id"`
	AccessToken     string  `mapstructure:"access_token"`
	TimeoutSecs     int     `mapstructure:"timeout_secs"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	ReferenceMode   string  `mapstructure:"reference_mode"`
	InlineDocuments bool    `mapstructure:"inline_documents"`
}

// Reference modes for strategies that pass files by reference.
const (
	ReferenceModeLocation  = "location"
	ReferenceModePresigned = "presigned"
)

// EscalationConfig holds settings for notifying investigators of high-risk claims.
type EscalationConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
	MinScore    string   `mapstructure:"min_score"`
}

// Model returns the configuration for a model identity.
func (c *Config) Model(id string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].ID == id {
			return &c.Models[i], true
		}
	}
	return nil, false
}

// builtinModels mirrors the identities offered by the claims handler UI.
var builtinModels = map[string]ModelConfig{
	"gemini-2.5-pro": {
		Kind:          "gemini",
		ModelName:     "gemini-2.5-pro",
		MaxTokens:     8192,
		Temperature:   0.4,
		ReferenceMode: ReferenceModePresigned,
	},
	"gemini-2.5-flash": {
		Kind:          "gemini",
		ModelName:     "gemini-2.5-flash",
		MaxTokens:     8192,
		Temperature:   0.4,
		ReferenceMode: ReferenceModePresigned,
	},
	"gemma-3": {
		Kind:            "endpoint",
		MaxTokens:       4096,
		Temperature:     0.5,
		InlineDocuments: true,
	},
	"llama-3.3": {
		Kind:            "endpoint",
		MaxTokens:       4096,
		Temperature:     0.5,
		InlineDocuments: true,
	},
}

// ModelEnvKey converts a model identity into the fragment used in its
// environment variable names, e.g. "llama-3.3" -> "LLAMA_3_3".
func ModelEnvKey(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(id))
}

// Load reads configuration from environment variables with the FNOL_ prefix.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FNOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "fnol-uploads")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.key_prefix", "fnol_uploads")
	v.SetDefault("storage.presign_expiry", 900)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5000,http://127.0.0.1:5000")

	// Analysis defaults
	v.SetDefault("analysis.max_files", 10)
	v.SetDefault("analysis.max_file_size_mb", 16)
	v.SetDefault("analysis.max_request_mb", 16)
	v.SetDefault("analysis.file_concurrency", 4)
	v.SetDefault("analysis.preview_chars", 500)
	v.SetDefault("analysis.inline_text_limit", 20000)

	// GCP defaults
	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")
	v.SetDefault("gcp.access_token", "")
	v.SetDefault("gcp.gemini_api_key", "")

	// Model registry
	v.SetDefault("models", "gemini-2.5-pro,gemini-2.5-flash,gemma-3,llama-3.3")

	// Escalation defaults
	v.SetDefault("escalation.provider", "noop")
	v.SetDefault("escalation.region", "us-east-1")
	v.SetDefault("escalation.from_address", "fnol-alerts@example.com")
	v.SetDefault("escalation.from_name", "FNOL Fraud Review")
	v.SetDefault("escalation.recipients", "")
	v.SetDefault("escalation.min_score", "very_high")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "FNOL_SERVER_PORT",
		"server.read_timeout":         "FNOL_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "FNOL_SERVER_WRITE_TIMEOUT",
		"server.environment":          "FNOL_SERVER_ENVIRONMENT",
		"storage.provider":            "FNOL_STORAGE_PROVIDER",
		"storage.region":              "FNOL_STORAGE_REGION",
		"storage.bucket":              "FNOL_STORAGE_BUCKET",
		"storage.endpoint":            "FNOL_STORAGE_ENDPOINT",
		"storage.access_key":          "FNOL_STORAGE_ACCESS_KEY",
		"storage.secret_key":          "FNOL_STORAGE_SECRET_KEY",
		"storage.use_ssl":             "FNOL_STORAGE_USE_SSL",
		"storage.key_prefix":          "FNOL_STORAGE_KEY_PREFIX",
		"storage.presign_expiry":      "FNOL_STORAGE_PRESIGN_EXPIRY",
		"log.level":                   "FNOL_LOG_LEVEL",
		"log.format":                  "FNOL_LOG_FORMAT",
		"cors.allowed_origins":        "FNOL_CORS_ALLOWED_ORIGINS",
		"analysis.max_files":          "FNOL_ANALYSIS_MAX_FILES",
		"analysis.max_file_size_mb":   "FNOL_ANALYSIS_MAX_FILE_SIZE_MB",
		"analysis.max_request_mb":     "FNOL_ANALYSIS_MAX_REQUEST_MB",
		"analysis.file_concurrency":   "FNOL_ANALYSIS_FILE_CONCURRENCY",
		"analysis.preview_chars":      "FNOL_ANALYSIS_PREVIEW_CHARS",
		"analysis.inline_text_limit":  "FNOL_ANALYSIS_INLINE_TEXT_LIMIT",
		"gcp.project":                 "FNOL_GCP_PROJECT",
		"gcp.location":                "FNOL_GCP_LOCATION",
		"gcp.access_token":            "FNOL_GCP_ACCESS_TOKEN",
		"gcp.gemini_api_key":          "FNOL_GCP_GEMINI_API_KEY",
		"models":                      "FNOL_MODELS",
		"escalation.provider":         "FNOL_ESCALATION_PROVIDER",
		"escalation.region":           "FNOL_ESCALATION_REGION",
		"escalation.from_address":     "FNOL_ESCALATION_FROM_ADDRESS",
		"escalation.from_name":        "FNOL_ESCALATION_FROM_NAME",
		"escalation.recipients":       "FNOL_ESCALATION_RECIPIENTS",
		"escalation.min_score":        "FNOL_ESCALATION_MIN_SCORE",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Cloud Run and similar platforms set PORT. Use it if FNOL_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FNOL_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Storage = StorageConfig{
		Provider:      v.GetString("storage.provider"),
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		UseSSL:        v.GetBool("storage.use_ssl"),
		KeyPrefix:     v.GetString("storage.key_prefix"),
		PresignExpiry: v.GetInt64("storage.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Analysis = AnalysisConfig{
		MaxFiles:        v.GetInt("analysis.max_files"),
		MaxFileSizeMB:   v.GetInt64("analysis.max_file_size_mb"),
		MaxRequestMB:    v.GetInt64("analysis.max_request_mb"),
		FileConcurrency: v.GetInt("analysis.file_concurrency"),
		PreviewChars:    v.GetInt("analysis.preview_chars"),
		InlineTextLimit: v.GetInt("analysis.inline_text_limit"),
	}
	cfg.GCP = GCPConfig{
		Project:      v.GetString("gcp.project"),
		Location:     v.GetString("gcp.location"),
		AccessToken:  v.GetString("gcp.access_token"),
		GeminiAPIKey: v.GetString("gcp.gemini_api_key"),
	}
	cfg.Escalation = EscalationConfig{
		Provider:    v.GetString("escalation.provider"),
		Region:      v.GetString("escalation.region"),
		FromAddress: v.GetString("escalation.from_address"),
		FromName:    v.GetString("escalation.from_name"),
		Recipients:  splitList(v.GetString("escalation.recipients")),
		MinScore:    v.GetString("escalation.min_score"),
	}

	models, err := loadModels(v, splitList(v.GetString("models")), cfg.GCP)
	if err != nil {
		return nil, err
	}
	cfg.Models = models

	return cfg, nil
}

// loadModels reads FNOL_MODEL_<KEY>_* settings for every listed identity,
// layered over the built-in defaults and the shared GCP settings.
func loadModels(v *viper.Viper, ids []string, gcp GCPConfig) ([]ModelConfig, error) {
	seen := make(map[string]bool, len(ids))
	models := make([]ModelConfig, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("duplicate model identity in FNOL_MODELS: %s", id)
		}
		seen[id] = true

		envKey := ModelEnvKey(id)
		base := "model." + strings.ToLower(envKey)
		for _, field := range []string{
			"kind", "model_name", "api_key", "base_url", "project", "location",
			"endpoint_id", "access_token", "timeout_secs", "max_tokens",
			"temperature", "reference_mode", "inline_documents",
		} {
			_ = v.BindEnv(base+"."+field, "FNOL_MODEL_"+envKey+"_"+strings.ToUpper(field))
		}

		m := builtinModels[id]
		m.ID = id
		m.Kind = firstNonEmpty(v.GetString(base+".kind"), m.Kind)
		m.ModelName = firstNonEmpty(v.GetString(base+".model_name"), m.ModelName)
		m.APIKey = v.GetString(base + ".api_key")
		m.BaseURL = v.GetString(base + ".base_url")
		m.Project = firstNonEmpty(v.GetString(base+".project"), gcp.Project)
		m.Location = firstNonEmpty(v.GetString(base+".location"), gcp.Location)
		m.EndpointID = v.GetString(base + ".endpoint_id")
		m.AccessToken = v.GetString(base + ".access_token")
		m.ReferenceMode = firstNonEmpty(v.GetString(base+".reference_mode"), m.ReferenceMode, ReferenceModeLocation)

		if m.Kind == "gemini" {
			m.APIKey = firstNonEmpty(m.APIKey, gcp.GeminiAPIKey)
		}
		if m.Kind == "endpoint" {
			m.AccessToken = firstNonEmpty(m.AccessToken, gcp.AccessToken)
		}
		if v.IsSet(base + ".timeout_secs") {
			m.TimeoutSecs = v.GetInt(base + ".timeout_secs")
		}
		if m.TimeoutSecs == 0 {
			m.TimeoutSecs = 120
		}
		if v.IsSet(base + ".max_tokens") {
			m.MaxTokens = v.GetInt(base + ".max_tokens")
		}
		if v.IsSet(base + ".temperature") {
			m.Temperature = v.GetFloat64(base + ".temperature")
		}
		if v.IsSet(base + ".inline_documents") {
			m.InlineDocuments = v.GetBool(base + ".inline_documents")
		}

		models = append(models, m)
	}
	return models, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
