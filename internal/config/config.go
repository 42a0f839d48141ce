package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-integrity-api/internal/analysis"
)

// Config holds runtime configuration values for the integrity API.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	SeedEnabled            bool
	SeedToken              string
	PlagiarismThreshold    int
	AIWordLengthThreshold  float64
	TokenLimit             int
	TopPartners            int
	AnalysisLockTTL        time.Duration
	ReportCacheTTL         time.Duration
	AllowedOrigins         []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AnalysisOptions maps the analysis knobs onto engine options.
func (c Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		PlagiarismThreshold:   c.PlagiarismThreshold,
		AIWordLengthThreshold: c.AIWordLengthThreshold,
		TokenLimit:            c.TokenLimit,
		TopPartners:           c.TopPartners,
	}
}

// CloudinaryConfigured reports whether upload credentials are present.
func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	defaults := analysis.DefaultOptions()

	v.SetDefault("app.name", "GEMA Integrity API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "integrity.analysis.completed")
	v.SetDefault("cloudinary.folder", "gema/submissions")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("analysis.plagiarism_threshold", defaults.PlagiarismThreshold)
	v.SetDefault("analysis.ai_word_length", defaults.AIWordLengthThreshold)
	v.SetDefault("analysis.token_limit", defaults.TokenLimit)
	v.SetDefault("analysis.top_partners", defaults.TopPartners)
	v.SetDefault("analysis.lock_ttl", "2m")
	v.SetDefault("report.cache_ttl", "5m")
	v.SetDefault("http.allowed_origins", "*")

	lockTTL, err := parseDuration(v, "analysis.lock_ttl")
	if err != nil {
		return Config{}, err
	}

	reportTTL, err := parseDuration(v, "report.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		PlagiarismThreshold:    v.GetInt("analysis.plagiarism_threshold"),
		AIWordLengthThreshold:  v.GetFloat64("analysis.ai_word_length"),
		TokenLimit:             v.GetInt("analysis.token_limit"),
		TopPartners:            v.GetInt("analysis.top_partners"),
		AnalysisLockTTL:        lockTTL,
		ReportCacheTTL:         reportTTL,
		AllowedOrigins:         splitList(v.GetString("http.allowed_origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.PlagiarismThreshold < 1 || cfg.PlagiarismThreshold > 100 {
		return Config{}, fmt.Errorf("plagiarism threshold must be within 1..100, got %d", cfg.PlagiarismThreshold)
	}

	if cfg.AIWordLengthThreshold <= 0 {
		return Config{}, fmt.Errorf("ai word length threshold must be positive")
	}

	if cfg.TokenLimit <= 0 {
		cfg.TokenLimit = defaults.TokenLimit
	}

	if cfg.TopPartners <= 0 {
		cfg.TopPartners = defaults.TopPartners
	}

	if cfg.SeedEnabled && strings.TrimSpace(cfg.SeedToken) == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
