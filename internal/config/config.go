// Package config loads the backend configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all backend configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Translator TranslatorConfig `yaml:"translator"`
	Content    ContentConfig    `yaml:"content"`
	Features   FeatureConfig    `yaml:"features"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        string        `yaml:"port"`
	BodyLimitMB int           `yaml:"body_limit_mb"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	CORSOrigins string        `yaml:"cors_origins"`
	// RateLimit is the number of auth/contact requests allowed per IP per minute.
	RateLimit int `yaml:"rate_limit"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // arango, memory
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AuthConfig configures sessions, OTP login and the bootstrap admin.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	SecureCookie   bool          `yaml:"secure_cookie"`
	OTPTTL         time.Duration `yaml:"otp_ttl"`
	OTPMaxAttempts int           `yaml:"otp_max_attempts"`
	AdminEmail     string        `yaml:"admin_email"`
	AdminPassword  string        `yaml:"admin_password"`
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	FromEmail   string `yaml:"from_email"`
	FromName    string `yaml:"from_name"`
	NotifyEmail string `yaml:"notify_email"` // recipient for inquiries and applications

	// Timeout bounds dialing and the whole SMTP conversation.
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig configures file uploads.
type StorageConfig struct {
	Driver              string `yaml:"driver"` // cloudinary, local
	CloudinaryCloudName string `yaml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `yaml:"cloudinary_api_key"`
	CloudinaryAPISecret string `yaml:"cloudinary_api_secret"`
	Folder              string `yaml:"folder"`
	UploadDir           string `yaml:"upload_dir"`
	PublicURL           string `yaml:"public_url"`
	MaxUploadMB         int    `yaml:"max_upload_mb"`
}

// CacheConfig configures the response and translation cache.
type CacheConfig struct {
	RedisURL       string        `yaml:"redis_url"`
	ContentTTL     time.Duration `yaml:"content_ttl"`
	TranslationTTL time.Duration `yaml:"translation_ttl"`

	// MaxEntries caps the in-memory cache. Redis manages its own memory.
	MaxEntries    int           `yaml:"max_entries"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// KafkaConfig configures content change events. Empty brokers disables events.
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	GroupID   string   `yaml:"group_id"`
	APIKey    string   `yaml:"api_key"`
	APISecret string   `yaml:"api_secret"`

	// ConsumerID names this instance's consumer group, which is
	// GroupID-ConsumerID. Keep it stable across restarts.
	ConsumerID string `yaml:"consumer_id"`
}

// GeocoderConfig configures the address geocoder.
type GeocoderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

// TranslatorConfig configures the machine translation backend.
type TranslatorConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ContentConfig lists the site languages.
type ContentConfig struct {
	DefaultLanguage string   `yaml:"default_language"`
	Languages       []string `yaml:"languages"`
}

// FeatureConfig holds feature toggles.
type FeatureConfig struct {
	Geocoding bool `yaml:"geocoding"`
	OTP       bool `yaml:"otp"`
	GraphQL   bool `yaml:"graphql"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3000",
			BodyLimitMB: 25,
			ReadTimeout: 60 * time.Second,
			CORSOrigins: "http://localhost:3000,http://localhost:5173",
			RateLimit:   20,
		},
		Database: DatabaseConfig{
			Driver:   "arango",
			URL:      "http://localhost:8529",
			Name:     "website",
			User:     "root",
			Password: "",
		},
		Auth: AuthConfig{
			TokenTTL:       24 * time.Hour,
			OTPTTL:         10 * time.Minute,
			OTPMaxAttempts: 5,
		},
		SMTP: SMTPConfig{
			Host:      "smtp.gmail.com",
			Port:      "587",
			FromEmail: "noreply@certiva.example",
			FromName:  "Certiva Website",
			Timeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Driver:      "local",
			Folder:      "website",
			UploadDir:   "./uploads",
			PublicURL:   "/uploads",
			MaxUploadMB: 10,
		},
		Cache: CacheConfig{
			ContentTTL:     5 * time.Minute,
			TranslationTTL: 24 * time.Hour,
			MaxEntries:     10000,
			SweepInterval:  time.Minute,
		},
		Kafka: KafkaConfig{
			Topic:   "content-events",
			GroupID: "website-backend",
		},
		Geocoder: GeocoderConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "certiva-website-backend/1.0",
			Delay:     time.Second,
			Timeout:   10 * time.Second,
		},
		Translator: TranslatorConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 15 * time.Second,
		},
		Content: ContentConfig{
			DefaultLanguage: "en",
			Languages:       []string{"en", "de", "fr", "ar"},
		},
		Features: FeatureConfig{
			Geocoding: true,
			OTP:       true,
			GraphQL:   true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration. A missing .env file is ignored; a missing
// YAML file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "arango", "memory":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "cloudinary", "local":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "cloudinary" && (c.Storage.CloudinaryCloudName == "" || c.Storage.CloudinaryAPIKey == "" || c.Storage.CloudinaryAPISecret == "") {
		return fmt.Errorf("config: cloudinary storage requires cloud name, api key and api secret")
	}
	if c.Content.DefaultLanguage == "" {
		return fmt.Errorf("config: default language is required")
	}
	if !c.SupportsLanguage(c.Content.DefaultLanguage) {
		c.Content.Languages = append([]string{c.Content.DefaultLanguage}, c.Content.Languages...)
	}
	return nil
}

// SupportsLanguage reports whether lang is one of the site languages.
func (c *Config) SupportsLanguage(lang string) bool {
	for _, l := range c.Content.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key)
	if !ex {
		return defVal
	}
	return val
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = GetEnvDefault("MS_PORT", c.Server.Port)
	c.Server.CORSOrigins = GetEnvDefault("CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.RateLimit = envInt("RATE_LIMIT", c.Server.RateLimit)
	c.Server.BodyLimitMB = envInt("BODY_LIMIT_MB", c.Server.BodyLimitMB)

	c.Database.Driver = GetEnvDefault("DB_DRIVER", c.Database.Driver)
	if host, ok := os.LookupEnv("ARANGO_HOST"); ok {
		c.Database.URL = "http://" + host + ":" + GetEnvDefault("ARANGO_PORT", "8529")
	}
	c.Database.URL = GetEnvDefault("ARANGO_URL", c.Database.URL)
	c.Database.Name = GetEnvDefault("ARANGO_DB", c.Database.Name)
	c.Database.User = GetEnvDefault("ARANGO_USER", c.Database.User)
	c.Database.Password = GetEnvDefault("ARANGO_PASS", c.Database.Password)

	c.Auth.JWTSecret = GetEnvDefault("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = envDuration("JWT_TTL", c.Auth.TokenTTL)
	c.Auth.SecureCookie = envBool("SECURE_COOKIE", c.Auth.SecureCookie)
	c.Auth.OTPTTL = envDuration("OTP_TTL", c.Auth.OTPTTL)
	c.Auth.OTPMaxAttempts = envInt("OTP_MAX_ATTEMPTS", c.Auth.OTPMaxAttempts)
	c.Auth.AdminEmail = GetEnvDefault("ADMIN_EMAIL", c.Auth.AdminEmail)
	c.Auth.AdminPassword = GetEnvDefault("ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.SMTP.Host = GetEnvDefault("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = GetEnvDefault("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = GetEnvDefault("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.Password = GetEnvDefault("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.FromEmail = GetEnvDefault("SMTP_FROM_EMAIL", c.SMTP.FromEmail)
	c.SMTP.FromName = GetEnvDefault("SMTP_FROM_NAME", c.SMTP.FromName)
	c.SMTP.NotifyEmail = GetEnvDefault("NOTIFY_EMAIL", c.SMTP.NotifyEmail)
	c.SMTP.Timeout = envDuration("SMTP_TIMEOUT", c.SMTP.Timeout)

	c.Storage.Driver = GetEnvDefault("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.CloudinaryCloudName = GetEnvDefault("CLOUDINARY_CLOUD_NAME", c.Storage.CloudinaryCloudName)
	c.Storage.CloudinaryAPIKey = GetEnvDefault("CLOUDINARY_API_KEY", c.Storage.CloudinaryAPIKey)
	c.Storage.CloudinaryAPISecret = GetEnvDefault("CLOUDINARY_API_SECRET", c.Storage.CloudinaryAPISecret)
	c.Storage.UploadDir = GetEnvDefault("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.MaxUploadMB = envInt("MAX_UPLOAD_MB", c.Storage.MaxUploadMB)

	c.Cache.RedisURL = GetEnvDefault("REDIS_URL", c.Cache.RedisURL)
	c.Cache.ContentTTL = envDuration("CONTENT_CACHE_TTL", c.Cache.ContentTTL)
	c.Cache.TranslationTTL = envDuration("TRANSLATION_CACHE_TTL", c.Cache.TranslationTTL)
	c.Cache.MaxEntries = envInt("CACHE_MAX_ENTRIES", c.Cache.MaxEntries)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = GetEnvDefault("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.GroupID = GetEnvDefault("KAFKA_GROUP_ID", c.Kafka.GroupID)
	c.Kafka.ConsumerID = GetEnvDefault("KAFKA_CONSUMER_ID", c.Kafka.ConsumerID)
	c.Kafka.APIKey = GetEnvDefault("KAFKA_API_KEY", c.Kafka.APIKey)
	c.Kafka.APISecret = GetEnvDefault("KAFKA_API_SECRET", c.Kafka.APISecret)

	c.Geocoder.BaseURL = GetEnvDefault("GEOCODER_URL", c.Geocoder.BaseURL)
	c.Geocoder.UserAgent = GetEnvDefault("GEOCODER_USER_AGENT", c.Geocoder.UserAgent)
	c.Geocoder.Delay = envDuration("GEOCODER_DELAY", c.Geocoder.Delay)

	c.Translator.BaseURL = GetEnvDefault("TRANSLATE_URL", c.Translator.BaseURL)
	c.Translator.APIKey = GetEnvDefault("TRANSLATE_API_KEY", c.Translator.APIKey)

	c.Content.DefaultLanguage = GetEnvDefault("DEFAULT_LANGUAGE", c.Content.DefaultLanguage)
	if langs := os.Getenv("LANGUAGES"); langs != "" {
		c.Content.Languages = splitList(langs)
	}

	c.Features.Geocoding = envBool("FEATURE_GEOCODING", c.Features.Geocoding)
	c.Features.OTP = envBool("FEATURE_OTP", c.Features.OTP)
	c.Features.GraphQL = envBool("FEATURE_GRAPHQL", c.Features.GraphQL)

	c.Logging.Level = GetEnvDefault("LOG_LEVEL", c.Logging.Level)
}

func envInt(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
