// Package config centralizes how doctranslate reads its settings and exposes
// them as strongly typed Go values. Settings come from an optional YAML file
// named by DOCTRANSLATE_CONFIG; environment variables override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

// Backend names accepted by the *Backend settings.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendS3       = "s3"
)

// Config represents runtime configuration shared by the server, the worker
// and the CLI.
type Config struct {
	Address         string `yaml:"address"`
	MaxFileSize     int64  `yaml:"max_file_bytes"`
	MaxEntryBytes   int64  `yaml:"max_entry_bytes"`
	DefaultLanguage string `yaml:"default_language"`
	UploadDir       string `yaml:"upload_dir"`
	TranslatedDir   string `yaml:"translated_dir"`
	LogLevel        string `yaml:"log_level"`

	QueueBackend  string        `yaml:"queue_backend"`
	QueueName     string        `yaml:"queue_name"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Workers       int           `yaml:"workers"`
	TaskTimeout   time.Duration `yaml:"task_timeout"`

	StatusBackend string        `yaml:"status_backend"`
	StatusTTL     time.Duration `yaml:"status_ttl"`
	DatabaseURL   string        `yaml:"database_url"`

	ArtifactBackend string        `yaml:"artifact_backend"`
	S3Endpoint      string        `yaml:"s3_endpoint"`
	S3AccessKey     string        `yaml:"s3_access_key"`
	S3SecretKey     string        `yaml:"s3_secret_key"`
	S3UseSSL        bool          `yaml:"s3_use_ssl"`
	S3Region        string        `yaml:"s3_region"`
	UploadBucket    string        `yaml:"upload_bucket"`
	OutputBucket    string        `yaml:"output_bucket"`
	SignedURLTTL    time.Duration `yaml:"signed_url_ttl"`

	Translator TranslatorConfig `yaml:"translator"`
}

// TranslatorConfig selects and configures the translation backend.
type TranslatorConfig struct {
	Provider          string        `yaml:"provider"`
	LibreTranslateURL string        `yaml:"libretranslate_url"`
	LibreTranslateKey string        `yaml:"libretranslate_api_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	OpenAIKey         string        `yaml:"openai_api_key"`
	OpenAIModel       string        `yaml:"openai_model"`
	Proxy             string        `yaml:"proxy"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

const (
	defaultAddress         = ":3000"
	defaultMaxFileSize     = 25 << 20 // 25 MiB
	defaultMaxEntryBytes   = 100 << 20
	defaultLanguage        = "en"
	defaultUploadDir       = "uploads"
	defaultTranslatedDir   = "translated"
	defaultLogLevel        = "info"
	defaultRedisAddr       = "127.0.0.1:6379"
	defaultWorkerCount     = 2
	defaultStatusTTL       = 24 * time.Hour
	defaultSignedTTL       = 5 * time.Minute
	defaultS3Region        = "us-east-1"
	defaultUploadBucket    = "doctranslate-uploads"
	defaultOutputBucket    = "doctranslate-translated"
	defaultProvider        = "libretranslate"
	defaultLibreTranslate  = "http://localhost:5000"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModelName = "gpt-4o-mini"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address:         defaultAddress,
		MaxFileSize:     defaultMaxFileSize,
		MaxEntryBytes:   defaultMaxEntryBytes,
		DefaultLanguage: defaultLanguage,
		UploadDir:       defaultUploadDir,
		TranslatedDir:   defaultTranslatedDir,
		LogLevel:        defaultLogLevel,
		QueueBackend:    BackendMemory,
		RedisAddr:       defaultRedisAddr,
		Workers:         defaultWorkerCount,
		StatusBackend:   BackendMemory,
		StatusTTL:       defaultStatusTTL,
		ArtifactBackend: BackendLocal,
		S3Region:        defaultS3Region,
		UploadBucket:    defaultUploadBucket,
		OutputBucket:    defaultOutputBucket,
		SignedURLTTL:    defaultSignedTTL,
		Translator: TranslatorConfig{
			Provider:          defaultProvider,
			LibreTranslateURL: defaultLibreTranslate,
			OpenAIBaseURL:     defaultOpenAIBaseURL,
			OpenAIModel:       defaultOpenAIModelName,
		},
	}
}

// Load reads the optional YAML file and then the environment, falling back to
// defaults. Invalid numbers are ignored; unknown backend names are errors.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("DOCTRANSLATE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Address = readEnv("DOCTRANSLATE_ADDRESS", c.Address)
	c.MaxFileSize = parseInt64("DOCTRANSLATE_MAX_FILE_BYTES", c.MaxFileSize)
	c.MaxEntryBytes = parseInt64("DOCTRANSLATE_MAX_ENTRY_BYTES", c.MaxEntryBytes)
	c.DefaultLanguage = readEnv("DOCTRANSLATE_DEFAULT_LANGUAGE", c.DefaultLanguage)
	c.UploadDir = readEnv("DOCTRANSLATE_UPLOAD_DIR", c.UploadDir)
	c.TranslatedDir = readEnv("DOCTRANSLATE_TRANSLATED_DIR", c.TranslatedDir)
	c.LogLevel = readEnv("LOG_LEVEL", c.LogLevel)

	c.QueueBackend = readEnv("DOCTRANSLATE_QUEUE", c.QueueBackend)
	c.QueueName = readEnv("DOCTRANSLATE_QUEUE_NAME", c.QueueName)
	c.RedisAddr = readEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = readEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = parseInt("REDIS_DB", c.RedisDB)
	c.Workers = parseInt("DOCTRANSLATE_WORKERS", c.Workers)
	c.TaskTimeout = parseDuration("DOCTRANSLATE_TASK_TIMEOUT", c.TaskTimeout)

	c.StatusBackend = readEnv("DOCTRANSLATE_STATUS_STORE", c.StatusBackend)
	c.StatusTTL = parseDuration("DOCTRANSLATE_STATUS_TTL", c.StatusTTL)
	c.DatabaseURL = readEnv("DATABASE_URL", c.DatabaseURL)

	c.ArtifactBackend = readEnv("DOCTRANSLATE_ARTIFACTS", c.ArtifactBackend)
	c.S3Endpoint = readEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = readEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = readEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3UseSSL = parseBool("S3_USE_SSL", c.S3UseSSL)
	c.S3Region = readEnv("S3_REGION", c.S3Region)
	c.UploadBucket = readEnv("S3_UPLOAD_BUCKET", c.UploadBucket)
	c.OutputBucket = readEnv("S3_OUTPUT_BUCKET", c.OutputBucket)
	c.SignedURLTTL = parseDuration("DOCTRANSLATE_SIGNED_TTL", c.SignedURLTTL)

	t := &c.Translator
	t.Provider = readEnv("TRANSLATOR_PROVIDER", t.Provider)
	t.LibreTranslateURL = readEnv("LIBRETRANSLATE_URL", t.LibreTranslateURL)
	t.LibreTranslateKey = readEnv("LIBRETRANSLATE_API_KEY", t.LibreTranslateKey)
	t.OpenAIBaseURL = readEnv("OPENAI_BASE_URL", t.OpenAIBaseURL)
	t.OpenAIKey = readEnv("OPENAI_API_KEY", t.OpenAIKey)
	t.OpenAIModel = readEnv("OPENAI_MODEL", t.OpenAIModel)
	t.Proxy = readEnv("TRANSLATOR_PROXY", t.Proxy)
	t.Timeout = parseDuration("TRANSLATOR_TIMEOUT", t.Timeout)
	t.RequestsPerSecond = parseFloat("TRANSLATOR_RPS", t.RequestsPerSecond)
}

// normalize replaces non-positive values with defaults.
func (c *Config) normalize() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.MaxEntryBytes <= 0 {
		c.MaxEntryBytes = defaultMaxEntryBytes
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkerCount
	}
	if c.SignedURLTTL <= 0 {
		c.SignedURLTTL = defaultSignedTTL
	}
	if c.StatusTTL < 0 {
		c.StatusTTL = defaultStatusTTL
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = defaultLanguage
	}
	c.QueueBackend = strings.ToLower(c.QueueBackend)
	c.StatusBackend = strings.ToLower(c.StatusBackend)
	c.ArtifactBackend = strings.ToLower(c.ArtifactBackend)
	c.Translator.Provider = strings.ToLower(c.Translator.Provider)
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.QueueBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	switch c.StatusBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("status backend %q requires DATABASE_URL", c.StatusBackend)
		}
	default:
		return fmt.Errorf("unknown status backend %q", c.StatusBackend)
	}
	switch c.ArtifactBackend {
	case BackendLocal:
	case BackendS3:
		if c.S3Endpoint == "" {
			return fmt.Errorf("artifact backend %q requires S3_ENDPOINT", c.ArtifactBackend)
		}
	default:
		return fmt.Errorf("unknown artifact backend %q", c.ArtifactBackend)
	}
	if err := translator.ValidateProxy(c.Translator.Proxy); err != nil {
		return fmt.Errorf("TRANSLATOR_PROXY: %w", err)
	}
	// A Redis queue serves separate worker processes, which cannot see an
	// in-memory status store.
	if c.QueueBackend == BackendRedis && c.StatusBackend == BackendMemory {
		return fmt.Errorf("queue backend %q needs a shared status store (redis or postgres)", c.QueueBackend)
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
