package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the pixdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	OCR        OCRConfig        `yaml:"ocr"`
	Completion CompletionConfig `yaml:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Backfill   BackfillConfig   `yaml:"backfill"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	MaxConns         int32    `yaml:"max_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int   `yaml:"hnsw_m"`
	HNSWEFConstruct int   `yaml:"hnsw_ef_construction"`
	AutoEnsure      *bool `yaml:"auto_ensure"` // schedule a build when serve starts; default true
}

// StorageConfig holds key namespacing and object storage settings.
type StorageConfig struct {
	KeyPrefix string      `yaml:"key_prefix"`
	MinIO     MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds S3-compatible object storage settings. An empty endpoint disables uploads.
type MinIOConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Secure        bool   `yaml:"secure"`
	PublicBaseURL string `yaml:"public_base_url"`
	ObjectPrefix  string `yaml:"object_prefix"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Text      VectorizerConfig          `yaml:"text"`
	Image     VectorizerConfig          `yaml:"image"`
	CacheSize int                       `yaml:"cache_size"` // in-process LRU entries
	// CacheTTLHours bounds shared cache entries in Redis/Valkey; 0 keeps them forever.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// ProviderConfig holds OpenAI-compatible endpoint settings.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	ImageFormat      string `yaml:"image_format"` // image only: object | data_uri
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// CompletionConfig holds answer generation settings.
type CompletionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// RetrievalConfig holds fusion weights and result limits. Nil weights take
// the defaults; an explicit zero disables a modality's contribution.
type RetrievalConfig struct {
	VisualWeight *float64 `yaml:"visual_weight"`
	TextWeight   *float64 `yaml:"text_weight"`
	DefaultK     int      `yaml:"default_k"`
	MaxK         int      `yaml:"max_k"`
}

// BackfillConfig bounds OCR backfill load.
type BackfillConfig struct {
	Concurrency int     `yaml:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
	Burst       int     `yaml:"burst"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 64
	}
	if c.Index.AutoEnsure == nil {
		c.Index.AutoEnsure = ptr(true)
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "pixdex:"
	}
	if c.Storage.MinIO.Bucket == "" {
		c.Storage.MinIO.Bucket = "images"
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 1024
	}
	if c.Embedding.Text.Dimensions <= 0 {
		c.Embedding.Text.Dimensions = 512
	}
	if c.Embedding.Image.Dimensions <= 0 {
		c.Embedding.Image.Dimensions = c.Embedding.Text.Dimensions
	}
	if c.Embedding.Image.Provider == "" {
		c.Embedding.Image.Provider = c.Embedding.Text.Provider
	}
	if c.Embedding.Image.Model == "" {
		c.Embedding.Image.Model = c.Embedding.Text.Model
	}
	if c.OCR.Provider == "" {
		c.OCR.Provider = c.Embedding.Text.Provider
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = c.Embedding.Text.Provider
	}
	if c.Retrieval.VisualWeight == nil {
		c.Retrieval.VisualWeight = ptr(0.6)
	}
	if c.Retrieval.TextWeight == nil {
		c.Retrieval.TextWeight = ptr(0.4)
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 3
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}
	if c.Backfill.Concurrency <= 0 {
		c.Backfill.Concurrency = 4
	}
	if c.Backfill.Burst <= 0 {
		c.Backfill.Burst = 1
	}
}

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or postgres, got %q", c.Database.Driver)
	}
	if w := c.Retrieval.VisualWeight; w != nil && *w < 0 {
		return fmt.Errorf("retrieval.visual_weight must be non-negative, got %g", *w)
	}
	if w := c.Retrieval.TextWeight; w != nil && *w < 0 {
		return fmt.Errorf("retrieval.text_weight must be non-negative, got %g", *w)
	}
	if c.Retrieval.MaxK < c.Retrieval.DefaultK {
		return fmt.Errorf("retrieval.max_k (%d) must be >= retrieval.default_k (%d)",
			c.Retrieval.MaxK, c.Retrieval.DefaultK)
	}
	switch c.Embedding.Image.ImageFormat {
	case "", "object", "data_uri":
		// ok
	default:
		return fmt.Errorf("embedding.image.image_format must be \"object\" or \"data_uri\", got %q",
			c.Embedding.Image.ImageFormat)
	}
	for _, ref := range []struct{ path, name string }{
		{"embedding.text.provider", c.Embedding.Text.Provider},
		{"embedding.image.provider", c.Embedding.Image.Provider},
	} {
		if err := c.checkProvider(ref.path, ref.name); err != nil {
			return err
		}
	}
	if c.OCR.Enabled {
		if err := c.checkProvider("ocr.provider", c.OCR.Provider); err != nil {
			return err
		}
	}
	if c.Completion.Enabled {
		if err := c.checkProvider("completion.provider", c.Completion.Provider); err != nil {
			return err
		}
	}
	return nil
}

// Provider returns the named provider settings.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Embedding.Providers[name]
}

func (c *Config) checkProvider(path, name string) error {
	if name == "" || len(c.Embedding.Providers) == 0 {
		return nil
	}
	if _, ok := c.Embedding.Providers[name]; !ok {
		return fmt.Errorf("%s refers to unknown provider %q", path, name)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
