// Package config provides configuration loading and validation for the
// repository analysis engine: connection targets for the relational store,
// the graph store, the optional secondary cache, retry tuning, extraction
// policies, and cache tuning, as enumerated in the system specification.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig provides utilities for loading configuration from environment variables.
type EnvConfig struct {
	prefix string // Optional prefix for all environment variables
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

// GetString retrieves a string value from environment with optional default.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// MustGetString retrieves a required string value from environment or panics.
func (ec *EnvConfig) MustGetString(key string) string {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s not set", fullKey))
	}
	return value
}

// GetInt retrieves an integer value from environment with optional default.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetFloat retrieves a float value from environment with optional default.
func (ec *EnvConfig) GetFloat(key string, defaultValue float64) float64 {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value from environment with optional default.
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value from environment with optional default.
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStringSlice retrieves a comma-separated string slice from environment.
func (ec *EnvConfig) GetStringSlice(key string, defaultValue []string) []string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// PostgresConfig targets the relational store (tables + pgvector).
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN builds a libpq-style connection string for pgx.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Neo4jConfig targets the graph store.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// RedisConfig targets the optional secondary cache / job queue backend.
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Addr returns the host:port address go-redis expects.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParserConfig configures the out-of-scope parser collaborator's data path.
type ParserConfig struct {
	LanguageDataPath string
}

// FileConfig configures ingestion file filtering.
type FileConfig struct {
	IgnorePatterns []string
}

// RetryConfig tunes the retry manager and error classification (spec.md §4.2, §6).
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	JitterFactor      float64
	AIOperationTimeout time.Duration
	AIRetryMultiplier  float64
}

// DefaultRetryConfig returns the spec-mandated defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		BaseDelay:          1 * time.Second,
		MaxDelay:           30 * time.Second,
		JitterFactor:       0.5,
		AIOperationTimeout: 300 * time.Second,
		AIRetryMultiplier:  2.0,
	}
}

// ExtractionPolicy names the per-pattern-type thresholds spec.md §4.4/§6 refers to.
type ExtractionPolicy struct {
	MinOccurrences       int
	ConfidenceThreshold  float64
}

// ExtractionPolicyName is one of the three named policy tiers.
type ExtractionPolicyName string

const (
	PolicyStrict    ExtractionPolicyName = "strict"
	PolicyBalanced  ExtractionPolicyName = "balanced"
	PolicyInclusive ExtractionPolicyName = "inclusive"
)

// DefaultExtractionPolicies returns the three named tiers with sensible defaults.
// Strict demands more repetition and higher confidence; inclusive is permissive.
func DefaultExtractionPolicies() map[ExtractionPolicyName]ExtractionPolicy {
	return map[ExtractionPolicyName]ExtractionPolicy{
		PolicyStrict:    {MinOccurrences: 5, ConfidenceThreshold: 0.8},
		PolicyBalanced:  {MinOccurrences: 3, ConfidenceThreshold: 0.6},
		PolicyInclusive: {MinOccurrences: 2, ConfidenceThreshold: 0.4},
	}
}

// CacheConfig tunes the cache substrate and its analytics loop (spec.md §4.5, §6).
type CacheConfig struct {
	DefaultTTL      time.Duration
	ReportInterval  time.Duration
	WarmupInterval  time.Duration
	AnalyticsTick   time.Duration
}

// DefaultCacheConfig returns the spec-mandated defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:     3600 * time.Second,
		ReportInterval: 3600 * time.Second,
		WarmupInterval: 86400 * time.Second,
		AnalyticsTick:  60 * time.Second,
	}
}

// ThresholdConfig resolves the open-question defaults called out in spec.md §9:
// similarity/confidence cutoffs and the projection debounce window. Load and
// LoadFromFile always fill it from DefaultThresholdConfig; no environment
// variable or config-file key overrides these values. The main package reads
// the debounce, topK, max-pairs and cutoff values; the two confidence fields
// are not read by the pattern package, which uses constants of the same value.
type ThresholdConfig struct {
	ProjectionSimilarityCutoff    float64
	PatternApplyFallbackConfidence float64
	CrossRepoPatternBaseConfidence float64
	ProjectionDebounce             time.Duration
	ProjectionTopK                 int
	ProjectionMaxPairs             int
}

// DefaultThresholdConfig returns the spec-documented defaults.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		ProjectionSimilarityCutoff:     0.5,
		PatternApplyFallbackConfidence: 0.7,
		CrossRepoPatternBaseConfidence: 0.8,
		ProjectionDebounce:             1 * time.Second,
		ProjectionTopK:                 10,
		ProjectionMaxPairs:             20,
	}
}

// BlobStoreConfig configures the optional S3-compatible overflow store for
// code-snippet AST and doc content that exceeds InlineThresholdBytes (SPEC_FULL.md
// domain table's "object storage for large AST/sample blobs overflow").
// Disabled by default; callers keep storing content inline until an operator
// opts in with BLOBSTORE_ENABLED.
type BlobStoreConfig struct {
	Enabled              bool
	Endpoint             string
	Region               string
	Bucket               string
	AccessKey            string
	SecretKey            string
	InlineThresholdBytes int
}

// DefaultBlobStoreConfig returns the disabled-by-default overflow store
// configuration.
func DefaultBlobStoreConfig() BlobStoreConfig {
	return BlobStoreConfig{
		Region:               "us-east-1",
		InlineThresholdBytes: 32 * 1024,
	}
}

// ServiceConfig names the process for health reporting and the health
// HTTP endpoint's listen port. Not a spec.md §6 key; ambient process
// identity in the teacher's idiom (http.RunServerConfig's ServiceName/
// Version/Port).
type ServiceConfig struct {
	Name      string
	Version   string
	HTTPPort  int
}

// DefaultServiceConfig returns the ambient process-identity defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{Name: "repoanalyzer", Version: "dev", HTTPPort: 8080}
}

// Config aggregates every recognized configuration key from spec.md §6.
type Config struct {
	Postgres          PostgresConfig
	Neo4j             Neo4jConfig
	Redis             RedisConfig
	Parser            ParserConfig
	File              FileConfig
	Retry             RetryConfig
	ExtractionPolicies map[ExtractionPolicyName]ExtractionPolicy
	Cache             CacheConfig
	Thresholds        ThresholdConfig
	Service           ServiceConfig
	BlobStore         BlobStoreConfig
	// EmbeddingDimension must be a positive integer at startup and sets the
	// vector size of the stub embedder main builds; no write checks a vector's
	// length against it, and the schema's vector columns are fixed at 768
	// (spec.md §3 invariant 5, §9 open question 3).
	EmbeddingDimension int
}

// Load builds a Config from environment variables with the defaults
// documented in spec.md §6.
func Load() (Config, error) {
	env := NewEnvConfig("")
	cfg := Config{
		Postgres: PostgresConfig{
			Host:     env.GetString("POSTGRES_HOST", "localhost"),
			Port:     env.GetInt("POSTGRES_PORT", 5432),
			Database: env.GetString("POSTGRES_DATABASE", "repoanalyzer"),
			User:     env.GetString("POSTGRES_USER", "postgres"),
			Password: env.GetString("POSTGRES_PASSWORD", ""),
		},
		Neo4j: Neo4jConfig{
			URI:      env.GetString("NEO4J_URI", "bolt://localhost:7687"),
			User:     env.GetString("NEO4J_USER", "neo4j"),
			Password: env.GetString("NEO4J_PASSWORD", "password"),
			Database: env.GetString("NEO4J_DATABASE", "neo4j"),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			DB:       env.GetInt("REDIS_DB", 0),
			Password: env.GetString("REDIS_PASSWORD", ""),
		},
		Parser: ParserConfig{
			LanguageDataPath: env.GetString("PARSER_LANGUAGE_DATA_PATH", ""),
		},
		File: FileConfig{
			IgnorePatterns: env.GetStringSlice("FILE_IGNORE_PATTERNS", []string{".git/*", "node_modules/*"}),
		},
		Retry: RetryConfig{
			MaxRetries:         env.GetInt("RETRY_MAX_RETRIES", 3),
			BaseDelay:          env.GetDuration("RETRY_BASE_DELAY", 1*time.Second),
			MaxDelay:           env.GetDuration("RETRY_MAX_DELAY", 30*time.Second),
			JitterFactor:       env.GetFloat("RETRY_JITTER_FACTOR", 0.5),
			AIOperationTimeout: env.GetDuration("AI_OPERATION_TIMEOUT", 300*time.Second),
			AIRetryMultiplier:  env.GetFloat("AI_RETRY_MULTIPLIER", 2.0),
		},
		ExtractionPolicies: DefaultExtractionPolicies(),
		Cache: CacheConfig{
			DefaultTTL:     env.GetDuration("CACHE_DEFAULT_TTL", 3600*time.Second),
			ReportInterval: env.GetDuration("CACHE_REPORT_INTERVAL", 3600*time.Second),
			WarmupInterval: env.GetDuration("CACHE_WARMUP_INTERVAL", 86400*time.Second),
			AnalyticsTick:  env.GetDuration("CACHE_ANALYTICS_TICK", 60*time.Second),
		},
		Thresholds:         DefaultThresholdConfig(),
		Service: ServiceConfig{
			Name:     env.GetString("SERVICE_NAME", "repoanalyzer"),
			Version:  env.GetString("SERVICE_VERSION", "dev"),
			HTTPPort: env.GetInt("HTTP_PORT", 8080),
		},
		EmbeddingDimension: env.GetInt("EMBEDDING_DIMENSION", 768),
		BlobStore: BlobStoreConfig{
			Enabled:              env.GetBool("BLOBSTORE_ENABLED", false),
			Endpoint:             env.GetString("BLOBSTORE_ENDPOINT", ""),
			Region:               env.GetString("BLOBSTORE_REGION", "us-east-1"),
			Bucket:               env.GetString("BLOBSTORE_BUCKET", "repoanalyzer-blobs"),
			AccessKey:            env.GetString("BLOBSTORE_ACCESS_KEY", ""),
			SecretKey:            env.GetString("BLOBSTORE_SECRET_KEY", ""),
			InlineThresholdBytes: env.GetInt("BLOBSTORE_INLINE_THRESHOLD_BYTES", 32*1024),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on fatal configuration errors (spec.md §7 "Configuration errors").
func (c Config) Validate() error {
	v := NewValidator()
	v.RequirePositiveInt("EmbeddingDimension", c.EmbeddingDimension)
	v.RequireString("Postgres.Database", c.Postgres.Database)
	v.RequireString("Neo4j.URI", c.Neo4j.URI)
	v.RequirePositiveInt("Retry.MaxRetries", c.Retry.MaxRetries+1) // 0 retries is valid, -1 is not
	return v.Validate()
}

// Validator provides fluent configuration validation, failing fast with
// specific missing/invalid fields as spec.md §7 requires.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt validates that an integer field is positive.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []string {
	return v.errors
}

// Validate runs validation and returns a ConfigurationError if invalid.
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return &ConfigurationError{Fields: v.errors}
	}
	return nil
}

// ConfigurationError is a fatal startup error naming every invalid field
// (spec.md §7: "fail fast with a specific missing/invalid field").
type ConfigurationError struct {
	Fields []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration validation failed: %s", strings.Join(e.Fields, "; "))
}
