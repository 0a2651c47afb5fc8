package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadFromFile layers a config file (YAML/JSON/TOML, searched the way the
// teacher's CLI searches for .flow-service.yaml) under environment variables
// and returns the fully validated Config. The CLI front-end that would parse
// --index/--clean/etc flags on top of this is out of scope (spec.md §1); this
// is the config-loading half only.
func LoadFromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".repoanalyzer")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Postgres: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     viperIntOr(v, "postgres.port", 5432),
			Database: viperStringOr(v, "postgres.database", "repoanalyzer"),
			User:     viperStringOr(v, "postgres.user", "postgres"),
			Password: v.GetString("postgres.password"),
		},
		Neo4j: Neo4jConfig{
			URI:      viperStringOr(v, "neo4j.uri", "bolt://localhost:7687"),
			User:     viperStringOr(v, "neo4j.user", "neo4j"),
			Password: viperStringOr(v, "neo4j.password", "password"),
			Database: viperStringOr(v, "neo4j.database", "neo4j"),
		},
		Redis: RedisConfig{
			Host:     viperStringOr(v, "redis.host", "localhost"),
			Port:     viperIntOr(v, "redis.port", 6379),
			DB:       v.GetInt("redis.db"),
			Password: v.GetString("redis.password"),
		},
		Parser: ParserConfig{
			LanguageDataPath: v.GetString("parser.language_data_path"),
		},
		File: FileConfig{
			IgnorePatterns: v.GetStringSlice("file.ignore_patterns"),
		},
		Retry: RetryConfig{
			MaxRetries:         viperIntOr(v, "retry.max_retries", 3),
			BaseDelay:          viperDurationOr(v, "retry.base_delay", time.Second),
			MaxDelay:           viperDurationOr(v, "retry.max_delay", 30*time.Second),
			JitterFactor:       viperFloatOr(v, "retry.jitter_factor", 0.5),
			AIOperationTimeout: viperDurationOr(v, "retry.ai_operation_timeout", 300*time.Second),
			AIRetryMultiplier:  viperFloatOr(v, "retry.ai_retry_multiplier", 2.0),
		},
		ExtractionPolicies: DefaultExtractionPolicies(),
		Cache: CacheConfig{
			DefaultTTL:     viperDurationOr(v, "cache.ttl", 3600*time.Second),
			ReportInterval: viperDurationOr(v, "cache.report_interval", 3600*time.Second),
			WarmupInterval: viperDurationOr(v, "cache.warmup_interval", 86400*time.Second),
			AnalyticsTick:  60 * time.Second,
		},
		Thresholds:         DefaultThresholdConfig(),
		EmbeddingDimension: viperIntOr(v, "embedding.dimension", 768),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func viperStringOr(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

func viperIntOr(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return def
}

func viperFloatOr(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		return v.GetFloat64(key)
	}
	return def
}

func viperDurationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		return v.GetDuration(key)
	}
	return def
}
