// Package config loads gateway configuration from environment variables,
// optionally layered over a YAML site file for the settings that do not fit
// in an env var (publisher keys, header overrides).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/canopysites/canopy/pkg/store"
)

// Config holds gateway configuration.
type Config struct {
	Port     string
	LogLevel string

	// OwnerKey serves a single owner's site on every hostname. Ignored
	// when DomainRouting is enabled.
	OwnerKey       string
	DomainRouting  bool
	PreviewEnabled bool

	// CacheTTL bounds staleness of pointer, manifest, and domain lookups.
	// Zero disables caching.
	CacheTTL time.Duration

	// HostKeyPath is the keystore file for the gateway's content decryption
	// key. Empty disables the decryption layer; encrypted builds then fail
	// closed at request time.
	HostKeyPath string

	// PublisherKeysFile points at a YAML file of trusted publisher signing
	// keys. Empty skips envelope signature enforcement.
	PublisherKeysFile string

	Store store.Config

	Telemetry TelemetryConfig
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Environment  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	cacheTTL := 30 * time.Second
	if v := os.Getenv("CANOPY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}

	storeCfg := store.Config{
		Type: store.Type(os.Getenv("CANOPY_STORE")),
	}
	storeCfg.Remote.Endpoint = os.Getenv("CANOPY_STORE_ENDPOINT")
	if v := os.Getenv("CANOPY_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			storeCfg.Remote.RequestTimeout = d
		}
	}
	storeCfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	storeCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			storeCfg.Redis.DB = n
		}
	}
	storeCfg.Redis.Prefix = os.Getenv("REDIS_PREFIX")
	storeCfg.S3.Bucket = os.Getenv("CANOPY_S3_BUCKET")
	storeCfg.S3.Region = os.Getenv("AWS_REGION")
	storeCfg.S3.Endpoint = os.Getenv("CANOPY_S3_ENDPOINT")
	storeCfg.S3.Prefix = os.Getenv("CANOPY_S3_PREFIX")
	storeCfg.GCS.Bucket = os.Getenv("CANOPY_GCS_BUCKET")
	storeCfg.GCS.Prefix = os.Getenv("CANOPY_GCS_PREFIX")

	environment := os.Getenv("CANOPY_ENV")
	if environment == "" {
		environment = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		OwnerKey:          os.Getenv("CANOPY_OWNER_KEY"),
		DomainRouting:     os.Getenv("CANOPY_DOMAIN_ROUTING") == "true",
		PreviewEnabled:    os.Getenv("CANOPY_PREVIEW") == "true",
		CacheTTL:          cacheTTL,
		HostKeyPath:       os.Getenv("CANOPY_HOST_KEY_FILE"),
		PublisherKeysFile: os.Getenv("CANOPY_PUBLISHER_KEYS_FILE"),
		Store:             storeCfg,
		Telemetry: TelemetryConfig{
			Enabled:      os.Getenv("CANOPY_TELEMETRY") == "true",
			OTLPEndpoint: otlpEndpoint,
			Environment:  environment,
		},
	}
}
