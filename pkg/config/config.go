// Package config loads finledger's runtime configuration from
// environment variables, following the flat-struct-plus-getEnv pattern
// used throughout this codebase's ambient plumbing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for an embedding finledger process.
type Config struct {
	// Storage
	DataDir      string // base directory for journal/account files
	JournalPath  string // defaults to DataDir/journal
	AssetSeedPath string // optional YAML asset seed file, see pkg/asset.LoadSeed

	// Encryption (pkg/storage)
	EncryptionEnabled bool
	EncryptionKeyEnv  string // name of the env var holding the password/key, never the value itself
	KDFTime           uint32
	KDFMemoryKiB      uint32
	KDFThreads        uint8

	// Audit (pkg/audit)
	AuditKeyEnv string // name of the env var holding the audit HMAC key

	// Signing (pkg/crypto/keys)
	SigningKeyPath string

	// Journal lookup acceleration and mirror (pkg/journal, both optional)
	IndexDir    string // if set, a persistent GoLevelDB-backed KVIndex lives here
	PostgresDSN string

	// Observability
	MetricsEnabled bool
	LogLevel       string
}

// Load reads configuration from environment variables. Secrets
// (encryption password, audit key) are never read here directly — Config
// stores only the *name* of the env var that holds them, so a caller
// resolves them at the point of use and can zero them immediately via
// pkg/secret.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       getEnv("FINLEDGER_DATA_DIR", "./data"),
		AssetSeedPath: getEnv("FINLEDGER_ASSET_SEED", ""),

		EncryptionEnabled: getEnvBool("FINLEDGER_ENCRYPTION_ENABLED", false),
		EncryptionKeyEnv:  getEnv("FINLEDGER_ENCRYPTION_KEY_ENV", "FINLEDGER_ENCRYPTION_PASSWORD"),
		KDFTime:           uint32(getEnvInt("FINLEDGER_KDF_TIME", 1)),
		KDFMemoryKiB:      uint32(getEnvInt("FINLEDGER_KDF_MEMORY_KIB", 64*1024)),
		KDFThreads:        uint8(getEnvInt("FINLEDGER_KDF_THREADS", 4)),

		AuditKeyEnv: getEnv("FINLEDGER_AUDIT_KEY_ENV", "FINLEDGER_AUDIT_KEY"),

		SigningKeyPath: getEnv("FINLEDGER_SIGNING_KEY_PATH", ""),

		IndexDir:    getEnv("FINLEDGER_INDEX_DIR", ""),
		PostgresDSN: getEnv("FINLEDGER_POSTGRES_DSN", ""),

		MetricsEnabled: getEnvBool("FINLEDGER_METRICS_ENABLED", false),
		LogLevel:       getEnv("FINLEDGER_LOG_LEVEL", "info"),
	}
	cfg.JournalPath = getEnv("FINLEDGER_JOURNAL_PATH", cfg.DataDir+"/journal")

	return cfg, nil
}

// Validate checks internal consistency. It does not check that any
// referenced secret env var is actually set — that failure surfaces
// naturally, and specifically, when the caller tries to read it.
func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "FINLEDGER_DATA_DIR must not be empty")
	}
	if c.EncryptionEnabled && c.EncryptionKeyEnv == "" {
		errs = append(errs, "FINLEDGER_ENCRYPTION_KEY_ENV must be set when encryption is enabled")
	}
	if c.KDFTime == 0 {
		errs = append(errs, "FINLEDGER_KDF_TIME must be at least 1")
	}
	if c.KDFThreads == 0 {
		errs = append(errs, "FINLEDGER_KDF_THREADS must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
