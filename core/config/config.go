package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	MCP        MCPConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Tenant     TenantConfig
	Supervisor SupervisorConfig
	Pairing    PairingConfig
	Sweep      SweepConfig
	Valkey     ValkeyConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	InstanceID         string
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	Auth    string
	Storage string
	Ledger  string
}

type DatabaseConfig struct {
	URL            string
	SSLMode        string
	MaxConnections int
}

type TenantConfig struct {
	RuntimeName     string
	StaticName      string
	DefaultName     string
	DefaultCapacity int
}

type SupervisorConfig struct {
	ConnectTimeout time.Duration
	StopGrace      time.Duration
	QuiesceDelay   time.Duration
	RestartDelay   time.Duration
	Shards         int
	QueueSize      int
}

type PairingConfig struct {
	Deadline       time.Duration
	StartupTimeout time.Duration
	TeardownGrace  time.Duration
}

type SweepConfig struct {
	ExpirationInterval time.Duration
	GuestTTL           time.Duration
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Global provides access to the loaded configuration process-wide. Set
// once by LoadConfig and read-only afterwards.
var Global *Config

// LoadConfig builds the configuration from environment variables. It
// returns a StartupMisconfigured error instead of guessing when the
// deployment is unusable: a missing DATABASE_URL, or SSL explicitly
// disabled in production.
func LoadConfig() (*Config, error) {
	environment := getEnv("APP_ENV", "development")

	debug := getEnvBool("APP_DEBUG", false)
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        environment,
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		InstanceID:         getEnv("FLEET_INSTANCE_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	storage := getEnv("PATH_STORAGE", "storages")
	pathsCfg := PathsConfig{
		Auth:    getEnv("PATH_AUTH", "auth"),
		Storage: storage,
		Ledger:  getEnv("PATH_LEDGER", filepath.Join(storage, "failure_ledger.json")),
	}

	dbURL := strings.TrimSpace(getEnv("DATABASE_URL", ""))
	if dbURL == "" {
		return nil, pkgError.InternalServerError("startup: DATABASE_URL is required.")
	}
	sslMode, err := resolveSSLMode(getEnv("DB_SSL", ""), environment)
	if err != nil {
		return nil, err
	}
	dbCfg := DatabaseConfig{
		URL:            dbURL,
		SSLMode:        sslMode,
		MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 100),
	}

	tenantCfg := TenantConfig{
		RuntimeName:     getEnv("RUNTIME_SERVER_NAME", ""),
		StaticName:      getEnv("SERVER_NAME", ""),
		DefaultName:     "SERVER1",
		DefaultCapacity: getEnvInt("BOTCOUNT", 10),
	}

	supCfg := SupervisorConfig{
		ConnectTimeout: getEnvDuration("FLEET_CONNECT_TIMEOUT", 40*time.Second),
		StopGrace:      getEnvDuration("FLEET_STOP_GRACE", 3*time.Second),
		QuiesceDelay:   getEnvDuration("FLEET_QUIESCE_DELAY", 2*time.Second),
		RestartDelay:   getEnvDuration("FLEET_RESTART_DELAY", 3*time.Second),
		Shards:         getEnvInt("FLEET_QUEUE_SHARDS", 16),
		QueueSize:      getEnvInt("FLEET_QUEUE_SIZE", 64),
	}

	pairCfg := PairingConfig{
		Deadline:       getEnvDuration("PAIRING_DEADLINE", 60*time.Second),
		StartupTimeout: getEnvDuration("PAIRING_STARTUP_TIMEOUT", 30*time.Second),
		TeardownGrace:  getEnvDuration("PAIRING_TEARDOWN_GRACE", 5*time.Second),
	}

	sweepCfg := SweepConfig{
		ExpirationInterval: getEnvDuration("FLEET_SWEEP_INTERVAL", time.Hour),
		GuestTTL:           getEnvDuration("GUEST_SESSION_TTL", 10*time.Minute),
	}

	valkeyCfg := ValkeyConfig{
		Enabled:   getEnvBool("VALKEY_ENABLED", false),
		Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		Password:  getEnv("VALKEY_PASSWORD", ""),
		DB:        getEnvInt("VALKEY_DB", 0),
		KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azfleet:"),
	}

	cfg := &Config{
		App:        appCfg,
		MCP:        MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:      pathsCfg,
		Database:   dbCfg,
		Tenant:     tenantCfg,
		Supervisor: supCfg,
		Pairing:    pairCfg,
		Sweep:      sweepCfg,
		Valkey:     valkeyCfg,
	}

	Global = cfg
	return cfg, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// resolveSSLMode maps the DB_SSL environment value onto a postgres
// sslmode. Unset falls back to "prefer" in development and "require" in
// production; explicitly disabling SSL in production is refused.
func resolveSSLMode(value, environment string) (string, error) {
	production := strings.EqualFold(environment, "production")

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		if production {
			return "require", nil
		}
		return "prefer", nil
	case "disable", "false":
		if production {
			return "", pkgError.InternalServerError("startup: DB_SSL=disable is not allowed in production.")
		}
		return "disable", nil
	case "require":
		return "require", nil
	case "no-verify":
		// pgx "require" performs no certificate verification.
		return "require", nil
	default:
		return "", pkgError.InternalServerError("startup: DB_SSL must be one of disable, false, require, no-verify.")
	}
}
