package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process-wide settings tree. Sections are pointers so a
// partially filled JSON file only overrides what it names.
type Config struct {
	Server    *ServerConfig    `json:"server"`
	Session   *SessionConfig   `json:"session"`
	Call      *CallConfig      `json:"call"`
	Auth      *AuthConfig      `json:"auth"`
	Database  *DatabaseConfig  `json:"database"`
	Cache     *CacheConfig     `json:"cache"`
	Gateway   *GatewayConfig   `json:"gateway"`
	Discovery *DiscoveryConfig `json:"discovery"`
	Game      *GameConfig      `json:"game"`
	Log       *LogConfig       `json:"log"`
}

// ServerConfig controls the TCP listener and per-connection I/O.
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadBuffer   int           `json:"read_buffer"`
	MaxFrame     int           `json:"max_frame"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Tick         time.Duration `json:"tick"`
}

type SessionConfig struct {
	HeartbeatTTL time.Duration `json:"heartbeat_ttl"`
	Mirror       bool          `json:"mirror"`
}

type CallConfig struct {
	Timeout time.Duration `json:"timeout"`
}

// AuthConfig selects how new passwords are stored and how hard LOGIN may be
// retried from a single connection.
type AuthConfig struct {
	PasswordPolicy string        `json:"password_policy"`
	LoginAttempts  int           `json:"login_attempts"`
	LoginWindow    time.Duration `json:"login_window"`
}

// DatabaseConfig covers both the embedded sqlite file and a networked
// PostgreSQL server reached through pgx.
type DatabaseConfig struct {
	Driver          string        `json:"driver"`
	Path            string        `json:"path"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslmode"`
	MaxConnections  int           `json:"max_connections"`
	Timeout         time.Duration `json:"timeout"`
	WriteRetryDelay time.Duration `json:"write_retry_delay"`
	Seed            bool          `json:"seed"`
}

type CacheConfig struct {
	Backend   string        `json:"backend"`
	TTL       time.Duration `json:"ttl"`
	RedisAddr string        `json:"redis_addr"`
	Prefix    string        `json:"prefix"`
}

// GatewayConfig is the side HTTP surface: health, stats and the websocket
// frame transport.
type GatewayConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type DiscoveryConfig struct {
	Enabled  bool   `json:"enabled"`
	Instance string `json:"instance"`
	Service  string `json:"service"`
}

type GameConfig struct {
	ImageDir string `json:"image_dir"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"

	PasswordPlain  = "plain"
	PasswordBcrypt = "bcrypt"
)

// DefaultConfig returns settings suitable for a single-host deployment:
// sqlite on disk, TCP on 8080, HTTP gateway on 8081, 30 s heartbeat TTL.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadBuffer:   4096,
			MaxFrame:     16 << 20,
			WriteTimeout: 10 * time.Second,
			Tick:         time.Second,
		},
		Session: &SessionConfig{
			HeartbeatTTL: 30 * time.Second,
			Mirror:       true,
		},
		Call: &CallConfig{
			Timeout: 30 * time.Second,
		},
		Auth: &AuthConfig{
			PasswordPolicy: PasswordPlain,
			LoginAttempts:  5,
			LoginWindow:    time.Minute,
		},
		Database: &DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "./lingualink.db",
			Host:            "localhost",
			Port:            5432,
			Name:            "lingualink",
			User:            "lingualink",
			SSLMode:         "disable",
			MaxConnections:  10,
			Timeout:         30 * time.Second,
			WriteRetryDelay: 5 * time.Second,
			Seed:            true,
		},
		Cache: &CacheConfig{
			Backend:   CacheMemory,
			TTL:       5 * time.Minute,
			RedisAddr: "localhost:6379",
			Prefix:    "lingua:",
		},
		Gateway: &GatewayConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8081,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Discovery: &DiscoveryConfig{
			Enabled:  false,
			Instance: "lingualink",
			Service:  "_lingualink._tcp",
		},
		Game: &GameConfig{
			ImageDir: "data/images",
		},
		Log: &LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if err := validPort(c.Server.Port); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Server.ReadBuffer <= 0 {
		return fmt.Errorf("server read buffer must be positive")
	}
	if c.Server.MaxFrame < 6 {
		return fmt.Errorf("server max frame must be at least 6 bytes")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.Tick <= 0 {
		return fmt.Errorf("server tick must be positive")
	}

	if c.Session == nil || c.Session.HeartbeatTTL <= 0 {
		return fmt.Errorf("session heartbeat ttl must be positive")
	}
	if c.Call == nil || c.Call.Timeout <= 0 {
		return fmt.Errorf("call timeout must be positive")
	}

	if c.Auth == nil {
		return fmt.Errorf("auth configuration is required")
	}
	switch c.Auth.PasswordPolicy {
	case PasswordPlain, PasswordBcrypt:
	default:
		return fmt.Errorf("unknown password policy %q", c.Auth.PasswordPolicy)
	}
	if c.Auth.LoginAttempts <= 0 || c.Auth.LoginWindow <= 0 {
		return fmt.Errorf("login throttle attempts and window must be positive")
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database host and name are required for %s", DriverPostgres)
		}
		if err := validPort(c.Database.Port); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.Database.WriteRetryDelay < 0 {
		return fmt.Errorf("database write retry delay cannot be negative")
	}

	if c.Cache == nil {
		return fmt.Errorf("cache configuration is required")
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache redis address cannot be empty")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Gateway == nil {
		return fmt.Errorf("gateway configuration is required")
	}
	if c.Gateway.Enabled {
		if err := validPort(c.Gateway.Port); err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		if c.Gateway.ReadTimeout <= 0 || c.Gateway.WriteTimeout <= 0 {
			return fmt.Errorf("gateway timeouts must be positive")
		}
	}

	if c.Discovery == nil {
		return fmt.Errorf("discovery configuration is required")
	}
	if c.Discovery.Enabled && (c.Discovery.Instance == "" || c.Discovery.Service == "") {
		return fmt.Errorf("discovery instance and service cannot be empty")
	}

	if c.Game == nil {
		return fmt.Errorf("game configuration is required")
	}
	if c.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}

// Addr is the TCP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func validPort(p int) error {
	if p <= 0 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p)
	}
	return nil
}

// LoadFromEnv starts from the defaults and applies LINGUA_* variables.
// Unparseable values are ignored so a typo never prevents startup.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	envString("LINGUA_SERVER_HOST", &cfg.Server.Host)
	envInt("LINGUA_SERVER_PORT", &cfg.Server.Port)
	envDuration("LINGUA_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	envDuration("LINGUA_SESSION_HEARTBEAT_TTL", &cfg.Session.HeartbeatTTL)
	envBool("LINGUA_SESSION_MIRROR", &cfg.Session.Mirror)
	envDuration("LINGUA_CALL_TIMEOUT", &cfg.Call.Timeout)

	envString("LINGUA_AUTH_PASSWORD_POLICY", &cfg.Auth.PasswordPolicy)
	envInt("LINGUA_AUTH_LOGIN_ATTEMPTS", &cfg.Auth.LoginAttempts)
	envDuration("LINGUA_AUTH_LOGIN_WINDOW", &cfg.Auth.LoginWindow)

	envString("LINGUA_DATABASE_DRIVER", &cfg.Database.Driver)
	envString("LINGUA_DATABASE_PATH", &cfg.Database.Path)
	envString("LINGUA_DATABASE_HOST", &cfg.Database.Host)
	envInt("LINGUA_DATABASE_PORT", &cfg.Database.Port)
	envString("LINGUA_DATABASE_NAME", &cfg.Database.Name)
	envString("LINGUA_DATABASE_USER", &cfg.Database.User)
	envString("LINGUA_DATABASE_PASSWORD", &cfg.Database.Password)
	envString("LINGUA_DATABASE_SSLMODE", &cfg.Database.SSLMode)
	envDuration("LINGUA_DATABASE_TIMEOUT", &cfg.Database.Timeout)
	envBool("LINGUA_DATABASE_SEED", &cfg.Database.Seed)

	envString("LINGUA_CACHE_BACKEND", &cfg.Cache.Backend)
	envDuration("LINGUA_CACHE_TTL", &cfg.Cache.TTL)
	envString("LINGUA_CACHE_REDIS_ADDR", &cfg.Cache.RedisAddr)

	envBool("LINGUA_GATEWAY_ENABLED", &cfg.Gateway.Enabled)
	envString("LINGUA_GATEWAY_HOST", &cfg.Gateway.Host)
	envInt("LINGUA_GATEWAY_PORT", &cfg.Gateway.Port)

	envBool("LINGUA_DISCOVERY_ENABLED", &cfg.Discovery.Enabled)
	envString("LINGUA_DISCOVERY_INSTANCE", &cfg.Discovery.Instance)

	envString("LINGUA_GAME_IMAGE_DIR", &cfg.Game.ImageDir)
	envString("LINGUA_LOG_LEVEL", &cfg.Log.Level)
	envString("LINGUA_LOG_FORMAT", &cfg.Log.Format)

	return cfg
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// LoadFromFile reads a JSON config file over base. Durations are written as
// Go duration strings ("30s"). Absent keys keep the base value.
func LoadFromFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if base == nil {
		base = DefaultConfig()
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := file.apply(base); err != nil {
		return nil, fmt.Errorf("invalid value in %s: %w", path, err)
	}

	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return base, nil
}

// LoadConfigWithPrecedence resolves file > environment > defaults. A missing
// or broken file is reported but the environment-derived config is still
// returned so the caller may decide whether to continue.
func LoadConfigWithPrecedence(path string) (*Config, error) {
	cfg := LoadFromEnv()
	if path == "" {
		return cfg, nil
	}
	fileCfg, err := LoadFromFile(path, cfg)
	if err != nil {
		return LoadFromEnv(), err
	}
	return fileCfg, nil
}
