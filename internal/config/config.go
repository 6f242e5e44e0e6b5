package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "OUTPOST"

	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	MaxBodyBytes    int64         // max POST /registry body size

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store    string // "file" | "redis" | "memory"
	DataFile string // path of the JSON registry when Store == "file"

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisKey            string        // key holding the whole registry
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Discovery
	DiscoveryAdapters     []string      // ex: "docker-cli,homepage"
	DiscoveryTimeout      time.Duration // deadline for one discovery run
	DiscoveryInterval     time.Duration // 0 disables periodic discovery in serve mode
	DockerBinary          string        // binary used by the docker-cli adapter
	HomepageServicesFile  string        // gethomepage services.yaml
	HomepageBookmarksFile string        // gethomepage bookmarks.yaml (optional)

	AllowedCIDRS []string // optional, restrict access to /metrics and /readyz
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads configuration from OUTPOST_* environment variables and, when
// OUTPOST_CONFIG points at one, a YAML file. Environment wins over the file.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path, which takes precedence
// over OUTPOST_CONFIG.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", ":8080")
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("max_body_bytes", int64(1<<20))

	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_log", true)

	v.SetDefault("store", StoreFile)
	v.SetDefault("data_file", defaultDataFile())

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_username", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key", "outpost:registry:entries")
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("redis_max_wait", 10*time.Second)
	v.SetDefault("redis_ping_timeout", 5*time.Second)
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_connect_timeout", 30*time.Second)
	v.SetDefault("redis_retry_interval", 2*time.Second)
	v.SetDefault("redis_warn_threshold", 3)

	v.SetDefault("discovery_adapters", "docker-cli")
	v.SetDefault("discovery_timeout", 10*time.Second)
	v.SetDefault("discovery_interval", time.Duration(0))
	v.SetDefault("docker_binary", "docker")
	v.SetDefault("homepage_services_file", "")
	v.SetDefault("homepage_bookmarks_file", "")

	v.SetDefault("allowed_cidrs", "")
	v.SetDefault("trust_proxy", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ListenPort:      v.GetString("listen_port"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		MaxBodyBytes:    v.GetInt64("max_body_bytes"),

		LogLevel:  v.GetString("log_level"),
		PrettyLog: v.GetBool("pretty_log"),

		Store:    strings.ToLower(v.GetString("store")),
		DataFile: v.GetString("data_file"),

		RedisAddr:           v.GetString("redis_addr"),
		RedisUser:           v.GetString("redis_username"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		RedisKey:            v.GetString("redis_key"),
		RedisDT:             v.GetDuration("redis_dial_timeout"),
		RedisRT:             v.GetDuration("redis_read_timeout"),
		RedisWT:             v.GetDuration("redis_write_timeout"),
		RedisMaxWait:        v.GetDuration("redis_max_wait"),
		RedisPingTimeout:    v.GetDuration("redis_ping_timeout"),
		RedisPoolSize:       v.GetInt("redis_pool_size"),
		RedisConnectTimeout: v.GetDuration("redis_connect_timeout"),
		RedisRetryInterval:  v.GetDuration("redis_retry_interval"),
		RedisWarnThreshold:  v.GetInt("redis_warn_threshold"),

		DiscoveryAdapters:     splitAndTrim(v.GetString("discovery_adapters")),
		DiscoveryTimeout:      v.GetDuration("discovery_timeout"),
		DiscoveryInterval:     v.GetDuration("discovery_interval"),
		DockerBinary:          v.GetString("docker_binary"),
		HomepageServicesFile:  v.GetString("homepage_services_file"),
		HomepageBookmarksFile: v.GetString("homepage_bookmarks_file"),

		AllowedCIDRS: parseAllowedIPs(v.GetString("allowed_cidrs")),
		TrustProxy:   v.GetBool("trust_proxy"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile:
		if c.DataFile == "" {
			return fmt.Errorf("data_file is required when store=%s", StoreFile)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required when store=%s", StoreRedis)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want file, redis or memory)", c.Store)
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery_timeout must be > 0, got %v", c.DiscoveryTimeout)
	}
	if c.DiscoveryInterval < 0 {
		return fmt.Errorf("discovery_interval must be >= 0, got %v", c.DiscoveryInterval)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0, got %d", c.MaxBodyBytes)
	}
	return nil
}

// Redacted returns a copy safe to print in debug logs.
func (c Config) Redacted() Config {
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	return c
}

// helpers
func defaultDataFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".outpost", "registry.json")
	}
	return filepath.Join(home, ".outpost", "registry.json")
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
