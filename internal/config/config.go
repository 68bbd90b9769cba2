package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload" // load .env before reading the environment
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SeedFile       string        // path to a Homepage bookmarks.yaml (optional, empty = no seed import)
	ReloadInterval time.Duration // interval to re-run the seed import (default: 24h)

	// Redis (optional, empty address = in-memory repository)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// HTTP surface
	AllowedOrigins []string      // CORS origins, "*" allows any
	RateLimit      float64       // mutating requests per second per client IP (0 = disabled)
	RateBurst      int           // bucket size per client IP
	RateIdleTTL    time.Duration // forget idle client buckets after this long
	RequestTimeout time.Duration // per-request handler timeout
	AdminCIDRS     []string      // optional, restrict /metrics and /reload to these IPs/CIDRs
	TrustProxy     bool          // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	ServerURL   string        // base URL of the bookmark service
	HTTPTimeout time.Duration // per-request timeout
	SearchDelay time.Duration // debounce delay for search input
	LogLevel    string
	PrettyLog   bool
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		// Seed import
		SeedFile:       getenv("MARKS_SEED_FILE", ""),
		ReloadInterval: mustDuration("MARKS_RELOAD_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:           getenv("MARKS_REDIS_ADDR", ""),
		RedisUser:           getenv("MARKS_REDIS_USERNAME", ""),
		RedisPassword:       getenv("MARKS_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MARKS_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// HTTP surface
		AllowedOrigins: splitAndTrim(getenv("MARKS_ALLOWED_ORIGINS", "*")),
		RateLimit:      getenvFloat("MARKS_RATE_LIMIT", 5),
		RateBurst:      getenvInt("MARKS_RATE_BURST", 10),
		RateIdleTTL:    mustDuration("MARKS_RATE_IDLE_TTL", 3*time.Minute),
		RequestTimeout: mustDuration("MARKS_REQUEST_TIMEOUT", 15*time.Second),
		AdminCIDRS:     splitAndTrim(getenv("MARKS_ADMIN_CIDRS", "")),
		TrustProxy:     mustBool("MARKS_TRUST_PROXY", false),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// LoadClient reads the terminal client settings.
func LoadClient() *ClientConfig {
	return &ClientConfig{
		ServerURL:   getenv("MARKS_SERVER_URL", "http://localhost:8080"),
		HTTPTimeout: mustDuration("MARKS_HTTP_TIMEOUT", 10*time.Second),
		SearchDelay: mustDuration("MARKS_SEARCH_DELAY", 300*time.Millisecond),
		LogLevel:    getenv("MARKS_LOG_LEVEL", "warn"),
		PrettyLog:   mustBool("MARKS_PRETTY_LOG", true),
	}
}

// UseRedis reports whether a Redis backend is configured.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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
