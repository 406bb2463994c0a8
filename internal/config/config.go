package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the raw environment, read once at startup. Required values may
// be empty here; Resolve decides whether the service is ready.
type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Identity provider
	IdentityFile     string        // YAML operator directory
	TokenSecret      string        // HS256 signing secret
	TokenTTL         time.Duration // credential lifetime
	AdminAllowlist   []string      // subject ids, empty = open registration
	ClaimCheck       bool          // enable the claim policy (default false)
	ClaimName        string        // ex: "role"
	ClaimValue       string        // ex: "admin"
	AuthCheckTimeout time.Duration // budget for one policy evaluation

	// Redis (object store and default document store)
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

	// Object store
	ObjectPublicURL    string        // base URL of download links (ex: https://banners.domain.ext)
	ObjectPublicRead   bool          // objects are publicly readable
	ObjectPrefix       string        // object path prefix
	DownloadURLTimeout time.Duration // budget for resolving a download URL

	// Document store
	DocStore    string // "redis" | "sqlite" | "postgres"
	DocStoreDSN string // gorm DSN for sqlite/postgres
	Collection  string // record collection name
	SeedFile    string // optional YAML seed override

	// Schedulers
	DirectoryReloadInterval time.Duration
	IdentityWatch           bool // reload the directory when the file changes
	PreviewTTL              time.Duration
	PreviewGCInterval       time.Duration

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // optional, allowed CORS origins

	SignInBurst        int // sign-in rate limit bucket size
	SignInRefillPerMin int // sign-in tokens refilled per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BANNERS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BANNERS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("BANNERS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BANNERS_PRETTY_LOG", true),

		// Identity
		IdentityFile:     getenv("BANNERS_IDENTITY_FILE", ""),
		TokenSecret:      getenv("BANNERS_TOKEN_SECRET", ""),
		TokenTTL:         mustDuration("BANNERS_TOKEN_TTL", time.Hour),
		AdminAllowlist:   splitAndTrim(getenv("BANNERS_ADMIN_ALLOWLIST", "")),
		ClaimCheck:       mustBool("BANNERS_CLAIM_CHECK", false),
		ClaimName:        getenv("BANNERS_CLAIM_NAME", "role"),
		ClaimValue:       getenv("BANNERS_CLAIM_VALUE", "admin"),
		AuthCheckTimeout: mustDuration("BANNERS_AUTH_CHECK_TIMEOUT", 10*time.Second),

		// Redis settings
		RedisAddr:           getenv("BANNERS_REDIS_ADDR", ""),
		RedisUser:           getenv("BANNERS_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("BANNERS_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("BANNERS_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Object store
		ObjectPublicURL:    strings.TrimRight(getenv("BANNERS_OBJECT_PUBLIC_URL", ""), "/"),
		ObjectPublicRead:   mustBool("BANNERS_OBJECT_PUBLIC_READ", true),
		ObjectPrefix:       strings.Trim(getenv("BANNERS_OBJECT_PREFIX", "banners"), "/"),
		DownloadURLTimeout: mustDuration("BANNERS_DOWNLOAD_URL_TIMEOUT", 10*time.Second),

		// Document store
		DocStore:    strings.ToLower(getenv("BANNERS_DOCSTORE", DocStoreRedis)),
		DocStoreDSN: getenv("BANNERS_DOCSTORE_DSN", ""),
		Collection:  getenv("BANNERS_COLLECTION", "banners"),
		SeedFile:    getenv("BANNERS_SEED_FILE", ""),

		// Schedulers
		DirectoryReloadInterval: mustDuration("BANNERS_DIRECTORY_RELOAD_INTERVAL", time.Hour),
		IdentityWatch:           mustBool("BANNERS_IDENTITY_WATCH", true),
		PreviewTTL:              mustDuration("BANNERS_PREVIEW_TTL", time.Hour),
		PreviewGCInterval:       mustDuration("BANNERS_PREVIEW_GC_INTERVAL", 10*time.Minute),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("BANNERS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("BANNERS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BANNERS_TRUST_PROXY", true),
		CORSOrigins:  splitAndTrim(getenv("BANNERS_CORS_ORIGINS", "")),

		SignInBurst:        getenvInt("BANNERS_SIGNIN_BURST", 5),
		SignInRefillPerMin: getenvInt("BANNERS_SIGNIN_REFILL_PER_MIN", 10),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.TokenSecret != "" {
		cp.TokenSecret = redacted
	}
	if cp.DocStoreDSN != "" {
		cp.DocStoreDSN = redacted
	}
	return cp
}

const redacted = "***REDACTED***"

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
