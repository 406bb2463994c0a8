package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/config"
	"github.com/MrSnakeDoc/banners/internal/console"
	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/records"
	"github.com/MrSnakeDoc/banners/internal/staging"
	redisstore "github.com/MrSnakeDoc/banners/internal/store/redis"
)

// Credentials issues and checks the per sign-in session credential.
type Credentials interface {
	Credential() string
	VerifyCredential(token string) (auth.Identity, error)
}

// Pinger is a remote dependency the infra endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time         // for testing, defaults to time.Now
	AllowedHosts   []string                 // Host headers allowed to access the server
	AllowedCIDRS   []string                 // IPs allowed to access healthz/readyz endpoints
	TrustProxy     bool                     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins    []string                 // allowed CORS origins, empty disables CORS headers
	Descriptor     config.Descriptor        // resolved service descriptor
	RedisClient    *redis.Client            // nil when redis is not configured or unreachable
	Console        *console.Console         // operator console
	Credentials    Credentials              // session credentials of the identity provider
	Facade         *records.Facade          // record collection (infra status)
	Previews       *staging.PreviewRegistry // local image previews
	Objects        *redisstore.ObjectStore  // nil when the object store is not ready
	Documents      Pinger                   // SQL document store, nil for redis
	Operators      func() int               // operators in the identity directory
	ReloadTrigger  chan struct{}            // Channel to trigger a manual identity directory reload
	SignInLimit    SignInLimit              // rate limit for POST /api/session
	MaxUploadBytes int64                    // multipart body limit
}

// SignInLimit mirrors mw.RateLimitConfig without importing mw.
type SignInLimit struct {
	Burst        int
	RefillPerMin int
}
