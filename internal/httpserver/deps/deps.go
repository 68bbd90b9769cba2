package deps

import (
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/repository"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time        // for testing, defaults to time.Now
	Repo           repository.Repository   // bookmark persistence
	Backend        string                  // "redis" | "memory"
	Metrics        *metrics.Metrics        // Prometheus collectors (nil disables /metrics)
	AllowedOrigins []string                // CORS origins
	AdminCIDRS     []string                // IPs allowed to reach /metrics and /reload (empty = any)
	TrustProxy     bool                    // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimit      float64                 // mutating requests per second per IP (0 = disabled)
	RateBurst      int                     // bucket size per IP
	RateIdleTTL    time.Duration           // forget idle buckets after this long
	Seed           *scheduler.SeedImporter // nil if no seed file is configured
	SeedTrigger    chan struct{}           // Channel to trigger a manual seed import (nil if disabled)
}

// Now returns TimeNow(), or the wall clock when TimeNow is unset.
func (d Deps) Now() time.Time {
	if d.TimeNow == nil {
		return time.Now()
	}
	return d.TimeNow()
}
