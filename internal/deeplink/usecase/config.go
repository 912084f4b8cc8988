package usecase

import (
	"net/url"
	"strings"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultTTL             = 14 * 24 * time.Hour
	MaxTTL                 = 60 * 24 * time.Hour
	MinTTL                 = 5 * time.Minute
	DefaultRequestLimit    = 60
	DefaultRateLimitWindow = time.Minute
)

// Config holds the tunables shared by the deep-link use cases.
type Config struct {
	// BaseURL is the public origin links are built on, e.g. https://easymo.link.
	BaseURL string

	DefaultTTL time.Duration
	MaxTTL     time.Duration

	ResolveLimit    int
	BootstrapLimit  int
	RateLimitWindow time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = MaxTTL
	}
	if c.ResolveLimit <= 0 {
		c.ResolveLimit = DefaultRequestLimit
	}
	if c.BootstrapLimit <= 0 {
		c.BootstrapLimit = DefaultRequestLimit
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// now returns the current time in UTC.
func (c Config) now() time.Time {
	return c.Now().UTC()
}

// linkURL is the landing page URL carrying token.
func (c Config) linkURL(token string) string {
	return c.BaseURL + "/deeplink?t=" + url.QueryEscape(token)
}

// ttl resolves the requested lifetime in minutes: nil means the default,
// anything else is clamped to [MinTTL, MaxTTL].
func (c Config) ttl(requestedMinutes *int) time.Duration {
	if requestedMinutes == nil {
		return min(c.DefaultTTL, c.MaxTTL)
	}
	// Clamp in whole minutes so large requests cannot overflow the Duration.
	minutes := min(max(int64(*requestedMinutes), int64(MinTTL/time.Minute)), int64(c.MaxTTL/time.Minute))
	return time.Duration(minutes) * time.Minute
}
