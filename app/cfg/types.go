package cfg

import "time"

type Cfg struct {
	// Server configuration
	Port                 string
	BaseUrl              string
	RequestTimeout       time.Duration
	CacheMaxAge          time.Duration
	StaleWhileRevalidate time.Duration
	DefaultLimit         int
	MaxLimit             int

	// Upstream configuration
	PrimaryHost        string
	SecondaryHost      string
	MinRequestInterval time.Duration
	Retries            int
	RetryBaseDelay     time.Duration
	StrategyCooldown   time.Duration
	HTTPTimeout        time.Duration
	FailFastForbidden  bool
	CloudflareBypass   bool
	UpstreamProfile    string

	// Application metadata
	LogFormat string
	Debug     bool
	Version   string
}
