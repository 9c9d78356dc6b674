package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port                 string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl              string        `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://comments.example.com)"`
	RequestTimeout       time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"15s" description:"Hard timeout for a whole comment lookup"`
	CacheMaxAge          time.Duration `long:"cache-max-age" env:"CACHE_MAX_AGE" default:"5m" description:"Public cache lifetime advertised on successful responses"`
	StaleWhileRevalidate time.Duration `long:"stale-while-revalidate" env:"STALE_WHILE_REVALIDATE" default:"10m" description:"stale-while-revalidate window advertised on successful responses"`
	DefaultLimit         int           `long:"default-limit" env:"DEFAULT_LIMIT" default:"25" description:"Number of comments returned when no limit is requested"`
	MaxLimit             int           `long:"max-limit" env:"MAX_LIMIT" default:"100" description:"Upper bound for the limit query parameter"`

	// Upstream configuration
	PrimaryHost        string        `long:"primary-host" env:"PRIMARY_HOST" default:"https://www.reddit.com" description:"Host serving the syndication feed"`
	SecondaryHost      string        `long:"secondary-host" env:"SECONDARY_HOST" default:"https://old.reddit.com" description:"Host serving the JSON listing"`
	MinRequestInterval time.Duration `long:"min-request-interval" env:"MIN_REQUEST_INTERVAL" default:"2s" description:"Minimum delay between outbound requests"`
	Retries            int           `long:"retries" env:"FETCH_RETRIES" default:"3" description:"Attempts per outbound request"`
	RetryBaseDelay     time.Duration `long:"retry-base-delay" env:"RETRY_BASE_DELAY" default:"1s" description:"Base delay for exponential backoff"`
	StrategyCooldown   time.Duration `long:"strategy-cooldown" env:"STRATEGY_COOLDOWN" default:"1s" description:"Pause between the feed and JSON strategies"`
	HTTPTimeout        time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"10s" description:"Timeout for a single outbound attempt"`
	FailFastForbidden  bool          `long:"fail-fast-forbidden" env:"FAIL_FAST_FORBIDDEN" description:"Stop retrying as soon as the upstream answers 403"`
	CloudflareBypass   string        `long:"cloudflare-bypass" env:"CLOUDFLARE_BYPASS" default:"true" choice:"true" choice:"false" description:"Wrap the outbound transport with browser-like TLS settings"`
	UpstreamProfile    string        `long:"upstream-profile" env:"UPSTREAM_PROFILE" description:"Optional YAML file with user agents, headers and hosts"`

	// Application metadata
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses the given arguments together with the environment.
// It returns nil, nil when help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                 raw.Port,
		BaseUrl:              raw.BaseUrl,
		RequestTimeout:       raw.RequestTimeout,
		CacheMaxAge:          raw.CacheMaxAge,
		StaleWhileRevalidate: raw.StaleWhileRevalidate,
		DefaultLimit:         raw.DefaultLimit,
		MaxLimit:             raw.MaxLimit,
		PrimaryHost:          raw.PrimaryHost,
		SecondaryHost:        raw.SecondaryHost,
		MinRequestInterval:   raw.MinRequestInterval,
		Retries:              raw.Retries,
		RetryBaseDelay:       raw.RetryBaseDelay,
		StrategyCooldown:     raw.StrategyCooldown,
		HTTPTimeout:          raw.HTTPTimeout,
		FailFastForbidden:    raw.FailFastForbidden,
		CloudflareBypass:     raw.CloudflareBypass == "true",
		UpstreamProfile:      raw.UpstreamProfile,
		LogFormat:            raw.LogFormat,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	requiredHosts := map[string]string{
		"primary host":   cfg.PrimaryHost,
		"secondary host": cfg.SecondaryHost,
	}

	for fieldName, fieldValue := range requiredHosts {
		u, err := url.Parse(fieldValue)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", fieldName, fieldValue)
		}
	}

	positiveFields := map[string]int{
		"retries":       cfg.Retries,
		"default limit": cfg.DefaultLimit,
		"max limit":     cfg.MaxLimit,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue < 1 {
			return fmt.Errorf("%s must be at least 1", fieldName)
		}
	}

	if cfg.DefaultLimit > cfg.MaxLimit {
		return fmt.Errorf("default limit %d exceeds max limit %d", cfg.DefaultLimit, cfg.MaxLimit)
	}

	nonNegativeDurations := map[string]time.Duration{
		"request timeout":        cfg.RequestTimeout,
		"min request interval":   cfg.MinRequestInterval,
		"retry base delay":       cfg.RetryBaseDelay,
		"strategy cooldown":      cfg.StrategyCooldown,
		"http timeout":           cfg.HTTPTimeout,
		"cache max age":          cfg.CacheMaxAge,
		"stale while revalidate": cfg.StaleWhileRevalidate,
	}

	for fieldName, fieldValue := range nonNegativeDurations {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
