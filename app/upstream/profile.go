package upstream

import (
	"fmt"
	"maps"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.2420.81",
}

// Accept-Encoding is left to the transport so responses stay transparently decompressed.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Cache-Control":             "no-cache",
	"DNT":                       "1",
	"Pragma":                    "no-cache",
	"Referer":                   "https://www.reddit.com/",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Upgrade-Insecure-Requests": "1",
}

// Profile describes how outbound requests present themselves to the upstream.
type Profile struct {
	PrimaryHost   string            `yaml:"primary_host"`
	SecondaryHost string            `yaml:"secondary_host"`
	UserAgents    []string          `yaml:"user_agents"`
	Headers       map[string]string `yaml:"headers"`
}

func DefaultProfile() *Profile {
	return &Profile{
		UserAgents: append([]string(nil), defaultUserAgents...),
		Headers:    maps.Clone(defaultHeaders),
	}
}

// LoadProfile reads a YAML profile. Missing fields keep their defaults and
// headers are merged over the default header set.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw Profile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	profile := DefaultProfile()
	profile.PrimaryHost = raw.PrimaryHost
	profile.SecondaryHost = raw.SecondaryHost
	if len(raw.UserAgents) > 0 {
		profile.UserAgents = raw.UserAgents
	}
	for k, v := range raw.Headers {
		profile.Headers[k] = v
	}

	if err := profile.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return profile, nil
}

// RequestHeaders returns the header set for one attempt.
func (p *Profile) RequestHeaders(userAgent string) map[string]string {
	headers := maps.Clone(p.Headers)
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers["User-Agent"] = userAgent
	return headers
}

func (p *Profile) validate() error {
	hosts := map[string]string{
		"primary_host":   p.PrimaryHost,
		"secondary_host": p.SecondaryHost,
	}

	for fieldName, fieldValue := range hosts {
		if fieldValue == "" {
			continue
		}
		u, err := url.Parse(fieldValue)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", fieldName, fieldValue)
		}
	}

	for i, ua := range p.UserAgents {
		if ua == "" {
			return fmt.Errorf("user agent at index %d is empty", i)
		}
	}

	return nil
}
