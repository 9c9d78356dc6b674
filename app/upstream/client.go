package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("comment-comb/upstream")

type Response struct {
	StatusCode int
	StatusText string
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs a paced, retried GET against the upstream.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

var _ Fetcher = (*Client)(nil)

type ClientOptions struct {
	Pacer            *Pacer
	Policy           RetryPolicy
	Profile          *Profile
	Timeout          time.Duration
	CloudflareBypass bool
	// Sleep is used for backoff waits; defaults to Sleep.
	Sleep SleepFunc
	// PickUserAgent chooses one agent per attempt; defaults to random.ChoiceInsecure.
	PickUserAgent func(agents []string) string
}

type Client struct {
	http    *resty.Client
	pacer   *Pacer
	policy  RetryPolicy
	profile *Profile
	sleep   SleepFunc
	pick    func(agents []string) string
}

func NewClient(opts ClientOptions) *Client {
	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.CloudflareBypass {
		client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))
	}

	c := &Client{
		http:    client,
		pacer:   opts.Pacer,
		policy:  opts.Policy,
		profile: opts.Profile,
		sleep:   opts.Sleep,
		pick:    opts.PickUserAgent,
	}

	if c.pacer == nil {
		c.pacer = NewPacer(2 * time.Second)
	}
	if c.policy.Attempts < 1 {
		c.policy = DefaultRetryPolicy()
	}
	if c.profile == nil {
		c.profile = DefaultProfile()
	}
	if c.sleep == nil {
		c.sleep = Sleep
	}
	if c.pick == nil {
		c.pick = random.ChoiceInsecure
	}

	return c
}

// Fetch issues a GET with browser-like headers, waiting for the pacer before
// every attempt and backing off exponentially between failed attempts.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "upstream:Fetch", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	state := newRetryState(c.policy)
	var lastErr error

	for {
		res, err := c.attempt(ctx, url)
		if err == nil {
			span.SetAttributes(attribute.Int("attempts", state.attempt+1))
			return res, nil
		}
		lastErr = err

		delay, again := state.next(err)
		slog.Warn("Upstream attempt failed",
			"url", url,
			"attempt", state.attempt,
			"max_attempts", c.policy.Attempts,
			"error", err)

		if ctx.Err() != nil || !again {
			break
		}

		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	exhausted := &FetchExhaustedError{URL: url, Retries: state.attempt, Err: lastErr}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "fetch exhausted")

	return nil, exhausted
}

func (c *Client) attempt(ctx context.Context, url string) (*Response, error) {
	release, err := c.pacer.AwaitTurn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	userAgent := c.userAgent()
	slog.Debug("Upstream request", "url", url, "user_agent", userAgent)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.profile.RequestHeaders(userAgent)).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	status := res.StatusCode()
	out := &Response{
		StatusCode: status,
		StatusText: http.StatusText(status),
		Body:       res.Body(),
	}

	if status == http.StatusForbidden {
		slog.Warn("Upstream refused request", "status", status, "url", url, "user_agent", userAgent)
	}

	if !out.OK() {
		return nil, &HTTPError{StatusCode: status, StatusText: out.StatusText}
	}

	return out, nil
}

func (c *Client) userAgent() string {
	agents := c.profile.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return c.pick(agents)
}
