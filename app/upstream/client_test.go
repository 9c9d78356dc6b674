package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClient struct {
	client  *Client
	clock   *fakeClock
	backoff *fakeClock
}

func newTestClient(policy RetryPolicy) testClient {
	clock := newFakeClock()
	backoff := newFakeClock()

	pacer := NewPacer(2*time.Second, WithClock(clock), WithSleep(clock.Sleep))
	client := NewClient(ClientOptions{
		Pacer:  pacer,
		Policy: policy,
		Sleep: func(ctx context.Context, d time.Duration) error {
			// backoff waits also move the pacing clock forward
			clock.Advance(d)
			return backoff.Sleep(ctx, d)
		},
		Timeout: 5 * time.Second,
	})

	return testClient{client: client, clock: clock, backoff: backoff}
}

func TestClientFetchSuccess(t *testing.T) {
	var gotUserAgent, gotLanguage, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotLanguage = r.Header.Get("Accept-Language")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("<feed></feed>"))
	}))
	defer server.Close()

	tc := newTestClient(DefaultRetryPolicy())

	res, err := tc.client.Fetch(context.Background(), server.URL+"/user/spez/comments/.rss")
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Equal(t, "<feed></feed>", string(res.Body))

	require.True(t, slices.Contains(defaultUserAgents, gotUserAgent), "unexpected user agent %q", gotUserAgent)
	require.Equal(t, "en-US,en;q=0.9", gotLanguage)
	require.Equal(t, "https://www.reddit.com/", gotReferer)
	require.Empty(t, tc.backoff.Sleeps())
}

func TestClientFetchExhaustsRetries(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusInternalServerError} {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(status)
		}))

		tc := newTestClient(DefaultRetryPolicy())
		_, err := tc.client.Fetch(context.Background(), server.URL)
		server.Close()

		require.Error(t, err)
		require.EqualValues(t, 3, hits.Load(), "status %d", status)
		require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, tc.backoff.Sleeps(), "status %d", status)

		var exhausted *FetchExhaustedError
		require.True(t, errors.As(err, &exhausted))
		require.Equal(t, 3, exhausted.Retries)
		require.Equal(t, server.URL, exhausted.URL)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		require.Equal(t, status, httpErr.StatusCode)
	}
}

func TestClientFetchRecoversAfterFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer server.Close()

	tc := newTestClient(DefaultRetryPolicy())

	res, err := tc.client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"children":[]}}`, string(res.Body))
	require.EqualValues(t, 2, hits.Load())
	require.Equal(t, []time.Duration{time.Second}, tc.backoff.Sleeps())

	// 1s of backoff already elapsed, the pacer only waits for the rest
	require.Equal(t, []time.Duration{time.Second}, tc.clock.Sleeps())
}

func TestClientFetchFailFastForbidden(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	policy := DefaultRetryPolicy()
	policy.FailFastForbidden = true
	tc := newTestClient(policy)

	_, err := tc.client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, IsForbidden(err))
	require.EqualValues(t, 1, hits.Load())

	var exhausted *FetchExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, 1, exhausted.Retries)
}

func TestClientFetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tc := newTestClient(DefaultRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tc.client.Fetch(ctx, server.URL)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClientUsesProfileUserAgents(t *testing.T) {
	var gotUserAgent, gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
	}))
	defer server.Close()

	profile := DefaultProfile()
	profile.UserAgents = []string{"agent-a", "agent-b"}
	profile.Headers["X-Custom"] = "yes"

	client := NewClient(ClientOptions{
		Pacer:         NewPacer(0),
		Profile:       profile,
		PickUserAgent: func(agents []string) string { return agents[len(agents)-1] },
	})

	_, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "agent-b", gotUserAgent)
	require.Equal(t, "yes", gotCustom)
}
