package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/comment-comb/app/api"
	"github.com/lysyi3m/comment-comb/app/cfg"
	"github.com/lysyi3m/comment-comb/app/comments"
	"github.com/lysyi3m/comment-comb/app/feed"
	"github.com/lysyi3m/comment-comb/app/logging"
	"github.com/lysyi3m/comment-comb/app/upstream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c == nil {
		// Help was shown
		return nil
	}

	logging.Setup(c.LogFormat, c.Debug)
	slog.Info("Starting Comment Comb server", "version", c.Version)

	profile := upstream.DefaultProfile()
	if c.UpstreamProfile != "" {
		profile, err = upstream.LoadProfile(c.UpstreamProfile)
		if err != nil {
			return fmt.Errorf("failed to load upstream profile: %w", err)
		}
		slog.Info("Upstream profile loaded", "path", c.UpstreamProfile, "user_agents", len(profile.UserAgents))
	}

	client := upstream.NewClient(upstream.ClientOptions{
		Pacer: upstream.NewPacer(c.MinRequestInterval),
		Policy: upstream.RetryPolicy{
			Attempts:          c.Retries,
			BaseDelay:         c.RetryBaseDelay,
			FailFastForbidden: c.FailFastForbidden,
		},
		Profile:          profile,
		Timeout:          c.HTTPTimeout,
		CloudflareBypass: c.CloudflareBypass,
	})

	primaryHost := cmp.Or(profile.PrimaryHost, c.PrimaryHost)
	service := comments.NewService(comments.Options{
		Fetcher:       client,
		FeedParser:    feed.NewParser(),
		ListingParser: feed.NewListingParser(),
		PrimaryHost:   primaryHost,
		SecondaryHost: cmp.Or(profile.SecondaryHost, c.SecondaryHost),
		Cooldown:      c.StrategyCooldown,
		Timeout:       c.RequestTimeout,
	})

	handler := api.NewHandler(service, feed.NewGenerator(primaryHost, c.Version), api.Settings{
		BaseUrl:              c.BaseUrl,
		Port:                 c.Port,
		Version:              c.Version,
		DefaultLimit:         c.DefaultLimit,
		MaxLimit:             c.MaxLimit,
		CacheMaxAge:          c.CacheMaxAge,
		StaleWhileRevalidate: c.StaleWhileRevalidate,
	})

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: c.RequestTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening",
			"port", c.Port,
			"comments", fmt.Sprintf("http://localhost:%s/comments?username=<name>", c.Port),
			"rss", fmt.Sprintf("http://localhost:%s/comments.rss?username=<name>", c.Port))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		return err
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("Comment Comb server shutdown complete")
	return nil
}
