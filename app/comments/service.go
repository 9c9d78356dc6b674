package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/comment-comb/app/feed"
	"github.com/lysyi3m/comment-comb/app/upstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("comment-comb/comments")

type Source string

const (
	SourceFeed    Source = "feed"
	SourceListing Source = "json"
)

type Result struct {
	Comments []feed.Comment
	Source   Source
}

type Options struct {
	Fetcher       upstream.Fetcher
	FeedParser    *feed.Parser
	ListingParser *feed.ListingParser
	PrimaryHost   string
	SecondaryHost string
	// Cooldown separates the feed strategy from the listing strategy.
	Cooldown time.Duration
	// Timeout bounds a whole GetUserComments call when positive.
	Timeout time.Duration
	Sleep   upstream.SleepFunc
}

// Service retrieves a user's comments, falling back from the syndication
// feed to the JSON listing.
type Service struct {
	fetcher       upstream.Fetcher
	feedParser    *feed.Parser
	listingParser *feed.ListingParser
	primaryHost   string
	secondaryHost string
	cooldown      time.Duration
	timeout       time.Duration
	sleep         upstream.SleepFunc
}

func NewService(opts Options) *Service {
	s := &Service{
		fetcher:       opts.Fetcher,
		feedParser:    opts.FeedParser,
		listingParser: opts.ListingParser,
		primaryHost:   strings.TrimRight(opts.PrimaryHost, "/"),
		secondaryHost: strings.TrimRight(opts.SecondaryHost, "/"),
		cooldown:      opts.Cooldown,
		timeout:       opts.Timeout,
		sleep:         opts.Sleep,
	}

	if s.feedParser == nil {
		s.feedParser = feed.NewParser()
	}
	if s.listingParser == nil {
		s.listingParser = feed.NewListingParser()
	}
	if s.sleep == nil {
		s.sleep = upstream.Sleep
	}

	return s
}

func (s *Service) GetUserComments(ctx context.Context, username string, limit int) (*Result, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.tryMultipleApproaches(ctx, username, limit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("Comment lookup timed out", "username", username, "timeout", s.timeout)
			return nil, &TimeoutError{After: s.timeout}
		}
		return nil, err
	}

	slog.Info("Comments retrieved",
		"username", username,
		"source", result.Source,
		"count", len(result.Comments),
		"duration", time.Since(start))

	return result, nil
}

func (s *Service) tryMultipleApproaches(ctx context.Context, username string, limit int) (*Result, error) {
	ctx, span := tracer.Start(ctx, "comments:tryMultipleApproaches",
		trace.WithAttributes(attribute.String("username", username), attribute.Int("limit", limit)))
	defer span.End()

	comments, feedErr := s.fetchFromRSS(ctx, username, limit)
	if feedErr == nil {
		return &Result{Comments: comments, Source: SourceFeed}, nil
	}
	slog.Warn("Feed strategy failed, falling back to listing", "username", username, "error", feedErr)

	if err := s.sleep(ctx, s.cooldown); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cooldown interrupted")
		return nil, &AllApproachesFailedError{Username: username, Errs: []error{feedErr, err}}
	}

	comments, listingErr := s.fetchFromJSON(ctx, username, limit)
	if listingErr == nil {
		return &Result{Comments: comments, Source: SourceListing}, nil
	}
	slog.Error("Listing strategy failed", "username", username, "error", listingErr)

	err := &AllApproachesFailedError{Username: username, Errs: []error{feedErr, listingErr}}
	span.RecordError(err)
	span.SetStatus(codes.Error, "all approaches failed")
	return nil, err
}

func (s *Service) fetchFromRSS(ctx context.Context, username string, limit int) ([]feed.Comment, error) {
	body, err := s.get(ctx, s.feedURL(username))
	if err != nil {
		return nil, err
	}

	comments, err := s.feedParser.Run(body, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize feed: %w", err)
	}
	return comments, nil
}

func (s *Service) fetchFromJSON(ctx context.Context, username string, limit int) ([]feed.Comment, error) {
	body, err := s.get(ctx, s.listingURL(username, limit))
	if err != nil {
		return nil, err
	}

	comments, err := s.listingParser.Run(body, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize listing: %w", err)
	}
	return comments, nil
}

func (s *Service) get(ctx context.Context, target string) ([]byte, error) {
	if s.fetcher == nil {
		return nil, errors.New("no upstream fetcher configured")
	}

	resp, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	if !resp.OK() {
		return nil, &upstream.HTTPError{StatusCode: resp.StatusCode, StatusText: resp.StatusText}
	}
	return resp.Body, nil
}

func (s *Service) feedURL(username string) string {
	return fmt.Sprintf("%s/user/%s/comments/.rss", s.primaryHost, url.PathEscape(username))
}

func (s *Service) listingURL(username string, limit int) string {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")
	return fmt.Sprintf("%s/user/%s/comments.json?%s", s.secondaryHost, url.PathEscape(username), query.Encode())
}
