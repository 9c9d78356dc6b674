package api

import (
	"context"
	"time"

	"github.com/lysyi3m/comment-comb/app/comments"
	"github.com/lysyi3m/comment-comb/app/feed"
)

type CommentService interface {
	GetUserComments(ctx context.Context, username string, limit int) (*comments.Result, error)
}

var _ CommentService = (*comments.Service)(nil)

type GeneratorInterface interface {
	Run(username, selfLink string, comments []feed.Comment) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Settings struct {
	BaseUrl              string
	Port                 string
	Version              string
	DefaultLimit         int
	MaxLimit             int
	CacheMaxAge          time.Duration
	StaleWhileRevalidate time.Duration
}

type Handler struct {
	service   CommentService
	generator GeneratorInterface
	settings  Settings
}

type CommentsResponse struct {
	Comments []feed.Comment `json:"comments"`
}

// ErrorResponse keeps the comments field so clients can treat failures
// like an empty result.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Message  string         `json:"message"`
	Comments []feed.Comment `json:"comments"`
}
