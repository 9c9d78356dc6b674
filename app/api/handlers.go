package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/comment-comb/app/comments"
	"github.com/lysyi3m/comment-comb/app/feed"
)

func NewHandler(service CommentService, generator GeneratorInterface, settings Settings) *Handler {
	if settings.DefaultLimit < 1 {
		settings.DefaultLimit = 25
	}
	if settings.MaxLimit < settings.DefaultLimit {
		settings.MaxLimit = settings.DefaultLimit
	}

	return &Handler{
		service:   service,
		generator: generator,
		settings:  settings,
	}
}

func (h *Handler) GetComments(c *gin.Context) {
	username := c.Query("username")
	limit, err := h.parseLimit(c.Query("limit"))
	if err != nil {
		h.badRequest(c, "Invalid limit", err)
		return
	}

	result, err := h.service.GetUserComments(c.Request.Context(), username, limit)
	if err != nil {
		status, body := h.failure(username, err)
		c.JSON(status, body)
		return
	}

	h.setCacheHeaders(c)
	c.Header("X-Comment-Source", string(result.Source))
	c.Header("X-Comment-Count", strconv.Itoa(len(result.Comments)))

	c.JSON(http.StatusOK, CommentsResponse{Comments: nonNil(result.Comments)})
}

func (h *Handler) GetCommentsRSS(c *gin.Context) {
	username := c.Query("username")
	limit, err := h.parseLimit(c.Query("limit"))
	if err != nil {
		h.badRequest(c, "Invalid limit", err)
		return
	}

	status := http.StatusOK
	var records []feed.Comment

	result, err := h.service.GetUserComments(c.Request.Context(), username, limit)
	if err != nil {
		status, _ = h.failure(username, err)
		if status == http.StatusBadRequest {
			c.Status(status)
			return
		}
	} else {
		records = result.Comments
		h.setCacheHeaders(c)
		c.Header("X-Comment-Source", string(result.Source))
	}

	rss, err := h.generator.Run(username, h.selfLink(username), records)
	if err != nil {
		slog.Error("RSS generation error", "username", username, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Comment-Count", strconv.Itoa(len(records)))
	c.String(status, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.settings.Version,
	})
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Comment Comb",
		"version":     h.settings.Version,
		"description": "Normalized recent comments for a public user",
		"endpoints": map[string]string{
			"comments": "/comments?username=<name>&limit=<n>",
			"rss":      "/comments.rss?username=<name>&limit=<n>",
			"health":   "/health",
		},
	})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.settings.DefaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", raw)
	}

	return min(max(limit, 1), h.settings.MaxLimit), nil
}

func (h *Handler) failure(username string, err error) (int, ErrorResponse) {
	var invalid *comments.InvalidUsernameError
	if errors.As(err, &invalid) || errors.Is(err, comments.ErrInvalidLimit) {
		return http.StatusBadRequest, ErrorResponse{
			Error:    "Invalid request",
			Message:  err.Error(),
			Comments: []feed.Comment{},
		}
	}

	var timeout *comments.TimeoutError
	if errors.As(err, &timeout) {
		slog.Error("Comment lookup timed out", "username", username, "error", err)
		return http.StatusInternalServerError, ErrorResponse{
			Error:    "Request timed out",
			Message:  err.Error(),
			Comments: []feed.Comment{},
		}
	}

	slog.Error("Comment lookup failed", "username", username, "error", err)
	return http.StatusInternalServerError, ErrorResponse{
		Error:    "Failed to fetch comments",
		Message:  err.Error(),
		Comments: []feed.Comment{},
	}
}

func (h *Handler) badRequest(c *gin.Context, title string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:    title,
		Message:  err.Error(),
		Comments: []feed.Comment{},
	})
}

func (h *Handler) setCacheHeaders(c *gin.Context) {
	maxAge := int(h.settings.CacheMaxAge.Seconds())
	stale := int(h.settings.StaleWhileRevalidate.Seconds())
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d", maxAge, maxAge, stale))
}

func (h *Handler) selfLink(username string) string {
	path := "/comments.rss?username=" + url.QueryEscape(username)
	if h.settings.BaseUrl != "" {
		return h.settings.BaseUrl + path
	}
	return fmt.Sprintf("http://localhost:%s%s", h.settings.Port, path)
}

func nonNil(records []feed.Comment) []feed.Comment {
	if records == nil {
		return []feed.Comment{}
	}
	return records
}
