package feed

import (
	"time"

	"github.com/mazen160/go-random"
)

const (
	NoContent           = "[No content]"
	UnrecognizedContent = "[Content format not recognized]"
	UnknownSubreddit    = "unknown"

	// Kind prefixes of upstream composite identifiers.
	KindComment = "t1_"
	KindPost    = "t3_"
)

// Comment is the normalized record produced by both payload paths.
type Comment struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	Subreddit  string `json:"subreddit"`
	ParentID   string `json:"parent_id"`
	LinkID     string `json:"link_id"`
	LinkTitle  string `json:"link_title,omitempty"`
	ParentBody string `json:"parent_body,omitempty"`
	CreatedUTC int64  `json:"created_utc"`
}

type ContentKind int

const (
	ContentMissing ContentKind = iota
	ContentStructured
	ContentPlain
)

// Content is the body of a feed entry as found in the payload: absent,
// a typed content element, or a bare string.
type Content struct {
	Kind  ContentKind
	Type  string
	Value string
}

type Option func(*options)

type options struct {
	now   func() time.Time
	token TokenFunc
}

// TokenFunc returns n random characters from the id alphabet.
type TokenFunc func(n int) (string, error)

func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithTokens replaces the source used for synthesized ids.
func WithTokens(token TokenFunc) Option {
	return func(o *options) {
		o.token = token
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		token: randomToken,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func randomToken(n int) (string, error) {
	return random.Random(n, idAlphabet, false)
}
