package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
)

// listingItem is the subset of a listing child's data that maps onto a
// Comment. Absent or mistyped fields stay nil.
type listingItem struct {
	ID         *string
	Body       *string
	Subreddit  *string
	ParentID   *string
	LinkID     *string
	LinkTitle  *string
	CreatedUTC *float64
}

// ListingParser normalizes a JSON comment listing into Comment records.
type ListingParser struct {
	opts options
}

func NewListingParser(opts ...Option) *ListingParser {
	return &ListingParser{opts: newOptions(opts)}
}

// Run returns at most limit records. A payload without a data.children
// array yields an empty list.
func (p *ListingParser) Run(data []byte, limit int) ([]Comment, error) {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &ListingParseError{Err: err}
	}

	children, ok := listingChildren(data)
	if !ok {
		slog.Warn("Listing has no children array")
		return []Comment{}, nil
	}

	comments := make([]Comment, 0, min(len(children), max(limit, 0)))
	if limit <= 0 {
		return comments, nil
	}

	ids := newIDSource(p.opts.token)
	for i, raw := range children {
		if len(comments) >= limit {
			break
		}

		item, err := decodeListingItem(raw)
		if err == nil {
			var comment Comment
			if comment, err = p.normalizeItem(item, ids); err == nil {
				comments = append(comments, comment)
				continue
			}
		}
		slog.Warn("Skipping malformed listing item", "index", i, "error", err)
	}

	for i := range comments {
		enrich(&comments[i])
	}

	return comments, nil
}

func listingChildren(data []byte) ([]json.RawMessage, bool) {
	root, ok := object(data)
	if !ok {
		return nil, false
	}
	listing, ok := object(root["data"])
	if !ok {
		return nil, false
	}

	raw := bytes.TrimSpace(listing["children"])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var children []json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, false
	}
	return children, true
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

func decodeListingItem(raw json.RawMessage) (*listingItem, error) {
	child, ok := object(raw)
	if !ok {
		return nil, errors.New("child is not an object")
	}
	fields, ok := object(child["data"])
	if !ok {
		return nil, errors.New("child has no data object")
	}

	// Fields are decoded one by one; a mistyped field is treated as absent.
	item := &listingItem{
		ID:         field[string](fields, "id"),
		Body:       field[string](fields, "body"),
		Subreddit:  field[string](fields, "subreddit"),
		ParentID:   field[string](fields, "parent_id"),
		LinkID:     field[string](fields, "link_id"),
		LinkTitle:  field[string](fields, "link_title"),
		CreatedUTC: field[float64](fields, "created_utc"),
	}
	return item, nil
}

func field[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	var value *T
	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Debug("Ignoring mistyped listing field", "field", key, "error", err)
		return nil
	}
	return value
}

func (p *ListingParser) normalizeItem(item *listingItem, ids *idSource) (Comment, error) {
	comment := Comment{
		Body:      cmp.Or(deref(item.Body), NoContent),
		Subreddit: cmp.Or(deref(item.Subreddit), UnknownSubreddit),
		ParentID:  deref(item.ParentID),
		LinkID:    deref(item.LinkID),
		LinkTitle: deref(item.LinkTitle),
	}

	if id := deref(item.ID); id != "" {
		ids.reserve(id)
		comment.ID = id
	} else {
		id, err := ids.next()
		if err != nil {
			return Comment{}, err
		}
		comment.ID = id
	}

	if item.CreatedUTC != nil && *item.CreatedUTC > 0 && !math.IsInf(*item.CreatedUTC, 0) {
		comment.CreatedUTC = int64(*item.CreatedUTC)
	} else {
		comment.CreatedUTC = p.opts.now().Unix()
	}

	return comment, nil
}

// enrich fills placeholder parent descriptions from the parent kind.
func enrich(c *Comment) {
	if suffix, ok := strings.CutPrefix(c.ParentID, KindPost); ok && c.LinkTitle == "" {
		c.LinkTitle = "Post: " + suffix
	}
	if suffix, ok := strings.CutPrefix(c.ParentID, KindComment); ok && c.ParentBody == "" {
		c.ParentBody = "Comment: " + suffix
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
