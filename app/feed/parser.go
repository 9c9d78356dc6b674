package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

var titlePattern = regexp.MustCompile(`(?s)^/u/\S+\s+on\s+(.+)$`)

type entryCategory struct {
	Term  string
	Label string
}

// feedEntry is the format-neutral view of one Atom entry or RSS item.
type feedEntry struct {
	ID            string
	Title         string
	Permalink     string
	Updated       string
	UpdatedParsed *time.Time
	Categories    []entryCategory
	Content       Content
}

// Parser normalizes a user's comment feed into Comment records.
type Parser struct {
	atomParser   *atom.Parser
	gofeedParser *gofeed.Parser
	opts         options
}

func NewParser(opts ...Option) *Parser {
	return &Parser{
		atomParser:   &atom.Parser{},
		gofeedParser: gofeed.NewParser(),
		opts:         newOptions(opts),
	}
}

// Run returns at most limit records in document order. Entries that
// cannot be normalized are skipped and do not count toward the limit.
func (p *Parser) Run(data []byte, limit int) ([]Comment, error) {
	entries, err := p.entries(data)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, min(len(entries), max(limit, 0)))
	if limit <= 0 {
		return comments, nil
	}

	ids := newIDSource(p.opts.token)
	for i, entry := range entries {
		if len(comments) >= limit {
			break
		}

		comment, err := p.normalizeEntry(entry, ids)
		if err != nil {
			slog.Warn("Skipping malformed entry", "index", i, "error", err)
			continue
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

func (p *Parser) entries(data []byte) ([]*feedEntry, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeAtom:
		doc, err := p.atomParser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, &FeedParseError{Err: err}
		}
		return fromAtom(doc), nil
	case gofeed.FeedTypeRSS:
		doc, err := p.gofeedParser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, &FeedParseError{Err: err}
		}
		return fromRSS(doc), nil
	default:
		if err := checkWellFormed(data); err != nil {
			return nil, &FeedParseError{Err: err}
		}
		slog.Warn("Feed document has no entries container")
		return nil, nil
	}
}

func checkWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	sawRoot := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := token.(xml.StartElement); ok {
			sawRoot = true
		}
	}

	if !sawRoot {
		return errors.New("document has no root element")
	}
	return nil
}

func fromAtom(doc *atom.Feed) []*feedEntry {
	entries := make([]*feedEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e == nil {
			entries = append(entries, nil)
			continue
		}

		entry := &feedEntry{
			ID:            e.ID,
			Title:         e.Title,
			Permalink:     atomPermalink(e.Links),
			Updated:       e.Updated,
			UpdatedParsed: e.UpdatedParsed,
		}
		for _, c := range e.Categories {
			if c != nil {
				entry.Categories = append(entry.Categories, entryCategory{Term: c.Term, Label: c.Label})
			}
		}
		if e.Content != nil {
			entry.Content = Content{Kind: ContentStructured, Type: e.Content.Type, Value: e.Content.Value}
		}
		entries = append(entries, entry)
	}
	return entries
}

func atomPermalink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil || l.Href == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
		first = cmp.Or(first, l.Href)
	}
	return first
}

func fromRSS(doc *gofeed.Feed) []*feedEntry {
	entries := make([]*feedEntry, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item == nil {
			entries = append(entries, nil)
			continue
		}

		entry := &feedEntry{
			ID:            cmp.Or(item.GUID, item.Link),
			Title:         item.Title,
			Permalink:     item.Link,
			Updated:       cmp.Or(item.Updated, item.Published),
			UpdatedParsed: cmp.Or(item.UpdatedParsed, item.PublishedParsed),
		}
		// RSS categories carry a single string, matched like an Atom label.
		for _, c := range item.Categories {
			entry.Categories = append(entry.Categories, entryCategory{Term: c, Label: c})
		}
		if body := cmp.Or(item.Content, item.Description); body != "" {
			entry.Content = Content{Kind: ContentPlain, Value: body}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (p *Parser) normalizeEntry(entry *feedEntry, ids *idSource) (Comment, error) {
	if entry == nil {
		return Comment{}, errors.New("entry is empty")
	}

	parentID, linkID, err := permalinkIDs(entry.Permalink)
	if err != nil {
		return Comment{}, err
	}

	comment := Comment{
		Body:       ExtractContent(entry.Content),
		Subreddit:  subreddit(entry.Categories),
		ParentID:   parentID,
		LinkID:     linkID,
		LinkTitle:  linkTitle(entry.Title),
		CreatedUTC: p.timestamp(entry),
	}

	if id := lastSegment(entry.ID); id != "" {
		ids.reserve(id)
		comment.ID = id
	} else {
		comment.ID, err = ids.next()
		if err != nil {
			return Comment{}, err
		}
	}

	return comment, nil
}

func lastSegment(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return strings.TrimSpace(id)
}

func subreddit(categories []entryCategory) string {
	for _, c := range categories {
		if name, ok := strings.CutPrefix(c.Label, "r/"); ok && name != "" {
			return name
		}
	}
	return UnknownSubreddit
}

func linkTitle(title string) string {
	if m := titlePattern.FindStringSubmatch(strings.TrimSpace(title)); m != nil {
		return strings.Join(strings.Fields(m[1]), " ")
	}
	return ""
}

// permalinkIDs derives parent and thread ids from the comment permalink.
// Best-effort: the parent is assumed to be the last path segment and the
// thread three segments from the end.
func permalinkIDs(permalink string) (string, string, error) {
	if permalink == "" {
		return "", "", nil
	}

	u, err := url.Parse(permalink)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse permalink: %w", err)
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) < 3 {
		return "", "", nil
	}

	return KindComment + segments[len(segments)-1], KindPost + segments[len(segments)-3], nil
}

func (p *Parser) timestamp(entry *feedEntry) int64 {
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.Unix()
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Updated)); err == nil {
		return t.Unix()
	}
	return p.opts.now().Unix()
}
