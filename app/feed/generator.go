package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders normalized comments as an RSS 2.0 document.
type Generator struct {
	siteURL string
	version string
	now     func() time.Time
}

func NewGenerator(siteURL, version string) *Generator {
	return &Generator{
		siteURL: strings.TrimRight(siteURL, "/"),
		version: version,
		now:     time.Now,
	}
}

func (g *Generator) Run(username, selfLink string, comments []Comment) (string, error) {
	if username == "" {
		return "", fmt.Errorf("failed to generate feed: username is empty")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", fmt.Sprintf("Comments by u/%s", username), 4)
	g.writeElement(&buf, "link", g.userLink(username), 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Recent comments posted by u/%s", username), 4)

	if selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	lastBuildDate := g.now().UTC()
	if len(comments) > 0 && comments[0].CreatedUTC > 0 {
		lastBuildDate = time.Unix(comments[0].CreatedUTC, 0).UTC()
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Comment-Comb/%s", g.version), 4)

	for _, comment := range comments {
		g.writeItem(&buf, comment)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, comment Comment) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(comment.ID))
	buf.WriteString("</guid>\n")

	title := cmp.Or(comment.LinkTitle, fmt.Sprintf("Comment in r/%s", comment.Subreddit))
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", g.threadLink(comment), 6)
	g.writeElement(buf, "description", cmp.Or(comment.Body, NoContent), 6)
	g.writeElement(buf, "pubDate", time.Unix(comment.CreatedUTC, 0).UTC().Format(time.RFC1123Z), 6)

	if comment.Subreddit != UnknownSubreddit {
		g.writeElement(buf, "category", comment.Subreddit, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) userLink(username string) string {
	if g.siteURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/user/%s/comments/", g.siteURL, username)
}

func (g *Generator) threadLink(comment Comment) string {
	thread, ok := strings.CutPrefix(comment.LinkID, KindPost)
	if !ok || thread == "" || g.siteURL == "" || comment.Subreddit == UnknownSubreddit {
		return ""
	}
	return fmt.Sprintf("%s/r/%s/comments/%s/", g.siteURL, comment.Subreddit, thread)
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
