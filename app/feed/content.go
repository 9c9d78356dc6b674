package feed

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	mdWrapperPattern  = regexp.MustCompile(`(?s)<!-- SC_OFF -->\s*<div class="md">(.*)</div>\s*<!-- SC_ON -->`)
	lineBreakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>`)
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Only this fixed set is decoded; anything else stays as written.
var entityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&nbsp;", " ",
	"&#160;", " ",
	"&#x200B;", "",
	"&#x200b;", "",
	"&#8203;", "",
)

// CleanHTML turns an upstream HTML fragment into plain text.
func CleanHTML(content string) string {
	if m := mdWrapperPattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	content = lineBreakPattern.ReplaceAllString(content, "\n")
	content = tagPattern.ReplaceAllString(content, "")
	content = entityReplacer.Replace(content)
	content = norm.NFC.String(content)
	content = whitespacePattern.ReplaceAllString(content, " ")

	return strings.TrimSpace(content)
}

// ExtractContent returns the cleaned body text of an entry.
func ExtractContent(c Content) string {
	switch c.Kind {
	case ContentStructured:
		if strings.EqualFold(c.Type, "html") && c.Value != "" {
			return CleanHTML(c.Value)
		}
		if strings.TrimSpace(c.Value) != "" {
			return CleanHTML(c.Value)
		}
		return UnrecognizedContent
	case ContentPlain:
		return CleanHTML(c.Value)
	default:
		return NoContent
	}
}
