package feed

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func testListingParser() *ListingParser {
	return NewListingParser(WithNow(func() time.Time { return fixedNow }))
}

func TestListingParse(t *testing.T) {
	data := `{"kind": "Listing", "data": {"children": [
		{"kind": "t1", "data": {"id": "abc1", "body": "first & raw", "subreddit": "golang",
			"parent_id": "t3_post1", "link_id": "t3_post1", "link_title": "Real title", "created_utc": 1714470000.0}},
		{"kind": "t1", "data": {"id": "abc2", "body": "reply", "subreddit": "golang",
			"parent_id": "t1_abc1", "link_id": "t3_post1", "created_utc": 1714473600}}
	]}}`

	comments, err := testListingParser().Run([]byte(data), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 comments, got: %d", len(comments))
	}

	first := comments[0]
	if first.ID != "abc1" || first.Body != "first & raw" || first.Subreddit != "golang" {
		t.Errorf("Unexpected first comment: %+v", first)
	}
	if first.LinkTitle != "Real title" {
		t.Errorf("Expected upstream link title kept, got: %s", first.LinkTitle)
	}
	if first.CreatedUTC != 1714470000 {
		t.Errorf("Expected created_utc 1714470000, got: %d", first.CreatedUTC)
	}

	second := comments[1]
	if second.ParentBody != "Comment: abc1" {
		t.Errorf("Expected parent_body 'Comment: abc1', got: %s", second.ParentBody)
	}
	if second.LinkTitle != "" {
		t.Errorf("Expected no link title for comment parent, got: %s", second.LinkTitle)
	}
}

func TestListingPostParentTitle(t *testing.T) {
	data := `{"data": {"children": [{"data": {"id": "x", "parent_id": "t3_abc"}}]}}`

	comments, err := testListingParser().Run([]byte(data), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("Expected 1 comment, got: %d", len(comments))
	}
	if comments[0].LinkTitle != "Post: abc" {
		t.Errorf("Expected link_title 'Post: abc', got: %s", comments[0].LinkTitle)
	}
	if comments[0].ParentBody != "" {
		t.Errorf("Expected no parent_body, got: %s", comments[0].ParentBody)
	}
}

func TestListingFallbacks(t *testing.T) {
	data := `{"data": {"children": [{"kind": "t1", "data": {}}]}}`

	comments, err := testListingParser().Run([]byte(data), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	c := comments[0]
	if !regexp.MustCompile(`^id_[a-z0-9]{7}$`).MatchString(c.ID) {
		t.Errorf("Expected synthesized id, got: %s", c.ID)
	}
	if c.Body != NoContent {
		t.Errorf("Expected %q, got: %q", NoContent, c.Body)
	}
	if c.Subreddit != UnknownSubreddit {
		t.Errorf("Expected %q, got: %s", UnknownSubreddit, c.Subreddit)
	}
	if c.ParentID != "" || c.LinkID != "" {
		t.Errorf("Expected empty parent and link ids, got: %q %q", c.ParentID, c.LinkID)
	}
	if c.CreatedUTC != fixedNow.Unix() {
		t.Errorf("Expected created_utc to fall back to now, got: %d", c.CreatedUTC)
	}
}

func TestListingEmptyChildren(t *testing.T) {
	comments, err := testListingParser().Run([]byte(`{"data":{"children":[]}}`), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if comments == nil || len(comments) != 0 {
		t.Errorf("Expected empty list, got: %v", comments)
	}
}

func TestListingUnexpectedShape(t *testing.T) {
	payloads := []string{
		`{}`,
		`[]`,
		`null`,
		`{"data": null}`,
		`{"data": []}`,
		`{"data": {"children": {}}}`,
		`{"error": 403, "message": "Forbidden"}`,
	}

	for _, payload := range payloads {
		comments, err := testListingParser().Run([]byte(payload), 10)
		if err != nil {
			t.Errorf("Expected no error for %s, got: %v", payload, err)
		}
		if len(comments) != 0 {
			t.Errorf("Expected no comments for %s, got: %d", payload, len(comments))
		}
	}
}

func TestListingInvalidJSON(t *testing.T) {
	for _, payload := range []string{"", "<html>", `{"data":`} {
		_, err := testListingParser().Run([]byte(payload), 10)

		var parseErr *ListingParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Expected ListingParseError for %q, got: %v", payload, err)
		}
	}
}

func TestListingSkipsMalformedItems(t *testing.T) {
	data := `{"data": {"children": [
		{"data": {"id": "a"}},
		"not an object",
		{"kind": "t1"},
		[1, 2],
		{"data": {"id": "c"}},
		{"data": {"id": "d"}}
	]}}`

	comments, err := testListingParser().Run([]byte(data), 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 comments, got: %d", len(comments))
	}
	if comments[0].ID != "a" || comments[1].ID != "c" {
		t.Errorf("Expected a and c, got: %s %s", comments[0].ID, comments[1].ID)
	}
}

func TestListingMistypedFieldsFallBackIndividually(t *testing.T) {
	data := `{"data": {"children": [
		{"data": {"id": "first", "body": "one"}},
		{"data": {"id": 123, "created_utc": "oops", "body": "keep me", "subreddit": 7,
			"parent_id": "t1_p9", "link_id": false}}
	]}}`

	comments, err := testListingParser().Run([]byte(data), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 comments, got: %d", len(comments))
	}

	c := comments[1]
	if c.Body != "keep me" {
		t.Errorf("Expected body 'keep me', got: %q", c.Body)
	}
	if !regexp.MustCompile(`^id_[a-z0-9]{7}$`).MatchString(c.ID) {
		t.Errorf("Expected synthesized id for numeric id, got: %s", c.ID)
	}
	if c.CreatedUTC != fixedNow.Unix() {
		t.Errorf("Expected created_utc to fall back to now, got: %d", c.CreatedUTC)
	}
	if c.Subreddit != UnknownSubreddit {
		t.Errorf("Expected %q, got: %s", UnknownSubreddit, c.Subreddit)
	}
	if c.ParentID != "t1_p9" || c.LinkID != "" {
		t.Errorf("Expected parent_id t1_p9 and empty link_id, got: %q %q", c.ParentID, c.LinkID)
	}
	if c.ParentBody != "Comment: p9" {
		t.Errorf("Expected parent_body 'Comment: p9', got: %s", c.ParentBody)
	}
}
