package feed

import "fmt"

// FeedParseError is returned when a feed document is not well-formed XML.
type FeedParseError struct {
	Err error
}

func (e *FeedParseError) Error() string {
	return fmt.Sprintf("failed to parse feed: %v", e.Err)
}

func (e *FeedParseError) Unwrap() error {
	return e.Err
}

// ListingParseError is returned when a listing payload is not valid JSON.
type ListingParseError struct {
	Err error
}

func (e *ListingParseError) Error() string {
	return fmt.Sprintf("failed to parse listing: %v", e.Err)
}

func (e *ListingParseError) Unwrap() error {
	return e.Err
}
