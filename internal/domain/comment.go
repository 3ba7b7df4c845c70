package domain

import (
	"errors"
	"time"
)

// VideoReference is the public identifier taken from a video page URL (BV id).
type VideoReference string

// ContentID is the platform's internal numeric identifier of a playable part.
type ContentID int64

// FailureSentinel is returned in place of a ContentID when resolution fails.
const FailureSentinel ContentID = -1

var (
	// ErrMalformedInput reports a page URL without the expected identifier segment.
	ErrMalformedInput = errors.New("malformed input")
	// ErrResolution reports that the content identifier lookup did not succeed.
	ErrResolution = errors.New("content id resolution failed")
	// ErrTransport reports a failed comment fetch, including undecodable bodies.
	ErrTransport = errors.New("transport failure")
)

// Comment is a single danmaku entry of the parsed document.
type Comment struct {
	Sequence       int
	PlaybackOffset float64
	PostedAt       time.Time
	Text           string
}

// Document is a decoded comment-stream response. Header is forwarded as received.
type Document struct {
	Body       []byte
	Encoding   ContentEncoding
	Header     map[string][]string
	StatusCode int
}
