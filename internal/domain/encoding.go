package domain

import "strings"

// ContentEncoding enumerates the compression schemes the comment endpoint may apply.
type ContentEncoding string

const (
	EncodingNone    ContentEncoding = "none"
	EncodingGzip    ContentEncoding = "gzip"
	EncodingDeflate ContentEncoding = "deflate"
	EncodingBrotli  ContentEncoding = "br"
)

// ParseContentEncoding maps a single Content-Encoding token to a known encoding.
// The second result is false for tokens outside the enum.
func ParseContentEncoding(token string) (ContentEncoding, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "identity":
		return EncodingNone, true
	case "gzip", "x-gzip":
		return EncodingGzip, true
	case "deflate":
		return EncodingDeflate, true
	case "br":
		return EncodingBrotli, true
	default:
		return EncodingNone, false
	}
}
