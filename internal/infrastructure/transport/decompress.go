package transport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"BulletScreen/internal/domain"
)

// Decompress undoes the Content-Encoding declared by the server. Stacked
// encodings ("deflate, gzip") are removed in reverse order of application.
// Absent, identity and unrecognized encodings pass the body through unchanged.
func Decompress(encoding string, body []byte) ([]byte, error) {
	tokens := strings.Split(encoding, ",")
	out := body
	for i := len(tokens) - 1; i >= 0; i-- {
		enc, _ := domain.ParseContentEncoding(tokens[i])
		decoded, err := decode(enc, out)
		if err != nil {
			return nil, err
		}
		out = decoded
	}
	return out, nil
}

// outermostEncoding reports the last-applied encoding and whether every token was recognized.
func outermostEncoding(header string) (domain.ContentEncoding, bool) {
	tokens := strings.Split(header, ",")
	allKnown := true
	for _, tok := range tokens {
		if _, ok := domain.ParseContentEncoding(tok); !ok {
			allKnown = false
		}
	}
	enc, _ := domain.ParseContentEncoding(tokens[len(tokens)-1])
	return enc, allKnown
}

func decode(enc domain.ContentEncoding, body []byte) ([]byte, error) {
	switch enc {
	case domain.EncodingGzip:
		return gunzip(body)
	case domain.EncodingDeflate:
		return inflate(body)
	case domain.EncodingBrotli:
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli: %w", err)
		}
		return out, nil
	case domain.EncodingNone:
		return body, nil
	default:
		return body, nil
	}
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return out, nil
}

// inflate accepts both zlib-wrapped and raw deflate streams; servers emit either.
func inflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		out, readErr := io.ReadAll(zr)
		_ = zr.Close()
		if readErr == nil {
			return out, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()

	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}
