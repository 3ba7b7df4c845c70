package parser

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/antchfx/xmlquery"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/ports"
)

const (
	commentElement = "d"
	propsAttr      = "p"

	// Positions inside the comma-separated p attribute.
	fieldPlaybackOffset = 0
	fieldPostedAt       = 4

	// Posting times beyond 9999-12-31T23:59:59Z are treated as malformed.
	maxPostedAtSeconds = 253402300799
)

// DanmakuParser turns a comment-stream XML document into ordered records.
type DanmakuParser struct {
	logger *slog.Logger
}

var _ ports.CommentParser = (*DanmakuParser)(nil)

// NewDanmakuParser builds a parser; a nil logger discards warnings.
func NewDanmakuParser(logger *slog.Logger) *DanmakuParser {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DanmakuParser{logger: logger}
}

// Parse reads the document in strict XML mode and returns one record per d
// element, in document order. Characters XML 1.0 forbids are dropped before
// parsing and whitespace runs in text collapse to a single space. Malformed
// attributes fall back to zero values; an empty or non-XML document yields an
// empty slice.
func (p *DanmakuParser) Parse(xmlText string) []domain.Comment {
	comments := make([]domain.Comment, 0)
	if strings.TrimSpace(xmlText) == "" {
		return comments
	}

	doc, err := xmlquery.Parse(strings.NewReader(stripInvalidXMLChars(xmlText)))
	if err != nil {
		p.logger.Warn("comment document is not valid XML", "error", err, "bytes", len(xmlText))
		return comments
	}

	for i, node := range xmlquery.Find(doc, "//"+commentElement) {
		comments = append(comments, parseComment(i, node))
	}
	return comments
}

func parseComment(seq int, node *xmlquery.Node) domain.Comment {
	comment := domain.Comment{
		Sequence: seq,
		PostedAt: time.Unix(0, 0).UTC(),
		Text:     collapseWhitespace(node.InnerText()),
	}

	props := node.SelectAttr(propsAttr)
	if props == "" {
		return comment
	}

	fields := strings.Split(props, ",")
	comment.PlaybackOffset = floatField(fields, fieldPlaybackOffset)
	if secs := floatField(fields, fieldPostedAt); secs != 0 && math.Abs(secs) <= maxPostedAtSeconds {
		comment.PostedAt = time.Unix(int64(secs), 0).UTC()
	}
	return comment
}

func floatField(fields []string, idx int) float64 {
	if idx >= len(fields) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// stripInvalidXMLChars removes runes outside the XML 1.0 Char production so a
// stray control character cannot void the whole document.
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= 0x10FFFF:
			return r
		default:
			return -1
		}
	}, s)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
