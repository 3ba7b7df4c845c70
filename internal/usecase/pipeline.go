package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/ports"
)

// ResponseCodeSuccess is the envelope code of a successful response.
const ResponseCodeSuccess = 0

// Failure messages returned to callers instead of the JSON envelope.
const (
	MessageMalformedInput = "invalid video url"
	MessageResolution     = "failed to resolve video cid"
	MessageTransport      = "failed to fetch bullet screen"
)

// PipelineDeps wires the driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Resolver   ports.IdentifierResolver
	Fetcher    ports.CommentFetcher
	Parser     ports.CommentParser
	CommentURL string
	Logger     *slog.Logger
}

// Pipeline resolves, fetches and parses the bullet screen of one video page.
type Pipeline struct {
	resolver   ports.IdentifierResolver
	fetcher    ports.CommentFetcher
	parser     ports.CommentParser
	commentURL string
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		resolver:   deps.Resolver,
		fetcher:    deps.Fetcher,
		parser:     deps.Parser,
		commentURL: deps.CommentURL,
		logger:     logger,
	}
}

// Run executes the pipeline for a page URL. Errors wrap one of
// domain.ErrMalformedInput, domain.ErrResolution or domain.ErrTransport.
func (p *Pipeline) Run(ctx context.Context, pageURL string) ([]domain.Comment, error) {
	if p.resolver == nil || p.fetcher == nil || p.parser == nil {
		return nil, fmt.Errorf("pipeline is not configured")
	}

	ref, err := p.resolver.ResolvePublicID(pageURL)
	if err != nil {
		return nil, fmt.Errorf("resolve public id: %w", err)
	}

	cid, err := p.resolver.ResolveContentID(ctx, ref)
	if err != nil || cid == domain.FailureSentinel {
		switch {
		case err == nil:
			err = domain.ErrResolution
		case !errors.Is(err, domain.ErrResolution):
			err = fmt.Errorf("%w: %v", domain.ErrResolution, err)
		}
		return nil, fmt.Errorf("resolve cid for %s: %w", ref, err)
	}

	endpoint, err := commentEndpoint(p.commentURL, cid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	doc, err := p.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch comments for cid %d: %w", cid, err)
	}

	comments := p.parser.Parse(string(doc.Body))
	p.logger.Info("bullet screen fetched",
		"bvid", ref,
		"cid", cid,
		"encoding", doc.Encoding,
		"comments", len(comments))

	return comments, nil
}

func commentEndpoint(base string, cid domain.ContentID) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid comment url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("oid", strconv.FormatInt(int64(cid), 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// FailureMessage maps a pipeline error to the plain-text message shown to callers.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return MessageMalformedInput
	case errors.Is(err, domain.ErrResolution):
		return MessageResolution
	default:
		return MessageTransport
	}
}

type commentItem struct {
	ID   int     `json:"id"`
	Date string  `json:"date"`
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

type envelope struct {
	Code int           `json:"code"`
	Data []commentItem `json:"data"`
}

// EncodeComments renders the success envelope {"code":0,"data":[...]}.
func EncodeComments(comments []domain.Comment) ([]byte, error) {
	items := make([]commentItem, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentItem{
			ID:   c.Sequence,
			Date: c.PostedAt.UTC().Format(http.TimeFormat),
			Time: c.PlaybackOffset,
			Text: c.Text,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{Code: ResponseCodeSuccess, Data: items}); err != nil {
		return nil, fmt.Errorf("encode comments: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
