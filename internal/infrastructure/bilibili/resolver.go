package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/ports"
)

// lookupSuccess is the envelope code the lookup API uses for a successful response.
const lookupSuccess = 0

// pageListResponse mirrors the lookup API envelope.
type pageListResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	TTL     int        `json:"ttl"`
	Data    []pageInfo `json:"data"`
}

type pageInfo struct {
	CID      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int    `json:"duration"`
}

// Resolver maps a public video identifier to the content identifier of its first part.
type Resolver struct {
	lookupURL string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.IdentifierResolver = (*Resolver)(nil)

// NewResolver creates a resolver against the given lookup endpoint; client may be nil.
func NewResolver(lookupURL, userAgent string, client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		lookupURL: lookupURL,
		userAgent: userAgent,
		http:      client,
		logger:    logger,
	}
}

// ResolvePublicID is the package-level form of (*Resolver).ResolvePublicID.
// It returns the second path segment of a page URL such as /video/BV1gE411B7ks.
func ResolvePublicID(rawURL string) (domain.VideoReference, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", domain.ErrMalformedInput, err)
	}

	segments := strings.Split(parsed.Path, "/")
	if len(segments) < 3 || segments[2] == "" {
		return "", fmt.Errorf("%w: no video identifier in %q", domain.ErrMalformedInput, parsed.Path)
	}
	return domain.VideoReference(segments[2]), nil
}

// ResolvePublicID extracts the public identifier; no network call is made.
func (r *Resolver) ResolvePublicID(rawURL string) (domain.VideoReference, error) {
	return ResolvePublicID(rawURL)
}

// ResolveContentID queries the lookup API and returns the cid of the first
// listed part. Every failure yields domain.FailureSentinel and an error
// wrapping domain.ErrResolution.
func (r *Resolver) ResolveContentID(ctx context.Context, ref domain.VideoReference) (domain.ContentID, error) {
	endpoint, err := url.Parse(r.lookupURL)
	if err != nil {
		return r.fail(ref, fmt.Errorf("lookup url: %w", err))
	}
	query := endpoint.Query()
	query.Set("bvid", string(ref))
	query.Set("jsonp", "jsonp")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return r.fail(ref, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return r.fail(ref, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	var envelope pageListResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return r.fail(ref, fmt.Errorf("decode response (status %s): %w", resp.Status, err))
	}

	if envelope.Code != lookupSuccess {
		return r.fail(ref, fmt.Errorf("lookup returned code %d: %s", envelope.Code, envelope.Message))
	}
	if len(envelope.Data) == 0 {
		return r.fail(ref, fmt.Errorf("lookup returned no parts"))
	}

	cid := domain.ContentID(envelope.Data[0].CID)
	r.logger.Debug("content id resolved", "bvid", ref, "cid", cid, "parts", len(envelope.Data))
	return cid, nil
}

func (r *Resolver) fail(ref domain.VideoReference, cause error) (domain.ContentID, error) {
	r.logger.Warn("content id resolution failed", "bvid", ref, "error", cause)
	return domain.FailureSentinel, fmt.Errorf("%w: %v", domain.ErrResolution, cause)
}
