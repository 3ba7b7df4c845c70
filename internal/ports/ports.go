package ports

import (
	"context"

	"BulletScreen/internal/domain"
)

// IdentifierResolver turns a page URL into the content identifier used by the comment endpoint.
type IdentifierResolver interface {
	ResolvePublicID(rawURL string) (domain.VideoReference, error)
	// ResolveContentID returns domain.FailureSentinel together with a non-nil error on any failure.
	ResolveContentID(ctx context.Context, ref domain.VideoReference) (domain.ContentID, error)
}

// CommentFetcher downloads and decompresses a comment document.
type CommentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (domain.Document, error)
}

// CommentParser extracts comment records from a decompressed XML document.
type CommentParser interface {
	Parse(xmlText string) []domain.Comment
}
