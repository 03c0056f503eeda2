package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-cms library
type Service interface {
	// Version store operations
	CreateFirstVersion(ctx context.Context, req CreateVersionRequest) (*Instance, error)
	CreateNextVersion(ctx context.Context, logicalID uuid.UUID, patch VersionPatch) (*Instance, error)
	GetCurrent(ctx context.Context, logicalID uuid.UUID, opts ReadOptions) (*Instance, error)
	GetInstance(ctx context.Context, instanceID uuid.UUID) (*Instance, error)
	ListVersions(ctx context.Context, logicalID uuid.UUID) ([]*Instance, error)
	SoftDelete(ctx context.Context, instanceID uuid.UUID) (*Instance, error)
	// Restore is the administrative bypass out of DELETED: it appends a new
	// DRAFT version copied from the deleted current instance.
	Restore(ctx context.Context, logicalID uuid.UUID) (*Instance, error)

	// Publishing operations
	TransitionStatus(ctx context.Context, instanceID uuid.UUID, to Status) (*Instance, error)
	ListPublications(ctx context.Context, req ListPublicationsRequest) ([]*Instance, error)
	LinkedNews(ctx context.Context, newsletterID uuid.UUID) ([]*Instance, error)

	// Content operations
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)
	UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error)
	DeleteContent(ctx context.Context, id uuid.UUID) error
	LatestContentsByOwner(ctx context.Context, ownerID uuid.UUID, opts ContentReadOptions) ([]*Content, error)

	// Tree operations
	RenderPageTree(ctx context.Context, pageID uuid.UUID, mode ViewMode) (*PageView, error)
	RenderNavTree(ctx context.Context, rootID uuid.UUID) (*NavNode, error)
}
