package simplecms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations the service relies on.
//
// Version rows are append-only per logical id: apart from status and
// updated_at, a stored instance is never rewritten.
type Repository interface {
	// Version store operations

	// CreateInstance inserts a new version row. It returns ErrVersionConflict
	// when (LogicalID, Version) already exists, and ErrSlugTaken when a first
	// page version claims a slug owned by another logical id.
	CreateInstance(ctx context.Context, inst *Instance) error
	GetInstance(ctx context.Context, id uuid.UUID) (*Instance, error)
	// ListVersions returns every version of a logical id ascending by version.
	ListVersions(ctx context.Context, logicalID uuid.UUID) ([]*Instance, error)
	// ListChildLogicalIDs returns the distinct logical ids of the given kind
	// with any version pointing at parentID, oldest logical id first.
	ListChildLogicalIDs(ctx context.Context, kind Kind, parentID uuid.UUID) ([]uuid.UUID, error)
	// ListLogicalIDsByKind returns every logical id of a kind, oldest first.
	ListLogicalIDsByKind(ctx context.Context, kind Kind) ([]uuid.UUID, error)
	// TransitionStatus changes the status of one row if it still has
	// params.From, returning ErrStatusConflict otherwise. Moving to
	// StatusPublished archives every other published row of the same logical
	// id in the same atomic unit.
	TransitionStatus(ctx context.Context, params TransitionParams) (*TransitionResult, error)

	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, content *Content) error
	DeleteContent(ctx context.Context, id uuid.UUID) error
	// ListContentsByOwner returns every content row of an owner logical id,
	// visible or not, in storage order.
	ListContentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Content, error)
}

// TransitionParams describes a compare-and-set status change.
type TransitionParams struct {
	InstanceID  uuid.UUID
	From        Status
	To          Status
	PublishedAt *time.Time
	UpdatedAt   time.Time
}

// TransitionResult is the outcome of a status change.
type TransitionResult struct {
	Instance *Instance
	// Archived lists instance ids superseded by a publish.
	Archived []uuid.UUID
}

// EventSink receives lifecycle notifications after a write succeeds.
type EventSink interface {
	// InstanceCreated is fired when a version row is stored
	InstanceCreated(ctx context.Context, inst *Instance) error

	// StatusChanged is fired after a status transition
	StatusChanged(ctx context.Context, inst *Instance, from Status) error

	// ContentChanged is fired after a content row is created, updated or deleted
	ContentChanged(ctx context.Context, contentID uuid.UUID, op string) error
}

// TreeKey addresses a cached page tree.
type TreeKey struct {
	PageID uuid.UUID
	Mode   ViewMode
}

// TreeCache stores rendered page trees. Purge must make every earlier entry
// unreachable and advance the generation; the service calls it after each
// write. Set stores a view only under the generation read before the view was
// composed, so a fill that overlaps a purge never becomes visible.
type TreeCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key TreeKey) (*PageView, bool, error)
	Set(ctx context.Context, gen int64, key TreeKey, view *PageView) error
	Purge(ctx context.Context) error
}

// BodyRenderer turns a stored content body into safe HTML.
type BodyRenderer interface {
	Render(body string, format BodyFormat) (string, error)
}
