package simplecms

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateVersionRequest contains parameters for the first version of a logical entity
type CreateVersionRequest struct {
	Kind        Kind
	ParentID    uuid.UUID
	Name        string
	Title       string
	SortOrder   int
	Visible     *bool // defaults to true
	AuthorID    uuid.UUID
	PublishedAt *time.Time

	Page        *PageAttributes
	Module      *ModuleAttributes
	Publication *PublicationAttributes
}

// VersionPatch lists the fields edited by a new version. Nil fields are
// copied forward from the current instance.
type VersionPatch struct {
	ParentID    *uuid.UUID
	Name        *string
	Title       *string
	SortOrder   *int
	Visible     *bool
	AuthorID    uuid.UUID // uuid.Nil keeps the current author
	PublishedAt *time.Time

	// Page fields. Slug may be repeated but never changed.
	Slug        *string
	Subtitle    *string
	NavPosition *int

	// Module replaces the variant block; Type must not change.
	Module *ModuleAttributes
	// Publication replaces the publication block; Family must not change.
	Publication *PublicationAttributes
}

// CreateContentRequest contains parameters for attaching content to an owner
type CreateContentRequest struct {
	OwnerID    uuid.UUID
	Title      string
	Body       string
	BodyFormat BodyFormat
	SortOrder  int
	Visible    *bool // defaults to true
	AuthorID   uuid.UUID
	Media      []Media
}

// UpdateContentRequest contains the edited fields of a content row
type UpdateContentRequest struct {
	ID         uuid.UUID
	Title      *string
	Body       *string
	BodyFormat *BodyFormat
	SortOrder  *int
	Visible    *bool
	Media      []Media // nil keeps the current media
}

// ListPublicationsRequest filters current published publications
type ListPublicationsRequest struct {
	Family PublicationFamily
	Limit  int
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
