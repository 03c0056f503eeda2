package simplecms

import (
	"fmt"
	"strings"
	"time"
)

// canTransition checks the requested status change against the legal edge set.
// DELETED has no outgoing edge and nothing re-enters DRAFT.
func canTransition(from, to Status) (bool, error) {
	if !to.IsValid() {
		return false, fmt.Errorf("unknown target status %q", to)
	}
	switch from {
	case StatusDraft:
		switch to {
		case StatusPublished, StatusDeleted:
			return true, nil
		}
		return false, fmt.Errorf("a draft can only be published or deleted")
	case StatusPublished:
		switch to {
		case StatusArchived, StatusDeleted:
			return true, nil
		}
		return false, fmt.Errorf("a published version can only be archived or deleted; create a new version instead")
	case StatusArchived:
		if to == StatusDeleted {
			return true, nil
		}
		return false, fmt.Errorf("an archived version can only be deleted")
	case StatusDeleted:
		return false, fmt.Errorf("deleted versions have no outgoing transition; use restore")
	default:
		return false, fmt.Errorf("unknown current status %q", from)
	}
}

// canPublish checks the display fields required before DRAFT -> PUBLISHED.
func canPublish(inst *Instance) (bool, error) {
	if strings.TrimSpace(inst.Title) == "" {
		return false, fmt.Errorf("title is required to publish")
	}
	switch inst.Kind {
	case KindPage:
		if inst.Page == nil || inst.Page.Slug == "" {
			return false, fmt.Errorf("slug is required to publish a page")
		}
	case KindModule:
		if inst.Module == nil || !inst.Module.Type.IsValid() {
			return false, fmt.Errorf("module type is required to publish a module")
		}
	case KindPublication:
		if inst.Publication == nil || inst.Publication.Family == "" {
			return false, fmt.Errorf("family is required to publish a publication")
		}
	}
	return true, nil
}

// validateTransition combines the edge check and the publish preconditions.
func validateTransition(inst *Instance, to Status) error {
	if ok, err := canTransition(inst.Status, to); !ok {
		return &InvalidTransitionError{InstanceID: inst.ID, From: inst.Status, To: to, Reason: err.Error()}
	}
	if to == StatusPublished {
		if ok, err := canPublish(inst); !ok {
			return &InvalidTransitionError{InstanceID: inst.ID, From: inst.Status, To: to, Reason: err.Error()}
		}
	}
	return nil
}

// publishedAtFor keeps an existing publish date and assigns now otherwise.
func publishedAtFor(inst *Instance, now time.Time) time.Time {
	if inst.PublishedAt != nil && !inst.PublishedAt.IsZero() {
		return *inst.PublishedAt
	}
	return now
}
