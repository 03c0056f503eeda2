package simplecms

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Content operations

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error) {
	format := NormalizeBodyFormat(req.BodyFormat)
	verr := &ValidationError{}
	if req.OwnerID == uuid.Nil {
		verr.Add("owner_id", "is required")
	} else if err := s.checkContentOwner(ctx, req.OwnerID); err != nil {
		verr.Add("owner_id", err.Error())
	}
	if format != BodyMarkdown && format != BodyHTML {
		verr.Add("body_format", "must be markdown or html")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	content := &Content{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
		BodyFormat: format,
		SortOrder:  req.SortOrder,
		Visible:    boolOr(req.Visible, true),
		AuthorID:   req.AuthorID,
		Media:      append([]Media(nil), req.Media...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repository.CreateContent(ctx, content); err != nil {
		s.hooks.executeOnError(ctx, "create_content", err)
		return nil, &StoreError{Op: "create_content", ID: content.ID, Err: err}
	}

	s.afterContentWrite(ctx, content.ID, "created")
	return content.Clone(), nil
}

func (s *service) UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error) {
	content, err := s.getContent(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		content.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		content.Body = *req.Body
	}
	if req.BodyFormat != nil {
		format := NormalizeBodyFormat(*req.BodyFormat)
		if format != BodyMarkdown && format != BodyHTML {
			verr := &ValidationError{}
			verr.Add("body_format", "must be markdown or html")
			return nil, verr
		}
		content.BodyFormat = format
	}
	if req.SortOrder != nil {
		content.SortOrder = *req.SortOrder
	}
	if req.Visible != nil {
		content.Visible = *req.Visible
	}
	if req.Media != nil {
		content.Media = append([]Media(nil), req.Media...)
	}
	content.UpdatedAt = s.now()

	if err := s.repository.UpdateContent(ctx, content); err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return nil, &NotFoundError{What: "content", ID: req.ID}
		}
		s.hooks.executeOnError(ctx, "update_content", err)
		return nil, &StoreError{Op: "update_content", ID: req.ID, Err: err}
	}

	s.afterContentWrite(ctx, content.ID, "updated")
	return content.Clone(), nil
}

func (s *service) DeleteContent(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.DeleteContent(ctx, id); err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return &NotFoundError{What: "content", ID: id}
		}
		s.hooks.executeOnError(ctx, "delete_content", err)
		return &StoreError{Op: "delete_content", ID: id, Err: err}
	}

	s.afterContentWrite(ctx, id, "deleted")
	return nil
}

// LatestContentsByOwner returns the contents attached to an owner logical id.
// The result is the same whichever version of the owner is current.
func (s *service) LatestContentsByOwner(ctx context.Context, ownerID uuid.UUID, opts ContentReadOptions) ([]*Content, error) {
	contents, err := s.repository.ListContentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, &StoreError{Op: "list_contents", ID: ownerID, Err: err}
	}
	return orderContents(contents, opts), nil
}

// orderContents filters hidden rows and sorts by sort order, then creation
// time. Each content's media is sorted by its own sort order.
func orderContents(contents []*Content, opts ContentReadOptions) []*Content {
	out := make([]*Content, 0, len(contents))
	for _, c := range contents {
		if !c.Visible && !opts.IncludeHidden {
			continue
		}
		cc := c.Clone()
		sortMedia(cc.Media)
		out = append(out, cc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func sortMedia(media []Media) {
	sort.SliceStable(media, func(i, j int) bool {
		return media[i].SortOrder < media[j].SortOrder
	})
}

// sortNewestFirst orders publications by publish date, newest first.
func sortNewestFirst(items []*Instance) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		switch {
		case a == nil && b == nil:
			return items[i].CreatedAt.After(items[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
}

func (s *service) getContent(ctx context.Context, id uuid.UUID) (*Content, error) {
	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			return nil, &NotFoundError{What: "content", ID: id}
		}
		return nil, &StoreError{Op: "get_content", ID: id, Err: err}
	}
	return content, nil
}

// checkContentOwner accepts module and publication logical ids only.
func (s *service) checkContentOwner(ctx context.Context, ownerID uuid.UUID) error {
	owner, err := s.GetCurrent(ctx, ownerID, ReadOptions{})
	if err != nil {
		return errors.New("does not resolve to a module or publication")
	}
	switch owner.Kind {
	case KindModule, KindPublication:
		return nil
	}
	return errors.New("contents attach to modules and publications only")
}

func (s *service) afterContentWrite(ctx context.Context, id uuid.UUID, op string) {
	s.invalidate(ctx)
	if s.eventSink != nil {
		if err := s.eventSink.ContentChanged(ctx, id, op); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "content_changed", "err", err)
		}
	}
	if err := s.hooks.executeAfterContentWrite(ctx, id, op); err != nil {
		s.logger.WarnContext(ctx, "after content write hook failed", "content_id", id, "err", err)
	}
}
