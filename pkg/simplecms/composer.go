package simplecms

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Tree operations

// RenderPageTree assembles the page, its sections and their modules. The
// returned view is shared with the cache and must be treated as read-only.
func (s *service) RenderPageTree(ctx context.Context, pageID uuid.UUID, mode ViewMode) (*PageView, error) {
	if mode == "" {
		mode = ViewFull
	}
	if mode != ViewFull && mode != ViewSummary {
		verr := &ValidationError{}
		verr.Add("view", fmt.Sprintf("unknown view mode %q", mode))
		return nil, verr
	}

	// Both counters are read before anything is composed. A write that lands
	// mid-fill moves them, which keeps the result out of the cache and away
	// from callers that arrive after the write.
	writes := s.writes.Load()
	key := TreeKey{PageID: pageID, Mode: mode}
	var (
		gen       int64
		cacheable = s.cache != nil
	)
	if cacheable {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.WarnContext(ctx, "tree cache generation read failed", "page_id", pageID, "err", err)
			cacheable = false
		}
	}
	if cacheable {
		view, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "tree cache read failed", "page_id", pageID, "err", err)
		} else if ok {
			return view, nil
		}
	}

	// The fill outlives any single caller; each caller waits on its own ctx.
	fillCtx := context.WithoutCancel(ctx)
	fillKey := fmt.Sprintf("%d:%d:%s:%s", writes, gen, mode, pageID)
	ch := s.fills.DoChan(fillKey, func() (interface{}, error) {
		view, err := s.composePage(fillCtx, pageID, mode)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := s.cache.Set(fillCtx, gen, key, view); err != nil {
				s.logger.WarnContext(fillCtx, "tree cache write failed", "page_id", pageID, "err", err)
			}
		}
		return view, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PageView), nil
	}
}

func (s *service) composePage(ctx context.Context, pageID uuid.UUID, mode ViewMode) (*PageView, error) {
	page, err := s.GetCurrent(ctx, pageID, ReadOptions{})
	if err != nil {
		return nil, err
	}
	if page.Kind != KindPage {
		return nil, &NotFoundError{What: "page", ID: pageID}
	}

	sections, err := s.resolveChildren(ctx, page, KindSection, "page->section")
	if err != nil {
		return nil, err
	}

	view := &PageView{Page: page, Sections: make([]*SectionView, 0, len(sections))}
	for _, section := range sections {
		modules, err := s.resolveChildren(ctx, section, KindModule, "section->module")
		if err != nil {
			return nil, err
		}
		sv := &SectionView{Section: section, Modules: make([]*ModuleView, 0, len(modules))}
		for _, module := range modules {
			mv := &ModuleView{Module: module}
			if mode == ViewFull {
				if err := s.fillModule(ctx, mv); err != nil {
					return nil, err
				}
			}
			sv.Modules = append(sv.Modules, mv)
		}
		view.Sections = append(view.Sections, sv)
	}
	return view, nil
}

// resolveChildren returns the current, visible children of parent, ordered by
// sort order. Children whose logical id no longer resolves are reported as
// integrity faults and omitted. Children whose current version moved to a
// different parent are skipped.
func (s *service) resolveChildren(ctx context.Context, parent *Instance, kind Kind, relation string) ([]*Instance, error) {
	ids, err := s.repository.ListChildLogicalIDs(ctx, kind, parent.LogicalID)
	if err != nil {
		return nil, &StoreError{Op: "list_children", ID: parent.LogicalID, Err: err}
	}

	children := make([]*Instance, 0, len(ids))
	for _, id := range ids {
		child, err := s.GetCurrent(ctx, id, ReadOptions{})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.reportFault(ctx, &IntegrityFault{
					Relation: relation,
					ParentID: parent.LogicalID,
					ChildID:  id,
					Err:      err,
				})
				continue
			}
			return nil, err
		}
		if child.ParentID != parent.LogicalID || !child.Visible {
			continue
		}
		children = append(children, child)
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].SortOrder < children[j].SortOrder
	})
	return children, nil
}

// fillModule dispatches on the module type to attach type-specific data.
func (s *service) fillModule(ctx context.Context, mv *ModuleView) error {
	m := mv.Module.Module
	if m == nil {
		return nil
	}

	if m.Type.HasContents() {
		contents, err := s.LatestContentsByOwner(ctx, mv.Module.LogicalID, ContentReadOptions{})
		if err != nil {
			return err
		}
		mv.Contents = make([]*ContentView, 0, len(contents))
		for _, c := range contents {
			mv.Contents = append(mv.Contents, s.renderContent(ctx, c))
		}
	}

	switch m.Type {
	case ModuleGallery:
		if m.Gallery != nil {
			sortMedia(m.Gallery.Media)
		}
	case ModuleNews:
		limit := 0
		if m.News != nil {
			limit = m.News.Limit
		}
		pubs, err := s.ListPublications(ctx, ListPublicationsRequest{Family: FamilyNews, Limit: limit})
		if err != nil {
			return err
		}
		mv.Publications = pubs
	case ModuleNewsletter:
		limit := 0
		if m.Newsletter != nil {
			limit = m.Newsletter.Limit
		}
		pubs, err := s.ListPublications(ctx, ListPublicationsRequest{Family: FamilyNewsletter, Limit: limit})
		if err != nil {
			return err
		}
		mv.Publications = pubs
	}
	return nil
}

func (s *service) renderContent(ctx context.Context, c *Content) *ContentView {
	html, err := s.renderer.Render(c.Body, c.BodyFormat)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to render content body", "content_id", c.ID, "err", err)
	}
	return &ContentView{Content: c, HTML: html}
}

// RenderNavTree builds the navigation tree of visible pages below rootID.
func (s *service) RenderNavTree(ctx context.Context, rootID uuid.UUID) (*NavNode, error) {
	root, err := s.GetCurrent(ctx, rootID, ReadOptions{})
	if err != nil {
		return nil, err
	}
	if root.Kind != KindPage {
		return nil, &NotFoundError{What: "page", ID: rootID}
	}

	visited := map[uuid.UUID]bool{}
	return s.navNode(ctx, root, 0, visited)
}

func (s *service) navNode(ctx context.Context, page *Instance, depth int, visited map[uuid.UUID]bool) (*NavNode, error) {
	visited[page.LogicalID] = true
	node := &NavNode{
		LogicalID: page.LogicalID,
		Title:     page.Title,
	}
	if page.Page != nil {
		node.Slug = page.Page.Slug
		node.NavPosition = page.Page.NavPosition
	}
	if depth >= maxTreeDepth {
		s.logger.WarnContext(ctx, "nav tree depth limit reached", "page_id", page.LogicalID)
		return node, nil
	}

	children, err := s.resolveChildren(ctx, page, KindPage, "page->page")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Page.NavPosition < children[j].Page.NavPosition
	})

	for _, child := range children {
		if visited[child.LogicalID] {
			s.reportFault(ctx, &IntegrityFault{
				Relation: "page->page",
				ParentID: page.LogicalID,
				ChildID:  child.LogicalID,
				Err:      errors.New("cycle in page hierarchy"),
			})
			continue
		}
		cn, err := s.navNode(ctx, child, depth+1, visited)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, cn)
	}
	return node, nil
}
