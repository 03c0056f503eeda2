package simplecms_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplecms.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplecms.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simplecms.Option{
				simplecms.WithRepository(memory.New()),
			},
		},
		{
			name: "with repository, event sink and hooks should succeed",
			options: []simplecms.Option{
				simplecms.WithRepository(memory.New()),
				simplecms.WithEventSink(simplecms.NewNoopEventSink()),
				simplecms.WithHooks(&simplecms.Hooks{}),
				simplecms.WithMaxRetries(3),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplecms.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupTestService(t *testing.T, opts ...simplecms.Option) simplecms.Service {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	options := append([]simplecms.Option{
		simplecms.WithRepository(memory.New()),
		simplecms.WithEventSink(simplecms.NewNoopEventSink()),
		simplecms.WithClock(clock.Now),
	}, opts...)

	svc, err := simplecms.New(options...)
	require.NoError(t, err)
	return svc
}

func createPage(t *testing.T, svc simplecms.Service, title string) *simplecms.Instance {
	t.Helper()
	page, err := svc.CreateFirstVersion(context.Background(), simplecms.CreateVersionRequest{
		Kind:  simplecms.KindPage,
		Title: title,
	})
	require.NoError(t, err)
	return page
}

func createSection(t *testing.T, svc simplecms.Service, pageID uuid.UUID, sortOrder int) *simplecms.Instance {
	t.Helper()
	section, err := svc.CreateFirstVersion(context.Background(), simplecms.CreateVersionRequest{
		Kind:      simplecms.KindSection,
		ParentID:  pageID,
		Title:     "Section",
		SortOrder: sortOrder,
	})
	require.NoError(t, err)
	return section
}

func createModule(t *testing.T, svc simplecms.Service, sectionID uuid.UUID, name string, attrs *simplecms.ModuleAttributes, sortOrder int) *simplecms.Instance {
	t.Helper()
	module, err := svc.CreateFirstVersion(context.Background(), simplecms.CreateVersionRequest{
		Kind:      simplecms.KindModule,
		ParentID:  sectionID,
		Name:      name,
		Title:     name,
		SortOrder: sortOrder,
		Module:    attrs,
	})
	require.NoError(t, err)
	return module
}

func article() *simplecms.ModuleAttributes {
	return &simplecms.ModuleAttributes{Type: simplecms.ModuleArticle, Article: &simplecms.ArticleVariant{}}
}

func ptr[T any](v T) *T { return &v }

func TestCreateFirstVersion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("page gets slug and version 1 draft", func(t *testing.T) {
		page := createPage(t, svc, "Über Uns")
		assert.Equal(t, 1, page.Version)
		assert.Equal(t, simplecms.StatusDraft, page.Status)
		assert.NotEqual(t, page.ID, page.LogicalID)
		assert.True(t, page.Visible)
		require.NotNil(t, page.Page)
		assert.Equal(t, "uber-uns", page.Page.Slug)
	})

	t.Run("duplicate slug is rejected", func(t *testing.T) {
		createPage(t, svc, "Contact")
		_, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind:  simplecms.KindPage,
			Title: "Contact",
		})
		assert.ErrorIs(t, err, simplecms.ErrValidation)
	})

	t.Run("section requires an existing page", func(t *testing.T) {
		_, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind:     simplecms.KindSection,
			ParentID: uuid.New(),
		})
		var verr *simplecms.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "parent_id", verr.Fields[0].Field)
	})

	t.Run("module variant must match type", func(t *testing.T) {
		page := createPage(t, svc, "Variants")
		section := createSection(t, svc, page.LogicalID, 0)
		_, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind:     simplecms.KindModule,
			ParentID: section.LogicalID,
			Name:     "hero",
			Module: &simplecms.ModuleAttributes{
				Type:    simplecms.ModuleArticle,
				Gallery: &simplecms.GalleryVariant{Columns: 3},
			},
		})
		assert.ErrorIs(t, err, simplecms.ErrValidation)
	})

	t.Run("unknown module type", func(t *testing.T) {
		page := createPage(t, svc, "Unknown Type")
		section := createSection(t, svc, page.LogicalID, 0)
		_, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind:     simplecms.KindModule,
			ParentID: section.LogicalID,
			Name:     "mystery",
			Module:   &simplecms.ModuleAttributes{Type: "carousel"},
		})
		assert.ErrorIs(t, err, simplecms.ErrValidation)
	})

	t.Run("newsletter may only link news", func(t *testing.T) {
		letter, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind: simplecms.KindPublication,
			Name: "letter",
			Publication: &simplecms.PublicationAttributes{
				Family: simplecms.FamilyNewsletter,
			},
		})
		require.NoError(t, err)

		_, err = svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind: simplecms.KindPublication,
			Name: "digest",
			Publication: &simplecms.PublicationAttributes{
				Family:     simplecms.FamilyNewsletter,
				LinkedNews: []uuid.UUID{letter.LogicalID},
			},
		})
		assert.ErrorIs(t, err, simplecms.ErrValidation)
	})
}

// Scenario: publish v1, draft v2 leaves v1 published until v2 is published.
func TestPublishLifecycle(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	page := createPage(t, svc, "Home")
	published, err := svc.TransitionStatus(ctx, page.ID, simplecms.StatusPublished)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	current, err := svc.GetCurrent(ctx, page.LogicalID, simplecms.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, simplecms.StatusPublished, current.Status)

	v2, err := svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{Title: ptr("Home v2")})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, simplecms.StatusDraft, v2.Status)
	assert.Equal(t, page.LogicalID, v2.LogicalID)
	assert.Equal(t, "home", v2.Page.Slug)

	current, err = svc.GetCurrent(ctx, page.LogicalID, simplecms.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)

	v1, err := svc.GetInstance(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, simplecms.StatusPublished, v1.Status)
	assert.Equal(t, "Home", v1.Title)

	_, err = svc.TransitionStatus(ctx, v2.ID, simplecms.StatusPublished)
	require.NoError(t, err)

	v1, err = svc.GetInstance(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, simplecms.StatusArchived, v1.Status)

	versions, err := svc.ListVersions(ctx, page.LogicalID)
	require.NoError(t, err)
	assertSinglePublished(t, versions)
	assertContiguous(t, versions)
	assert.Equal(t, *published.PublishedAt, *versions[1].PublishedAt, "publish date is copied forward")
}

func TestTransitionStatus_OlderThanPublished(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	v1 := createPage(t, svc, "Ordered")
	v2, err := svc.CreateNextVersion(ctx, v1.LogicalID, simplecms.VersionPatch{Title: ptr("Ordered v2")})
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, v2.ID, simplecms.StatusPublished)
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, v1.ID, simplecms.StatusPublished)
	var terr *simplecms.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, v1.ID, terr.InstanceID)
	assert.ErrorIs(t, err, simplecms.ErrInvalidTransition)

	current, err := svc.GetCurrent(ctx, v1.LogicalID, simplecms.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)
	assert.Equal(t, simplecms.StatusPublished, current.Status)

	old, err := svc.GetInstance(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, simplecms.StatusDraft, old.Status)

	// the stale draft can still be discarded
	_, err = svc.TransitionStatus(ctx, v1.ID, simplecms.StatusDeleted)
	require.NoError(t, err)
}

func TestTimestamps(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := &testClock{now: start}
	svc := setupTestService(t, simplecms.WithClock(clock.Now))
	ctx := context.Background()

	get := func(id uuid.UUID) *simplecms.Instance {
		t.Helper()
		inst, err := svc.GetInstance(ctx, id)
		require.NoError(t, err)
		return inst
	}

	v1 := createPage(t, svc, "Stamped")
	assert.True(t, v1.CreatedAt.After(start))
	assert.Equal(t, v1.CreatedAt, v1.UpdatedAt)

	v2, err := svc.CreateNextVersion(ctx, v1.LogicalID, simplecms.VersionPatch{})
	require.NoError(t, err)
	assert.True(t, v2.CreatedAt.After(v1.CreatedAt))
	assert.Equal(t, v2.CreatedAt, v2.UpdatedAt)

	v3, err := svc.CreateNextVersion(ctx, v1.LogicalID, simplecms.VersionPatch{})
	require.NoError(t, err)
	assert.True(t, v3.CreatedAt.After(v2.CreatedAt))

	t.Run("publish touches only the target", func(t *testing.T) {
		p1, err := svc.TransitionStatus(ctx, v1.ID, simplecms.StatusPublished)
		require.NoError(t, err)
		assert.True(t, p1.UpdatedAt.After(v3.CreatedAt))
		assert.Equal(t, v1.CreatedAt, p1.CreatedAt)
		assert.Equal(t, p1.UpdatedAt, get(v1.ID).UpdatedAt)

		assert.Equal(t, v2.UpdatedAt, get(v2.ID).UpdatedAt)
		assert.Equal(t, v3.UpdatedAt, get(v3.ID).UpdatedAt)
	})

	t.Run("supersede stamps the archived predecessor", func(t *testing.T) {
		before := get(v1.ID).UpdatedAt
		p3, err := svc.TransitionStatus(ctx, v3.ID, simplecms.StatusPublished)
		require.NoError(t, err)
		assert.True(t, p3.UpdatedAt.After(before))
		assert.Equal(t, v3.CreatedAt, p3.CreatedAt)

		archived := get(v1.ID)
		assert.Equal(t, simplecms.StatusArchived, archived.Status)
		assert.Equal(t, p3.UpdatedAt, archived.UpdatedAt)
		assert.Equal(t, v1.CreatedAt, archived.CreatedAt)

		sibling := get(v2.ID)
		assert.Equal(t, simplecms.StatusDraft, sibling.Status)
		assert.Equal(t, v2.UpdatedAt, sibling.UpdatedAt)
	})
}

func TestTransitionStatus_InvalidEdges(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	page := createPage(t, svc, "Edges")

	t.Run("draft cannot be archived", func(t *testing.T) {
		_, err := svc.TransitionStatus(ctx, page.ID, simplecms.StatusArchived)
		assert.ErrorIs(t, err, simplecms.ErrInvalidTransition)
	})

	t.Run("deleted cannot be published", func(t *testing.T) {
		deleted, err := svc.SoftDelete(ctx, page.ID)
		require.NoError(t, err)
		assert.Equal(t, simplecms.StatusDeleted, deleted.Status)

		_, err = svc.TransitionStatus(ctx, page.ID, simplecms.StatusPublished)
		var terr *simplecms.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, simplecms.StatusDeleted, terr.From)
		assert.Equal(t, simplecms.StatusPublished, terr.To)
	})

	t.Run("soft delete is idempotent", func(t *testing.T) {
		again, err := svc.SoftDelete(ctx, page.ID)
		require.NoError(t, err)
		assert.Equal(t, simplecms.StatusDeleted, again.Status)
	})

	t.Run("unknown instance", func(t *testing.T) {
		_, err := svc.TransitionStatus(ctx, uuid.New(), simplecms.StatusPublished)
		assert.ErrorIs(t, err, simplecms.ErrNotFound)
	})
}

func TestGetCurrent_DeletedVersions(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	page := createPage(t, svc, "Gone")
	_, err := svc.SoftDelete(ctx, page.ID)
	require.NoError(t, err)

	_, err = svc.GetCurrent(ctx, page.LogicalID, simplecms.ReadOptions{})
	assert.ErrorIs(t, err, simplecms.ErrNotFound)

	audit, err := svc.GetCurrent(ctx, page.LogicalID, simplecms.ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, page.ID, audit.ID)

	_, err = svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{})
	assert.ErrorIs(t, err, simplecms.ErrNotFound)

	restored, err := svc.Restore(ctx, page.LogicalID)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Version)
	assert.Equal(t, simplecms.StatusDraft, restored.Status)
	assert.Equal(t, "Gone", restored.Title)

	_, err = svc.Restore(ctx, page.LogicalID)
	assert.ErrorIs(t, err, simplecms.ErrInvalidTransition)
}

func TestCreateNextVersion_Validation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	page := createPage(t, svc, "Immutable")
	section := createSection(t, svc, page.LogicalID, 0)
	module := createModule(t, svc, section.LogicalID, "hero", article(), 0)

	tests := []struct {
		name      string
		logicalID uuid.UUID
		patch     simplecms.VersionPatch
	}{
		{
			name:      "slug cannot change",
			logicalID: page.LogicalID,
			patch:     simplecms.VersionPatch{Slug: ptr("renamed")},
		},
		{
			name:      "module type cannot change",
			logicalID: module.LogicalID,
			patch: simplecms.VersionPatch{Module: &simplecms.ModuleAttributes{
				Type: simplecms.ModuleGallery, Gallery: &simplecms.GalleryVariant{},
			}},
		},
		{
			name:      "page fields on a module",
			logicalID: module.LogicalID,
			patch:     simplecms.VersionPatch{Subtitle: ptr("nope")},
		},
		{
			name:      "page cannot become its own ancestor",
			logicalID: page.LogicalID,
			patch:     simplecms.VersionPatch{ParentID: &page.LogicalID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateNextVersion(ctx, tt.logicalID, tt.patch)
			assert.ErrorIs(t, err, simplecms.ErrValidation)
		})
	}

	t.Run("unknown logical id", func(t *testing.T) {
		_, err := svc.CreateNextVersion(ctx, uuid.New(), simplecms.VersionPatch{})
		assert.ErrorIs(t, err, simplecms.ErrNotFound)
	})
}

func TestPageParentCycle(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	root := createPage(t, svc, "Root")
	child, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
		Kind:     simplecms.KindPage,
		Title:    "Child",
		ParentID: root.LogicalID,
	})
	require.NoError(t, err)

	_, err = svc.CreateNextVersion(ctx, root.LogicalID, simplecms.VersionPatch{ParentID: &child.LogicalID})
	assert.ErrorIs(t, err, simplecms.ErrValidation)
}

func TestCreateNextVersion_PreviousUnchanged(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	page := createPage(t, svc, "Stable")
	section := createSection(t, svc, page.LogicalID, 0)
	module := createModule(t, svc, section.LogicalID, "body", &simplecms.ModuleAttributes{
		Type: simplecms.ModuleCTA,
		CTA:  &simplecms.CTAVariant{ButtonText: "Go", TargetURL: "/go"},
	}, 0)

	next, err := svc.CreateNextVersion(ctx, module.LogicalID, simplecms.VersionPatch{
		Module: &simplecms.ModuleAttributes{CTA: &simplecms.CTAVariant{ButtonText: "Join", TargetURL: "/join"}},
	})
	require.NoError(t, err)
	assert.Equal(t, simplecms.ModuleCTA, next.Module.Type)
	assert.Equal(t, "Join", next.Module.CTA.ButtonText)

	prev, err := svc.GetInstance(ctx, module.ID)
	require.NoError(t, err)
	assert.Equal(t, module.Module.CTA, prev.Module.CTA)
	assert.Equal(t, module.Title, prev.Title)
	assert.Equal(t, module.Status, prev.Status)

	assert.True(t, simplecms.IsSameLogical(prev, next))
	assert.NotEqual(t, prev.ID, next.ID)
	assert.False(t, simplecms.IsSameLogical(prev, section))
	assert.False(t, simplecms.IsSameLogical(prev, nil))
}

func TestCreateNextVersion_Concurrent(t *testing.T) {
	svc := setupTestService(t, simplecms.WithMaxRetries(50))
	ctx := context.Background()
	page := createPage(t, svc, "Busy")

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	versions, err := svc.ListVersions(ctx, page.LogicalID)
	require.NoError(t, err)
	assert.Len(t, versions, writers+1)
	assertContiguous(t, versions)
}

// conflictingRepo reports a version collision on every insert after the first.
type conflictingRepo struct {
	simplecms.Repository
	mu      sync.Mutex
	inserts int
}

func (r *conflictingRepo) CreateInstance(ctx context.Context, inst *simplecms.Instance) error {
	r.mu.Lock()
	r.inserts++
	n := r.inserts
	r.mu.Unlock()
	if n > 1 {
		return simplecms.ErrVersionConflict
	}
	return r.Repository.CreateInstance(ctx, inst)
}

func TestCreateNextVersion_ConflictExhausted(t *testing.T) {
	repo := &conflictingRepo{Repository: memory.New()}
	svc, err := simplecms.New(simplecms.WithRepository(repo), simplecms.WithMaxRetries(3))
	require.NoError(t, err)
	ctx := context.Background()

	page := createPage(t, svc, "Contended")
	_, err = svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{})

	var cerr *simplecms.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Attempts)
	assert.ErrorIs(t, err, simplecms.ErrConflict)
	assert.ErrorIs(t, err, simplecms.ErrVersionConflict)
}

func TestConcurrentPublish_SinglePublished(t *testing.T) {
	svc := setupTestService(t, simplecms.WithMaxRetries(20))
	ctx := context.Background()
	page := createPage(t, svc, "Race")

	ids := []uuid.UUID{page.ID}
	for i := 0; i < 5; i++ {
		v, err := svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{})
		require.NoError(t, err)
		ids = append(ids, v.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _ = svc.TransitionStatus(ctx, id, simplecms.StatusPublished)
		}(id)
	}
	wg.Wait()

	versions, err := svc.ListVersions(ctx, page.LogicalID)
	require.NoError(t, err)
	assertSinglePublished(t, versions)
}

func TestHooks(t *testing.T) {
	var (
		created []int
		changes []simplecms.Status
	)
	hooks := &simplecms.Hooks{
		AfterVersionCreate: []simplecms.AfterVersionCreateHook{
			func(hctx *simplecms.HookContext, inst *simplecms.Instance) error {
				created = append(created, inst.Version)
				return nil
			},
		},
		OnStatusChange: []simplecms.StatusChangeHook{
			func(hctx *simplecms.HookContext, inst *simplecms.Instance, from, to simplecms.Status) error {
				changes = append(changes, to)
				return nil
			},
		},
		BeforeTransition: []simplecms.BeforeTransitionHook{
			simplecms.PublishGuard(func(inst *simplecms.Instance) error {
				if inst.Title == "Embargoed" {
					return errors.New("embargoed")
				}
				return nil
			}),
		},
	}
	svc := setupTestService(t, simplecms.WithHooks(hooks))
	ctx := context.Background()

	page := createPage(t, svc, "Hooked")
	_, err := svc.CreateNextVersion(ctx, page.LogicalID, simplecms.VersionPatch{})
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, page.ID, simplecms.StatusPublished)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, created)
	assert.Equal(t, []simplecms.Status{simplecms.StatusPublished}, changes)

	embargoed := createPage(t, svc, "Embargoed")
	_, err = svc.TransitionStatus(ctx, embargoed.ID, simplecms.StatusPublished)
	assert.EqualError(t, err, "embargoed")
}

func TestPublications(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	newPub := func(name string, family simplecms.PublicationFamily, linked ...uuid.UUID) *simplecms.Instance {
		inst, err := svc.CreateFirstVersion(ctx, simplecms.CreateVersionRequest{
			Kind:        simplecms.KindPublication,
			Name:        name,
			Title:       name,
			Publication: &simplecms.PublicationAttributes{Family: family, LinkedNews: linked},
		})
		require.NoError(t, err)
		return inst
	}

	older := newPub("older", simplecms.FamilyNews)
	newer := newPub("newer", simplecms.FamilyNews)
	draft := newPub("draft", simplecms.FamilyNews)
	for _, id := range []uuid.UUID{older.ID, newer.ID} {
		_, err := svc.TransitionStatus(ctx, id, simplecms.StatusPublished)
		require.NoError(t, err)
	}

	letter := newPub("letter", simplecms.FamilyNewsletter, older.LogicalID, draft.LogicalID, newer.LogicalID)
	_, err := svc.TransitionStatus(ctx, letter.ID, simplecms.StatusPublished)
	require.NoError(t, err)

	t.Run("ListPublications newest first", func(t *testing.T) {
		pubs, err := svc.ListPublications(ctx, simplecms.ListPublicationsRequest{Family: simplecms.FamilyNews})
		require.NoError(t, err)
		require.Len(t, pubs, 2)
		assert.Equal(t, newer.LogicalID, pubs[0].LogicalID)
		assert.Equal(t, older.LogicalID, pubs[1].LogicalID)
	})

	t.Run("ListPublications limit", func(t *testing.T) {
		pubs, err := svc.ListPublications(ctx, simplecms.ListPublicationsRequest{Limit: 1})
		require.NoError(t, err)
		require.Len(t, pubs, 1)
		assert.Equal(t, letter.LogicalID, pubs[0].LogicalID)
	})

	t.Run("LinkedNews keeps link order and skips drafts", func(t *testing.T) {
		news, err := svc.LinkedNews(ctx, letter.LogicalID)
		require.NoError(t, err)
		require.Len(t, news, 2)
		assert.Equal(t, older.LogicalID, news[0].LogicalID)
		assert.Equal(t, newer.LogicalID, news[1].LogicalID)
	})

	t.Run("LinkedNews on a news item", func(t *testing.T) {
		_, err := svc.LinkedNews(ctx, older.LogicalID)
		assert.ErrorIs(t, err, simplecms.ErrValidation)
	})
}

func assertSinglePublished(t *testing.T, versions []*simplecms.Instance) {
	t.Helper()
	published := 0
	for _, v := range versions {
		if v.Status == simplecms.StatusPublished {
			published++
		}
	}
	assert.LessOrEqual(t, published, 1)
}

func assertContiguous(t *testing.T, versions []*simplecms.Instance) {
	t.Helper()
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
	}
}
