package simplecms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/tendant/simple-cms/pkg/simplecms/richtext"
)

const (
	defaultMaxRetries = 5
	retryBaseDelay    = 5 * time.Millisecond
	retryMaxDelay     = 100 * time.Millisecond
	maxTreeDepth      = 32
)

// service implements the Service interface
type service struct {
	repository Repository
	eventSink  EventSink
	cache      TreeCache
	hooks      *Hooks
	logger     *slog.Logger
	renderer   BodyRenderer
	maxRetries int
	now        func() time.Time

	fills singleflight.Group
	// writes counts invalidations; fills started under different counts are
	// never shared.
	writes atomic.Int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithTreeCache enables caching of rendered page trees
func WithTreeCache(cache TreeCache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithHooks installs lifecycle hooks
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithBodyRenderer replaces the markdown/HTML body renderer
func WithBodyRenderer(r BodyRenderer) Option {
	return func(s *service) {
		s.renderer = r
	}
}

// WithMaxRetries bounds the retries on version and status collisions
func WithMaxRetries(n int) Option {
	return func(s *service) {
		s.maxRetries = n
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		maxRetries: defaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.renderer == nil {
		s.renderer = defaultRenderer{r: richtext.New()}
	}
	if s.maxRetries < 1 {
		s.maxRetries = 1
	}

	return s, nil
}

type defaultRenderer struct {
	r *richtext.Renderer
}

func (d defaultRenderer) Render(body string, format BodyFormat) (string, error) {
	if format == BodyHTML {
		return d.r.Sanitize(body), nil
	}
	return d.r.Markdown(body)
}

// Version store operations

func (s *service) CreateFirstVersion(ctx context.Context, req CreateVersionRequest) (*Instance, error) {
	now := s.now()
	inst := &Instance{
		ID:          uuid.New(),
		LogicalID:   NewLogicalID(),
		Kind:        req.Kind,
		Version:     1,
		Status:      StatusDraft,
		ParentID:    req.ParentID,
		Name:        strings.TrimSpace(req.Name),
		Title:       strings.TrimSpace(req.Title),
		SortOrder:   req.SortOrder,
		Visible:     boolOr(req.Visible, true),
		AuthorID:    req.AuthorID,
		PublishedAt: req.PublishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Page != nil {
		p := *req.Page
		inst.Page = &p
	}
	if req.Module != nil {
		inst.Module = req.Module.clone()
	}
	if req.Publication != nil {
		inst.Publication = req.Publication.clone()
	}
	if inst.Kind == KindPage {
		if inst.Page == nil {
			inst.Page = &PageAttributes{}
		}
		if inst.Page.Slug == "" {
			inst.Page.Slug = Slugify(inst.Title)
		}
	}

	if err := s.validateInstance(ctx, inst); err != nil {
		return nil, err
	}
	if err := s.hooks.executeBeforeVersionCreate(ctx, inst); err != nil {
		return nil, err
	}

	if err := s.repository.CreateInstance(ctx, inst); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			verr := &ValidationError{}
			verr.Add("slug", fmt.Sprintf("%q is already taken", inst.Page.Slug))
			return nil, verr
		}
		s.hooks.executeOnError(ctx, "create_first_version", err)
		return nil, &StoreError{Op: "create_first_version", ID: inst.LogicalID, Err: err}
	}

	s.afterVersionCreate(ctx, inst)
	return inst.Clone(), nil
}

func (s *service) CreateNextVersion(ctx context.Context, logicalID uuid.UUID, patch VersionPatch) (*Instance, error) {
	var created *Instance
	err := s.withConflictRetry(ctx, logicalID, "create_next_version", func(ctx context.Context) error {
		versions, err := s.listVersions(ctx, logicalID)
		if err != nil {
			return err
		}
		current := pickCurrent(versions, false)
		if current == nil {
			return &NotFoundError{What: "logical id", ID: logicalID}
		}

		next, err := s.applyPatch(current, patch)
		if err != nil {
			return err
		}
		next.Version = versions[len(versions)-1].Version + 1

		if err := s.validateInstance(ctx, next); err != nil {
			return err
		}
		if err := s.hooks.executeBeforeVersionCreate(ctx, next); err != nil {
			return err
		}
		if err := s.repository.CreateInstance(ctx, next); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return &StoreError{Op: "create_next_version", ID: logicalID, Err: err}
		}
		created = next
		return nil
	})
	if err != nil {
		s.hooks.executeOnError(ctx, "create_next_version", err)
		return nil, err
	}

	s.afterVersionCreate(ctx, created)
	return created.Clone(), nil
}

func (s *service) GetCurrent(ctx context.Context, logicalID uuid.UUID, opts ReadOptions) (*Instance, error) {
	versions, err := s.listVersions(ctx, logicalID)
	if err != nil {
		return nil, err
	}
	current := pickCurrent(versions, opts.IncludeDeleted)
	if current == nil {
		return nil, &NotFoundError{What: "logical id", ID: logicalID}
	}
	return current, nil
}

func (s *service) GetInstance(ctx context.Context, instanceID uuid.UUID) (*Instance, error) {
	inst, err := s.repository.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			return nil, &NotFoundError{What: "instance", ID: instanceID}
		}
		return nil, &StoreError{Op: "get_instance", ID: instanceID, Err: err}
	}
	return inst, nil
}

func (s *service) ListVersions(ctx context.Context, logicalID uuid.UUID) ([]*Instance, error) {
	return s.listVersions(ctx, logicalID)
}

func (s *service) SoftDelete(ctx context.Context, instanceID uuid.UUID) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status == StatusDeleted {
		return inst, nil
	}
	return s.TransitionStatus(ctx, instanceID, StatusDeleted)
}

func (s *service) Restore(ctx context.Context, logicalID uuid.UUID) (*Instance, error) {
	var restored *Instance
	err := s.withConflictRetry(ctx, logicalID, "restore", func(ctx context.Context) error {
		versions, err := s.listVersions(ctx, logicalID)
		if err != nil {
			return err
		}
		if current := pickCurrent(versions, false); current != nil {
			return &InvalidTransitionError{
				InstanceID: current.ID,
				From:       current.Status,
				To:         StatusDraft,
				Reason:     "logical id still has a version that is not deleted",
			}
		}

		latest := versions[len(versions)-1]
		now := s.now()
		next := latest.Clone()
		next.ID = uuid.New()
		next.Version = latest.Version + 1
		next.Status = StatusDraft
		next.CreatedAt = now
		next.UpdatedAt = now

		if err := s.repository.CreateInstance(ctx, next); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return &StoreError{Op: "restore", ID: logicalID, Err: err}
		}
		restored = next
		return nil
	})
	if err != nil {
		s.hooks.executeOnError(ctx, "restore", err)
		return nil, err
	}

	s.afterVersionCreate(ctx, restored)
	return restored.Clone(), nil
}

// Publishing operations

func (s *service) TransitionStatus(ctx context.Context, instanceID uuid.UUID, to Status) (*Instance, error) {
	var (
		result *TransitionResult
		from   Status
	)
	err := s.withConflictRetry(ctx, instanceID, "transition_status", func(ctx context.Context) error {
		inst, err := s.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		if err := validateTransition(inst, to); err != nil {
			return err
		}
		if err := s.hooks.executeBeforeTransition(ctx, inst, to); err != nil {
			return err
		}

		now := s.now()
		params := TransitionParams{
			InstanceID: inst.ID,
			From:       inst.Status,
			To:         to,
			UpdatedAt:  now,
		}
		if to == StatusPublished {
			publishedAt := publishedAtFor(inst, now)
			params.PublishedAt = &publishedAt
		}

		res, err := s.repository.TransitionStatus(ctx, params)
		if err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return retry.RetryableError(err)
			}
			if errors.Is(err, ErrInstanceNotFound) {
				return &NotFoundError{What: "instance", ID: instanceID}
			}
			if errors.Is(err, ErrNewerPublished) {
				return &InvalidTransitionError{
					InstanceID: instanceID,
					From:       inst.Status,
					To:         to,
					Reason:     err.Error(),
				}
			}
			return &StoreError{Op: "transition_status", ID: instanceID, Err: err}
		}
		result = res
		from = inst.Status
		return nil
	})
	if err != nil {
		s.hooks.executeOnError(ctx, "transition_status", err)
		return nil, err
	}

	s.invalidate(ctx)
	inst := result.Instance
	if len(result.Archived) > 0 {
		s.logger.DebugContext(ctx, "superseded published versions archived",
			"logical_id", inst.LogicalID, "archived", result.Archived)
	}
	if s.eventSink != nil {
		if err := s.eventSink.StatusChanged(ctx, inst, from); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "status_changed", "err", err)
		}
	}
	if err := s.hooks.executeOnStatusChange(ctx, inst, from, to); err != nil {
		s.logger.WarnContext(ctx, "status change hook failed", "instance_id", inst.ID, "err", err)
	}
	return inst.Clone(), nil
}

func (s *service) ListPublications(ctx context.Context, req ListPublicationsRequest) ([]*Instance, error) {
	ids, err := s.repository.ListLogicalIDsByKind(ctx, KindPublication)
	if err != nil {
		return nil, &StoreError{Op: "list_publications", Err: err}
	}

	var out []*Instance
	for _, id := range ids {
		versions, err := s.listVersions(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		pub := pickPublished(versions)
		if pub == nil || pub.Publication == nil {
			continue
		}
		if req.Family != "" && pub.Publication.Family != req.Family {
			continue
		}
		out = append(out, pub)
	}
	sortNewestFirst(out)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (s *service) LinkedNews(ctx context.Context, newsletterID uuid.UUID) ([]*Instance, error) {
	newsletter, err := s.GetCurrent(ctx, newsletterID, ReadOptions{})
	if err != nil {
		return nil, err
	}
	if newsletter.Kind != KindPublication || newsletter.Publication == nil ||
		newsletter.Publication.Family != FamilyNewsletter {
		verr := &ValidationError{}
		verr.Add("id", "is not a newsletter publication")
		return nil, verr
	}

	var out []*Instance
	for _, newsID := range newsletter.Publication.LinkedNews {
		versions, err := s.listVersions(ctx, newsID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.reportFault(ctx, &IntegrityFault{
					Relation: "newsletter->news",
					ParentID: newsletterID,
					ChildID:  newsID,
					Err:      err,
				})
				continue
			}
			return nil, err
		}
		if pub := pickPublished(versions); pub != nil {
			out = append(out, pub)
		}
	}
	return out, nil
}

// Internal helpers

func (s *service) listVersions(ctx context.Context, logicalID uuid.UUID) ([]*Instance, error) {
	versions, err := s.repository.ListVersions(ctx, logicalID)
	if err != nil {
		return nil, &StoreError{Op: "list_versions", ID: logicalID, Err: err}
	}
	if len(versions) == 0 {
		return nil, &NotFoundError{What: "logical id", ID: logicalID}
	}
	return versions, nil
}

// withConflictRetry runs fn, retrying on retryable collisions with a short
// exponential backoff, and converts exhaustion into a ConflictError.
func (s *service) withConflictRetry(ctx context.Context, id uuid.UUID, op string, fn func(context.Context) error) error {
	attempts := 0
	backoff := retry.NewExponential(retryBaseDelay)
	backoff = retry.WithCappedDuration(retryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(s.maxRetries-1), backoff)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		return fn(ctx)
	})
	if err != nil && (errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrStatusConflict)) {
		return &ConflictError{LogicalID: id, Op: op, Attempts: attempts, Err: err}
	}
	return err
}

func (s *service) afterVersionCreate(ctx context.Context, inst *Instance) {
	s.invalidate(ctx)
	if s.eventSink != nil {
		if err := s.eventSink.InstanceCreated(ctx, inst); err != nil {
			s.logger.WarnContext(ctx, "event sink failed", "event", "instance_created", "err", err)
		}
	}
	if err := s.hooks.executeAfterVersionCreate(ctx, inst); err != nil {
		s.logger.WarnContext(ctx, "after version create hook failed", "instance_id", inst.ID, "err", err)
	}
}

// invalidate drops every cached tree. A failed purge is logged; the write
// that triggered it has already been stored.
func (s *service) invalidate(ctx context.Context) {
	s.writes.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to purge tree cache", "err", err)
	}
}

func (s *service) reportFault(ctx context.Context, fault *IntegrityFault) {
	s.logger.WarnContext(ctx, "integrity fault, node omitted",
		"relation", fault.Relation,
		"parent_id", fault.ParentID,
		"child_id", fault.ChildID,
		"err", fault.Err)
	s.hooks.executeOnIntegrityFault(ctx, fault)
}

// pickCurrent returns the highest non-deleted version, or with
// includeDeleted the highest version overall when all are deleted.
// versions must be ascending.
func pickCurrent(versions []*Instance, includeDeleted bool) *Instance {
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Status != StatusDeleted {
			return versions[i]
		}
	}
	if includeDeleted && len(versions) > 0 {
		return versions[len(versions)-1]
	}
	return nil
}

// pickPublished returns the single published version, if any.
func pickPublished(versions []*Instance) *Instance {
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Status == StatusPublished {
			return versions[i]
		}
	}
	return nil
}

func (s *service) applyPatch(current *Instance, patch VersionPatch) (*Instance, error) {
	now := s.now()
	next := current.Clone()
	next.ID = uuid.New()
	next.Status = StatusDraft
	next.CreatedAt = now
	next.UpdatedAt = now

	if patch.ParentID != nil {
		next.ParentID = *patch.ParentID
	}
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.SortOrder != nil {
		next.SortOrder = *patch.SortOrder
	}
	if patch.Visible != nil {
		next.Visible = *patch.Visible
	}
	if patch.AuthorID != uuid.Nil {
		next.AuthorID = patch.AuthorID
	}
	if patch.PublishedAt != nil {
		t := *patch.PublishedAt
		next.PublishedAt = &t
	}

	verr := &ValidationError{}
	hasPageFields := patch.Slug != nil || patch.Subtitle != nil || patch.NavPosition != nil
	if hasPageFields && current.Kind != KindPage {
		verr.Add("page", "page fields only apply to pages")
	}
	if current.Kind == KindPage && next.Page != nil {
		if patch.Slug != nil && *patch.Slug != current.Page.Slug {
			verr.Add("slug", "is immutable once set")
		}
		if patch.Subtitle != nil {
			next.Page.Subtitle = *patch.Subtitle
		}
		if patch.NavPosition != nil {
			next.Page.NavPosition = *patch.NavPosition
		}
	}

	if patch.Module != nil {
		if current.Kind != KindModule || current.Module == nil {
			verr.Add("module", "module fields only apply to modules")
		} else {
			if patch.Module.Type != "" && patch.Module.Type != current.Module.Type {
				verr.Add("module.type", "cannot change between versions")
			}
			next.Module = patch.Module.clone()
			next.Module.Type = current.Module.Type
		}
	}

	if patch.Publication != nil {
		if current.Kind != KindPublication || current.Publication == nil {
			verr.Add("publication", "publication fields only apply to publications")
		} else {
			if patch.Publication.Family != "" && patch.Publication.Family != current.Publication.Family {
				verr.Add("publication.family", "cannot change between versions")
			}
			next.Publication = patch.Publication.clone()
			next.Publication.Family = current.Publication.Family
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return next, nil
}

// validateInstance checks required fields and parent references of a
// version about to be stored.
func (s *service) validateInstance(ctx context.Context, inst *Instance) error {
	verr := &ValidationError{}

	switch inst.Kind {
	case KindPage:
		if inst.Title == "" {
			verr.Add("title", "is required")
		}
		if inst.Page == nil || !IsValidSlug(inst.Page.Slug) {
			verr.Add("slug", "must be lowercase letters, digits and single hyphens")
		}
		if inst.ParentID != uuid.Nil {
			if err := s.checkPageAncestry(ctx, inst); err != nil {
				verr.Add("parent_id", err.Error())
			}
		}
	case KindSection:
		s.requireParent(ctx, verr, inst, KindPage)
	case KindModule:
		if inst.Name == "" {
			verr.Add("name", "is required")
		}
		s.requireParent(ctx, verr, inst, KindSection)
		validateModuleAttributes(verr, inst.Module)
	case KindPublication:
		if inst.Name == "" {
			verr.Add("name", "is required")
		}
		if inst.ParentID != uuid.Nil {
			verr.Add("parent_id", "publications have no parent")
		}
		s.validatePublication(ctx, verr, inst.Publication)
	default:
		verr.Add("kind", fmt.Sprintf("unknown kind %q", inst.Kind))
	}

	if inst.Kind != KindModule && inst.Module != nil {
		verr.Add("module", "only modules carry module fields")
	}
	if inst.Kind != KindPublication && inst.Publication != nil {
		verr.Add("publication", "only publications carry publication fields")
	}
	if inst.Kind != KindPage && inst.Page != nil {
		verr.Add("page", "only pages carry page fields")
	}

	return verr.OrNil()
}

func (s *service) requireParent(ctx context.Context, verr *ValidationError, inst *Instance, parentKind Kind) {
	if inst.ParentID == uuid.Nil {
		verr.Add("parent_id", "is required")
		return
	}
	parent, err := s.GetCurrent(ctx, inst.ParentID, ReadOptions{})
	if err != nil || parent.Kind != parentKind {
		verr.Add("parent_id", fmt.Sprintf("does not resolve to a %s", parentKind))
	}
}

// checkPageAncestry walks the parent chain and rejects cycles.
func (s *service) checkPageAncestry(ctx context.Context, inst *Instance) error {
	id := inst.ParentID
	for depth := 0; id != uuid.Nil; depth++ {
		if id == inst.LogicalID {
			return fmt.Errorf("would create a cycle")
		}
		if depth > maxTreeDepth {
			return fmt.Errorf("parent chain is deeper than %d", maxTreeDepth)
		}
		parent, err := s.GetCurrent(ctx, id, ReadOptions{})
		if err != nil || parent.Kind != KindPage {
			return fmt.Errorf("does not resolve to a page")
		}
		id = parent.ParentID
	}
	return nil
}

func validateModuleAttributes(verr *ValidationError, m *ModuleAttributes) {
	if m == nil {
		verr.Add("module.type", "is required")
		return
	}
	if !m.Type.IsValid() {
		verr.Add("module.type", fmt.Sprintf("unknown module type %q", m.Type))
		return
	}
	present := map[ModuleType]bool{
		ModuleArticle:    m.Article != nil,
		ModuleCTA:        m.CTA != nil,
		ModuleForm:       m.Form != nil,
		ModuleGallery:    m.Gallery != nil,
		ModuleList:       m.List != nil,
		ModuleNews:       m.News != nil,
		ModuleNewsletter: m.Newsletter != nil,
		ModuleTimeline:   m.Timeline != nil,
	}
	for t, ok := range present {
		if ok && t != m.Type {
			verr.Add("module."+string(t), fmt.Sprintf("does not match module type %q", m.Type))
		}
	}
	if m.Type == ModuleCTA && m.CTA != nil && m.CTA.TargetURL == "" {
		verr.Add("module.cta.target_url", "is required")
	}
}

func (s *service) validatePublication(ctx context.Context, verr *ValidationError, p *PublicationAttributes) {
	if p == nil {
		verr.Add("publication.family", "is required")
		return
	}
	switch p.Family {
	case FamilyNews:
		if len(p.LinkedNews) > 0 {
			verr.Add("publication.linked_news", "only newsletters link news")
		}
	case FamilyNewsletter:
		for _, id := range p.LinkedNews {
			linked, err := s.GetCurrent(ctx, id, ReadOptions{})
			if err != nil || linked.Publication == nil || linked.Publication.Family != FamilyNews {
				verr.Add("publication.linked_news", fmt.Sprintf("%s does not resolve to a news publication", id))
			}
		}
	default:
		verr.Add("publication.family", fmt.Sprintf("unknown family %q", p.Family))
	}
}
