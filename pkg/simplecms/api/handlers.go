package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Handler handles HTTP requests for versioned CMS entities and their contents
type Handler struct {
	service   simplecms.Service
	logger    *slog.Logger
	tokenAuth *jwtauth.JWTAuth
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTokenAuth requires a bearer token on every route. The token subject
// becomes the author of every write.
func WithTokenAuth(ja *jwtauth.JWTAuth) HandlerOption {
	return func(h *Handler) {
		h.tokenAuth = ja
	}
}

// NewHandler creates a new CMS handler
func NewHandler(service simplecms.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var kindPaths = []struct {
	path string
	kind simplecms.Kind
}{
	{"pages", simplecms.KindPage},
	{"sections", simplecms.KindSection},
	{"modules", simplecms.KindModule},
	{"publications", simplecms.KindPublication},
}

// Routes returns the routes for the CMS API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(h.logger), Recovery(h.logger), BodyLimit(DefaultMaxBodyBytes))
	if h.tokenAuth != nil {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(jwtauth.Authenticator)
	}

	for _, kp := range kindPaths {
		kind := kp.kind
		r.Route("/"+kp.path, func(r chi.Router) {
			r.Post("/", h.createFirstVersion(kind))
			r.Get("/{logicalID}", h.getCurrent(kind))
			r.Post("/{logicalID}/versions", h.createNextVersion(kind))
			r.Get("/{logicalID}/versions", h.listVersions(kind))
			r.Post("/{logicalID}/restore", h.restore(kind))

			switch kind {
			case simplecms.KindPage:
				r.Get("/{logicalID}/tree", h.RenderPageTree)
				r.Get("/{logicalID}/nav", h.RenderNavTree)
			case simplecms.KindPublication:
				r.Get("/", h.ListPublications)
				r.Get("/{logicalID}/linked-news", h.LinkedNews)
			}
		})
	}

	r.Route("/instances/{instanceID}", func(r chi.Router) {
		r.Get("/", h.GetInstance)
		r.Delete("/", h.SoftDelete)
		r.Post("/status", h.TransitionStatus)
	})

	r.Route("/owners/{ownerID}/contents", func(r chi.Router) {
		r.Post("/", h.CreateContent)
		r.Get("/", h.ListContents)
	})

	r.Route("/contents/{contentID}", func(r chi.Router) {
		r.Put("/", h.UpdateContent)
		r.Delete("/", h.DeleteContent)
	})

	return r
}

// VersionRequest is the request body for creating the first version of an entity
type VersionRequest struct {
	ParentID    uuid.UUID                        `json:"parent_id"`
	Name        string                           `json:"name"`
	Title       string                           `json:"title"`
	SortOrder   int                              `json:"sort_order"`
	Visible     *bool                            `json:"visible,omitempty"`
	AuthorID    uuid.UUID                        `json:"author_id"`
	PublishedAt *time.Time                       `json:"published_at,omitempty"`
	Page        *simplecms.PageAttributes        `json:"page,omitempty"`
	Module      *simplecms.ModuleAttributes      `json:"module,omitempty"`
	Publication *simplecms.PublicationAttributes `json:"publication,omitempty"`
}

// PatchRequest is the request body for creating the next version of an entity.
// Omitted fields are copied forward from the current version.
type PatchRequest struct {
	ParentID    *uuid.UUID                       `json:"parent_id,omitempty"`
	Name        *string                          `json:"name,omitempty"`
	Title       *string                          `json:"title,omitempty"`
	SortOrder   *int                             `json:"sort_order,omitempty"`
	Visible     *bool                            `json:"visible,omitempty"`
	AuthorID    uuid.UUID                        `json:"author_id"`
	PublishedAt *time.Time                       `json:"published_at,omitempty"`
	Slug        *string                          `json:"slug,omitempty"`
	Subtitle    *string                          `json:"subtitle,omitempty"`
	NavPosition *int                             `json:"nav_position,omitempty"`
	Module      *simplecms.ModuleAttributes      `json:"module,omitempty"`
	Publication *simplecms.PublicationAttributes `json:"publication,omitempty"`
}

// StatusRequest is the request body for a status transition
type StatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) createFirstVersion(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VersionRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		author, ok := h.author(w, r, req.AuthorID)
		if !ok {
			return
		}

		inst, err := h.service.CreateFirstVersion(r.Context(), simplecms.CreateVersionRequest{
			Kind:        kind,
			ParentID:    req.ParentID,
			Name:        req.Name,
			Title:       req.Title,
			SortOrder:   req.SortOrder,
			Visible:     req.Visible,
			AuthorID:    author,
			PublishedAt: req.PublishedAt,
			Page:        req.Page,
			Module:      req.Module,
			Publication: req.Publication,
		})
		if err != nil {
			h.writeServiceError(w, r, "create_first_version", err)
			return
		}

		h.logger.Debug("Version created", "kind", kind, "logical_id", inst.LogicalID, "version", inst.Version)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, inst)
	}
}

func (h *Handler) getCurrent(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logicalID, ok := parseID(w, r, "logicalID")
		if !ok {
			return
		}
		includeDeleted, ok := parseBool(w, r, "include_deleted")
		if !ok {
			return
		}

		inst, err := h.service.GetCurrent(r.Context(), logicalID, simplecms.ReadOptions{IncludeDeleted: includeDeleted})
		if err == nil && inst.Kind != kind {
			err = &simplecms.NotFoundError{What: string(kind), ID: logicalID}
		}
		if err != nil {
			h.writeServiceError(w, r, "get_current", err)
			return
		}
		render.JSON(w, r, inst)
	}
}

func (h *Handler) createNextVersion(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logicalID, ok := parseID(w, r, "logicalID")
		if !ok {
			return
		}
		var req PatchRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		author, ok := h.author(w, r, req.AuthorID)
		if !ok {
			return
		}
		if err := h.checkKind(r.Context(), logicalID, kind); err != nil {
			h.writeServiceError(w, r, "create_next_version", err)
			return
		}

		inst, err := h.service.CreateNextVersion(r.Context(), logicalID, simplecms.VersionPatch{
			ParentID:    req.ParentID,
			Name:        req.Name,
			Title:       req.Title,
			SortOrder:   req.SortOrder,
			Visible:     req.Visible,
			AuthorID:    author,
			PublishedAt: req.PublishedAt,
			Slug:        req.Slug,
			Subtitle:    req.Subtitle,
			NavPosition: req.NavPosition,
			Module:      req.Module,
			Publication: req.Publication,
		})
		if err != nil {
			h.writeServiceError(w, r, "create_next_version", err)
			return
		}

		h.logger.Debug("Version created", "kind", kind, "logical_id", inst.LogicalID, "version", inst.Version)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, inst)
	}
}

func (h *Handler) listVersions(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logicalID, ok := parseID(w, r, "logicalID")
		if !ok {
			return
		}
		versions, err := h.service.ListVersions(r.Context(), logicalID)
		if err == nil && versions[0].Kind != kind {
			err = &simplecms.NotFoundError{What: string(kind), ID: logicalID}
		}
		if err != nil {
			h.writeServiceError(w, r, "list_versions", err)
			return
		}
		render.JSON(w, r, versions)
	}
}

func (h *Handler) restore(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logicalID, ok := parseID(w, r, "logicalID")
		if !ok {
			return
		}
		if err := h.checkKind(r.Context(), logicalID, kind); err != nil {
			h.writeServiceError(w, r, "restore", err)
			return
		}
		inst, err := h.service.Restore(r.Context(), logicalID)
		if err != nil {
			h.writeServiceError(w, r, "restore", err)
			return
		}

		h.logger.Debug("Entity restored", "kind", kind, "logical_id", logicalID, "version", inst.Version)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, inst)
	}
}

// GetInstance returns one stored version by instance id
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseID(w, r, "instanceID")
	if !ok {
		return
	}
	inst, err := h.service.GetInstance(r.Context(), instanceID)
	if err != nil {
		h.writeServiceError(w, r, "get_instance", err)
		return
	}
	render.JSON(w, r, inst)
}

// SoftDelete marks a version as deleted
func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseID(w, r, "instanceID")
	if !ok {
		return
	}
	inst, err := h.service.SoftDelete(r.Context(), instanceID)
	if err != nil {
		h.writeServiceError(w, r, "soft_delete", err)
		return
	}
	render.JSON(w, r, inst)
}

// TransitionStatus moves a version along the publishing state machine
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseID(w, r, "instanceID")
	if !ok {
		return
	}
	var req StatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	to := simplecms.Status(req.Status)
	if !to.IsValid() {
		writeError(w, r, http.StatusBadRequest, "invalid_status", "unknown status "+strconv.Quote(req.Status))
		return
	}

	inst, err := h.service.TransitionStatus(r.Context(), instanceID, to)
	if err != nil {
		h.writeServiceError(w, r, "transition_status", err)
		return
	}
	render.JSON(w, r, inst)
}

// RenderPageTree returns the composed page tree
func (h *Handler) RenderPageTree(w http.ResponseWriter, r *http.Request) {
	pageID, ok := parseID(w, r, "logicalID")
	if !ok {
		return
	}
	view, err := h.service.RenderPageTree(r.Context(), pageID, simplecms.ViewMode(r.URL.Query().Get("view")))
	if err != nil {
		h.writeServiceError(w, r, "render_page_tree", err)
		return
	}
	render.JSON(w, r, view)
}

// RenderNavTree returns the navigation tree rooted at a page
func (h *Handler) RenderNavTree(w http.ResponseWriter, r *http.Request) {
	pageID, ok := parseID(w, r, "logicalID")
	if !ok {
		return
	}
	nav, err := h.service.RenderNavTree(r.Context(), pageID)
	if err != nil {
		h.writeServiceError(w, r, "render_nav_tree", err)
		return
	}
	render.JSON(w, r, nav)
}

// ListPublications returns current published publications, newest first
func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	req := simplecms.ListPublicationsRequest{
		Family: simplecms.PublicationFamily(r.URL.Query().Get("family")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		req.Limit = n
	}

	pubs, err := h.service.ListPublications(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "list_publications", err)
		return
	}
	if pubs == nil {
		pubs = []*simplecms.Instance{}
	}
	render.JSON(w, r, pubs)
}

// LinkedNews returns the news publications linked from a newsletter
func (h *Handler) LinkedNews(w http.ResponseWriter, r *http.Request) {
	newsletterID, ok := parseID(w, r, "logicalID")
	if !ok {
		return
	}
	news, err := h.service.LinkedNews(r.Context(), newsletterID)
	if err != nil {
		h.writeServiceError(w, r, "linked_news", err)
		return
	}
	if news == nil {
		news = []*simplecms.Instance{}
	}
	render.JSON(w, r, news)
}

// checkKind reports a not-found error when logicalID belongs to another kind.
func (h *Handler) checkKind(ctx context.Context, logicalID uuid.UUID, kind simplecms.Kind) error {
	versions, err := h.service.ListVersions(ctx, logicalID)
	if err != nil {
		return err
	}
	if versions[0].Kind != kind {
		return &simplecms.NotFoundError{What: string(kind), ID: logicalID}
	}
	return nil
}

// author picks the token subject when token auth is configured, else the
// author id supplied in the body.
func (h *Handler) author(w http.ResponseWriter, r *http.Request, fromBody uuid.UUID) (uuid.UUID, bool) {
	if h.tokenAuth == nil {
		return fromBody, true
	}
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return uuid.Nil, false
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "token subject is not a valid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "invalid "+param+": "+strconv.Quote(raw))
		return uuid.Nil, false
	}
	return id, true
}

func parseBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_query", name+" must be a boolean")
		return false, false
	}
	return v, true
}
