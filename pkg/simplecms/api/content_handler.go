package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ContentRequest is the request body for attaching content to an owner
type ContentRequest struct {
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	BodyFormat simplecms.BodyFormat `json:"body_format"`
	SortOrder  int                  `json:"sort_order"`
	Visible    *bool                `json:"visible,omitempty"`
	AuthorID   uuid.UUID            `json:"author_id"`
	Media      []simplecms.Media    `json:"media,omitempty"`
}

// ContentPatchRequest is the request body for editing a content row
type ContentPatchRequest struct {
	Title      *string               `json:"title,omitempty"`
	Body       *string               `json:"body,omitempty"`
	BodyFormat *simplecms.BodyFormat `json:"body_format,omitempty"`
	SortOrder  *int                  `json:"sort_order,omitempty"`
	Visible    *bool                 `json:"visible,omitempty"`
	Media      []simplecms.Media     `json:"media,omitempty"`
}

// CreateContent attaches a content row to a module or publication
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := parseID(w, r, "ownerID")
	if !ok {
		return
	}
	var req ContentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	author, ok := h.author(w, r, req.AuthorID)
	if !ok {
		return
	}

	content, err := h.service.CreateContent(r.Context(), simplecms.CreateContentRequest{
		OwnerID:    ownerID,
		Title:      req.Title,
		Body:       req.Body,
		BodyFormat: req.BodyFormat,
		SortOrder:  req.SortOrder,
		Visible:    req.Visible,
		AuthorID:   author,
		Media:      req.Media,
	})
	if err != nil {
		h.writeServiceError(w, r, "create_content", err)
		return
	}

	h.logger.Debug("Content created", "content_id", content.ID, "owner_id", ownerID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// ListContents returns the ordered contents of an owner
func (h *Handler) ListContents(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := parseID(w, r, "ownerID")
	if !ok {
		return
	}
	includeHidden, ok := parseBool(w, r, "include_hidden")
	if !ok {
		return
	}

	contents, err := h.service.LatestContentsByOwner(r.Context(), ownerID, simplecms.ContentReadOptions{IncludeHidden: includeHidden})
	if err != nil {
		h.writeServiceError(w, r, "list_contents", err)
		return
	}
	if contents == nil {
		contents = []*simplecms.Content{}
	}
	render.JSON(w, r, contents)
}

// UpdateContent edits a content row in place
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseID(w, r, "contentID")
	if !ok {
		return
	}
	var req ContentPatchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	content, err := h.service.UpdateContent(r.Context(), simplecms.UpdateContentRequest{
		ID:         contentID,
		Title:      req.Title,
		Body:       req.Body,
		BodyFormat: req.BodyFormat,
		SortOrder:  req.SortOrder,
		Visible:    req.Visible,
		Media:      req.Media,
	})
	if err != nil {
		h.writeServiceError(w, r, "update_content", err)
		return
	}
	render.JSON(w, r, content)
}

// DeleteContent removes a content row
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseID(w, r, "contentID")
	if !ok {
		return
	}
	if err := h.service.DeleteContent(r.Context(), contentID); err != nil {
		h.writeServiceError(w, r, "delete_content", err)
		return
	}

	h.logger.Debug("Content deleted", "content_id", contentID)
	render.NoContent(w, r)
}
