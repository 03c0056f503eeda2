package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Repository implements simplecms.Repository using in-memory storage.
// A single mutex covers every map, so a publish and its archive sweep are
// one atomic unit.
type Repository struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*simplecms.Instance
	versions  map[uuid.UUID][]uuid.UUID      // logical_id -> instance ids, ascending by version
	logical   map[simplecms.Kind][]uuid.UUID // kind -> logical ids in creation order
	slugs     map[string]uuid.UUID           // slug -> page logical_id
	contents  map[uuid.UUID]*simplecms.Content
	byOwner   map[uuid.UUID][]uuid.UUID // owner logical_id -> content ids
}

// New creates a new in-memory repository
func New() simplecms.Repository {
	return &Repository{
		instances: make(map[uuid.UUID]*simplecms.Instance),
		versions:  make(map[uuid.UUID][]uuid.UUID),
		logical:   make(map[simplecms.Kind][]uuid.UUID),
		slugs:     make(map[string]uuid.UUID),
		contents:  make(map[uuid.UUID]*simplecms.Content),
		byOwner:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// Version store operations

func (r *Repository) CreateInstance(ctx context.Context, inst *simplecms.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[inst.ID]; exists {
		return fmt.Errorf("instance %s already exists", inst.ID)
	}

	ids := r.versions[inst.LogicalID]
	for _, id := range ids {
		existing := r.instances[id]
		if existing.Version == inst.Version {
			return simplecms.ErrVersionConflict
		}
		if existing.Kind != inst.Kind {
			return fmt.Errorf("logical id %s is a %s, not a %s", inst.LogicalID, existing.Kind, inst.Kind)
		}
	}

	if inst.Kind == simplecms.KindPage && inst.Page != nil {
		if owner, taken := r.slugs[inst.Page.Slug]; taken && owner != inst.LogicalID {
			return simplecms.ErrSlugTaken
		}
		r.slugs[inst.Page.Slug] = inst.LogicalID
	}

	if len(ids) == 0 {
		r.logical[inst.Kind] = append(r.logical[inst.Kind], inst.LogicalID)
	}

	// keep the version list ascending even if versions arrive out of order
	pos := len(ids)
	for pos > 0 && r.instances[ids[pos-1]].Version > inst.Version {
		pos--
	}
	ids = append(ids, uuid.Nil)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = inst.ID
	r.versions[inst.LogicalID] = ids

	r.instances[inst.ID] = inst.Clone()
	return nil
}

func (r *Repository) GetInstance(ctx context.Context, id uuid.UUID) (*simplecms.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, exists := r.instances[id]
	if !exists {
		return nil, simplecms.ErrInstanceNotFound
	}
	return inst.Clone(), nil
}

func (r *Repository) ListVersions(ctx context.Context, logicalID uuid.UUID) ([]*simplecms.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.versions[logicalID]
	result := make([]*simplecms.Instance, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.instances[id].Clone())
	}
	return result, nil
}

func (r *Repository) ListChildLogicalIDs(ctx context.Context, kind simplecms.Kind, parentID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []uuid.UUID
	for _, logicalID := range r.logical[kind] {
		for _, id := range r.versions[logicalID] {
			if r.instances[id].ParentID == parentID {
				result = append(result, logicalID)
				break
			}
		}
	}
	return result, nil
}

func (r *Repository) ListLogicalIDsByKind(ctx context.Context, kind simplecms.Kind) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]uuid.UUID(nil), r.logical[kind]...), nil
}

func (r *Repository) TransitionStatus(ctx context.Context, params simplecms.TransitionParams) (*simplecms.TransitionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, exists := r.instances[params.InstanceID]
	if !exists {
		return nil, simplecms.ErrInstanceNotFound
	}
	if inst.Status != params.From {
		return nil, simplecms.ErrStatusConflict
	}

	result := &simplecms.TransitionResult{}
	if params.To == simplecms.StatusPublished {
		for _, id := range r.versions[inst.LogicalID] {
			other := r.instances[id]
			if other.Status == simplecms.StatusPublished && other.Version > inst.Version {
				return nil, simplecms.ErrNewerPublished
			}
		}
		for _, id := range r.versions[inst.LogicalID] {
			other := r.instances[id]
			if id != inst.ID && other.Status == simplecms.StatusPublished {
				other.Status = simplecms.StatusArchived
				other.UpdatedAt = params.UpdatedAt
				result.Archived = append(result.Archived, id)
			}
		}
		if params.PublishedAt != nil {
			t := *params.PublishedAt
			inst.PublishedAt = &t
		}
	}

	inst.Status = params.To
	inst.UpdatedAt = params.UpdatedAt
	result.Instance = inst.Clone()
	return result, nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *simplecms.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; exists {
		return fmt.Errorf("content %s already exists", content.ID)
	}
	r.contents[content.ID] = content.Clone()
	r.byOwner[content.OwnerID] = append(r.byOwner[content.OwnerID], content.ID)
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*simplecms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, simplecms.ErrContentNotFound
	}
	return content.Clone(), nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *simplecms.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.contents[content.ID]
	if !exists {
		return simplecms.ErrContentNotFound
	}
	if existing.OwnerID != content.OwnerID {
		return fmt.Errorf("content %s cannot change owner", content.ID)
	}
	r.contents[content.ID] = content.Clone()
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, exists := r.contents[id]
	if !exists {
		return simplecms.ErrContentNotFound
	}
	delete(r.contents, id)

	ids := r.byOwner[content.OwnerID]
	for i, cid := range ids {
		if cid == id {
			r.byOwner[content.OwnerID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Repository) ListContentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*simplecms.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOwner[ownerID]
	result := make([]*simplecms.Content, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.contents[id].Clone())
	}
	return result, nil
}
