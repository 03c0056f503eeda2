package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DBTX is an interface that allows us to use either a database connection,
// a pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements simplecms.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplecms.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplecms.Repository {
	return &Repository{db: pool}
}

const (
	constraintLogicalVersion = "cms_instance_logical_version_key"
	constraintOnePublished   = "cms_instance_one_published_idx"
)

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case constraintLogicalVersion:
				return simplecms.ErrVersionConflict
			case constraintOnePublished:
				return simplecms.ErrStatusConflict
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("value rejected by %s", pgErr.ConstraintName)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return simplecms.ErrStatusConflict
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// attributes is the JSONB payload of the kind-specific blocks.
type attributes struct {
	Page        *simplecms.PageAttributes        `json:"page,omitempty"`
	Module      *simplecms.ModuleAttributes      `json:"module,omitempty"`
	Publication *simplecms.PublicationAttributes `json:"publication,omitempty"`
}

const instanceColumns = `id, logical_id, kind, version, status, parent_id, name, title,
	sort_order, visible, author_id, published_at, attributes, created_at, updated_at`

func scanInstance(row pgx.Row) (*simplecms.Instance, error) {
	var (
		inst     simplecms.Instance
		parentID *uuid.UUID
		authorID *uuid.UUID
		raw      []byte
	)
	err := row.Scan(
		&inst.ID, &inst.LogicalID, &inst.Kind, &inst.Version, &inst.Status,
		&parentID, &inst.Name, &inst.Title, &inst.SortOrder, &inst.Visible,
		&authorID, &inst.PublishedAt, &raw, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inst.ParentID = fromNullable(parentID)
	inst.AuthorID = fromNullable(authorID)

	var attrs attributes
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", inst.ID, err)
		}
	}
	inst.Page, inst.Module, inst.Publication = attrs.Page, attrs.Module, attrs.Publication
	return &inst, nil
}

func collectInstances(rows pgx.Rows) ([]*simplecms.Instance, error) {
	defer rows.Close()
	var result []*simplecms.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, rows.Err()
}

func nullable(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func fromNullable(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

// Version store operations

func (r *Repository) CreateInstance(ctx context.Context, inst *simplecms.Instance) error {
	raw, err := json.Marshal(attributes{Page: inst.Page, Module: inst.Module, Publication: inst.Publication})
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if inst.Kind == simplecms.KindPage && inst.Page != nil {
			if err := reserveSlug(ctx, tx, inst.Page.Slug, inst.LogicalID); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO cms_instance (
				id, logical_id, kind, version, status, parent_id, name, title,
				sort_order, visible, author_id, published_at, attributes, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

		_, err := tx.Exec(ctx, query,
			inst.ID, inst.LogicalID, inst.Kind, inst.Version, inst.Status,
			nullable(inst.ParentID), inst.Name, inst.Title, inst.SortOrder, inst.Visible,
			nullable(inst.AuthorID), inst.PublishedAt, raw, inst.CreatedAt, inst.UpdatedAt)
		return err
	})
	if err != nil {
		if errors.Is(err, simplecms.ErrSlugTaken) {
			return err
		}
		return r.handlePostgresError("create instance", err)
	}
	return nil
}

// reserveSlug claims slug for logicalID, or confirms the claim already exists.
func reserveSlug(ctx context.Context, tx pgx.Tx, slug string, logicalID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO cms_page_slug (slug, logical_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		slug, logicalID)
	if err != nil {
		return err
	}

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT logical_id FROM cms_page_slug WHERE slug = $1`, slug).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// the logical id already owns a different slug
			return simplecms.ErrSlugTaken
		}
		return err
	}
	if owner != logicalID {
		return simplecms.ErrSlugTaken
	}
	return nil
}

func (r *Repository) GetInstance(ctx context.Context, id uuid.UUID) (*simplecms.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM cms_instance WHERE id = $1`

	inst, err := scanInstance(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrInstanceNotFound
		}
		return nil, r.handlePostgresError("get instance", err)
	}
	return inst, nil
}

func (r *Repository) ListVersions(ctx context.Context, logicalID uuid.UUID) ([]*simplecms.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM cms_instance WHERE logical_id = $1 ORDER BY version ASC`

	rows, err := r.db.Query(ctx, query, logicalID)
	if err != nil {
		return nil, r.handlePostgresError("list versions", err)
	}
	return collectInstances(rows)
}

func (r *Repository) ListChildLogicalIDs(ctx context.Context, kind simplecms.Kind, parentID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT logical_id FROM cms_instance
		WHERE kind = $1 AND parent_id = $2
		GROUP BY logical_id
		ORDER BY MIN(created_at) ASC, logical_id ASC`

	return r.queryIDs(ctx, "list child logical ids", query, kind, parentID)
}

func (r *Repository) ListLogicalIDsByKind(ctx context.Context, kind simplecms.Kind) ([]uuid.UUID, error) {
	query := `
		SELECT logical_id FROM cms_instance
		WHERE kind = $1
		GROUP BY logical_id
		ORDER BY MIN(created_at) ASC, logical_id ASC`

	return r.queryIDs(ctx, "list logical ids", query, kind)
}

func (r *Repository) queryIDs(ctx context.Context, operation, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TransitionStatus locks every version of the logical id, checks the
// expected status and applies the change together with the archive sweep.
func (r *Repository) TransitionStatus(ctx context.Context, params simplecms.TransitionParams) (*simplecms.TransitionResult, error) {
	result := &simplecms.TransitionResult{}

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var (
			logicalID uuid.UUID
			version   int
		)
		err := tx.QueryRow(ctx, `SELECT logical_id, version FROM cms_instance WHERE id = $1`, params.InstanceID).
			Scan(&logicalID, &version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return simplecms.ErrInstanceNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT id, version, status FROM cms_instance WHERE logical_id = $1 ORDER BY version FOR UPDATE`, logicalID)
		if err != nil {
			return err
		}
		locked := map[uuid.UUID]simplecms.Status{}
		newerPublished := false
		for rows.Next() {
			var (
				id uuid.UUID
				v  int
				st simplecms.Status
			)
			if err := rows.Scan(&id, &v, &st); err != nil {
				rows.Close()
				return err
			}
			locked[id] = st
			if st == simplecms.StatusPublished && v > version {
				newerPublished = true
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if locked[params.InstanceID] != params.From {
			return simplecms.ErrStatusConflict
		}
		if params.To == simplecms.StatusPublished && newerPublished {
			return simplecms.ErrNewerPublished
		}

		if params.To == simplecms.StatusPublished {
			archived, err := tx.Query(ctx, `
				UPDATE cms_instance SET status = 'archived', updated_at = $3
				WHERE logical_id = $1 AND id <> $2 AND status = 'published'
				RETURNING id`, logicalID, params.InstanceID, params.UpdatedAt)
			if err != nil {
				return err
			}
			for archived.Next() {
				var id uuid.UUID
				if err := archived.Scan(&id); err != nil {
					archived.Close()
					return err
				}
				result.Archived = append(result.Archived, id)
			}
			archived.Close()
			if err := archived.Err(); err != nil {
				return err
			}
		}

		query := `
			UPDATE cms_instance SET status = $2, updated_at = $3,
				published_at = COALESCE($4, published_at)
			WHERE id = $1
			RETURNING ` + instanceColumns

		inst, err := scanInstance(tx.QueryRow(ctx, query,
			params.InstanceID, params.To, params.UpdatedAt, params.PublishedAt))
		if err != nil {
			return err
		}
		result.Instance = inst
		return nil
	})
	if err != nil {
		if errors.Is(err, simplecms.ErrInstanceNotFound) || errors.Is(err, simplecms.ErrStatusConflict) ||
			errors.Is(err, simplecms.ErrNewerPublished) {
			return nil, err
		}
		return nil, r.handlePostgresError("transition status", err)
	}
	return result, nil
}

// Content operations

const contentColumns = `id, owner_id, title, body, body_format, sort_order, visible,
	author_id, media, created_at, updated_at`

func scanContent(row pgx.Row) (*simplecms.Content, error) {
	var (
		c        simplecms.Content
		authorID *uuid.UUID
		raw      []byte
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Body, &c.BodyFormat, &c.SortOrder,
		&c.Visible, &authorID, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.AuthorID = fromNullable(authorID)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Media); err != nil {
			return nil, fmt.Errorf("decode media of %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func encodeMedia(media []simplecms.Media) ([]byte, error) {
	if media == nil {
		media = []simplecms.Media{}
	}
	return json.Marshal(media)
}

func (r *Repository) CreateContent(ctx context.Context, content *simplecms.Content) error {
	media, err := encodeMedia(content.Media)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}

	query := `
		INSERT INTO cms_content (
			id, owner_id, title, body, body_format, sort_order, visible,
			author_id, media, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		content.ID, content.OwnerID, content.Title, content.Body, content.BodyFormat,
		content.SortOrder, content.Visible, nullable(content.AuthorID), media,
		content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create content", err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*simplecms.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM cms_content WHERE id = $1`

	c, err := scanContent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrContentNotFound
		}
		return nil, r.handlePostgresError("get content", err)
	}
	return c, nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *simplecms.Content) error {
	media, err := encodeMedia(content.Media)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}

	query := `
		UPDATE cms_content SET
			title = $2, body = $3, body_format = $4, sort_order = $5,
			visible = $6, media = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		content.ID, content.Title, content.Body, content.BodyFormat,
		content.SortOrder, content.Visible, media, content.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrContentNotFound
	}
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cms_content WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrContentNotFound
	}
	return nil
}

func (r *Repository) ListContentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*simplecms.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM cms_content WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.handlePostgresError("list contents", err)
	}
	defer rows.Close()

	var result []*simplecms.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
