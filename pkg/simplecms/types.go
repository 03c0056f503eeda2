package simplecms

import (
	"time"

	"github.com/google/uuid"
)

// Status is the publishing state of a version instance.
type Status string

// Status constants (typed).
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Kind identifies which family of versionable entity an instance belongs to.
type Kind string

// Kind constants (typed).
const (
	KindPage        Kind = "page"
	KindSection     Kind = "section"
	KindModule      Kind = "module"
	KindPublication Kind = "publication"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindPage, KindSection, KindModule, KindPublication:
		return true
	}
	return false
}

// ModuleType is the discriminator for module variants.
type ModuleType string

// Module type constants (typed).
const (
	ModuleArticle    ModuleType = "article"
	ModuleCTA        ModuleType = "cta"
	ModuleForm       ModuleType = "form"
	ModuleGallery    ModuleType = "gallery"
	ModuleList       ModuleType = "list"
	ModuleNews       ModuleType = "news"
	ModuleNewsletter ModuleType = "newsletter"
	ModuleTimeline   ModuleType = "timeline"
)

// IsValid reports whether t is a known module type.
func (t ModuleType) IsValid() bool {
	switch t {
	case ModuleArticle, ModuleCTA, ModuleForm, ModuleGallery,
		ModuleList, ModuleNews, ModuleNewsletter, ModuleTimeline:
		return true
	}
	return false
}

// HasContents reports whether modules of this type carry attached content.
func (t ModuleType) HasContents() bool {
	switch t {
	case ModuleArticle, ModuleList, ModuleNews, ModuleNewsletter, ModuleTimeline:
		return true
	}
	return false
}

// PublicationFamily distinguishes news items from newsletters.
type PublicationFamily string

// Publication family constants (typed).
const (
	FamilyNews       PublicationFamily = "news"
	FamilyNewsletter PublicationFamily = "newsletter"
)

// Instance is one stored version of a page, section, module or publication.
//
// ID is unique per row. LogicalID is shared by every version of the same
// conceptual entity. Exactly one of Page, Module and Publication is set for
// the matching Kind; sections carry only the common fields.
type Instance struct {
	ID          uuid.UUID  `json:"id"`
	LogicalID   uuid.UUID  `json:"logical_id"`
	Kind        Kind       `json:"kind"`
	Version     int        `json:"version"`
	Status      Status     `json:"status"`
	ParentID    uuid.UUID  `json:"parent_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Title       string     `json:"title"`
	SortOrder   int        `json:"sort_order"`
	Visible     bool       `json:"visible"`
	AuthorID    uuid.UUID  `json:"author_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Page        *PageAttributes        `json:"page,omitempty"`
	Module      *ModuleAttributes      `json:"module,omitempty"`
	Publication *PublicationAttributes `json:"publication,omitempty"`
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	c := *i
	if i.PublishedAt != nil {
		t := *i.PublishedAt
		c.PublishedAt = &t
	}
	if i.Page != nil {
		p := *i.Page
		c.Page = &p
	}
	if i.Module != nil {
		c.Module = i.Module.clone()
	}
	if i.Publication != nil {
		c.Publication = i.Publication.clone()
	}
	return &c
}

// PageAttributes holds page-only fields.
type PageAttributes struct {
	Slug        string `json:"slug"`
	Subtitle    string `json:"subtitle,omitempty"`
	NavPosition int    `json:"nav_position"`
}

// ModuleAttributes is a tagged union of module variants keyed by Type.
// Only the block matching Type is meaningful.
type ModuleAttributes struct {
	Type       ModuleType         `json:"type"`
	Article    *ArticleVariant    `json:"article,omitempty"`
	CTA        *CTAVariant        `json:"cta,omitempty"`
	Form       *FormVariant       `json:"form,omitempty"`
	Gallery    *GalleryVariant    `json:"gallery,omitempty"`
	List       *ListVariant       `json:"list,omitempty"`
	News       *NewsVariant       `json:"news,omitempty"`
	Newsletter *NewsletterVariant `json:"newsletter,omitempty"`
	Timeline   *TimelineVariant   `json:"timeline,omitempty"`
}

func (m *ModuleAttributes) clone() *ModuleAttributes {
	c := *m
	if m.Article != nil {
		v := *m.Article
		c.Article = &v
	}
	if m.CTA != nil {
		v := *m.CTA
		c.CTA = &v
	}
	if m.Form != nil {
		v := *m.Form
		v.Fields = append([]FormField(nil), m.Form.Fields...)
		c.Form = &v
	}
	if m.Gallery != nil {
		v := *m.Gallery
		v.Media = append([]Media(nil), m.Gallery.Media...)
		c.Gallery = &v
	}
	if m.List != nil {
		v := *m.List
		c.List = &v
	}
	if m.News != nil {
		v := *m.News
		c.News = &v
	}
	if m.Newsletter != nil {
		v := *m.Newsletter
		c.Newsletter = &v
	}
	if m.Timeline != nil {
		v := *m.Timeline
		c.Timeline = &v
	}
	return &c
}

// ArticleVariant holds article module fields.
type ArticleVariant struct {
	Layout string `json:"layout,omitempty"`
}

// CTAVariant holds call-to-action module fields.
type CTAVariant struct {
	ButtonText string `json:"button_text"`
	TargetURL  string `json:"target_url"`
}

// FormField describes one input of a form module.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FormVariant holds form module fields.
type FormVariant struct {
	Fields         []FormField `json:"fields"`
	SubmitLabel    string      `json:"submit_label,omitempty"`
	RecipientEmail string      `json:"recipient_email,omitempty"`
}

// GalleryVariant holds gallery module fields.
type GalleryVariant struct {
	Columns int     `json:"columns,omitempty"`
	Media   []Media `json:"media,omitempty"`
}

// ListVariant holds list module fields.
type ListVariant struct {
	Ordered bool `json:"ordered"`
}

// NewsVariant controls how news publications are displayed.
type NewsVariant struct {
	Limit int `json:"limit,omitempty"`
}

// NewsletterVariant controls how newsletter publications are displayed.
type NewsletterVariant struct {
	Limit         int  `json:"limit,omitempty"`
	ShowSubscribe bool `json:"show_subscribe"`
}

// TimelineVariant holds timeline module fields.
type TimelineVariant struct {
	Orientation string `json:"orientation,omitempty"`
}

// PublicationAttributes holds fields of an authored news item or newsletter.
type PublicationAttributes struct {
	Family      PublicationFamily `json:"family"`
	Description string            `json:"description,omitempty"`
	Media       []Media           `json:"media,omitempty"`
	// LinkedNews holds logical ids of news publications (newsletters only).
	LinkedNews []uuid.UUID `json:"linked_news,omitempty"`
}

func (p *PublicationAttributes) clone() *PublicationAttributes {
	c := *p
	c.Media = append([]Media(nil), p.Media...)
	c.LinkedNews = append([]uuid.UUID(nil), p.LinkedNews...)
	return &c
}

// Media is an ordered media attachment.
type Media struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption,omitempty"`
	AltText   string    `json:"alt_text,omitempty"`
	SortOrder int       `json:"sort_order"`
}

// BodyFormat names how a content body is encoded.
type BodyFormat string

// Body format constants (typed).
const (
	BodyMarkdown BodyFormat = "markdown"
	BodyHTML     BodyFormat = "html"
)

// Content is a fragment attached to a module or publication family.
//
// OwnerID is a logical id, never an instance id, so the same content set is
// visible under every version of its owner.
type Content struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Title      string     `json:"title,omitempty"`
	Body       string     `json:"body"`
	BodyFormat BodyFormat `json:"body_format"`
	SortOrder  int        `json:"sort_order"`
	Visible    bool       `json:"visible"`
	AuthorID   uuid.UUID  `json:"author_id"`
	Media      []Media    `json:"media,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the content.
func (c *Content) Clone() *Content {
	cc := *c
	cc.Media = append([]Media(nil), c.Media...)
	return &cc
}

// ReadOptions selects the audit view of the version store.
type ReadOptions struct {
	// IncludeDeleted lets GetCurrent fall back to the highest version even
	// when every version is deleted.
	IncludeDeleted bool
}

// ContentReadOptions selects the audit view of the content resolver.
type ContentReadOptions struct {
	IncludeHidden bool
}

// ViewMode selects how much of a page tree is rendered.
type ViewMode string

// View mode constants (typed).
const (
	ViewFull    ViewMode = "full"
	ViewSummary ViewMode = "summary"
)

// PageView is the rendered tree for one page.
type PageView struct {
	Page     *Instance      `json:"page"`
	Sections []*SectionView `json:"sections"`
}

// SectionView is a rendered section with its modules.
type SectionView struct {
	Section *Instance     `json:"section"`
	Modules []*ModuleView `json:"modules"`
}

// ModuleView is a rendered module. Contents and Publications are only
// populated in full views.
type ModuleView struct {
	Module       *Instance      `json:"module"`
	Contents     []*ContentView `json:"contents,omitempty"`
	Publications []*Instance    `json:"publications,omitempty"`
}

// ContentView is a content fragment with its body rendered to safe HTML.
type ContentView struct {
	*Content
	HTML string `json:"html"`
}

// NavNode is one page in a navigation tree.
type NavNode struct {
	LogicalID   uuid.UUID  `json:"logical_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	NavPosition int        `json:"nav_position"`
	Children    []*NavNode `json:"children,omitempty"`
}
