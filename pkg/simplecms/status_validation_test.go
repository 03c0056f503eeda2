package simplecms

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		to     Status
		wantOK bool
	}{
		{name: "allow: draft to published", from: StatusDraft, to: StatusPublished, wantOK: true},
		{name: "allow: draft to deleted", from: StatusDraft, to: StatusDeleted, wantOK: true},
		{name: "allow: published to archived", from: StatusPublished, to: StatusArchived, wantOK: true},
		{name: "allow: published to deleted", from: StatusPublished, to: StatusDeleted, wantOK: true},
		{name: "allow: archived to deleted", from: StatusArchived, to: StatusDeleted, wantOK: true},
		{name: "deny: draft to archived", from: StatusDraft, to: StatusArchived},
		{name: "deny: published to draft", from: StatusPublished, to: StatusDraft},
		{name: "deny: published to published", from: StatusPublished, to: StatusPublished},
		{name: "deny: archived to published", from: StatusArchived, to: StatusPublished},
		{name: "deny: archived to draft", from: StatusArchived, to: StatusDraft},
		{name: "deny: deleted to draft", from: StatusDeleted, to: StatusDraft},
		{name: "deny: deleted to published", from: StatusDeleted, to: StatusPublished},
		{name: "deny: unknown target", from: StatusDraft, to: Status("live")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := canTransition(tt.from, tt.to)
			if ok != tt.wantOK {
				t.Errorf("canTransition(%s, %s) ok = %v, want %v", tt.from, tt.to, ok, tt.wantOK)
			}
			if tt.wantOK && err != nil {
				t.Errorf("canTransition(%s, %s) unexpected error: %v", tt.from, tt.to, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("canTransition(%s, %s) expected an error", tt.from, tt.to)
			}
		})
	}
}

func TestValidateTransition_PublishPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		inst    *Instance
		wantErr bool
	}{
		{
			name: "page with title and slug",
			inst: &Instance{Kind: KindPage, Status: StatusDraft, Title: "Home", Page: &PageAttributes{Slug: "home"}},
		},
		{
			name:    "page without slug",
			inst:    &Instance{Kind: KindPage, Status: StatusDraft, Title: "Home", Page: &PageAttributes{}},
			wantErr: true,
		},
		{
			name:    "blank title",
			inst:    &Instance{Kind: KindSection, Status: StatusDraft, Title: "  "},
			wantErr: true,
		},
		{
			name:    "module without type",
			inst:    &Instance{Kind: KindModule, Status: StatusDraft, Title: "Hero"},
			wantErr: true,
		},
		{
			name: "publication with family",
			inst: &Instance{Kind: KindPublication, Status: StatusDraft, Title: "Weekly",
				Publication: &PublicationAttributes{Family: FamilyNewsletter}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.inst.ID = uuid.New()
			err := validateTransition(tt.inst, StatusPublished)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPublishedAtFor(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	if got := publishedAtFor(&Instance{}, now); !got.Equal(now) {
		t.Errorf("publishedAtFor without date = %v, want %v", got, now)
	}
	if got := publishedAtFor(&Instance{PublishedAt: &earlier}, now); !got.Equal(earlier) {
		t.Errorf("publishedAtFor with date = %v, want %v", got, earlier)
	}
}

func TestPickCurrent(t *testing.T) {
	v := func(n int, s Status) *Instance { return &Instance{Version: n, Status: s} }

	tests := []struct {
		name           string
		versions       []*Instance
		includeDeleted bool
		want           int // 0 means nil
	}{
		{name: "highest non-deleted", versions: []*Instance{v(1, StatusArchived), v(2, StatusPublished), v(3, StatusDeleted)}, want: 2},
		{name: "draft above published", versions: []*Instance{v(1, StatusPublished), v(2, StatusDraft)}, want: 2},
		{name: "all deleted", versions: []*Instance{v(1, StatusDeleted), v(2, StatusDeleted)}, want: 0},
		{name: "all deleted with audit view", versions: []*Instance{v(1, StatusDeleted), v(2, StatusDeleted)}, includeDeleted: true, want: 2},
		{name: "audit view prefers live version", versions: []*Instance{v(1, StatusDraft), v(2, StatusDeleted)}, includeDeleted: true, want: 1},
		{name: "empty", versions: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickCurrent(tt.versions, tt.includeDeleted)
			if tt.want == 0 {
				if got != nil {
					t.Errorf("expected nil, got version %d", got.Version)
				}
				return
			}
			if got == nil || got.Version != tt.want {
				t.Errorf("pickCurrent = %v, want version %d", got, tt.want)
			}
		})
	}
}
