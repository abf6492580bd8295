package domain

import (
	"context"
	"time"
)

// Link ties a meeting to one external resource: the account that owns the
// resource and the provider-side id. For registry links AccountID carries the
// registry meeting id and ID the breakout id. Both fields are always set
// together; a partial link is never persisted.
type Link struct {
	AccountID string `json:"account_id"`
	ID        string `json:"id"`
}

// Equal reports whether two links point at the same external resource.
func (l Link) Equal(o Link) bool {
	return l.AccountID == o.AccountID && l.ID == o.ID
}

// Meeting is the canonical meeting record owned by this system. The three
// link fields mirror resources held by external systems and may drift; the
// reconciler is the only writer of link fields.
type Meeting struct {
	ID         string     `json:"id"`
	GroupID    string     `json:"group_id"`
	SessionID  *string    `json:"session_id,omitempty"`
	Summary    string     `json:"summary"`
	Location   string     `json:"location"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Timezone   string     `json:"timezone"`
	Cancelled  bool       `json:"cancelled"`
	HasMotions bool       `json:"has_motions"`

	VideoLink    *Link `json:"video_link,omitempty"`
	CalendarLink *Link `json:"calendar_link,omitempty"`
	RegistryLink *Link `json:"registry_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MeetingCreate carries the fields for a new meeting plus the per-kind link
// change requests (Unchanged means "no external resource").
type MeetingCreate struct {
	GroupID    string
	SessionID  *string
	Summary    string
	Location   string
	StartTime  time.Time
	EndTime    time.Time
	Timezone   string
	HasMotions bool

	Video    LinkChange
	Calendar LinkChange
	Registry LinkChange
}

// MeetingUpdate carries the scalar changes (nil = leave alone) and the
// per-kind link change requests for one meeting update.
type MeetingUpdate struct {
	Summary    *string
	Location   *string
	StartTime  *time.Time
	EndTime    *time.Time
	Timezone   *string
	Cancelled  *bool
	HasMotions *bool

	Video    LinkChange
	Calendar LinkChange
	Registry LinkChange
}

// LinkColumn is a tri-state link column change: zero value leaves the column
// alone, Set with nil Link clears it, Set with a Link writes it.
type LinkColumn struct {
	Set  bool
	Link *Link
}

// SetTo returns a LinkColumn writing the given link.
func SetTo(l Link) LinkColumn { return LinkColumn{Set: true, Link: &l} }

// Clear returns a LinkColumn clearing the column pair.
func Clear() LinkColumn { return LinkColumn{Set: true} }

// MeetingChanges is the sparse column set the reconciler hands to the store.
// Only non-nil scalars and Set link columns are written.
type MeetingChanges struct {
	Summary    *string
	Location   *string
	StartTime  *time.Time
	EndTime    *time.Time
	Timezone   *string
	Cancelled  *bool
	HasMotions *bool

	VideoLink    LinkColumn
	CalendarLink LinkColumn
	RegistryLink LinkColumn
}

// Empty reports whether the change set would write nothing.
func (c MeetingChanges) Empty() bool {
	return c.Summary == nil && c.Location == nil && c.StartTime == nil &&
		c.EndTime == nil && c.Timezone == nil && c.Cancelled == nil &&
		c.HasMotions == nil && !c.VideoLink.Set && !c.CalendarLink.Set &&
		!c.RegistryLink.Set
}

// MeetingFilter constrains MeetingRepository.List.
type MeetingFilter struct {
	IDs       []string
	GroupID   string
	SessionID string
	From      *time.Time
	To        *time.Time
}

// MeetingRepository defines the interface for meeting storage.
// Update writes only the columns present in changes.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *Meeting) error
	GetByID(ctx context.Context, id string) (*Meeting, error)
	List(ctx context.Context, filter MeetingFilter) ([]*Meeting, error)
	Update(ctx context.Context, id string, changes MeetingChanges) error
	Delete(ctx context.Context, id string) error
}

// MeetingResult is the outcome of reconciling one meeting: the reloaded
// canonical row plus whichever external objects the reconciliation produced.
type MeetingResult struct {
	Meeting  *Meeting      `json:"meeting"`
	Video    *VideoMeeting `json:"video,omitempty"`
	Breakout *Breakout     `json:"breakout,omitempty"`
}

// MeetingService is the per-meeting reconciler.
type MeetingService interface {
	Add(ctx context.Context, user UserContext, create MeetingCreate) (*MeetingResult, error)
	Update(ctx context.Context, user UserContext, id string, update MeetingUpdate) (*MeetingResult, error)
	Delete(ctx context.Context, user UserContext, id string) error
	List(ctx context.Context, filter MeetingFilter) ([]*Meeting, error)
}

// BatchUpdate pairs a meeting id with its requested changes.
type BatchUpdate struct {
	ID      string
	Changes MeetingUpdate
}

// BatchResult aggregates per-element outcomes of a batch operation. The
// slices are parallel to the input: exactly one of Results[i] / Errs[i] is
// set for each element.
type BatchResult struct {
	Results []*MeetingResult
	Errs    []error
}

// BatchService fans the reconciler out over request arrays. Elements are
// independent; one element failing never aborts its siblings.
type BatchService interface {
	AddMeetings(ctx context.Context, user UserContext, creates []MeetingCreate) (*BatchResult, error)
	UpdateMeetings(ctx context.Context, user UserContext, updates []BatchUpdate) (*BatchResult, error)
	DeleteMeetings(ctx context.Context, user UserContext, ids []string) (int, error)
}
