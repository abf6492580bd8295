package domain

import (
	"context"
	"time"
)

// VideoMeeting is the provider-owned video conference resource. It is never
// cached locally; the link on the Meeting row is the only handle kept.
type VideoMeeting struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Agenda    string    `json:"agenda"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"` // minutes
	Timezone  string    `json:"timezone"`
	JoinURL   string    `json:"join_url"`
	Password  string    `json:"password"`
	DialIn    string    `json:"dial_in"`
}

// VideoMeetingParams is the sparse parameter set for create/update. Nil
// fields are left untouched by the provider, which is what makes the
// adopt-and-merge rule work: only explicitly changed local fields are sent.
type VideoMeetingParams struct {
	Topic     *string    `json:"topic,omitempty"`
	Agenda    *string    `json:"agenda,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Timezone  *string    `json:"timezone,omitempty"`
	Password  *string    `json:"password,omitempty"`
}

// VideoClient manages video conference meetings, scoped by account id.
// Implementations return ErrNotFound for absent resources and ErrAuth for
// credential failures, distinct from other provider errors.
type VideoClient interface {
	Get(ctx context.Context, accountID, meetingID string) (*VideoMeeting, error)
	Create(ctx context.Context, accountID string, params VideoMeetingParams) (*VideoMeeting, error)
	Update(ctx context.Context, accountID, meetingID string, params VideoMeetingParams) (*VideoMeeting, error)
	Delete(ctx context.Context, accountID, meetingID string) error
}
