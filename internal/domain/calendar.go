package domain

import (
	"context"
	"time"
)

// Calendar event status values. Providers keep "deleted" events around with a
// cancelled status, so updates must reassert StatusConfirmed explicitly.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// CalendarEvent is the provider-owned calendar resource.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
}

// CalendarClient manages calendar events, scoped by account id. Same error
// taxonomy as VideoClient.
type CalendarClient interface {
	Get(ctx context.Context, accountID, eventID string) (*CalendarEvent, error)
	Create(ctx context.Context, accountID string, event CalendarEvent) (*CalendarEvent, error)
	Update(ctx context.Context, accountID, eventID string, event CalendarEvent) (*CalendarEvent, error)
	Delete(ctx context.Context, accountID, eventID string) error
}
