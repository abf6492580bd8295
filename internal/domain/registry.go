package domain

import (
	"context"
	"time"
)

// Attendance credit values used by the registry. CreditZero is forced on
// cancelled meetings.
const (
	CreditNormal = "Normal"
	CreditExtra  = "Extra"
	CreditZero   = "Zero"
	CreditOther  = "Other"
)

// Breakout is the registry-owned attendance record for one meeting slot.
// Credit may be overridden by hand on the registry side; resync must never
// clobber a stored credit with a computed default.
type Breakout struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Day       int    `json:"day"`
	StartSlot int    `json:"start_slot"`
	EndSlot   int    `json:"end_slot"`
	Credit    string `json:"credit"`
}

// BreakoutParams is the parameter set for breakout create/update.
type BreakoutParams struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	Day       int    `json:"day"`
	StartSlot int    `json:"start_slot"`
	EndSlot   int    `json:"end_slot"`
	Credit    string `json:"credit"`
}

// RegistryRoom is a room belonging to a registry session.
type RegistryRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RegistryTimeslot is one cell of the session's fixed slot grid. Start and
// End are wall-clock times in the session timezone on the given day.
type RegistryTimeslot struct {
	Day           int       `json:"day"`
	Slot          int       `json:"slot"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DefaultCredit string    `json:"default_credit"`
}

// RegistrySession is the multi-day event (plenary or interim session) a
// meeting may belong to: rooms, the slot grid, and per-slot credit defaults.
// Read-only collaborator data; never mutated by this system.
type RegistrySession struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timezone  string             `json:"timezone"`
	StartDate time.Time          `json:"start_date"`
	Rooms     []RegistryRoom     `json:"rooms"`
	Timeslots []RegistryTimeslot `json:"timeslots"`
}

// RoomByID returns the named room, or nil.
func (s *RegistrySession) RoomByID(id string) *RegistryRoom {
	for i := range s.Rooms {
		if s.Rooms[i].ID == id {
			return &s.Rooms[i]
		}
	}
	return nil
}

// RegistryClient manages breakouts inside a registry meeting. Every call
// requires an authenticated user context; implementations return ErrAuth
// when it is absent or expired and ErrNotFound for absent resources.
type RegistryClient interface {
	Get(ctx context.Context, user UserContext, registryMeetingID, breakoutID string) (*Breakout, error)
	Create(ctx context.Context, user UserContext, registryMeetingID string, params BreakoutParams) (*Breakout, error)
	Update(ctx context.Context, user UserContext, registryMeetingID, breakoutID string, params BreakoutParams) (*Breakout, error)
	Delete(ctx context.Context, user UserContext, registryMeetingID string, breakoutIDs []string) (int, error)
}

// SessionProvider resolves registry session context (rooms, slots, credits).
type SessionProvider interface {
	Get(ctx context.Context, user UserContext, sessionID string) (*RegistrySession, error)
}
