package services

import (
	"fmt"
	"strings"
	"time"

	"committeesync/internal/domain"
)

// cancelledMarker is the fixed location/name marker the registry shows for
// cancelled meetings.
const cancelledMarker = "CANCELLED"

// videoParamsFromChanges maps the changed meeting scalars onto sparse video
// meeting parameters. Untouched fields stay nil so an in-place update never
// overwrites provider-side state the user did not change.
func videoParamsFromChanges(update domain.MeetingUpdate) domain.VideoMeetingParams {
	var p domain.VideoMeetingParams
	if update.Summary != nil {
		p.Topic = update.Summary
	}
	if update.Location != nil {
		p.Agenda = update.Location
	}
	if update.StartTime != nil {
		p.StartTime = update.StartTime
	}
	if update.StartTime != nil || update.EndTime != nil {
		// Duration is derivable only when both endpoints are known; the
		// caller fills it in from the merged meeting times.
		p.Duration = nil
	}
	if update.Timezone != nil {
		p.Timezone = update.Timezone
	}
	return p
}

// videoParamsFromMeeting builds the full parameter set for provisioning a
// new video meeting.
func videoParamsFromMeeting(m *domain.Meeting) domain.VideoMeetingParams {
	topic := m.Summary
	start := m.StartTime
	duration := durationMinutes(m.StartTime, m.EndTime)
	tz := m.Timezone
	return domain.VideoMeetingParams{
		Topic:     &topic,
		StartTime: &start,
		Duration:  &duration,
		Timezone:  &tz,
	}
}

// mergeVideoParams lays changed fields over the fetched state of an adopted
// meeting. Only fields present in changes win; everything else keeps the
// provider's current value.
func mergeVideoParams(existing *domain.VideoMeeting, changes domain.VideoMeetingParams) domain.VideoMeetingParams {
	merged := domain.VideoMeetingParams{
		Topic:     &existing.Topic,
		Agenda:    &existing.Agenda,
		StartTime: &existing.StartTime,
		Duration:  &existing.Duration,
		Timezone:  &existing.Timezone,
		Password:  &existing.Password,
	}
	if changes.Topic != nil {
		merged.Topic = changes.Topic
	}
	if changes.Agenda != nil {
		merged.Agenda = changes.Agenda
	}
	if changes.StartTime != nil {
		merged.StartTime = changes.StartTime
	}
	if changes.Duration != nil {
		merged.Duration = changes.Duration
	}
	if changes.Timezone != nil {
		merged.Timezone = changes.Timezone
	}
	if changes.Password != nil {
		merged.Password = changes.Password
	}
	return merged
}

func emptyVideoParams(p domain.VideoMeetingParams) bool {
	return p.Topic == nil && p.Agenda == nil && p.StartTime == nil &&
		p.Duration == nil && p.Timezone == nil && p.Password == nil
}

func durationMinutes(start, end time.Time) int {
	d := int(end.Sub(start) / time.Minute)
	if d <= 0 {
		d = 60
	}
	return d
}

// slotRange maps the meeting's wall-clock interval onto the session's slot
// grid: the day index relative to the session start and the first/last
// overlapping slots of that day. Returns false when no slot overlaps.
func slotRange(session *domain.RegistrySession, start, end time.Time) (day, startSlot, endSlot int, ok bool) {
	loc := time.UTC
	if l, err := time.LoadLocation(session.Timezone); err == nil {
		loc = l
	}
	localStart := start.In(loc)
	sessionDay := session.StartDate.In(loc)
	day = daysBetween(sessionDay, localStart)

	first, last := -1, -1
	for _, ts := range session.Timeslots {
		if ts.Day != day {
			continue
		}
		if ts.End.After(start) && ts.Start.Before(end) {
			if first == -1 || ts.Slot < first {
				first = ts.Slot
			}
			if ts.Slot > last {
				last = ts.Slot
			}
		}
	}
	if first == -1 {
		return day, 0, 0, false
	}
	return day, first, last, true
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	a0 := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	b0 := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(b0.Sub(a0) / (24 * time.Hour))
}

// creditDefault looks up the session's default credit for the given
// day/slot, falling back to CreditNormal.
func creditDefault(session *domain.RegistrySession, day, slot int) string {
	for _, ts := range session.Timeslots {
		if ts.Day == day && ts.Slot == slot && ts.DefaultCredit != "" {
			return ts.DefaultCredit
		}
	}
	return domain.CreditNormal
}

// breakoutParams builds the registry breakout parameters for a meeting.
// Precedence, lowest to highest: slot-grid credit default and room/video
// location fallbacks, then an existing breakout's stored credit (manual
// registry-side overrides are never clobbered), then cancellation, which
// forces the marker location, zero credit, and a name prefix.
func breakoutParams(m *domain.Meeting, session *domain.RegistrySession, video *domain.VideoMeeting, existing *domain.Breakout) (domain.BreakoutParams, error) {
	day, startSlot, endSlot, ok := slotRange(session, m.StartTime, m.EndTime)
	if !ok {
		return domain.BreakoutParams{}, fmt.Errorf("%w: meeting interval maps to no session timeslot", domain.ErrInvalidInput)
	}

	location := ""
	if m.Location != "" {
		location = m.Location
		if room := session.RoomByID(m.Location); room != nil {
			location = room.Name
		}
	} else if video != nil {
		location = video.JoinURL
	}

	credit := creditDefault(session, day, startSlot)
	if existing != nil && existing.Credit != "" {
		credit = existing.Credit
	}

	name := m.Summary
	if m.Cancelled {
		name = cancelledMarker + " - " + m.Summary
		location = cancelledMarker
		credit = domain.CreditZero
	}

	return domain.BreakoutParams{
		Name:      name,
		Location:  location,
		Day:       day,
		StartSlot: startSlot,
		EndSlot:   endSlot,
		Credit:    credit,
	}, nil
}

// calendarEvent synthesizes the calendar resource for a meeting: the title
// carries the group symbol, the description summarizes the video handle and
// attendance details, and the status is reasserted as confirmed because the
// provider keeps "deleted" events around as cancelled.
func calendarEvent(m *domain.Meeting, group *domain.Group, video *domain.VideoMeeting, breakout *domain.Breakout) domain.CalendarEvent {
	summary := m.Summary
	if group != nil && group.Symbol != "" {
		summary = group.Symbol + " " + m.Summary
	}

	var desc strings.Builder
	if group != nil && group.Name != "" {
		fmt.Fprintf(&desc, "%s\n", group.Name)
	}
	if video != nil {
		fmt.Fprintf(&desc, "Join: %s\n", video.JoinURL)
		if video.Password != "" {
			fmt.Fprintf(&desc, "Password: %s\n", video.Password)
		}
		if video.DialIn != "" {
			fmt.Fprintf(&desc, "Dial-in: %s\n", video.DialIn)
		}
	}
	if breakout != nil {
		fmt.Fprintf(&desc, "Attendance: %s (credit %s)\n", breakout.Name, breakout.Credit)
	}

	location := m.Location
	if location == "" && video != nil {
		location = video.JoinURL
	}

	status := domain.StatusConfirmed
	if m.Cancelled {
		status = domain.StatusCancelled
	}

	return domain.CalendarEvent{
		Summary:     summary,
		Description: desc.String(),
		Location:    location,
		Status:      status,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Timezone:    m.Timezone,
	}
}
