package imat

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"committeesync/internal/domain"
)

type sessionProvider struct {
	client *imatClient
}

// NewSessionProvider returns a SessionProvider reading the registry's session
// CSV exports: the session row, its rooms, and its timeslot grid.
func NewSessionProvider(client *http.Client, baseURL string) domain.SessionProvider {
	c := NewClient(client, baseURL).(*imatClient)
	return &sessionProvider{client: c}
}

func (p *sessionProvider) Get(ctx context.Context, user domain.UserContext, sessionID string) (*domain.RegistrySession, error) {
	base := p.client.baseURL

	meetingRows, err := p.client.fetchCSV(ctx, user, fmt.Sprintf("%s/%s/meeting.csv", base, sessionID))
	if err != nil {
		return nil, err
	}
	if len(meetingRows) == 0 {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	session, loc, err := sessionFromRow(meetingRows[0])
	if err != nil {
		return nil, err
	}

	roomRows, err := p.client.fetchCSV(ctx, user, fmt.Sprintf("%s/%s/rooms.csv", base, sessionID))
	if err != nil {
		return nil, err
	}
	for _, row := range roomRows {
		if len(row) < 2 {
			return nil, fmt.Errorf("malformed room row: %v", row)
		}
		session.Rooms = append(session.Rooms, domain.RegistryRoom{ID: row[0], Name: row[1]})
	}

	slotRows, err := p.client.fetchCSV(ctx, user, fmt.Sprintf("%s/%s/timeslots.csv", base, sessionID))
	if err != nil {
		return nil, err
	}
	for _, row := range slotRows {
		ts, err := parseTimeslot(row, session.StartDate, loc)
		if err != nil {
			return nil, err
		}
		session.Timeslots = append(session.Timeslots, ts)
	}
	return session, nil
}

// sessionFromRow parses the session export row: id,name,timezone,start_date.
func sessionFromRow(row []string) (*domain.RegistrySession, *time.Location, error) {
	if len(row) < 4 {
		return nil, nil, fmt.Errorf("malformed session row: %v", row)
	}
	loc, err := time.LoadLocation(row[2])
	if err != nil {
		return nil, nil, fmt.Errorf("unknown session timezone %q: %w", row[2], err)
	}
	start, err := time.ParseInLocation("2006-01-02", row[3], loc)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed session start date %q: %w", row[3], err)
	}
	return &domain.RegistrySession{
		ID:        row[0],
		Name:      row[1],
		Timezone:  row[2],
		StartDate: start,
	}, loc, nil
}

// parseTimeslot turns a timeslot row (day,slot,start,end,default_credit with
// HH:MM wall-clock times) into an absolute-time slot on the session calendar.
func parseTimeslot(row []string, startDate time.Time, loc *time.Location) (domain.RegistryTimeslot, error) {
	if len(row) < 5 {
		return domain.RegistryTimeslot{}, fmt.Errorf("malformed timeslot row: %v", row)
	}
	day, err := strconv.Atoi(row[0])
	if err != nil {
		return domain.RegistryTimeslot{}, fmt.Errorf("malformed timeslot day %q: %w", row[0], err)
	}
	slot, err := strconv.Atoi(row[1])
	if err != nil {
		return domain.RegistryTimeslot{}, fmt.Errorf("malformed timeslot number %q: %w", row[1], err)
	}
	start, err := clockOn(startDate, day, row[2], loc)
	if err != nil {
		return domain.RegistryTimeslot{}, err
	}
	end, err := clockOn(startDate, day, row[3], loc)
	if err != nil {
		return domain.RegistryTimeslot{}, err
	}
	return domain.RegistryTimeslot{
		Day:           day,
		Slot:          slot,
		Start:         start,
		End:           end,
		DefaultCredit: strings.TrimSpace(row[4]),
	}, nil
}

func clockOn(startDate time.Time, day int, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timeslot clock %q: %w", clock, err)
	}
	d := startDate.AddDate(0, 0, day)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
