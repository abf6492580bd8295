package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"committeesync/internal/adapters/accounts"
	"committeesync/internal/domain"
)

// clientSource supplies per-account authenticated HTTP clients.
type clientSource interface {
	Client(ctx context.Context, accountID string) (*http.Client, error)
	Account(accountID string) (accounts.Account, error)
}

// gcalClient implements CalendarClient on the Google Calendar API. The
// account's OwnerID is the calendar id events are written to.
type gcalClient struct {
	source clientSource
	opts   []option.ClientOption

	mu       sync.Mutex
	services map[string]*calendar.Service
}

// NewClient returns a CalendarClient backed by Google Calendar. Extra client
// options (a test endpoint, for instance) are applied to every service.
func NewClient(source clientSource, opts ...option.ClientOption) domain.CalendarClient {
	return &gcalClient{
		source:   source,
		opts:     opts,
		services: make(map[string]*calendar.Service),
	}
}

func (c *gcalClient) service(ctx context.Context, accountID string) (*calendar.Service, string, error) {
	a, err := c.source.Account(accountID)
	if err != nil {
		return nil, "", err
	}
	calendarID := a.OwnerID
	if calendarID == "" {
		calendarID = "primary"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[accountID]; ok {
		return svc, calendarID, nil
	}
	httpClient, err := c.source.Client(ctx, accountID)
	if err != nil {
		return nil, "", err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
	svc, err := calendar.NewService(context.Background(), opts...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create calendar service: %w", err)
	}
	c.services[accountID] = svc
	return svc, calendarID, nil
}

func toAPIEvent(e domain.CalendarEvent) *calendar.Event {
	return &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Status:      e.Status,
		Start: &calendar.EventDateTime{
			DateTime: e.StartTime.Format(time.RFC3339),
			TimeZone: e.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: e.EndTime.Format(time.RFC3339),
			TimeZone: e.Timezone,
		},
	}
}

func fromAPIEvent(ev *calendar.Event) (*domain.CalendarEvent, error) {
	out := &domain.CalendarEvent{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status,
	}
	if ev.Start != nil {
		t, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event start: %w", err)
		}
		out.StartTime = t
		out.Timezone = ev.Start.TimeZone
	}
	if ev.End != nil {
		t, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event end: %w", err)
		}
		out.EndTime = t
	}
	return out, nil
}

func (c *gcalClient) Get(ctx context.Context, accountID, eventID string) (*domain.CalendarEvent, error) {
	svc, calendarID, err := c.service(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ev, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	return fromAPIEvent(ev)
}

func (c *gcalClient) Create(ctx context.Context, accountID string, event domain.CalendarEvent) (*domain.CalendarEvent, error) {
	svc, calendarID, err := c.service(ctx, accountID)
	if err != nil {
		return nil, err
	}
	created, err := svc.Events.Insert(calendarID, toAPIEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	return fromAPIEvent(created)
}

func (c *gcalClient) Update(ctx context.Context, accountID, eventID string, event domain.CalendarEvent) (*domain.CalendarEvent, error) {
	svc, calendarID, err := c.service(ctx, accountID)
	if err != nil {
		return nil, err
	}
	updated, err := svc.Events.Update(calendarID, eventID, toAPIEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err)
	}
	return fromAPIEvent(updated)
}

func (c *gcalClient) Delete(ctx context.Context, accountID, eventID string) error {
	svc, calendarID, err := c.service(ctx, accountID)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return apiError(err)
	}
	return nil
}

// apiError maps Google API errors onto the shared taxonomy. 410 Gone covers
// events deleted on the provider side.
func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: calendar returned %d", domain.ErrNotFound, gerr.Code)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: calendar returned %d", domain.ErrAuth, gerr.Code)
		}
	}
	return fmt.Errorf("calendar api: %w", err)
}
