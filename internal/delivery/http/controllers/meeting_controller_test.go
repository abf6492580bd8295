package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"committeesync/internal/delivery/http/helpers"
	"committeesync/internal/delivery/http/middleware"
	"committeesync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeBatchService implements domain.BatchService for handler tests.
type fakeBatchService struct {
	addErr        error
	addResult     *domain.BatchResult
	lastCreates   []domain.MeetingCreate
	updateErr     error
	updateResult  *domain.BatchResult
	lastUpdates   []domain.BatchUpdate
	deleteErr     error
	deleteCount   int
	lastDeleteIDs []string
	lastUser      domain.UserContext
}

func (f *fakeBatchService) AddMeetings(ctx context.Context, user domain.UserContext, creates []domain.MeetingCreate) (*domain.BatchResult, error) {
	f.lastUser = user
	f.lastCreates = creates
	return f.addResult, f.addErr
}

func (f *fakeBatchService) UpdateMeetings(ctx context.Context, user domain.UserContext, updates []domain.BatchUpdate) (*domain.BatchResult, error) {
	f.lastUser = user
	f.lastUpdates = updates
	return f.updateResult, f.updateErr
}

func (f *fakeBatchService) DeleteMeetings(ctx context.Context, user domain.UserContext, ids []string) (int, error) {
	f.lastUser = user
	f.lastDeleteIDs = ids
	return f.deleteCount, f.deleteErr
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	user := domain.UserContext{UserID: "u-1", Email: "chair@example.org", ExpiresAt: time.Now().Add(time.Hour)}
	return req.WithContext(middleware.SetUser(req.Context(), user))
}

func TestCreateMeetingsDecodesLinkChanges(t *testing.T) {
	svc := &fakeBatchService{addResult: &domain.BatchResult{
		Results: []*domain.MeetingResult{{Meeting: &domain.Meeting{ID: "m-1"}}},
		Errs:    []error{nil},
	}}
	c := NewMeetingController(testLogger, svc, nil)

	body := []byte(`{"meetings":[{
		"group_id":"g1","summary":"TGbn MAC",
		"start_time":"2026-03-09T14:00:00Z","end_time":"2026-03-09T15:00:00Z",
		"timezone":"America/New_York",
		"video":"create",
		"calendar":null,
		"breakout":{"account_id":"165","id":"b-2"}
	}]}`)
	w := httptest.NewRecorder()
	c.CreateMeetings(w, authedRequest(http.MethodPost, "/meetings", body))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.lastCreates, 1)
	create := svc.lastCreates[0]
	assert.Equal(t, domain.LinkProvision, create.Video.Kind)
	assert.Equal(t, domain.LinkUnlink, create.Calendar.Kind)
	assert.Equal(t, domain.LinkAdopt, create.Registry.Kind)
	assert.Equal(t, domain.Link{AccountID: "165", ID: "b-2"}, create.Registry.Target)
	assert.Equal(t, "u-1", svc.lastUser.UserID)
}

func TestCreateMeetingsAbsentLinksAreUnchanged(t *testing.T) {
	svc := &fakeBatchService{addResult: &domain.BatchResult{
		Results: []*domain.MeetingResult{{}},
		Errs:    []error{nil},
	}}
	c := NewMeetingController(testLogger, svc, nil)

	body := []byte(`{"meetings":[{
		"group_id":"g1","summary":"TGbn MAC",
		"start_time":"2026-03-09T14:00:00Z","end_time":"2026-03-09T15:00:00Z",
		"timezone":"UTC"
	}]}`)
	w := httptest.NewRecorder()
	c.CreateMeetings(w, authedRequest(http.MethodPost, "/meetings", body))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.lastCreates, 1)
	assert.Equal(t, domain.LinkUnchanged, svc.lastCreates[0].Video.Kind)
	assert.Equal(t, domain.LinkUnchanged, svc.lastCreates[0].Calendar.Kind)
	assert.Equal(t, domain.LinkUnchanged, svc.lastCreates[0].Registry.Kind)
}

func TestCreateMeetingsValidation(t *testing.T) {
	c := NewMeetingController(testLogger, &fakeBatchService{}, nil)

	w := httptest.NewRecorder()
	c.CreateMeetings(w, authedRequest(http.MethodPost, "/meetings", []byte(`{"meetings":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	c.CreateMeetings(w, authedRequest(http.MethodPost, "/meetings", []byte(`{"meetings":[{"summary":"no group"}]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateMeetingsRequiresUser(t *testing.T) {
	c := NewMeetingController(testLogger, &fakeBatchService{}, nil)
	body := []byte(`{"meetings":[{"group_id":"g1","summary":"x","start_time":"2026-03-09T14:00:00Z","end_time":"2026-03-09T15:00:00Z"}]}`)

	w := httptest.NewRecorder()
	c.CreateMeetings(w, httptest.NewRequest(http.MethodPost, "/meetings", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMeetingsReportsPerElementErrors(t *testing.T) {
	svc := &fakeBatchService{updateResult: &domain.BatchResult{
		Results: []*domain.MeetingResult{{Meeting: &domain.Meeting{ID: "m-1"}}, nil},
		Errs:    []error{nil, domain.ErrNotFound},
	}}
	c := NewMeetingController(testLogger, svc, nil)

	body := []byte(`{"meetings":[{"id":"m-1","summary":"Renamed"},{"id":"m-2"}]}`)
	w := httptest.NewRecorder()
	c.UpdateMeetings(w, authedRequest(http.MethodPatch, "/meetings", body))

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data  BatchResponse     `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Nil(t, envelope.Error)
	require.Len(t, envelope.Data.Meetings, 2)
	assert.NotNil(t, envelope.Data.Meetings[0].Result)
	assert.Nil(t, envelope.Data.Meetings[0].Error)
	require.NotNil(t, envelope.Data.Meetings[1].Error)
	assert.Equal(t, helpers.ErrCodeNotFound, envelope.Data.Meetings[1].Error.Code)

	require.Len(t, svc.lastUpdates, 2)
	require.NotNil(t, svc.lastUpdates[0].Changes.Summary)
	assert.Equal(t, "Renamed", *svc.lastUpdates[0].Changes.Summary)
}

func TestUpdateMeetingsAuthFailureIsEnvelopeError(t *testing.T) {
	svc := &fakeBatchService{updateErr: domain.ErrAuth}
	c := NewMeetingController(testLogger, svc, nil)

	body := []byte(`{"meetings":[{"id":"m-1"}]}`)
	w := httptest.NewRecorder()
	c.UpdateMeetings(w, authedRequest(http.MethodPatch, "/meetings", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteMeetings(t *testing.T) {
	svc := &fakeBatchService{deleteCount: 2}
	c := NewMeetingController(testLogger, svc, nil)

	w := httptest.NewRecorder()
	c.DeleteMeetings(w, authedRequest(http.MethodDelete, "/meetings", []byte(`{"ids":["m-1","m-2"]}`)))

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data DeleteResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Deleted)
	assert.Equal(t, []string{"m-1", "m-2"}, svc.lastDeleteIDs)
}

// fakeMeetingLister implements domain.MeetingService for the list endpoint.
type fakeMeetingLister struct {
	domain.MeetingService
	listErr    error
	meetings   []*domain.Meeting
	lastFilter domain.MeetingFilter
}

func (f *fakeMeetingLister) List(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	f.lastFilter = filter
	return f.meetings, f.listErr
}

func TestListMeetingsParsesFilter(t *testing.T) {
	lister := &fakeMeetingLister{meetings: []*domain.Meeting{{ID: "m-1"}}}
	c := NewMeetingController(testLogger, &fakeBatchService{}, lister)

	w := httptest.NewRecorder()
	c.ListMeetings(w, authedRequest(http.MethodGet, "/meetings?group_id=g1&from=2026-03-01T00:00:00Z", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", lister.lastFilter.GroupID)
	require.NotNil(t, lister.lastFilter.From)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), lister.lastFilter.From.UTC())

	w = httptest.NewRecorder()
	c.ListMeetings(w, authedRequest(http.MethodGet, "/meetings?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMeetingsError(t *testing.T) {
	lister := &fakeMeetingLister{listErr: errors.New("db down")}
	c := NewMeetingController(testLogger, &fakeBatchService{}, lister)

	w := httptest.NewRecorder()
	c.ListMeetings(w, authedRequest(http.MethodGet, "/meetings", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
