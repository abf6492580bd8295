package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"committeesync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMeetingSvc counts calls and fails on demand per meeting id/summary.
type fakeMeetingSvc struct {
	mu      sync.Mutex
	calls   int
	failOn  map[string]error
	deleted []string
}

func newFakeMeetingSvc() *fakeMeetingSvc {
	return &fakeMeetingSvc{failOn: make(map[string]error)}
}

func (f *fakeMeetingSvc) Add(ctx context.Context, user domain.UserContext, create domain.MeetingCreate) (*domain.MeetingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failOn[create.Summary]; ok {
		return nil, err
	}
	return &domain.MeetingResult{Meeting: &domain.Meeting{
		ID:        "m-" + create.Summary,
		Summary:   create.Summary,
		StartTime: create.StartTime,
	}}, nil
}

func (f *fakeMeetingSvc) Update(ctx context.Context, user domain.UserContext, id string, update domain.MeetingUpdate) (*domain.MeetingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failOn[id]; ok {
		return nil, err
	}
	return &domain.MeetingResult{Meeting: &domain.Meeting{ID: id}}, nil
}

func (f *fakeMeetingSvc) Delete(ctx context.Context, user domain.UserContext, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failOn[id]; ok {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMeetingSvc) List(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	return nil, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent int
	to   string
	text string
	fail error
}

func (f *fakeMailer) Send(to, subject, html, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent++
	f.to = to
	f.text = text
	return nil
}

func TestBatchRejectsInvalidUserBeforeAnyWork(t *testing.T) {
	svc := newFakeMeetingSvc()
	batch := NewBatchService(svc, nil, discardLogger())
	expired := domain.UserContext{UserID: "u-1", ExpiresAt: time.Now().Add(-time.Minute)}

	_, err := batch.AddMeetings(context.Background(), expired, []domain.MeetingCreate{{Summary: "a"}})
	assert.ErrorIs(t, err, domain.ErrAuth)
	_, err = batch.UpdateMeetings(context.Background(), expired, []domain.BatchUpdate{{ID: "m-1"}})
	assert.ErrorIs(t, err, domain.ErrAuth)
	_, err = batch.DeleteMeetings(context.Background(), expired, []string{"m-1"})
	assert.ErrorIs(t, err, domain.ErrAuth)

	assert.Zero(t, svc.calls)
}

func TestBatchUpdateIsolatesFailures(t *testing.T) {
	svc := newFakeMeetingSvc()
	boom := errors.New("boom")
	svc.failOn["m-2"] = boom
	batch := NewBatchService(svc, nil, discardLogger())

	res, err := batch.UpdateMeetings(context.Background(), testUser(), []domain.BatchUpdate{
		{ID: "m-1"}, {ID: "m-2"}, {ID: "m-3"},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	require.Len(t, res.Errs, 3)

	assert.NotNil(t, res.Results[0])
	assert.NoError(t, res.Errs[0])
	assert.Nil(t, res.Results[1])
	assert.ErrorIs(t, res.Errs[1], boom)
	assert.NotNil(t, res.Results[2])
	assert.Equal(t, "m-3", res.Results[2].Meeting.ID)
}

func TestBatchDeleteCountsSuccesses(t *testing.T) {
	svc := newFakeMeetingSvc()
	svc.failOn["m-2"] = domain.ErrNotFound
	batch := NewBatchService(svc, nil, discardLogger())

	n, err := batch.DeleteMeetings(context.Background(), testUser(), []string{"m-1", "m-2", "m-3"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"m-1", "m-3"}, svc.deleted)
}

func TestBatchAddSendsReport(t *testing.T) {
	svc := newFakeMeetingSvc()
	svc.failOn["bad"] = errors.New("boom")
	mailer := &fakeMailer{}
	batch := NewBatchService(svc, mailer, discardLogger())

	res, err := batch.AddMeetings(context.Background(), testUser(), []domain.MeetingCreate{
		{Summary: "good", StartTime: time.Now()},
		{Summary: "bad"},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Results[0])
	assert.Error(t, res.Errs[1])

	assert.Equal(t, 1, mailer.sent)
	assert.Equal(t, "chair@example.org", mailer.to)
	assert.Contains(t, mailer.text, "1 created, 1 failed")
}
