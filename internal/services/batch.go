package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"committeesync/internal/domain"
)

type batchService struct {
	meetings domain.MeetingService
	mailer   domain.Mailer
	logger   *slog.Logger
}

// NewBatchService wraps the per-meeting reconciler with array fan-out.
func NewBatchService(meetings domain.MeetingService, mailer domain.Mailer, logger *slog.Logger) domain.BatchService {
	return &batchService{meetings: meetings, mailer: mailer, logger: logger}
}

func (s *batchService) AddMeetings(ctx context.Context, user domain.UserContext, creates []domain.MeetingCreate) (*domain.BatchResult, error) {
	if !user.Valid() {
		return nil, domain.ErrAuth
	}
	out := &domain.BatchResult{
		Results: make([]*domain.MeetingResult, len(creates)),
		Errs:    make([]error, len(creates)),
	}
	var wg sync.WaitGroup
	for i, create := range creates {
		wg.Add(1)
		go func(i int, create domain.MeetingCreate) {
			defer wg.Done()
			res, err := s.meetings.Add(ctx, user, create)
			if err != nil {
				out.Errs[i] = err
				return
			}
			out.Results[i] = res
		}(i, create)
	}
	wg.Wait()
	s.sendReport(user, "Meetings created", out)
	return out, nil
}

func (s *batchService) UpdateMeetings(ctx context.Context, user domain.UserContext, updates []domain.BatchUpdate) (*domain.BatchResult, error) {
	if !user.Valid() {
		return nil, domain.ErrAuth
	}
	out := &domain.BatchResult{
		Results: make([]*domain.MeetingResult, len(updates)),
		Errs:    make([]error, len(updates)),
	}
	var wg sync.WaitGroup
	for i, u := range updates {
		wg.Add(1)
		go func(i int, u domain.BatchUpdate) {
			defer wg.Done()
			res, err := s.meetings.Update(ctx, user, u.ID, u.Changes)
			if err != nil {
				out.Errs[i] = err
				return
			}
			out.Results[i] = res
		}(i, u)
	}
	wg.Wait()
	return out, nil
}

func (s *batchService) DeleteMeetings(ctx context.Context, user domain.UserContext, ids []string) (int, error) {
	if !user.Valid() {
		return 0, domain.ErrAuth
	}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.meetings.Delete(ctx, user, id)
		}(i, id)
	}
	wg.Wait()
	deleted := 0
	for i, err := range errs {
		if err == nil {
			deleted++
			continue
		}
		s.logger.Warn("batch delete element failed", "meeting_id", ids[i], "err", err)
	}
	return deleted, nil
}

// sendReport emails the caller a summary of a batch creation. Best effort.
func (s *batchService) sendReport(user domain.UserContext, subject string, res *domain.BatchResult) {
	if s.mailer == nil || user.Email == "" {
		return
	}
	ok, failed := 0, 0
	var lines []string
	for i, r := range res.Results {
		if r != nil {
			ok++
			lines = append(lines, fmt.Sprintf("%s (%s)", r.Meeting.Summary, r.Meeting.StartTime.Format("2006-01-02 15:04")))
			continue
		}
		failed++
		lines = append(lines, fmt.Sprintf("element %d failed: %v", i, res.Errs[i]))
	}
	text := fmt.Sprintf("%d created, %d failed\n\n%s\n", ok, failed, strings.Join(lines, "\n"))
	html := "<p>" + fmt.Sprintf("%d created, %d failed", ok, failed) + "</p><ul><li>" + strings.Join(lines, "</li><li>") + "</li></ul>"
	if err := s.mailer.Send(user.Email, subject, html, text); err != nil {
		s.logger.Warn("batch report email failed", "to", user.Email, "err", err)
	}
}
