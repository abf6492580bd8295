package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"committeesync/internal/domain"
)

type meetingService struct {
	meetingRepo domain.MeetingRepository
	groups      domain.GroupProvider
	sessions    domain.SessionProvider
	video       domain.VideoClient
	calendar    domain.CalendarClient
	registry    domain.RegistryClient

	defaultVideoAccount    string
	defaultCalendarAccount string

	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewMeetingService wires the per-meeting reconciler.
func NewMeetingService(
	meetingRepo domain.MeetingRepository,
	groups domain.GroupProvider,
	sessions domain.SessionProvider,
	video domain.VideoClient,
	calendar domain.CalendarClient,
	registry domain.RegistryClient,
	defaultVideoAccount, defaultCalendarAccount string,
	logger *slog.Logger,
	timeout time.Duration,
) domain.MeetingService {
	return &meetingService{
		meetingRepo:            meetingRepo,
		groups:                 groups,
		sessions:               sessions,
		video:                  video,
		calendar:               calendar,
		registry:               registry,
		defaultVideoAccount:    defaultVideoAccount,
		defaultCalendarAccount: defaultCalendarAccount,
		logger:                 logger,
		contextTimeout:         timeout,
	}
}

// attempt runs one backend step under the failure policy for (kind, op).
// Warn-policy failures are logged and absorbed, leaving the link unchanged.
func (s *meetingService) attempt(ctx context.Context, kind linkKind, op syncOp, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if policyFor(kind, op) == policyWarn {
		s.logger.WarnContext(ctx, "backend sync failed, continuing", "kind", string(kind), "op", string(op), "err", err)
		return nil
	}
	return fmt.Errorf("%s sync: %w", kind, err)
}

// deleteBestEffort deletes an external resource treating NotFound as success.
func deleteBestEffort(del func() error) error {
	if err := del(); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *meetingService) Add(ctx context.Context, user domain.UserContext, create domain.MeetingCreate) (*domain.MeetingResult, error) {
	if !user.Valid() {
		return nil, domain.ErrAuth
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if create.GroupID == "" {
		return nil, fmt.Errorf("%w: group is required", domain.ErrInvalidInput)
	}
	if !create.EndTime.After(create.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidInput)
	}

	m := &domain.Meeting{
		GroupID:    create.GroupID,
		SessionID:  create.SessionID,
		Summary:    create.Summary,
		Location:   create.Location,
		StartTime:  create.StartTime,
		EndTime:    create.EndTime,
		Timezone:   create.Timezone,
		HasMotions: create.HasMotions,
	}

	// Video first: its handle feeds the registry and calendar descriptions.
	var video *domain.VideoMeeting
	var videoCol domain.LinkColumn
	err := s.attempt(ctx, kindVideo, opAdd, func() error {
		var err error
		video, videoCol, err = s.applyVideo(ctx, m, create.Video, domain.VideoMeetingParams{}, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	if videoCol.Set {
		m.VideoLink = videoCol.Link
	}

	session, group := s.fetchContext(ctx, user, m, create.Registry)

	var breakout *domain.Breakout
	var registryCol domain.LinkColumn
	err = s.attempt(ctx, kindRegistry, opAdd, func() error {
		var err error
		breakout, registryCol, err = s.applyRegistry(ctx, user, m, create.Registry, session, video, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	if registryCol.Set {
		m.RegistryLink = registryCol.Link
	}

	var calendarCol domain.LinkColumn
	_ = s.attempt(ctx, kindCalendar, opAdd, func() error {
		var err error
		calendarCol, err = s.applyCalendar(ctx, m, create.Calendar, group, video, breakout, true)
		return err
	})
	if calendarCol.Set {
		m.CalendarLink = calendarCol.Link
	}

	if err := s.meetingRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	stored, err := s.meetingRepo.GetByID(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("reload meeting: %w", err)
	}
	return &domain.MeetingResult{Meeting: stored, Video: video, Breakout: breakout}, nil
}

func (s *meetingService) Update(ctx context.Context, user domain.UserContext, id string, update domain.MeetingUpdate) (*domain.MeetingResult, error) {
	if !user.Valid() {
		return nil, domain.ErrAuth
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}

	merged := mergeScalars(*current, update)
	scalarsChanged := update.Summary != nil || update.Location != nil ||
		update.StartTime != nil || update.EndTime != nil || update.Timezone != nil ||
		update.Cancelled != nil || update.HasMotions != nil

	// True no-op: nothing to push anywhere, nothing to persist.
	if !scalarsChanged && update.Video.Kind == domain.LinkUnchanged &&
		update.Calendar.Kind == domain.LinkUnchanged && update.Registry.Kind == domain.LinkUnchanged {
		return &domain.MeetingResult{Meeting: current}, nil
	}

	videoParams := videoParamsFromChanges(update)
	if update.StartTime != nil || update.EndTime != nil {
		start := merged.StartTime
		d := durationMinutes(merged.StartTime, merged.EndTime)
		videoParams.StartTime = &start
		videoParams.Duration = &d
	}

	// The video call and the session/group reads are independent pure-input
	// steps; overlap them. The registry and calendar steps are sequenced
	// after because they consume these outputs.
	var (
		video    *domain.VideoMeeting
		videoCol domain.LinkColumn
		videoErr error
		session  *domain.RegistrySession
		group    *domain.Group
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		videoErr = s.attempt(ctx, kindVideo, opUpdate, func() error {
			var err error
			video, videoCol, err = s.applyVideo(ctx, &merged, update.Video, videoParams, scalarsChanged)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		session, group = s.fetchContext(ctx, user, &merged, update.Registry)
	}()
	wg.Wait()
	if videoErr != nil {
		return nil, videoErr
	}
	applyLinkColumn(&merged.VideoLink, videoCol)

	// Later steps may need the video handle even when the video itself was
	// untouched (registry location fallback, calendar description).
	if video == nil && merged.VideoLink != nil &&
		(willAct(merged.RegistryLink, update.Registry, scalarsChanged || videoCol.Set) ||
			willAct(merged.CalendarLink, update.Calendar, scalarsChanged || videoCol.Set)) {
		v, err := s.video.Get(ctx, merged.VideoLink.AccountID, merged.VideoLink.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "video meeting vanished externally, clearing link", "meeting_id", id)
			videoCol = domain.Clear()
			applyLinkColumn(&merged.VideoLink, videoCol)
		case err != nil:
			s.logger.WarnContext(ctx, "video meeting fetch failed", "meeting_id", id, "err", err)
		default:
			video = v
		}
	}

	registryDirty := scalarsChanged || videoCol.Set
	var breakout *domain.Breakout
	var registryCol domain.LinkColumn
	if err := s.attempt(ctx, kindRegistry, opUpdate, func() error {
		var err error
		breakout, registryCol, err = s.applyRegistry(ctx, user, &merged, update.Registry, session, video, registryDirty)
		return err
	}); err != nil {
		return nil, err
	}
	applyLinkColumn(&merged.RegistryLink, registryCol)

	calendarDirty := registryDirty || registryCol.Set
	var calendarCol domain.LinkColumn
	_ = s.attempt(ctx, kindCalendar, opUpdate, func() error {
		var err error
		calendarCol, err = s.applyCalendar(ctx, &merged, update.Calendar, group, video, breakout, calendarDirty)
		return err
	})
	applyLinkColumn(&merged.CalendarLink, calendarCol)

	changes := domain.MeetingChanges{
		Summary:      update.Summary,
		Location:     update.Location,
		StartTime:    update.StartTime,
		EndTime:      update.EndTime,
		Timezone:     update.Timezone,
		Cancelled:    update.Cancelled,
		HasMotions:   update.HasMotions,
		VideoLink:    videoCol,
		CalendarLink: calendarCol,
		RegistryLink: registryCol,
	}
	if !changes.Empty() {
		if err := s.meetingRepo.Update(ctx, id, changes); err != nil {
			return nil, fmt.Errorf("persist meeting: %w", err)
		}
	}
	stored, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload meeting: %w", err)
	}
	return &domain.MeetingResult{Meeting: stored, Video: video, Breakout: breakout}, nil
}

func (s *meetingService) Delete(ctx context.Context, user domain.UserContext, id string) error {
	if !user.Valid() {
		return domain.ErrAuth
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	m, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get meeting: %w", err)
	}

	if m.VideoLink != nil {
		_ = s.attempt(ctx, kindVideo, opDelete, func() error {
			return deleteBestEffort(func() error {
				return s.video.Delete(ctx, m.VideoLink.AccountID, m.VideoLink.ID)
			})
		})
	}
	if m.RegistryLink != nil {
		_ = s.attempt(ctx, kindRegistry, opDelete, func() error {
			return deleteBestEffort(func() error {
				_, err := s.registry.Delete(ctx, user, m.RegistryLink.AccountID, []string{m.RegistryLink.ID})
				return err
			})
		})
	}
	if m.CalendarLink != nil {
		_ = s.attempt(ctx, kindCalendar, opDelete, func() error {
			return deleteBestEffort(func() error {
				return s.calendar.Delete(ctx, m.CalendarLink.AccountID, m.CalendarLink.ID)
			})
		})
	}

	if err := s.meetingRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete meeting: %w", err)
	}
	return nil
}

func (s *meetingService) List(ctx context.Context, filter domain.MeetingFilter) ([]*domain.Meeting, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	meetings, err := s.meetingRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	if meetings == nil {
		meetings = []*domain.Meeting{}
	}
	return meetings, nil
}

// fetchContext resolves the registry session and the owning group. Both are
// pure reads; failures degrade the later description/location synthesis but
// never abort the meeting operation on their own.
func (s *meetingService) fetchContext(ctx context.Context, user domain.UserContext, m *domain.Meeting, registryChange domain.LinkChange) (*domain.RegistrySession, *domain.Group) {
	var session *domain.RegistrySession
	sessionID := ""
	if m.SessionID != nil {
		sessionID = *m.SessionID
	}
	if registryChange.Kind == domain.LinkProvision && registryChange.Target.AccountID != "" {
		sessionID = registryChange.Target.AccountID
	}
	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, user, sessionID)
		if err != nil {
			s.logger.WarnContext(ctx, "session fetch failed", "session_id", sessionID, "err", err)
		} else {
			session = sess
		}
	}

	var group *domain.Group
	if m.GroupID != "" {
		g, err := s.groups.Get(ctx, m.GroupID)
		if err != nil {
			s.logger.WarnContext(ctx, "group fetch failed", "group_id", m.GroupID, "err", err)
		} else {
			group = g
		}
	}
	return session, group
}

// willAct reports whether resolving (current, change) with the given dirty
// flag would touch the backend at all.
func willAct(current *domain.Link, change domain.LinkChange, dirty bool) bool {
	switch ResolveLink(current, change) {
	case ActionNone:
		return false
	case ActionUpdate:
		return dirty || change.Kind == domain.LinkAdopt
	default:
		return true
	}
}

func applyLinkColumn(link **domain.Link, col domain.LinkColumn) {
	if col.Set {
		*link = col.Link
	}
}

func mergeScalars(m domain.Meeting, update domain.MeetingUpdate) domain.Meeting {
	if update.Summary != nil {
		m.Summary = *update.Summary
	}
	if update.Location != nil {
		m.Location = *update.Location
	}
	if update.StartTime != nil {
		m.StartTime = *update.StartTime
	}
	if update.EndTime != nil {
		m.EndTime = *update.EndTime
	}
	if update.Timezone != nil {
		m.Timezone = *update.Timezone
	}
	if update.Cancelled != nil {
		m.Cancelled = *update.Cancelled
	}
	if update.HasMotions != nil {
		m.HasMotions = *update.HasMotions
	}
	return m
}

// applyVideo resolves and executes the video link action. The returned
// column is set only when the link value must change; a nil error with a
// cleared column means external drift was detected and absorbed.
func (s *meetingService) applyVideo(ctx context.Context, m *domain.Meeting, change domain.LinkChange, sparse domain.VideoMeetingParams, dirty bool) (*domain.VideoMeeting, domain.LinkColumn, error) {
	var col domain.LinkColumn
	action := ResolveLink(m.VideoLink, change)
	switch action {
	case ActionNone:
		return nil, col, nil

	case ActionUpdate:
		if change.Kind == domain.LinkUnchanged && (!dirty || emptyVideoParams(sparse)) {
			return nil, col, nil
		}
		cur := *m.VideoLink
		params := sparse
		if change.Kind == domain.LinkAdopt {
			// Adopting: fetch the provider's current state and lay only the
			// explicitly changed local fields on top.
			existing, err := s.video.Get(ctx, cur.AccountID, cur.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					s.logger.WarnContext(ctx, "video meeting vanished externally, clearing link", "meeting_id", m.ID)
					return nil, domain.Clear(), nil
				}
				return nil, col, fmt.Errorf("get video meeting: %w", err)
			}
			params = mergeVideoParams(existing, sparse)
		}
		updated, err := s.video.Update(ctx, cur.AccountID, cur.ID, params)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "video meeting vanished externally, clearing link", "meeting_id", m.ID)
				return nil, domain.Clear(), nil
			}
			return nil, col, fmt.Errorf("update video meeting: %w", err)
		}
		return updated, col, nil

	case ActionCreate, ActionRecreate:
		if action == ActionRecreate {
			if err := deleteBestEffort(func() error {
				return s.video.Delete(ctx, m.VideoLink.AccountID, m.VideoLink.ID)
			}); err != nil {
				return nil, col, fmt.Errorf("delete video meeting: %w", err)
			}
		}
		account := change.Target.AccountID
		if account == "" {
			account = s.defaultVideoAccount
		}
		if account == "" {
			return nil, col, fmt.Errorf("%w: no video account available", domain.ErrUnknownAccount)
		}
		created, err := s.video.Create(ctx, account, videoParamsFromMeeting(m))
		if err != nil {
			return nil, col, fmt.Errorf("create video meeting: %w", err)
		}
		return created, domain.SetTo(domain.Link{AccountID: account, ID: created.ID}), nil

	case ActionAdopt, ActionReadopt:
		if action == ActionReadopt {
			if err := deleteBestEffort(func() error {
				return s.video.Delete(ctx, m.VideoLink.AccountID, m.VideoLink.ID)
			}); err != nil {
				return nil, col, fmt.Errorf("delete video meeting: %w", err)
			}
		}
		target := change.Target
		existing, err := s.video.Get(ctx, target.AccountID, target.ID)
		if err != nil {
			return nil, col, fmt.Errorf("get video meeting %s: %w", target.ID, err)
		}
		full := videoParamsFromMeeting(m)
		updated, err := s.video.Update(ctx, target.AccountID, target.ID, mergeVideoParams(existing, full))
		if err != nil {
			return nil, col, fmt.Errorf("update adopted video meeting: %w", err)
		}
		return updated, domain.SetTo(target), nil

	case ActionDelete:
		if err := deleteBestEffort(func() error {
			return s.video.Delete(ctx, m.VideoLink.AccountID, m.VideoLink.ID)
		}); err != nil {
			return nil, col, fmt.Errorf("delete video meeting: %w", err)
		}
		return nil, domain.Clear(), nil
	}
	return nil, col, nil
}

// applyRegistry resolves and executes the breakout link action. All
// parameter-producing paths need the session slot grid.
func (s *meetingService) applyRegistry(ctx context.Context, user domain.UserContext, m *domain.Meeting, change domain.LinkChange, session *domain.RegistrySession, video *domain.VideoMeeting, dirty bool) (*domain.Breakout, domain.LinkColumn, error) {
	var col domain.LinkColumn
	action := ResolveLink(m.RegistryLink, change)
	if action == ActionNone {
		return nil, col, nil
	}
	if action == ActionUpdate && change.Kind == domain.LinkUnchanged && !dirty {
		return nil, col, nil
	}

	if action == ActionDelete {
		if err := deleteBestEffort(func() error {
			_, err := s.registry.Delete(ctx, user, m.RegistryLink.AccountID, []string{m.RegistryLink.ID})
			return err
		}); err != nil {
			return nil, col, fmt.Errorf("delete breakout: %w", err)
		}
		return nil, domain.Clear(), nil
	}

	if session == nil {
		return nil, col, fmt.Errorf("%w: registry sync requires a session", domain.ErrInvalidInput)
	}

	switch action {
	case ActionUpdate:
		cur := *m.RegistryLink
		existing, err := s.registry.Get(ctx, user, cur.AccountID, cur.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "breakout vanished externally, clearing link", "meeting_id", m.ID)
				return nil, domain.Clear(), nil
			}
			return nil, col, fmt.Errorf("get breakout: %w", err)
		}
		params, err := breakoutParams(m, session, video, existing)
		if err != nil {
			return nil, col, err
		}
		updated, err := s.registry.Update(ctx, user, cur.AccountID, cur.ID, params)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "breakout vanished externally, clearing link", "meeting_id", m.ID)
				return nil, domain.Clear(), nil
			}
			return nil, col, fmt.Errorf("update breakout: %w", err)
		}
		return updated, col, nil

	case ActionCreate, ActionRecreate:
		if action == ActionRecreate {
			if err := deleteBestEffort(func() error {
				_, err := s.registry.Delete(ctx, user, m.RegistryLink.AccountID, []string{m.RegistryLink.ID})
				return err
			}); err != nil {
				return nil, col, fmt.Errorf("delete breakout: %w", err)
			}
		}
		params, err := breakoutParams(m, session, video, nil)
		if err != nil {
			return nil, col, err
		}
		created, err := s.registry.Create(ctx, user, session.ID, params)
		if err != nil {
			return nil, col, fmt.Errorf("create breakout: %w", err)
		}
		return created, domain.SetTo(domain.Link{AccountID: session.ID, ID: created.ID}), nil

	case ActionAdopt, ActionReadopt:
		if action == ActionReadopt {
			if err := deleteBestEffort(func() error {
				_, err := s.registry.Delete(ctx, user, m.RegistryLink.AccountID, []string{m.RegistryLink.ID})
				return err
			}); err != nil {
				return nil, col, fmt.Errorf("delete breakout: %w", err)
			}
		}
		target := change.Target
		existing, err := s.registry.Get(ctx, user, target.AccountID, target.ID)
		if err != nil {
			return nil, col, fmt.Errorf("get breakout %s: %w", target.ID, err)
		}
		params, err := breakoutParams(m, session, video, existing)
		if err != nil {
			return nil, col, err
		}
		updated, err := s.registry.Update(ctx, user, target.AccountID, target.ID, params)
		if err != nil {
			return nil, col, fmt.Errorf("update adopted breakout: %w", err)
		}
		return updated, domain.SetTo(target), nil
	}
	return nil, col, nil
}

// applyCalendar resolves and executes the calendar link action. Create and
// update both push the fully synthesized event so the provider-side status
// is reasserted on every touch.
func (s *meetingService) applyCalendar(ctx context.Context, m *domain.Meeting, change domain.LinkChange, group *domain.Group, video *domain.VideoMeeting, breakout *domain.Breakout, dirty bool) (domain.LinkColumn, error) {
	var col domain.LinkColumn
	action := ResolveLink(m.CalendarLink, change)
	if action == ActionNone {
		return col, nil
	}
	if action == ActionUpdate && change.Kind == domain.LinkUnchanged && !dirty {
		return col, nil
	}

	event := calendarEvent(m, group, video, breakout)

	switch action {
	case ActionUpdate:
		cur := *m.CalendarLink
		if _, err := s.calendar.Update(ctx, cur.AccountID, cur.ID, event); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "calendar event vanished externally, clearing link", "meeting_id", m.ID)
				return domain.Clear(), nil
			}
			return col, fmt.Errorf("update calendar event: %w", err)
		}
		return col, nil

	case ActionCreate, ActionRecreate:
		if action == ActionRecreate {
			if err := deleteBestEffort(func() error {
				return s.calendar.Delete(ctx, m.CalendarLink.AccountID, m.CalendarLink.ID)
			}); err != nil {
				return col, fmt.Errorf("delete calendar event: %w", err)
			}
		}
		account := change.Target.AccountID
		if account == "" {
			account = s.defaultCalendarAccount
		}
		if account == "" {
			return col, fmt.Errorf("%w: no calendar account available", domain.ErrUnknownAccount)
		}
		created, err := s.calendar.Create(ctx, account, event)
		if err != nil {
			return col, fmt.Errorf("create calendar event: %w", err)
		}
		return domain.SetTo(domain.Link{AccountID: account, ID: created.ID}), nil

	case ActionAdopt, ActionReadopt:
		if action == ActionReadopt {
			if err := deleteBestEffort(func() error {
				return s.calendar.Delete(ctx, m.CalendarLink.AccountID, m.CalendarLink.ID)
			}); err != nil {
				return col, fmt.Errorf("delete calendar event: %w", err)
			}
		}
		target := change.Target
		if _, err := s.calendar.Update(ctx, target.AccountID, target.ID, event); err != nil {
			return col, fmt.Errorf("update adopted calendar event: %w", err)
		}
		return domain.SetTo(target), nil

	case ActionDelete:
		if err := deleteBestEffort(func() error {
			return s.calendar.Delete(ctx, m.CalendarLink.AccountID, m.CalendarLink.ID)
		}); err != nil {
			return col, fmt.Errorf("delete calendar event: %w", err)
		}
		return domain.Clear(), nil
	}
	return col, nil
}
