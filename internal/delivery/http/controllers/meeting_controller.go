package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"committeesync/internal/delivery/http/helpers"
	"committeesync/internal/delivery/http/middleware"
	"committeesync/internal/domain"
)

// MeetingCreateRequest is one element of the POST /meetings body. The video,
// calendar and breakout fields accept the link change encoding: absent to
// leave the system untouched, null to unlink, "create" to provision, or an
// {account_id, id} object to adopt an existing resource.
type MeetingCreateRequest struct {
	GroupID    string            `json:"group_id"`
	SessionID  *string           `json:"session_id,omitempty"`
	Summary    string            `json:"summary"`
	Location   string            `json:"location"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Timezone   string            `json:"timezone"`
	HasMotions bool              `json:"has_motions"`
	Video      domain.LinkChange `json:"video"`
	Calendar   domain.LinkChange `json:"calendar"`
	Breakout   domain.LinkChange `json:"breakout"`
}

func (r MeetingCreateRequest) toDomain() domain.MeetingCreate {
	return domain.MeetingCreate{
		GroupID:    r.GroupID,
		SessionID:  r.SessionID,
		Summary:    r.Summary,
		Location:   r.Location,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Timezone:   r.Timezone,
		HasMotions: r.HasMotions,
		Video:      r.Video,
		Calendar:   r.Calendar,
		Registry:   r.Breakout,
	}
}

// MeetingsCreateRequest is the request body for POST /meetings.
type MeetingsCreateRequest struct {
	Meetings []MeetingCreateRequest `json:"meetings"`
}

// Validate implements Validator.
func (r MeetingsCreateRequest) Validate() []string {
	var errs []string
	if len(r.Meetings) == 0 {
		errs = append(errs, "meetings is required and must not be empty")
	}
	for i, m := range r.Meetings {
		if m.GroupID == "" {
			errs = append(errs, errAt(i, "group_id is required"))
		}
		if m.Summary == "" {
			errs = append(errs, errAt(i, "summary is required"))
		}
		if m.StartTime.IsZero() || m.EndTime.IsZero() {
			errs = append(errs, errAt(i, "start_time and end_time are required"))
		}
	}
	return errs
}

// MeetingUpdateRequest is one element of the PATCH /meetings body. Scalar
// fields are optional; absent fields are left unchanged.
type MeetingUpdateRequest struct {
	ID         string            `json:"id"`
	Summary    *string           `json:"summary,omitempty"`
	Location   *string           `json:"location,omitempty"`
	StartTime  *time.Time        `json:"start_time,omitempty"`
	EndTime    *time.Time        `json:"end_time,omitempty"`
	Timezone   *string           `json:"timezone,omitempty"`
	Cancelled  *bool             `json:"cancelled,omitempty"`
	HasMotions *bool             `json:"has_motions,omitempty"`
	Video      domain.LinkChange `json:"video"`
	Calendar   domain.LinkChange `json:"calendar"`
	Breakout   domain.LinkChange `json:"breakout"`
}

func (r MeetingUpdateRequest) toDomain() domain.BatchUpdate {
	return domain.BatchUpdate{
		ID: r.ID,
		Changes: domain.MeetingUpdate{
			Summary:    r.Summary,
			Location:   r.Location,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Timezone:   r.Timezone,
			Cancelled:  r.Cancelled,
			HasMotions: r.HasMotions,
			Video:      r.Video,
			Calendar:   r.Calendar,
			Registry:   r.Breakout,
		},
	}
}

// MeetingsUpdateRequest is the request body for PATCH /meetings.
type MeetingsUpdateRequest struct {
	Meetings []MeetingUpdateRequest `json:"meetings"`
}

// Validate implements Validator.
func (r MeetingsUpdateRequest) Validate() []string {
	var errs []string
	if len(r.Meetings) == 0 {
		errs = append(errs, "meetings is required and must not be empty")
	}
	for i, m := range r.Meetings {
		if m.ID == "" {
			errs = append(errs, errAt(i, "id is required"))
		}
	}
	return errs
}

// MeetingsDeleteRequest is the request body for DELETE /meetings.
type MeetingsDeleteRequest struct {
	IDs []string `json:"ids"`
}

// Validate implements Validator.
func (r MeetingsDeleteRequest) Validate() []string {
	if len(r.IDs) == 0 {
		return []string{"ids is required and must not be empty"}
	}
	return nil
}

// BatchElement is the per-meeting outcome of a batch operation. Exactly one
// of result and error is set.
type BatchElement struct {
	Result *domain.MeetingResult `json:"result,omitempty"`
	Error  *helpers.APIError     `json:"error,omitempty"`
}

// BatchResponse is the data payload of batch create/update responses.
type BatchResponse struct {
	Meetings []BatchElement `json:"meetings"`
}

// DeleteResponse is the data payload of DELETE /meetings.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

type MeetingController struct {
	Logger   *slog.Logger
	Batch    domain.BatchService
	Meetings domain.MeetingService
}

func NewMeetingController(logger *slog.Logger, batch domain.BatchService, meetings domain.MeetingService) *MeetingController {
	return &MeetingController{
		Logger:   logger,
		Batch:    batch,
		Meetings: meetings,
	}
}

// CreateMeetings godoc
// @Summary Create meetings
// @Description Create one or more meetings and provision their external resources (video conference, calendar event, attendance breakout). Elements are independent; per-element failures are reported in place without aborting the rest.
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param meetings body MeetingsCreateRequest true "Meetings to create"
// @Success 201 {object} helpers.APIResponse "data contains per-meeting results"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /meetings [post]
func (c *MeetingController) CreateMeetings(w http.ResponseWriter, r *http.Request) {
	var req MeetingsCreateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	creates := make([]domain.MeetingCreate, len(req.Meetings))
	for i, m := range req.Meetings {
		creates[i] = m.toDomain()
	}
	res, err := c.Batch.AddMeetings(r.Context(), user, creates)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, toBatchResponse(res))
}

// UpdateMeetings godoc
// @Summary Update meetings
// @Description Update one or more meetings and reconcile their external resources. Absent scalar fields are left unchanged; link fields accept the change encoding described on the create endpoint.
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param meetings body MeetingsUpdateRequest true "Meetings to update"
// @Success 200 {object} helpers.APIResponse "data contains per-meeting results"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /meetings [patch]
func (c *MeetingController) UpdateMeetings(w http.ResponseWriter, r *http.Request) {
	var req MeetingsUpdateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	updates := make([]domain.BatchUpdate, len(req.Meetings))
	for i, m := range req.Meetings {
		updates[i] = m.toDomain()
	}
	res, err := c.Batch.UpdateMeetings(r.Context(), user, updates)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, toBatchResponse(res))
}

// DeleteMeetings godoc
// @Summary Delete meetings
// @Description Delete one or more meetings, removing their external resources best-effort. Returns the number of meetings deleted.
// @Tags meetings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ids body MeetingsDeleteRequest true "Meeting ids to delete"
// @Success 200 {object} helpers.APIResponse "data contains the deleted count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /meetings [delete]
func (c *MeetingController) DeleteMeetings(w http.ResponseWriter, r *http.Request) {
	var req MeetingsDeleteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	deleted, err := c.Batch.DeleteMeetings(r.Context(), user, req.IDs)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// ListMeetings godoc
// @Summary List meetings
// @Description List meetings filtered by group, session, or time range. Times are RFC 3339.
// @Tags meetings
// @Produce json
// @Security BearerAuth
// @Param group_id query string false "Filter by group id"
// @Param session_id query string false "Filter by session id"
// @Param from query string false "Meetings starting at or after this time"
// @Param to query string false "Meetings starting before this time"
// @Success 200 {object} helpers.APIResponse "data contains the meeting list"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /meetings [get]
func (c *MeetingController) ListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MeetingFilter{
		IDs:       q["id"],
		GroupID:   q.Get("group_id"),
		SessionID: q.Get("session_id"),
	}
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "from must be RFC 3339")
			return
		}
		filter.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "to must be RFC 3339")
			return
		}
		filter.To = &t
	}
	meetings, err := c.Meetings.List(r.Context(), filter)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, meetings)
}

func toBatchResponse(res *domain.BatchResult) BatchResponse {
	out := BatchResponse{Meetings: make([]BatchElement, len(res.Results))}
	for i := range res.Results {
		if err := res.Errs[i]; err != nil {
			out.Meetings[i] = BatchElement{Error: toAPIError(err)}
			continue
		}
		out.Meetings[i] = BatchElement{Result: res.Results[i]}
	}
	return out
}

func toAPIError(err error) *helpers.APIError {
	code := helpers.ErrCodeInternalError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = helpers.ErrCodeNotFound
	case errors.Is(err, domain.ErrAuth):
		code = helpers.ErrCodeUnauthorized
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownAccount):
		code = helpers.ErrCodeBadRequest
	}
	return &helpers.APIError{Code: code, Message: err.Error()}
}

func errAt(i int, msg string) string {
	return "meetings[" + strconv.Itoa(i) + "]: " + msg
}
