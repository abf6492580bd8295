package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"committeesync/internal/adapters/accounts"
	"committeesync/internal/domain"
)

const defaultBaseURL = "https://api.zoom.us/v2"

// clientSource supplies per-account authenticated HTTP clients.
type clientSource interface {
	Client(ctx context.Context, accountID string) (*http.Client, error)
	Account(accountID string) (accounts.Account, error)
}

type zoomClient struct {
	source  clientSource
	baseURL string
}

// NewClient returns a VideoClient backed by the Zoom REST API. An empty
// baseURL selects the public endpoint.
func NewClient(source clientSource, baseURL string) domain.VideoClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &zoomClient{source: source, baseURL: baseURL}
}

type meetingResponse struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Agenda    string    `json:"agenda"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"`
	Timezone  string    `json:"timezone"`
	JoinURL   string    `json:"join_url"`
	Password  string    `json:"password"`
	Settings  struct {
		GlobalDialInNumbers []struct {
			Number string `json:"number"`
		} `json:"global_dial_in_numbers"`
	} `json:"settings"`
}

func (m *meetingResponse) toDomain() *domain.VideoMeeting {
	v := &domain.VideoMeeting{
		ID:        strconv.FormatInt(m.ID, 10),
		Topic:     m.Topic,
		Agenda:    m.Agenda,
		StartTime: m.StartTime,
		Duration:  m.Duration,
		Timezone:  m.Timezone,
		JoinURL:   m.JoinURL,
		Password:  m.Password,
	}
	if len(m.Settings.GlobalDialInNumbers) > 0 {
		v.DialIn = m.Settings.GlobalDialInNumbers[0].Number
	}
	return v
}

type meetingRequest struct {
	Topic     *string `json:"topic,omitempty"`
	Type      int     `json:"type,omitempty"`
	Agenda    *string `json:"agenda,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	Duration  *int    `json:"duration,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Password  *string `json:"password,omitempty"`
}

func requestBody(p domain.VideoMeetingParams) meetingRequest {
	req := meetingRequest{
		Topic:    p.Topic,
		Agenda:   p.Agenda,
		Duration: p.Duration,
		Timezone: p.Timezone,
		Password: p.Password,
	}
	if p.StartTime != nil {
		s := p.StartTime.UTC().Format("2006-01-02T15:04:05Z")
		req.StartTime = &s
	}
	return req
}

func (c *zoomClient) Get(ctx context.Context, accountID, meetingID string) (*domain.VideoMeeting, error) {
	var out meetingResponse
	if err := c.do(ctx, accountID, http.MethodGet, "/meetings/"+meetingID, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *zoomClient) Create(ctx context.Context, accountID string, params domain.VideoMeetingParams) (*domain.VideoMeeting, error) {
	a, err := c.source.Account(accountID)
	if err != nil {
		return nil, err
	}
	body := requestBody(params)
	body.Type = 2 // scheduled meeting
	var out meetingResponse
	if err := c.do(ctx, accountID, http.MethodPost, "/users/"+a.OwnerID+"/meetings", body, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *zoomClient) Update(ctx context.Context, accountID, meetingID string, params domain.VideoMeetingParams) (*domain.VideoMeeting, error) {
	// Zoom's PATCH returns no body; re-fetch for the updated state.
	if err := c.do(ctx, accountID, http.MethodPatch, "/meetings/"+meetingID, requestBody(params), nil); err != nil {
		return nil, err
	}
	return c.Get(ctx, accountID, meetingID)
}

func (c *zoomClient) Delete(ctx context.Context, accountID, meetingID string) error {
	return c.do(ctx, accountID, http.MethodDelete, "/meetings/"+meetingID, nil, nil)
}

func (c *zoomClient) do(ctx context.Context, accountID, method, path string, body, out interface{}) error {
	httpClient, err := c.source.Client(ctx, accountID)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode zoom request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoom request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode zoom response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: zoom returned 404: %s", domain.ErrNotFound, snippet)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: zoom returned %d: %s", domain.ErrAuth, resp.StatusCode, snippet)
	default:
		return fmt.Errorf("zoom api returned status %d: %s", resp.StatusCode, snippet)
	}
}
