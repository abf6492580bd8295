package imat

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"committeesync/internal/domain"
)

// sessionCookie carries the user's registry session token. The registry
// authenticates breakout changes as the acting user, not a service account.
const sessionCookie = "imat_session"

type imatClient struct {
	client  *http.Client
	baseURL string
}

// NewClient returns a RegistryClient for the attendance registry. Reads use
// the registry's CSV exports; writes are form posts.
func NewClient(client *http.Client, baseURL string) domain.RegistryClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &imatClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *imatClient) Get(ctx context.Context, user domain.UserContext, registryMeetingID, breakoutID string) (*domain.Breakout, error) {
	rows, err := c.fetchCSV(ctx, user, fmt.Sprintf("%s/%s/breakouts.csv", c.baseURL, registryMeetingID))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		b, err := breakoutFromRow(row)
		if err != nil {
			return nil, err
		}
		if b.ID == breakoutID {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: breakout %s", domain.ErrNotFound, breakoutID)
}

func (c *imatClient) Create(ctx context.Context, user domain.UserContext, registryMeetingID string, params domain.BreakoutParams) (*domain.Breakout, error) {
	endpoint := fmt.Sprintf("%s/%s/breakout", c.baseURL, registryMeetingID)
	id, err := c.postForm(ctx, user, endpoint, breakoutForm(params))
	if err != nil {
		return nil, fmt.Errorf("failed to create breakout: %w", err)
	}
	b := breakoutFromParams(params)
	b.ID = id
	return b, nil
}

func (c *imatClient) Update(ctx context.Context, user domain.UserContext, registryMeetingID, breakoutID string, params domain.BreakoutParams) (*domain.Breakout, error) {
	endpoint := fmt.Sprintf("%s/%s/breakout/%s", c.baseURL, registryMeetingID, breakoutID)
	if _, err := c.postForm(ctx, user, endpoint, breakoutForm(params)); err != nil {
		return nil, fmt.Errorf("failed to update breakout: %w", err)
	}
	b := breakoutFromParams(params)
	b.ID = breakoutID
	return b, nil
}

func (c *imatClient) Delete(ctx context.Context, user domain.UserContext, registryMeetingID string, breakoutIDs []string) (int, error) {
	form := url.Values{}
	for _, id := range breakoutIDs {
		form.Add("f_del", id)
	}
	endpoint := fmt.Sprintf("%s/%s/breakouts/delete", c.baseURL, registryMeetingID)
	body, err := c.postForm(ctx, user, endpoint, form)
	if err != nil {
		return 0, fmt.Errorf("failed to delete breakouts: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil {
		return 0, fmt.Errorf("unexpected delete response %q", body)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no breakouts deleted", domain.ErrNotFound)
	}
	return n, nil
}

func breakoutForm(p domain.BreakoutParams) url.Values {
	return url.Values{
		"f_name":       {p.Name},
		"f_location":   {p.Location},
		"f_day":        {strconv.Itoa(p.Day)},
		"f_start_slot": {strconv.Itoa(p.StartSlot)},
		"f_end_slot":   {strconv.Itoa(p.EndSlot)},
		"f_credit":     {p.Credit},
	}
}

func breakoutFromParams(p domain.BreakoutParams) *domain.Breakout {
	return &domain.Breakout{
		Name:      p.Name,
		Location:  p.Location,
		Day:       p.Day,
		StartSlot: p.StartSlot,
		EndSlot:   p.EndSlot,
		Credit:    p.Credit,
	}
}

// breakoutFromRow parses one CSV export row:
// id,name,location,day,start_slot,end_slot,credit
func breakoutFromRow(row []string) (*domain.Breakout, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("malformed breakout row: %v", row)
	}
	day, err := strconv.Atoi(row[3])
	if err != nil {
		return nil, fmt.Errorf("malformed breakout day %q: %w", row[3], err)
	}
	startSlot, err := strconv.Atoi(row[4])
	if err != nil {
		return nil, fmt.Errorf("malformed breakout start slot %q: %w", row[4], err)
	}
	endSlot, err := strconv.Atoi(row[5])
	if err != nil {
		return nil, fmt.Errorf("malformed breakout end slot %q: %w", row[5], err)
	}
	return &domain.Breakout{
		ID:        row[0],
		Name:      row[1],
		Location:  row[2],
		Day:       day,
		StartSlot: startSlot,
		EndSlot:   endSlot,
		Credit:    row[6],
	}, nil
}

// fetchCSV fetches a registry CSV export and returns its data rows with the
// header stripped.
func (c *imatClient) fetchCSV(ctx context.Context, user domain.UserContext, endpoint string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: user.RegistryToken})
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}
	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry csv: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func (c *imatClient) postForm(ctx context.Context, user domain.UserContext, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: user.RegistryToken})
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("failed to read registry response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: registry returned 404", domain.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: registry returned %d", domain.ErrAuth, code)
	default:
		return fmt.Errorf("registry returned status %d", code)
	}
}
