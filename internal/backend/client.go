// Package backend is the bot's HTTP client for the turbostart REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
)

// ErrUnavailable wraps transport failures and undecodable responses.
var ErrUnavailable = errors.New("backend unavailable")

// APIError is a structured error returned by the backend.
type APIError struct {
	Status    int
	Kind      domain.Kind
	Message   string
	Required  int64
	Available int64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %d %s: %s", e.Status, e.Kind, e.Message)
}

// KindOf returns the backend error kind of err, or "" for other errors.
func KindOf(err error) domain.Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

type User struct {
	ID                    int64     `json:"id"`
	TelegramID            int64     `json:"telegramId"`
	Username              string    `json:"username"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Credits               int64     `json:"credits"`
	ReferralCode          string    `json:"referralCode"`
	ReferredByUserID      *int64    `json:"referredByUserId"`
	ReferralCreditsEarned int64     `json:"referralCreditsEarned"`
	CreatedAt             time.Time `json:"createdAt"`
}

type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	ShareID   string    `json:"shareId"`
	IsPublic  bool      `json:"isPublic"`
	ViewCount int64     `json:"viewCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type Referral struct {
	ReferredID int64  `json:"referredUserId"`
	Status     string `json:"status"`
	Credited   bool   `json:"credited"`
}

type ReferralInfo struct {
	ReferralCode  string     `json:"referralCode"`
	CreditsEarned int64      `json:"referralCreditsEarned"`
	Bonus         int64      `json:"referralBonus"`
	Threshold     int64      `json:"qualifyingTasks"`
	Referrals     []Referral `json:"referrals"`
}

type UpsertUserRequest struct {
	TelegramID   int64  `json:"telegramId"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: config.BackendTimeout},
	}
}

func (c *Client) UpsertUser(ctx context.Context, req UpsertUserRequest) (*User, bool, error) {
	var resp struct {
		User    *User `json:"user"`
		Created bool  `json:"created"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users", req, &resp); err != nil {
		return nil, false, err
	}
	return resp.User, resp.Created, nil
}

func (c *Client) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+strconv.FormatInt(telegramID, 10), nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) CreateTask(ctx context.Context, telegramID int64, title, content string) (*Task, error) {
	body := map[string]any{"telegramId": telegramID, "title": title, "content": content}
	var resp struct {
		Task *Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

func (c *Client) UserTasks(ctx context.Context, telegramID int64, limit int) ([]Task, error) {
	path := fmt.Sprintf("/api/tasks/user/%d?%s", telegramID, url.Values{"limit": {strconv.Itoa(limit)}}.Encode())
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) Referrals(ctx context.Context, telegramID int64) (*ReferralInfo, error) {
	var resp struct {
		Referrals *ReferralInfo `json:"referrals"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/referrals", telegramID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Referrals, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Required  int64  `json:"required"`
		Available int64  `json:"available"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrUnavailable, status)
		}
		body.Error = string(domain.KindInternal)
		body.Message = http.StatusText(status)
	}
	return &APIError{
		Status:    status,
		Kind:      domain.Kind(body.Error),
		Message:   body.Message,
		Required:  body.Required,
		Available: body.Available,
	}
}
