package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"confhub-chat-client/internal/config"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/pkg/logger"
	"confhub-chat-client/internal/pkg/token"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
)

const (
	cacheKeyNotifications = "notifications"
	cacheKeyFollowed      = "followed_conferences"
)

// Client talks to the directory REST API (follow, calendar, notifications,
// feedback) with bearer-token auth. Read endpoints are cached with a TTL;
// mutations invalidate the affected keys. No retry policy: a failed call
// surfaces to the caller, who re-triggers manually.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    *token.Store
	cache    *cache.Cache
	validate *validator.Validate
	logger   logger.ILogger
}

func NewClient(cfg config.APIConfig, creds *token.Store, log logger.ILogger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
		creds:    creds,
		cache:    cache.New(time.Duration(cfg.CacheTTLSec)*time.Second, time.Duration(cfg.CachePurgeSec)*time.Second),
		validate: validator.New(),
		logger:   log,
	}
}

func (c *Client) FollowConference(ctx context.Context, conferenceId string) error {
	err := c.do(ctx, http.MethodPost, "/user/follow/"+conferenceId, nil, nil)
	if err == nil {
		c.cache.Delete(cacheKeyFollowed)
		c.cache.Delete(cacheKeyNotifications)
	}
	return err
}

func (c *Client) UnfollowConference(ctx context.Context, conferenceId string) error {
	err := c.do(ctx, http.MethodDelete, "/user/follow/"+conferenceId, nil, nil)
	if err == nil {
		c.cache.Delete(cacheKeyFollowed)
		c.cache.Delete(cacheKeyNotifications)
	}
	return err
}

func (c *Client) FollowedConferences(ctx context.Context) ([]dto.FollowedConferenceResponse, error) {
	if x, found := c.cache.Get(cacheKeyFollowed); found {
		return x.([]dto.FollowedConferenceResponse), nil
	}

	var out []dto.FollowedConferenceResponse
	if err := c.do(ctx, http.MethodGet, "/user/follow", nil, &out); err != nil {
		return nil, err
	}
	c.cache.Set(cacheKeyFollowed, out, cache.DefaultExpiration)
	return out, nil
}

func (c *Client) AddCalendarEntry(ctx context.Context, entry dto.CalendarEntryRequest) error {
	if err := c.validate.Struct(entry); err != nil {
		return err
	}
	err := c.do(ctx, http.MethodPost, "/user/calendar", entry, nil)
	if err == nil {
		c.cache.Delete(cacheKeyNotifications)
	}
	return err
}

func (c *Client) RemoveCalendarEntry(ctx context.Context, conferenceId string) error {
	err := c.do(ctx, http.MethodDelete, "/user/calendar/"+conferenceId, nil, nil)
	if err == nil {
		c.cache.Delete(cacheKeyNotifications)
	}
	return err
}

func (c *Client) Notifications(ctx context.Context) ([]dto.NotificationResponse, error) {
	if x, found := c.cache.Get(cacheKeyNotifications); found {
		return x.([]dto.NotificationResponse), nil
	}

	var out []dto.NotificationResponse
	if err := c.do(ctx, http.MethodGet, "/user/notifications", nil, &out); err != nil {
		return nil, err
	}
	c.cache.Set(cacheKeyNotifications, out, cache.DefaultExpiration)
	return out, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, feedback dto.FeedbackRequest) error {
	if err := c.validate.Struct(feedback); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/feedback", feedback, nil)
}

func (c *Client) Feedback(ctx context.Context) ([]dto.FeedbackResponse, error) {
	var out []dto.FeedbackResponse
	if err := c.do(ctx, http.MethodGet, "/feedback", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	creds, err := c.creds.Load()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFrom(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorFrom prefers the server's message field, falling back to the
// generic status string.
func (c *Client) errorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var apiErr dto.APIErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%s", apiErr.Message)
	}
	return fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
}
