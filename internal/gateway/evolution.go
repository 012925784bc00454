package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/models"
)

const (
	// pageSize is the number of records requested per history page
	pageSize = 50

	// sendDelayMs asks the gateway to simulate typing before sending
	sendDelayMs = 1200

	// maxErrorBody bounds how much of an error response is kept
	maxErrorBody = 2048
)

// APIError is returned when the gateway answers with a non-2xx status
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("evolution api %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// RemoteGroup is a group as listed by the gateway
type RemoteGroup struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

// Client talks to an Evolution API instance
type Client struct {
	baseURL    string
	instance   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Evolution API client
func NewClient(baseURL, instance, token string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if instance == "" {
		return nil, fmt.Errorf("evolution instance name is required")
	}

	normalized := NormalizeBaseURL(baseURL)
	if _, err := url.ParseRequestURI(normalized); err != nil || normalized == "https://" {
		return nil, fmt.Errorf("invalid evolution api url %q", baseURL)
	}

	return &Client{
		baseURL:    normalized,
		instance:   instance,
		token:      token,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// NormalizeBaseURL drops a trailing slash and defaults the scheme to https
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	return u
}

type findMessagesRequest struct {
	Where findWhere `json:"where"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Sort  string    `json:"sort"`
}

type findWhere struct {
	Key findKey `json:"key"`
}

type findKey struct {
	RemoteJID string `json:"remoteJid"`
}

type findMessagesResponse struct {
	Messages struct {
		Records []models.RawMessage `json:"records"`
	} `json:"messages"`
}

// FetchMessages reads a chat's history newest first, page by page, until an
// empty page or maxPages. Any failure aborts the fetch; partial history is
// never returned.
func (c *Client) FetchMessages(ctx context.Context, jid string, maxPages int) ([]models.RawMessage, error) {
	path := "/chat/findMessages/" + url.PathEscape(c.instance)

	var all []models.RawMessage
	for page := 1; page <= maxPages; page++ {
		req := findMessagesRequest{
			Where: findWhere{Key: findKey{RemoteJID: jid}},
			Page:  page,
			Limit: pageSize,
			Sort:  "desc",
		}

		var resp findMessagesResponse
		if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
			c.logger.Error().
				Err(err).
				Str("jid", jid).
				Int("page", page).
				Msg("Failed to fetch message page")
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		records := resp.Messages.Records
		if len(records) == 0 {
			break
		}
		all = append(all, records...)

		c.logger.Debug().
			Str("jid", jid).
			Int("page", page).
			Int("records", len(records)).
			Msg("Fetched message page")
	}

	c.logger.Info().
		Str("jid", jid).
		Int("message_count", len(all)).
		Msg("Fetched chat history")

	return all, nil
}

type sendTextRequest struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay"`
	LinkPreview bool   `json:"linkPreview"`
}

// SendMessage sends a text message to a chat
func (c *Client) SendMessage(ctx context.Context, jid, text string) error {
	path := "/message/sendText/" + url.PathEscape(c.instance)

	req := sendTextRequest{
		Number:      jid,
		Text:        text,
		Delay:       sendDelayMs,
		LinkPreview: false,
	}

	if err := c.do(ctx, http.MethodPost, path, req, nil); err != nil {
		c.logger.Error().
			Err(err).
			Str("jid", jid).
			Msg("Failed to send message")
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.logger.Info().
		Str("jid", jid).
		Int("length", len(text)).
		Msg("Message sent")

	return nil
}

// FetchAllGroups lists the groups the instance participates in
func (c *Client) FetchAllGroups(ctx context.Context) ([]RemoteGroup, error) {
	path := "/group/fetchAllGroups/" + url.PathEscape(c.instance) + "?getParticipants=false"

	var groups []RemoteGroup
	if err := c.do(ctx, http.MethodGet, path, nil, &groups); err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}

	if groups == nil {
		groups = []RemoteGroup{}
	}
	return groups, nil
}

// do performs one request with its own timeout and decodes the JSON answer into out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
