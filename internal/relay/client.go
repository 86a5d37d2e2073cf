package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNotConfigured = errors.New("relay is not configured")
)

// BlacklistIntent mirrors the relay's blacklist verbs. Adding a number to the
// blacklist silences the bot for that conversation; removing it resumes the
// automated flow.
type BlacklistIntent string

const (
	BlacklistAdd    BlacklistIntent = "add"
	BlacklistRemove BlacklistIntent = "remove"
)

type Config struct {
	BaseURL         string
	BotID           string
	APIKey          string
	SendTimeout     time.Duration
	MuteTimeout     time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

type sendPayload struct {
	Messages struct {
		Content  string `json:"content"`
		MediaURL string `json:"mediaUrl,omitempty"`
	} `json:"messages"`
	Number        string `json:"number"`
	CheckIfExists bool   `json:"checkIfExists"`
}

type blacklistPayload struct {
	Number string `json:"number"`
	Intent string `json:"intent"`
}

// Client talks to the WhatsApp relay provider. A zero BotID or APIKey leaves
// the client in dry mode: every call returns ErrNotConfigured and the caller
// decides whether that is fatal.
type Client struct {
	config *Config
	client *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 30 * time.Second
	}
	if config.MuteTimeout <= 0 {
		config.MuteTimeout = 10 * time.Second
	}

	httpClient := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.SendTimeout,
		WriteTimeout:        config.SendTimeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	logger.Info("relay client initialized", "base_url", config.BaseURL, "configured", config.BotID != "" && config.APIKey != "")

	return &Client{
		config: config,
		client: httpClient,
	}, nil
}

// Configured reports whether outbound delivery is enabled.
func (c *Client) Configured() bool {
	return c.config.BotID != "" && c.config.APIKey != ""
}

// Send delivers a text (and optionally one media URL) to a phone number.
func (c *Client) Send(ctx context.Context, number, text, mediaURL string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var payload sendPayload
	payload.Messages.Content = text
	payload.Messages.MediaURL = mediaURL
	payload.Number = number

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/api/v2/%s/messages", c.config.BotID)
	if err := c.doRequest(ctx, path, body, c.config.SendTimeout); err != nil {
		return err
	}

	logger.Info("relay message sent", "number", number, "has_media", mediaURL != "")
	return nil
}

// SetBlacklist adds or removes a number from the relay's blacklist. Used by
// the mute-sync worker to mirror a customer's bot-paused flag.
func (c *Client) SetBlacklist(ctx context.Context, number string, intent BlacklistIntent) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(blacklistPayload{
		Number: number,
		Intent: string(intent),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/api/v2/%s/blacklist", c.config.BotID)
	if err := c.doRequest(ctx, path, body, c.config.MuteTimeout); err != nil {
		return err
	}

	logger.Info("relay blacklist updated", "number", number, "intent", string(intent))
	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, body []byte, timeout time.Duration) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("x-api-builderbot", c.config.APIKey)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	return nil
}
