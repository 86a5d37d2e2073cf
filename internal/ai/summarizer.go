package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNotConfigured = errors.New("summarizer is not configured")
)

// Summarizer condenses a ticket conversation before the messages are purged.
// Implementations must be safe for concurrent use.
type Summarizer interface {
	Summarize(ctx context.Context, ticket *model.Ticket, messages []*model.Message) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIClient implements Summarizer against an OpenAI-compatible chat
// completions API.
type OpenAIClient struct {
	config *Config
	client *fasthttp.Client
}

func NewOpenAIClient(config *Config) (*OpenAIClient, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}

	return &OpenAIClient{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}, nil
}

func (c *OpenAIClient) Configured() bool {
	return c.config.APIKey != ""
}

func (c *OpenAIClient) Summarize(ctx context.Context, ticket *model.Ticket, messages []*model.Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	transcript := renderTranscript(messages)
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "Sos un asistente de un estudio juridico. Resumi la conversacion del ticket en 2-3 oraciones en espanol, mencionando el reclamo principal y el estado.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Ticket %s (%s):\n%s", ticket.Code, ticket.Title, transcript),
			},
		},
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/v1/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.Body())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// SummarizeOrFallback never fails: when the summarizer is missing or errors,
// it degrades to the first lines of the transcript so the grouped close
// transactions can always proceed.
func SummarizeOrFallback(ctx context.Context, s Summarizer, ticket *model.Ticket, messages []*model.Message) string {
	if s != nil {
		summary, err := s.Summarize(ctx, ticket, messages)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			logger.Warn("summarizer failed, using fallback", "ticket_code", ticket.Code, "error", err)
		}
	}
	return FallbackSummary(messages)
}

// FallbackSummary joins the first customer-visible lines of the conversation.
func FallbackSummary(messages []*model.Message) string {
	parts := make([]string, 0, 3)
	for _, m := range messages {
		if m.Text == "" {
			continue
		}
		parts = append(parts, m.Text)
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "Sin mensajes"
	}
	return strings.Join(parts, " | ")
}

func renderTranscript(messages []*model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.From))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
