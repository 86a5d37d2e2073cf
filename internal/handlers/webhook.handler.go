package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/services"
	xhttp "github.com/lexvia/case-gateway/pkg/http"
	"github.com/lexvia/case-gateway/pkg/logger"
)

type Pipeline interface {
	Process(ctx context.Context, event model.InboundEvent) (*services.TriageResult, error)
}

type MuteChecker interface {
	CheckMute(ctx context.Context, phone string) (bool, error)
}

type WebhookHandler struct {
	pipeline Pipeline
	mutes    MuteChecker
	secret   string
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/webhooks/whatsapp", h.Inbound)
	e.GET("/webhooks/whatsapp/check-mute", h.CheckMute)
}

func NewWebhookHandler(pipeline Pipeline, mutes MuteChecker, secret string) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		mutes:    mutes,
		secret:   secret,
	}
}

// inboundPayload accepts the field spellings of the relay providers we have
// seen. Aliases resolve in declaration order; the first non-empty wins.
type inboundPayload struct {
	Auth string `json:"auth"`

	Phone  string `json:"phone"`
	From   string `json:"from"`
	Number string `json:"number"`

	Name     string `json:"name"`
	PushName string `json:"pushName"`

	Message string `json:"message"`
	Text    string `json:"text"`
	Body    string `json:"body"`

	MessageID  string `json:"messageId"`
	MessageID2 string `json:"message_id"`
	ID         string `json:"id"`

	Event     string         `json:"event"`
	Timestamp *int64         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`

	Attachments []struct {
		URL      string `json:"url"`
		MimeType string `json:"mimeType"`
		Filename string `json:"filename"`
	} `json:"attachments"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p inboundPayload) toEvent(raw []byte) model.InboundEvent {
	event := model.InboundEvent{
		Phone:      firstNonEmpty(p.Phone, p.From, p.Number),
		Name:       firstNonEmpty(p.Name, p.PushName),
		Text:       firstNonEmpty(p.Message, p.Text, p.Body),
		MessageID:  firstNonEmpty(p.MessageID, p.MessageID2, p.ID),
		Event:      p.Event,
		Metadata:   p.Metadata,
		RawPayload: raw,
	}
	if p.Timestamp != nil {
		event.Timestamp = time.Unix(*p.Timestamp, 0)
	}
	for _, a := range p.Attachments {
		event.Attachments = append(event.Attachments, model.InboundAttachment{
			URL:      a.URL,
			MimeType: a.MimeType,
			Filename: a.Filename,
		})
	}
	return event
}

// Inbound is the relay webhook. The shared secret is accepted either as the
// x-bb-secret header or an auth field in the body.
func (h *WebhookHandler) Inbound(ctx *xhttp.RequestCtx) {
	body := ctx.PostBody()

	var payload inboundPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if !h.authorized(ctx, payload.Auth) {
		writeError(ctx, 401, "unauthorized")
		return
	}

	raw := make([]byte, len(body))
	copy(raw, body)

	result, err := h.pipeline.Process(ctx, payload.toEvent(raw))
	if err != nil {
		if errors.Is(err, services.ErrInvalidEvent) {
			writeError(ctx, 400, err.Error())
			return
		}
		logger.Error("webhook pipeline failed", "error", err)
		writeError(ctx, 500, "processing failed")
		return
	}

	writeJSON(ctx, 200, result)
}

func (h *WebhookHandler) authorized(ctx *xhttp.RequestCtx, bodyAuth string) bool {
	// An unconfigured secret rejects everything; the webhook never fails open.
	if h.secret == "" {
		return false
	}
	header := string(ctx.Request.Header.Peek("x-bb-secret"))
	return header == h.secret || bodyAuth == h.secret
}

// CheckMute lets the relay's bot flow ask whether it should stay silent for a
// number before composing a reply.
func (h *WebhookHandler) CheckMute(ctx *xhttp.RequestCtx) {
	phone := query(ctx, "phone")
	if phone == "" {
		writeError(ctx, 400, "phone is required")
		return
	}

	muted, err := h.mutes.CheckMute(ctx, phone)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}

	writeJSON(ctx, 200, map[string]bool{"muted": muted})
}

/* ------------------------------ shared helpers ------------------------------ */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathID(ctx *xhttp.RequestCtx) (int64, error) {
	v, _ := ctx.UserValue("id").(string)
	return strconv.ParseInt(v, 10, 64)
}
