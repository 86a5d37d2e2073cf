package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/services"
	xhttp "github.com/lexvia/case-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Process(ctx context.Context, event model.InboundEvent) (*services.TriageResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TriageResult), args.Error(1)
}

type MockMuteChecker struct {
	mock.Mock
}

func (m *MockMuteChecker) CheckMute(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func authedContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := setupTestContext(method, path, body)
	ctx.Request.Header.Set("x-bb-secret", "s3cret")
	return ctx
}

func TestWebhookHandler_Inbound(t *testing.T) {
	okResult := &services.TriageResult{Ok: true, Created: true, TicketCode: "RCL-2025-0130-000001"}

	t.Run("processes an incoming message", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e model.InboundEvent) bool {
			return e.Phone == "5491112345678" && e.Text == "hola" && e.MessageID == "wamid.1"
		})).Return(okResult, nil)

		body := []byte(`{"phone":"5491112345678","name":"Juan","message":"hola","messageId":"wamid.1"}`)
		ctx := authedContext("POST", "/webhooks/whatsapp", body)
		handler.Inbound(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response services.TriageResult
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.True(t, response.Created)
		assert.Equal(t, "RCL-2025-0130-000001", response.TicketCode)

		pipeline.AssertExpectations(t)
	})

	t.Run("normalizes provider field aliases", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e model.InboundEvent) bool {
			return e.Phone == "5491112345678" &&
				e.Name == "Juan" &&
				e.Text == "hola" &&
				e.MessageID == "abc-123"
		})).Return(okResult, nil)

		body := []byte(`{"from":"5491112345678","pushName":"Juan","body":"hola","id":"abc-123"}`)
		ctx := authedContext("POST", "/webhooks/whatsapp", body)
		handler.Inbound(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		pipeline.AssertExpectations(t)
	})

	t.Run("carries attachments and metadata through", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e model.InboundEvent) bool {
			return len(e.Attachments) == 1 &&
				e.Attachments[0].URL == "https://cdn.example/f.pdf" &&
				e.Metadata["priority"] == "urgent"
		})).Return(okResult, nil)

		body := []byte(`{
			"phone":"5491112345678","message":"adjunto","messageId":"wamid.2",
			"metadata":{"priority":"urgent"},
			"attachments":[{"url":"https://cdn.example/f.pdf","mimeType":"application/pdf","filename":"f.pdf"}]
		}`)
		ctx := authedContext("POST", "/webhooks/whatsapp", body)
		handler.Inbound(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		pipeline.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewWebhookHandler(new(MockPipeline), nil, "s3cret")

		ctx := authedContext("POST", "/webhooks/whatsapp", []byte("not json"))
		handler.Inbound(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())

		var response map[string]string
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Contains(t, response["error"], "invalid JSON")
	})

	t.Run("invalid event", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		pipeline.On("Process", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidEvent)

		ctx := authedContext("POST", "/webhooks/whatsapp", []byte(`{"message":"sin telefono"}`))
		handler.Inbound(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		pipeline.AssertExpectations(t)
	})

	t.Run("pipeline failure", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		pipeline.On("Process", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		ctx := authedContext("POST", "/webhooks/whatsapp", []byte(`{"phone":"5491112345678","message":"hola","messageId":"x"}`))
		handler.Inbound(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
		pipeline.AssertExpectations(t)
	})
}

func TestWebhookHandler_Auth(t *testing.T) {
	body := []byte(`{"phone":"5491112345678","message":"hola","messageId":"wamid.1"}`)

	t.Run("rejects when the secret is missing", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")

		ctx := setupTestContext("POST", "/webhooks/whatsapp", body)
		handler.Inbound(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		pipeline.AssertNotCalled(t, "Process")
	})

	t.Run("accepts the header secret", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")
		pipeline.On("Process", mock.Anything, mock.Anything).Return(&services.TriageResult{Ok: true}, nil)

		ctx := setupTestContext("POST", "/webhooks/whatsapp", body)
		ctx.Request.Header.Set("x-bb-secret", "s3cret")
		handler.Inbound(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("accepts the body auth field", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "s3cret")
		pipeline.On("Process", mock.Anything, mock.Anything).Return(&services.TriageResult{Ok: true}, nil)

		withAuth := []byte(`{"auth":"s3cret","phone":"5491112345678","message":"hola","messageId":"wamid.1"}`)
		ctx := setupTestContext("POST", "/webhooks/whatsapp", withAuth)
		handler.Inbound(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("rejects everything when no secret is configured", func(t *testing.T) {
		pipeline := new(MockPipeline)
		handler := NewWebhookHandler(pipeline, nil, "")

		ctx := setupTestContext("POST", "/webhooks/whatsapp", body)
		ctx.Request.Header.Set("x-bb-secret", "anything")
		handler.Inbound(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		pipeline.AssertNotCalled(t, "Process")
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		handler := NewWebhookHandler(new(MockPipeline), nil, "s3cret")

		ctx := setupTestContext("POST", "/webhooks/whatsapp", body)
		ctx.Request.Header.Set("x-bb-secret", "wrong")
		handler.Inbound(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
	})
}

func TestWebhookHandler_CheckMute(t *testing.T) {
	t.Run("reports the mute state", func(t *testing.T) {
		mutes := new(MockMuteChecker)
		handler := NewWebhookHandler(nil, mutes, "")

		mutes.On("CheckMute", mock.Anything, "5491112345678").Return(true, nil)

		ctx := setupTestContext("GET", "/webhooks/whatsapp/check-mute?phone=5491112345678", nil)
		handler.CheckMute(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response map[string]bool
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.True(t, response["muted"])

		mutes.AssertExpectations(t)
	})

	t.Run("phone is required", func(t *testing.T) {
		handler := NewWebhookHandler(nil, new(MockMuteChecker), "")

		ctx := setupTestContext("GET", "/webhooks/whatsapp/check-mute", nil)
		handler.CheckMute(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("lookup failure", func(t *testing.T) {
		mutes := new(MockMuteChecker)
		handler := NewWebhookHandler(nil, mutes, "")

		mutes.On("CheckMute", mock.Anything, "5491112345678").Return(false, errors.New("db down"))

		ctx := setupTestContext("GET", "/webhooks/whatsapp/check-mute?phone=5491112345678", nil)
		handler.CheckMute(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
	})
}
