package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubIntake struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	err     error
}

func (i *stubIntake) Enqueue(u tgbotapi.Update) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.updates = append(i.updates, u)
	return nil
}

func do(h fasthttp.RequestHandler, method, path string, body string, headers map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	h(ctx)
	return ctx
}

func TestHealth(t *testing.T) {
	h := New(Config{}, nil, nil, nil).Handler()
	ctx := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "not configured")

	h = New(Config{}, stubPinger{}, nil, nil).Handler()
	ctx = do(h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "connected")

	h = New(Config{}, stubPinger{err: errors.New("down")}, nil, nil).Handler()
	ctx = do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"database":"unreachable"`)
	assert.Contains(t, string(ctx.Response.Body()), `"status":"degraded"`)

	// Liveness does not depend on the store.
	ctx = do(h, http.MethodGet, "/healthz/live", "", nil)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	ctx = do(h, http.MethodGet, "/keep-alive", "", nil)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "OK", string(ctx.Response.Body()))
}

func TestWebhook(t *testing.T) {
	intake := &stubIntake{}
	h := New(Config{WebhookPath: "/hook", WebhookSecret: "s3cret"}, nil, intake, nil).Handler()
	body := `{"update_id": 7, "message": {"message_id": 1, "text": "/start", "chat": {"id": 5, "type": "private"}}}`

	ctx := do(h, http.MethodGet, "/hook", "", nil)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = do(h, http.MethodPost, "/hook", body, map[string]string{SecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = do(h, http.MethodPost, "/hook", "{not json", map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	ctx = do(h, http.MethodPost, "/hook", body, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	require.Len(t, intake.updates, 1)
	assert.Equal(t, 7, intake.updates[0].UpdateID)
	require.NotNil(t, intake.updates[0].Message)
	assert.Equal(t, "/start", intake.updates[0].Message.Text)

	intake.err = errors.New("update queue is full")
	ctx = do(h, http.MethodPost, "/hook", body, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusServiceUnavailable, ctx.Response.StatusCode())
}

func TestWebhookDisabledInPollingMode(t *testing.T) {
	h := New(Config{}, nil, nil, nil).Handler()
	ctx := do(h, http.MethodPost, "/webhook", `{"update_id": 1}`, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, ctx.Response.StatusCode())
}
