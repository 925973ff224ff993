package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fasthttp/router"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// SecretHeader carries the token Telegram echoes back on every webhook call.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Pinger checks the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Intake accepts webhook updates. Enqueue must not block.
type Intake interface {
	Enqueue(update tgbotapi.Update) error
}

type Config struct {
	Address       string
	WebhookPath   string
	WebhookSecret string
	HealthTimeout time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// Server serves health endpoints and, in webhook mode, the update intake.
type Server struct {
	cfg    Config
	store  Pinger
	intake Intake
	log    *zap.Logger
	srv    *fasthttp.Server
}

// New builds the server. A nil store means persistence is not configured;
// a nil intake disables the webhook POST route.
func New(cfg Config, store Pinger, intake Intake, log *zap.Logger) *Server {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook"
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, store: store, intake: intake, log: log.Named("http")}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		Name:         "task-planner",
	}
	return s
}

// Handler returns the routed request handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/", s.health)
	r.GET("/health", s.health)
	r.GET("/healthz/live", s.live)
	r.GET("/keep-alive", s.keepAlive)

	r.GET(s.cfg.WebhookPath, s.webhookInfo)
	if s.intake != nil {
		r.POST(s.cfg.WebhookPath, s.webhook)
	}

	return r.Handler
}

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("server started", zap.String("address", s.cfg.Address))
	return s.srv.ListenAndServe(s.cfg.Address)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
	}
	if s.store == nil {
		payload["status"] = "ok"
		payload["database"] = "not configured"
		respondJSON(ctx, http.StatusOK, payload)
		return
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HealthTimeout)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		payload["status"] = "degraded"
		payload["database"] = "unreachable"
		respondJSON(ctx, http.StatusServiceUnavailable, payload)
		return
	}
	payload["status"] = "ok"
	payload["database"] = "connected"
	respondJSON(ctx, http.StatusOK, payload)
}

func (s *Server) live(ctx *fasthttp.RequestCtx) {
	respondJSON(ctx, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) keepAlive(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("OK")
}

func (s *Server) webhookInfo(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("Task Planner Bot webhook is running")
}

func (s *Server) webhook(ctx *fasthttp.RequestCtx) {
	if s.cfg.WebhookSecret != "" {
		got := ctx.Request.Header.Peek(SecretHeader)
		if subtle.ConstantTimeCompare(got, []byte(s.cfg.WebhookSecret)) != 1 {
			s.log.Warn("webhook secret mismatch", zap.String("remote", ctx.RemoteIP().String()))
			ctx.SetStatusCode(http.StatusUnauthorized)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(ctx.PostBody(), &update); err != nil {
		s.log.Warn("decode webhook update", zap.Error(err))
		ctx.SetStatusCode(http.StatusBadRequest)
		return
	}

	if err := s.intake.Enqueue(update); err != nil {
		s.log.Warn("webhook update rejected", zap.Int("telegram_update_id", update.UpdateID), zap.Error(err))
		// Telegram retries on non-2xx.
		ctx.SetStatusCode(http.StatusServiceUnavailable)
		return
	}
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyString("ok")
}

func respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
