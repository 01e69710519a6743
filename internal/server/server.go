package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/routine/internal/config"
	"github.com/dukerupert/routine/internal/handler"
	"github.com/dukerupert/routine/internal/middleware"
	"github.com/dukerupert/routine/internal/notify"
	"github.com/dukerupert/routine/internal/push"
	"github.com/dukerupert/routine/internal/session"
	"github.com/dukerupert/routine/internal/store"
	"github.com/dukerupert/routine/internal/trigger"
	ws "github.com/dukerupert/routine/internal/websocket"
)

type Server struct {
	cfg         *config.Config
	hub         *ws.Hub
	session     *session.Session
	loop        *trigger.Loop
	commandH    *handler.CommandHandler
	itemH       *handler.ItemHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	cancel      context.CancelFunc
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger, opts ...session.Option) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	gateway := notify.Multi{
		notify.Log{Logger: logger.With("component", "notify")},
		notify.Broadcast{Hub: hub},
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubject,
	}
	var pushH *handler.PushHandler
	if pushCfg.Enabled() {
		pushSt := store.NewPushStore(db)
		pushSvc := push.NewService(pushCfg)
		gateway = append(gateway, push.NewNotifier(pushSvc, pushSt, logger.With("component", "push")))
		pushH = handler.NewPushHandler(pushSt, pushSvc, logger.With("component", "push_handler"))
	}

	opts = append([]session.Option{
		session.WithVoice(cfg.Voice),
		session.WithStatus(session.StatusFunc(hub.Status)),
	}, opts...)
	sess := session.New(
		store.NewItemStore(store.NewItemRepo(db)),
		gateway,
		logger.With("component", "session"),
		opts...,
	)
	hub.HandleUtterances(func(ctx context.Context, text string) {
		sess.OnUtterance(ctx, text)
	})

	return &Server{
		cfg:     cfg,
		hub:     hub,
		session: sess,
		loop: trigger.New(sess, trigger.Config{
			PollInterval: cfg.PollInterval,
			Tolerance:    cfg.Tolerance,
		}, logger.With("component", "trigger")),
		commandH:    handler.NewCommandHandler(sess, logger.With("component", "command")),
		itemH:       handler.NewItemHandler(sess, logger.With("component", "item")),
		pushH:       pushH,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Session returns the session driven by the HTTP API.
func (s *Server) Session() *session.Session {
	return s.session
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Start restores persisted items and starts the background loops.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.session.Restore(ctx); err != nil {
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.loop.Start(ctx)
	go s.rateLimiter.RunCleanup(ctx, 5*time.Minute)
	return nil
}

// Stop halts the background loops and disarms pending notifications.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.loop.Stop()
	s.session.Close()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	requireToken := middleware.RequireToken(s.cfg.APITokenHash)
	outerMux.Handle("GET /ws", requireToken(ws.HandleWebSocket(s.hub, websocketOrigins(s.cfg.CORSOrigins), s.logger.With("component", "websocket"))))

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", requireToken(apiMux))

	var h http.Handler = outerMux
	h = middleware.CORS(s.cfg.CORSOrigins)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"voice":   s.session.VoiceEnabled(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.PerClient(s.rateLimiter, s.cfg.RateLimit)(h)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/utterances", s.rateLimited(s.commandH.Utterance))

	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.Handle("POST /api/items", s.rateLimited(s.itemH.Create))
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)

	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}
}

// websocketOrigins maps the CORS allow-list onto coder/websocket origin
// patterns, which match hosts rather than full origins.
func websocketOrigins(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}
