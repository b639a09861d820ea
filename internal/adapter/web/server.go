// Package web serves the inbound webhooks and the operator console.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-relay/internal/usecase/auth"
	"whatsapp-relay/internal/usecase/chat"
	"whatsapp-relay/internal/usecase/console"
)

//go:embed templates/*.html
var templateFS embed.FS

// MessageHandler runs the relay pipeline for one inbound message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in chat.Inbound) (string, error)
}

// SignatureChecker verifies that a form webhook came from the platform.
type SignatureChecker interface {
	Valid(signature string, form url.Values) bool
}

type Deps struct {
	Chat    MessageHandler
	Console *console.Service
	// Auth is nil when the console is open.
	Auth *auth.Service
	// Signatures is nil when webhook signatures are not checked.
	Signatures SignatureChecker

	TelegramEnabled bool
	TelegramSecret  string

	Log zerolog.Logger
}

type Server struct {
	engine *gin.Engine
	deps   Deps
	log    zerolog.Logger
}

func NewServer(deps Deps) *Server {
	s := &Server{
		engine: gin.New(),
		deps:   deps,
		log:    deps.Log.With().Str("component", "http").Logger(),
	}

	s.engine.SetHTMLTemplate(template.Must(
		template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"),
	))
	s.engine.Use(
		requestID(),
		requestLogger(s.log),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			s.log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
			abortDetail(c, http.StatusInternalServerError, "Internal Server Error")
		}),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhook", s.handleWhatsApp)
	if s.deps.TelegramEnabled {
		r.POST("/webhook/telegram", s.handleTelegram)
	}

	if s.deps.Auth != nil {
		r.GET("/signin", s.handleSignInForm)
		r.POST("/signin", s.handleSignIn)
		r.GET("/signout", s.handleSignOut)
	}

	operator := r.Group("/", s.requireSession())
	operator.GET("/", s.handleGetPrompt)
	operator.POST("/", s.handlePostPrompt)
	operator.GET("/view-logs", s.handleViewLogs)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

var templateFuncs = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
}
