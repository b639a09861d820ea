package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whatsapp-relay/internal/usecase/auth"
)

const (
	requestIDHeader = "X-Request-Id"
	sessionCookie   = "session_id"
	operatorKey     = "operator"
)

// requestID injects an X-Request-Id header when missing.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetString(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg(c.Errors.ByType(gin.ErrorTypePrivate).String())
	}
}

// requireSession redirects to the sign-in page unless the request carries
// a live session cookie. It is a no-op when auth is disabled.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Auth == nil {
			c.Next()
			return
		}

		id, _ := c.Cookie(sessionCookie)
		sess, err := s.deps.Auth.Lookup(c.Request.Context(), id)
		if errors.Is(err, auth.ErrSessionNotFound) {
			if id != "" {
				clearSessionCookie(c)
			}
			c.Redirect(http.StatusSeeOther, "/signin")
			c.Abort()
			return
		}
		if err != nil {
			_ = c.Error(err)
			abortDetail(c, http.StatusInternalServerError, "Internal Server Error: Failed to verify session")
			return
		}

		c.Set(operatorKey, sess.Username)
		c.Next()
	}
}
