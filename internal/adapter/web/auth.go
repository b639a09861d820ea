package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-relay/internal/usecase/auth"
)

func (s *Server) handleSignInForm(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if _, err := s.deps.Auth.Lookup(c.Request.Context(), id); err == nil {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
	}
	c.HTML(http.StatusOK, "signin.html", gin.H{"Error": "", "Username": ""})
}

func (s *Server) handleSignIn(c *gin.Context) {
	username := c.PostForm("username")
	sess, err := s.deps.Auth.SignIn(c.Request.Context(), username, c.PostForm("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "signin.html", gin.H{
			"Error":    "Invalid username or password",
			"Username": username,
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
		abortDetail(c, http.StatusInternalServerError, "Internal Server Error: Failed to sign in")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, int(s.deps.Auth.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleSignOut(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if err := s.deps.Auth.SignOut(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			s.log.Error().Err(err).Msg("delete session failed")
		}
	}
	clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/signin")
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
