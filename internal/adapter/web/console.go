package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"whatsapp-relay/internal/usecase/console"
)

const promptSavedRedirect = "/?message=System%20prompt%20updated%20successfully!"

func (s *Server) handleGetPrompt(c *gin.Context) {
	c.HTML(http.StatusOK, "edit_prompt.html", gin.H{
		"CurrentPrompt": s.deps.Console.SystemPrompt(c.Request.Context()),
		"Message":       c.Query("message"),
		"Operator":      c.GetString(operatorKey),
	})
}

func (s *Server) handlePostPrompt(c *gin.Context) {
	prompt, ok := c.GetPostForm("system_prompt")
	if !ok {
		abortDetail(c, http.StatusBadRequest, "Bad Request: missing system_prompt")
		return
	}

	if err := s.deps.Console.SetSystemPrompt(c.Request.Context(), prompt); err != nil {
		_ = c.Error(err)
		abortDetail(c, http.StatusInternalServerError, "Internal Server Error: Failed to save system prompt")
		return
	}
	c.Redirect(http.StatusFound, promptSavedRedirect)
}

func (s *Server) handleViewLogs(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone_number"))
	query := console.LogQuery{
		PhoneNumber: phone,
		Page:        queryInt(c, "page", console.DefaultPage),
		PerPage:     queryInt(c, "per_page", console.DefaultPerPage),
	}

	logs, err := s.deps.Console.Logs(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		abortDetail(c, http.StatusInternalServerError, "Internal Server Error: Failed to retrieve logs")
		return
	}

	c.HTML(http.StatusOK, "view_logs.html", gin.H{
		"Logs":        logs,
		"PhoneNumber": phone,
		"Operator":    c.GetString(operatorKey),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
