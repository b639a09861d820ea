package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-relay/internal/adapter/telegram"
	"whatsapp-relay/internal/usecase/auth"
	"whatsapp-relay/internal/usecase/chat"
)

const (
	twilioSignatureHeader  = "X-Twilio-Signature"
	telegramSecretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	webhookFailureDetail   = "Internal Server Error: failed to process message"
	missingSenderDetail    = "Bad Request: missing sender"
	invalidSignatureDetail = "Forbidden: invalid signature"
)

// handleWhatsApp accepts Twilio's form-encoded message webhook. The reply
// goes out through the messaging API, so the response body is empty.
func (s *Server) handleWhatsApp(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		abortDetail(c, http.StatusBadRequest, "Bad Request: invalid form")
		return
	}

	if s.deps.Signatures != nil &&
		!s.deps.Signatures.Valid(c.GetHeader(twilioSignatureHeader), c.Request.PostForm) {
		abortDetail(c, http.StatusForbidden, invalidSignatureDetail)
		return
	}

	sender, err := chat.WhatsAppSender(c.PostForm("From"))
	if err != nil {
		abortDetail(c, http.StatusBadRequest, missingSenderDetail)
		return
	}

	_, err = s.deps.Chat.HandleMessage(pipelineContext(c), chat.Inbound{
		Channel:        chat.ChannelWhatsApp,
		ConversationID: sender,
		ReplyTo:        sender,
		Text:           c.PostForm("Body"),
	})
	if err != nil {
		s.webhookFailed(c, err)
		return
	}
	c.String(http.StatusOK, "")
}

func (s *Server) handleTelegram(c *gin.Context) {
	if s.deps.TelegramSecret != "" &&
		!auth.CompareTokens(c.GetHeader(telegramSecretHeader), s.deps.TelegramSecret) {
		abortDetail(c, http.StatusForbidden, invalidSignatureDetail)
		return
	}

	in, ok, err := telegram.ParseUpdate(c.Request.Body)
	if err != nil {
		abortDetail(c, http.StatusBadRequest, "Bad Request: invalid update")
		return
	}
	if !ok {
		c.String(http.StatusOK, "")
		return
	}

	if _, err := s.deps.Chat.HandleMessage(pipelineContext(c), in); err != nil {
		s.webhookFailed(c, err)
		return
	}
	c.String(http.StatusOK, "")
}

// pipelineContext keeps request values but not cancellation, so a caller
// hanging up does not abort the store write or the reply. Completion and
// dispatch timeouts bound the work.
func pipelineContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) webhookFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, chat.ErrInvalidSender) {
		abortDetail(c, http.StatusBadRequest, missingSenderDetail)
		return
	}
	abortDetail(c, http.StatusInternalServerError, webhookFailureDetail)
}
