package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

type ChatHandler struct {
	sessionService *app.SessionService
	chatService    *app.ChatService
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewChatHandler(sessionService *app.SessionService, chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{sessionService: sessionService, chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sessionID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if _, err := h.sessionService.Get(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "resolve session failed")
		}
		return
	}

	result, err := h.chatService.Respond(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		// Only input validation reaches here; backend failures already
		// degraded into a reply.
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("id")

	if _, err := h.sessionService.Get(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "resolve session failed")
		}
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	messages, err := h.chatService.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load history failed")
		return
	}
	response.OK(c, messages)
}
