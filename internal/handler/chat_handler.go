package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/pkg/errcode"
	"github.com/coursepilot/backend/internal/pkg/response"
	"github.com/coursepilot/backend/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	conv, err := h.chat.CreateConversation(c.Request.Context(), getUserID(c), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		handleError(c, err)
		return
	}
	var n uint
	if limit != nil && *limit > 0 {
		n = uint(*limit)
	}
	convs, err := h.chat.ListConversations(c.Request.Context(), getUserID(c), n)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": convs})
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	conv, err := h.chat.GetConversation(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conv)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	msgs, err := h.chat.GetMessages(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": msgs})
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	if err := h.chat.DeleteConversation(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatSendRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Send runs a turn, creating a fresh conversation first when the request
// names none.
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		response.Error(c, errcode.ErrInvalid, "message required")
		return
	}
	userID := getUserID(c)
	convID := req.ConversationID
	if convID == "" {
		conv, err := h.chat.CreateConversation(c.Request.Context(), userID, "")
		if err != nil {
			handleError(c, err)
			return
		}
		convID = conv.ID
	}
	result, err := h.chat.Chat(c.Request.Context(), userID, convID, req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Chat runs one conversational turn against an owned conversation.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		response.Error(c, errcode.ErrInvalid, "message required")
		return
	}
	result, err := h.chat.Chat(c.Request.Context(), getUserID(c), c.Param("id"), req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
