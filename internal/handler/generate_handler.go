package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/pkg/errcode"
	"github.com/coursepilot/backend/internal/pkg/response"
	"github.com/coursepilot/backend/internal/service"
)

type GenerateHandler struct {
	generate *service.GenerateService
}

func NewGenerateHandler(generate *service.GenerateService) *GenerateHandler {
	return &GenerateHandler{generate: generate}
}

type generateRequest struct {
	Topic    string `json:"topic"`
	Audience string `json:"audience"`
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		response.Error(c, errcode.ErrInvalid, "topic required")
		return
	}
	result, err := h.generate.Generate(c.Request.Context(), req.Topic, req.Audience)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
