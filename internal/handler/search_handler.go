package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/pkg/errcode"
	"github.com/coursepilot/backend/internal/pkg/response"
	"github.com/coursepilot/backend/internal/service"
)

type SearchHandler struct {
	rag *service.RAGService
}

func NewSearchHandler(rag *service.RAGService) *SearchHandler {
	return &SearchHandler{rag: rag}
}

type searchRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Threshold *float32 `json:"threshold"`
	Category  *string  `json:"category"`
	Week      *int     `json:"week"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	var threshold float32
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	results, err := h.rag.Search(c.Request.Context(), req.Query, req.Limit, threshold, req.Category, req.Week)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results, "count": len(results)})
}

type askRequest struct {
	Question string  `json:"question"`
	Limit    int     `json:"limit"`
	Category *string `json:"category"`
	Week     *int    `json:"week"`
}

func (h *SearchHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == "" {
		response.Error(c, errcode.ErrInvalid, "question required")
		return
	}
	resp, err := h.rag.Ask(c.Request.Context(), req.Question, req.Limit, req.Category, req.Week)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}
