package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/pkg/errcode"
	"github.com/coursepilot/backend/internal/pkg/response"
	"github.com/coursepilot/backend/internal/repo"
	"github.com/coursepilot/backend/internal/service"
)

type MaterialHandler struct {
	materials *service.MaterialService
}

func NewMaterialHandler(materials *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// Upload takes a multipart form: file plus metadata fields.
func (h *MaterialHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer func() { _ = opened.Close() }()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}

	week, err := queryFormInt(c, "week_number")
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid week_number")
		return
	}
	req := service.UploadRequest{
		FileName:    file.Filename,
		Data:        data,
		ContentType: file.Header.Get("Content-Type"),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Topic:       c.PostForm("topic"),
		WeekNumber:  week,
		Tags:        splitTags(c.PostForm("tags")),
		UploadedBy:  getUserID(c),
	}
	material, message, err := h.materials.Upload(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"material": material, "message": message})
}

func (h *MaterialHandler) List(c *gin.Context) {
	week, err := queryInt(c, "week")
	if err != nil {
		handleError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		handleError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		handleError(c, err)
		return
	}
	filter := repo.MaterialFilter{
		Category: c.Query("category"),
		Week:     week,
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
	}
	if limit != nil {
		filter.Limit = *limit
	}
	if offset != nil {
		filter.Offset = *offset
	}
	materials, err := h.materials.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": materials})
}

func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, material)
}

type materialUpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Topic       *string  `json:"topic"`
	WeekNumber  *int     `json:"week_number"`
	Tags        []string `json:"tags"`
}

func (h *MaterialHandler) Update(c *gin.Context) {
	var req materialUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	material, err := h.materials.Update(c.Request.Context(), c.Param("id"), service.MaterialUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Topic:       req.Topic,
		WeekNumber:  req.WeekNumber,
		Tags:        req.Tags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, material)
}

func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *MaterialHandler) Ingest(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := h.materials.Ingest(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *MaterialHandler) IngestAll(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		handleError(c, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	reports, err := h.materials.IngestAll(c.Request.Context(), n)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"reports": reports})
}

func (h *MaterialHandler) IndexStatus(c *gin.Context) {
	status, err := h.materials.IndexStatus(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
