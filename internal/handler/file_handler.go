package handler

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/coursepilot/backend/internal/service"
)

type FileHandler struct {
	materials *service.MaterialService
}

func NewFileHandler(materials *service.MaterialService) *FileHandler {
	return &FileHandler{materials: materials}
}

// Download streams the stored file for a material.
func (h *FileHandler) Download(c *gin.Context) {
	material, rc, err := h.materials.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := material.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(material.FileName))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", material.FileName))
	if material.FileSizeBytes > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", material.FileSizeBytes))
	}
	_, _ = io.Copy(c.Writer, rc)
}
