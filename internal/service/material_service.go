package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/extract"
	"github.com/coursepilot/backend/internal/filestore"
	"github.com/coursepilot/backend/internal/model"
	appErr "github.com/coursepilot/backend/internal/pkg/errors"
	"github.com/coursepilot/backend/internal/repo"
)

// allowedUploadTypes is wider than the indexable set: archives and legacy
// slide formats can be stored and served even though they are never indexed.
var allowedUploadTypes = map[string]struct{}{
	"pdf": {}, "pptx": {}, "ppt": {}, "docx": {}, "doc": {},
	"py": {}, "js": {}, "ts": {}, "cpp": {}, "c": {}, "java": {}, "html": {}, "css": {},
	"md": {}, "txt": {}, "json": {}, "yaml": {}, "yml": {},
	"zip": {}, "tar": {}, "gz": {},
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

type MaterialService struct {
	materials   *repo.MaterialRepo
	chunks      *repo.ChunkRepo
	store       filestore.Store
	ragSvc      *RAGService
	maxFileSize int64
}

func NewMaterialService(materials *repo.MaterialRepo, chunks *repo.ChunkRepo, store filestore.Store, ragSvc *RAGService, maxFileSizeMB int) *MaterialService {
	return &MaterialService{
		materials:   materials,
		chunks:      chunks,
		store:       store,
		ragSvc:      ragSvc,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
	}
}

type UploadRequest struct {
	FileName    string
	Data        []byte
	ContentType string
	Title       string
	Description string
	Category    string
	Topic       string
	WeekNumber  *int
	Tags        []string
	UploadedBy  string
}

// Upload stores the file, persists its metadata and auto-indexes it when the
// type is indexable. Indexing failure never fails the upload; it is reported
// in the returned message.
func (s *MaterialService) Upload(ctx context.Context, req UploadRequest) (*model.Material, string, error) {
	fileType := fileExtension(req.FileName)
	if _, ok := allowedUploadTypes[fileType]; !ok {
		return nil, "", appErr.ErrTypeNotAllowed
	}
	if int64(len(req.Data)) > s.maxFileSize {
		return nil, "", appErr.ErrFileTooLarge
	}
	if req.Title == "" || (req.Category != model.CategoryTheory && req.Category != model.CategoryLab) {
		return nil, "", appErr.ErrInvalid
	}
	safeName := sanitizeFilename(req.FileName)
	storagePath := storagePath(req.Category, req.WeekNumber, safeName)

	if err := s.store.Save(ctx, storagePath, bytes.NewReader(req.Data), int64(len(req.Data))); err != nil {
		return nil, "", fmt.Errorf("store file: %w", err)
	}
	now := time.Now().Unix()
	material := &model.Material{
		ID:            newID(),
		Title:         req.Title,
		Description:   req.Description,
		FilePath:      storagePath,
		FileName:      safeName,
		FileType:      fileType,
		FileSizeBytes: int64(len(req.Data)),
		Category:      req.Category,
		Topic:         req.Topic,
		WeekNumber:    req.WeekNumber,
		Tags:          normalizeTags(req.Tags),
		ContentType:   req.ContentType,
		IsIndexed:     false,
		UploadedBy:    req.UploadedBy,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		// orphaned file cleanup; the metadata row is the source of truth
		if delErr := s.store.Delete(ctx, storagePath); delErr != nil {
			logutil.GetLogger(ctx).Warn("cleanup after failed upload",
				zap.String("path", storagePath), zap.Error(delErr))
		}
		return nil, "", err
	}

	message := "Material uploaded successfully."
	if extract.Eligible(fileType) {
		result := s.ragSvc.Index(ctx, material, req.Data)
		if result.Success {
			material.IsIndexed = true
			message += fmt.Sprintf(" Indexed %d chunks for AI search.", result.ChunksCreated)
		} else {
			message += " Indexing failed: " + result.Error
		}
	}
	return material, message, nil
}

func (s *MaterialService) Get(ctx context.Context, materialID string) (*model.Material, error) {
	return s.materials.GetByID(ctx, materialID)
}

func (s *MaterialService) List(ctx context.Context, filter repo.MaterialFilter) ([]model.Material, error) {
	return s.materials.List(ctx, filter)
}

type MaterialUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Topic       *string
	WeekNumber  *int
	Tags        []string
}

// Update applies a partial metadata update. The stored chunks keep their old
// enriched headers until the next re-index.
func (s *MaterialService) Update(ctx context.Context, materialID string, update MaterialUpdate) (*model.Material, error) {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		material.Title = *update.Title
	}
	if update.Description != nil {
		material.Description = *update.Description
	}
	if update.Category != nil {
		if *update.Category != model.CategoryTheory && *update.Category != model.CategoryLab {
			return nil, appErr.ErrInvalid
		}
		material.Category = *update.Category
	}
	if update.Topic != nil {
		material.Topic = *update.Topic
	}
	if update.WeekNumber != nil {
		material.WeekNumber = update.WeekNumber
	}
	if update.Tags != nil {
		material.Tags = normalizeTags(update.Tags)
	}
	material.Mtime = time.Now().Unix()
	if err := s.materials.Update(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// Delete removes the stored file, the metadata row and (through the schema)
// all chunks. A missing file in the store is logged, not fatal.
func (s *MaterialService) Delete(ctx context.Context, materialID string) error {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, material.FilePath); err != nil {
		logutil.GetLogger(ctx).Warn("delete stored file failed",
			zap.String("path", material.FilePath), zap.Error(err))
	}
	return s.materials.Delete(ctx, materialID)
}

// Download streams the raw file for serving.
func (s *MaterialService) Download(ctx context.Context, materialID string) (*model.Material, io.ReadCloser, error) {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, material.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return material, rc, nil
}

// Ingest re-reads a stored material and rebuilds its index. An already
// indexed material is left alone unless force is set.
func (s *MaterialService) Ingest(ctx context.Context, materialID string, force bool) (*IndexResult, error) {
	material, err := s.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if material.IsIndexed && !force {
		return &IndexResult{Success: true, Message: "Already indexed"}, nil
	}
	rc, err := s.store.Open(ctx, material.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return s.ragSvc.Index(ctx, material, data), nil
}

type IngestReport struct {
	MaterialID string       `json:"material_id"`
	FileName   string       `json:"file_name"`
	Result     *IndexResult `json:"result"`
}

// IngestAll indexes every unindexed material with an indexable type. One
// failing material does not stop the sweep.
func (s *MaterialService) IngestAll(ctx context.Context, limit int) ([]IngestReport, error) {
	pending, err := s.materials.ListUnindexed(ctx, limit)
	if err != nil {
		return nil, err
	}
	reports := make([]IngestReport, 0, len(pending))
	for _, material := range pending {
		if !extract.Eligible(material.FileType) {
			continue
		}
		result, err := s.Ingest(ctx, material.ID, true)
		if err != nil {
			result = indexFailure("%v", err)
		}
		reports = append(reports, IngestReport{
			MaterialID: material.ID,
			FileName:   material.FileName,
			Result:     result,
		})
	}
	return reports, nil
}

type IndexStatus struct {
	TotalMaterials   int `json:"total_materials"`
	IndexedMaterials int `json:"indexed_materials"`
	TotalChunks      int `json:"total_chunks"`
}

func (s *MaterialService) IndexStatus(ctx context.Context) (*IndexStatus, error) {
	total, err := s.materials.Count(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := s.materials.CountIndexed(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunks.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStatus{TotalMaterials: total, IndexedMaterials: indexed, TotalChunks: chunks}, nil
}

func fileExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

// sanitizeFilename strips path components and replaces anything outside
// [A-Za-z0-9_-.] with underscores.
func sanitizeFilename(fileName string) string {
	if idx := strings.LastIndexAny(fileName, "/\\"); idx >= 0 {
		fileName = fileName[idx+1:]
	}
	safe := unsafeFileChars.ReplaceAllString(fileName, "_")
	if safe == "" || safe == "." || safe == ".." {
		safe = "unnamed"
	}
	return safe
}

func storagePath(category string, week *int, safeName string) string {
	if week != nil {
		return fmt.Sprintf("%s/week-%02d/%s_%s", category, *week, newFileID(), safeName)
	}
	return fmt.Sprintf("%s/general/%s_%s", category, newFileID(), safeName)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}
