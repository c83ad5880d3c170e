package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/ai"
	"github.com/coursepilot/backend/internal/config"
	"github.com/coursepilot/backend/internal/extract"
	"github.com/coursepilot/backend/internal/model"
	"github.com/coursepilot/backend/internal/rag"
)

const excerptLimit = 300

// ChunkStore is the vector-store surface the RAG pipeline needs.
type ChunkStore interface {
	Replace(ctx context.Context, materialID string, chunks []model.Chunk) error
	DeleteByMaterial(ctx context.Context, materialID string) error
	Search(ctx context.Context, embedding []float32, threshold float32, limit int, category *string, week *int) ([]model.ChunkResult, error)
}

// IndexFlagStore flips the is_indexed marker on the owning material.
type IndexFlagStore interface {
	UpdateIndexed(ctx context.Context, materialID string, indexed bool, mtime int64) error
}

// RAGService runs the extract-chunk-enrich-embed-persist pipeline and the
// retrieval side on top of it.
type RAGService struct {
	chunks    ChunkStore
	materials IndexFlagStore
	embedder  ai.IEmbedder
	generator ai.IGenerator
	cfg       config.RAGConfig
}

func NewRAGService(chunks ChunkStore, materials IndexFlagStore, embedder ai.IEmbedder, generator ai.IGenerator, cfg config.RAGConfig) *RAGService {
	return &RAGService{chunks: chunks, materials: materials, embedder: embedder, generator: generator, cfg: cfg}
}

// IndexResult is the structured outcome of an indexing run. Failures are
// reported here, never raised, so callers decide how to surface them.
type IndexResult struct {
	Success       bool   `json:"success"`
	ChunksCreated int    `json:"chunks_created"`
	Error         string `json:"error,omitempty"`
	Message       string `json:"message,omitempty"`
}

func indexFailure(format string, args ...interface{}) *IndexResult {
	return &IndexResult{Success: false, ChunksCreated: 0, Error: fmt.Sprintf(format, args...)}
}

// Index replaces the chunk set of a material with a freshly extracted,
// chunked, enriched and embedded one. All validation and embedding happens
// before any existing chunks are touched, so a failed re-index leaves the
// previous index intact.
func (s *RAGService) Index(ctx context.Context, material *model.Material, data []byte) *IndexResult {
	if !extract.Eligible(material.FileType) {
		return indexFailure("file type '%s' is not indexable", material.FileType)
	}
	units := extract.Extract(ctx, data, material.FileType, material.FileName)
	if len(units) == 0 {
		return indexFailure("no text extracted")
	}
	pieces := rag.ChunkUnits(units, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(pieces) == 0 {
		return indexFailure("no chunks created")
	}
	meta := rag.Metadata{
		Title:       material.Title,
		Description: material.Description,
		Topic:       material.Topic,
		Category:    material.Category,
		Tags:        material.Tags,
		WeekNumber:  material.WeekNumber,
	}
	texts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		texts = append(texts, rag.EnrichMetadata(p.Text, meta))
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		return indexFailure("embedding failed: %v", err)
	}
	if len(embeddings) != len(texts) {
		return indexFailure("embedding count mismatch: got %d, want %d", len(embeddings), len(texts))
	}
	now := time.Now().Unix()
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, model.Chunk{
			ID:         newID(),
			MaterialID: material.ID,
			ChunkText:  texts[i],
			ChunkIndex: i,
			Embedding:  embeddings[i],
			FileName:   material.FileName,
			PageNumber: p.PageNumber,
			Category:   material.Category,
			Topic:      material.Topic,
			WeekNumber: material.WeekNumber,
			Ctime:      now,
		})
	}
	if err := s.chunks.Replace(ctx, material.ID, chunks); err != nil {
		return indexFailure("store chunks: %v", err)
	}
	if err := s.materials.UpdateIndexed(ctx, material.ID, true, now); err != nil {
		return indexFailure("mark indexed: %v", err)
	}
	logutil.GetLogger(ctx).Info("indexed material",
		zap.String("material_id", material.ID),
		zap.String("file_name", material.FileName),
		zap.Int("chunks", len(chunks)))
	return &IndexResult{
		Success:       true,
		ChunksCreated: len(chunks),
		Message:       fmt.Sprintf("Indexed %d chunks", len(chunks)),
	}
}

// Deindex drops all chunks of a material and clears its flag. Used when the
// material itself is deleted.
func (s *RAGService) Deindex(ctx context.Context, materialID string) error {
	return s.chunks.DeleteByMaterial(ctx, materialID)
}

// Search embeds the query in retrieval-query mode and returns ranked chunks
// with their metadata headers stripped for display. Zero limit and threshold
// fall back to the configured defaults.
func (s *RAGService) Search(ctx context.Context, query string, limit int, threshold float32, category *string, week *int) ([]model.ChunkResult, error) {
	if limit <= 0 {
		limit = s.cfg.AskLimit
	}
	if threshold <= 0 {
		threshold = s.cfg.SearchThreshold
	}
	embedding, err := s.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.chunks.Search(ctx, embedding, threshold, limit, category, week)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].ChunkText = rag.StripHeader(results[i].ChunkText)
	}
	return results, nil
}

// AskResponse carries the grounded answer and the citations behind it.
type AskResponse struct {
	Answer  string                 `json:"answer"`
	Sources []model.SourceCitation `json:"sources"`
}

// Ask retrieves grounding chunks with a permissive threshold and asks the
// generator to answer from them alone. Zero retrieved chunks short-circuits
// to the refusal answer without a generation call.
func (s *RAGService) Ask(ctx context.Context, question string, limit int, category *string, week *int) (*AskResponse, error) {
	if limit <= 0 {
		limit = s.cfg.AskLimit
	}
	chunks, err := s.Search(ctx, question, limit, s.cfg.AskThreshold, category, week)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &AskResponse{Answer: rag.RefusalAnswer, Sources: []model.SourceCitation{}}, nil
	}
	prompt := rag.BuildAskPrompt(rag.BuildAskContext(chunks), question)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &AskResponse{Answer: answer, Sources: buildCitations(chunks)}, nil
}

func buildCitations(chunks []model.ChunkResult) []model.SourceCitation {
	sources := make([]model.SourceCitation, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, model.SourceCitation{
			FileName:   c.FileName,
			PageNumber: c.PageNumber,
			Excerpt:    excerpt(c.ChunkText),
			Similarity: roundSimilarity(c.Similarity),
			MaterialID: c.MaterialID,
		})
	}
	return sources
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "..."
}

func roundSimilarity(s float32) float32 {
	return float32(math.Round(float64(s)*1000) / 1000)
}
