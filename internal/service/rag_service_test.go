package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursepilot/backend/internal/config"
	"github.com/coursepilot/backend/internal/model"
	"github.com/coursepilot/backend/internal/rag"
)

type fakeChunkStore struct {
	replaced      map[string][]model.Chunk
	deleteCalls   []string
	searchResults []model.ChunkResult
	searchErr     error
	lastThreshold float32
	lastLimit     int
	replaceErr    error
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{replaced: map[string][]model.Chunk{}}
}

func (f *fakeChunkStore) Replace(ctx context.Context, materialID string, chunks []model.Chunk) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced[materialID] = chunks
	return nil
}

func (f *fakeChunkStore) DeleteByMaterial(ctx context.Context, materialID string) error {
	f.deleteCalls = append(f.deleteCalls, materialID)
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, embedding []float32, threshold float32, limit int, category *string, week *int) ([]model.ChunkResult, error) {
	f.lastThreshold = threshold
	f.lastLimit = limit
	return f.searchResults, f.searchErr
}

type fakeIndexFlagStore struct {
	indexed map[string]bool
}

func newFakeIndexFlagStore() *fakeIndexFlagStore {
	return &fakeIndexFlagStore{indexed: map[string]bool{}}
}

func (f *fakeIndexFlagStore) UpdateIndexed(ctx context.Context, materialID string, indexed bool, mtime int64) error {
	f.indexed[materialID] = indexed
	return nil
}

type fakeEmbedder struct {
	batchCalls int
	batchErr   error
	lastTexts  []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.batchCalls++
	f.lastTexts = append([]string{}, texts...)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestRAGService(chunks *fakeChunkStore, flags *fakeIndexFlagStore, embedder *fakeEmbedder, gen *fakeGenerator) *RAGService {
	cfg := config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, SearchThreshold: 0.5, AskThreshold: 0.4, AskLimit: 5}
	return NewRAGService(chunks, flags, embedder, gen, cfg)
}

func TestIndexRejectsIneligibleTypeBeforeAnyWrite(t *testing.T) {
	chunks := newFakeChunkStore()
	flags := newFakeIndexFlagStore()
	embedder := &fakeEmbedder{}
	svc := newTestRAGService(chunks, flags, embedder, &fakeGenerator{})

	material := &model.Material{ID: "m1", FileName: "archive.zip", FileType: "zip"}
	result := svc.Index(context.Background(), material, []byte("whatever"))

	require.False(t, result.Success)
	require.Contains(t, result.Error, "not indexable")
	require.Zero(t, result.ChunksCreated)
	require.Empty(t, chunks.replaced)
	require.Empty(t, chunks.deleteCalls)
	require.Zero(t, embedder.batchCalls)
}

func TestIndexEmptyInput(t *testing.T) {
	chunks := newFakeChunkStore()
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, &fakeGenerator{})

	material := &model.Material{ID: "m1", FileName: "empty.txt", FileType: "txt"}
	result := svc.Index(context.Background(), material, nil)

	require.False(t, result.Success)
	require.Equal(t, "no text extracted", result.Error)
	require.Zero(t, result.ChunksCreated)
	require.Empty(t, chunks.replaced)
}

func TestIndexSuccess(t *testing.T) {
	chunks := newFakeChunkStore()
	flags := newFakeIndexFlagStore()
	embedder := &fakeEmbedder{}
	svc := newTestRAGService(chunks, flags, embedder, &fakeGenerator{})

	week := 3
	material := &model.Material{
		ID: "m1", Title: "Sorting", FileName: "sorting.txt", FileType: "txt",
		Category: model.CategoryTheory, WeekNumber: &week,
	}
	text := strings.Repeat("Merge sort splits the input in half. ", 80)
	result := svc.Index(context.Background(), material, []byte(text))

	require.True(t, result.Success)
	require.Greater(t, result.ChunksCreated, 1)
	stored := chunks.replaced["m1"]
	require.Len(t, stored, result.ChunksCreated)
	for i, c := range stored {
		require.Equal(t, i, c.ChunkIndex)
		require.Equal(t, "m1", c.MaterialID)
		require.NotEmpty(t, c.Embedding)
		require.Contains(t, c.ChunkText, "[METADATA]")
		require.Contains(t, c.ChunkText, "Week: 3")
	}
	require.True(t, flags.indexed["m1"])
	require.Equal(t, 1, embedder.batchCalls)
}

func TestIndexEmbeddingFailureLeavesOldChunks(t *testing.T) {
	chunks := newFakeChunkStore()
	flags := newFakeIndexFlagStore()
	embedder := &fakeEmbedder{batchErr: fmt.Errorf("quota exceeded")}
	svc := newTestRAGService(chunks, flags, embedder, &fakeGenerator{})

	material := &model.Material{ID: "m1", FileName: "notes.txt", FileType: "txt"}
	result := svc.Index(context.Background(), material, []byte("some content to index"))

	require.False(t, result.Success)
	require.Contains(t, result.Error, "quota exceeded")
	require.Empty(t, chunks.replaced, "no chunk writes on embedding failure")
	require.Empty(t, flags.indexed)
}

func TestSearchStripsMetadataHeader(t *testing.T) {
	chunks := newFakeChunkStore()
	enriched := rag.EnrichMetadata("plain chunk body", rag.Metadata{Title: "T", Category: "theory"})
	chunks.searchResults = []model.ChunkResult{{ID: "c1", ChunkText: enriched, Similarity: 0.9}}
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, &fakeGenerator{})

	results, err := svc.Search(context.Background(), "query", 5, 0.5, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "plain chunk body", results[0].ChunkText)
}

func TestSearchDefaults(t *testing.T) {
	chunks := newFakeChunkStore()
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, &fakeGenerator{})

	_, err := svc.Search(context.Background(), "query", 0, 0, nil, nil)
	require.NoError(t, err)
	require.Equal(t, float32(0.5), chunks.lastThreshold)
	require.Equal(t, 5, chunks.lastLimit)
}

func TestAskRefusesOnEmptyRetrieval(t *testing.T) {
	chunks := newFakeChunkStore()
	gen := &fakeGenerator{response: "should not be called"}
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, gen)

	resp, err := svc.Ask(context.Background(), "completely unrelated nonsense query", 5, nil, nil)
	require.NoError(t, err)
	require.Equal(t, rag.RefusalAnswer, resp.Answer)
	require.Empty(t, resp.Sources)
	require.Empty(t, gen.prompts, "no generation call on empty retrieval")
}

func TestAskUsesPermissiveThreshold(t *testing.T) {
	chunks := newFakeChunkStore()
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, &fakeGenerator{response: "x"})

	_, err := svc.Ask(context.Background(), "q", 5, nil, nil)
	require.NoError(t, err)
	require.Equal(t, float32(0.4), chunks.lastThreshold)
}

func TestAskBuildsBoundedCitations(t *testing.T) {
	page := 7
	longText := strings.Repeat("a", 400)
	chunks := newFakeChunkStore()
	chunks.searchResults = []model.ChunkResult{{
		ID: "c1", MaterialID: "m1", ChunkText: longText, FileName: "big.pdf",
		PageNumber: &page, Similarity: 0.87654,
	}}
	gen := &fakeGenerator{response: "Grounded answer [Source 1]."}
	svc := newTestRAGService(chunks, newFakeIndexFlagStore(), &fakeEmbedder{}, gen)

	resp, err := svc.Ask(context.Background(), "question", 5, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Grounded answer [Source 1].", resp.Answer)
	require.Len(t, resp.Sources, 1)
	src := resp.Sources[0]
	require.Equal(t, "m1", src.MaterialID)
	require.Equal(t, "big.pdf", src.FileName)
	require.Equal(t, 7, *src.PageNumber)
	require.Len(t, src.Excerpt, 303)
	require.True(t, strings.HasSuffix(src.Excerpt, "..."))
	require.Equal(t, float32(0.877), src.Similarity)

	// the generation prompt carries the numbered source labels
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "[Source 1: big.pdf, Page 7]")
}
