package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coursepilot/backend/internal/ai"
)

type countingEmbedder struct {
	embedCalls int
	batchCalls int
	batchTexts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.embedCalls++
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts = append([]string{}, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "test-model" }

func TestLruEmbedderCachesRepeats(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "hello", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "hello", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.embedCalls)
}

func TestLruEmbedderTaskTypeIsolation(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "hello", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "hello", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 2, inner.embedCalls, "different task types must not share cache entries")
}

func TestLruEmbedderBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "b", ai.TaskRetrievalDocument)
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"aa", "b", "ccc"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, []float32{2}, results[0])
	require.Equal(t, []float32{1}, results[1])
	require.Equal(t, []float32{3}, results[2])
	require.Equal(t, 1, inner.batchCalls)
	require.Equal(t, []string{"aa", "ccc"}, inner.batchTexts)

	// everything is now warm
	_, err = cached.EmbedBatch(ctx, []string{"aa", "b", "ccc"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 1, inner.batchCalls)
}

func TestWrapLruCacheDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, ai.IEmbedder(inner), WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, ai.IEmbedder(inner), WrapLruCacheToEmbedder(inner, 16, 0))
}
