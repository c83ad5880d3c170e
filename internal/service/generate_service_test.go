package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursepilot/backend/internal/model"
)

type fakeSearcher struct {
	results []model.ChunkResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int, threshold float32, category *string, week *int) ([]model.ChunkResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func staticWiki(extract string) WikiLookup {
	return func(ctx context.Context, topic string) string { return extract }
}

func newGenerateFixture(gen *fakeGenerator) (*GenerateService, *fakeSearcher) {
	searcher := &fakeSearcher{}
	svc := NewGenerateService(searcher, gen)
	svc.wiki = staticWiki("Hash tables map keys to values.")
	return svc, searcher
}

func TestGenerateParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + `{
  "notes": "# Hash Tables\nNotes body.",
  "slides": "Slide 1\n---\nSlide 2",
  "lab_code": {"language": "python", "code": "print('hi')"}
}` + "\n```"}
	svc, searcher := newGenerateFixture(gen)
	searcher.results = []model.ChunkResult{{ChunkText: "internal chunk about hashing"}}

	result, err := svc.Generate(context.Background(), "hash tables", "")
	require.NoError(t, err)
	require.Equal(t, "# Hash Tables\nNotes body.", result.Notes)
	require.Equal(t, "Slide 1\n---\nSlide 2", result.Slides)
	require.Equal(t, "python", result.LabCode.Language)
	require.Equal(t, "print('hi')", result.LabCode.Code)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	require.Contains(t, prompt, "topic: hash tables")
	require.Contains(t, prompt, "undergraduate")
	require.Contains(t, prompt, "internal chunk about hashing")
	require.Contains(t, prompt, "Hash tables map keys to values.")
}

func TestGenerateRequiresTopic(t *testing.T) {
	svc, _ := newGenerateFixture(&fakeGenerator{response: "{}"})
	_, err := svc.Generate(context.Background(), "   ", "")
	require.Error(t, err)
}

func TestGenerateInvalidJSON(t *testing.T) {
	svc, _ := newGenerateFixture(&fakeGenerator{response: "Sure! Here are your notes:"})
	_, err := svc.Generate(context.Background(), "graphs", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid json")
}

func TestGenerateIncompleteContent(t *testing.T) {
	svc, _ := newGenerateFixture(&fakeGenerator{response: `{"notes": "only notes", "slides": ""}`})
	_, err := svc.Generate(context.Background(), "graphs", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "incomplete")
}

func TestGenerateRetrievalFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: `{"notes": "n", "slides": "s", "lab_code": {"language": "python", "code": "pass"}}`}
	svc, searcher := newGenerateFixture(gen)
	searcher.err = fmt.Errorf("db down")

	_, err := svc.Generate(context.Background(), "trees", "graduate")
	require.NoError(t, err, "retrieval failure must not fail generation")
	require.Contains(t, gen.prompts[0], "No specific internal documents found.")
	require.Contains(t, gen.prompts[0], "graduate")
}

func TestGenerateTruncatesWikiExtract(t *testing.T) {
	gen := &fakeGenerator{response: `{"notes": "n", "slides": "s", "lab_code": {"language": "", "code": ""}}`}
	svc, _ := newGenerateFixture(gen)
	svc.wiki = staticWiki(strings.Repeat("w", 5000))

	_, err := svc.Generate(context.Background(), "sorting", "")
	require.NoError(t, err)
	require.Contains(t, gen.prompts[0], strings.Repeat("w", wikiExtractLimit))
	require.NotContains(t, gen.prompts[0], strings.Repeat("w", wikiExtractLimit+1))
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  \n```json\n{}\n```  ", "{}"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, stripCodeFence(c.in))
	}
}
