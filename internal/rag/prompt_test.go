package rag

import (
	"strings"
	"testing"

	"github.com/coursepilot/backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPromptContainsRules(t *testing.T) {
	prompt := BuildSystemPrompt(IntentExplain)
	require.Contains(t, prompt, "UNDERSTAND a concept better")
	require.Contains(t, prompt, "=== CRITICAL RULES (YOU MUST FOLLOW) ===")
	require.Contains(t, prompt, RefusalAnswer)
	require.Contains(t, prompt, "Sources Used")
	require.Contains(t, prompt, "=== END OF RULES ===")
}

func TestBuildSystemPromptUnknownIntentFallsBack(t *testing.T) {
	prompt := BuildSystemPrompt(Intent("nonsense"))
	require.Contains(t, prompt, "AI tutor")
}

func TestBuildAskContext(t *testing.T) {
	page := 12
	context := BuildAskContext([]model.ChunkResult{
		{FileName: "intro.pdf", PageNumber: &page, ChunkText: "first chunk"},
		{FileName: "notes.md", ChunkText: "second chunk"},
	})
	require.Contains(t, context, "[Source 1: intro.pdf, Page 12]\nfirst chunk")
	require.Contains(t, context, "[Source 2: notes.md]\nsecond chunk")
	require.Contains(t, context, "\n\n---\n\n")
}

func TestBuildMaterialsContext(t *testing.T) {
	page := 3
	materials := BuildMaterialsContext([]model.SourceCitation{
		{FileName: "a.pdf", PageNumber: &page, Excerpt: "excerpt a"},
		{FileName: "b.txt", Excerpt: "excerpt b"},
	})
	require.Contains(t, materials, "--- Source 1: a.pdf, Page 3 ---\nexcerpt a")
	require.Contains(t, materials, "--- Source 2: b.txt ---\nexcerpt b")
}

func TestBuildMaterialsContextEmpty(t *testing.T) {
	require.Equal(t, "No relevant course materials found for this query.",
		BuildMaterialsContext(nil))
}

func TestBuildChatPromptLayout(t *testing.T) {
	prompt := BuildChatPrompt("SYSTEM", "CTX", "MATERIALS", "QUESTION")
	require.True(t, strings.HasPrefix(prompt, "SYSTEM\n"))
	require.Contains(t, prompt, "[Conversation Context]\nCTX")
	require.Contains(t, prompt, "[Course Materials]\nMATERIALS")
	require.Contains(t, prompt, "[User's Question]\nQUESTION")
	require.True(t, strings.HasSuffix(prompt, "[Your Response (remember to cite sources)]:"))
}

func TestBuildChatPromptNoHistory(t *testing.T) {
	prompt := BuildChatPrompt("S", "", "M", "Q")
	require.Contains(t, prompt, "This is the start of the conversation.")
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt("", "USER: hi")
	require.Contains(t, prompt, "Previous Summary: None")
	prompt = BuildSummaryPrompt("old summary", "USER: hi")
	require.Contains(t, prompt, "Previous Summary: old summary")
	require.Contains(t, prompt, "Recent Messages:\nUSER: hi")
}

func TestBuildTitlePromptTruncates(t *testing.T) {
	long := strings.Repeat("q", 400)
	prompt := BuildTitlePrompt(long)
	require.Contains(t, prompt, strings.Repeat("q", 150)+"'")
	require.NotContains(t, prompt, strings.Repeat("q", 151))
	require.Contains(t, prompt, "max 5 words")
}
