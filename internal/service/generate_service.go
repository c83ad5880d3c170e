package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/ai"
	"github.com/coursepilot/backend/internal/model"
)

const (
	generateSearchLimit     = 5
	generateSearchThreshold = 0.4
	wikiExtractLimit        = 2000
	defaultAudience         = "undergraduate"
)

// Searcher is the retrieval surface for content generation.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, threshold float32, category *string, week *int) ([]model.ChunkResult, error)
}

// WikiLookup fetches a short external summary for a topic. Failures must
// degrade to a placeholder, never fail the generation.
type WikiLookup func(ctx context.Context, topic string) string

// GenerateService produces teaching material for a topic from the indexed
// corpus plus an optional external summary, constrained to a JSON schema.
type GenerateService struct {
	searcher  Searcher
	generator ai.IGenerator
	wiki      WikiLookup
}

func NewGenerateService(searcher Searcher, generator ai.IGenerator) *GenerateService {
	return &GenerateService{
		searcher:  searcher,
		generator: generator,
		wiki:      wikipediaSummary,
	}
}

type LabCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type GenerateResult struct {
	Notes   string  `json:"notes"`
	Slides  string  `json:"slides"`
	LabCode LabCode `json:"lab_code"`
}

const generatePromptTemplate = `You are an academic content generation engine.

TASK:
Generate high-quality academic teaching material for the topic: %s

TARGET AUDIENCE:
%s

RETRIEVED CONTEXT FROM KNOWLEDGE BASE:
%s

OPTIONAL EXTERNAL CONTEXT:
%s

STRICT OUTPUT RULES:
- Output ONLY valid JSON
- No explanations
- No extra text
- No markdown outside JSON
- Follow the schema exactly

REQUIRED JSON SCHEMA:
{
  "notes": "Comprehensive, well-structured markdown lecture notes suitable for university teaching",
  "slides": "Concise slide content in markdown. Use ` + "`---`" + ` to separate slides.",
  "lab_code": {
    "language": "relevant programming language",
    "code": "Executable, commented, educational example code"
  }
}`

func (s *GenerateService) Generate(ctx context.Context, topic, audience string) (*GenerateResult, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if audience == "" {
		audience = defaultAudience
	}
	ragContext := s.buildRAGContext(ctx, topic)
	wikiContext := s.wiki(ctx, topic)
	if runes := []rune(wikiContext); len(runes) > wikiExtractLimit {
		wikiContext = string(runes[:wikiExtractLimit])
	}
	prompt := fmt.Sprintf(generatePromptTemplate, topic, audience, ragContext, wikiContext)
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var result GenerateResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return nil, fmt.Errorf("model returned invalid json: %w", err)
	}
	if result.Notes == "" || result.Slides == "" {
		return nil, fmt.Errorf("model returned incomplete content")
	}
	return &result, nil
}

func (s *GenerateService) buildRAGContext(ctx context.Context, topic string) string {
	chunks, err := s.searcher.Search(ctx, topic, generateSearchLimit, generateSearchThreshold, nil, nil)
	if err != nil {
		logutil.GetLogger(ctx).Warn("generation retrieval failed", zap.Error(err))
		chunks = nil
	}
	if len(chunks) == 0 {
		return "No specific internal documents found."
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.ChunkText)
	}
	return strings.Join(parts, "\n\n")
}

// stripCodeFence undoes the markdown code fencing models often wrap JSON in.
func stripCodeFence(raw string) string {
	out := strings.TrimSpace(raw)
	if strings.HasPrefix(out, "```json") {
		out = out[len("```json"):]
	} else if strings.HasPrefix(out, "```") {
		out = out[len("```"):]
	}
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}

var wikiHTTPClient = &http.Client{Timeout: 10 * time.Second}

// wikipediaSummary resolves the best-matching page for a topic and returns
// its intro extract. Any failure returns a placeholder string.
func wikipediaSummary(ctx context.Context, topic string) string {
	const unavailable = "Wikipedia unavailable."
	searchURL := "https://en.wikipedia.org/w/api.php?action=query&list=search&format=json&srsearch=" + url.QueryEscape(topic)
	var searchResp struct {
		Query struct {
			Search []struct {
				PageID int `json:"pageid"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := wikiGet(ctx, searchURL, &searchResp); err != nil || len(searchResp.Query.Search) == 0 {
		return unavailable
	}
	pageID := searchResp.Query.Search[0].PageID
	contentURL := fmt.Sprintf("https://en.wikipedia.org/w/api.php?action=query&prop=extracts&exintro&explaintext&format=json&pageids=%d", pageID)
	var contentResp struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := wikiGet(ctx, contentURL, &contentResp); err != nil {
		return unavailable
	}
	page, ok := contentResp.Query.Pages[fmt.Sprintf("%d", pageID)]
	if !ok || page.Extract == "" {
		return unavailable
	}
	return page.Extract
}

func wikiGet(ctx context.Context, rawURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := wikiHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
