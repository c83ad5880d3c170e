package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownExtractor struct{}

func (e *markdownExtractor) Supports(fileType string) bool {
	return fileType == "md"
}

// Extract parses the markdown and flattens it to plain text, keeping block
// boundaries as blank lines so the chunker can split on them. Fenced code
// blocks are kept verbatim.
func (e *markdownExtractor) Extract(ctx context.Context, data []byte, fileName string) []Unit {
	source := decodeText(data)
	if strings.TrimSpace(source) == "" {
		return nil
	}
	md := goldmark.New()
	reader := text.NewReader([]byte(source))
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var code strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				code.Write(line.Value(reader.Source()))
			}
			if block := strings.TrimRight(code.String(), "\n"); block != "" {
				blocks = append(blocks, block)
			}
		default:
			if block := blockText(node, reader.Source()); block != "" {
				blocks = append(blocks, block)
			}
		}
	}
	content := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	if content == "" {
		return nil
	}
	return []Unit{{
		Text:       content,
		PageNumber: pageOf(1),
		SourceName: fileName,
		UnitType:   UnitTypeDocument,
	}}
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.CodeSpan:
			// inline code text is carried by child Text nodes
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
