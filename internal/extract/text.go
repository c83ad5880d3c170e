package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

type textExtractor struct{}

var textTypes = map[string]struct{}{
	"txt": {}, "py": {}, "js": {}, "ts": {}, "cpp": {}, "c": {},
	"java": {}, "html": {}, "css": {}, "json": {}, "yaml": {}, "yml": {},
}

func (e *textExtractor) Supports(fileType string) bool {
	_, ok := textTypes[fileType]
	return ok
}

// Extract returns the whole decoded content as a single unit with page 1.
func (e *textExtractor) Extract(ctx context.Context, data []byte, fileName string) []Unit {
	content := strings.TrimSpace(decodeText(data))
	if content == "" {
		return nil
	}
	return []Unit{{
		Text:       content,
		PageNumber: pageOf(1),
		SourceName: fileName,
		UnitType:   UnitTypeText,
	}}
}

// decodeText decodes bytes as UTF-8, replacing invalid sequences instead of
// failing. It also drops a leading BOM.
func decodeText(data []byte) string {
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return strings.TrimPrefix(s, "\uFEFF")
}
