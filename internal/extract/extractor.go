// Package extract converts raw file bytes of the supported course material
// formats into logical text units with page provenance.
package extract

import "context"

// Unit is one logical block of extracted text. PageNumber is 1-based and nil
// for formats without page structure.
type Unit struct {
	Text       string
	PageNumber *int
	SourceName string
	UnitType   string
}

const (
	UnitTypePage     = "page"
	UnitTypeSlide    = "slide"
	UnitTypeDocument = "document"
	UnitTypeText     = "text"
)

// Extractor implementations never fail hard: corrupt or unreadable input
// yields an empty unit list, which upstream treats as "nothing to index".
type Extractor interface {
	Supports(fileType string) bool
	Extract(ctx context.Context, data []byte, fileName string) []Unit
}

// indexableTypes is the closed set of file types eligible for indexing.
var indexableTypes = map[string]struct{}{
	"pdf": {}, "pptx": {}, "docx": {}, "doc": {},
	"txt": {}, "md": {},
	"py": {}, "js": {}, "ts": {}, "cpp": {}, "c": {}, "java": {},
	"html": {}, "css": {}, "json": {}, "yaml": {}, "yml": {},
}

func Eligible(fileType string) bool {
	_, ok := indexableTypes[fileType]
	return ok
}

// extractors is evaluated in order; the plain text extractor comes last and
// doubles as the fallback for anything unrecognized.
var extractors = []Extractor{
	&pdfExtractor{},
	&pptxExtractor{},
	&docxExtractor{},
	&markdownExtractor{},
	&textExtractor{},
}

// For selects the extractor for a declared file type, falling back to the
// plain text path for unrecognized types.
func For(fileType string) Extractor {
	for _, e := range extractors {
		if e.Supports(fileType) {
			return e
		}
	}
	return &textExtractor{}
}

// Extract runs the extractor registered for the declared type.
func Extract(ctx context.Context, data []byte, fileType, fileName string) []Unit {
	return For(fileType).Extract(ctx, data, fileName)
}

func pageOf(n int) *int {
	page := n
	return &page
}
