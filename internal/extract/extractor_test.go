package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEligible(t *testing.T) {
	require.True(t, Eligible("pdf"))
	require.True(t, Eligible("pptx"))
	require.True(t, Eligible("py"))
	require.False(t, Eligible("exe"))
	require.False(t, Eligible("png"))
	require.False(t, Eligible(""))
}

func TestForSelection(t *testing.T) {
	require.IsType(t, &pdfExtractor{}, For("pdf"))
	require.IsType(t, &pptxExtractor{}, For("pptx"))
	require.IsType(t, &docxExtractor{}, For("docx"))
	require.IsType(t, &docxExtractor{}, For("doc"))
	require.IsType(t, &markdownExtractor{}, For("md"))
	require.IsType(t, &textExtractor{}, For("txt"))
	require.IsType(t, &textExtractor{}, For("unknown"))
}

func TestTextExtract(t *testing.T) {
	units := Extract(context.Background(), []byte("hello\nworld\n"), "txt", "notes.txt")
	require.Len(t, units, 1)
	require.Equal(t, "hello\nworld", units[0].Text)
	require.NotNil(t, units[0].PageNumber)
	require.Equal(t, 1, *units[0].PageNumber)
	require.Equal(t, UnitTypeText, units[0].UnitType)
	require.Equal(t, "notes.txt", units[0].SourceName)
}

func TestTextExtractEmpty(t *testing.T) {
	require.Empty(t, Extract(context.Background(), []byte("   \n\t"), "txt", "empty.txt"))
	require.Empty(t, Extract(context.Background(), nil, "txt", "nil.txt"))
}

func TestTextExtractInvalidUTF8(t *testing.T) {
	units := Extract(context.Background(), []byte{'o', 'k', 0xff, 0xfe, '!'}, "txt", "bin.txt")
	require.Len(t, units, 1)
	require.Contains(t, units[0].Text, "ok")
	require.Contains(t, units[0].Text, "!")
}

func TestMarkdownExtract(t *testing.T) {
	source := "# Title\n\nSome paragraph with **bold** text.\n\n```go\nfmt.Println(\"hi\")\n```\n"
	units := Extract(context.Background(), []byte(source), "md", "readme.md")
	require.Len(t, units, 1)
	require.Contains(t, units[0].Text, "Title")
	require.Contains(t, units[0].Text, "Some paragraph with bold text.")
	require.Contains(t, units[0].Text, `fmt.Println("hi")`)
	require.NotContains(t, units[0].Text, "**")
	require.Equal(t, UnitTypeDocument, units[0].UnitType)
}

func TestDocxExtract(t *testing.T) {
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": document})
	units := Extract(context.Background(), data, "docx", "report.docx")
	require.Len(t, units, 1)
	require.Contains(t, units[0].Text, "First paragraph.")
	require.Contains(t, units[0].Text, "Second paragraph.")
	require.Equal(t, UnitTypeDocument, units[0].UnitType)
}

func TestDocxExtractNotZip(t *testing.T) {
	// legacy binary .doc content
	require.Empty(t, Extract(context.Background(), []byte("\xd0\xcf\x11\xe0 not a zip"), "doc", "old.doc"))
}

func TestPptxExtract(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":  slide("Second slide"),
		"ppt/slides/slide1.xml":  slide("First slide"),
		"ppt/slides/slide10.xml": slide("Tenth slide"),
	})
	units := Extract(context.Background(), data, "pptx", "deck.pptx")
	require.Len(t, units, 3)
	require.Equal(t, "First slide", units[0].Text)
	require.Equal(t, 1, *units[0].PageNumber)
	require.Equal(t, "Second slide", units[1].Text)
	require.Equal(t, 2, *units[1].PageNumber)
	require.Equal(t, "Tenth slide", units[2].Text)
	require.Equal(t, 10, *units[2].PageNumber)
	require.Equal(t, UnitTypeSlide, units[0].UnitType)
}

func TestPdfExtractUnreadable(t *testing.T) {
	require.Empty(t, Extract(context.Background(), []byte("not a pdf"), "pdf", "bad.pdf"))
	require.Empty(t, Extract(context.Background(), nil, "pdf", "empty.pdf"))
}

func TestPdfExtractMalformedObjects(t *testing.T) {
	// header and xref parse fine, but resolving the Root object hits garbage;
	// the library surfaces that as a panic, which must degrade to no units
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	objOffset := buf.Len()
	buf.WriteString("1 0 obj\ngarbage\nendobj\n")
	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 2\n")
	buf.WriteString("0000000000 65535 f \n")
	buf.WriteString(fmt.Sprintf("%010d 00000 n \n", objOffset))
	buf.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	buf.WriteString(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset))

	require.Empty(t, Extract(context.Background(), buf.Bytes(), "pdf", "corrupt.pdf"))
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
