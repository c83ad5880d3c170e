package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type docxExtractor struct{}

// Supports also claims legacy .doc: the zip open fails for the old binary
// format and the extractor degrades to an empty unit list.
func (e *docxExtractor) Supports(fileType string) bool {
	return fileType == "docx" || fileType == "doc"
}

// Extract concatenates all paragraphs and table cells into a single unit
// with page 1; word documents carry no reliable page structure.
func (e *docxExtractor) Extract(ctx context.Context, data []byte, fileName string) []Unit {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logutil.GetLogger(ctx).Warn("unreadable word document", zap.String("file", fileName), zap.Error(err))
		return nil
	}
	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return nil
	}
	text, err := readDocumentText(document)
	if err != nil {
		logutil.GetLogger(ctx).Warn("docx extraction failed", zap.String("file", fileName), zap.Error(err))
		return nil
	}
	if text == "" {
		return nil
	}
	return []Unit{{
		Text:       text,
		PageNumber: pageOf(1),
		SourceName: fileName,
		UnitType:   UnitTypeDocument,
	}}
}

// readDocumentText walks document.xml collecting w:t runs; paragraph ends
// become newlines so chunking can split on them.
func readDocumentText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
