package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type pdfExtractor struct{}

func (e *pdfExtractor) Supports(fileType string) bool {
	return fileType == "pdf"
}

// Extract yields one unit per page. The pdf library exposes 1-based page
// indices, which is exactly the numbering the rest of the pipeline expects.
// The library resolves objects lazily and panics on malformed object data,
// so the whole walk runs under a recover.
func (e *pdfExtractor) Extract(ctx context.Context, data []byte, fileName string) (units []Unit) {
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Warn("malformed pdf",
				zap.String("file", fileName), zap.Any("reason", r))
			units = nil
		}
	}()
	if len(data) == 0 {
		return nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logutil.GetLogger(ctx).Warn("unreadable pdf", zap.String("file", fileName), zap.Error(err))
		return nil
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logutil.GetLogger(ctx).Warn("pdf page extraction failed",
				zap.String("file", fileName), zap.Int("page", i), zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		units = append(units, Unit{
			Text:       text,
			PageNumber: pageOf(i),
			SourceName: fileName,
			UnitType:   UnitTypePage,
		})
	}
	return units
}
