package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type pptxExtractor struct{}

func (e *pptxExtractor) Supports(fileType string) bool {
	return fileType == "pptx"
}

var slideNameRegex = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Extract yields one unit per slide, concatenating the text of all shapes.
// The slide number doubles as the page number.
func (e *pptxExtractor) Extract(ctx context.Context, data []byte, fileName string) []Unit {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logutil.GetLogger(ctx).Warn("unreadable pptx", zap.String("file", fileName), zap.Error(err))
		return nil
	}
	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, f := range archive.File {
		matches := slideNameRegex.FindStringSubmatch(f.Name)
		if matches == nil {
			continue
		}
		number, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: number, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var units []Unit
	for _, s := range slides {
		text, err := readSlideText(s.file)
		if err != nil {
			logutil.GetLogger(ctx).Warn("pptx slide extraction failed",
				zap.String("file", fileName), zap.Int("slide", s.number), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		units = append(units, Unit{
			Text:       text,
			PageNumber: pageOf(s.number),
			SourceName: fileName,
			UnitType:   UnitTypeSlide,
		})
	}
	return units
}

// readSlideText collects the character data of every a:t run in the slide
// XML, one line per run.
func readSlideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var parts []string
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
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				if text := strings.TrimSpace(string(t)); text != "" {
					parts = append(parts, text)
				}
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}
