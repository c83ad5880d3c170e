package rag

import (
	"fmt"
	"strings"
)

const (
	metadataMarker = "[METADATA]"
	contentMarker  = "[CONTENT]"
)

// Metadata is the document-level provenance prepended to each chunk before
// embedding, so queries matching on titles, topics or tags also surface the
// chunk.
type Metadata struct {
	Title       string
	Description string
	Topic       string
	Category    string
	Tags        []string
	WeekNumber  *int
}

// EnrichMetadata prepends a header listing only the fields that are present.
// With no fields at all the text is returned unchanged, never an empty
// header. The enriched form is both embedded and persisted; StripHeader
// undoes it for display.
func EnrichMetadata(chunkText string, meta Metadata) string {
	var fields []string
	if meta.Title != "" {
		fields = append(fields, "Title: "+meta.Title)
	}
	if meta.Description != "" {
		fields = append(fields, "Description: "+meta.Description)
	}
	if meta.Topic != "" {
		fields = append(fields, "Topic: "+meta.Topic)
	}
	if meta.Category != "" {
		fields = append(fields, "Category: "+meta.Category)
	}
	if len(meta.Tags) > 0 {
		fields = append(fields, "Tags: "+strings.Join(meta.Tags, ", "))
	}
	if meta.WeekNumber != nil {
		fields = append(fields, fmt.Sprintf("Week: %d", *meta.WeekNumber))
	}
	if len(fields) == 0 {
		return chunkText
	}
	return metadataMarker + "\n" + strings.Join(fields, "\n") + "\n" + contentMarker + "\n" + chunkText
}

// StripHeader removes the metadata header if present. The content marker is
// the sole delimiter; text without it passes through untouched.
func StripHeader(chunkText string) string {
	if !strings.HasPrefix(chunkText, metadataMarker) {
		return chunkText
	}
	idx := strings.Index(chunkText, contentMarker)
	if idx < 0 {
		return chunkText
	}
	return strings.TrimPrefix(chunkText[idx+len(contentMarker):], "\n")
}
