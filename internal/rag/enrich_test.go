package rag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnrichMetadataFull(t *testing.T) {
	week := 3
	enriched := EnrichMetadata("body text", Metadata{
		Title:      "Intro to ML",
		Topic:      "supervised learning",
		Category:   "theory",
		Tags:       []string{"ml", "basics"},
		WeekNumber: &week,
	})
	require.Equal(t, `[METADATA]
Title: Intro to ML
Topic: supervised learning
Category: theory
Tags: ml, basics
Week: 3
[CONTENT]
body text`, enriched)
}

func TestEnrichMetadataEmpty(t *testing.T) {
	require.Equal(t, "body text", EnrichMetadata("body text", Metadata{}))
}

func TestEnrichMetadataPartial(t *testing.T) {
	enriched := EnrichMetadata("x", Metadata{Category: "lab"})
	require.Equal(t, "[METADATA]\nCategory: lab\n[CONTENT]\nx", enriched)
}

func TestStripHeaderRoundtrip(t *testing.T) {
	week := 7
	original := "the actual chunk content\nwith lines"
	enriched := EnrichMetadata(original, Metadata{Title: "t", WeekNumber: &week})
	require.NotEqual(t, original, enriched)
	require.Equal(t, original, StripHeader(enriched))
}

func TestStripHeaderPassthrough(t *testing.T) {
	require.Equal(t, "plain text", StripHeader("plain text"))
	// header mentioned mid-text is not a header
	require.Equal(t, "a [METADATA] b", StripHeader("a [METADATA] b"))
}
