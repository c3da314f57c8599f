package testutil

import (
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// SampleWindow returns a foreground browser window, stable enough to use
// as a base in tests that only care about a couple of fields.
func SampleWindow() domain.Window {
	now := time.Now()
	return domain.Window{
		ID:          domain.WindowID(1),
		AppName:     "Safari",
		BundleID:    "com.apple.Safari",
		Title:       "Example Domain",
		Bounds:      domain.Bounds{X: 0, Y: 0, Width: 1200, Height: 800},
		DisplayID:   domain.DisplayID(1),
		Layer:       0,
		State:       domain.StateForeground,
		LastSeenAt:  now,
		FirstSeenAt: now,
	}
}

// SampleDelta returns a Delta reporting a single newly added window.
func SampleDelta() domain.Delta {
	return domain.Delta{Added: []domain.Window{SampleWindow()}}
}

// SampleExtractedContent returns a plausible accessibility-backend result
// for SampleWindow.
func SampleExtractedContent() domain.ExtractedContent {
	w := SampleWindow()
	return domain.ExtractedContent{
		Source:           "accessibility",
		Title:            w.Title,
		Content:          "This domain is for use in illustrative examples.",
		AppName:          w.AppName,
		BundleID:         w.BundleID,
		URL:              "https://example.com/",
		Timestamp:        time.Now(),
		ExtractionMethod: domain.ExtractorAccessibility,
		Confidence:       1.0,
	}
}

// SampleCapturePayload returns a CapturePayload as the router would send
// it to the Ingestion Core after a successful extraction.
func SampleCapturePayload() domain.CapturePayload {
	return domain.CapturePayload{
		Source:    "accessibility",
		URL:       "https://example.com/",
		Content:   "This domain is for use in illustrative examples.",
		Title:     "Example Domain",
		Timestamp: time.Now(),
		AppName:   "Safari",
		BundleID:  "com.apple.Safari",
	}
}

// SampleChunks returns a hand-made two-chunk split of SampleCapturePayload's
// content, each TokenCount being that chunk's whitespace-word count as
// internal/chunk.Chunker counts it.
func SampleChunks() []domain.Chunk {
	return []domain.Chunk{
		{Text: "This domain is for use in", ChunkIndex: 0, TotalChunks: 2, TokenCount: 6},
		{Text: "illustrative examples.", ChunkIndex: 1, TotalChunks: 2, TokenCount: 2},
	}
}
