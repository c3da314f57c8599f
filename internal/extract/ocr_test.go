package extract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/allaspectsdev/windowcapd/internal/capturerr"
	"github.com/allaspectsdev/windowcapd/internal/domain"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	return img
}

func TestOCRBackend_ReturnsText(t *testing.T) {
	b := NewOCRBackend(func(ctx context.Context, img image.Image) (string, float64, error) {
		return "hello world", 0.92, nil
	})

	w := domain.Window{BundleID: "com.apple.Preview", AppName: "Preview", Title: "doc.pdf"}
	content, err := b.Extract(context.Background(), w, testImage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Content != "hello world" {
		t.Errorf("content: got %q, want %q", content.Content, "hello world")
	}
	if content.Confidence != 0.92 {
		t.Errorf("confidence: got %v, want 0.92", content.Confidence)
	}
	if content.ExtractionMethod != domain.ExtractorOCR {
		t.Errorf("extraction method: got %s, want %s", content.ExtractionMethod, domain.ExtractorOCR)
	}
}

func TestOCRBackend_EmptyTextIsNoContent(t *testing.T) {
	b := NewOCRBackend(func(ctx context.Context, img image.Image) (string, float64, error) {
		return "   ", 0, nil
	})

	w := domain.Window{BundleID: "com.apple.Preview"}
	_, err := b.Extract(context.Background(), w, testImage())
	if !capturerr.Is(err, capturerr.KindNoContent) {
		t.Fatalf("expected KindNoContent, got %v", err)
	}
}

func TestOCRBackend_RetriesOnceOnTransientFailure(t *testing.T) {
	calls := 0
	b := NewOCRBackend(func(ctx context.Context, img image.Image) (string, float64, error) {
		calls++
		if calls == 1 {
			return "", 0, errors.New("temporary glitch")
		}
		return "recovered text", 0.5, nil
	})

	w := domain.Window{BundleID: "com.apple.Preview"}
	content, err := b.Extract(context.Background(), w, testImage())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if content.Content != "recovered text" {
		t.Errorf("content: got %q", content.Content)
	}
}

func TestPlatformOCR_ReturnsUnimplementedStub(t *testing.T) {
	run := PlatformOCR()
	_, _, err := run(context.Background(), testImage())
	if !capturerr.Is(err, capturerr.KindNoContent) {
		t.Fatalf("expected the platform OCR stub to report no content, got %v", err)
	}
}
