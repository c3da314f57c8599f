package extract

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/capturerr"
	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// OCRFunc is the opaque image -> text function the OCR engine provides.
// Its internals are out of scope; windowcapd only consumes this contract.
type OCRFunc func(ctx context.Context, img image.Image) (text string, confidence float64, err error)

// errOCRUnimplemented is returned by the platform OCR stubs (see
// ocr_darwin.go, ocr_stub.go) until the Vision.framework cgo boundary is
// implemented.
var errOCRUnimplemented = capturerr.New(capturerr.KindNoContent, "extract.ocr", nil)

// OCRBackend runs the last captured image for a window through OCRFunc.
// Images are never persisted — only the resulting text and confidence
// leave this backend.
type OCRBackend struct {
	run       OCRFunc
	retryBase time.Duration
}

// NewOCRBackend builds a backend around run, soft-retrying once on a
// TransientIO classification.
func NewOCRBackend(run OCRFunc) *OCRBackend {
	return &OCRBackend{run: run, retryBase: 200 * time.Millisecond}
}

// Extract runs OCR over img for window w.
func (b *OCRBackend) Extract(ctx context.Context, w domain.Window, img image.Image) (domain.ExtractedContent, error) {
	var text string
	var confidence float64

	err := retryTransientOnce(ctx, b.retryBase, func() error {
		t, c, runErr := b.run(ctx, img)
		if runErr != nil {
			return capturerr.Wrap(capturerr.KindTransientIO, "extract.ocr", "ocr call failed for %s: %w", w.BundleID, runErr)
		}
		text, confidence = t, c
		return nil
	})
	if err != nil {
		return domain.ExtractedContent{}, err
	}

	if strings.TrimSpace(text) == "" {
		return domain.ExtractedContent{}, capturerr.New(capturerr.KindNoContent, "extract.ocr", nil)
	}

	return domain.ExtractedContent{
		Source:           "ocr",
		Title:            w.Title,
		Content:          text,
		AppName:          w.AppName,
		BundleID:         w.BundleID,
		Timestamp:        time.Now(),
		ExtractionMethod: domain.ExtractorOCR,
		Confidence:       confidence,
	}, nil
}
