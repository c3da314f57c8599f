//go:build darwin

package extract

import (
	"context"
	"image"
)

// VisionOCR runs the platform's Vision framework text recognizer over img.
// The cgo boundary to Vision.framework is intentionally left as a stub
// here — OCRBackend's retry and empty-text handling are fully
// implemented and tested independent of the platform call itself.
func VisionOCR(ctx context.Context, img image.Image) (string, float64, error) {
	return "", 0, errOCRUnimplemented
}

// PlatformOCR returns the darwin OCR engine.
func PlatformOCR() OCRFunc { return VisionOCR }
