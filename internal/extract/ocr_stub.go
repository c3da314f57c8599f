//go:build !darwin

package extract

import (
	"context"
	"image"
)

// StubOCR always reports no text, for non-darwin builds.
func StubOCR(ctx context.Context, img image.Image) (string, float64, error) {
	return "", 0, errOCRUnimplemented
}

// PlatformOCR returns the non-darwin stub OCR engine.
func PlatformOCR() OCRFunc { return StubOCR }
