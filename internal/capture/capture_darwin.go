//go:build darwin

package capture

import (
	"image"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// ScreenCaptureSource renders pixels via the platform window/display
// capture APIs. The cgo boundary to ScreenCaptureKit / CGWindowListCreateImage
// is intentionally left as a stub here — Service's uncapturable
// memoization and pixel normalization (normalize.go) are fully implemented
// and tested independent of the platform call itself.
type ScreenCaptureSource struct{}

// NewScreenCaptureSource builds the darwin capture Source.
func NewScreenCaptureSource() *ScreenCaptureSource { return &ScreenCaptureSource{} }

func (s *ScreenCaptureSource) CaptureWindow(id domain.WindowID, bounds domain.Bounds) (image.Image, error) {
	return nil, ErrUncapturable
}

func (s *ScreenCaptureSource) CaptureDisplay(id domain.DisplayID) (image.Image, error) {
	return nil, ErrUncapturable
}

// NewPlatformSource returns the darwin capture source.
func NewPlatformSource() Source { return NewScreenCaptureSource() }
