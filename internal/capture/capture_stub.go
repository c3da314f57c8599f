//go:build !darwin

package capture

import (
	"image"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// StubSource always reports windows and displays uncapturable, for
// non-darwin builds.
type StubSource struct{}

// NewStubSource builds the non-darwin fallback Source.
func NewStubSource() *StubSource { return &StubSource{} }

func (s *StubSource) CaptureWindow(id domain.WindowID, bounds domain.Bounds) (image.Image, error) {
	return nil, ErrUncapturable
}

func (s *StubSource) CaptureDisplay(id domain.DisplayID) (image.Image, error) {
	return nil, ErrUncapturable
}

// NewPlatformSource returns the non-darwin stub source.
func NewPlatformSource() Source { return NewStubSource() }
