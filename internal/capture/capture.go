// Package capture implements the Capture Service: produces a pixel image
// for a window or display, and memoizes "uncapturable" verdicts so a
// window stuck on another Space doesn't get re-attempted every tick.
package capture

import (
	"image"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Source is the platform collaborator that renders pixels. Implementations
// live in capture_darwin.go (darwin build; its platform calls are a stub
// that reports every window uncapturable) and capture_stub.go (non-darwin
// build).
type Source interface {
	CaptureWindow(id domain.WindowID, bounds domain.Bounds) (image.Image, error)
	CaptureDisplay(id domain.DisplayID) (image.Image, error)
}

// Service wraps a Source with an uncapturable-window memoization policy:
// once a window fails capture, further attempts are short-circuited until
// the memo expires.
type Service struct {
	src         Source
	uncapturable *expirable.LRU[domain.WindowID, struct{}]
}

// New builds a Service. cooldown is how long a window stays memoized as
// uncapturable (default 30s); size bounds the
// memo table so a long-running daemon doesn't grow it unboundedly.
func New(src Source, cooldown time.Duration, size int) *Service {
	return &Service{
		src:          src,
		uncapturable: expirable.NewLRU[domain.WindowID, struct{}](size, nil, cooldown),
	}
}

// CaptureWindow renders id's pixels, short-circuiting if id was marked
// uncapturable within the cooldown window. On success the uncapturable
// mark is cleared.
func (s *Service) CaptureWindow(id domain.WindowID, bounds domain.Bounds) (image.Image, error) {
	if _, marked := s.uncapturable.Get(id); marked {
		return nil, ErrUncapturable
	}

	img, err := s.src.CaptureWindow(id, bounds)
	if err != nil || img == nil {
		s.uncapturable.Add(id, struct{}{})
		if err != nil {
			return nil, err
		}
		return nil, ErrUncapturable
	}

	s.uncapturable.Remove(id)
	return img, nil
}

// CaptureDisplay renders a full-display image, with no uncapturable memo
// (displays don't migrate between Spaces the way windows do).
func (s *Service) CaptureDisplay(id domain.DisplayID) (image.Image, error) {
	return s.src.CaptureDisplay(id)
}

// Evict clears id's uncapturable mark immediately, called when the Window
// Tracker reports the window no longer exists.
func (s *Service) Evict(id domain.WindowID) {
	s.uncapturable.Remove(id)
}

// IsUncapturable reports whether id is currently short-circuited.
func (s *Service) IsUncapturable(id domain.WindowID) bool {
	_, marked := s.uncapturable.Get(id)
	return marked
}

// ErrUncapturable is returned (and memoized) when a window cannot be
// captured — typically because it lives on another Space.
var ErrUncapturable = captureErr("window is not capturable")

type captureErr string

func (e captureErr) Error() string { return string(e) }
