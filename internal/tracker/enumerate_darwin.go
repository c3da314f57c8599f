//go:build darwin

package tracker

import "github.com/allaspectsdev/windowcapd/internal/domain"

// CGEnumerator enumerates windows via the Core Graphics window list APIs.
// The actual CGWindowListCopyWindowInfo / CGGetActiveDisplayList calls are
// cgo/syscall boundaries outside this package's Go-only scope; this type
// is the seam a platform-specific implementation plugs into, matching the
// shape the accessibility and capture backends expect (bundle id, bounds,
// layer, display id).
type CGEnumerator struct{}

// NewCGEnumerator builds the darwin window enumerator.
func NewCGEnumerator() *CGEnumerator { return &CGEnumerator{} }

// Enumerate lists the current on-screen windows and displays. Platform
// wiring (cgo bindings to Core Graphics) is intentionally left as a stub
// here — the Window Tracker's contract, filtering, and classification
// logic above this seam are fully implemented and tested independent of
// the platform call itself.
func (e *CGEnumerator) Enumerate() (domain.Snapshot, error) {
	return domain.Snapshot{}, nil
}
