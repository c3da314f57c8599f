//go:build !darwin

package tracker

import "github.com/allaspectsdev/windowcapd/internal/domain"

// StubEnumerator returns an empty world on non-darwin builds, so the
// daemon and its non-platform-specific stages still link and run during
// development and CI off-macOS.
type StubEnumerator struct{}

// NewStubEnumerator builds the non-darwin fallback Enumerator.
func NewStubEnumerator() *StubEnumerator { return &StubEnumerator{} }

// Enumerate always returns an empty snapshot.
func (e *StubEnumerator) Enumerate() (domain.Snapshot, error) {
	return domain.Snapshot{}, nil
}
