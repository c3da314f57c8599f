package tracker

import (
	"testing"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

type fakeEnumerator struct {
	snap domain.Snapshot
	err  error
}

func (f *fakeEnumerator) Enumerate() (domain.Snapshot, error) { return f.snap, f.err }

func win(id domain.WindowID, display domain.DisplayID, layer int, title string, w, h int) domain.Window {
	return domain.Window{
		ID: id, DisplayID: display, Layer: layer, Title: title,
		Bounds: domain.Bounds{X: 0, Y: 0, Width: w, Height: h},
	}
}

func TestTickFirstSeenAllAdded(t *testing.T) {
	enum := &fakeEnumerator{snap: domain.Snapshot{Windows: []domain.Window{
		win(1, 1, 1, "A", 200, 200),
	}}}
	tr := New(enum, DefaultConfig())

	delta := tr.Tick()
	if len(delta.Added) != 1 {
		t.Fatalf("expected 1 added window, got %d", len(delta.Added))
	}
	if delta.Added[0].State != domain.StateForeground {
		t.Fatalf("lone window on a display should be foreground, got %s", delta.Added[0].State)
	}
}

func TestTickFiltersSmallWindows(t *testing.T) {
	enum := &fakeEnumerator{snap: domain.Snapshot{Windows: []domain.Window{
		win(1, 1, 1, "tiny", 10, 10),
	}}}
	tr := New(enum, DefaultConfig())

	delta := tr.Tick()
	if len(delta.Added) != 0 {
		t.Fatalf("expected small window to be filtered out, got %d added", len(delta.Added))
	}
}

func TestTickDetectsRemoval(t *testing.T) {
	enum := &fakeEnumerator{}
	tr := New(enum, DefaultConfig())

	enum.snap = domain.Snapshot{Windows: []domain.Window{win(1, 1, 1, "A", 200, 200)}}
	tr.Tick()

	enum.snap = domain.Snapshot{}
	delta := tr.Tick()

	if len(delta.Removed) != 1 || delta.Removed[0] != domain.WindowID(1) {
		t.Fatalf("expected window 1 removed, got %+v", delta.Removed)
	}
}

func TestTickDetectsTitleChange(t *testing.T) {
	enum := &fakeEnumerator{}
	tr := New(enum, DefaultConfig())

	enum.snap = domain.Snapshot{Windows: []domain.Window{win(1, 1, 1, "A", 200, 200)}}
	tr.Tick()

	enum.snap = domain.Snapshot{Windows: []domain.Window{win(1, 1, 1, "B", 200, 200)}}
	delta := tr.Tick()

	if len(delta.Changed) != 1 {
		t.Fatalf("expected 1 changed window, got %d", len(delta.Changed))
	}
}

func TestTickEnumerationErrorYieldsEmptyDelta(t *testing.T) {
	enum := &fakeEnumerator{err: errBoom}
	tr := New(enum, DefaultConfig())

	delta := tr.Tick()
	if len(delta.Added)+len(delta.Removed)+len(delta.Changed) != 0 {
		t.Fatalf("expected empty delta on enumeration error, got %+v", delta)
	}
}

func TestOcclusionClassification(t *testing.T) {
	back := win(1, 1, 1, "back", 200, 200)
	front := win(2, 1, 2, "front", 200, 200) // fully overlapping, higher layer
	enum := &fakeEnumerator{snap: domain.Snapshot{Windows: []domain.Window{back, front}}}
	tr := New(enum, DefaultConfig())

	delta := tr.Tick()
	states := make(map[domain.WindowID]domain.WindowState)
	for _, w := range delta.Added {
		states[w.ID] = w.State
	}

	if states[2] != domain.StateForeground {
		t.Fatalf("expected window 2 foreground, got %s", states[2])
	}
	if states[1] != domain.StateOccluded {
		t.Fatalf("expected fully-covered window 1 occluded, got %s", states[1])
	}
}

func winAt(id domain.WindowID, display domain.DisplayID, layer int, title string, x, y, w, h int) domain.Window {
	return domain.Window{
		ID: id, DisplayID: display, Layer: layer, Title: title,
		Bounds: domain.Bounds{X: x, Y: y, Width: w, Height: h},
	}
}

// TestOcclusionUnionNotDoubleCounted covers two overlapping occluders whose
// areas individually sum past the threshold but whose true union coverage
// does not: occA covers the left half, occB the middle-to-right half, and
// they share a 20-wide overlap, so union coverage is 80/100 (below the
// default 0.9 threshold) even though occA.area + occB.area is 100/100.
func TestOcclusionUnionNotDoubleCounted(t *testing.T) {
	target := winAt(1, 1, 1, "target", 0, 0, 100, 100)
	occA := winAt(2, 1, 2, "occA", 0, 0, 50, 100)
	occB := winAt(3, 1, 2, "occB", 30, 0, 50, 100)
	enum := &fakeEnumerator{snap: domain.Snapshot{Windows: []domain.Window{target, occA, occB}}}
	tr := New(enum, DefaultConfig())

	delta := tr.Tick()
	states := make(map[domain.WindowID]domain.WindowState)
	for _, w := range delta.Added {
		states[w.ID] = w.State
	}

	if states[1] != domain.StateBackground {
		t.Fatalf("expected 80%% union coverage to stay below the occlusion threshold, got %s", states[1])
	}
}

var errBoom = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
