// Package tracker implements the Window Tracker: it enumerates on-screen
// windows each tick, classifies their visibility state, and diffs
// successive snapshots into add/update/remove deltas.
package tracker

import (
	"sort"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Enumerator is the platform collaborator that lists raw on-screen windows
// and displays. Implementations live in enumerate_darwin.go (darwin build;
// its Core Graphics calls are a stub that returns an empty snapshot) and
// enumerate_stub.go (non-darwin build, returns an empty world so the
// daemon still links and runs its other stages during development/CI).
type Enumerator interface {
	Enumerate() (domain.Snapshot, error)
}

// Config controls filtering thresholds.
type Config struct {
	MinWidth, MinHeight int
	OcclusionThreshold  float64 // fraction of area covered before "occluded"
}

// DefaultConfig returns the default filtering thresholds.
func DefaultConfig() Config {
	return Config{MinWidth: 50, MinHeight: 50, OcclusionThreshold: 0.9}
}

// Tracker owns the canonical window set across ticks.
type Tracker struct {
	enum Enumerator
	cfg  Config

	prev map[domain.WindowID]domain.Window
}

// New builds a Tracker around the given platform Enumerator.
func New(enum Enumerator, cfg Config) *Tracker {
	return &Tracker{enum: enum, cfg: cfg, prev: make(map[domain.WindowID]domain.Window)}
}

// Tick enumerates the current window set, classifies it, and returns the
// delta against the previous tick. Enumeration failures yield an empty
// delta rather than propagating: the tracker never panics on a transient
// OS error.
func (t *Tracker) Tick() domain.Delta {
	snap, err := t.enum.Enumerate()
	if err != nil {
		return domain.Delta{}
	}

	filtered := t.filterAndClassify(snap)

	curr := make(map[domain.WindowID]domain.Window, len(filtered))
	now := time.Now()
	for _, w := range filtered {
		if prevW, ok := t.prev[w.ID]; ok {
			w.FirstSeenAt = prevW.FirstSeenAt
		} else {
			w.FirstSeenAt = now
		}
		w.LastSeenAt = now
		curr[w.ID] = w
	}

	delta := diff(t.prev, curr)
	t.prev = curr
	return delta
}

// Windows returns every window tracked as of the most recent Tick, not just
// the ones that changed this tick. The router drives capture and change
// detection off this full set, since a window's on-screen content can keep
// changing long after its title/bounds/state/display last moved.
func (t *Tracker) Windows() []domain.Window {
	out := make([]domain.Window, 0, len(t.prev))
	for _, w := range t.prev {
		out = append(out, w)
	}
	return out
}

func diff(prev, curr map[domain.WindowID]domain.Window) domain.Delta {
	var d domain.Delta

	for id, w := range curr {
		prevW, existed := prev[id]
		if !existed {
			d.Added = append(d.Added, w)
			continue
		}
		if windowChanged(prevW, w) {
			d.Changed = append(d.Changed, w)
		}
	}

	for id := range prev {
		if _, stillThere := curr[id]; !stillThere {
			d.Removed = append(d.Removed, id)
		}
	}

	return d
}

func windowChanged(a, b domain.Window) bool {
	return a.Title != b.Title || a.Bounds != b.Bounds || a.State != b.State || a.DisplayID != b.DisplayID
}

// filterAndClassify drops windows below the minimum size and classifies
// each surviving window as foreground, background, or occluded.
func (t *Tracker) filterAndClassify(snap domain.Snapshot) []domain.Window {
	var kept []domain.Window
	for _, w := range snap.Windows {
		if w.Bounds.Width < t.cfg.MinWidth || w.Bounds.Height < t.cfg.MinHeight {
			continue
		}
		kept = append(kept, w)
	}

	byDisplay := make(map[domain.DisplayID][]int)
	for i, w := range kept {
		byDisplay[w.DisplayID] = append(byDisplay[w.DisplayID], i)
	}

	for _, idxs := range byDisplay {
		frontIdx := idxs[0]
		for _, i := range idxs {
			if kept[i].Layer > kept[frontIdx].Layer {
				frontIdx = i
			}
		}

		for _, i := range idxs {
			switch {
			case i == frontIdx:
				kept[i].State = domain.StateForeground
			case isOccluded(kept[i], kept, idxs, t.cfg.OcclusionThreshold):
				kept[i].State = domain.StateOccluded
			default:
				if kept[i].State != domain.StateMinimized {
					kept[i].State = domain.StateBackground
				}
			}
		}
	}

	return kept
}

// isOccluded reports whether w is covered >= threshold fraction of its area
// by the union of higher-layer windows on the same display. Occluders are
// clipped to w's bounds first and merged via coordinate compression so two
// overlapping occluders don't count their shared area twice.
func isOccluded(w domain.Window, all []domain.Window, sameDisplay []int, threshold float64) bool {
	area := w.Bounds.Area()
	if area == 0 {
		return false
	}

	var occluders []domain.Bounds
	for _, i := range sameDisplay {
		other := all[i]
		if other.Layer <= w.Layer {
			continue
		}
		if clipped, ok := clipBounds(w.Bounds, other.Bounds); ok {
			occluders = append(occluders, clipped)
		}
	}
	if len(occluders) == 0 {
		return false
	}

	covered := unionArea(occluders)
	return float64(covered)/float64(area) >= threshold
}

func clipBounds(a, b domain.Bounds) (domain.Bounds, bool) {
	x0 := max(a.X, b.X)
	y0 := max(a.Y, b.Y)
	x1 := min(a.X+a.Width, b.X+b.Width)
	y1 := min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return domain.Bounds{}, false
	}
	return domain.Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// unionArea computes the total area covered by the union of rects via
// coordinate compression: the distinct x and y edges carve the plane into a
// grid of cells, and each cell is counted once if any rect covers it.
func unionArea(rects []domain.Bounds) int {
	xsSet := make(map[int]struct{}, len(rects)*2)
	ysSet := make(map[int]struct{}, len(rects)*2)
	for _, r := range rects {
		xsSet[r.X] = struct{}{}
		xsSet[r.X+r.Width] = struct{}{}
		ysSet[r.Y] = struct{}{}
		ysSet[r.Y+r.Height] = struct{}{}
	}
	xs := sortedInts(xsSet)
	ys := sortedInts(ysSet)

	total := 0
	for i := 0; i+1 < len(xs); i++ {
		cellX, cellW := xs[i], xs[i+1]-xs[i]
		for j := 0; j+1 < len(ys); j++ {
			cellY, cellH := ys[j], ys[j+1]-ys[j]
			for _, r := range rects {
				if r.X <= cellX && cellX < r.X+r.Width && r.Y <= cellY && cellY < r.Y+r.Height {
					total += cellW * cellH
					break
				}
			}
		}
	}
	return total
}

func sortedInts(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
