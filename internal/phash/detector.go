package phash

import (
	"image"
	"sync"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Detector owns the ChangeRecord table and turns a captured image into a
// change verdict. It is owned by the router task and not shared across
// goroutines beyond the tick loop.
type Detector struct {
	mu               sync.Mutex
	records          map[domain.WindowID]*domain.ChangeRecord
	changeThreshold  int
	maxExtractionAge time.Duration
}

// New builds a Detector. changeThreshold is the maximum Hamming distance
// still considered "unchanged" (default 5); maxExtractionAge is the
// force-refresh ceiling (default 10m).
func New(changeThreshold int, maxExtractionAge time.Duration) *Detector {
	return &Detector{
		records:          make(map[domain.WindowID]*domain.ChangeRecord),
		changeThreshold:  changeThreshold,
		maxExtractionAge: maxExtractionAge,
	}
}

// Classify computes img's hash and returns the verdict for windowID. It
// does not mutate the record; call Accept after a successful extraction
// to commit the new hash.
func (d *Detector) Classify(windowID domain.WindowID, img image.Image) (domain.ChangeVerdict, uint64) {
	hash := Hash(img)

	d.mu.Lock()
	rec, ok := d.records[windowID]
	d.mu.Unlock()

	if !ok {
		return domain.VerdictNew, hash
	}

	distance := HammingDistance(rec.LastHash, hash)
	age := time.Since(rec.LastExtractedAt)

	switch {
	case distance <= d.changeThreshold && age < d.maxExtractionAge:
		return domain.VerdictUnchanged, hash
	case distance <= d.changeThreshold && age >= d.maxExtractionAge:
		return domain.VerdictForcedRefresh, hash
	default:
		return domain.VerdictChanged, hash
	}
}

// Accept commits hash as windowID's new ChangeRecord after a successful
// extraction. A failed extraction must never call this: the hash is
// intentionally left stale so the window is retried next tick.
func (d *Detector) Accept(windowID domain.WindowID, hash uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.records[windowID]
	if !ok {
		rec = &domain.ChangeRecord{WindowID: windowID}
		d.records[windowID] = rec
	}
	rec.LastHash = hash
	rec.LastExtractedAt = time.Now()
	rec.ConsecutiveStable = 0
}

// Evict removes windowID's record, called when the Window Tracker reports
// the window no longer exists.
func (d *Detector) Evict(windowID domain.WindowID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, windowID)
}

// Record returns a copy of windowID's current ChangeRecord, if any.
func (d *Detector) Record(windowID domain.WindowID) (domain.ChangeRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[windowID]
	if !ok {
		return domain.ChangeRecord{}, false
	}
	return *rec, true
}

// Len reports how many windows currently have a ChangeRecord.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
