// Package router implements the orchestrator that drives one tick of the
// capture pipeline: it asks the Window Tracker for the full tracked window
// set, routes each window to a backend, captures and classifies it against
// the Change Detector, and extracts and forwards the ones worth ingesting
// concurrently up to a configured admission limit, over the Ingestion
// Core's IPC socket.
package router

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/capture"
	"github.com/allaspectsdev/windowcapd/internal/domain"
	"github.com/allaspectsdev/windowcapd/internal/extract"
	"github.com/allaspectsdev/windowcapd/internal/phash"
	"github.com/allaspectsdev/windowcapd/internal/privacy"
)

// Orchestrator owns the tick loop. It is not safe for concurrent Tick
// calls; callers drive it from a single goroutine (the tick timer) while
// the extraction work it dispatches runs on its own goroutines.
type Orchestrator struct {
	cfg Config

	tracker  Tracker
	captures *capture.Service
	detector *phash.Detector
	filter   *privacy.Filter
	registry *extract.Registry

	accessibility *extract.AccessibilityBackend
	ocr           *extract.OCRBackend
	ingest        *IngestClient

	gate *admissionGate

	mu       sync.Mutex
	inFlight map[domain.WindowID]bool
}

// Tracker is the subset of *tracker.Tracker the orchestrator depends on.
type Tracker interface {
	Tick() domain.Delta
	Windows() []domain.Window
}

// New builds an Orchestrator from its collaborators. cfg's
// MaxConcurrentExtractions sizes the admission gate.
func New(
	cfg Config,
	trk Tracker,
	captures *capture.Service,
	detector *phash.Detector,
	filter *privacy.Filter,
	registry *extract.Registry,
	accessibility *extract.AccessibilityBackend,
	ocr *extract.OCRBackend,
	ingest *IngestClient,
) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		tracker:       trk,
		captures:      captures,
		detector:      detector,
		filter:        filter,
		registry:      registry,
		accessibility: accessibility,
		ocr:           ocr,
		ingest:        ingest,
		gate:          newAdmissionGate(cfg.MaxConcurrentExtractions),
		inFlight:      make(map[domain.WindowID]bool),
	}
}

// Reconfigure applies a new concurrency limit to the admission gate. The
// daemon's config reload callback does not call it.
func (o *Orchestrator) Reconfigure(maxConcurrentExtractions int) {
	o.gate.Reconfigure(maxConcurrentExtractions)
}

// Run drives the tick loop until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs one iteration: enumerate, route, dispatch. It drives capture
// and classification off the tracker's full current window set, not just
// the windows whose title/bounds/state/display changed this tick, since a
// window's on-screen pixels can keep changing (or its forced-refresh
// interval can elapse) long after its tracker-level metadata went static.
// It does not wait for outstanding extractions to finish; they complete
// asynchronously on their own goroutines, gated by the admission semaphore
// and the in-flight set so a window never has two extractions running at
// once.
func (o *Orchestrator) Tick(ctx context.Context) {
	delta := o.tracker.Tick()

	for _, id := range delta.Removed {
		o.captures.Evict(id)
		o.detector.Evict(id)
		o.clearInFlight(id)
	}

	for _, w := range o.tracker.Windows() {
		o.dispatch(ctx, w)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, w domain.Window) {
	decision := o.filter.Check(w)
	if !decision.Allowed {
		return
	}

	kind := o.registry.Route(w)
	if kind == domain.ExtractorChrome {
		// Push-driven: the browser extension delivers content directly to
		// the Ingestion Core, bypassing capture and extraction entirely.
		return
	}

	if !o.tryMarkInFlight(w.ID) {
		return
	}

	go o.extractAndIngest(ctx, w, kind)
}

func (o *Orchestrator) tryMarkInFlight(id domain.WindowID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) clearInFlight(id domain.WindowID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}

func (o *Orchestrator) extractAndIngest(ctx context.Context, w domain.Window, kind domain.ExtractorKind) {
	defer o.clearInFlight(w.ID)

	gctx, cancel := context.WithTimeout(ctx, o.cfg.ExtractionTimeout)
	defer cancel()

	if err := o.gate.Acquire(gctx); err != nil {
		return
	}
	defer o.gate.Release()

	// Capture Service renders pixels and the Change Detector classifies
	// them for every routed window, regardless of which backend ends up
	// doing the extraction: skipping this for the accessibility path would
	// mean re-running an expensive subprocess call on a window whose
	// content never changed.
	img, err := o.captures.CaptureWindow(w.ID, w.Bounds)
	if err != nil || img == nil {
		return
	}

	verdict, hash := o.detector.Classify(w.ID, img)
	if verdict == domain.VerdictUnchanged {
		return
	}

	content, ok := o.extract(gctx, w, kind, img)
	if !ok {
		return
	}
	o.detector.Accept(w.ID, hash)

	payload := domain.CapturePayload{
		Source:    content.Source,
		URL:       content.URL,
		Content:   content.Content,
		Title:     content.Title,
		AppName:   content.AppName,
		BundleID:  content.BundleID,
		Timestamp: content.Timestamp,
	}

	if _, err := o.ingest.Send(payload); err != nil {
		log.Warn().Err(err).Str("bundle_id", w.BundleID).Msg("router: sending capture to ingestion core")
	}
}

// extract runs the backend kind routed w to and returns its content. img is
// the frame already captured and classified by extractAndIngest; the OCR
// backend reuses it instead of capturing a second time. Returns false when
// extraction failed or produced no content.
func (o *Orchestrator) extract(ctx context.Context, w domain.Window, kind domain.ExtractorKind, img image.Image) (domain.ExtractedContent, bool) {
	switch kind {
	case domain.ExtractorAccessibility:
		content, err := o.accessibility.Extract(ctx, w)
		if err != nil {
			return domain.ExtractedContent{}, false
		}
		return content, true

	case domain.ExtractorOCR:
		content, err := o.ocr.Extract(ctx, w, img)
		if err != nil {
			return domain.ExtractedContent{}, false
		}
		return content, true

	default:
		return domain.ExtractedContent{}, false
	}
}
