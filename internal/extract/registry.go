// Package extract implements the Extractor Registry and its three backends:
// accessibility subprocess, browser-extension push channel, and OCR
// fallback, plus the bundle-id-to-backend selection algorithm.
package extract

import (
	"strings"
	"sync"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Registry maps bundle ids to extractor kinds and tracks browser-push
// liveness so the router can demote a silent browser to OCR.
type Registry struct {
	mu sync.RWMutex

	browsers      map[string]struct{}
	accessibility map[string]struct{}

	browserSilence time.Duration
	lastPush       map[string]time.Time
}

// NewRegistry builds a Registry from the seeded bundle-id tables (see
// registry_defaults.go) and the configured browser-silence demotion
// window.
func NewRegistry(browsers, accessibilityApps []string, browserSilence time.Duration) *Registry {
	r := &Registry{
		browsers:       toSet(browsers),
		accessibility:  toSet(accessibilityApps),
		browserSilence: browserSilence,
		lastPush:       make(map[string]time.Time),
	}
	return r
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[strings.ToLower(v)] = struct{}{}
	}
	return m
}

// NotePush records that the browser-extension push channel delivered
// content for bundleID just now, keeping it eligible for the Chrome path.
func (r *Registry) NotePush(bundleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastPush[strings.ToLower(bundleID)] = time.Now()
}

// isPushAlive reports whether bundleID has pushed within the silence
// window. A browser that has never pushed is always considered alive, so
// it is not demoted before its first page load completes; demotion only
// happens once a browser has pushed and then gone silent.
func (r *Registry) isPushAlive(bundleID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	last, ok := r.lastPush[strings.ToLower(bundleID)]
	if !ok {
		return true
	}
	return time.Since(last) < r.browserSilence
}

// Route selects the extractor backend for w, in priority order: browser
// push (while alive) > accessibility > OCR.
func (r *Registry) Route(w domain.Window) domain.ExtractorKind {
	key := strings.ToLower(w.BundleID)

	r.mu.RLock()
	_, isBrowser := r.browsers[key]
	_, isAccessible := r.accessibility[key]
	r.mu.RUnlock()

	if isBrowser && r.isPushAlive(w.BundleID) {
		return domain.ExtractorChrome
	}
	if isAccessible {
		return domain.ExtractorAccessibility
	}
	return domain.ExtractorOCR
}
