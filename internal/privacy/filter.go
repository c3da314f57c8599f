// Package privacy implements the Privacy Filter: a static blacklist of
// application bundle ids and window-title substring patterns, overridable
// by user configuration, that rejects windows before capture or extraction
// ever runs.
package privacy

import (
	"strings"
	"sync"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Decision is the filter's verdict for one window.
type Decision struct {
	Allowed   bool
	Rationale string
}

// Filter holds the immutable-after-init static blacklist plus a
// copy-on-write set of user overrides.
type Filter struct {
	staticApps  map[string]struct{}
	staticTitle []string

	mu        sync.RWMutex
	allowApps map[string]struct{}
	denyApps  map[string]struct{}
}

// DefaultBlacklistApps is the static bundle-id blacklist: password managers,
// keychain access, and lock-screen surfaces.
var DefaultBlacklistApps = []string{
	"com.apple.keychainaccess",
	"com.apple.SecurityAgent",
	"com.apple.loginwindow",
	"com.1password.1password",
	"com.1password.1password7",
	"com.agilebits.onepassword7",
	"com.lastpass.LastPass",
	"com.bitwarden.desktop",
	"com.dashlane.dashlanephonefinal",
}

// DefaultBlacklistTitlePatterns is the static title substring blacklist,
// matched case-insensitively.
var DefaultBlacklistTitlePatterns = []string{
	"private",
	"incognito",
	"password",
	"1password",
	"bitwarden",
	"keychain access",
}

// New builds a Filter from the given blacklists (typically config-supplied).
// An empty list is replaced by DefaultBlacklistApps or
// DefaultBlacklistTitlePatterns respectively.
func New(blacklistApps, blacklistTitlePatterns []string) *Filter {
	if len(blacklistApps) == 0 {
		blacklistApps = DefaultBlacklistApps
	}
	if len(blacklistTitlePatterns) == 0 {
		blacklistTitlePatterns = DefaultBlacklistTitlePatterns
	}

	apps := make(map[string]struct{}, len(blacklistApps))
	for _, a := range blacklistApps {
		apps[strings.ToLower(a)] = struct{}{}
	}

	return &Filter{
		staticApps:  apps,
		staticTitle: append([]string(nil), blacklistTitlePatterns...),
		allowApps:   make(map[string]struct{}),
		denyApps:    make(map[string]struct{}),
	}
}

// Allow implements the filter's user override, bypassing the static list
// for bundleID (e.g. a password manager the user wants captured anyway).
func (f *Filter) Allow(bundleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(bundleID)
	delete(f.denyApps, key)
	f.allowApps[key] = struct{}{}
}

// Deny adds bundleID to the user's deny overrides, applied after the
// static list so it can blacklist an app the static list doesn't know
// about.
func (f *Filter) Deny(bundleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(bundleID)
	delete(f.allowApps, key)
	f.denyApps[key] = struct{}{}
}

// Check reports whether w may be captured and extracted this tick.
// Denial is terminal: no capture, no extraction, for that window in that
// tick.
func (f *Filter) Check(w domain.Window) Decision {
	key := strings.ToLower(w.BundleID)

	f.mu.RLock()
	_, userAllowed := f.allowApps[key]
	_, userDenied := f.denyApps[key]
	f.mu.RUnlock()

	if userAllowed {
		return Decision{Allowed: true}
	}
	if userDenied {
		return Decision{Allowed: false, Rationale: "user-denied bundle id " + w.BundleID}
	}

	if _, ok := f.staticApps[key]; ok {
		return Decision{Allowed: false, Rationale: "blacklisted bundle id " + w.BundleID}
	}

	lowerTitle := strings.ToLower(w.Title)
	for _, pattern := range f.staticTitle {
		if strings.Contains(lowerTitle, strings.ToLower(pattern)) {
			return Decision{Allowed: false, Rationale: "title matches blacklist pattern " + pattern}
		}
	}

	return Decision{Allowed: true}
}
