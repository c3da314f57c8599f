package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/capturerr"
	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// AccessibilityBackend invokes an out-of-process helper binary with
// `--app <bundle_id>`, parsing its JSON stdout as `{content, ...}`. Each
// invocation is a short-lived child with no state to recover: kill on
// timeout, nothing else to clean up.
type AccessibilityBackend struct {
	binaryPath string
	timeout    time.Duration
	breakers   *CircuitBreakerRegistry
}

// NewAccessibilityBackend builds a backend invoking binaryPath, enforcing
// timeout per call, and guarding repeatedly-failing apps with breakers.
func NewAccessibilityBackend(binaryPath string, timeout time.Duration, breakers *CircuitBreakerRegistry) *AccessibilityBackend {
	return &AccessibilityBackend{binaryPath: binaryPath, timeout: timeout, breakers: breakers}
}

type accessibilityOutput struct {
	Content string `json:"content"`
}

// Extract runs the accessibility helper for w.BundleID and parses its
// output. Returns a *capturerr.Error classified by failure mode.
func (b *AccessibilityBackend) Extract(ctx context.Context, w domain.Window) (domain.ExtractedContent, error) {
	breaker := b.breakers.Get(w.BundleID)
	if !breaker.Allow() {
		return domain.ExtractedContent{}, capturerr.Wrap(capturerr.KindPermissionDenied, "extract.accessibility",
			"circuit open for %s, suppressing repeated failures", w.BundleID)
	}

	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, b.binaryPath, "--app", w.BundleID)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		breaker.RecordFailure()
		return domain.ExtractedContent{}, capturerr.Wrap(capturerr.KindTimeout, "extract.accessibility",
			"helper timed out after %s for %s", b.timeout, w.BundleID)
	}
	if runErr != nil {
		breaker.RecordFailure()
		msg := strings.TrimSpace(stderr.String())
		return domain.ExtractedContent{}, capturerr.Wrap(capturerr.KindTransientIO, "extract.accessibility",
			"helper exited with error for %s: %s: %w", w.BundleID, msg, runErr)
	}

	var out accessibilityOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		breaker.RecordFailure()
		return domain.ExtractedContent{}, capturerr.Wrap(capturerr.KindMalformedInput, "extract.accessibility",
			"unparseable helper output for %s: %w", w.BundleID, err)
	}

	if strings.TrimSpace(out.Content) == "" {
		breaker.RecordSuccess()
		return domain.ExtractedContent{}, capturerr.New(capturerr.KindNoContent, "extract.accessibility", nil)
	}

	breaker.RecordSuccess()
	return domain.ExtractedContent{
		Source:           "accessibility",
		Title:            w.Title,
		Content:          out.Content,
		AppName:          w.AppName,
		BundleID:         w.BundleID,
		Timestamp:        time.Now(),
		ExtractionMethod: domain.ExtractorAccessibility,
		Confidence:       1.0,
	}, nil
}
