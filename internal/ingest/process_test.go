package ingest

import (
	"testing"

	"github.com/allaspectsdev/windowcapd/internal/cache"
	"github.com/allaspectsdev/windowcapd/internal/chunk"
	"github.com/allaspectsdev/windowcapd/internal/domain"
)

type recordingNotifier struct {
	noted []string
}

func (r *recordingNotifier) NotePush(bundleID string) {
	r.noted = append(r.noted, bundleID)
}

func newTestProcessor(t *testing.T, push PushNotifier) (*Processor, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	dedup, err := cache.New(fs, 60, 100)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return NewProcessor(fs, dedup, chunk.New(chunk.DefaultConfig()), 8, push), fs
}

func TestProcessNotifiesPushOnBrowserSource(t *testing.T) {
	notifier := &recordingNotifier{}
	proc, _ := newTestProcessor(t, notifier)

	proc.Process(domain.CapturePayload{Source: "browser", BundleID: "com.google.Chrome", Content: "hello"})

	if len(notifier.noted) != 1 || notifier.noted[0] != "com.google.Chrome" {
		t.Fatalf("expected NotePush(com.google.Chrome), got %v", notifier.noted)
	}
}

func TestProcessDoesNotNotifyForNonBrowserSource(t *testing.T) {
	notifier := &recordingNotifier{}
	proc, _ := newTestProcessor(t, notifier)

	proc.Process(domain.CapturePayload{Source: "slack", BundleID: "com.tinyspeck.slackmacgap", Content: "hello"})

	if len(notifier.noted) != 0 {
		t.Fatalf("expected no NotePush calls, got %v", notifier.noted)
	}
}

func TestProcessEmptyContentSkipped(t *testing.T) {
	proc, _ := newTestProcessor(t, nil)

	resp := proc.Process(domain.CapturePayload{Source: "slack", Content: "   \n\t  "})
	if resp.Action != domain.ActionSkipped || resp.Message != "empty" {
		t.Fatalf("expected skipped/empty, got %+v", resp)
	}
}

func TestProcessCreatesThenSkipsUnchanged(t *testing.T) {
	proc, _ := newTestProcessor(t, nil)
	p := domain.CapturePayload{Source: "slack", URL: "u", Title: "t", Content: "hello world"}

	first := proc.Process(p)
	if first.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %+v", first)
	}

	second := proc.Process(p)
	if second.Action != domain.ActionSkipped {
		t.Fatalf("expected skipped, got %+v", second)
	}
}

func TestProcessRecordsFingerprintOnlyWhenContentChanges(t *testing.T) {
	proc, fs := newTestProcessor(t, nil)
	p := domain.CapturePayload{Source: "slack", URL: "u", Title: "t", Content: "hello world"}

	proc.Process(p)
	if len(fs.fingerprints) != 1 {
		t.Fatalf("expected 1 fingerprint after create, got %d", len(fs.fingerprints))
	}

	proc.Process(p)
	if len(fs.fingerprints) != 1 {
		t.Fatalf("expected no new fingerprint on an unchanged skip, got %d", len(fs.fingerprints))
	}

	updated := domain.CapturePayload{Source: "slack", URL: "u", Title: "t", Content: "hello world, updated"}
	proc.Process(updated)
	if len(fs.fingerprints) != 2 {
		t.Fatalf("expected a second fingerprint after an update, got %d", len(fs.fingerprints))
	}
}
