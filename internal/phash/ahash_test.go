package phash

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestHashStableAcrossRuns(t *testing.T) {
	img := checkerImage(64, 64)
	h1 := Hash(img)
	h2 := Hash(img)
	if h1 != h2 {
		t.Fatalf("hash not stable: %x != %x", h1, h2)
	}
}

func TestHashIdenticalImagesZeroDistance(t *testing.T) {
	a := solidImage(32, 32, color.White)
	b := solidImage(32, 32, color.White)
	if d := HammingDistance(Hash(a), Hash(b)); d != 0 {
		t.Fatalf("expected distance 0 for identical images, got %d", d)
	}
}

func TestHashDifferentImagesLargeDistance(t *testing.T) {
	// A solid image of any colour sets every bit (each pixel equals the
	// mean), so the contrast here is solid white against the checkerboard,
	// whose black half falls below the mean: 32 of 64 bits differ.
	white := solidImage(64, 64, color.White)
	checker := checkerImage(64, 64)
	d := HammingDistance(Hash(white), Hash(checker))
	if d < 20 {
		t.Fatalf("expected large distance between solid white and checkerboard images, got %d", d)
	}
}

func TestDetectorNewVerdict(t *testing.T) {
	d := New(5, 10*time.Minute)
	verdict, _ := d.Classify(domain.WindowID(1), solidImage(16, 16, color.White))
	if verdict != domain.VerdictNew {
		t.Fatalf("expected New verdict for unseen window, got %s", verdict)
	}
}

func TestDetectorUnchangedThenForcedRefresh(t *testing.T) {
	d := New(5, 10*time.Millisecond)
	img := solidImage(16, 16, color.White)
	_, hash := d.Classify(domain.WindowID(1), img)
	d.Accept(domain.WindowID(1), hash)

	verdict, _ := d.Classify(domain.WindowID(1), img)
	if verdict != domain.VerdictUnchanged {
		t.Fatalf("expected Unchanged immediately after accept, got %s", verdict)
	}

	time.Sleep(20 * time.Millisecond)
	verdict, _ = d.Classify(domain.WindowID(1), img)
	if verdict != domain.VerdictForcedRefresh {
		t.Fatalf("expected ForcedRefresh after max extraction age elapsed, got %s", verdict)
	}
}

func TestDetectorChangedVerdict(t *testing.T) {
	d := New(5, 10*time.Minute)
	_, hash := d.Classify(domain.WindowID(1), solidImage(64, 64, color.White))
	d.Accept(domain.WindowID(1), hash)

	verdict, _ := d.Classify(domain.WindowID(1), checkerImage(64, 64))
	if verdict != domain.VerdictChanged {
		t.Fatalf("expected Changed verdict for a very different image, got %s", verdict)
	}
}

func TestDetectorFailedExtractionDoesNotUpdateHash(t *testing.T) {
	d := New(5, 10*time.Minute)
	img := solidImage(16, 16, color.White)
	_, hash := d.Classify(domain.WindowID(1), img)
	d.Accept(domain.WindowID(1), hash)

	before, _ := d.Record(domain.WindowID(1))
	// Simulate a changed image whose extraction then fails: Classify is
	// called but Accept is deliberately not invoked.
	_, _ = d.Classify(domain.WindowID(1), checkerImage(16, 16))
	after, _ := d.Record(domain.WindowID(1))

	if before.LastHash != after.LastHash {
		t.Fatalf("hash should not change without Accept")
	}
}

func TestDetectorEvict(t *testing.T) {
	d := New(5, 10*time.Minute)
	_, hash := d.Classify(domain.WindowID(1), solidImage(16, 16, color.White))
	d.Accept(domain.WindowID(1), hash)
	if d.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", d.Len())
	}
	d.Evict(domain.WindowID(1))
	if d.Len() != 0 {
		t.Fatalf("expected 0 records after evict, got %d", d.Len())
	}
}
