// Package domain holds the data model shared across every capture-pipeline
// stage: windows, displays, extracted content, capture payloads, and
// chunks. None of this package talks to the OS, a socket, or a database —
// it is the vocabulary the other packages share.
package domain

import "time"

// WindowState classifies a window's visibility within its display.
type WindowState string

const (
	StateForeground WindowState = "foreground"
	StateBackground WindowState = "background"
	StateMinimized  WindowState = "minimized"
	StateOccluded   WindowState = "occluded"
)

// WindowID is the opaque, OS-assigned identifier that stays stable for the
// lifetime of a window.
type WindowID uint64

// DisplayID identifies a physical or virtual display.
type DisplayID uint32

// Bounds is a window or display's rectangle in logical pixels.
type Bounds struct {
	X, Y, Width, Height int
}

// Area returns the rectangle's area in square logical pixels.
func (b Bounds) Area() int { return b.Width * b.Height }

// Window is one entry in the Window Tracker's canonical set.
type Window struct {
	ID          WindowID
	AppName     string
	BundleID    string
	Title       string
	Bounds      Bounds
	DisplayID   DisplayID
	Layer       int
	State       WindowState
	LastSeenAt  time.Time
	FirstSeenAt time.Time
}

// Display is a physical or virtual screen.
type Display struct {
	ID    DisplayID
	Bounds Bounds
	Scale float64
}

// Snapshot is the Window Tracker's view of the world at one tick.
type Snapshot struct {
	Windows  []Window
	Displays []Display
}

// Delta is the diff between two successive snapshots.
type Delta struct {
	Added   []Window
	Removed []WindowID
	Changed []Window
}

// ExtractorKind names the backend that produced (or should produce) an
// ExtractedContent.
type ExtractorKind string

const (
	ExtractorChrome        ExtractorKind = "chrome"
	ExtractorAccessibility ExtractorKind = "accessibility"
	ExtractorOCR           ExtractorKind = "ocr"
)

// ChangeVerdict is the Change Detector's classification of a window's
// current pixel hash against its ChangeRecord.
type ChangeVerdict string

const (
	VerdictNew           ChangeVerdict = "new"
	VerdictUnchanged     ChangeVerdict = "unchanged"
	VerdictChanged       ChangeVerdict = "changed"
	VerdictForcedRefresh ChangeVerdict = "forced_refresh"
)

// ChangeRecord tracks the last accepted perceptual hash for one window.
type ChangeRecord struct {
	WindowID          WindowID
	LastHash          uint64
	LastExtractedAt   time.Time
	ConsecutiveStable int
}

// ExtractedContent is what a backend hands back to the router.
type ExtractedContent struct {
	Source            string
	Title             string
	Content           string
	AppName           string
	BundleID          string
	URL               string
	Timestamp         time.Time
	ExtractionMethod  ExtractorKind
	Confidence        float64
}

// CapturePayload is the wire form accepted by the Ingestion Core, emitted
// both by the router (after a successful extraction) and by the browser
// native-messaging relay (pushed directly).
type CapturePayload struct {
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Author    string    `json:"author,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	AppName   string    `json:"app_name,omitempty"`
	BundleID  string    `json:"bundle_id,omitempty"`
}

// Chunk is an immutable, ordered slice of a document's text.
type Chunk struct {
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	TokenCount  int    `json:"token_count"`
}

// IngestAction is the outcome of one ingestion request.
type IngestAction string

const (
	ActionCreated IngestAction = "created"
	ActionUpdated IngestAction = "updated"
	ActionSkipped IngestAction = "skipped"
	ActionFailed  IngestAction = "failed"
)

// IngestResponse is the single-line JSON object the IPC server writes back
// for every request it handles.
type IngestResponse struct {
	Status     string       `json:"status"`
	Action     IngestAction `json:"action"`
	DocID      string       `json:"ehl_doc_id,omitempty"`
	ChunkCount int          `json:"chunk_count,omitempty"`
	Message    string       `json:"message,omitempty"`
}
