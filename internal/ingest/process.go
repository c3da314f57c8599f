package ingest

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/cache"
	"github.com/allaspectsdev/windowcapd/internal/chunk"
	"github.com/allaspectsdev/windowcapd/internal/domain"
	"github.com/allaspectsdev/windowcapd/internal/store"
)

// Store is the persistence surface the Processor needs.
type Store interface {
	UpsertDocument(p domain.CapturePayload, docID, contentHash string, chunks []domain.Chunk, tokenCount int) (store.UpsertResult, error)
	UpsertFingerprint(f *store.Fingerprint) error
}

// PushNotifier is notified whenever a payload arrives tagged as a browser
// push, so the Extractor Registry can track liveness and keep demoting a
// silent browser window to accessibility/OCR.
type PushNotifier interface {
	NotePush(bundleID string)
}

// Processor turns one CapturePayload into a document write: fingerprint,
// chunk, dedup, store. It holds no per-connection state, so a single
// Processor is shared by every connection the server accepts.
type Processor struct {
	store   Store
	dedup   *cache.DedupCache
	chunker *chunk.Chunker
	locks   *lockShards
	push    PushNotifier
}

// NewProcessor builds a Processor around the given store, dedup cache, and
// chunker. lockShardCount bounds the per-doc_id serialization table. push
// may be nil if the caller doesn't run a tick-driven router in-process
// (e.g. a standalone ingestion binary).
func NewProcessor(st Store, dedup *cache.DedupCache, chunker *chunk.Chunker, lockShardCount int, push PushNotifier) *Processor {
	return &Processor{store: st, dedup: dedup, chunker: chunker, locks: newLockShards(lockShardCount), push: push}
}

// sourceBrowser is the CapturePayload.Source value the browser extension's
// native-messaging relay sends, identifying the parallel push path.
const sourceBrowser = "browser"

// Process applies the ingestion decision table to payload and returns the
// response to send back over the wire. It never returns an error itself —
// failures are reported through the response's Failed action so the
// connection can stay open for the next request.
func (p *Processor) Process(payload domain.CapturePayload) domain.IngestResponse {
	if payload.Source == sourceBrowser && payload.BundleID != "" && p.push != nil {
		p.push.NotePush(payload.BundleID)
	}

	if strings.TrimSpace(payload.Content) == "" {
		return domain.IngestResponse{Status: "ok", Action: domain.ActionSkipped, Message: "empty"}
	}

	docID := domain.DocIDFor(payload)
	contentHash := domain.ContentHashFor(payload)

	unlock := p.locks.Lock(docID)
	defer unlock()

	var chunks []domain.Chunk
	var tokenCount int
	if cached, ok := p.dedup.Lookup(docID); !ok || cached != contentHash {
		chunks = p.chunker.Chunk(payload.Content)
		for _, c := range chunks {
			tokenCount += c.TokenCount
		}
	}

	res, err := p.store.UpsertDocument(payload, docID, contentHash, chunks, tokenCount)
	if err != nil {
		return domain.IngestResponse{Status: "error", Action: domain.ActionFailed, Message: err.Error()}
	}

	p.dedup.Note(docID, contentHash)

	// Track the content hash independently of which doc_id it landed under,
	// so the same boilerplate reappearing in a renamed or reopened window
	// still shows up as one fingerprint with a growing hit_count rather than
	// as unrelated documents.
	if res.Action == domain.ActionCreated || res.Action == domain.ActionUpdated {
		if err := p.store.UpsertFingerprint(&store.Fingerprint{
			ContentHash: contentHash,
			DocID:       docID,
			TokenCount:  int64(tokenCount),
		}); err != nil {
			log.Warn().Err(err).Str("doc_id", docID).Msg("ingest: recording content fingerprint")
		}
	}

	return domain.IngestResponse{Status: "ok", Action: res.Action, DocID: res.DocID, ChunkCount: res.ChunkCount}
}
