package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/cache"
	"github.com/allaspectsdev/windowcapd/internal/chunk"
	"github.com/allaspectsdev/windowcapd/internal/domain"
	"github.com/allaspectsdev/windowcapd/internal/store"
)

type fakeStore struct {
	docs         map[string]string // docID -> contentHash
	fingerprints []store.Fingerprint
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]string)}
}

func (f *fakeStore) UpsertDocument(p domain.CapturePayload, docID, contentHash string, chunks []domain.Chunk, tokenCount int) (store.UpsertResult, error) {
	existing, ok := f.docs[docID]
	f.docs[docID] = contentHash
	switch {
	case !ok:
		return store.UpsertResult{Action: domain.ActionCreated, DocID: docID, ChunkCount: len(chunks)}, nil
	case existing == contentHash:
		return store.UpsertResult{Action: domain.ActionSkipped, DocID: docID, ChunkCount: len(chunks)}, nil
	default:
		return store.UpsertResult{Action: domain.ActionUpdated, DocID: docID, ChunkCount: len(chunks)}, nil
	}
}

func (f *fakeStore) GetDocumentContentHash(docID string) (string, bool, error) {
	h, ok := f.docs[docID]
	return h, ok, nil
}

func (f *fakeStore) UpsertFingerprint(fp *store.Fingerprint) error {
	f.fingerprints = append(f.fingerprints, *fp)
	return nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	fs := newFakeStore()
	dedup, err := cache.New(fs, 60, 100)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	proc := NewProcessor(fs, dedup, chunk.New(chunk.DefaultConfig()), 8, nil)

	sockPath := filepath.Join(t.TempDir(), "ingest.sock")
	srv := NewServer(DefaultConfig(sockPath), proc)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	return srv, sockPath
}

func TestServerCreatesThenSkipsUnchanged(t *testing.T) {
	srv, sockPath := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx)
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := domain.CapturePayload{Source: "slack", URL: "u", Title: "General", Content: "hello world"}
	body, _ := json.Marshal(payload)

	if _, err := conn.Write(append(body, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp domain.IngestResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %s", resp.Action)
	}

	// Same payload again, over the same connection: should skip.
	if _, err := conn.Write(append(body, '\n')); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	line2, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read 2: %v", err)
	}
	var resp2 domain.IngestResponse
	if err := json.Unmarshal([]byte(line2), &resp2); err != nil {
		t.Fatalf("unmarshal response 2: %v", err)
	}
	if resp2.Action != domain.ActionSkipped {
		t.Fatalf("expected skipped, got %s", resp2.Action)
	}
}

func TestServerEmptyContentSkipped(t *testing.T) {
	srv, sockPath := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx)
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := domain.CapturePayload{Source: "slack", URL: "u", Content: "   "}
	body, _ := json.Marshal(payload)
	conn.Write(append(body, '\n'))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp domain.IngestResponse
	json.Unmarshal([]byte(line), &resp)
	if resp.Action != domain.ActionSkipped || resp.Message != "empty" {
		t.Fatalf("expected skipped/empty, got %+v", resp)
	}
}

func TestServerMalformedRequestKeepsConnectionOpen(t *testing.T) {
	srv, sockPath := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx)
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("not json\n"))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp domain.IngestResponse
	json.Unmarshal([]byte(line), &resp)
	if resp.Status != "error" || resp.Action != domain.ActionFailed {
		t.Fatalf("expected error/failed, got %+v", resp)
	}

	payload := domain.CapturePayload{Source: "slack", URL: "u", Content: "fine now"}
	body, _ := json.Marshal(payload)
	conn.Write(append(body, '\n'))
	line2, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected the connection to stay open after a malformed request: %v", err)
	}
	var resp2 domain.IngestResponse
	json.Unmarshal([]byte(line2), &resp2)
	if resp2.Action != domain.ActionCreated {
		t.Fatalf("expected created, got %+v", resp2)
	}
}
