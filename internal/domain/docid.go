package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeForHash collapses runs of whitespace to a single space and trims
// the result, so two captures that differ only in incidental whitespace
// hash identically. Chunk boundaries are computed over the un-normalized
// text; only hashing uses this form.
func NormalizeForHash(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// DocID derives a document's stable identity from its source coordinates.
// Two payloads with the same (source, url, title) refer to the same
// logical document regardless of content changes.
func DocID(source, url, title string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeForHash(source)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeForHash(url)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeForHash(title)))
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash derives a document's content identity. Two payloads with
// equal ContentHash carry byte-for-byte-equivalent text once whitespace is
// normalized, and are treated as the same revision.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(NormalizeForHash(content)))
	return hex.EncodeToString(sum[:])
}

// DocIDFor and ContentHashFor are convenience wrappers over a CapturePayload.
func DocIDFor(p CapturePayload) string       { return DocID(p.Source, p.URL, p.Title) }
func ContentHashFor(p CapturePayload) string { return ContentHash(p.Content) }
