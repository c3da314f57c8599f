package chunk

import (
	"strings"
	"testing"
)

func TestSmallContentSingleChunk(t *testing.T) {
	c := New(DefaultConfig())
	chunks := c.Chunk("Hello world this is a test")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 || chunks[0].TotalChunks != 1 {
		t.Fatalf("unexpected indexing: %+v", chunks[0])
	}
	if chunks[0].TokenCount != 6 {
		t.Fatalf("expected token_count 6, got %d", chunks[0].TokenCount)
	}
	if chunks[0].Text != "Hello world this is a test" {
		t.Fatalf("expected verbatim text, got %q", chunks[0].Text)
	}
}

func TestLargeContentMultipleChunks(t *testing.T) {
	c := New(Config{MaxTokens: 10, OverlapTokens: 2})
	words := []string{
		"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
		"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
		"eighteen", "nineteen", "twenty", "twenty-one", "twenty-two", "twenty-three",
		"twenty-four", "twenty-five",
	}
	content := strings.Join(words, " ")
	chunks := c.Chunk(content)

	if len(chunks) <= 1 {
		t.Fatalf("expected more than 1 chunk, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.TokenCount > 12 {
			t.Fatalf("chunk exceeds max+overlap tolerance: %+v", ch)
		}
		if got := len(strings.Fields(ch.Text)); got != ch.TokenCount {
			t.Fatalf("chunk %d: token_count %d does not match word count %d in text %q", ch.ChunkIndex, ch.TokenCount, got, ch.Text)
		}
	}
}

// TestChunkTextLastChunkNoDuplicateTail guards against the trailing-remainder
// merge re-appending words that the preceding window already reached the end
// of the input with: the last chunk must end with the input's last word
// exactly once, and its token_count must match its actual word count.
func TestChunkTextLastChunkNoDuplicateTail(t *testing.T) {
	c := New(Config{MaxTokens: 10, OverlapTokens: 2})
	words := []string{
		"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
		"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
		"eighteen", "nineteen", "twenty", "twenty-one", "twenty-two", "twenty-three",
		"twenty-four", "twenty-five",
	}
	content := strings.Join(words, " ")
	chunks := c.Chunk(content)

	last := chunks[len(chunks)-1]
	gotWords := strings.Fields(last.Text)
	if len(gotWords) != last.TokenCount {
		t.Fatalf("last chunk token_count %d does not match word count %d in text %q", last.TokenCount, len(gotWords), last.Text)
	}
	if n := strings.Count(last.Text, "twenty-five"); n != 1 {
		t.Fatalf("expected final word to appear exactly once in last chunk, got %d occurrences in %q", n, last.Text)
	}
}

func TestEmptyContent(t *testing.T) {
	c := New(DefaultConfig())
	if chunks := c.Chunk(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty content, got %d", len(chunks))
	}
	if chunks := c.Chunk("   \n\t  "); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace-only content, got %d", len(chunks))
	}
}

func TestTabularContentPreservesStructure(t *testing.T) {
	c := New(DefaultConfig())
	content := "Name\tAge\tCity\nAlice\t30\tNew York\nBob\t25\tLos Angeles\nCharlie\t35\tChicago"
	chunks := c.Chunk(content)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "\t") {
		t.Fatalf("expected tabs preserved")
	}
	if !strings.Contains(chunks[0].Text, "\n") {
		t.Fatalf("expected newlines preserved")
	}
}

func TestTabularDetection(t *testing.T) {
	tabular := "A\tB\tC\n1\t2\t3\n4\t5\t6"
	if !isTabularContent(tabular) {
		t.Fatalf("expected tabular detection to be true")
	}

	regular := "Hello world\nThis is text\nNo tabs here"
	if isTabularContent(regular) {
		t.Fatalf("expected tabular detection to be false")
	}
}

func TestChunkIndicesContiguous(t *testing.T) {
	c := New(Config{MaxTokens: 5, OverlapTokens: 1})
	content := strings.Repeat("word ", 50)
	chunks := c.Chunk(content)

	seen := make(map[int]bool)
	for _, ch := range chunks {
		if ch.TotalChunks != len(chunks) {
			t.Fatalf("total_chunks mismatch: %d != %d", ch.TotalChunks, len(chunks))
		}
		seen[ch.ChunkIndex] = true
	}
	for i := 0; i < len(chunks); i++ {
		if !seen[i] {
			t.Fatalf("missing chunk_index %d", i)
		}
	}
}
