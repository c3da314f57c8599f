// Package chunk splits extracted text into token-bounded chunks, preserving
// tabular row structure where it detects a spreadsheet-shaped input.
package chunk

import (
	"strings"

	"github.com/allaspectsdev/windowcapd/internal/domain"
)

// Config controls chunk sizing. A word is approximated as one token.
type Config struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultConfig returns the default chunk sizing.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, OverlapTokens: 100}
}

// Chunker splits content into Config-bounded chunks.
type Chunker struct {
	cfg Config
}

// New builds a Chunker with the given configuration.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg}
}

// Chunk splits content into token-bounded pieces: tabular detection first,
// then either line-based or word-based windowing. Empty or whitespace-only
// content yields no chunks.
func (c *Chunker) Chunk(content string) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if isTabularContent(content) {
		return c.chunkTabular(content)
	}
	return c.chunkText(content)
}

// isTabularContent reports whether the first ten lines contain tabs on at
// least two of them.
func isTabularContent(content string) bool {
	lines := firstLines(content, 10)
	if len(lines) < 2 {
		return false
	}

	withTabs := 0
	for _, l := range lines {
		if strings.Contains(l, "\t") {
			withTabs++
		}
	}
	return withTabs >= 2
}

func firstLines(content string, n int) []string {
	all := strings.Split(content, "\n")
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func wordCount(s string) int {
	n := len(strings.Fields(s))
	if n == 0 {
		return 1
	}
	return n
}

// chunkTabular packs whole lines until the next line would exceed
// MaxTokens, carrying the last <=3 lines forward as overlap.
func (c *Chunker) chunkTabular(content string) []domain.Chunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var current []string
	currentTokens := 0

	for _, line := range lines {
		lineTokens := wordCount(line)

		if currentTokens+lineTokens > c.cfg.MaxTokens && len(current) > 0 {
			chunks = append(chunks, domain.Chunk{
				Text:       strings.Join(current, "\n"),
				ChunkIndex: len(chunks),
				TokenCount: currentTokens,
			})

			overlap := len(current)
			if overlap > 3 {
				overlap = 3
			}
			current = append([]string(nil), current[len(current)-overlap:]...)
			currentTokens = 0
			for _, l := range current {
				currentTokens += wordCount(l)
			}
		}

		current = append(current, line)
		currentTokens += lineTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, domain.Chunk{
			Text:       strings.Join(current, "\n"),
			ChunkIndex: len(chunks),
			TokenCount: currentTokens,
		})
	}

	setTotal(chunks)
	return chunks
}

// chunkText splits content into greedy word windows with overlap.
func (c *Chunker) chunkText(content string) []domain.Chunk {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	if len(words) <= c.cfg.MaxTokens {
		return []domain.Chunk{{
			Text:        content,
			ChunkIndex:  0,
			TotalChunks: 1,
			TokenCount:  len(words),
		}}
	}

	var chunks []domain.Chunk
	step := c.cfg.MaxTokens - c.cfg.OverlapTokens
	if step < 1 {
		step = 1
	}

	start := 0
	for start < len(words) {
		end := start + c.cfg.MaxTokens
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[start:end]

		chunks = append(chunks, domain.Chunk{
			Text:       strings.Join(chunkWords, " "),
			ChunkIndex: len(chunks),
			TokenCount: len(chunkWords),
		})

		if end == len(words) {
			// This window already reached the end of the input, so there is
			// no tail left to fold into it.
			break
		}

		start += step

		if start < len(words) && len(words)-start < c.cfg.OverlapTokens {
			remaining := words[start:]
			last := &chunks[len(chunks)-1]
			last.Text = last.Text + " " + strings.Join(remaining, " ")
			last.TokenCount += len(remaining)
			break
		}
	}

	setTotal(chunks)
	return chunks
}

func setTotal(chunks []domain.Chunk) {
	total := len(chunks)
	for i := range chunks {
		chunks[i].TotalChunks = total
	}
}

