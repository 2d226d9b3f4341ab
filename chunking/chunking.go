// Package chunking splits documents into overlapping chunks for extraction.
//
// Text is split recursively on paragraph breaks, then line breaks, then
// spaces, so chunks keep the document's paragraph structure. Chunk size and
// overlap are measured in words.
package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/kgextract/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultSize is the number of words in a chunk.
	DefaultSize = 1200

	// DefaultOverlap is the number of words shared by consecutive chunks.
	DefaultOverlap = 100
)

// ErrInvalidWindow is returned when size and overlap cannot produce chunks.
var ErrInvalidWindow = errors.New("invalid chunk window")

// separators never include "", so a single word is never cut apart.
var separators = []string{"\n\n", "\n", " "}

// WordCount is the length function chunks are measured with.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Split breaks text into chunks of at most size words, each sharing up to
// overlap words with the previous one. Chunk IDs are derived from the chunk
// content, Tokens holds the word count and Order the position within the
// document. Text with no words yields no chunks.
func Split(documentID, text string, size, overlap int) ([]core.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidWindow, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidWindow, size, overlap)
	}
	if WordCount(text) == 0 {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(WordCount),
	)
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", documentID, err)
	}

	chunks := make([]core.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		content := strings.TrimSpace(piece)
		if content == "" {
			continue
		}
		chunks = append(chunks, core.Chunk{
			ID:         core.ChunkID(content),
			Content:    content,
			Tokens:     WordCount(content),
			DocumentID: documentID,
			Order:      len(chunks),
		})
	}
	return chunks, nil
}

// Units keys chunks by ID for extraction.Executor.RunAll. Chunks with
// identical content collapse into one unit.
func Units(chunks []core.Chunk) map[string]core.Chunk {
	units := make(map[string]core.Chunk, len(chunks))
	for _, chunk := range chunks {
		if _, ok := units[chunk.ID]; !ok {
			units[chunk.ID] = chunk
		}
	}
	return units
}
