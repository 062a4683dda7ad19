// Package loader provides the document ingestion capability used by
// loader nodes in a RAG workflow DAG.
package loader

import (
	"context"
	"strings"
)

// Document is one ingested source document before chunking.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Chunk is one slice of a Document ready for embedding.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// Chunk splits d.Content into overlapping word-bounded windows of size
// words with overlap words shared between consecutive chunks. A
// non-positive size returns the whole document as a single chunk.
func (d Document) Chunk(size, overlap int) []Chunk {
	words := strings.Fields(d.Content)
	if size <= 0 || len(words) <= size {
		return []Chunk{{DocumentID: d.ID, Index: 0, Text: d.Content}}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []Chunk
	step := size - overlap
	for start, idx := 0, 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{DocumentID: d.ID, Index: idx, Text: strings.Join(words[start:end], " ")})
		idx++
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Loader reads documents from a source identifier (a file path, a URL,
// a collection name) into a uniform Document slice.
type Loader interface {
	Load(ctx context.Context, source string) ([]Document, error)
}
