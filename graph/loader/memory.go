package loader

import "context"

// MemoryLoader serves a fixed, in-process set of documents keyed by
// source identifier. Useful for tests and for embedding documents that
// were already fetched by the host application.
type MemoryLoader struct {
	Sources map[string][]Document
}

// NewMemoryLoader creates a loader with no registered sources.
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{Sources: make(map[string][]Document)}
}

// Add registers docs under source, appending to any existing entry.
func (l *MemoryLoader) Add(source string, docs ...Document) {
	l.Sources[source] = append(l.Sources[source], docs...)
}

func (l *MemoryLoader) Load(ctx context.Context, source string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Sources[source], nil
}
