package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileLoader reads plain-text documents from the local filesystem. A
// source identifier that names a directory loads every regular file in
// it (non-recursive); a source naming a file loads that file alone.
type FileLoader struct{}

// NewFileLoader creates a FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

func (l *FileLoader) Load(ctx context.Context, source string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("loader: stat %s: %w", source, err)
	}

	if !info.IsDir() {
		doc, err := readFile(source)
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("loader: read dir %s: %w", source, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := readFile(filepath.Join(source, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readFile(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return Document{
		ID:       path,
		Content:  string(content),
		Metadata: map[string]string{"path": path},
	}, nil
}
