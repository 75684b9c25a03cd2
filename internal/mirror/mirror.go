package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"shopseed/internal/store"
)

// Writer saves a generated batch next to the store as a flat JSON array.
type Writer interface {
	WriteBatch(name string, items []store.Item) (string, error)
}

type FilesystemWriter struct {
	baseDir string
}

func NewFilesystemWriter(baseDir string) *FilesystemWriter {
	return &FilesystemWriter{baseDir: baseDir}
}

// WriteBatch writes <baseDir>/<name> and returns its path. An empty batch still
// produces "[]" so the file always reflects the last run.
func (f *FilesystemWriter) WriteBatch(name string, items []store.Item) (string, error) {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	file := filepath.Join(f.baseDir, name)
	out, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, store.Flatten(it))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return file, nil
}

// ReadBatch decodes a flat JSON array keeping numbers as json.Number.
func ReadBatch(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return rows, nil
}
