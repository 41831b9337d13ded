package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// Sink receives the final results of every batch.
type Sink interface {
	WriteResults(ctx context.Context, results []*facts.ParseResult) error
}

// JSONWriter writes results as one indented JSON array or as JSON lines.
// With an empty path it writes to out; otherwise it replaces the file
// atomically using a temp file and rename.
type JSONWriter struct {
	path  string
	lines bool
	out   io.Writer
}

// NewJSONWriter creates a writer. lines selects JSON lines output.
func NewJSONWriter(path string, lines bool, out io.Writer) *JSONWriter {
	return &JSONWriter{path: path, lines: lines, out: out}
}

// WriteResults encodes results and writes them in one piece.
func (w *JSONWriter) WriteResults(ctx context.Context, results []*facts.ParseResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeResults(results, w.lines)
	if err != nil {
		return err
	}

	if w.path == "" {
		if _, err := w.out.Write(data); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		return nil
	}
	return writeAtomic(w.path, data)
}

func encodeResults(results []*facts.ParseResult, lines bool) ([]byte, error) {
	var buf bytes.Buffer

	if lines {
		for _, r := range results {
			data, err := facts.Marshal(r)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}

	raw := make([]json.RawMessage, len(results))
	for i, r := range results {
		data, err := facts.Marshal(r)
		if err != nil {
			return nil, err
		}
		raw[i] = data
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".facts-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadResults decodes output written by JSONWriter in either format.
func ReadResults(r io.Reader) ([]*facts.ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []*facts.ParseResult{}, nil
	}

	var raw []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	} else {
		for _, line := range bytes.Split(trimmed, []byte("\n")) {
			if line = bytes.TrimSpace(line); len(line) > 0 {
				raw = append(raw, line)
			}
		}
	}

	results := make([]*facts.ParseResult, 0, len(raw))
	for _, msg := range raw {
		r, err := facts.Unmarshal(msg)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
