package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// HierarchyFileName is the name of the hierarchy snapshot file.
	HierarchyFileName = "type-hierarchy.json"
	// GraphVersion is the current version of the snapshot format.
	GraphVersion = "1.0"
)

// Storage reads and writes hierarchy snapshots.
type Storage interface {
	// Load loads the snapshot from disk. Returns nil if it doesn't exist.
	Load() (*GraphData, error)

	// Save writes the snapshot using a temp file and rename.
	Save(data *GraphData) error

	// Exists checks if a snapshot has been written.
	Exists() bool
}

type storage struct {
	dir string
}

// NewStorage creates storage rooted at dir (e.g. .cortex/graph).
func NewStorage(dir string) (Storage, error) {
	if err := os.MkdirAll(filepath.Join(dir, ".tmp"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}
	return &storage{dir: dir}, nil
}

// Load reads the snapshot.
func (s *storage) Load() (*GraphData, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file: %w", err)
	}

	var graphData GraphData
	if err := json.Unmarshal(data, &graphData); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy JSON: %w", err)
	}
	return &graphData, nil
}

// Save stamps metadata and writes the snapshot atomically.
func (s *storage) Save(data *GraphData) error {
	data.Metadata.Version = GraphVersion
	data.Metadata.GeneratedAt = time.Now().UTC()
	data.Metadata.NodeCount = len(data.Nodes)
	data.Metadata.EdgeCount = len(data.Edges)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hierarchy: %w", err)
	}

	tempPath := filepath.Join(s.dir, ".tmp", HierarchyFileName)
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp hierarchy file: %w", err)
	}
	if err := os.Rename(tempPath, s.path()); err != nil {
		return fmt.Errorf("failed to rename temp hierarchy file: %w", err)
	}
	return nil
}

// Exists checks if the snapshot file exists.
func (s *storage) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

func (s *storage) path() string {
	return filepath.Join(s.dir, HierarchyFileName)
}

// LoadHierarchy loads the snapshot in s and builds a Hierarchy from it. A
// missing snapshot yields an empty hierarchy.
func LoadHierarchy(s Storage) (*Hierarchy, error) {
	data, err := s.Load()
	if err != nil {
		return nil, err
	}
	return NewHierarchy(data)
}
