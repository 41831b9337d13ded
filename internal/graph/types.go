// Package graph holds the project-wide type hierarchy used by the second
// resolution pass: a read-only snapshot of child -> parent edges built once
// per batch, plus an index of every type's declared members.
package graph

import (
	"time"

	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// Node is a declared type with its source location.
type Node struct {
	ID        string           `json:"id"`         // Type FQN (e.g. "com.acme.User", "App\\Models\\User")
	Kind      facts.SymbolKind `json:"kind"`       // class, interface, enum or record
	File      string           `json:"file"`       // Relative file path
	StartLine int              `json:"start_line"` // Start line number (1-indexed)
	EndLine   int              `json:"end_line"`   // End line number (1-indexed)
}

// EdgeType represents the type of relationship between nodes.
type EdgeType string

const (
	EdgeInherits EdgeType = "inherits" // Child type extends or implements parent
)

// Edge is one direct parent relationship, From child To parent.
type Edge struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Type     EdgeType  `json:"type"`
	Location *Location `json:"location"`
}

// Location is where a relationship is declared.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"` // 0 if unknown
}

// GraphData is the serialized form of a hierarchy.
type GraphData struct {
	Metadata GraphMetadata `json:"_metadata"`
	Nodes    []Node        `json:"nodes"`
	Edges    []Edge        `json:"edges"`
}

// GraphMetadata contains metadata about the graph.
type GraphMetadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
}
