// Package mcp exposes extraction, symbol selection and hierarchy queries as
// Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/cortex-facts/internal/graph"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
	"github.com/mvp-joe/cortex-facts/internal/storage"
)

// MCPServerConfig configures the tool server.
type MCPServerConfig struct {
	RootDir       string
	Languages     []string
	ScorerOptions scorer.Options
	GraphDir      string // hierarchy snapshot directory, "" to skip
	DBPath        string // SQLite facts database, "" disables facts_callers
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	extractor *Extractor
	reader    *storage.FactsReader
	mcp       *server.MCPServer
}

// NewMCPServer creates the server and registers its tools. batch may be nil
// when no indexing session runs alongside the server.
func NewMCPServer(cfg *MCPServerConfig, batch BatchSource) (*MCPServer, error) {
	var snapshot graph.Storage
	if cfg.GraphDir != "" {
		s, err := graph.NewStorage(cfg.GraphDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open hierarchy snapshot: %w", err)
		}
		snapshot = s
	}

	mcpServer := server.NewMCPServer(
		"cortex-facts",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	extractor := NewExtractor(cfg.RootDir, cfg.Languages, batch)
	AddFactsExtractTool(mcpServer, extractor)
	AddFactsSelectTool(mcpServer, extractor, cfg.ScorerOptions)
	AddFactsHierarchyTool(mcpServer, NewHierarchySource(batch, snapshot))

	s := &MCPServer{extractor: extractor, mcp: mcpServer}

	if cfg.DBPath != "" {
		reader, err := storage.NewFactsReader(cfg.DBPath)
		if err != nil {
			extractor.Close()
			return nil, err
		}
		AddFactsCallersTool(mcpServer, reader)
		s.reader = reader
	}
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	s.extractor.Close()
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}

// hierarchySource prefers the live batch and falls back to the snapshot on
// disk, then to an empty hierarchy.
type hierarchySource struct {
	batch    BatchSource
	snapshot graph.Storage
}

// NewHierarchySource combines a live batch and a stored snapshot. Either may
// be nil.
func NewHierarchySource(batch BatchSource, snapshot graph.Storage) HierarchySource {
	return &hierarchySource{batch: batch, snapshot: snapshot}
}

func (h *hierarchySource) Hierarchy(ctx context.Context) (*graph.Hierarchy, error) {
	if h.batch != nil {
		if last := h.batch.Last(); last != nil && last.Batch != nil {
			return last.Batch.Hierarchy, nil
		}
	}
	if h.snapshot != nil {
		return graph.LoadHierarchy(h.snapshot)
	}
	return graph.NewHierarchy(nil)
}
