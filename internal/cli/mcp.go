package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mvp-joe/cortex-facts/internal/config"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpNoIndexFlag bool
	mcpWatchFlag   bool
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for code fact queries",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can query
code facts for the project.

The MCP server:
- Indexes the project in the background and answers from the linked batch
- Extracts files outside the batch (or with unsaved content) on demand
- Provides facts_extract, facts_select and facts_hierarchy tools
- Provides facts_callers when output.format is sqlite and the database exists
- Communicates via stdio (standard MCP transport)

Example:
  cortex-facts mcp --watch`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpNoIndexFlag, "no-index", false, "Do not index on startup; extract every file on demand")
	mcpCmd.Flags().BoolVarP(&mcpWatchFlag, "watch", "w", false, "Reindex in the background as files change")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := loadProject(rootDirFlag)
	if err != nil {
		return err
	}

	opts := p.cfg.ScorerOptions()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid symbol budget: %w", err)
	}

	fmt.Fprintf(os.Stderr, "cortex-facts MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project Root: %s\n", p.rootDir)

	mcpConfig := &mcp.MCPServerConfig{
		RootDir:       p.rootDir,
		Languages:     p.cfg.Languages,
		ScorerOptions: opts,
		GraphDir:      p.graphDir(),
	}
	if p.cfg.Output.Format == config.FormatSQLite {
		if path := p.outputPath(); fileExists(path) {
			mcpConfig.DBPath = path
			fmt.Fprintf(os.Stderr, "Facts Database: %s\n", path)
		}
	}
	fmt.Fprintln(os.Stderr)

	var batch mcp.BatchSource
	if !mcpNoIndexFlag {
		// Batches stay in memory; the configured output is left to `index`.
		fd, pipeline, cleanup, err := p.newPipeline(&indexer.NoOpProgressReporter{}, nil)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			cleanup()
		}()

		session := indexer.NewSession(fd, pipeline, nil, nil)
		batch = session

		go func() {
			start := time.Now()
			res, err := session.Index(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("Warning: background indexing failed: %v", err)
				}
				return
			}
			log.Printf("Indexed %d files in %v", len(res.Results), time.Since(start).Round(time.Millisecond))

			if mcpWatchFlag {
				if err := watch(ctx, session, fd, true); err != nil {
					log.Printf("Warning: %v", err)
				}
			}
		}()
	}

	server, err := mcp.NewMCPServer(mcpConfig, batch)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
