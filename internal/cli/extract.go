package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/spf13/cobra"
)

var (
	extractLinesFlag bool
	extractQuietFlag bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract facts for source files and print them as JSON",
	Long: `Extract parses the given files, resolves their names against each other and
prints one JSON object per file to stdout. Without arguments every file the
configuration selects is extracted.

Only the files in the batch take part in resolution: a call into a file that
is not given resolves as if that file did not exist.

Examples:
  # Extract one file
  cortex-facts extract src/com/acme/User.java

  # Extract two files that reference each other, as JSON lines
  cortex-facts extract --jsonl app/models.py app/views.py

  # Extract the whole project
  cortex-facts extract > facts.json
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractLinesFlag, "jsonl", false, "Print one JSON object per line")
	extractCmd.Flags().BoolVarP(&extractQuietFlag, "quiet", "q", false, "Disable progress output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	p, err := loadProject(rootDirFlag)
	if err != nil {
		return err
	}

	stats, err := extractFiles(cmd.Context(), p, args, extractLinesFlag, extractQuietFlag, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if stats.Skipped > 0 && !extractQuietFlag {
		log.Printf("Warning: skipped %d file(s) with a disabled or unknown language", stats.Skipped)
	}
	return nil
}

// extractFiles runs one batch over paths (every discovered file when empty)
// and writes the results to out.
func extractFiles(ctx context.Context, p *project, paths []string, lines, quiet bool, out io.Writer) (*indexer.Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	progress := NewCLIProgressReporter(quiet, os.Stderr)
	fd, pipeline, cleanup, err := p.newPipeline(progress, nil)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var res *indexer.Result
	if len(paths) == 0 {
		res, err = pipeline.Index(ctx, fd)
	} else {
		rel := make([]string, 0, len(paths))
		for _, path := range paths {
			r, err := projectRelative(p.rootDir, path)
			if err != nil {
				return nil, err
			}
			rel = append(rel, r)
		}

		var files []indexer.SourceFile
		files, err = fd.Load(rel)
		if err != nil {
			return nil, err
		}
		if len(files) < len(rel) {
			return nil, fmt.Errorf("%d of %d file(s) not found", len(rel)-len(files), len(rel))
		}
		res, err = pipeline.Run(ctx, files)
	}
	if err != nil {
		return nil, err
	}

	if err := indexer.NewJSONWriter("", lines, out).WriteResults(ctx, res.Results); err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// projectRelative converts a command-line path (absolute or relative to the
// working directory) to a slash-separated path under rootDir.
func projectRelative(rootDir, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project root %s", path, rootDir)
	}
	return filepath.ToSlash(rel), nil
}
