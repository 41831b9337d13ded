package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
	"github.com/spf13/cobra"
)

var (
	selectScoresFlag bool
	selectJSONFlag   bool
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select <file>",
	Short: "Show the most important declarations of a file",
	Long: `Select extracts one file and keeps the declarations that matter most, up to
the symbol budget of the file's size tier (see symbol_budget in the
configuration). When everything fits, declarations keep their source order;
otherwise they are ranked by importance.

Examples:
  cortex-facts select src/com/acme/User.java
  cortex-facts select --scores app/models.py
  cortex-facts select --json web/app.ts
`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().BoolVar(&selectScoresFlag, "scores", false, "Show the score breakdown per declaration")
	selectCmd.Flags().BoolVar(&selectJSONFlag, "json", false, "Print the selection as JSON")
}

func runSelect(cmd *cobra.Command, args []string) error {
	p, err := loadProject(rootDirFlag)
	if err != nil {
		return err
	}

	result, sel, err := selectFile(cmd.Context(), p, args[0])
	if err != nil {
		return err
	}

	if selectJSONFlag {
		return writeSelectionJSON(cmd.OutOrStdout(), result, sel, selectScoresFlag)
	}
	return writeSelectionTable(cmd.OutOrStdout(), result, sel, selectScoresFlag)
}

// selectFile extracts path on its own and applies the configured budget.
func selectFile(ctx context.Context, p *project, path string) (*facts.ParseResult, scorer.Selection, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := p.cfg.ScorerOptions()
	if err := opts.Validate(); err != nil {
		return nil, scorer.Selection{}, fmt.Errorf("invalid symbol budget: %w", err)
	}

	rel, err := projectRelative(p.rootDir, path)
	if err != nil {
		return nil, scorer.Selection{}, err
	}

	fd, pipeline, cleanup, err := p.newPipeline(&indexer.NoOpProgressReporter{}, nil)
	if err != nil {
		return nil, scorer.Selection{}, err
	}
	defer cleanup()

	files, err := fd.Load([]string{rel})
	if err != nil {
		return nil, scorer.Selection{}, err
	}
	if len(files) == 0 {
		return nil, scorer.Selection{}, fmt.Errorf("file not found: %s", path)
	}

	res, err := pipeline.Run(ctx, files)
	if err != nil {
		return nil, scorer.Selection{}, err
	}
	if len(res.Results) == 0 {
		return nil, scorer.Selection{}, fmt.Errorf("%s: language %q is not enabled", rel, files[0].Language)
	}

	result := res.Results[0]
	return result, scorer.Select(result.Symbols, result.FileLines, opts), nil
}

func writeSelectionTable(out io.Writer, r *facts.ParseResult, sel scorer.Selection, scores bool) error {
	fmt.Fprintf(out, "%s: %d lines, tier %s, budget %d, %d of %d declarations\n",
		r.Path, r.FileLines, sel.Tier, sel.Budget, len(sel.Symbols), len(r.Symbols))
	if r.Error != nil {
		fmt.Fprintf(out, "warning: %v\n", r.Error)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if scores {
		fmt.Fprintln(tw, "LINES\tKIND\tNAME\tSCORE\tVIS\tSEM\tDOC\tCPLX\tNOISE")
	} else {
		fmt.Fprintln(tw, "LINES\tKIND\tNAME\tSCORE")
	}
	for _, sym := range sel.Symbols {
		b := scorer.Score(sym)
		lines := fmt.Sprintf("%d-%d", sym.LineStart, sym.LineEnd)
		if scores {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
				lines, sym.Kind, sym.Name, b.Total(), b.Visibility, b.Semantic, b.Documentation, b.Complexity, b.Noise)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n", lines, sym.Kind, sym.Name, b.Total())
		}
	}
	return tw.Flush()
}

type selectionOutput struct {
	Path      string           `json:"path"`
	FileLines int              `json:"file_lines"`
	Tier      scorer.Tier      `json:"tier"`
	Budget    int              `json:"budget"`
	Truncated bool             `json:"truncated"`
	Symbols   []selectedOutput `json:"symbols"`
}

type selectedOutput struct {
	facts.Symbol
	Score     float64           `json:"score"`
	Breakdown *scorer.Breakdown `json:"breakdown,omitempty"`
}

func writeSelectionJSON(out io.Writer, r *facts.ParseResult, sel scorer.Selection, scores bool) error {
	doc := selectionOutput{
		Path:      r.Path,
		FileLines: r.FileLines,
		Tier:      sel.Tier,
		Budget:    sel.Budget,
		Truncated: sel.Truncated,
		Symbols:   make([]selectedOutput, 0, len(sel.Symbols)),
	}
	for _, sym := range sel.Symbols {
		b := scorer.Score(sym)
		entry := selectedOutput{Symbol: sym, Score: b.Total()}
		if scores {
			entry.Breakdown = &b
		}
		doc.Symbols = append(doc.Symbols, entry)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
