package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDirFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cortex-facts",
	Short: "Extract code facts from Python, PHP, Java and TypeScript projects",
	Long: `cortex-facts parses source files and emits structured facts: declarations
with signatures and docstrings, imports, inheritance and call sites whose
targets are resolved to fully qualified names across the whole project.

Configuration is read from .cortex/config.yml in the project root and can be
overridden with CORTEX_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDirFlag, "root", "C", "", "project root (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
