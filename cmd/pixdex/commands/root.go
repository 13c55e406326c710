package commands

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pixdex/internal/config"
)

var (
	// Global flags
	envName  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pixdex",
	Short: "Hybrid visual and OCR image retrieval",
	Long: `pixdex - image retrieval that blends CLIP visual similarity with
similarity over text recognized in the images.

Storage backends: Valkey or Redis (search module) and Postgres (pgvector).
Images live in an S3-compatible bucket (MinIO).

Examples:
  # Run the API server
  pixdex serve

  # Build the ANN indexes and wait for them
  pixdex indexes ensure

  # Add images and query them
  pixdex ingest photos/*.png
  pixdex search "exit sign" -k 5`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", config.GetEnv(),
		"environment; selects config/<env>.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(versionCmd)
}
