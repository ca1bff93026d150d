// ragctl is the operational companion to ragserver. It works against
// the same database and configuration, so documents ingested here are
// immediately searchable over MCP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragserver/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Manage the document corpus from the command line",
	Long: `ragctl ingests, searches, and manages the hybrid search corpus
without going through the MCP protocol.

Example usage:
  ragctl ingest ./docs            # Ingest every supported file in a directory
  ragctl search "error handling"  # Run a hybrid search
  ragctl list                     # Show indexed documents
  ragctl status                   # Show corpus statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		path := cfgFile
		if path == "" {
			path = os.Getenv("RAGSERVER_CONFIG")
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $RAGSERVER_CONFIG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
