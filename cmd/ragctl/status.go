package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragserver/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus statistics and health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	status, err := comps.store.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	fmt.Printf("Database:        %s\n", cfg.DBPath)
	fmt.Printf("Documents:       %d\n", status.DocumentCount)
	fmt.Printf("Chunks:          %d\n", status.ChunkCount)
	fmt.Printf("Size:            %.2f MB\n", status.DatabaseSizeMB)
	fmt.Printf("Schema version:  %s\n", status.SchemaVersion)
	fmt.Printf("Embedding:       %s (%s, %d dims)\n",
		comps.embedder.Provider(), comps.embedder.Model(), comps.embedder.Dimension())
	fmt.Printf("Vector search:   native=%v (build mode %s)\n",
		status.Health.VectorSearchNative, storage.BuildMode)
	fmt.Printf("FTS index:       built=%v\n", status.Health.FTSIndexBuilt)
	return nil
}
