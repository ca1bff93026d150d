package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ragserver/pkg/types"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or directories into the corpus",
	Long: `Ingest one or more files or directories. Directories are walked
recursively; only .txt, .md, and .json files are picked up. A file whose
name matches an existing document replaces it atomically.

Examples:
  ragctl ingest notes.md
  ragctl ingest ./docs ./examples`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4, "number of concurrent ingestion workers")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No supported files found (.txt, .md, .json)")
		return nil
	}

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	// Embedding dominates ingestion time, so files are processed
	// concurrently; the storage layer serializes its own writes.
	var ingested, failed int32

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(ingestWorkers)

	for _, path := range files {
		g.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
				return nil
			}

			doc, err := comps.pipeline.Ingest(gctx, filepath.Base(path), raw, formatForPath(path))
			if err != nil {
				atomic.AddInt32(&failed, 1)
				fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
				return nil
			}

			atomic.AddInt32(&ingested, 1)
			fmt.Printf("  %s (%d chunks)\n", doc.Filename, doc.ChunkCount)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("\nIngested %d of %d files", ingested, len(files))
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}

// collectFiles expands the argument list into supported files,
// walking directories recursively.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}

		if !info.IsDir() {
			if supportedFile(path) {
				files = append(files, path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if supportedFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}
	return files, nil
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".json":
		return true
	default:
		return false
	}
}

func formatForPath(path string) types.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return types.FormatMarkdown
	case ".json":
		return types.FormatJSON
	default:
		return types.FormatText
	}
}
