package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragserver/internal/searcher"
)

var (
	searchLimit int
	searchMode  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus",
	Long: `Run a search against the corpus and print ranked results.

Examples:
  ragctl search "connection pooling"
  ragctl search --mode sparse "exact keyword"
  ragctl search --mode trigram "fuzzy mispeled term"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (default from config)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "search mode: hybrid, dense, sparse, or trigram")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	mode, err := searcher.ParseMode(searchMode)
	if err != nil {
		return err
	}

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.TopK
	}

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	resp, err := comps.searcher.Search(cmd.Context(), searcher.Request{
		Query: strings.Join(args, " "),
		Limit: limit,
		Mode:  mode,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if resp.TotalResults == 0 {
		fmt.Println("No results")
		return nil
	}

	fmt.Printf("%d results (%s, %dms)\n\n", resp.TotalResults, resp.Mode, resp.Duration.Milliseconds())
	for _, r := range resp.Results {
		fmt.Printf("%d. %s #%d (score %.4f)\n", r.Rank, r.Filename, r.ChunkIndex, r.Score)

		var parts []string
		if r.DenseScore != nil {
			parts = append(parts, fmt.Sprintf("dense %.4f", *r.DenseScore))
		}
		if r.SparseScore != nil {
			parts = append(parts, fmt.Sprintf("sparse %.4f", *r.SparseScore))
		}
		if r.TrigramScore != nil {
			parts = append(parts, fmt.Sprintf("trigram %.4f", *r.TrigramScore))
		}
		if len(parts) > 0 {
			fmt.Printf("   [%s]\n", strings.Join(parts, ", "))
		}

		fmt.Printf("   %s\n\n", snippet(r.Content, 200))
	}
	return nil
}

// snippet truncates content to max runes on a rune boundary
func snippet(content string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
