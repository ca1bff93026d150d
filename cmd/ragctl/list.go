package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	docs, err := comps.store.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents indexed")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tFORMAT\tSIZE\tCHUNKS\tUPDATED")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			doc.Filename, doc.Format, doc.FileSize, doc.ChunkCount,
			doc.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
