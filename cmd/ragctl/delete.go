package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ragserver/internal/storage"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	filename := args[0]
	doc, err := comps.store.GetDocumentByFilename(cmd.Context(), filename)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document not found: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}

	if err := comps.store.DeleteDocument(cmd.Context(), doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted %s\n", filename)
	return nil
}
