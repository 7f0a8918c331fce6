package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/app"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Remove an ingested document from the vector store",
	Long: `Remove every chunk stored under file-id. Run this before re-ingesting a
document that got shorter, so chunks past its new end do not linger.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer closeApp(a)

	id := args[0]
	n, err := a.Store.Count(ctx, id)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	if n == 0 {
		cmd.Printf("No chunks stored for %q\n", id)
		return nil
	}
	if err := a.Store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %d chunks for %q\n", n, id)
	return nil
}
