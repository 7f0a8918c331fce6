package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/app"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var ingestFileID string

var (
	successText = color.New(color.FgGreen).SprintFunc()
	failedText  = color.New(color.FgRed).SprintFunc()
	mutedText   = color.New(color.Faint).SprintFunc()
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Index a PDF, text or CSV document",
	Long: `Fetch a document, split it into overlapping chunks, embed them and store
them under the given file id. The URL may be http(s) or file://.

Example:
  docchat ingest https://example.com/handbook.pdf --file-id handbook`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFileID, "file-id", "", "identifier to store the document under (required)")
	_ = ingestCmd.MarkFlagRequired("file-id")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var mu sync.Mutex
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%s\n", mutedText(fmt.Sprintf("  stored batch %d/%d", done, total)))
	}

	a, err := openApp(cmd.Context(), app.Options{AllowFileURLs: true, Progress: progress})
	if err != nil {
		return err
	}
	defer closeApp(a)

	fmt.Fprintf(out, "Ingesting %s as %q\n", args[0], ingestFileID)
	status, err := a.Ingestion.Ingest(cmd.Context(), domain.IngestRequest{
		FileURL: args[0],
		FileID:  ingestFileID,
	})
	if err != nil {
		var partial *domain.PartialIngestionError
		if errors.As(err, &partial) && partial.Report != nil {
			fmt.Fprintf(out, "%s %d of %d batches stored, failed: %v\n",
				failedText("PARTIAL"), partial.Report.Succeeded(), len(partial.Report.Batches),
				partial.Report.FailedBatches())
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintln(out, successText(status))
	return nil
}
