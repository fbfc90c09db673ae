package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/verselens-search-api/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the index status",
	Long: `Show whether the search index is ready, how many verses it holds and
what the last build did.

Examples:
  versectl status
  versectl status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := newClient().Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if done, err := printStructured(st); done {
		return err
	}
	return printStatus(st)
}

func printStatus(st *models.StatusResponse) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "State:\t%s\n", st.State)
	fmt.Fprintf(w, "Ready:\t%t\n", st.Ready)
	if st.Translation != "" {
		fmt.Fprintf(w, "Translation:\t%s\n", st.Translation)
	}
	fmt.Fprintf(w, "Verses:\t%d\n", st.VerseCount)
	if st.Dimension > 0 {
		fmt.Fprintf(w, "Dimension:\t%d\n", st.Dimension)
	}
	if st.BuildID != "" {
		fmt.Fprintf(w, "Build ID:\t%s\n", st.BuildID)
	}
	if st.BuildingTranslation != "" {
		fmt.Fprintf(w, "Building:\t%s\n", st.BuildingTranslation)
	}
	if st.LastBuiltAt != nil {
		fmt.Fprintf(w, "Built At:\t%s\n", st.LastBuiltAt.Format(time.RFC3339))
	}
	if st.LastBuildSeconds > 0 {
		fmt.Fprintf(w, "Build Took:\t%s\n", time.Duration(st.LastBuildSeconds*float64(time.Second)).Round(time.Millisecond))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "Last Error:\t%s\n", truncate(st.LastError, 120))
	}

	return w.Flush()
}
