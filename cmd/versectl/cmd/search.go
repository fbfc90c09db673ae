package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verselens-search-api/internal/models"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search verses by meaning",
	Long: `Rank verses by semantic similarity to a free-text query.

Examples:
  versectl search "love your enemies"
  versectl search "do not be afraid" -k 20 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchK, "results", "k", 0, "Number of results (defaults to the server's default)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var k *int
	if cmd.Flags().Changed("results") {
		k = &searchK
	}

	resp, err := newClient().Search(ctx, strings.Join(args, " "), k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if done, err := printStructured(resp); done {
		return err
	}
	return printResults(resp.Results)
}

func printResults(results []models.VerseResult) error {
	if len(results) == 0 {
		fmt.Println("No verses found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tSCORE\tREFERENCE\tTEXT\n")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.Score, r.Reference, truncate(r.Text, 80))
	}
	return w.Flush()
}
