package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var translationsCmd = &cobra.Command{
	Use:     "translations",
	Aliases: []string{"tr"},
	Short:   "List translations the server can index",
	Args:    cobra.NoArgs,
	RunE:    runTranslations,
}

func init() {
	rootCmd.AddCommand(translationsCmd)
}

func runTranslations(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := newClient().Translations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list translations: %w", err)
	}

	if done, err := printStructured(resp); done {
		return err
	}

	cached := make(map[string]bool, len(resp.Cached))
	for _, t := range resp.Cached {
		cached[t] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRANSLATION\tCACHED\n")
	for _, t := range resp.Available {
		fmt.Fprintf(w, "%s\t%t\n", t, cached[t])
	}
	return w.Flush()
}
