package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verselens-search-api/internal/models"
)

var (
	buildTranslation string
	buildForce       bool
	buildWait        bool
	buildPoll        time.Duration
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Request an index build",
	Long: `Ask the API to build the search index in the background.

Without --force the request is a no-op when an index is already installed.

Examples:
  # Build the server's default translation
  versectl build

  # Replace the installed index with WEB and wait for it
  versectl build --translation WEB --force --wait`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildTranslation, "translation", "t", "", "Translation to index (defaults to the server's default)")
	buildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "Rebuild even if an index is installed")
	buildCmd.Flags().BoolVarP(&buildWait, "wait", "w", false, "Wait for the build to finish")
	buildCmd.Flags().DurationVar(&buildPoll, "poll-interval", 2*time.Second, "Status poll interval while waiting")
}

func runBuild(cmd *cobra.Command, args []string) error {
	c := newClient()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	resp, err := c.Build(ctx, buildTranslation, buildForce)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to request build: %w", err)
	}

	if !buildWait || resp.Status == "exists" {
		if done, err := printStructured(resp); done {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	}

	fmt.Printf("%s, waiting...\n", resp.Message)
	st, err := waitForBuild(cmd.Context(), resp)
	if err != nil {
		return err
	}
	if done, err := printStructured(st); done {
		return err
	}
	return printStatus(st)
}

// waitForBuild polls status until no build is running
func waitForBuild(ctx context.Context, resp *models.BuildResponse) (*models.StatusResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := newClient()
	ticker := time.NewTicker(buildPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		st, err := c.Status(callCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to get status: %w", err)
		}
		if st.State == "building" {
			continue
		}
		if st.BuildID != resp.BuildID {
			return st, fmt.Errorf("build %s failed: %s", resp.BuildID, st.LastError)
		}
		return st, nil
	}
}
