package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/verselens-search-api/internal/client"
)

const defaultServer = "http://localhost:8001/api/v1"

var (
	// server is the API base URL including the prefix
	server string
	// outputFormat is the output format (json, yaml, table)
	outputFormat string
	// timeout bounds each API call
	timeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "versectl",
	Short: "CLI for the VerseLens semantic verse search API",
	Long: `versectl talks to a running VerseLens search API.

Examples:
  # Build the index for the default translation
  versectl build

  # Rebuild with another translation and wait until it is installed
  versectl build --translation WEB --force --wait

  # Search for verses
  versectl search "the lord is my shepherd" -k 5

  # Check the index status
  versectl status`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&server, "server", "", "API base URL (defaults to $VERSELENS_SERVER or "+defaultServer+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for each API call")
}

func newClient() *client.Client {
	url := server
	if url == "" {
		url = os.Getenv("VERSELENS_SERVER")
	}
	if url == "" {
		url = defaultServer
	}
	return client.New(url, timeout)
}

// printStructured writes v as json or yaml. It returns false for table output.
func printStructured(v any) (bool, error) {
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, err
		}
		fmt.Println(string(data))
		return true, nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, err
		}
		fmt.Print(string(data))
		return true, nil
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
