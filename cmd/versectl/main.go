package main

import (
	"os"

	"github.com/verselens-search-api/cmd/versectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
