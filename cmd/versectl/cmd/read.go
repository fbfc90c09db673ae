package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var readTranslation string

var readCmd = &cobra.Command{
	Use:   "read <book> <chapter>",
	Short: "Print a chapter",
	Long: `Print one chapter of a translation, verse by verse.

Examples:
  versectl read John 11
  versectl read "1 John" 4 --translation WEB`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVarP(&readTranslation, "translation", "t", "KJV", "Translation to read")
}

func runRead(cmd *cobra.Command, args []string) error {
	chapter, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return fmt.Errorf("chapter must be a number: %q", args[len(args)-1])
	}
	book := strings.Join(args[:len(args)-1], " ")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := newClient().Chapter(ctx, readTranslation, book, chapter)
	if err != nil {
		return fmt.Errorf("failed to read %s %d: %w", book, chapter, err)
	}

	if done, err := printStructured(resp); done {
		return err
	}

	fmt.Printf("%s %d (%s)\n\n", resp.Book, resp.Chapter, resp.Translation)
	for _, v := range verseNumbers(resp.Verses) {
		fmt.Printf("%3d  %s\n", v, resp.Verses[strconv.Itoa(v)])
	}
	return nil
}

// verseNumbers returns the verse keys in numeric order
func verseNumbers(verses map[string]string) []int {
	nums := make([]int, 0, len(verses))
	for k := range verses {
		if n, err := strconv.Atoi(k); err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}
