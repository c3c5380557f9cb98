package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arekfu/posthoc/internal/datasource"
	"github.com/arekfu/posthoc/internal/t4xml"
	"github.com/arekfu/posthoc/internal/txt"
)

var (
	extractFormat  string
	extractScore   string
	extractBatch   string
	extractRegion  int
	extractCell    []int
	extractStep    int
	extractNoDiv   bool
	extractTally   int
	extractZone    int
	extractColumns string
	extractComment string
	extractDelims  string
)

var validFormats = []string{"xml", "mctal", "listing", "columns"}

var extractCmd = &cobra.Command{
	Use:   "extract [report-file]",
	Short: "Extract one selection from a report and print it as columns",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(validFormats, extractFormat) {
			return fmt.Errorf("invalid format: %s. Valid options: %v", extractFormat, validFormats)
		}
		if _, err := os.Stat(args[0]); os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", args[0])
		}
		if _, err := parseBatch(extractBatch); err != nil {
			return err
		}
		switch extractFormat {
		case "xml", "listing":
			if extractScore == "" {
				return fmt.Errorf("--score is required for format %s", extractFormat)
			}
		case "mctal":
			if extractTally == 0 {
				return fmt.Errorf("--tally is required for format mctal")
			}
		}
		if len(extractCell) != 3 {
			return fmt.Errorf("--cell needs exactly 3 indices")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := extractSource(args[0])
		if err != nil {
			return err
		}
		printResult(src.Result, src.XLabel, src.YLabel)
		return nil
	},
}

func extractSource(path string) (*datasource.Source, error) {
	cache := datasource.NewCache()
	batch, _ := parseBatch(extractBatch)

	switch extractFormat {
	case "xml":
		sel := t4xml.Selection{
			Batch:       batch,
			RegionID:    extractRegion,
			Cell:        [3]int{extractCell[0], extractCell[1], extractCell[2]},
			TimeStep:    extractStep,
			DivideByBin: !extractNoDiv,
		}
		return datasource.FromT4XML(cache, path, extractScore, sel, "", nil)

	case "mctal":
		return datasource.FromMCTAL(cache, path, extractTally, extractZone, "", nil)

	case "listing":
		return datasource.FromListing(cache, path, batch, extractScore,
			extractRegion, !extractNoDiv, "", nil)

	default: // columns
		tokenize, err := txt.ColumnTokenizer(extractColumns, extractComment, extractDelims)
		if err != nil {
			return nil, err
		}
		return datasource.FromText(path, tokenize, "", "", "", nil)
	}
}

// parseBatch interprets a batch selector flag: "last" or a batch number.
func parseBatch(s string) (int, error) {
	if s == "last" {
		return t4xml.Last, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid batch selector %q: must be 'last' or a positive number", s)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "xml", "Report format")
	extractCmd.Flags().StringVarP(&extractScore, "score", "s", "", "Score name (xml, listing)")
	extractCmd.Flags().StringVarP(&extractBatch, "batch", "b", "last", "Batch number or 'last'")
	extractCmd.Flags().IntVarP(&extractRegion, "region", "r", 1, "Region id (xml) or rank (listing)")
	extractCmd.Flags().IntSliceVar(&extractCell, "cell", []int{0, 0, 0}, "Mesh cell indices x,y,z (xml)")
	extractCmd.Flags().IntVar(&extractStep, "time-step", 0, "Time step (xml)")
	extractCmd.Flags().BoolVar(&extractNoDiv, "no-divide-by-bin", false, "Do not divide contents by bin width")
	extractCmd.Flags().IntVarP(&extractTally, "tally", "t", 0, "Tally number (mctal)")
	extractCmd.Flags().IntVarP(&extractZone, "zone", "z", 0, "Zone number (mctal)")
	extractCmd.Flags().StringVar(&extractColumns, "columns", "0:1", "Column spec x:y[:ey[:ex]] (columns)")
	extractCmd.Flags().StringVar(&extractComment, "comment-chars", "#@", "Comment characters (columns)")
	extractCmd.Flags().StringVar(&extractDelims, "delimiter-chars", " \t", "Delimiter characters (columns)")

	extractCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return validFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
