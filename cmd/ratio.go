package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/arekfu/posthoc/internal/result"
)

var ratioScoreB string

var ratioCmd = &cobra.Command{
	Use:   "ratio [report-a] [report-b]",
	Short: "Divide a selection of one report by the same selection of another",
	Long: `Extracts the selection described by the shared extract flags from both
reports and prints their ratio with propagated uncertainties. Use --score-b
to pick a different score in the second report.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(validFormats, extractFormat) {
			return fmt.Errorf("invalid format: %s. Valid options: %v", extractFormat, validFormats)
		}
		for _, path := range args {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("file does not exist: %s", path)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		srcA, err := extractSource(args[0])
		if err != nil {
			return err
		}

		scoreA := extractScore
		if ratioScoreB != "" {
			extractScore = ratioScoreB
			defer func() { extractScore = scoreA }()
		}
		srcB, err := extractSource(args[1])
		if err != nil {
			return err
		}

		ratio, err := srcA.Result.Div(result.Term(srcB.Result))
		if err != nil {
			return err
		}
		printResult(ratio, srcA.XLabel, "ratio")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ratioCmd)

	ratioCmd.Flags().AddFlagSet(extractCmd.Flags())
	ratioCmd.Flags().StringVar(&ratioScoreB, "score-b", "", "Score name in the second report")
}
