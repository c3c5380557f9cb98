package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arekfu/posthoc/internal/t4xml"
)

var scoresCmd = &cobra.Command{
	Use:   "scores [xml-report]",
	Short: "List the grids, scores and responses of an XML report",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", args[0])
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := t4xml.Open(args[0])
		if err != nil {
			return err
		}
		printNameList("Grids", x.GridNames())
		printNameList("Scores", x.ScoreNames())
		printNameList("Responses", x.ResponseNames())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoresCmd)
}
