package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "posthoc",
	Short: "Extract and combine simulation results",
	Long: `posthoc extracts binned results from particle-transport simulation
reports (structured XML output, MCTAL tally files, free-form listings and
generic column text) and combines them with proper error propagation.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}
