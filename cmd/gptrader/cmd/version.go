package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the gptrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gptrader version %s\n", version)
		fmt.Println("Genetic programming for FX trading rules")
		fmt.Println("https://github.com/rustyeddy/gptrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
