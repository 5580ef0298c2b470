package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the wickbot CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wickbot version %s\n", version)
		fmt.Println("An automated single-asset trading bot driven by candle wick signals")
		fmt.Println("https://github.com/rustyeddy/wickbot")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
