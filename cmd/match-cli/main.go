package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "match-cli",
		Short:        "Organ donor matching toolkit",
		Long:         `Label training pairs, score donor matches and inspect region distances from local datasets`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("regions", "", "YAML region table (defaults to the built-in table)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")

	rootCmd.AddCommand(createLabelCmd())
	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createEligibilityCmd())
	rootCmd.AddCommand(createRegionsCmd())
	rootCmd.AddCommand(createDistanceCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createIndexCmd())
	rootCmd.AddCommand(createActivitiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
