package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:     "plab",
		Short:   "Prompt Lab - generate and iterate on HTML visualizations from a terminal",
		Version: version,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(modifyCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
