package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "restock-notifier",
	Short: "Back-in-stock email notifications for Contentful products",
	Long: `restock-notifier receives Contentful entry webhooks and, when a product
is back in stock, emails every customer who registered interest in it in
their own language, then removes the fulfilled registrations.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewNotifyCmd())
	rootCmd.AddCommand(NewVersionCmd())
}
