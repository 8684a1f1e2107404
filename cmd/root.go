package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fedapay-payments",
	Short: "FedaPay payments microservice",
	Long:  "A payments microservice that opens FedaPay transactions, validates their webhooks, and applies approved payments to the paid resource.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
