package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tedtam/fieldops/internal/api"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "fieldops",
	Short: "Field-operations CRM for debt-collection teams",
	Long: `fieldops tracks debt-collection customer accounts for field teams:
a local or shared record store, spreadsheet import/export, live change
notifications, and per-team performance reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client and server versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("fieldops client %s\n", version)

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		remote, err := serverVersion(cmd.Context(), c)
		if err != nil {
			printWarning("server not reachable: %v", err)
			return nil
		}
		fmt.Printf("fieldops server %s\n", remote)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(customersCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	api.Version = version
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
