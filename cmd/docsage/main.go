package main

import (
	"fmt"
	"os"

	"github.com/docsage/docsage/internal/cli"
	"github.com/docsage/docsage/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsage",
		Short: "Docsage CLI - Document question answering",
		Long: `Docsage CLI asks questions against ingested documents and manages the
document store.

Environment variables:
  DOCSAGE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocumentsCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.MetricsCmd())
	rootCmd.AddCommand(client.EventsCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
