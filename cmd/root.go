package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the immobiliare-agent application
var rootCmd = &cobra.Command{
	Use:   "immobiliare-agent",
	Short: "Books property visits for a voice real-estate agent",
	Long: `immobiliare-agent answers the calendar questions of a voice agent:
which visit slots are free on a day, booking a visit, finding and cancelling
a caller's booking, and ending the call once the agent has finished speaking.

It can run as:
  - An MCP (Model Context Protocol) tool server (stdio, sse or streamable-http)
  - An HTTP webhook for hosted voice platforms
  - A CLI for checking availability and cleaning up test bookings`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "immobiliare-agent version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
