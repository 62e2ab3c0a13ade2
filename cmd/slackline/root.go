package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slackline",
	Short: "slackline is a Slack driver for chatbot host frameworks",
	Long: `slackline connects a chatbot host framework to Slack over two transports:
webhook HTTP events (Events API, slash commands, interactive actions) and
the realtime websocket API. It normalizes inbound platform payloads into a
single message model and turns framework replies back into Slack API calls.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(versionCmd)
}
