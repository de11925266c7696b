// Package cmd implements convoyctl, the operator CLI for the convoy
// tracking server: a websocket client that watches the event stream
// and issues drone commands, adapted from the teacher's legion-sim CLI
// command tree (cobra root + subcommands, survey for interactive
// prompts).
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	logLevel   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "convoyctl",
	Short: "Operator CLI for the convoy tracking server",
	Long: `convoyctl connects to a running convoyd server over its subscriber
websocket to watch the live event stream and issue drone commands.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "ws://localhost:8080/ws", "convoyd websocket address")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
