package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchDrones []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live events from a running convoyd server",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDrones, "drone", nil, "limit the stream to these drone IDs (repeatable); omit for all")
}

// serverFrame mirrors the hub's envelope shape for decoding without
// importing the server's internal package.
type serverFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}

	conn, _, err := websocket.DefaultDialer.Dial(serverAddr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverAddr, err)
	}
	defer conn.Close()

	if len(watchDrones) > 0 {
		sub := map[string]any{
			"type":    "Subscribe",
			"payload": map[string]any{"drone_ids": watchDrones},
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("send subscribe: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	framesCh := make(chan serverFrame)
	errCh := make(chan error, 1)

	go func() {
		for {
			var frame serverFrame
			if err := conn.ReadJSON(&frame); err != nil {
				errCh <- err
				return
			}
			framesCh <- frame
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "connected to %s, watching events (ctrl-c to stop)\n", serverAddr)

	for {
		select {
		case <-sigCh:
			return nil
		case err := <-errCh:
			return fmt.Errorf("connection closed: %w", err)
		case frame := <-framesCh:
			printFrame(cmd, frame)
		}
	}
}

func printFrame(cmd *cobra.Command, frame serverFrame) {
	out := cmd.OutOrStdout()
	switch frame.Type {
	case "InitialState":
		color.New(color.FgCyan).Fprintln(out, "--- initial state ---")
		fmt.Fprintln(out, string(frame.Payload))
	case "Event":
		color.New(color.FgGreen).Fprint(out, "[event] ")
		fmt.Fprintln(out, string(frame.Payload))
	case "Error":
		color.New(color.FgRed).Fprint(out, "[error] ")
		fmt.Fprintln(out, string(frame.Payload))
	default:
		fmt.Fprintf(out, "[%s] %s\n", frame.Type, string(frame.Payload))
	}
}
