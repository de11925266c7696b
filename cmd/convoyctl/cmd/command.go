package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cmdDroneID  string
	cmdKind     string
	cmdWaypoint string
	cmdSpeed    float64
	cmdArmed    bool
)

var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Issue a drone command to a running convoyd server",
	Long: `command builds a DroneCommand frame and sends it over the hub's
websocket. Flags not given on the command line are collected
interactively.`,
	RunE: runCommand,
}

var commandKinds = []string{
	"START", "PAUSE", "RESUME", "RETURN_TO_BASE",
	"EMERGENCY_STOP", "GO_TO_WAYPOINT", "SET_SPEED", "SET_ARMED",
}

func init() {
	commandCmd.Flags().StringVar(&cmdDroneID, "drone-id", "", "target drone ID")
	commandCmd.Flags().StringVar(&cmdKind, "command", "", "command kind (START, PAUSE, RESUME, RETURN_TO_BASE, EMERGENCY_STOP, GO_TO_WAYPOINT, SET_SPEED, SET_ARMED)")
	commandCmd.Flags().StringVar(&cmdWaypoint, "waypoint-id", "", "waypoint ID, for GO_TO_WAYPOINT")
	commandCmd.Flags().Float64Var(&cmdSpeed, "speed-kmh", 0, "target speed, for SET_SPEED")
	commandCmd.Flags().BoolVar(&cmdArmed, "armed", false, "armed state, for SET_ARMED")
}

func runCommand(cmd *cobra.Command, args []string) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	if cmdDroneID == "" {
		if !interactive {
			return fmt.Errorf("--drone-id is required when stdin is not a terminal")
		}
		prompt := &survey.Input{Message: "Drone ID:"}
		if err := survey.AskOne(prompt, &cmdDroneID, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	if cmdKind == "" {
		if !interactive {
			return fmt.Errorf("--command is required when stdin is not a terminal")
		}
		prompt := &survey.Select{
			Message: "Command:",
			Options: commandKinds,
		}
		if err := survey.AskOne(prompt, &cmdKind); err != nil {
			return err
		}
	}

	if cmdKind == "EMERGENCY_STOP" && interactive {
		var confirmed bool
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Send EMERGENCY_STOP to %s? This cannot be undone.", cmdDroneID),
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	switch cmdKind {
	case "GO_TO_WAYPOINT":
		if cmdWaypoint == "" {
			prompt := &survey.Input{Message: "Waypoint ID:"}
			if err := survey.AskOne(prompt, &cmdWaypoint, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
	case "SET_SPEED":
		if cmdSpeed == 0 {
			var speedStr string
			prompt := &survey.Input{Message: "Speed (km/h):"}
			if err := survey.AskOne(prompt, &speedStr, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
			fmt.Sscanf(speedStr, "%f", &cmdSpeed)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(serverAddr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverAddr, err)
	}
	defer conn.Close()

	payload := map[string]any{
		"drone_id": cmdDroneID,
		"command":  cmdKind,
	}
	if cmdWaypoint != "" {
		payload["waypoint_id"] = cmdWaypoint
	}
	if cmdSpeed != 0 {
		payload["speed_kmh"] = cmdSpeed
	}
	if cmdArmed {
		payload["armed"] = cmdArmed
	}

	frame := map[string]any{"type": "DroneCommand", "payload": payload}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	// The hub answers a command only on failure, but it also sends the
	// InitialState handshake and relays events on this connection. Skip
	// those frames until an Error arrives; the short deadline ends the
	// loop so a successful command doesn't hang waiting for a frame that
	// never comes.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var reply serverFrame
		if err := conn.ReadJSON(&reply); err != nil {
			break
		}
		if reply.Type != "Error" {
			continue
		}
		var ep struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(reply.Payload, &ep)
		return fmt.Errorf("command rejected: %s: %s", ep.Code, ep.Message)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "command %s sent to %s\n", cmdKind, cmdDroneID)
	return nil
}
