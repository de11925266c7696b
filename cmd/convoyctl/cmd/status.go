package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/picogrid/convoy-tracker/pkg/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot snapshot of every tracked drone",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, _, err := websocket.DefaultDialer.Dial(serverAddr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverAddr, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frame serverFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return fmt.Errorf("read initial state: %w", err)
	}
	if frame.Type != "InitialState" {
		return fmt.Errorf("expected InitialState frame, got %s", frame.Type)
	}

	var state domain.TrackerState
	if err := json.Unmarshal(frame.Payload, &state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DRONE\tSTATUS\tBATTERY\tFUEL\tSPEED\tMISSION\tLAST UPDATE")
	for _, d := range state.Drones {
		missionID := "-"
		if d.MissionID != nil {
			missionID = string(*d.MissionID)
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%d%%\t%.1f km/h\t%s\t%s\n",
			d.Callsign, d.Status, d.Telemetry.BatteryPct, d.Telemetry.FuelPct,
			d.Telemetry.SpeedKmh, missionID, d.LastUpdate.Format(time.RFC3339))
	}
	w.Flush()

	fmt.Printf("\n%d drones, %d active, %d tracked, mission active: %v\n",
		state.Stats.DroneCount, state.Stats.ActiveCount, state.Stats.TrackingCount, state.Stats.MissionActive)
	return nil
}
