package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/eventbus"
)

// stubEngine is a minimal EngineView for protocol-level hub tests.
type stubEngine struct {
	bus      *eventbus.Bus
	commands []domain.DroneCommand
}

func newStubEngine() *stubEngine {
	return &stubEngine{bus: eventbus.New(16, 16)}
}

func (s *stubEngine) Subscribe() (*eventbus.Receiver, uint64) { return s.bus.Subscribe() }
func (s *stubEngine) Unsubscribe(id uint64)                   { s.bus.Unsubscribe(id) }
func (s *stubEngine) Snapshot(tracking []domain.TrackingResult) domain.TrackerState {
	return domain.EmptyTrackerState()
}
func (s *stubEngine) LatestTrackingResults() []domain.TrackingResult { return nil }
func (s *stubEngine) HandleCommand(cmd domain.DroneCommand) error {
	s.commands = append(s.commands, cmd)
	return nil
}

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, srv
}

func TestHandshakeSendsInitialState(t *testing.T) {
	eng := newStubEngine()
	h := New(eng, zerolog.Nop())
	conn, srv := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	var frame ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "InitialState", frame.Type)
}

func TestEventIsForwardedToSubscriber(t *testing.T) {
	eng := newStubEngine()
	h := New(eng, zerolog.Nop())
	conn, srv := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	var initial ServerFrame
	require.NoError(t, conn.ReadJSON(&initial))

	eng.bus.Publish(domain.SystemEvent("info", "hello"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "Event", frame.Type)
}

func TestDroneCommandDispatchedToEngine(t *testing.T) {
	eng := newStubEngine()
	h := New(eng, zerolog.Nop())
	conn, srv := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	var initial ServerFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "DroneCommand",
		"payload": map[string]any{
			"drone_id": "R1",
			"command":  "PAUSE",
		},
	}))

	require.Eventually(t, func() bool {
		return len(eng.commands) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.DroneID("R1"), eng.commands[0].DroneID)
}

func TestUnknownFrameTypeReturnsProtocolError(t *testing.T) {
	eng := newStubEngine()
	h := New(eng, zerolog.Nop())
	conn, srv := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	var initial ServerFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "Bogus", "payload": nil}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "Error", frame.Type)
}

func TestSubscriberCountTracksConnections(t *testing.T) {
	eng := newStubEngine()
	h := New(eng, zerolog.Nop())
	conn, srv := dialHub(t, h)
	defer srv.Close()

	var initial ServerFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.Eventually(t, func() bool {
		return h.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return h.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}
