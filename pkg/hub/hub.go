// Package hub implements the real-time subscriber fan-out described
// in §4.J: per-connection session state, the JSON-over-websocket frame
// protocol in §6, and dispatch of inbound commands back to the
// tracking engine. It is the Go realization of the source's
// drone-websocket crate, using gorilla/websocket in place of the
// source's tokio-tungstenite transport.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/picogrid/convoy-tracker/pkg/convoyerr"
	"github.com/picogrid/convoy-tracker/pkg/domain"
	"github.com/picogrid/convoy-tracker/pkg/eventbus"
	"github.com/picogrid/convoy-tracker/pkg/metrics"
)

// ServerFrame is the envelope shape for every server-originated frame:
// {"type":…,"payload":…}, per §6.
type ServerFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ErrorPayload is the payload of an Error server frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload is the payload of a Ping server frame.
type PingPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// clientFrame is the envelope shape for client-originated frames. Type
// dispatches to one of the concrete payload shapes below.
type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscribePayload struct {
	DroneIDs []domain.DroneID `json:"drone_ids,omitempty"`
}

type droneCommandPayload struct {
	DroneID domain.DroneID     `json:"drone_id"`
	Command domain.CommandKind `json:"command"`
	WaypointID domain.WaypointID `json:"waypoint_id,omitempty"`
	SpeedKmh float64            `json:"speed_kmh,omitempty"`
	Armed    bool               `json:"armed,omitempty"`
}

type pongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EngineView is the subset of the tracking engine the hub depends on:
// a subscribable event bus, a point-in-time snapshot for the
// handshake, and a place to forward inbound commands.
type EngineView interface {
	Subscribe() (*eventbus.Receiver, uint64)
	Unsubscribe(id uint64)
	Snapshot(tracking []domain.TrackingResult) domain.TrackerState
	LatestTrackingResults() []domain.TrackingResult
	HandleCommand(cmd domain.DroneCommand) error
}

// session is one connected subscriber's state, per §4.J.
type session struct {
	id          domain.SubscriberID
	conn        *websocket.Conn
	connectedAt time.Time

	mu     sync.RWMutex
	filter map[domain.DroneID]struct{} // nil = subscribed to all
}

func (s *session) wants(id domain.DroneID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == nil {
		return true
	}
	_, ok := s.filter[id]
	return ok
}

func (s *session) setFilter(ids []domain.DroneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		s.filter = nil
		return
	}
	s.filter = make(map[domain.DroneID]struct{}, len(ids))
	for _, id := range ids {
		s.filter[id] = struct{}{}
	}
}

func (s *session) clearFilter(ids []domain.DroneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		s.filter = nil
		return
	}
	if s.filter == nil {
		return
	}
	for _, id := range ids {
		delete(s.filter, id)
	}
}

// Hub accepts websocket connections, relays bus events to each
// matching subscriber, and dispatches inbound commands to the engine.
type Hub struct {
	engine  EngineView
	log     zerolog.Logger
	metrics *metrics.Registry

	mu       sync.RWMutex
	sessions map[domain.SubscriberID]*session
}

// New constructs a Hub backed by engine.
func New(engine EngineView, log zerolog.Logger) *Hub {
	return &Hub{
		engine:   engine,
		log:      log.With().Str("component", "hub").Logger(),
		sessions: make(map[domain.SubscriberID]*session),
	}
}

// SetMetrics attaches the §4.L metrics registry the hub updates as
// subscribers connect, disconnect, and exchange frames. A nil or
// never-set registry leaves the hub fully functional.
func (h *Hub) SetMetrics(reg *metrics.Registry) { h.metrics = reg }

// SubscriberCount returns the number of currently connected sessions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeHTTP upgrades the request to a websocket connection and runs
// that subscriber's session until it disconnects. It is the hub's only
// HTTP-facing surface; routing it under a path is the caller's concern
// (the out-of-scope HTTP layer named in §1).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.serve(conn)
}

func (h *Hub) serve(conn *websocket.Conn) {
	sess := &session{
		id:          domain.NewSubscriberID(),
		conn:        conn,
		connectedAt: time.Now(),
	}

	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SubscriberConns.Inc()
	}

	recv, busID := h.engine.Subscribe()

	log := h.log.With().Str("subscriber_id", string(sess.id)).Logger()
	log.Info().Msg("subscriber connected")

	defer func() {
		h.engine.Unsubscribe(busID)
		h.mu.Lock()
		delete(h.sessions, sess.id)
		h.mu.Unlock()
		if h.metrics != nil {
			h.metrics.SubscriberConns.Dec()
		}
		_ = conn.Close()
		log.Info().Msg("subscriber disconnected")
	}()

	if err := h.sendInitialState(sess); err != nil {
		log.Warn().Err(err).Msg("failed to send initial state")
		return
	}

	done := make(chan struct{})
	go h.readLoop(sess, log, done)

	for {
		select {
		case <-done:
			return
		case ev, ok := <-recv.Events():
			if !ok {
				return
			}
			h.deliverIfWanted(sess, log, ev)
		case n, ok := <-recv.Lagged():
			if !ok {
				return
			}
			log.Warn().Uint64("dropped", n).Msg("subscriber lagged behind event bus")
		case <-recv.Closed():
			return
		}
	}
}

func (h *Hub) deliverIfWanted(sess *session, log zerolog.Logger, ev domain.Event) {
	if id, ok := eventDroneID(ev); ok && !sess.wants(id) {
		return
	}
	if err := h.writeFrame(sess, ServerFrame{Type: "Event", Payload: ev}); err != nil {
		log.Warn().Err(err).Msg("failed to deliver event")
	}
}

// eventDroneID extracts the DroneID an event pertains to, if the
// payload carries one. Events with no drone association (mission,
// system) always pass the filter.
func eventDroneID(ev domain.Event) (domain.DroneID, bool) {
	switch p := ev.Payload.(type) {
	case domain.DronePositionPayload:
		return p.DroneID, true
	case domain.DroneStatusPayload:
		return p.DroneID, true
	case domain.DroneTelemetryPayload:
		return p.DroneID, true
	case domain.DroneConnectionPayload:
		return p.DroneID, true
	case domain.WaypointPayload:
		return p.DroneID, true
	case domain.AlertPayload:
		if p.Alert.DroneID != nil {
			return *p.Alert.DroneID, true
		}
	}
	return "", false
}

func (h *Hub) sendInitialState(sess *session) error {
	state := h.engine.Snapshot(h.engine.LatestTrackingResults())
	return h.writeFrame(sess, ServerFrame{Type: "InitialState", Payload: state})
}

func (h *Hub) writeFrame(sess *session, frame ServerFrame) error {
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := sess.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.SubscriberMessagesSent.Inc()
	}
	return nil
}

func (h *Hub) writeError(sess *session, category convoyerr.Category, message string) {
	_ = h.writeFrame(sess, ServerFrame{Type: "Error", Payload: ErrorPayload{Code: string(category), Message: message}})
}

// readLoop handles client-originated frames until the connection
// closes, a close frame arrives, or a transport error occurs — the
// three closure triggers named in §4.J.
func (h *Hub) readLoop(sess *session, log zerolog.Logger, done chan<- struct{}) {
	defer close(done)

	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.SubscriberMessagesReceived.Inc()
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.writeError(sess, convoyerr.CategoryBadInput, "malformed frame")
			continue
		}

		switch frame.Type {
		case "Subscribe":
			var p subscribePayload
			_ = json.Unmarshal(frame.Payload, &p)
			sess.setFilter(p.DroneIDs)

		case "Unsubscribe":
			var p subscribePayload
			_ = json.Unmarshal(frame.Payload, &p)
			sess.clearFilter(p.DroneIDs)

		case "RequestState":
			// Acknowledged but served out-of-band over HTTP, per §4.J.

		case "DroneCommand":
			var p droneCommandPayload
			if err := json.Unmarshal(frame.Payload, &p); err != nil {
				h.writeError(sess, convoyerr.CategoryBadInput, "malformed drone command")
				continue
			}
			if p.DroneID == "" {
				h.writeError(sess, convoyerr.CategoryBadInput, "drone command missing drone_id")
				continue
			}
			cmd := domain.DroneCommand{
				DroneID:    p.DroneID,
				Kind:       p.Command,
				WaypointID: p.WaypointID,
				SpeedKmh:   p.SpeedKmh,
				Armed:      p.Armed,
			}
			if err := h.engine.HandleCommand(cmd); err != nil {
				category, ok := convoyerr.CategoryOf(err)
				if !ok {
					category = convoyerr.CategoryFatal
				}
				h.writeError(sess, category, err.Error())
			}

		case "Pong":
			var p pongPayload
			_ = json.Unmarshal(frame.Payload, &p)
			log.Debug().Time("client_timestamp", p.Timestamp).Msg("pong received")

		default:
			h.writeError(sess, convoyerr.CategoryProtocol, "unknown frame type: "+frame.Type)
		}
	}
}

// Broadcast sends frame to every connected subscriber, for example a
// Ping from a caller-driven keepalive loop.
func (h *Hub) Broadcast(frame ServerFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sess := range h.sessions {
		_ = h.writeFrame(sess, frame)
	}
}
