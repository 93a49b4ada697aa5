package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/core"
)

// Server manages the HTTP and WebSocket services.
type Server struct {
	Hub          *Hub
	state        *core.State
	eventBus     *core.EventBus
	commands     core.CommandChannel
	getPatterns  func() ([]string, error)
	getSchedules func() interface{}

	httpServer     *http.Server
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewServer creates a new server instance. Call Run to start the hub and the
// event forwarding before ListenAndServe.
func NewServer(state *core.State, eb *core.EventBus, commands core.CommandChannel, getPatterns func() ([]string, error), getSchedules func() interface{}, port string, staticFilesDir string, allowedOrigins []string) *Server {
	s := &Server{
		Hub:            NewHub(),
		state:          state,
		eventBus:       eb,
		commands:       commands,
		getPatterns:    getPatterns,
		getSchedules:   getSchedules,
		allowedOrigins: allowedOrigins,
	}

	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticFilesDir)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Addr: ":" + port, Handler: mux}

	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		log.Println("[WS] Warning: CheckOrigin is disabled.")
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.allowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	log.Printf("[WS] Connection blocked: Origin '%s' not in allowed list.", origin)
	return false
}

// Run drives the hub and pushes state changes to clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.Hub.Run(ctx)

	events := []core.EventType{
		core.StateChangedEvent,
		core.PatternChangedEvent,
		core.ScheduleChangedEvent,
		core.BrokerConnectedEvent,
	}
	sub := s.eventBus.Subscribe(events...)
	defer s.eventBus.Unsubscribe(sub, events...)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			switch ev.Type {
			case core.PatternChangedEvent:
				s.Hub.Broadcast(s.patternStatus())
			case core.ScheduleChangedEvent:
				s.Hub.Broadcast(NewMessage("schedule_list", s.getSchedules()))
			default:
				s.Hub.Broadcast(s.deviceState())
			}
		}
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) deviceState() Message {
	st := s.state.Clone()
	return NewMessage("device_state", DeviceState{
		IsOn:            st.Power,
		Auto:            st.Auto,
		R:               st.Target.R,
		G:               st.Target.G,
		B:               st.Target.B,
		Hex:             st.Target.Hex(),
		Brightness:      st.Brightness,
		BrokerConnected: st.BrokerConnected,
	})
}

func (s *Server) patternStatus() Message {
	return NewMessage("pattern_status", map[string]string{
		"running": s.state.Clone().RunningPattern,
	})
}

// greet sends the initial snapshot a fresh client needs.
func (s *Server) greet(conn ClientConn) {
	_ = conn.WriteJSON(s.deviceState())

	if patterns, err := s.getPatterns(); err == nil {
		_ = conn.WriteJSON(NewMessage("pattern_list", patterns))
	}
	_ = conn.WriteJSON(s.patternStatus())
	_ = conn.WriteJSON(NewMessage("schedule_list", s.getSchedules()))
}

// handleMessage validates one client message and queues it.
func (s *Server) handleMessage(raw []byte) error {
	cmd, err := decodeCommand(raw)
	if err != nil {
		return err
	}
	if !s.commands.Send(cmd) {
		log.Printf("[WS] Command queue full, dropping %s", cmd.Type)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	s.greet(conn)
	s.Hub.Register(conn)
	defer s.Hub.Unregister(conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if err := s.handleMessage(msg); err != nil {
			log.Printf("[WS] Rejected command: %v", err)
		}
	}
}
