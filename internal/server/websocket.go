package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"couple-cards/internal/hub"

	"github.com/gorilla/websocket"
)

// uiHub fans sync updates out to every connected UI client of this agent.
type uiHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newUIHub() *uiHub {
	return &uiHub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *uiHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *uiHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

func (h *uiHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *uiHub) Broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected remote=%s", r.RemoteAddr)
	s.ws.Add(conn)
	s.ws.Send(conn, s.statusPayload())
	go s.readWS(conn)
}

func (s *Server) readWS(conn *websocket.Conn) {
	defer s.ws.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected error=%v", err)
			return
		}
	}
}

// forwardBridgeEvents pushes a fresh status frame to every UI client each
// time the bridge delivers an update from the partner.
func (s *Server) forwardBridgeEvents() {
	events := []string{
		hub.EventCoupleUpdated,
		hub.EventSessionCreated,
		hub.EventSessionJoined,
		hub.EventSessionUpdated,
		hub.EventCanvasUpdated,
		hub.EventSessionMessage,
		hub.EventSessionEnded,
		hub.EventPresenceUpdated,
		hub.EventReconnected,
	}
	for _, event := range events {
		s.bridge.On(event, func(json.RawMessage) {
			s.ws.Broadcast(s.statusPayload())
		})
	}
}
