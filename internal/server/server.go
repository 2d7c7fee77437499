// Package server exposes the sync agent to its UI over HTTP and a push
// websocket, plus a small gin admin surface for profile management.
package server

import (
	"net/http"
	"sync"
	"time"

	"couple-cards/internal/config"
	"couple-cards/internal/couple"
	"couple-cards/internal/detect"
	"couple-cards/internal/hub"
	"couple-cards/internal/presence"
	"couple-cards/internal/restore"
	"couple-cards/internal/storage"

	"gorm.io/gorm"
)

type Server struct {
	agent     *couple.Reconciler
	bridge    hub.Bridge
	detector  *detect.Detector
	restorer  *restore.Manager
	heartbeat *presence.Heartbeat
	db        *gorm.DB
	cfg       config.Config
	ws        *uiHub

	storeMu sync.Mutex
	store   *storage.Adapter
}

type Options struct {
	Agent    *couple.Reconciler
	Bridge   hub.Bridge
	Detector *detect.Detector
	Store    *storage.Adapter
	DB       *gorm.DB
	Config   config.Config
}

func New(opts Options) *Server {
	s := &Server{
		agent:    opts.Agent,
		bridge:   opts.Bridge,
		detector: opts.Detector,
		store:    opts.Store,
		db:       opts.DB,
		cfg:      opts.Config,
		ws:       newUIHub(),
	}
	s.restorer = restore.NewManager(opts.Agent)
	s.heartbeat = presence.NewHeartbeat(
		opts.Agent,
		time.Duration(opts.Config.HeartbeatIntervalSeconds)*time.Second,
	)
	s.forwardBridgeEvents()
	return s
}

// Heartbeat exposes the presence schedule so main can stop it on shutdown.
func (s *Server) Heartbeat() *presence.Heartbeat {
	return s.heartbeat
}

// profileStore returns the adapter for the active profile. The admin
// profile switch swaps it at runtime, so every reader goes through here.
func (s *Server) profileStore() *storage.Adapter {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return s.store
}

func (s *Server) setProfileStore(adapter *storage.Adapter) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	s.store = adapter
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/auth", s.handleAuth)
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session/card", s.handleDrawCard)
	mux.HandleFunc("POST /api/session/strokes", s.handleAppendStroke)
	mux.HandleFunc("POST /api/session/notes", s.handleAppendNote)
	mux.HandleFunc("POST /api/session/messages", s.handleAppendMessage)
	mux.HandleFunc("POST /api/session/canvas/clear", s.handleClearCanvas)
	mux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/partner", s.handlePartner)
	mux.HandleFunc("POST /api/leave", s.handleLeave)
	mux.HandleFunc("GET /api/restore", s.handleRestoreDecision)
	mux.HandleFunc("POST /api/restore/resume", s.handleRestoreResume)
	mux.HandleFunc("POST /api/restore/restart", s.handleRestoreRestart)
	mux.HandleFunc("GET /ws/updates", s.handleWebsocket)
	mux.Handle("/admin/", s.adminHandler())
	return mux
}
