package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"couple-cards/internal/couple"
)

type authRequest struct {
	Name         string `json:"name"`
	CoupleID     string `json:"couple_id"`
	PartnerName  string `json:"partner_name"`
	DeviceID     string `json:"device_id"`
	DrawingColor string `json:"drawing_color"`
}

type cardRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

type strokeRequest struct {
	Points []couple.Point `json:"points"`
	Color  string         `json:"color"`
	Width  float64        `json:"width"`
}

type noteRequest struct {
	Content string `json:"content"`
	Private bool   `json:"private"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type settingsRequest struct {
	AllowDrawing     bool   `json:"allow_drawing"`
	AllowNotes       bool   `json:"allow_notes"`
	AutoSync         bool   `json:"auto_sync"`
	NotificationMode string `json:"notification_mode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) statusPayload() map[string]any {
	detection := s.detector.Detect(context.Background())
	return map[string]any{
		"mode":      detection.Mode,
		"detection": detection,
		"state":     s.agent.State(),
		"self":      s.agent.Self(),
		"couple":    s.agent.Couple(),
		"session":   s.agent.Session(),
		"partner":   s.agent.ConnectedPartner(),
		"roster":    s.agent.Roster(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statusPayload())
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	self, err := s.agent.Authenticate(r.Context(), couple.AuthInput{
		Name:         req.Name,
		CoupleID:     req.CoupleID,
		PartnerName:  req.PartnerName,
		DeviceID:     req.DeviceID,
		DrawingColor: req.DrawingColor,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, couple.ErrCoupleFull) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	log.Printf("authenticated partner=%s couple=%s role=%s", self.Name, self.JoinCode, self.Role)
	// The heartbeat outlives this request.
	s.heartbeat.Start(context.Background())
	writeJSON(w, http.StatusOK, map[string]any{
		"partner": self,
		"state":   s.agent.State(),
		"couple":  s.agent.Couple(),
	})
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := s.agent.Session()
	if session == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDrawCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.agent.DrawCard(r.Context(), couple.Card{
		Text:     req.Text,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Session())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleAppendStroke(w http.ResponseWriter, r *http.Request) {
	var req strokeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.agent.AppendStroke(r.Context(), couple.Stroke{
		Points: req.Points,
		Color:  req.Color,
		Width:  req.Width,
	})
	if err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Session())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleAppendNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.agent.AppendNote(r.Context(), req.Content, req.Private); err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Session())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.agent.AppendMessage(r.Context(), req.Content); err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Session())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleClearCanvas(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.ClearCanvas(r.Context()); err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Session())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.agent.UpdateSettings(r.Context(), couple.Settings{
		AllowDrawing:     req.AllowDrawing,
		AllowNotes:       req.AllowNotes,
		AutoSync:         req.AutoSync,
		NotificationMode: req.NotificationMode,
	})
	if err != nil {
		writeError(w, sessionErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Couple())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handlePartner(w http.ResponseWriter, r *http.Request) {
	partner := s.agent.ConnectedPartner()
	writeJSON(w, http.StatusOK, map[string]any{
		"partner":   partner,
		"connected": partner != nil,
		"state":     s.agent.State(),
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.heartbeat.Stop()
	if err := s.agent.Leave(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("partner left couple")
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleRestoreDecision(w http.ResponseWriter, r *http.Request) {
	decision := s.restorer.Evaluate()
	writeJSON(w, http.StatusOK, map[string]any{
		"decision": decision,
		"session":  s.agent.Session(),
	})
}

func (s *Server) handleRestoreResume(w http.ResponseWriter, r *http.Request) {
	if err := s.restorer.Continue(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.heartbeat.Start(context.Background())
	writeJSON(w, http.StatusOK, s.statusPayload())
	s.ws.Broadcast(s.statusPayload())
}

func (s *Server) handleRestoreRestart(w http.ResponseWriter, r *http.Request) {
	s.heartbeat.Stop()
	if err := s.restorer.TerminateAndRestart(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
	s.ws.Broadcast(s.statusPayload())
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, couple.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, couple.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, couple.ErrDrawingDisabled), errors.Is(err, couple.ErrNotesDisabled):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
