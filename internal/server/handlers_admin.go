package server

import (
	"log"
	"net/http"

	"couple-cards/internal/couple"
	"couple-cards/internal/detect"
	"couple-cards/internal/storage"

	"github.com/gin-gonic/gin"
)

type overrideRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type overrideResponse struct {
	detect.Result
	Applies string `json:"applies"`
}

type eventsQuery struct {
	Limit int `form:"limit"`
}

type profileRequest struct {
	Profile string `json:"profile" binding:"required,joincode"`
}

func (s *Server) adminHandler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/admin/profiles", s.handleAdminProfiles)
	router.POST("/admin/profile", s.handleAdminSwitchProfile)
	router.POST("/admin/mode", s.handleAdminOverride)
	router.POST("/admin/reset", s.handleAdminReset)
	router.GET("/admin/events/:coupleID", s.handleAdminEvents)
	return router
}

func (s *Server) handleAdminProfiles(c *gin.Context) {
	store := s.profileStore()
	profiles, err := store.Profiles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile directory unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active":   store.Profile(),
		"profiles": profiles,
	})
}

// handleAdminSwitchProfile swaps the active profile the way a tester swaps
// browser profiles: same origin, different private namespace.
func (s *Server) handleAdminSwitchProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req, bindMessages{
		"Profile": {
			"required": "profile is required",
			"joincode": "profile must be a url-safe token",
		},
	}, "invalid profile request") {
		return
	}
	store := s.profileStore().WithProfile(req.Profile)
	if err := store.RegisterProfile(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile registration failed"})
		return
	}
	s.setProfileStore(store)
	s.agent.SwitchProfile(req.Profile)
	log.Printf("profile switched profile=%s", req.Profile)
	c.JSON(http.StatusOK, gin.H{
		"active": req.Profile,
		"state":  s.agent.State(),
	})
}

// handleAdminOverride forces a transport mode, replacing whatever the
// detector decided. The bridge built at startup keeps its transport, so
// the override only takes effect when the process restarts; the response
// says so.
func (s *Server) handleAdminOverride(c *gin.Context) {
	var req overrideRequest
	if !bindJSON(c, &req, bindMessages{
		"Mode": {"required": "mode is required"},
	}, "invalid override request") {
		return
	}
	result, ok := s.detector.Override(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown transport mode"})
		return
	}
	log.Printf("transport mode forced mode=%s", result.Mode)
	c.JSON(http.StatusOK, overrideResponse{Result: result, Applies: "on_restart"})
}

// handleAdminReset wipes the active profile's persisted records. The shared
// namespace is untouched so the partner's copy survives.
func (s *Server) handleAdminReset(c *gin.Context) {
	store := s.profileStore()
	for _, key := range []string{storage.KeyPartner, storage.KeyCouple, storage.KeySession} {
		if err := store.Delete(key); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
			return
		}
	}
	log.Printf("profile reset profile=%s", store.Profile())
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleAdminEvents(c *gin.Context) {
	coupleID := c.Param("coupleID")
	var query eventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	rows, err := couple.RecentEvents(s.db, coupleID, query.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event trail unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}
