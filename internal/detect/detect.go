// Package detect probes the environment once at startup and picks the
// transport strategy the event bridge should wrap.
package detect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"couple-cards/internal/bridge"
	"couple-cards/internal/config"
	"couple-cards/internal/hub"

	"github.com/google/uuid"
)

// Result is advisory only; nothing is persisted.
type Result struct {
	Mode            hub.Mode `json:"mode"`
	Reason          string   `json:"reason"`
	HasRealBackend  bool     `json:"has_real_backend"`
	HasBroadcast    bool     `json:"has_broadcast"`
	Restricted      bool     `json:"restricted"`
	HasLocalStorage bool     `json:"has_local_storage"`
	Forced          bool     `json:"forced"`
}

type Detector struct {
	cfg     config.Config
	channel bridge.Channel
	client  *http.Client

	once   sync.Once
	mu     sync.Mutex
	result Result
}

// New builds a detector. channel may be nil when no broadcast primitive is
// configured for this process.
func New(cfg config.Config, channel bridge.Channel) *Detector {
	return &Detector{
		cfg:     cfg,
		channel: channel,
		client: &http.Client{
			Timeout: time.Duration(cfg.HealthProbeTimeoutMS) * time.Millisecond,
		},
	}
}

// Detect runs once per process and caches its result. It never fails: any
// internal error folds into the storage-fallback mode with the cause in the
// reason string.
func (d *Detector) Detect(ctx context.Context) Result {
	d.once.Do(func() {
		result := d.run(ctx)
		d.mu.Lock()
		d.result = result
		d.mu.Unlock()
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Override replaces the cached result with a forced mode. Valid overrides
// are respected unconditionally.
func (d *Detector) Override(raw string) (Result, bool) {
	mode, ok := hub.ParseMode(strings.TrimSpace(raw))
	if !ok {
		return Result{}, false
	}
	forced := forcedResult(mode)
	d.once.Do(func() {})
	d.mu.Lock()
	d.result = forced
	d.mu.Unlock()
	return forced, true
}

func forcedResult(mode hub.Mode) Result {
	return Result{
		Mode:            mode,
		Reason:          "forced by override",
		Forced:          true,
		HasLocalStorage: true,
	}
}

func (d *Detector) run(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Mode:            hub.ModeStorage,
				Reason:          fmt.Sprintf("detection failed: %v", r),
				HasLocalStorage: true,
			}
		}
	}()

	if mode, ok := hub.ParseMode(d.cfg.ForcedBackend); ok {
		return forcedResult(mode)
	}

	result.HasLocalStorage = true

	if d.checkRealBackend(ctx) {
		result.Mode = hub.ModeRemote
		result.HasRealBackend = true
		result.Reason = "remote backend healthy"
		return result
	}

	if d.channel == nil {
		result.Mode = hub.ModeStorage
		result.Reason = "remote backend unavailable, no broadcast primitive"
		return result
	}
	result.HasBroadcast = true

	if !d.checkEcho(ctx) {
		result.Mode = hub.ModeStorage
		result.Restricted = true
		result.Reason = "broadcast echo missing, assuming restricted context"
		return result
	}

	result.Mode = hub.ModeBroadcast
	result.Reason = "remote backend unavailable, broadcast primitive healthy"
	return result
}

// checkRealBackend probes the health endpoint, then the secure endpoint.
// Timeouts resolve to false, never to an error.
func (d *Detector) checkRealBackend(ctx context.Context) bool {
	if d.probeHealth(ctx, d.cfg.HubURL) {
		return true
	}
	if d.cfg.HubSecureURL != "" && d.cfg.HubSecureURL != d.cfg.HubURL {
		return d.probeHealth(ctx, d.cfg.HubSecureURL)
	}
	return false
}

func (d *Detector) probeHealth(ctx context.Context, base string) bool {
	if base == "" {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.HealthProbeTimeoutMS)*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, strings.TrimSuffix(base, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// checkEcho publishes a self-addressed frame and waits for the origin to
// echo it back. Restricted/private contexts swallow the echo.
func (d *Detector) checkEcho(ctx context.Context) bool {
	timeout := time.Duration(d.cfg.EchoProbeTimeoutMS) * time.Millisecond
	echoCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	frames, unsubscribe, err := d.channel.Subscribe(echoCtx)
	if err != nil {
		return false
	}
	defer unsubscribe()
	token := []byte("echo-probe-" + uuid.New().String())
	if err := d.channel.Publish(echoCtx, token); err != nil {
		return false
	}
	for {
		select {
		case <-echoCtx.Done():
			return false
		case raw, ok := <-frames:
			if !ok {
				return false
			}
			if string(raw) == string(token) {
				return true
			}
		}
	}
}
