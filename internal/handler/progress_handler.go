package handler

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/internal/pkg/logger"
	"evidence-intel-be/internal/service"
	internalWS "evidence-intel-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// pollInterval paces the fallback progress poller. Live pipeline events arrive
// through the consumer bridge; the poller covers phase changes made by plain
// HTTP calls.
const pollInterval = time.Second

type ProgressHandler struct {
	sessions service.ISessionService
	research service.IResearchService
	hub      *internalWS.Hub
	logger   logger.ILogger

	mu      sync.Mutex
	pollers map[uuid.UUID]struct{}
}

func NewProgressHandler(sessions service.ISessionService, research service.IResearchService, hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		sessions: sessions,
		research: research,
		hub:      hub,
		logger:   log,
		pollers:  make(map[uuid.UUID]struct{}),
	}
}

// RegisterRoutes registers the websocket progress route.
func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/progress/v1/:id", h.ServeWs)
}

// ServeWs upgrades one progress-stream connection for a session.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	// 1. Get Token source
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("ProgressHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	session, err := h.sessions.LoadSession(c.UserContext(), sessionID)
	if err != nil || session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting progress stream", map[string]interface{}{"session_id": sessionID})
			h.startPoller(sessionID)
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("ProgressHandler", "Progress stream ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// startPoller launches the per-session poll loop once, however many tabs are
// watching. The loop ends when the session goes terminal or every watcher
// disconnects.
func (h *ProgressHandler) startPoller(sessionID uuid.UUID) {
	h.mu.Lock()
	if _, running := h.pollers[sessionID]; running {
		h.mu.Unlock()
		return
	}
	h.pollers[sessionID] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.pollers, sessionID)
			h.mu.Unlock()
		}()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var last string
		// grace period so a reconnecting client does not kill the loop
		idleTicks := 0

		for range ticker.C {
			if h.hub.Watchers(sessionID) == 0 {
				idleTicks++
				if idleTicks > 5 {
					return
				}
				continue
			}
			idleTicks = 0

			event, terminal := h.snapshot(sessionID)
			if event == nil {
				return
			}

			// fingerprint before stamping, so the timestamp itself never
			// counts as a change
			fingerprint, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if string(fingerprint) != last {
				last = string(fingerprint)
				event.Timestamp = time.Now()
				if payload, err := json.Marshal(event); err == nil {
					h.hub.Send(sessionID, payload)
				}
			}
			if terminal {
				return
			}
		}
	}()
}

// snapshot assembles one ProgressEvent from the current session and its
// newest job. Timestamp is left zero here; the poller stamps it on send.
func (h *ProgressHandler) snapshot(sessionID uuid.UUID) (*dto.ProgressEvent, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := h.sessions.LoadSession(ctx, sessionID)
	if err != nil || session == nil {
		return nil, true
	}

	event := &dto.ProgressEvent{
		SessionId:     sessionID,
		Phase:         session.CurrentPhase,
		PhaseProgress: session.PhaseProgress,
		Terminal:      session.IsTerminal(),
	}

	if job, err := h.research.GetLatestBySession(ctx, sessionID); err == nil && job != nil {
		event.JobId = &job.Id
		event.JobStatus = job.Status
		event.JobProgress = job.Progress
		event.Stage = job.CurrentStage
		event.StageLabel = entity.StageLabels[job.CurrentStage]
		event.Error = job.Error
	}

	return event, event.Terminal
}
