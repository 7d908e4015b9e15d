package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/middleware"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/service"
	ws "github.com/stemsi/olympiad-backend/internal/websocket"
)

const clockTickInterval = time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the participant's exam clock.
type WSHandler struct {
	clock    *service.SessionClock
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(clock *service.SessionClock, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		clock:    clock,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamClockStream godoc
// WS /ws/v1/participant/exams/:id/clock
// Pushes the exam state and remaining seconds every second, answers pings,
// and closes once the participant's window can no longer reopen.
func (h *WSHandler) ExamClockStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Resolve before upgrading so enrollment errors keep their HTTP status.
	status, err := h.clock.Status(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int64("participant_id", claims.UserID).
		Int64("exam_id", examID).
		Logger()
	wsLog.Debug().Msg("Clock stream opened")

	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go h.readLoop(conn, wsLog, pings, done)

	exam := &status.Exam
	enrollment := &model.ExamEnrollment{ExamID: examID, ParticipantID: claims.UserID, SessionStart: status.SessionStart}

	ticker := time.NewTicker(clockTickInterval)
	defer ticker.Stop()

	for {
		now := h.clock.Now()
		state := h.clock.State(exam, enrollment, now)
		if state == model.ExamStateOpen && enrollment.SessionStart == nil && exam.EnforceDuration && exam.Duration() > 0 {
			// The exam opened while streaming; this is the participant's first touch.
			e, err := h.clock.EnsureStarted(c.Request.Context(), exam, claims.UserID)
			if err != nil {
				wsLog.Error().Err(err).Msg("Session start failed")
				_ = ws.WriteError(conn, "session start failed")
				return
			}
			enrollment = e
		}

		tick := ws.TickResponse{
			Event:            ws.EventTick,
			State:            state,
			RemainingSeconds: h.clock.RemainingSeconds(exam, enrollment, now),
		}
		if err := ws.WriteTyped(conn, tick); err != nil {
			wsLog.Debug().Err(err).Msg("Clock stream write failed")
			return
		}
		if ws.Terminal(state) {
			_ = ws.Close(conn, string(state))
			return
		}

	wait:
		for {
			select {
			case <-done:
				return
			case <-c.Request.Context().Done():
				return
			case <-pings:
				if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
					return
				}
			case <-ticker.C:
				break wait
			}
		}
	}
}

// readLoop forwards pings to the writer until the client goes away.
func (h *WSHandler) readLoop(conn *websocket.Conn, log zerolog.Logger, pings chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			select {
			case pings <- struct{}{}:
			default:
			}
		default:
			log.Debug().Str("action", string(msg.Action)).Msg("Unknown action")
		}
	}
}
