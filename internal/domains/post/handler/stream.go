package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/feed"
	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/middleware"
)

// StreamConfig tunes the feed websocket.
type StreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ReadTimeout must exceed PingInterval; every pong extends it.
	ReadTimeout time.Duration
	// CheckOrigin overrides the same-origin check of the upgrader.
	CheckOrigin func(r *http.Request) bool
}

func (s StreamConfig) withDefaults() StreamConfig {
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.PingInterval <= 0 {
		s.PingInterval = 30 * time.Second
	}
	if s.ReadTimeout <= s.PingInterval {
		s.ReadTimeout = 2 * s.PingInterval
	}
	return s
}

// Frame is a feed snapshot pushed to the client. Posts is always the full
// ordered list, so an empty feed is sent as "posts":[].
type Frame struct {
	Type  string               `json:"type"`
	Scope string               `json:"scope"`
	Posts []model.PostResponse `json:"posts"`
}

// ErrorFrame ends the stream when the feed cannot be opened.
type ErrorFrame struct {
	Type  string      `json:"type"`
	Error *FrameError `json:"error"`
}

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	FrameTypeSnapshot = "snapshot"
	FrameTypeError    = "error"
)

// StreamFeed handles GET /feed/ws?author=<id|me>. Every change of the scope
// is pushed as a full snapshot frame; one view model lives per connection.
func (h *PostHandler) StreamFeed(c *gin.Context) {
	callerID := middleware.GetPrincipalID(c)
	scope := scopeFromQuery(c, callerID)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.stream.CheckOrigin,
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("Feed upgrade failed")
		return
	}
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(c.Request.Context())
	defer handleCancel()

	// Only the newest snapshot matters; a slow client skips intermediate ones.
	snapshots := make(chan []model.Post, 1)
	vm := feed.NewViewModel(h.repo, scope, func(posts []model.Post) {
		for {
			select {
			case snapshots <- posts:
				return
			default:
			}
			select {
			case <-snapshots:
			default:
			}
		}
	})

	if err := vm.Activate(handleCtx); err != nil {
		h.writeFrame(ws, ErrorFrame{Type: FrameTypeError, Error: frameError(err)})
		return
	}
	defer vm.Deactivate()

	log.Debug().
		Str("principal_id", callerID).
		Str("scope", scope.String()).
		Msg("Feed stream opened")

	go h.readLoop(handleCtx, handleCancel, ws)

	ping := time.NewTicker(h.stream.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-handleCtx.Done():
			return
		case posts := <-snapshots:
			frame := Frame{
				Type:  FrameTypeSnapshot,
				Scope: scope.String(),
				Posts: model.ToResponse(posts, callerID),
			}
			if err := h.writeFrame(ws, frame); err != nil {
				log.Debug().Err(err).Str("principal_id", callerID).Msg("Feed stream write failed")
				return
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so control messages are processed, and ends
// the stream when the peer goes away.
func (h *PostHandler) readLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn) {
	defer cancel()

	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(h.stream.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.stream.ReadTimeout))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PostHandler) writeFrame(ws *websocket.Conn, frame any) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, raw)
}

func frameError(err error) *FrameError {
	code := apperror.CodeOf(err)
	if code == "" {
		code = apperror.CodeRemoteFault
	}
	return &FrameError{Code: code, Message: err.Error()}
}
