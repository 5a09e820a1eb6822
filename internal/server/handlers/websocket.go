// internal/server/handlers/websocket.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stagemap/internal/domain/messaging"
)

// StatusSource computes the current wire status of a stage
type StatusSource interface {
	StatusUpdate(ctx context.Context, subsectionID string) (*messaging.StageStatusUpdate, error)
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Recompute and resend the status with this period; zero disables it
	RefreshInterval time.Duration
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      (60 * time.Second * 9) / 10,
		MaxMessageSize:  4096,
		RefreshInterval: time.Minute,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// statusMessage is the frame sent to stage watchers
type statusMessage struct {
	Type   string                      `json:"type"`
	Status messaging.StageStatusUpdate `json:"status"`
}

// stageClient is one connected stage watcher
type stageClient struct {
	conn    *websocket.Conn
	send    chan []byte
	stageID string
	sub     messaging.Subscription
	config  WebSocketConfig
	logger  *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// StageWebSocketHandler streams live status updates for one stage. The
// current status is sent on connect, then every bus update and a periodic
// recomputation follow.
func StageWebSocketHandler(stages StatusSource, subscriber messaging.Subscriber, config WebSocketConfig, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		stageID := chi.URLParam(r, "id")

		initial, err := stages.StatusUpdate(r.Context(), stageID)
		if err != nil {
			respondWithServiceError(w, logger, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade to websocket", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		client := &stageClient{
			conn:    conn,
			send:    make(chan []byte, 16),
			stageID: stageID,
			config:  config,
			logger:  logger.With(zap.String("subsection_id", stageID)),
			ctx:     ctx,
			cancel:  cancel,
		}

		client.enqueue(*initial)

		if subscriber != nil {
			sub, err := subscriber.SubscribeStageStatus(stageID, client.enqueue)
			if err != nil {
				client.logger.Warn("failed to subscribe to stage status, falling back to refresh only", zap.Error(err))
			} else {
				client.sub = sub
			}
		}

		go client.writePump()
		go client.readPump()
		go client.refreshLoop(stages)

		client.logger.Debug("stage watcher connected")
	}
}

// enqueue queues a status frame, dropping it when the client is slow
func (c *stageClient) enqueue(update messaging.StageStatusUpdate) {
	data, err := json.Marshal(statusMessage{Type: "status", Status: update})
	if err != nil {
		c.logger.Error("failed to marshal stage status", zap.Error(err))
		return
	}

	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		c.logger.Warn("dropping stage status for slow client")
	}
}

// readPump discards client frames and detects disconnects
func (c *stageClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps queued frames and pings to the connection
func (c *stageClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// refreshLoop resends the status periodically since live and next move with the clock
func (c *stageClient) refreshLoop(stages StatusSource) {
	if c.config.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			update, err := stages.StatusUpdate(c.ctx, c.stageID)
			if err != nil {
				if c.ctx.Err() == nil {
					c.logger.Warn("failed to refresh stage status", zap.Error(err))
				}
				continue
			}
			c.enqueue(*update)
		}
	}
}

// close releases the subscription and the connection once
func (c *stageClient) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.sub != nil {
			if err := c.sub.Unsubscribe(); err != nil {
				c.logger.Warn("failed to unsubscribe", zap.Error(err))
			}
		}
		c.conn.Close()
		c.logger.Debug("stage watcher disconnected")
	})
}
