package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/domain/workspace"
	"github.com/tabwell/backend/internal/infrastructure/monitoring"
	"github.com/tabwell/backend/internal/logging"
	"github.com/tabwell/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // UI webview is the only expected caller
	},
}

// Handler manages WebSocket connections
type Handler struct {
	workspace *workspace.Manager
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(ws *workspace.Manager, logger *logging.Logger) *Handler {
	return &Handler{workspace: ws, logger: logger}
}

// WithMetrics adds connection tracking to the handler
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// client serializes writes to one connection; snapshots arrive from the
// subscription goroutine while acks come from the read loop.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(data)
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	cl := &client{conn: conn}
	reqCtx := c.Request.Context()

	id, updates := h.workspace.Subscribe()
	defer h.workspace.Unsubscribe(id)

	if err := h.write(cl, map[string]interface{}{
		"type":    "system",
		"message": "Connected to Tabwell Session Core",
	}); err != nil {
		return
	}
	if err := h.sendSnapshot(cl, h.workspace.Snapshot()); err != nil {
		return
	}

	// Forward committed mutations as they publish. A failed write means the
	// connection is gone; stop forwarding instead of flogging a dead socket.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if err := h.sendSnapshot(cl, snap); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "add":
			h.handleMutation(cl, msg, func(key int) <-chan error {
				return h.workspace.RequestAdd(reqCtx, key, msg.BackingResource)
			})
		case "remove":
			h.handleMutation(cl, msg, func(key int) <-chan error {
				return h.workspace.RequestRemove(reqCtx, key)
			})
		case "select":
			h.handleMutation(cl, msg, func(key int) <-chan error {
				return h.workspace.RequestSelect(reqCtx, key)
			})
		case "ping":
			h.write(cl, map[string]interface{}{"type": "pong"})
		default:
			h.sendError(cl, "unknown message type")
		}
	}
}

func (h *Handler) handleMutation(cl *client, msg types.WSMessage, request func(key int) <-chan error) {
	if msg.Key == nil {
		h.sendError(cl, "missing key")
		return
	}

	if err := <-request(*msg.Key); err != nil {
		h.sendError(cl, err.Error())
		return
	}

	h.write(cl, map[string]interface{}{
		"type":      "ack",
		"op":        msg.Type,
		"key":       *msg.Key,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) sendSnapshot(cl *client, snap *types.Snapshot) error {
	return h.write(cl, map[string]interface{}{
		"type":         "snapshot",
		"sessions":     snap.Sessions,
		"selected_key": snap.SelectedKey,
		"timestamp":    time.Now().Unix(),
	})
}

func (h *Handler) sendError(cl *client, msg string) {
	h.write(cl, map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) write(cl *client, data map[string]interface{}) error {
	if err := cl.send(data); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
