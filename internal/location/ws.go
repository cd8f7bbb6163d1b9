package location

import (
	"net/http"
	"time"

	"superrider-be/internal/logger"
	"superrider-be/internal/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// StreamHandler pushes location events to websocket clients.
type StreamHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler builds a handler; a nil checkOrigin accepts any origin.
func NewStreamHandler(hub *Hub, checkOrigin func(r *http.Request) bool) *StreamHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeOrder streams only the events of orderID.
func (h *StreamHandler) ServeOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	sub, err := h.hub.Subscribe(orderID)
	h.serve(w, r, sub, err)
}

// ServeAll streams every event, leaving filtering to the client.
func (h *StreamHandler) ServeAll(w http.ResponseWriter, r *http.Request) {
	sub, err := h.hub.SubscribeAll()
	h.serve(w, r, sub, err)
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, sub *Subscription, err error) {
	log := logger.FromCtx(r.Context())

	if err != nil {
		log.Warn("location subscription refused", zap.Error(err))
		utils.WriteJSONError(w, ErrChannelUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log = log.With(zap.String("subscription", sub.ID()), zap.String("watch", sub.OrderID()))
	log.Info("location stream opened")

	done := make(chan struct{})
	go readLoop(conn, done)
	writeLoop(conn, sub, done, log)

	log.Info("location stream closed", zap.Uint64("dropped", sub.Dropped()))
}

// readLoop discards client frames; it exists to process pongs and notice
// the client going away.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, sub *Subscription, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrChannelUnavailable.Error()))
				return
			}
			if err := conn.WriteJSON(Message{Event: EventDriverLocationUpdate, Data: e}); err != nil {
				log.Debug("location write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
