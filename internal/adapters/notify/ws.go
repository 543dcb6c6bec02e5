package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be shorter than pongWait.
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared upgrader config
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session/auth layers live outside this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns an HTTP handler that upgrades to a websocket and streams
// round-completion events until the client goes away.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Get().Named("notify-ws")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn(ctx, "websocket upgrade failed", logger.Error(err))
			return
		}

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)
		defer conn.Close()

		// Reader side exists only for pongs and close frames.
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					log.Debug(ctx, "websocket write failed", logger.Error(err))
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
}
