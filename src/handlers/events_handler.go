package handlers

import (
	"net/http"
	"time"

	"finanzas-server/src/events"
	"finanzas-server/src/logger"
	"finanzas-server/src/middleware"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// EventsWS streams the caller's transaction events over a websocket until
// either side hangs up.
func EventsWS(sub events.Subscriber, allowedOrigins []string) http.HandlerFunc {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origins["*"] || origins[origin]
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		log := logger.FromContext(r.Context()).With().Str("user_id", userID).Logger()

		ch, cancel, err := sub.Subscribe(r.Context(), userID)
		if err != nil {
			writeAppError(w, r, err, "failed to subscribe to events")
			return
		}
		defer cancel()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()
		log.Info().Msg("events websocket opened")

		// Reader loop: only pongs and close frames are expected.
		closed := make(chan struct{})
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case e, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(e); err != nil {
					log.Debug().Err(err).Msg("events websocket write failed")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				log.Info().Msg("events websocket closed")
				return
			}
		}
	}
}
