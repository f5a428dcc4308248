package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// writeWait bounds a single message write to an observer.
const writeWait = 5 * time.Second

// wsObserver adapts a WebSocket connection to broadcast.Observer.
type wsObserver struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // one writer at a time
}

func (o *wsObserver) ID() string { return o.id }

func (o *wsObserver) Send(msg models.ObserverMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return o.conn.WriteJSON(msg)
}

func (o *wsObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.Close()
}

// handleWebSocket upgrades the request and subscribes the connection. The
// connection is read only to detect the peer going away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "observer channel unavailable")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	o := &wsObserver{id: uuid.NewString(), conn: conn}
	if err := s.hub.Subscribe(o); err != nil {
		s.logger.Warn("subscribing observer", "observer", o.id, "error", err)
		_ = o.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unsubscribe(o.id)
	_ = o.Close()
}
