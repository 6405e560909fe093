package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/searcher"
)

// noticeHub fans search notices out to connected websocket clients. Slow
// clients are dropped rather than allowed to block the pipeline.
type noticeHub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*noticeClient
	logger  *log.Logger
}

type noticeClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan noticeMessage
}

type noticeMessage struct {
	Type   string           `json:"type"`
	Notice *searcher.Notice `json:"notice,omitempty"`
}

func newNoticeHub() *noticeHub {
	return &noticeHub{
		clients: make(map[uuid.UUID]*noticeClient),
		logger:  log.ForService("firehose"),
	}
}

// Broadcast queues a notice for every connected client. Clients whose send
// buffer is full miss the notice; clients that went away are removed.
func (h *noticeHub) Broadcast(notice searcher.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		select {
		case client.send <- noticeMessage{Type: "notice", Notice: &notice}:
		default:
			h.logger.Warnf("dropping slow firehose client %s", id)
			close(client.send)
			delete(h.clients, id)
		}
	}
}

func (h *noticeHub) add(client *noticeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
}

func (h *noticeHub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[id]; ok {
		close(client.send)
		delete(h.clients, id)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the API is already world-readable via CORS
		return true
	},
}

// HandleNotices upgrades the connection and streams search notices until the
// client disconnects. A hello frame is sent first so clients can confirm the
// subscription.
func (s *Server) HandleNotices(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &noticeClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan noticeMessage, 16),
	}
	s.hub.add(client)
	s.logger.Debugf("firehose client %s connected", client.id)

	if err := conn.WriteJSON(noticeMessage{Type: "hello"}); err != nil {
		s.hub.remove(client.id)
		_ = conn.Close()
		return
	}

	go s.writePump(client)
	s.readPump(client)
}

// writePump drains the client's send channel onto the socket.
func (s *Server) writePump(client *noticeClient) {
	for msg := range client.send {
		if err := client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			break
		}
		if err := client.conn.WriteJSON(msg); err != nil {
			break
		}
	}
	_ = client.conn.Close()
}

// readPump discards inbound frames and tears the client down on disconnect.
func (s *Server) readPump(client *noticeClient) {
	defer func() {
		s.hub.remove(client.id)
		_ = client.conn.Close()
		s.logger.Debugf("firehose client %s disconnected", client.id)
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
