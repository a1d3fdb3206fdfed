package main

import (
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	clientQueue  = 64
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan update
}

// broadcaster fans updates out to connected browsers. Each client has its
// own queue so a slow browser never stalls the Kafka consumer.
type broadcaster struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{clients: make(map[*client]struct{})}
}

func (b *broadcaster) add(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan update, clientQueue)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	log.Info().Int("clients", n).Msg("Client connected")
	return c
}

func (b *broadcaster) remove(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c]
	if ok {
		delete(b.clients, c)
		close(c.send)
	}
	n := len(b.clients)
	b.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		log.Info().Int("clients", n).Msg("Client disconnected")
	}
}

func (b *broadcaster) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// publish queues u for every client and drops clients whose queue is full.
func (b *broadcaster) publish(u update) {
	var slow []*client
	b.mu.Lock()
	for c := range b.clients {
		select {
		case c.send <- u:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.Unlock()
	for _, c := range slow {
		log.Warn().Msg("Dropping slow client")
		b.remove(c)
	}
}

func (b *broadcaster) writeLoop(c *client) {
	for u := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(u); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
			b.remove(c)
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev tool
	},
}

func (b *broadcaster) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	c := b.add(conn)
	go b.writeLoop(c)

	// Browsers send nothing; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			b.remove(c)
			return
		}
	}
}

func newRouter(b *broadcaster, static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", b.serveWS)
	r.Handle("/*", http.FileServer(http.FS(static)))
	return r
}
