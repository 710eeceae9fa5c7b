package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	EnableCompression: true,
}

const writeWait = 10 * time.Second

// conn serializes writes to a websocket connection.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// drain reads until the peer goes away and then closes done.
// Incoming messages are ignored; reading keeps pong and close frames flowing.
func (c *conn) drain(done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
