// Package live streams per-step simulation events to connected websocket
// clients, grounded on the connection-registry/broadcast-channel pattern
// used by the scheduler's web server.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StepEvent is one broadcast message: a vehicle task committed during the
// Stepper's replay of simulated time.
type StepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	VehicleID string    `json:"vehicle_id"`
	Kind      string    `json:"kind"`
	StartTime int       `json:"start_time"`
	EndTime   int       `json:"end_time"`
	Location  string    `json:"location"`
}

// Broadcaster fans step events out to every connected websocket client.
type Broadcaster struct {
	clients   sync.Map // *websocket.Conn -> struct{}
	broadcast chan StepEvent
	done      chan struct{}
}

func New() *Broadcaster {
	b := &Broadcaster{
		broadcast: make(chan StepEvent, 256),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case <-b.done:
			return
		case evt := <-b.broadcast:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			b.clients.Range(func(key, _ any) bool {
				conn := key.(*websocket.Conn)
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					conn.Close()
					b.clients.Delete(conn)
				}
				return true
			})
		}
	}
}

// Publish enqueues an event for broadcast; non-blocking, drops on a full
// buffer rather than stalling the Stepper.
func (b *Broadcaster) Publish(evt StepEvent) {
	select {
	case b.broadcast <- evt:
	default:
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection until it errors or closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.clients.Store(conn, struct{}{})

	go func() {
		defer func() {
			b.clients.Delete(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Close stops the broadcast loop and drops every connection.
func (b *Broadcaster) Close() {
	close(b.done)
	b.clients.Range(func(key, _ any) bool {
		key.(*websocket.Conn).Close()
		return true
	})
}
