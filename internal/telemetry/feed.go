package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Feed fans sensor readings and safety-circuit detections out to
// connected operator consoles: a subscriber-map-plus-broadcast shape
// with no per-symbol routing, since every subscriber gets the full
// stream.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// Subscriber is one connected operator console.
type Subscriber struct {
	ID      uuid.UUID
	Updates chan Update
	Done    chan struct{}
}

// Update is one event pushed to the live feed.
type Update struct {
	Type      string      `json:"type"` // "sensor_reading" or "incident"
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[uuid.UUID]*Subscriber),
		shutdown:    make(chan struct{}),
	}
}

func (f *Feed) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:      uuid.New(),
		Updates: make(chan Update, 16),
		Done:    make(chan struct{}),
	}
	f.mu.Lock()
	f.subscribers[sub.ID] = sub
	f.mu.Unlock()
	return sub
}

func (f *Feed) Unsubscribe(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subscribers[id]; ok {
		close(sub.Done)
		delete(f.subscribers, id)
	}
}

// Broadcast pushes update to every connected subscriber, dropping it for
// any subscriber whose buffer is full rather than blocking the caller.
func (f *Feed) Broadcast(update Update) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subscribers {
		select {
		case sub.Updates <- update:
		case <-sub.Done:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS pumps updates from sub to conn until the subscriber
// disconnects or the connection closes.
func ServeWS(conn *websocket.Conn, sub *Subscriber, feed *Feed) {
	defer func() {
		feed.Unsubscribe(sub.ID)
		conn.Close()
	}()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				feed.Unsubscribe(sub.ID)
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-sub.Updates:
			if !ok {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-sub.Done:
			return
		}
	}
}
