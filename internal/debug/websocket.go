package debug

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// WebSocketHub fans dashboard messages out to every connected browser.
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

var Hub = newHub()

func init() {
	go Hub.run()
}

func newHub() *WebSocketHub {
	return &WebSocketHub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		clients:    make(map[*websocket.Conn]bool),
	}
}

func (h *WebSocketHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("🔌 [DEBUG] Dashboard connected, %d client(s)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("🔌 [DEBUG] Dashboard disconnected, %d client(s)", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("⚠️ [DEBUG] Dropping dashboard client: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients is the number of connected dashboards.
func (h *WebSocketHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// send queues v for broadcast. Messages are dropped when nobody listens or
// the queue is full.
func (h *WebSocketHub) send(v interface{}) {
	if h.Clients() == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️ [DEBUG] Cannot encode dashboard message: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// HandleWebSocketFiber serves one dashboard connection until it closes.
func HandleWebSocketFiber(conn *websocket.Conn) {
	Hub.register <- conn
	defer func() {
		Hub.unregister <- conn
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// ============================================================================
// MESSAGES
// ============================================================================

type LogMessage struct {
	Type     string                 `json:"type"`
	Source   string                 `json:"source"`
	Level    string                 `json:"level"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SendLog forwards one log line to the dashboards.
func SendLog(source, level, message string, metadata map[string]interface{}) {
	Hub.send(LogMessage{Type: "log", Source: source, Level: level, Message: message, Metadata: metadata})
}

type MetricsMessage struct {
	Type    string   `json:"type"`
	Metrics []Metric `json:"metrics"`
}

type Metric struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Unit  string      `json:"unit,omitempty"`
}

func SendMetrics(metrics []Metric) {
	Hub.send(MetricsMessage{Type: "metrics", Metrics: metrics})
}

// SnapshotStatus describes the network currently served.
type SnapshotStatus struct {
	Version    string `json:"version"`
	Source     string `json:"source"`
	LoadedAt   int64  `json:"loadedAt"`
	Stations   int    `json:"stations"`
	Departures int    `json:"departures"`
	Uptime     int64  `json:"uptime"`
}

type SnapshotStatusMessage struct {
	Type   string         `json:"type"`
	Status SnapshotStatus `json:"status"`
}

var startTime = time.Now()

func SendSnapshotStatus(status SnapshotStatus) {
	status.Uptime = int64(time.Since(startTime).Seconds())
	Hub.send(SnapshotStatusMessage{Type: "snapshot_status", Status: status})
}

// ScrapeStatus reports the last timetable scrape.
type ScrapeStatus struct {
	Status  string `json:"status"`
	LastRun int64  `json:"lastRun"`
	Pages   int    `json:"pages"`
	Rows    int    `json:"rows"`
	Errors  int    `json:"errors"`
}

type ScrapeStatusMessage struct {
	Type   string       `json:"type"`
	Status ScrapeStatus `json:"status"`
}

func SendScrapeStatus(status ScrapeStatus) {
	Hub.send(ScrapeStatusMessage{Type: "scrape_status", Status: status})
}
