package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/darshan/internal/app"
	"github.com/ayusman/darshan/internal/gesture"
	"github.com/ayusman/darshan/internal/overlay"
	"github.com/ayusman/darshan/internal/recorder"
)

const (
	writeWait    = 5 * time.Second
	sendBuffer   = 8
	maxInbound   = 4096
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	sourcePrefix = "ws:"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Outbound message types.
const (
	MsgHello  = "hello"
	MsgPlan   = "plan"
	MsgStatus = "status"
	MsgZoom   = "zoom"
	MsgIntent = "intent"
	MsgReload = "reload"
)

// Inbound message types.
const (
	MsgPinch = "pinch"
	MsgSwipe = "swipe"
)

// Message is the envelope for everything sent over /api/overlay.
type Message struct {
	Type        string           `json:"type"`
	Plan        *overlay.Plan    `json:"plan,omitempty"`
	Status      *recorder.Status `json:"status,omitempty"`
	Mobile      *bool            `json:"mobile,omitempty"`
	Calibrating *bool            `json:"calibrating,omitempty"`
	Scale       float64          `json:"scale,omitempty"`
	Raw         float64          `json:"raw,omitempty"`
	Intent      *gesture.Intent  `json:"intent,omitempty"`
}

// inbound is a gesture reported by a client.
type inbound struct {
	Type string  `json:"type"`
	D    float64 `json:"d"`
	gesture.Swipe
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	mapper *gesture.Mapper
}

// OverlayHub pushes overlay plans, recorder status and reload notices to
// every connected client, and turns their touch gestures into zoom changes
// and recording intents.
type OverlayHub struct {
	app *app.App
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewOverlayHub creates a hub and subscribes it to the session.
func NewOverlayHub(a *app.App, log *slog.Logger) *OverlayHub {
	if log == nil {
		log = slog.Default()
	}
	h := &OverlayHub{
		app:     a,
		log:     log.With("component", "overlay"),
		clients: make(map[*client]struct{}),
	}

	a.SubscribePlans(func(p overlay.Plan) {
		h.Broadcast(Message{Type: MsgPlan, Plan: &p})
	})
	a.Recorder().Subscribe(func(s recorder.Status) {
		h.Broadcast(Message{Type: MsgStatus, Status: &s})
	})
	if a.Clips() != nil {
		a.Clips().OnClear(func() {
			h.Broadcast(Message{Type: MsgReload})
		})
	}
	return h
}

// ServeHTTP handles WebSocket upgrade requests. Whether gestures are honoured
// is decided once, from the handshake User-Agent.
func (h *OverlayHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", "err", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		mapper: h.app.Mapper(r.UserAgent(), sourcePrefix+r.RemoteAddr),
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	defer h.remove(c)

	mobile := c.mapper.Mobile()
	calibrating := h.app.Calibrating()
	h.sendTo(c, Message{Type: MsgHello, Mobile: &mobile, Calibrating: &calibrating, Scale: h.app.Zoom().Scale()})
	if p, ok := h.app.Plan(); ok {
		h.sendTo(c, Message{Type: MsgPlan, Plan: &p})
	}
	st := h.app.RecordingStatus()
	h.sendTo(c, Message{Type: MsgStatus, Status: &st})

	go h.writeLoop(c)
	h.readLoop(c)
}

// Clients returns the number of connected clients.
func (h *OverlayHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends m to every client. Clients that cannot keep up miss the
// message rather than slowing the others down.
func (h *OverlayHub) Broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error("encode message", "type", m.Type, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *OverlayHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *OverlayHub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *OverlayHub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *OverlayHub) sendTo(c *client, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *OverlayHub) writeLoop(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (h *OverlayHub) readLoop(c *client) {
	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read", "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.log.Debug("bad gesture message", "err", err)
			continue
		}
		h.handle(c, in)
	}
}

func (h *OverlayHub) handle(c *client, in inbound) {
	switch in.Type {
	case MsgPinch:
		scale, raw, ok := c.mapper.Pinch(in.D)
		if !ok {
			return
		}
		h.sendTo(c, Message{Type: MsgZoom, Scale: scale, Raw: raw})
	case MsgSwipe:
		intent, ok := c.mapper.Swipe(in.Swipe)
		if !ok {
			return
		}
		h.log.Info("swipe", "intent", intent.Kind, "source", intent.Source)
		h.sendTo(c, Message{Type: MsgIntent, Intent: &intent})
	default:
		h.log.Debug("unknown message", "type", in.Type)
	}
}
