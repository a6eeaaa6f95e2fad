package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/l1jgo/convoy/internal/convoy"
	"go.uber.org/zap"
)

// ChatPrefix marks event chat lines and announcements.
const ChatPrefix = "[Convoy Event]"

const (
	feedSendQueue  = 64
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// Frame is one JSON message pushed to feed clients.
type Frame struct {
	Type  string        `json:"type"` // notice, chat, broadcast, panel_show, panel_hide
	Msg   string        `json:"msg,omitempty"`
	Color string        `json:"color,omitempty"`
	Panel *convoy.Panel `json:"panel,omitempty"`
}

type feedClient struct {
	player convoy.PlayerID // 0 = spectator, receives broadcasts only
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Feed is the websocket panel feed. It renders event notices, chat lines and
// panels for connected game clients keyed by ?player=ID, and implements
// convoy.Notifier and convoy.Panels. Calls from the game loop never block:
// a client whose queue is full is dropped.
type Feed struct {
	upgrader websocket.Upgrader
	color    string

	mu      sync.Mutex
	clients map[*feedClient]struct{}

	srv *http.Server
	log *zap.Logger
}

// NewFeed creates a feed. color tints the chat prefix.
func NewFeed(color string, log *zap.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		color:   color,
		clients: make(map[*feedClient]struct{}),
		log:     log,
	}
}

// ServeHTTP upgrades a request on /feed?player=ID.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var player convoy.PlayerID
	if raw := r.URL.Query().Get("player"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "bad player id", http.StatusBadRequest)
			return
		}
		player = convoy.PlayerID(id)
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Debug("websocket 升級失敗", zap.Error(err))
		return
	}
	c := &feedClient{player: player, conn: conn, send: make(chan []byte, feedSendQueue)}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go f.writePump(c)
	go f.readPump(c)
}

// Start serves the feed on addr in the background.
func (f *Feed) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/feed", f)
	f.srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := listen(addr)
	if err != nil {
		return err
	}
	go func() {
		if err := f.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.log.Error("面板推送服務停止", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the HTTP server and drops every client.
func (f *Feed) Shutdown(ctx context.Context) error {
	var err error
	if f.srv != nil {
		err = f.srv.Shutdown(ctx)
	}
	f.mu.Lock()
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
	f.mu.Unlock()
	return err
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) drop(c *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.close()
	}
	f.mu.Unlock()
}

// publish queues a frame for every client accepted by match.
func (f *Feed) publish(fr Frame, match func(*feedClient) bool) {
	data, err := json.Marshal(fr)
	if err != nil {
		f.log.Error("面板訊息編碼失敗", zap.Error(err))
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			f.log.Warn("推送佇列已滿，斷開慢速客戶端", zap.Uint64("player", uint64(c.player)))
			delete(f.clients, c)
			c.close()
		}
	}
}

func (f *Feed) toPlayer(id convoy.PlayerID, fr Frame) {
	f.publish(fr, func(c *feedClient) bool { return c.player == id })
}

func (f *Feed) Notify(id convoy.PlayerID, msg, color string) {
	f.toPlayer(id, Frame{Type: "notice", Msg: msg, Color: color})
}

func (f *Feed) Chat(id convoy.PlayerID, msg string) {
	f.toPlayer(id, Frame{Type: "chat", Msg: ChatPrefix + " " + msg, Color: f.color})
}

func (f *Feed) Broadcast(msg string) {
	f.publish(Frame{Type: "broadcast", Msg: ChatPrefix + " " + msg, Color: f.color},
		func(*feedClient) bool { return true })
}

func (f *Feed) ShowEventPanel(id convoy.PlayerID, p convoy.Panel) {
	f.toPlayer(id, Frame{Type: "panel_show", Panel: &p})
}

func (f *Feed) HideEventPanel(id convoy.PlayerID) {
	f.toPlayer(id, Frame{Type: "panel_hide"})
}

// writePump runs in its own goroutine per client.
func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.drop(c)
				return
			}
		}
	}
}

// readPump discards client input and notices disconnects.
func (f *Feed) readPump(c *feedClient) {
	defer f.drop(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
