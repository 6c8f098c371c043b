package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jmylchreest/toastd/internal/model"
)

const (
	clientSendBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	maxMessageSize   = 4096
	actionTimeout    = 5 * time.Second
)

// Actions a page may send.
const (
	ActionShow          = "show"
	ActionDismiss       = "dismiss"
	ActionPointerEnter  = "pointer-enter"
	ActionPointerLeave  = "pointer-leave"
	ActionTransitionEnd = "transition-end"
)

var errUnknownAction = errors.New("unknown action")

// clientMessage is one message received from a page.
type clientMessage struct {
	Action  string         `json:"action"`
	ID      string         `json:"id"`
	Options *model.Options `json:"options,omitempty"`
}

type clientReply struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is one WebSocket peer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(clientReply{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}
		if c.hub.metrics != nil {
			c.hub.metrics.ObserveRequest("ws")
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		reply, err := c.handle(ctx, msg)
		cancel()
		if err != nil {
			c.hub.logger.Debug("websocket action failed", "client_id", c.id, "action", msg.Action, "toast_id", msg.ID, "error", err)
			c.reply(clientReply{Type: "error", ID: msg.ID, Error: err.Error()})
			continue
		}
		if reply != nil {
			c.reply(*reply)
		}
	}
}

func (c *Client) handle(ctx context.Context, msg clientMessage) (*clientReply, error) {
	svc := c.hub.svc
	switch msg.Action {
	case ActionShow:
		var opts model.Options
		if msg.Options != nil {
			opts = *msg.Options
		}
		id, err := svc.Show(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &clientReply{Type: "shown", ID: id}, nil
	case ActionDismiss:
		return nil, svc.Dismiss(ctx, msg.ID)
	case ActionPointerEnter:
		return nil, svc.PointerEnter(ctx, msg.ID)
	case ActionPointerLeave:
		return nil, svc.PointerLeave(ctx, msg.ID)
	case ActionTransitionEnd:
		return nil, svc.TransitionEnd(ctx, msg.ID)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, msg.Action)
	}
}

func (c *Client) reply(r clientReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	// The hub may have closed send concurrently; the read loop owns removal,
	// so only write while still registered.
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
