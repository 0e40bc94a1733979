// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/middleware"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/jason-s-yu/fourcolor/internal/table"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "fourcolor"

// outboxSize bounds how many events a connection may lag behind before it is dropped.
const outboxSize = 64

// TableMessage is a client frame on the table socket.
type TableMessage struct {
	Type       string            `json:"type"`
	ActionType string            `json:"action_type,omitempty"`
	ActionData models.ActionData `json:"action_data,omitempty"`
}

type wsError struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// TableWSHandler streams table events to the caller and accepts actions over the same socket.
// Anyone authenticated may watch; only seated players may act.
func (ts *TableServer) TableWSHandler(w http.ResponseWriter, r *http.Request) {
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	if _, found := ts.Service.Get(tableID); !found {
		writeServiceError(w, ts.Logger, table.ErrTableNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		ts.Logger.Warnf("WebSocket accept error for table %s: %v", tableID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "internal error")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must use the fourcolor subprotocol")
		return
	}
	middleware.LogWebSocketConnect(ts.Logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := ts.Logger.WithFields(logrus.Fields{"table": tableID, "player": playerID})
	outbox := make(chan []byte, outboxSize)
	slow := make(chan struct{})

	unsubscribe, err := ts.Service.Subscribe(tableID, playerID, func(ev table.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Errorf("failed to marshal %s event: %v", ev.Type, err)
			return
		}
		select {
		case outbox <- data:
		default:
			// called under the table lock, so never block here
			select {
			case <-slow:
			default:
				close(slow)
			}
		}
	})
	if err != nil {
		c.Close(InvalidTableIDError, "table not found")
		return
	}
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeTableEvents(ctx, c, outbox, slow, log)
		cancel()
	}()

	err = ts.readTableMessages(ctx, c, tableID, playerID, outbox, log)
	cancel()
	<-writerDone
	middleware.LogWebSocketDisconnect(ts.Logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// writeTableEvents is the only writer of the connection.
func writeTableEvents(ctx context.Context, c *websocket.Conn, outbox <-chan []byte, slow <-chan struct{}, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-slow:
			log.Warn("client too slow, closing socket")
			c.Close(SlowConsumerError, "too far behind")
			return
		case data := <-outbox:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debugf("write failed: %v", err)
				return
			}
		}
	}
}

// readTableMessages handles client frames until the connection ends. Replies go through the outbox
// so they stay ordered with table events.
func (ts *TableServer) readTableMessages(ctx context.Context, c *websocket.Conn, tableID uuid.UUID, playerID string, outbox chan<- []byte, log *logrus.Entry) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg TableMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(ctx, outbox, wsError{Type: "error", Message: "invalid JSON format"})
			continue
		}

		switch msg.Type {
		case "ping":
			reply(ctx, outbox, map[string]string{"type": "pong"})
		case "action":
			action := models.GameAction{ActionType: msg.ActionType, ActionData: msg.ActionData}
			if _, err := ts.Service.Submit(ctx, tableID, playerID, action); err != nil {
				reply(ctx, outbox, actionErrorFrame(err))
			}
		default:
			log.Debugf("unknown message type %q", msg.Type)
			reply(ctx, outbox, wsError{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}

func actionErrorFrame(err error) wsError {
	var actionErr *game.ActionError
	if errors.As(err, &actionErr) {
		return wsError{Type: "error", Message: actionErr.Message, Category: actionErr.Category.Error()}
	}
	return wsError{Type: "error", Message: err.Error()}
}

func reply(ctx context.Context, outbox chan<- []byte, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case outbox <- data:
	case <-ctx.Done():
	}
}
