// Package chatclient is a Go client for the chat gateway plus the presentation
// helpers (read boundary, scroll policy, typing timers) a UI needs on top of it.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"apartment_chat_service/internal/chat/domain"

	"github.com/gorilla/websocket"
)

// ErrClosed client already closed
var ErrClosed = errors.New("chat client closed")

// Event one server event, Data stays raw until the caller decodes it
type Event struct {
	Event domain.Action   `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshal the event payload
func Decode[T any](e Event) (T, error) {
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", e.Event, err)
	}
	return v, nil
}

// Client one gateway connection
type Client struct {
	conn   *websocket.Conn
	events chan Event

	writeMu sync.Mutex
	once    sync.Once
	closing chan struct{}
	done    chan struct{}
	err     error
}

// Dial open a connection with a bearer credential; a rejected handshake returns the HTTP status in the error
func Dial(ctx context.Context, url, token string) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		events:  make(chan Event, 64),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events server events in arrival order, closed when the connection ends
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err why the read loop stopped
func (c *Client) Err() error {
	<-c.done
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.closing:
			c.err = ErrClosed
			return
		}
	}
}

func (c *Client) emit(event domain.Action, data domain.WSRequestData) error {
	b, err := json.Marshal(domain.WSRequest{Event: event, Data: data})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Join join_room
func (c *Client) Join(roomID string) error {
	return c.emit(domain.JoinRoom, domain.WSRequestData{RoomID: roomID})
}

// Leave leave_room
func (c *Client) Leave(roomID string) error {
	return c.emit(domain.LeaveRoom, domain.WSRequestData{RoomID: roomID})
}

// Send send_message; the authoritative copy comes back as new_message
func (c *Client) Send(roomID, content string) error {
	return c.emit(domain.SendMessage, domain.WSRequestData{RoomID: roomID, Content: content})
}

// MarkAsRead mark_as_read
func (c *Client) MarkAsRead(roomID string) error {
	return c.emit(domain.MarkAsRead, domain.WSRequestData{RoomID: roomID})
}

// Typing typing
func (c *Client) Typing(roomID string, isTyping bool) error {
	return c.emit(domain.Typing, domain.WSRequestData{RoomID: roomID, IsTyping: isTyping})
}

// WaitFor drop events until one of the given type arrives
func (c *Client) WaitFor(ctx context.Context, event domain.Action) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev, ok := <-c.events:
			if !ok {
				return Event{}, ErrClosed
			}
			if ev.Event == event {
				return ev, nil
			}
		}
	}
}

// Close send a close frame and drop the connection
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closing)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
