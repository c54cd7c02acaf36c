package session

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"portrait-studio-server/modules/portrait"
)

// Client - one websocket connection watching a session
type Client struct {
	id      string
	conn    *websocket.Conn
	session *Session
	send    chan []byte
}

// readPump - inbound frames; the only accepted one updates the text fields
func (c *Client) readPump() {
	defer func() {
		c.session.removeClient(c.id)
		c.conn.Close()
	}()

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		switch message.Type {
		case MessageFieldsUpdate:
			c.session.controller.UpdateFields(message.ClothingStyle, message.Scenery)
		default:
			log.Debug().Msgf("Ignoring message type '%s' from client %s", message.Type, c.id)
		}
	}
}

// writePump - outbound frames until send is closed
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func stateMessage(sessionID string, state portrait.State) ([]byte, error) {
	view := portrait.NewStateView(state)
	return json.Marshal(Message{Type: MessageState, SessionID: sessionID, State: &view})
}
