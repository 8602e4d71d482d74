package websocket

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type socketClient struct {
	id     *uuid.UUID
	socket *websocket.Conn
}

func (client *socketClient) SendMessage(message *SocketMessage) error {
	return client.socket.WriteJSON(message)
}

// Drain reads from the clients websocket connection until it errors,
// discarding anything received. The hub is push-only, so inbound frames
// carry no meaning, but the read loop is still required to observe the
// connection closing. The error is returned so the caller can
// de-register the client.
func (client *socketClient) Drain() error {
	for {
		if _, _, err := client.socket.ReadMessage(); err != nil {
			return err
		}
	}
}

// Close will close this clients socket
func (client *socketClient) Close() {
	client.socket.Close()
}
