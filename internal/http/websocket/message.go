package websocket

import "github.com/google/uuid"

type socketMessageType int

const (
	Update socketMessageType = iota
	Welcome
)

// SocketMessage is a single frame pushed to connected clients. Abode's
// socket surface is push-only: the server broadcasts state updates and
// never accepts commands over the socket. Target, when set, restricts
// delivery to the client with the matching UUID.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Type   socketMessageType      `json:"type"`
	Target *uuid.UUID             `json:"-"`
}
