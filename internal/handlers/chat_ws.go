package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The handshake is authenticated by the session cookie below; pages
		// are served same-origin.
		return true
	},
}

// ChatClientMessage represents messages coming from the browser over WebSocket.
type ChatClientMessage struct {
	Type    string `json:"type"` // "chat message", "ping"
	Message string `json:"message,omitempty"`
}

// ChatWebSocket is the realtime channel. The connection is authenticated
// with the same session cookie and the same resolution steps as the HTTP
// layer; only then is it accepted into the broadcast group. An internal
// error and a plain unauthenticated cookie both refuse the connection, but
// they are logged differently.
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := ResolveSessionUser(r)
	if err != nil {
		log.Printf("realtime handshake: internal error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := deps.Hub.Join(user, conn)
	defer deps.Hub.Leave(client)
	log.Printf("user %s connected", user.DisplayName())

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Client close and network failure both end here; Leave runs on
			// the way out and broadcasts the departure.
			log.Printf("user %s disconnected", user.DisplayName())
			return
		}

		var msg ChatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "chat message":
			deps.Hub.Relay(client, msg.Message)
		case "ping":
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		default:
			// Ignore unknown types
		}
	}
}
