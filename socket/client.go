package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"voxnote/middleware"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client is served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Transcript  *string  `json:"transcript"`
}

// ServeWs joins the authenticated user to the editing room of the voice note
// named by the voiceNoteId query parameter. Ownership is checked before the
// upgrade so a foreign note is refused with a plain HTTP error.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	voiceNoteID := r.URL.Query().Get("voiceNoteId")
	if voiceNoteID == "" {
		http.Error(w, "Missing voiceNoteId parameter", http.StatusBadRequest)
		return
	}

	note, err := hub.notes.Get(r.Context(), voiceNoteID)
	if err != nil {
		logger.Sugar.Warnf("Connection rejected for voice note %s: %v", voiceNoteID, err)
		http.Error(w, apperr.UserMessage(err), apperr.HTTPStatus(err))
		return
	}
	doc, err := hub.docs.Get(r.Context(), voiceNoteID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load document for voice note %s: %v", voiceNoteID, err)
		http.Error(w, apperr.UserMessage(err), apperr.HTTPStatus(err))
		return
	}
	meta, _ := json.Marshal(metadata{Title: note.Title, Description: note.Description, Tags: note.Tags, Transcript: note.Transcript})

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:         hub,
		Conn:        conn,
		VoiceNoteID: voiceNoteID,
		UserID:      userID,
		Title:       note.Title,
		Send:        make(chan []byte, 256),
		// Saves outlive the upgrade request but keep its principal.
		ctx:      context.WithoutCancel(r.Context()),
		metadata: meta,
	}
	if doc != nil {
		client.initial = &doc.Content
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Set server-authoritative fields to prevent spoofing.
		msg.VoiceNoteID = c.VoiceNoteID
		msg.UserID = c.UserID
		msg.sender = c

		switch msg.Type {
		case UpdateType, SaveType, CursorType:
		default:
			logger.Sugar.Warnf("Ignoring %q message from %s on voice note %s", msg.Type, c.UserID, c.VoiceNoteID)
			continue
		}

		c.Hub.Broadcast <- msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
