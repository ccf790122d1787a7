package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"voxnote/internal/autosave"
	docmodel "voxnote/internal/document/model"
	vnmodel "voxnote/internal/voicenote/model"
	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	UpdateType         = "UPDATE"          // Editor content changed
	SaveType           = "SAVE"            // Manual save requested
	CursorType         = "CURSOR"          // User moved their cursor
	PresenceUpdateType = "PRESENCE_UPDATE" // A tab joined or left
	MetadataType       = "METADATA"        // Voice note title/info
	TranscriptType     = "TRANSCRIPT"      // Transcription finished
	DocumentType       = "DOCUMENT"        // Document replaced server side
	SaveStatusType     = "SAVE_STATUS"     // Result of a save
)

type WSMessage struct {
	Type        string          `json:"type"`
	VoiceNoteID string          `json:"voice_note_id"`
	UserID      string          `json:"user_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`

	sender *Client
}

type UserStatus struct {
	UserID    string    `json:"user_id"`
	CursorPos int       `json:"cursor_pos"`
	LastSeen  time.Time `json:"last_seen"`
}

// SaveStatus is the payload of SAVE_STATUS.
type SaveStatus struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NoteReader checks that the connecting user owns the voice note.
type NoteReader interface {
	Get(ctx context.Context, id string) (*vnmodel.VoiceNote, error)
}

// DocumentStore loads and saves the document edited in a room.
type DocumentStore interface {
	Get(ctx context.Context, voiceNoteID string) (*docmodel.Document, error)
	Save(ctx context.Context, voiceNoteID string, content docmodel.Content) (*docmodel.Document, error)
}

// Hub owns the editing rooms, one per open voice note. Room state is only
// mutated on the Run goroutine; mu guards reads from other goroutines.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	notes    NoteReader
	docs     DocumentStore
	debounce time.Duration

	// Latest editor content per room, which may be ahead of the database.
	DocumentCache map[string]docmodel.Content
	Autosave      map[string]*autosave.Controller
	Presence      map[string]map[string]UserStatus // voiceNoteID -> userID -> status
	mu            sync.Mutex
}

type Client struct {
	Hub         *Hub
	Conn        *websocket.Conn
	VoiceNoteID string
	UserID      string
	Send        chan []byte
	Title       string

	ctx      context.Context
	metadata json.RawMessage
	initial  *docmodel.Content
}

func NewHub(notes NoteReader, docs DocumentStore, debounce time.Duration) *Hub {
	return &Hub{
		Rooms:         make(map[string]map[*Client]bool),
		Broadcast:     make(chan WSMessage),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		notes:         notes,
		docs:          docs,
		debounce:      debounce,
		DocumentCache: make(map[string]docmodel.Content),
		Autosave:      make(map[string]*autosave.Controller),
		Presence:      make(map[string]map[string]UserStatus),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.Broadcast:
			h.broadcast(msg)
		}
	}
}

func (h *Hub) register(client *Client) {
	id := client.VoiceNoteID

	h.mu.Lock()
	if h.Rooms[id] == nil {
		h.Rooms[id] = make(map[*Client]bool)
		h.Presence[id] = make(map[string]UserStatus)
		if client.initial != nil {
			h.DocumentCache[id] = *client.initial
		}
		// The room's controller saves as the user who opened it; only the
		// owner can join.
		h.Autosave[id] = autosave.New(client.ctx, h.debounce, h.saveFunc(id), h.reportSave(id))
		logger.Sugar.Infof("Opened room for voice note %s", id)
	}
	h.Rooms[id][client] = true
	h.Presence[id][client.UserID] = UserStatus{UserID: client.UserID, LastSeen: time.Now()}
	current, hasContent := h.DocumentCache[id]
	h.mu.Unlock()

	// Bring the new tab up to date, including edits not yet saved.
	if hasContent {
		payload, _ := json.Marshal(current)
		msg, _ := json.Marshal(WSMessage{Type: UpdateType, VoiceNoteID: id, Payload: payload})
		client.Send <- msg
	}
	metaMsg, _ := json.Marshal(WSMessage{Type: MetadataType, VoiceNoteID: id, UserID: client.UserID, Payload: client.metadata})
	client.Send <- metaMsg

	h.broadcastPresenceUpdate(id)
}

func (h *Hub) unregister(client *Client) {
	id := client.VoiceNoteID

	h.mu.Lock()
	if _, ok := h.Rooms[id][client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.Rooms[id], client)
	close(client.Send)

	stillPresent := false
	for other := range h.Rooms[id] {
		if other.UserID == client.UserID {
			stillPresent = true
			break
		}
	}
	if !stillPresent {
		delete(h.Presence[id], client.UserID)
	}

	empty := len(h.Rooms[id]) == 0
	if empty {
		// Unsaved edits are dropped with the room.
		if ctrl := h.Autosave[id]; ctrl != nil {
			ctrl.Close()
		}
		delete(h.Rooms, id)
		delete(h.Presence, id)
		delete(h.DocumentCache, id)
		delete(h.Autosave, id)
		logger.Sugar.Infof("Closed and cleaned up empty room: %s", id)
	}
	h.mu.Unlock()

	if !empty {
		h.broadcastPresenceUpdate(id)
	}
}

func (h *Hub) broadcast(msg WSMessage) {
	h.mu.Lock()
	ctrl := h.Autosave[msg.VoiceNoteID]
	switch msg.Type {
	case UpdateType:
		var content docmodel.Content
		if err := json.Unmarshal(msg.Payload, &content); err != nil || content.Validate() != nil {
			logger.Sugar.Warnf("Dropping malformed update for voice note %s from %s", msg.VoiceNoteID, msg.UserID)
			h.mu.Unlock()
			return
		}
		h.DocumentCache[msg.VoiceNoteID] = content
		if ctrl != nil {
			ctrl.Change(content)
		}
	case SaveType:
		var content docmodel.Content
		if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
			if err := json.Unmarshal(msg.Payload, &content); err == nil && content.Validate() == nil {
				h.DocumentCache[msg.VoiceNoteID] = content
			}
		}
		current, ok := h.DocumentCache[msg.VoiceNoteID]
		h.mu.Unlock()
		if ok && ctrl != nil {
			ctrl.SaveNow(current)
		}
		return
	case DocumentType:
		var doc docmodel.Document
		if err := json.Unmarshal(msg.Payload, &doc); err == nil {
			h.DocumentCache[msg.VoiceNoteID] = doc.Content
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		h.mu.Unlock()
		return
	}

	// A tab never receives its own edits back; server events go to everyone.
	clientsToSend := make([]*Client, 0, len(h.Rooms[msg.VoiceNoteID]))
	for client := range h.Rooms[msg.VoiceNoteID] {
		if client != msg.sender {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
			h.unregister(client)
		}
	}
}

// Publish pushes a server-side event to every tab editing voiceNoteID. It is
// a no-op when the note has no open room.
func (h *Hub) Publish(voiceNoteID, msgType string, payload interface{}) {
	if !h.HasRoom(voiceNoteID) {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s event: %v", msgType, err)
		return
	}
	h.Broadcast <- WSMessage{Type: msgType, VoiceNoteID: voiceNoteID, Payload: raw}
}

// RemoveRoom disconnects every tab of a deleted voice note. The readPumps
// unregister the clients, which tears the room down without saving.
func (h *Hub) RemoveRoom(voiceNoteID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ctrl := h.Autosave[voiceNoteID]; ctrl != nil {
		ctrl.Close()
	}
	for client := range h.Rooms[voiceNoteID] {
		client.Conn.Close()
	}
}

func (h *Hub) HasRoom(voiceNoteID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Rooms[voiceNoteID] != nil
}

// RoomCount is the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms)
}

func (h *Hub) saveFunc(voiceNoteID string) autosave.SaveFunc {
	return func(ctx context.Context, content docmodel.Content) error {
		_, err := h.docs.Save(ctx, voiceNoteID, content)
		return err
	}
}

func (h *Hub) reportSave(voiceNoteID string) func(autosave.Result) {
	return func(res autosave.Result) {
		status := SaveStatus{OK: res.Err == nil, Message: "Document saved", At: res.At}
		if res.Err != nil {
			status.Message = apperr.UserMessage(res.Err)
		} else {
			logger.Sugar.Infof("Auto-saved document for voice note %s", voiceNoteID)
		}
		h.Publish(voiceNoteID, SaveStatusType, status)
	}
}

func (h *Hub) broadcastPresenceUpdate(voiceNoteID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[voiceNoteID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[voiceNoteID]))
		for _, status := range h.Presence[voiceNoteID] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[voiceNoteID]))
		for client := range h.Rooms[voiceNoteID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, VoiceNoteID: voiceNoteID, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
