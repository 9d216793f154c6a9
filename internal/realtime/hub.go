package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Client is one live websocket session, always bound to a single chat.
type Client struct {
	ID     string
	UserID uuid.UUID
	ChatID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

type chatBroadcast struct {
	chatID  uuid.UUID
	payload []byte
}

// Hub keeps the process-wide registry of live connections, keyed by chat, so
// a message sent to a chat reaches every connected participant of that chat
// and nobody else.
type Hub struct {
	chats      map[uuid.UUID]map[string]*Client
	broadcast  chan chatBroadcast
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		chats:      make(map[uuid.UUID]map[string]*Client),
		broadcast:  make(chan chatBroadcast, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// SendToChat fans a payload out to every client connected to chatID.
func (h *Hub) SendToChat(chatID uuid.UUID, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling chat payload: %v", err)
		return
	}
	h.broadcast <- chatBroadcast{chatID: chatID, payload: payload}
}

// SendToUser delivers to every live session of userID, across chats. Used by
// the notification dispatcher.
func (h *Hub) SendToUser(userID uuid.UUID, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling user payload: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.chats {
		for _, client := range clients {
			if client.UserID != userID {
				continue
			}
			select {
			case client.Send <- payload:
			default:
				// slow client, skip rather than block
			}
		}
	}
}

// ChatClientCount reports how many sessions are live for a chat.
func (h *Hub) ChatClientCount(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chats[chatID])
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.chats[client.ChatID] == nil {
		h.chats[client.ChatID] = make(map[string]*Client)
	}
	h.chats[client.ChatID][client.ID] = client
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.chats[client.ChatID]
	if !ok {
		return
	}
	if old, ok := clients[client.ID]; ok {
		delete(clients, client.ID)
		close(old.Send)
	}
	if len(clients) == 0 {
		delete(h.chats, client.ChatID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.add(client)
			log.Printf("Client registered: %s (user %s, chat %s)", client.ID, client.UserID, client.ChatID)

		case client := <-h.unregister:
			h.remove(client)
			log.Printf("Client unregistered: %s", client.ID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.chats[msg.chatID] {
				select {
				case client.Send <- msg.payload:
				default:
					close(client.Send)
					delete(h.chats[msg.chatID], id)
				}
			}
			if len(h.chats[msg.chatID]) == 0 {
				delete(h.chats, msg.chatID)
			}
			h.mu.Unlock()
		}
	}
}
