package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"teachablecam/internal/dto"
	"teachablecam/internal/logger"
)

const broadcastBuffer = 64

// HubService fans messages out to every connected viewer.
type HubService struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer %s connected. Total: %d", client.ID, count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer %s disconnected. Total: %d", client.ID, count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warning("Dropping slow viewer %s", client.ID)
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds client. Once the hub has stopped the client is closed instead.
func (h *HubService) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *HubService) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer. It never blocks; when the queue
// is full the message is dropped.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warning("Broadcast queue full, dropping message")
		return false
	}
}

// Publish sends the page state to every viewer.
func (h *HubService) Publish(state dto.State) {
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("Failed to encode state: %v", err)
		return
	}
	h.Broadcast(data)
}

// PublishFrame sends a JPEG preview to every viewer.
func (h *HubService) PublishFrame(jpeg []byte) {
	if h.GetClientCount() == 0 {
		return
	}

	data, err := json.Marshal(dto.FrameMessage{
		Type:  dto.MessageFrame,
		Image: base64.StdEncoding.EncodeToString(jpeg),
	})
	if err != nil {
		h.logger.Error("Failed to encode frame: %v", err)
		return
	}
	h.Broadcast(data)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
