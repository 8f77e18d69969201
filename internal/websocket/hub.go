package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"skalgpt-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the redis channel hubs use to reach users connected to other instances.
const ClusterChannel = "cluster_events"

// Envelope is the JSON frame written to websocket clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	// Closed when Run returns; nobody reads register or unregister after that
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication, nil when running alone
	rdb *redis.Client
	// Identifies this instance so it ignores its own redis echoes
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = append(h.clients[client.userID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.userID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// join hands a new client to the hub. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.userID] = append(clients[:i], clients[i+1:]...)
			close(client.send)
			break
		}
	}
	if len(h.clients[client.userID]) == 0 {
		delete(h.clients, client.userID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.userID})
	}
}

// Send pushes an event to every device of userID, on this instance and,
// through redis, on the others.
func (h *Hub) Send(userID uuid.UUID, eventType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "failed to encode event", map[string]interface{}{"type": eventType, "error": err})
		return
	}

	h.deliverLocal(userID, frame)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			Message:      frame,
		})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "redis publish failed", map[string]interface{}{"error": err})
		}
	}
}

// ConnectedDevices reports how many local connections userID has.
func (h *Hub) ConnectedDevices(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliverLocal(userID uuid.UUID, frame []byte) {
	// Sends happen under the read lock so remove cannot close a channel mid-send
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.send <- frame:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
			go h.leave(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	// Every instance listens on one channel and keeps only messages for users it holds.
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(uid, payload.Message)
	}
}
