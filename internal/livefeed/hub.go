// Package livefeed streams audit rows to connected admin websockets.
package livefeed

import (
	"context"
	"encoding/json"
	"sync"

	"healthportal/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const broadcastBuffer = 64

// Hub fans audit events out to every registered client. All map mutations
// happen on the Run goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	BroadcastCh  chan Event

	feed Feed
	sub  *redis.PubSub

	done chan struct{}
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		BroadcastCh:  make(chan Event, broadcastBuffer),
		done:         make(chan struct{}),
		log:          log,
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if h.sub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.forward(ctx, h.sub.Channel())
		}()
	}

	defer func() {
		if h.sub != nil {
			if err := h.sub.Close(); err != nil {
				h.log.Warn("close audit feed subscription", zap.Error(err))
			}
		}
		wg.Wait()
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.RegisterCh:
			h.mu.Lock()
			h.clients[c.GetID()] = c
			h.mu.Unlock()
			h.log.Debug("feed client registered", zap.String("client", c.GetID()))
		case c := <-h.UnregisterCh:
			h.remove(c)
		case ev := <-h.BroadcastCh:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	var slow []Client
	for _, c := range h.clients {
		select {
		case c.GetSendChannel() <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow feed client", zap.String("client", c.GetID()))
		h.remove(c)
	}
}

func (h *Hub) remove(c Client) {
	h.mu.Lock()
	_, ok := h.clients[c.GetID()]
	delete(h.clients, c.GetID())
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.Close()
	}
}

// PublishAudit implements audit.Publisher. With a Redis feed the event goes
// through Redis so every instance sees it once; otherwise it is broadcast
// locally. Events are dropped rather than blocking the caller.
func (h *Hub) PublishAudit(row models.AuditLog) {
	ev := NewEvent(row)
	if h.feed != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = h.feed.PublishAuditEvent(payload)
		}
		if err == nil {
			return
		}
		h.log.Warn("publish audit event to redis", zap.Error(err))
	}

	select {
	case h.BroadcastCh <- ev:
	case <-h.done:
	default:
		h.log.Debug("audit feed buffer full, event dropped", zap.Uint("id", row.ID))
	}
}
