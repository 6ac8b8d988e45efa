package livefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed is the Redis side of the bridge, implemented by storage.Service.
type Feed interface {
	PublishAuditEvent(payload []byte) error
	SubscribeAuditFeed() *redis.PubSub
}

// UseRedis subscribes to the shared audit channel so that events published by
// any portal instance reach this hub's clients. It must be called before Run.
func (h *Hub) UseRedis(ctx context.Context, feed Feed) error {
	sub := feed.SubscribeAuditFeed()
	if sub == nil {
		return nil
	}
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe audit feed: %w", err)
	}
	h.feed = feed
	h.sub = sub
	return nil
}

func (h *Hub) forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Warn("decode audit feed message", zap.Error(err))
				continue
			}
			select {
			case h.BroadcastCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
