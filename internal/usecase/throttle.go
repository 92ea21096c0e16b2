package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// AutoReplyThrottle decides whether an out-of-hours auto-reply may be sent on a thread.
type AutoReplyThrottle interface {
	Allow(ctx context.Context, threadID int64) bool
}

// NoThrottle replies to every out-of-hours user message.
type NoThrottle struct{}

func (NoThrottle) Allow(context.Context, int64) bool { return true }

// RedisThrottle allows one auto-reply per thread per window, shared by every process using the
// same Redis.
type RedisThrottle struct {
	client redis.Cmdable
	window time.Duration
	prefix string
}

// NewRedisThrottle returns a throttle keyed chat:autoreply:<threadId>.
func NewRedisThrottle(client redis.Cmdable, window time.Duration) *RedisThrottle {
	return &RedisThrottle{client: client, window: window, prefix: "chat:autoreply:"}
}

// Allow claims the window for threadID. A Redis failure allows the reply.
func (t *RedisThrottle) Allow(ctx context.Context, threadID int64) bool {
	key := fmt.Sprintf("%s%d", t.prefix, threadID)
	ok, err := t.client.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		logger.FromContext(ctx).Warn("Auto-reply throttle unavailable, replying anyway",
			zap.Int64("thread_id", threadID), zap.Error(err))
		return true
	}
	return ok
}

// NewAutoReplyThrottle picks the throttle for the configured window. A zero window or a nil
// client disables throttling.
func NewAutoReplyThrottle(client redis.Cmdable, window time.Duration) AutoReplyThrottle {
	if window <= 0 || client == nil {
		return NoThrottle{}
	}
	return NewRedisThrottle(client, window)
}
