package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

func (r *RedisConversationRepository) pendingKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:pending", conversationID)
}

// touch extends the TTL of key; a missing key is only worth a warning.
func (r *RedisConversationRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	ok, err := r.rdb.Expire(ctx, key, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		return errx.WrapRedis(err)
	}
	if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
	}
	return nil
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	return r.AddMessages(ctx, conversationID, message)
}

// AddMessages pushes all messages with a single RPUSH, so they land together.
func (r *RedisConversationRepository) AddMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	rows := make([]any, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		rows = append(rows, b)
	}
	key := r.conversationKey(conversationID)

	if err := r.rdb.RPush(ctx, key, rows...).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	key := r.conversationKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, conversationID string) error {
	keys := []string{r.conversationKey(conversationID), r.pendingKey(conversationID)}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		logx.Error().Err(err).Strs("keys", keys).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	key := r.conversationKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// AddPendingInvocation stores inv in a hash keyed by its correlation id.
func (r *RedisConversationRepository) AddPendingInvocation(ctx context.Context, conversationID string, inv model.ToolInvocation) error {
	if inv.ID == "" {
		return errx.ErrMissingCorrelationID
	}
	b, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invocation: %w", err)
	}
	key := r.pendingKey(conversationID)
	if err := r.rdb.HSet(ctx, key, inv.ID.String(), b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Str("tool_call_id", inv.ID.String()).Msg("failed to store pending invocation")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

func (r *RedisConversationRepository) ResolvePendingInvocation(ctx context.Context, conversationID string, id model.CorrelationID) (bool, error) {
	key := r.pendingKey(conversationID)
	n, err := r.rdb.HDel(ctx, key, id.String()).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Str("tool_call_id", id.String()).Msg("failed to resolve pending invocation")
		return false, errx.WrapRedis(err)
	}
	return n > 0, nil
}

func (r *RedisConversationRepository) ListPendingInvocations(ctx context.Context, conversationID string) ([]model.ToolInvocation, error) {
	key := r.pendingKey(conversationID)
	rows, err := r.rdb.HVals(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to list pending invocations")
		return nil, errx.WrapRedis(err)
	}

	out := make([]model.ToolInvocation, 0, len(rows))
	for _, s := range rows {
		var inv model.ToolInvocation
		if err := json.Unmarshal([]byte(s), &inv); err != nil {
			return nil, fmt.Errorf("unmarshal invocation: %w", err)
		}
		out = append(out, inv)
	}
	// HVALS order is unspecified.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
