package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/redis/go-redis/v9"
)

// GlobalEventsKey is the hash of shared event counts across every save.
const GlobalEventsKey = "global-events"

// RedisStore implements state.Store for one save slot. Every key lives under
// save:{id}: so slots never collide.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	saveID string
}

var (
	_ state.Store        = (*RedisStore)(nil)
	_ state.GlobalEvents = (*RedisStore)(nil)
)

// startQuest raises a quest to at least stage 1 and, when ARGV[2] is set,
// marks it completed in the same step.
var startQuest = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if cur < 1 then
	redis.call('HSET', KEYS[1], ARGV[1], 1)
	cur = 1
end
if ARGV[2] == '1' then
	redis.call('SADD', KEYS[2], ARGV[1])
end
return cur
`)

// removeItem decrements an inventory count, returning -1 when there are not
// enough items and deleting the field when it reaches zero.
var removeItem = redis.NewScript(`
local have = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local want = tonumber(ARGV[2])
if have < want then
	return -1
end
if have == want then
	redis.call('HDEL', KEYS[1], ARGV[1])
	return 0
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], -want)
`)

// NewRedisStore creates a store for one save slot from redisURL
// (redis://host:port/db). It does not connect; call WaitForConnection.
func NewRedisStore(redisURL, saveID string, logger *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opt), saveID, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, saveID string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger, saveID: saveID}
}

// Client returns the underlying client so the event broadcaster can share it.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// WaitForConnection retries Ping until Redis answers or attempts run out.
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

func (r *RedisStore) key(name string) string {
	return "save:" + r.saveID + ":" + name
}

// Friendship

func (r *RedisStore) FriendshipPoints(ctx context.Context) (map[string]int, error) {
	return r.intHash(ctx, r.key("friendship"), "friendship points")
}

func (r *RedisStore) AddFriendshipPoints(ctx context.Context, npcID string, delta int) (int, error) {
	n, err := r.client.HIncrBy(ctx, r.key("friendship"), npcID, int64(delta)).Result()
	if err != nil {
		r.logger.Error("Failed to add friendship points", "npc", npcID, "error", err)
		return 0, fmt.Errorf("failed to add friendship points: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) SpecialFriends(ctx context.Context) ([]string, error) {
	return r.members(ctx, r.key("special-friends"), "special friends")
}

func (r *RedisStore) SetSpecialFriend(ctx context.Context, npcID string, special bool) error {
	return r.setFlag(ctx, r.key("special-friends"), npcID, special, "special friend")
}

// Quests

func (r *RedisStore) QuestStages(ctx context.Context) (map[string]int, error) {
	return r.intHash(ctx, r.key("quests"), "quest stages")
}

func (r *RedisStore) CompletedQuests(ctx context.Context) ([]string, error) {
	return r.members(ctx, r.key("completed"), "completed quests")
}

func (r *RedisStore) StartQuest(ctx context.Context, questID string) error {
	if err := startQuest.Run(ctx, r.client, []string{r.key("quests"), r.key("completed")}, questID, "0").Err(); err != nil {
		r.logger.Error("Failed to start quest", "quest", questID, "error", err)
		return fmt.Errorf("failed to start quest: %w", err)
	}
	return nil
}

func (r *RedisStore) SetQuestStage(ctx context.Context, questID string, stage int) error {
	if err := state.ValidateStage(stage); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key("quests"), questID, stage).Err(); err != nil {
		r.logger.Error("Failed to set quest stage", "quest", questID, "stage", stage, "error", err)
		return fmt.Errorf("failed to set quest stage: %w", err)
	}
	return nil
}

// AdvanceQuest increments the stage; stages are never negative so HINCRBY
// gives max(cur, 0)+1.
func (r *RedisStore) AdvanceQuest(ctx context.Context, questID string) error {
	if err := r.client.HIncrBy(ctx, r.key("quests"), questID, 1).Err(); err != nil {
		r.logger.Error("Failed to advance quest", "quest", questID, "error", err)
		return fmt.Errorf("failed to advance quest: %w", err)
	}
	return nil
}

func (r *RedisStore) CompleteQuest(ctx context.Context, questID string) error {
	if err := startQuest.Run(ctx, r.client, []string{r.key("quests"), r.key("completed")}, questID, "1").Err(); err != nil {
		r.logger.Error("Failed to complete quest", "quest", questID, "error", err)
		return fmt.Errorf("failed to complete quest: %w", err)
	}
	return nil
}

// Inventory

func (r *RedisStore) Inventory(ctx context.Context) (map[string]int, error) {
	return r.intHash(ctx, r.key("inventory"), "inventory")
}

func (r *RedisStore) GiveItem(ctx context.Context, itemID string, quantity int) error {
	if err := state.ValidateQuantity(quantity); err != nil {
		return err
	}
	if err := r.client.HIncrBy(ctx, r.key("inventory"), itemID, int64(quantity)).Err(); err != nil {
		r.logger.Error("Failed to give item", "item", itemID, "quantity", quantity, "error", err)
		return fmt.Errorf("failed to give item: %w", err)
	}
	return nil
}

func (r *RedisStore) RemoveItem(ctx context.Context, itemID string, quantity int) error {
	if err := state.ValidateQuantity(quantity); err != nil {
		return err
	}
	left, err := removeItem.Run(ctx, r.client, []string{r.key("inventory")}, itemID, quantity).Int()
	if err != nil {
		r.logger.Error("Failed to remove item", "item", itemID, "quantity", quantity, "error", err)
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if left < 0 {
		return fmt.Errorf("%w: %s, need %d", state.ErrInsufficientItems, itemID, quantity)
	}
	return nil
}

// Unlocks

func (r *RedisStore) Unlocks(ctx context.Context) ([]string, error) {
	return r.members(ctx, r.key("unlocks"), "unlocks")
}

func (r *RedisStore) Unlock(ctx context.Context, feature string) error {
	return r.setFlag(ctx, r.key("unlocks"), feature, true, "unlock")
}

// Transformation and potion effects

func (r *RedisStore) Transformation(ctx context.Context) (string, error) {
	name, err := r.client.Get(ctx, r.key("transformation")).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transformation: %w", err)
	}
	return name, nil
}

func (r *RedisStore) SetTransformation(ctx context.Context, name string) error {
	var err error
	if name == "" {
		err = r.client.Del(ctx, r.key("transformation")).Err()
	} else {
		err = r.client.Set(ctx, r.key("transformation"), name, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to set transformation: %w", err)
	}
	return nil
}

func (r *RedisStore) PotionEffects(ctx context.Context) ([]string, error) {
	return r.members(ctx, r.key("potions"), "potion effects")
}

func (r *RedisStore) SetPotionEffect(ctx context.Context, name string, active bool) error {
	return r.setFlag(ctx, r.key("potions"), name, active, "potion effect")
}

// Daily collection

func (r *RedisStore) CollectedOn(ctx context.Context, key string, day int) (bool, error) {
	last, err := r.client.HGet(ctx, r.key("collected"), key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read collection %s: %w", key, err)
	}
	return last == day, nil
}

func (r *RedisStore) MarkCollected(ctx context.Context, key string, day int) error {
	if err := r.client.HSet(ctx, r.key("collected"), key, day).Err(); err != nil {
		r.logger.Error("Failed to mark collected", "key", key, "day", day, "error", err)
		return fmt.Errorf("failed to mark %s collected: %w", key, err)
	}
	return nil
}

// Global events

func (r *RedisStore) RecordGlobalEvent(ctx context.Context, eventType string) (int, error) {
	n, err := r.client.HIncrBy(ctx, GlobalEventsKey, eventType, 1).Result()
	if err != nil {
		r.logger.Error("Failed to record global event", "event", eventType, "error", err)
		return 0, fmt.Errorf("failed to record global event: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) GlobalEventCounts(ctx context.Context) (map[string]int, error) {
	return r.intHash(ctx, GlobalEventsKey, "global events")
}

// Reset deletes every key of this save slot. Global events are kept.
func (r *RedisStore) Reset(ctx context.Context) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan save keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete save keys: %w", err)
	}
	return nil
}

func (r *RedisStore) intHash(ctx context.Context, key, what string) (map[string]int, error) {
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	out := make(map[string]int, len(raw))
	for field, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.logger.Warn("Ignoring non-numeric hash field", "key", key, "field", field, "value", v)
			continue
		}
		out[field] = n
	}
	return out, nil
}

func (r *RedisStore) members(ctx context.Context, key, what string) ([]string, error) {
	list, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	slices.Sort(list)
	return list, nil
}

func (r *RedisStore) setFlag(ctx context.Context, key, member string, on bool, what string) error {
	var err error
	if on {
		err = r.client.SAdd(ctx, key, member).Err()
	} else {
		err = r.client.SRem(ctx, key, member).Err()
	}
	if err != nil {
		r.logger.Error("Failed to update set", "key", key, "member", member, "error", err)
		return fmt.Errorf("failed to set %s: %w", what, err)
	}
	return nil
}
