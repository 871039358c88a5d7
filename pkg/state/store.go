// Package state defines the save-state store the interaction core reads and
// mutates, an in-memory implementation, and the world context snapshot built
// from it for each resolution call.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
)

var (
	ErrInvalidStage      = errors.New("invalid quest stage")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientItems = errors.New("not enough items")
)

// Store is the per-save quest, friendship, inventory and unlock store.
// Implementations serialise their own writes; callers never retry.
type Store interface {
	dialogue.Effects

	// Friendship
	FriendshipPoints(ctx context.Context) (map[string]int, error)
	AddFriendshipPoints(ctx context.Context, npcID string, delta int) (int, error)
	SpecialFriends(ctx context.Context) ([]string, error)
	SetSpecialFriend(ctx context.Context, npcID string, special bool) error

	// Quests
	QuestStages(ctx context.Context) (map[string]int, error)
	CompletedQuests(ctx context.Context) ([]string, error)

	// Inventory
	Inventory(ctx context.Context) (map[string]int, error)
	RemoveItem(ctx context.Context, itemID string, quantity int) error

	// Unlocks
	Unlocks(ctx context.Context) ([]string, error)

	// Transformation and potion effects
	Transformation(ctx context.Context) (string, error)
	SetTransformation(ctx context.Context, name string) error
	PotionEffects(ctx context.Context) ([]string, error)
	SetPotionEffect(ctx context.Context, name string, active bool) error

	// Once-per-day collection flags (daily NPC resources, forage spots)
	CollectedOn(ctx context.Context, key string, day int) (bool, error)
	MarkCollected(ctx context.Context, key string, day int) error
}

// GlobalEvents counts shared events across every save.
type GlobalEvents interface {
	RecordGlobalEvent(ctx context.Context, eventType string) (int, error)
	GlobalEventCounts(ctx context.Context) (map[string]int, error)
}

// ResourceKey is the collection key for an NPC's daily resource.
func ResourceKey(npcID string) string {
	return "resource:" + npcID
}

// ForageKey is the collection key for a forage spot.
func ForageKey(mapID string, x, y int) string {
	return fmt.Sprintf("forage:%s:%d:%d", mapID, x, y)
}

// ValidateStage rejects negative quest stages.
func ValidateStage(stage int) error {
	if stage < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
	return nil
}

// ValidateQuantity rejects non-positive item quantities.
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	return nil
}

// StartedStage returns the stage after starting a quest at current.
func StartedStage(current int) int {
	return max(current, 1)
}

// AdvancedStage returns the stage after advancing a quest at current.
func AdvancedStage(current int) int {
	return max(current, 0) + 1
}
