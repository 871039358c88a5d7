package state

import (
	"context"
	"fmt"

	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// Environment is the part of the world context owned by the clock and the
// weather system rather than the save.
type Environment struct {
	Season    world.Season
	TimeOfDay world.TimeOfDay
	Weather   world.Weather
}

// Snapshot reads the save and the shared event counts into a fresh world
// context. seeds holds each befriendable NPC's starting points and is used
// for NPCs the save has no points for. globals may be nil.
func Snapshot(ctx context.Context, store Store, globals GlobalEvents, env Environment, seeds map[string]int) (*world.Context, error) {
	wc := world.NewContext(env.Season, env.TimeOfDay, env.Weather)

	points, err := store.FriendshipPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read friendship: %w", err)
	}
	for npcID, p := range seeds {
		if _, ok := points[npcID]; !ok {
			wc.Friendship[npcID] = world.TierForPoints(p)
		}
	}
	for npcID, p := range points {
		wc.Friendship[npcID] = world.TierForPoints(p)
	}

	special, err := store.SpecialFriends(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read special friends: %w", err)
	}
	for _, id := range special {
		wc.SpecialFriends[id] = true
	}

	stages, err := store.QuestStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest stages: %w", err)
	}
	for id, s := range stages {
		wc.QuestStages[id] = s
	}
	completed, err := store.CompletedQuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read completed quests: %w", err)
	}
	for _, id := range completed {
		wc.CompletedQuests[id] = true
	}

	unlocks, err := store.Unlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read unlocks: %w", err)
	}
	for _, u := range unlocks {
		wc.Unlocks[u] = true
	}

	if wc.Transformation, err = store.Transformation(ctx); err != nil {
		return nil, fmt.Errorf("failed to read transformation: %w", err)
	}
	potions, err := store.PotionEffects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read potion effects: %w", err)
	}
	for _, p := range potions {
		wc.PotionEffects[p] = true
	}

	if globals != nil {
		counts, err := globals.GlobalEventCounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read global events: %w", err)
		}
		for t, n := range counts {
			wc.GlobalEvents[t] = n
		}
	}
	return wc, nil
}
