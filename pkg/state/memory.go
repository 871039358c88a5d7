package state

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// MemoryStore keeps a save in process memory. It is meant for a single
// writer on the game loop goroutine and for tests.
type MemoryStore struct {
	friendship     map[string]int
	specialFriends map[string]bool
	questStages    map[string]int
	completed      map[string]bool
	inventory      map[string]int
	unlocks        map[string]bool
	transformation string
	potions        map[string]bool
	collected      map[string]int // key -> last day collected
	globalEvents   map[string]int
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ GlobalEvents = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty save.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		friendship:     make(map[string]int),
		specialFriends: make(map[string]bool),
		questStages:    make(map[string]int),
		completed:      make(map[string]bool),
		inventory:      make(map[string]int),
		unlocks:        make(map[string]bool),
		potions:        make(map[string]bool),
		collected:      make(map[string]int),
		globalEvents:   make(map[string]int),
	}
}

func (m *MemoryStore) FriendshipPoints(context.Context) (map[string]int, error) {
	return maps.Clone(m.friendship), nil
}

func (m *MemoryStore) AddFriendshipPoints(_ context.Context, npcID string, delta int) (int, error) {
	m.friendship[npcID] += delta
	return m.friendship[npcID], nil
}

func (m *MemoryStore) SpecialFriends(context.Context) ([]string, error) {
	return setKeys(m.specialFriends), nil
}

func (m *MemoryStore) SetSpecialFriend(_ context.Context, npcID string, special bool) error {
	setFlag(m.specialFriends, npcID, special)
	return nil
}

func (m *MemoryStore) QuestStages(context.Context) (map[string]int, error) {
	return maps.Clone(m.questStages), nil
}

func (m *MemoryStore) CompletedQuests(context.Context) ([]string, error) {
	return setKeys(m.completed), nil
}

func (m *MemoryStore) StartQuest(_ context.Context, questID string) error {
	m.questStages[questID] = StartedStage(m.questStages[questID])
	return nil
}

func (m *MemoryStore) SetQuestStage(_ context.Context, questID string, stage int) error {
	if err := ValidateStage(stage); err != nil {
		return err
	}
	m.questStages[questID] = stage
	return nil
}

func (m *MemoryStore) AdvanceQuest(_ context.Context, questID string) error {
	m.questStages[questID] = AdvancedStage(m.questStages[questID])
	return nil
}

func (m *MemoryStore) CompleteQuest(_ context.Context, questID string) error {
	m.questStages[questID] = StartedStage(m.questStages[questID])
	m.completed[questID] = true
	return nil
}

func (m *MemoryStore) Inventory(context.Context) (map[string]int, error) {
	return maps.Clone(m.inventory), nil
}

func (m *MemoryStore) GiveItem(_ context.Context, itemID string, quantity int) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	m.inventory[itemID] += quantity
	return nil
}

func (m *MemoryStore) RemoveItem(_ context.Context, itemID string, quantity int) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	have := m.inventory[itemID]
	if have < quantity {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientItems, itemID, have, quantity)
	}
	if have == quantity {
		delete(m.inventory, itemID)
		return nil
	}
	m.inventory[itemID] = have - quantity
	return nil
}

func (m *MemoryStore) Unlocks(context.Context) ([]string, error) {
	return setKeys(m.unlocks), nil
}

func (m *MemoryStore) Unlock(_ context.Context, feature string) error {
	m.unlocks[feature] = true
	return nil
}

func (m *MemoryStore) Transformation(context.Context) (string, error) {
	return m.transformation, nil
}

func (m *MemoryStore) SetTransformation(_ context.Context, name string) error {
	m.transformation = name
	return nil
}

func (m *MemoryStore) PotionEffects(context.Context) ([]string, error) {
	return setKeys(m.potions), nil
}

func (m *MemoryStore) SetPotionEffect(_ context.Context, name string, active bool) error {
	setFlag(m.potions, name, active)
	return nil
}

func (m *MemoryStore) CollectedOn(_ context.Context, key string, day int) (bool, error) {
	last, ok := m.collected[key]
	return ok && last == day, nil
}

func (m *MemoryStore) MarkCollected(_ context.Context, key string, day int) error {
	m.collected[key] = day
	return nil
}

func (m *MemoryStore) RecordGlobalEvent(_ context.Context, eventType string) (int, error) {
	m.globalEvents[eventType]++
	return m.globalEvents[eventType], nil
}

func (m *MemoryStore) GlobalEventCounts(context.Context) (map[string]int, error) {
	return maps.Clone(m.globalEvents), nil
}

func setKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func setFlag(m map[string]bool, key string, on bool) {
	if on {
		m[key] = true
		return
	}
	delete(m, key)
}
