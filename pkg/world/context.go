package world

import (
	"maps"
	"slices"
)

// Context is the WorldContext snapshot that dialogue and interaction rules are
// evaluated against. It is recomputed for each resolution call and never
// mutated by the rules themselves.
type Context struct {
	Season          Season                    `json:"season"`
	TimeOfDay       TimeOfDay                 `json:"time_of_day"`
	Weather         Weather                   `json:"weather"`
	Transformation  string                    `json:"transformation,omitempty"`
	PotionEffects   map[string]bool           `json:"potion_effects,omitempty"`
	Friendship      map[string]FriendshipTier `json:"friendship,omitempty"`
	SpecialFriends  map[string]bool           `json:"special_friends,omitempty"`
	QuestStages     map[string]int            `json:"quest_stages,omitempty"` // 0 or absent = not started
	CompletedQuests map[string]bool           `json:"completed_quests,omitempty"`
	GlobalEvents    map[string]int            `json:"global_events,omitempty"`
	Unlocks         map[string]bool           `json:"unlocks,omitempty"` // one-off flags such as "easel"
}

// NewContext returns an empty context with all maps allocated.
func NewContext(season Season, tod TimeOfDay, weather Weather) *Context {
	return &Context{
		Season:          season,
		TimeOfDay:       tod,
		Weather:         weather,
		PotionEffects:   make(map[string]bool),
		Friendship:      make(map[string]FriendshipTier),
		SpecialFriends:  make(map[string]bool),
		QuestStages:     make(map[string]int),
		CompletedQuests: make(map[string]bool),
		GlobalEvents:    make(map[string]int),
		Unlocks:         make(map[string]bool),
	}
}

func (c *Context) GetSeason() Season       { return c.Season }
func (c *Context) GetTimeOfDay() TimeOfDay { return c.TimeOfDay }
func (c *Context) GetWeather() Weather     { return c.Weather }

// GetTransformation returns the active transformation name, or "".
func (c *Context) GetTransformation() string { return c.Transformation }

func (c *Context) HasPotionEffect(name string) bool { return c.PotionEffects[name] }

// GetFriendshipTier returns the tier with npcID; unknown NPCs are strangers.
func (c *Context) GetFriendshipTier(npcID string) FriendshipTier {
	if tier, ok := c.Friendship[npcID]; ok && tier.Valid() {
		return tier
	}
	return TierStranger
}

func (c *Context) IsSpecialFriend(npcID string) bool { return c.SpecialFriends[npcID] }

// GetQuestStage returns the current stage of a quest; 0 means not started.
func (c *Context) GetQuestStage(questID string) int { return c.QuestStages[questID] }

// IsQuestStarted reports whether the quest has been started. Completed quests
// count as started.
func (c *Context) IsQuestStarted(questID string) bool {
	return c.QuestStages[questID] >= 1 || c.CompletedQuests[questID]
}

func (c *Context) IsQuestCompleted(questID string) bool { return c.CompletedQuests[questID] }

// GetGlobalEventCount returns how many shared events of a type have been recorded.
func (c *Context) GetGlobalEventCount(eventType string) int { return c.GlobalEvents[eventType] }

func (c *Context) HasUnlock(name string) bool { return c.Unlocks[name] }

// ActivePotionEffects returns the names of active potion effects, sorted.
func (c *Context) ActivePotionEffects() []string {
	out := make([]string, 0, len(c.PotionEffects))
	for name, on := range c.PotionEffects {
		if on {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	out := NewContext(c.Season, c.TimeOfDay, c.Weather)
	out.Transformation = c.Transformation
	maps.Copy(out.PotionEffects, c.PotionEffects)
	maps.Copy(out.Friendship, c.Friendship)
	maps.Copy(out.SpecialFriends, c.SpecialFriends)
	maps.Copy(out.QuestStages, c.QuestStages)
	maps.Copy(out.CompletedQuests, c.CompletedQuests)
	maps.Copy(out.GlobalEvents, c.GlobalEvents)
	maps.Copy(out.Unlocks, c.Unlocks)
	return out
}
