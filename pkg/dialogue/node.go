// Package dialogue resolves which dialogue node an NPC shows for a world
// context, renders its text variant and filters its responses.
package dialogue

import (
	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// GreetingID is the node every conversation enters first.
const GreetingID = "greeting"

// Node is one turn of NPC speech. IDs are not unique: several nodes may share
// an id and the first visible one in declared order wins.
type Node struct {
	ID                 string                     `json:"id" yaml:"id"`
	Text               string                     `json:"text" yaml:"text"`
	SeasonalText       map[world.Season]string    `json:"seasonal_text,omitempty" yaml:"seasonal_text,omitempty"`
	TimeOfDayText      map[world.TimeOfDay]string `json:"time_of_day_text,omitempty" yaml:"time_of_day_text,omitempty"`
	WeatherText        map[world.Weather]string   `json:"weather_text,omitempty" yaml:"weather_text,omitempty"`
	TransformationText map[string]string          `json:"transformation_text,omitempty" yaml:"transformation_text,omitempty"`
	PotionEffectText   map[string]string          `json:"potion_effect_text,omitempty" yaml:"potion_effect_text,omitempty"`
	Responses          []Response                 `json:"responses,omitempty" yaml:"responses,omitempty"`

	conditionals.Predicates `yaml:",inline"`
}

// Response is a player reply. An empty NextID closes the conversation.
type Response struct {
	Text   string `json:"text" yaml:"text"`
	NextID string `json:"next_id,omitempty" yaml:"next_id,omitempty"`

	// Side effects, applied quest first, then items, then unlocks
	StartsQuest    string     `json:"starts_quest,omitempty" yaml:"starts_quest,omitempty"`
	SetsQuestStage *StageSet  `json:"sets_quest_stage,omitempty" yaml:"sets_quest_stage,omitempty"`
	AdvancesQuest  string     `json:"advances_quest,omitempty" yaml:"advances_quest,omitempty"`
	CompletesQuest string     `json:"completes_quest,omitempty" yaml:"completes_quest,omitempty"`
	GivesItems     []ItemGift `json:"gives_items,omitempty" yaml:"gives_items,omitempty"`
	UnlocksFeature string     `json:"unlocks_feature,omitempty" yaml:"unlocks_feature,omitempty"`

	conditionals.Predicates `yaml:",inline"`
}

// StageSet sets a quest to an explicit stage.
type StageSet struct {
	QuestID string `json:"quest_id" yaml:"quest_id"`
	Stage   int    `json:"stage" yaml:"stage"`
}

// ItemGift grants Quantity of ItemID.
type ItemGift struct {
	ItemID   string `json:"item_id" yaml:"item_id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// HasActions reports whether selecting r mutates any state.
func (r Response) HasActions() bool {
	return r.StartsQuest != "" || r.SetsQuestStage != nil || r.AdvancesQuest != "" ||
		r.CompletesQuest != "" || len(r.GivesItems) > 0 || r.UnlocksFeature != ""
}

// IsNodeVisible reports whether node passes its predicates for npcID.
func IsNodeVisible(node Node, view conditionals.WorldView, npcID string) bool {
	return conditionals.Evaluate(node.Predicates, view, npcID)
}

// IsResponseVisible reports whether r passes its predicates for npcID.
func IsResponseVisible(r Response, view conditionals.WorldView, npcID string) bool {
	return conditionals.Evaluate(r.Predicates, view, npcID)
}

// TextView is the part of the world context the text variants read.
type TextView interface {
	GetSeason() world.Season
	GetTimeOfDay() world.TimeOfDay
	GetWeather() world.Weather
	GetTransformation() string
	ActivePotionEffects() []string
}

var _ TextView = (*world.Context)(nil)

// RenderNodeText picks the most situational caption the node declares:
// potion effect, transformation, weather, time of day, season, then Text.
// With several active potions the first by name that has a caption wins.
func RenderNodeText(node Node, view TextView) string {
	if len(node.PotionEffectText) > 0 {
		for _, effect := range view.ActivePotionEffects() {
			if s, ok := node.PotionEffectText[effect]; ok {
				return s
			}
		}
	}
	if t := view.GetTransformation(); t != "" {
		if s, ok := node.TransformationText[t]; ok {
			return s
		}
	}
	if s, ok := node.WeatherText[view.GetWeather()]; ok {
		return s
	}
	if s, ok := node.TimeOfDayText[view.GetTimeOfDay()]; ok {
		return s
	}
	if s, ok := node.SeasonalText[view.GetSeason()]; ok {
		return s
	}
	return node.Text
}

// FilterResponses returns the visible responses of node in declared order.
func FilterResponses(node Node, view conditionals.WorldView, npcID string) []Response {
	var out []Response
	for _, r := range node.Responses {
		if IsResponseVisible(r, view, npcID) {
			out = append(out, r)
		}
	}
	return out
}
