package conditionals

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// Predicates is the applicability predicate set shared by dialogue nodes and
// responses. Every field is optional; an unset field never constrains.
type Predicates struct {
	// Quest gates
	RequiredQuest          string `json:"required_quest,omitempty" yaml:"required_quest,omitempty"`
	RequiredQuestStage     *int   `json:"required_quest_stage,omitempty" yaml:"required_quest_stage,omitempty"` // default 1
	MaxQuestStage          *int   `json:"max_quest_stage,omitempty" yaml:"max_quest_stage,omitempty"`
	RequiredQuestCompleted string `json:"required_quest_completed,omitempty" yaml:"required_quest_completed,omitempty"`
	HiddenIfQuestStarted   string `json:"hidden_if_quest_started,omitempty" yaml:"hidden_if_quest_started,omitempty"`
	HiddenIfQuestCompleted string `json:"hidden_if_quest_completed,omitempty" yaml:"hidden_if_quest_completed,omitempty"`

	// Friendship gates
	RequiredFriendshipTier world.FriendshipTier `json:"required_friendship_tier,omitempty" yaml:"required_friendship_tier,omitempty"`
	HiddenAtFriendshipTier world.FriendshipTier `json:"hidden_at_friendship_tier,omitempty" yaml:"hidden_at_friendship_tier,omitempty"` // hidden at or above
	RequiredSpecialFriend  bool                 `json:"required_special_friend,omitempty" yaml:"required_special_friend,omitempty"`

	// Transformation and potion gates
	RequiredTransformation    string `json:"required_transformation,omitempty" yaml:"required_transformation,omitempty"`
	HiddenIfTransformed       string `json:"hidden_if_transformed,omitempty" yaml:"hidden_if_transformed,omitempty"`
	HiddenIfAnyTransformation bool   `json:"hidden_if_any_transformation,omitempty" yaml:"hidden_if_any_transformation,omitempty"`
	RequiredPotionEffect      string `json:"required_potion_effect,omitempty" yaml:"required_potion_effect,omitempty"`
	HiddenWithPotionEffect    string `json:"hidden_with_potion_effect,omitempty" yaml:"hidden_with_potion_effect,omitempty"`

	// Global shared event gates
	RequiredGlobalEvent      string            `json:"required_global_event,omitempty" yaml:"required_global_event,omitempty"`
	RequiredGlobalEventCount *GlobalEventCount `json:"required_global_event_count,omitempty" yaml:"required_global_event_count,omitempty"`
	HiddenIfGlobalEvent      string            `json:"hidden_if_global_event,omitempty" yaml:"hidden_if_global_event,omitempty"`

	// Decoration and unlock gates
	HiddenIfHasEasel bool   `json:"hidden_if_has_easel,omitempty" yaml:"hidden_if_has_easel,omitempty"`
	RequiredUnlock   string `json:"required_unlock,omitempty" yaml:"required_unlock,omitempty"`
	HiddenIfUnlocked string `json:"hidden_if_unlocked,omitempty" yaml:"hidden_if_unlocked,omitempty"`
}

// GlobalEventCount requires at least Min shared events of Type.
type GlobalEventCount struct {
	Type string `json:"type" yaml:"type"`
	Min  int    `json:"min" yaml:"min"`
}

// EaselUnlock is the unlock flag checked by HiddenIfHasEasel.
const EaselUnlock = "easel"

// WorldView provides the minimal interface needed to evaluate predicates.
// *world.Context implements it.
type WorldView interface {
	GetQuestStage(questID string) int
	IsQuestStarted(questID string) bool
	IsQuestCompleted(questID string) bool
	GetFriendshipTier(npcID string) world.FriendshipTier
	IsSpecialFriend(npcID string) bool
	GetTransformation() string
	HasPotionEffect(name string) bool
	GetGlobalEventCount(eventType string) int
	HasUnlock(name string) bool
}

var _ WorldView = (*world.Context)(nil)

// IsEmpty reports whether no predicate is set.
func (p Predicates) IsEmpty() bool {
	return p.RequiredQuest == "" &&
		p.RequiredQuestStage == nil &&
		p.MaxQuestStage == nil &&
		p.RequiredQuestCompleted == "" &&
		p.HiddenIfQuestStarted == "" &&
		p.HiddenIfQuestCompleted == "" &&
		p.RequiredFriendshipTier == "" &&
		p.HiddenAtFriendshipTier == "" &&
		!p.RequiredSpecialFriend &&
		p.RequiredTransformation == "" &&
		p.HiddenIfTransformed == "" &&
		!p.HiddenIfAnyTransformation &&
		p.RequiredPotionEffect == "" &&
		p.HiddenWithPotionEffect == "" &&
		p.RequiredGlobalEvent == "" &&
		p.RequiredGlobalEventCount == nil &&
		p.HiddenIfGlobalEvent == "" &&
		!p.HiddenIfHasEasel &&
		p.RequiredUnlock == "" &&
		p.HiddenIfUnlocked == ""
}

// ErrInvalidPredicate marks a predicate set that can never be evaluated
// sensibly.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Validate checks tier names, stage bounds and event counts. All problems
// are joined into one error wrapping ErrInvalidPredicate.
func (p Predicates) Validate() error {
	var problems []string
	for _, tier := range []world.FriendshipTier{p.RequiredFriendshipTier, p.HiddenAtFriendshipTier} {
		if tier != "" && !tier.Valid() {
			problems = append(problems, fmt.Sprintf("unknown friendship tier %q", tier))
		}
	}
	if (p.RequiredQuestStage != nil || p.MaxQuestStage != nil) && p.RequiredQuest == "" {
		problems = append(problems, "quest stage bounds need required_quest")
	}
	if p.RequiredQuestStage != nil && *p.RequiredQuestStage < 0 {
		problems = append(problems, fmt.Sprintf("required_quest_stage %d is negative", *p.RequiredQuestStage))
	}
	if p.MaxQuestStage != nil {
		floor := DefaultRequiredQuestStage
		if p.RequiredQuestStage != nil {
			floor = *p.RequiredQuestStage
		}
		if *p.MaxQuestStage < floor {
			problems = append(problems, fmt.Sprintf("max_quest_stage %d is below required stage %d", *p.MaxQuestStage, floor))
		}
	}
	if c := p.RequiredGlobalEventCount; c != nil && (c.Type == "" || c.Min < 1) {
		problems = append(problems, "required_global_event_count needs a type and a min of at least 1")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidPredicate, errors.New(strings.Join(problems, "; ")))
}
