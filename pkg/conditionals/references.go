package conditionals

import "slices"

// References lists the world keys a predicate set reads. The dialogue
// validator uses it to build a context grid that covers every gate.
type References struct {
	Quests          map[string]int          // quest id -> highest stage bound mentioned
	QuestThresholds map[string]map[int]bool
	Transformations map[string]bool
	PotionEffects   map[string]bool
	GlobalEvents    map[string]int          // event type -> highest minimum mentioned
	Unlocks         map[string]bool
	Friendship      bool
	SpecialFriend   bool
}

// NewReferences returns an empty References with allocated maps.
func NewReferences() *References {
	return &References{
		Quests:          make(map[string]int),
		QuestThresholds: make(map[string]map[int]bool),
		Transformations: make(map[string]bool),
		PotionEffects:   make(map[string]bool),
		GlobalEvents:    make(map[string]int),
		Unlocks:         make(map[string]bool),
	}
}

// Collect records the keys p reads.
func (r *References) Collect(p Predicates) {
	if p.RequiredQuest != "" {
		minStage := DefaultRequiredQuestStage
		if p.RequiredQuestStage != nil {
			minStage = *p.RequiredQuestStage
		}
		r.quest(p.RequiredQuest, minStage)
		if p.MaxQuestStage != nil {
			r.quest(p.RequiredQuest, *p.MaxQuestStage)
		}
	}
	for _, q := range []string{p.RequiredQuestCompleted, p.HiddenIfQuestStarted, p.HiddenIfQuestCompleted} {
		if q != "" {
			r.quest(q, DefaultRequiredQuestStage)
		}
	}

	if p.RequiredFriendshipTier != "" || p.HiddenAtFriendshipTier != "" {
		r.Friendship = true
	}
	if p.RequiredSpecialFriend {
		r.SpecialFriend = true
	}

	for _, t := range []string{p.RequiredTransformation, p.HiddenIfTransformed} {
		if t != "" {
			r.Transformations[t] = true
		}
	}
	for _, e := range []string{p.RequiredPotionEffect, p.HiddenWithPotionEffect} {
		if e != "" {
			r.PotionEffects[e] = true
		}
	}

	for _, e := range []string{p.RequiredGlobalEvent, p.HiddenIfGlobalEvent} {
		if e != "" {
			r.event(e, 1)
		}
	}
	if c := p.RequiredGlobalEventCount; c != nil && c.Type != "" {
		r.event(c.Type, c.Min)
	}

	if p.HiddenIfHasEasel {
		r.Unlocks[EaselUnlock] = true
	}
	for _, u := range []string{p.RequiredUnlock, p.HiddenIfUnlocked} {
		if u != "" {
			r.Unlocks[u] = true
		}
	}
}

func (r *References) quest(id string, bound int) {
	if cur, ok := r.Quests[id]; !ok || bound > cur {
		r.Quests[id] = bound
	}
	if r.QuestThresholds[id] == nil {
		r.QuestThresholds[id] = make(map[int]bool)
	}
	r.QuestThresholds[id][bound] = true
}

// QuestSamples returns the stages that tell the gates on quest apart: not
// started, plus every mentioned threshold and its neighbours, ascending.
func (r *References) QuestSamples(id string) []int {
	seen := map[int]bool{0: true}
	for b := range r.QuestThresholds[id] {
		for _, s := range []int{b - 1, b, b + 1} {
			if s >= 0 {
				seen[s] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func (r *References) event(kind string, atLeast int) {
	if cur, ok := r.GlobalEvents[kind]; !ok || atLeast > cur {
		r.GlobalEvents[kind] = atLeast
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
