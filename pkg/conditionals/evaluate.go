package conditionals

// DefaultRequiredQuestStage is the minimum stage for RequiredQuest when
// RequiredQuestStage is unset.
const DefaultRequiredQuestStage = 1

// Evaluate checks every predicate in p against view for the NPC npcID.
// A single failing requirement or a single satisfied hidden-if makes the
// result false. An empty predicate set always passes.
func Evaluate(p Predicates, view WorldView, npcID string) bool {
	return questGates(p, view) &&
		friendshipGates(p, view, npcID) &&
		transformationGates(p, view) &&
		globalEventGates(p, view) &&
		unlockGates(p, view)
}

func questGates(p Predicates, view WorldView) bool {
	if p.RequiredQuest != "" {
		if !view.IsQuestStarted(p.RequiredQuest) {
			return false
		}
		stage := view.GetQuestStage(p.RequiredQuest)
		minStage := DefaultRequiredQuestStage
		if p.RequiredQuestStage != nil {
			minStage = *p.RequiredQuestStage
		}
		if stage < minStage {
			return false
		}
		if p.MaxQuestStage != nil && stage > *p.MaxQuestStage {
			return false
		}
	}

	if p.RequiredQuestCompleted != "" && !view.IsQuestCompleted(p.RequiredQuestCompleted) {
		return false
	}
	if p.HiddenIfQuestStarted != "" && view.IsQuestStarted(p.HiddenIfQuestStarted) {
		return false
	}
	if p.HiddenIfQuestCompleted != "" && view.IsQuestCompleted(p.HiddenIfQuestCompleted) {
		return false
	}
	return true
}

func friendshipGates(p Predicates, view WorldView, npcID string) bool {
	if p.RequiredFriendshipTier == "" && p.HiddenAtFriendshipTier == "" && !p.RequiredSpecialFriend {
		return true
	}

	tier := view.GetFriendshipTier(npcID)
	if p.RequiredFriendshipTier != "" && !tier.AtLeast(p.RequiredFriendshipTier) {
		return false
	}
	if p.HiddenAtFriendshipTier != "" && tier.AtLeast(p.HiddenAtFriendshipTier) {
		return false
	}
	if p.RequiredSpecialFriend && !view.IsSpecialFriend(npcID) {
		return false
	}
	return true
}

func transformationGates(p Predicates, view WorldView) bool {
	active := view.GetTransformation()

	if p.RequiredTransformation != "" && active != p.RequiredTransformation {
		return false
	}
	if p.HiddenIfTransformed != "" && active == p.HiddenIfTransformed {
		return false
	}
	if p.HiddenIfAnyTransformation && active != "" {
		return false
	}
	if p.RequiredPotionEffect != "" && !view.HasPotionEffect(p.RequiredPotionEffect) {
		return false
	}
	if p.HiddenWithPotionEffect != "" && view.HasPotionEffect(p.HiddenWithPotionEffect) {
		return false
	}
	return true
}

func globalEventGates(p Predicates, view WorldView) bool {
	if p.RequiredGlobalEvent != "" && view.GetGlobalEventCount(p.RequiredGlobalEvent) < 1 {
		return false
	}
	if c := p.RequiredGlobalEventCount; c != nil && view.GetGlobalEventCount(c.Type) < c.Min {
		return false
	}
	if p.HiddenIfGlobalEvent != "" && view.GetGlobalEventCount(p.HiddenIfGlobalEvent) > 0 {
		return false
	}
	return true
}

func unlockGates(p Predicates, view WorldView) bool {
	if p.HiddenIfHasEasel && view.HasUnlock(EaselUnlock) {
		return false
	}
	if p.RequiredUnlock != "" && !view.HasUnlock(p.RequiredUnlock) {
		return false
	}
	if p.HiddenIfUnlocked != "" && view.HasUnlock(p.HiddenIfUnlocked) {
		return false
	}
	return true
}
