package world

// FriendshipTier is an ordered friendship category.
type FriendshipTier string

const (
	TierStranger     FriendshipTier = "stranger"
	TierAcquaintance FriendshipTier = "acquaintance"
	TierGoodFriend   FriendshipTier = "good_friend"
)

// Point thresholds for the friendship tiers.
const (
	AcquaintancePoints = 25
	GoodFriendPoints   = 75
)

// Rank orders the tiers: stranger < acquaintance < good_friend.
// Unknown tiers rank below stranger.
func (t FriendshipTier) Rank() int {
	switch t {
	case TierStranger:
		return 0
	case TierAcquaintance:
		return 1
	case TierGoodFriend:
		return 2
	default:
		return -1
	}
}

// Valid reports whether t is a known tier.
func (t FriendshipTier) Valid() bool {
	return t.Rank() >= 0
}

// AtLeast reports whether t is the same as or above floor.
func (t FriendshipTier) AtLeast(floor FriendshipTier) bool {
	return t.Rank() >= floor.Rank()
}

// TierForPoints maps friendship points to a tier.
func TierForPoints(points int) FriendshipTier {
	switch {
	case points >= GoodFriendPoints:
		return TierGoodFriend
	case points >= AcquaintancePoints:
		return TierAcquaintance
	default:
		return TierStranger
	}
}
