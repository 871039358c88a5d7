package dialogue

import (
	"fmt"

	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// DefaultSampleLimit caps the number of contexts SampleContexts builds.
const DefaultSampleLimit = 512

// Severity ranks validation issues.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a content problem found by Validate.
type Issue struct {
	Severity Severity
	NPCID    string
	NodeID   string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s/%s: %s", i.Severity, i.NPCID, i.NodeID, i.Message)
}

// Validate checks an NPC's table against the sampled contexts. It reports
// next ids with no node, a missing greeting, ids that no sampled context can
// reach and ids with more than one node visible at once.
func Validate(src Source, contexts []*world.Context) []Issue {
	npcID := src.NPCID()
	table := src.DialogueTable()
	var issues []Issue
	add := func(sev Severity, nodeID, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, NPCID: npcID, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
	}

	if !table.Has(GreetingID) {
		add(SeverityError, GreetingID, "no greeting node")
	}

	for _, n := range table.Nodes() {
		for _, r := range n.Responses {
			if r.NextID != "" && !table.Has(r.NextID) {
				add(SeverityError, n.ID, "response %q leads to unknown node %q", r.Text, r.NextID)
			}
		}
	}

	for _, id := range table.IDs() {
		rules := table.Rules(id)
		reachable := false
		ambiguous := 0
		for _, ctx := range contexts {
			visible := 0
			for _, n := range rules {
				if IsNodeVisible(n, ctx, npcID) {
					visible++
				}
			}
			if visible > 0 {
				reachable = true
			}
			if visible > 1 {
				ambiguous++
			}
		}
		if len(contexts) > 0 && !reachable {
			add(SeverityWarning, id, "no node is visible in any of %d sampled contexts", len(contexts))
		}
		if ambiguous > 0 {
			add(SeverityWarning, id, "more than one node visible in %d of %d sampled contexts", ambiguous, len(contexts))
		}
	}
	return issues
}

type dimension []func(*world.Context)

// SampleContexts builds world contexts covering every value the table's
// predicates distinguish for npcID. When the full grid exceeds limit, an
// evenly strided subset of it is returned.
func SampleContexts(table *Table, npcID string, limit int) []*world.Context {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	refs := conditionals.NewReferences()
	for _, n := range table.Nodes() {
		refs.Collect(n.Predicates)
		for _, r := range n.Responses {
			refs.Collect(r.Predicates)
		}
	}

	var dims []dimension
	if refs.Friendship {
		var d dimension
		for _, tier := range []world.FriendshipTier{world.TierStranger, world.TierAcquaintance, world.TierGoodFriend} {
			d = append(d, func(c *world.Context) { c.Friendship[npcID] = tier })
		}
		dims = append(dims, d)
	}
	if refs.SpecialFriend {
		dims = append(dims, dimension{
			func(*world.Context) {},
			func(c *world.Context) { c.SpecialFriends[npcID] = true },
		})
	}
	for _, quest := range conditionals.SortedKeys(refs.Quests) {
		bound := refs.Quests[quest]
		var d dimension
		for _, stage := range refs.QuestSamples(quest) {
			d = append(d, func(c *world.Context) { c.QuestStages[quest] = stage })
		}
		d = append(d, func(c *world.Context) {
			c.QuestStages[quest] = bound
			c.CompletedQuests[quest] = true
		})
		dims = append(dims, d)
	}
	if len(refs.Transformations) > 0 {
		d := dimension{func(*world.Context) {}}
		for _, t := range conditionals.SortedKeys(refs.Transformations) {
			d = append(d, func(c *world.Context) { c.Transformation = t })
		}
		dims = append(dims, d)
	}
	for _, effect := range conditionals.SortedKeys(refs.PotionEffects) {
		dims = append(dims, dimension{
			func(*world.Context) {},
			func(c *world.Context) { c.PotionEffects[effect] = true },
		})
	}
	for _, kind := range conditionals.SortedKeys(refs.GlobalEvents) {
		minimum := max(refs.GlobalEvents[kind], 1)
		d := dimension{func(*world.Context) {}}
		if minimum > 1 {
			d = append(d, func(c *world.Context) { c.GlobalEvents[kind] = minimum - 1 })
		}
		d = append(d, func(c *world.Context) { c.GlobalEvents[kind] = minimum })
		dims = append(dims, d)
	}
	for _, unlock := range conditionals.SortedKeys(refs.Unlocks) {
		dims = append(dims, dimension{
			func(*world.Context) {},
			func(c *world.Context) { c.Unlocks[unlock] = true },
		})
	}

	const maxGrid = 1 << 30
	total := 1
	for _, d := range dims {
		total = min(total*len(d), maxGrid)
	}

	count := min(total, limit)
	out := make([]*world.Context, 0, count)
	for i := 0; i < count; i++ {
		idx := i
		if total > limit {
			idx = i * (total / limit)
		}
		c := world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear)
		for _, d := range dims {
			d[idx%len(d)](c)
			idx /= len(d)
		}
		out = append(out, c)
	}
	return out
}
