package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrConversationClosed = errors.New("conversation is closed")
	ErrNoSuchResponse     = errors.New("no such response")
)

// Effects receives the state mutations of a selected response. Mutations are
// applied synchronously and never retried.
type Effects interface {
	StartQuest(ctx context.Context, questID string) error
	SetQuestStage(ctx context.Context, questID string, stage int) error
	AdvanceQuest(ctx context.Context, questID string) error
	CompleteQuest(ctx context.Context, questID string) error
	GiveItem(ctx context.Context, itemID string, quantity int) error
	Unlock(ctx context.Context, feature string) error
}

// ActionKind names a response side effect.
type ActionKind string

const (
	ActionStartQuest    ActionKind = "start_quest"
	ActionSetQuestStage ActionKind = "set_quest_stage"
	ActionAdvanceQuest  ActionKind = "advance_quest"
	ActionCompleteQuest ActionKind = "complete_quest"
	ActionGiveItem      ActionKind = "give_item"
	ActionUnlock        ActionKind = "unlock"
)

// Action is one applied side effect, reported to a Notifier.
type Action struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	NPCID          string     `json:"npc_id"`
	NodeID         string     `json:"node_id"`
	Kind           ActionKind `json:"kind"`
	Target         string     `json:"target"`
	Value          int        `json:"value,omitempty"`
}

// Notifier is told about every applied action.
type Notifier interface {
	NotifyAction(ctx context.Context, a Action) error
}

// Turn is what the UI shows for the current node.
type Turn struct {
	NodeID    string
	Text      string
	Responses []Response
}

// Conversation owns the entered node id of one dialogue with one NPC.
type Conversation struct {
	ID uuid.UUID

	src      Source
	resolver *Resolver
	effects  Effects
	notifier Notifier
	logger   *slog.Logger

	nodeID string
	closed bool
}

// NewConversation starts a conversation at the greeting node.
func NewConversation(src Source, resolver *Resolver, effects Effects, logger *slog.Logger) *Conversation {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolver(logger)
	}
	return &Conversation{
		ID:       uuid.New(),
		src:      src,
		resolver: resolver,
		effects:  effects,
		logger:   logger,
		nodeID:   GreetingID,
	}
}

// WithNotifier sets the notifier and returns c.
func (c *Conversation) WithNotifier(n Notifier) *Conversation {
	c.notifier = n
	return c
}

// NPCID returns the id of the NPC being talked to.
func (c *Conversation) NPCID() string { return c.src.NPCID() }

// NodeID returns the entered node id.
func (c *Conversation) NodeID() string { return c.nodeID }

// IsClosed reports whether the conversation has ended.
func (c *Conversation) IsClosed() bool { return c.closed }

// Close ends the conversation.
func (c *Conversation) Close() { c.closed = true }

// Current resolves the entered node. When nothing is visible the
// conversation closes and ok is false.
func (c *Conversation) Current(view View) (*Turn, bool) {
	if c.closed {
		return nil, false
	}
	node := c.resolver.ResolveActiveNode(c.src, c.nodeID, view)
	if node == nil {
		c.closed = true
		return nil, false
	}
	return &Turn{
		NodeID:    node.ID,
		Text:      RenderNodeText(*node, view),
		Responses: FilterResponses(*node, view, c.src.NPCID()),
	}, true
}

// Select picks the index-th visible response of the current node, applies its
// side effects and follows NextID. A failed mutation stops the remaining
// actions and leaves the conversation on the current node.
func (c *Conversation) Select(ctx context.Context, view View, index int) error {
	turn, ok := c.Current(view)
	if !ok {
		return ErrConversationClosed
	}
	if index < 0 || index >= len(turn.Responses) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchResponse, index, len(turn.Responses))
	}
	resp := turn.Responses[index]

	if err := c.apply(ctx, resp); err != nil {
		return fmt.Errorf("failed to apply response %q: %w", resp.Text, err)
	}

	if resp.NextID == "" {
		c.closed = true
		return nil
	}
	c.nodeID = resp.NextID
	return nil
}

func (c *Conversation) apply(ctx context.Context, r Response) error {
	if !r.HasActions() {
		return nil
	}
	if c.effects == nil {
		c.logger.Warn("response has actions but no effects sink is configured",
			"npc_id", c.src.NPCID(), "node_id", c.nodeID)
		return nil
	}

	// quests
	if r.StartsQuest != "" {
		if err := c.effects.StartQuest(ctx, r.StartsQuest); err != nil {
			return err
		}
		c.notify(ctx, ActionStartQuest, r.StartsQuest, 0)
	}
	if s := r.SetsQuestStage; s != nil {
		if err := c.effects.SetQuestStage(ctx, s.QuestID, s.Stage); err != nil {
			return err
		}
		c.notify(ctx, ActionSetQuestStage, s.QuestID, s.Stage)
	}
	if r.AdvancesQuest != "" {
		if err := c.effects.AdvanceQuest(ctx, r.AdvancesQuest); err != nil {
			return err
		}
		c.notify(ctx, ActionAdvanceQuest, r.AdvancesQuest, 0)
	}
	if r.CompletesQuest != "" {
		if err := c.effects.CompleteQuest(ctx, r.CompletesQuest); err != nil {
			return err
		}
		c.notify(ctx, ActionCompleteQuest, r.CompletesQuest, 0)
	}

	// items
	for _, g := range r.GivesItems {
		qty := g.Quantity
		if qty <= 0 {
			qty = 1
		}
		if err := c.effects.GiveItem(ctx, g.ItemID, qty); err != nil {
			return err
		}
		c.notify(ctx, ActionGiveItem, g.ItemID, qty)
	}

	// unlocks
	if r.UnlocksFeature != "" {
		if err := c.effects.Unlock(ctx, r.UnlocksFeature); err != nil {
			return err
		}
		c.notify(ctx, ActionUnlock, r.UnlocksFeature, 0)
	}
	return nil
}

func (c *Conversation) notify(ctx context.Context, kind ActionKind, target string, value int) {
	if c.notifier == nil {
		return
	}
	a := Action{
		ConversationID: c.ID,
		NPCID:          c.src.NPCID(),
		NodeID:         c.nodeID,
		Kind:           kind,
		Target:         target,
		Value:          value,
	}
	if err := c.notifier.NotifyAction(ctx, a); err != nil {
		c.logger.Error("failed to publish dialogue action",
			"npc_id", a.NPCID, "kind", kind, "error", err)
	}
}
