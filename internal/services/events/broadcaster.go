package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeDialogueAction EventType = "dialogue.action"
	EventTypeGlobalEvent    EventType = "global.event"
)

// GlobalChannel carries shared events for every save.
const GlobalChannel = "global-events"

// Event represents a generic event structure
type Event struct {
	Type   EventType      `json:"type"`
	SaveID string         `json:"save_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes village events to Redis Pub/Sub so other processes
// (an overlay, a second player's client) can follow along.
type Broadcaster struct {
	redisClient *redis.Client
	saveID      string
	logger      *slog.Logger
}

var _ dialogue.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster for one save slot
func NewBroadcaster(redisClient *redis.Client, saveID string, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		redisClient: redisClient,
		saveID:      saveID,
		logger:      logger,
	}
}

// SaveChannel is the channel for one save's events.
func SaveChannel(saveID string) string {
	return "village-events:" + saveID
}

// NotifyAction publishes a dialogue.action event for an applied response
// side effect.
func (b *Broadcaster) NotifyAction(ctx context.Context, a dialogue.Action) error {
	event := Event{
		Type:   EventTypeDialogueAction,
		SaveID: b.saveID,
		Data: map[string]any{
			"conversation_id": a.ConversationID.String(),
			"npc_id":          a.NPCID,
			"node_id":         a.NodeID,
			"kind":            a.Kind,
			"target":          a.Target,
			"value":           a.Value,
		},
	}
	return b.publish(ctx, SaveChannel(b.saveID), event)
}

// PublishGlobalEvent publishes a global.event with the new shared count.
func (b *Broadcaster) PublishGlobalEvent(ctx context.Context, eventType string, count int) error {
	event := Event{
		Type:   EventTypeGlobalEvent,
		SaveID: b.saveID,
		Data: map[string]any{
			"event": eventType,
			"count": count,
		},
	}
	return b.publish(ctx, GlobalChannel, event)
}

func (b *Broadcaster) publish(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}

// PublishingGlobals records shared events in the store and announces every
// new count. Publish failures are logged; the recorded count stands.
type PublishingGlobals struct {
	state.GlobalEvents
	broadcaster *Broadcaster
}

func NewPublishingGlobals(globals state.GlobalEvents, b *Broadcaster) *PublishingGlobals {
	return &PublishingGlobals{GlobalEvents: globals, broadcaster: b}
}

func (p *PublishingGlobals) RecordGlobalEvent(ctx context.Context, eventType string) (int, error) {
	n, err := p.GlobalEvents.RecordGlobalEvent(ctx, eventType)
	if err != nil {
		return 0, err
	}
	if err := p.broadcaster.PublishGlobalEvent(ctx, eventType, n); err != nil {
		p.broadcaster.logger.Warn("global event recorded but not announced", "event", eventType, "error", err)
	}
	return n, nil
}
