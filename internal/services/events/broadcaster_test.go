package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(rdb, "slot1", logger), rdb, mr
}

func subscribe(t *testing.T, rdb *redis.Client, channel string) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, channel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	return sub.Channel()
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var e Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_NotifyAction(t *testing.T) {
	b, rdb, _ := setupBroadcaster(t)
	ch := subscribe(t, rdb, SaveChannel("slot1"))

	id := uuid.New()
	err := b.NotifyAction(context.Background(), dialogue.Action{
		ConversationID: id,
		NPCID:          "mira",
		NodeID:         "lost_cat_ask",
		Kind:           dialogue.ActionStartQuest,
		Target:         "lost_cat",
	})
	require.NoError(t, err)

	e := receive(t, ch)
	assert.Equal(t, EventTypeDialogueAction, e.Type)
	assert.Equal(t, "slot1", e.SaveID)
	assert.Equal(t, id.String(), e.Data["conversation_id"])
	assert.Equal(t, "mira", e.Data["npc_id"])
	assert.Equal(t, "start_quest", e.Data["kind"])
	assert.Equal(t, "lost_cat", e.Data["target"])
}

func TestPublishingGlobals(t *testing.T) {
	b, rdb, _ := setupBroadcaster(t)
	ch := subscribe(t, rdb, GlobalChannel)

	globals := NewPublishingGlobals(state.NewMemoryStore(), b)
	ctx := context.Background()
	_, err := globals.RecordGlobalEvent(ctx, "festival")
	require.NoError(t, err)
	n, err := globals.RecordGlobalEvent(ctx, "festival")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first := receive(t, ch)
	second := receive(t, ch)
	assert.Equal(t, EventTypeGlobalEvent, first.Type)
	assert.Equal(t, float64(1), first.Data["count"])
	assert.Equal(t, float64(2), second.Data["count"])

	counts, err := globals.GlobalEventCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"festival": 2}, counts)
}

func TestPublishingGlobals_PublishFailureKeepsCount(t *testing.T) {
	b, _, mr := setupBroadcaster(t)
	mr.SetError("ERR publish unavailable")

	globals := NewPublishingGlobals(state.NewMemoryStore(), b)
	n, err := globals.RecordGlobalEvent(context.Background(), "festival")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, b.NotifyAction(context.Background(), dialogue.Action{Kind: dialogue.ActionUnlock, Target: "easel"}))
}

func TestConversationPublishesActions(t *testing.T) {
	b, rdb, _ := setupBroadcaster(t)
	ch := subscribe(t, rdb, SaveChannel("slot1"))

	npc := &fakeSource{id: "mira", table: dialogue.NewTable([]dialogue.Node{{
		ID:   dialogue.GreetingID,
		Text: "Take these.",
		Responses: []dialogue.Response{{
			Text:           "Thanks!",
			GivesItems:     []dialogue.ItemGift{{ItemID: "egg", Quantity: 6}},
			UnlocksFeature: "easel",
		}},
	}})}

	store := state.NewMemoryStore()
	conv := dialogue.NewConversation(npc, dialogue.NewResolver(nil), store, nil).WithNotifier(b)
	view, err := state.Snapshot(context.Background(), store, store, state.Environment{}, nil)
	require.NoError(t, err)

	err = conv.Select(context.Background(), view, 0)
	require.NoError(t, err)

	give := receive(t, ch)
	unlock := receive(t, ch)
	assert.Equal(t, "give_item", give.Data["kind"])
	assert.Equal(t, float64(6), give.Data["value"])
	assert.Equal(t, "unlock", unlock.Data["kind"])
	assert.True(t, conv.IsClosed())
}

type fakeSource struct {
	id    string
	table *dialogue.Table
}

func (f *fakeSource) NPCID() string                  { return f.id }
func (f *fakeSource) DialogueTable() *dialogue.Table { return f.table }
