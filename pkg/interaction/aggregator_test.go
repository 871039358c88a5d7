package interaction

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/jwebster45206/hearth-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMap implements every tile collaborator from plain maps
type fakeMap struct {
	items       map[world.Tile][]PlacedItem
	plots       map[world.Tile]Plot
	forage      map[world.Tile]Forageable
	water       map[world.Tile]bool
	transitions map[world.Tile]Transition
	cobwebs     map[world.Tile]Cobweb
}

func (f *fakeMap) ItemsAt(_ string, t world.Tile) []PlacedItem { return f.items[t] }
func (f *fakeMap) IsWater(_ string, t world.Tile) bool         { return f.water[t] }

func (f *fakeMap) PlotAt(_ string, t world.Tile) (Plot, bool) {
	p, ok := f.plots[t]
	return p, ok
}

func (f *fakeMap) ForageableAt(_ string, t world.Tile) (Forageable, bool) {
	s, ok := f.forage[t]
	return s, ok
}

func (f *fakeMap) TransitionAt(_ string, t world.Tile) (Transition, bool) {
	tr, ok := f.transitions[t]
	return tr, ok
}

func (f *fakeMap) CobwebAt(_ string, t world.Tile) (Cobweb, bool) {
	c, ok := f.cobwebs[t]
	return c, ok
}

// failingCollections reports an error for every read
type failingCollections struct{}

func (failingCollections) CollectedOn(context.Context, string, int) (bool, error) {
	return false, errors.New("redis down")
}

func (failingCollections) MarkCollected(context.Context, string, int) error { return nil }

// recorder builds a Callbacks map that records the single call made
type recorder struct {
	calls []string
}

func (r *recorder) add(call string) error {
	r.calls = append(r.calls, call)
	return nil
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnNPC:              func(id string) error { return r.add("talk:" + id) },
		OnGiveGift:         func(id string) error { return r.add("gift:" + id) },
		OnCollectResource:  func(res ResourceResult) error { return r.add("resource:" + res.ItemID) },
		OnPlacedItemAction: func(a PlacedItemAction) error { return r.add(a.Action + ":" + a.PlacedID) },
		OnFarmAction:       func(f FarmResult) error { return r.add(string(f.Action) + ":" + f.CropID) },
		OnCollectWater:     func(WaterResult) error { return r.add("collect_water") },
		OnRefillWaterCan:   func(WaterResult) error { return r.add("refill") },
		OnForage:           func(f ForageResult) error { return r.add("forage:" + f.ItemID) },
		OnTransition:       func(t TransitionResult) error { return r.add("go:" + t.ToMap) },
		OnClearCobweb:      func(c CobwebResult) error { return r.add("cobweb:" + c.CobwebID) },
	}
}

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func villageNPCs(t *testing.T) *actor.Directory {
	t.Helper()
	d := actor.NewDirectory()
	configs := []actor.Config{
		{
			ID:            "mira",
			Name:          "Mira",
			MapID:         "village",
			Sprite:        "mira",
			Position:      world.Position{X: 3, Y: 3},
			Friendship:    &actor.FriendshipConfig{CanBefriend: true},
			DailyResource: &actor.DailyResourceConfig{ItemID: "egg", Quantity: 2, RequiredTier: world.TierAcquaintance},
		},
		{
			ID:       "bram",
			Name:     "Bram",
			MapID:    "village",
			Sprite:   "bram",
			Position: world.Position{X: 4, Y: 3},
		},
	}
	for _, cfg := range configs {
		npc, err := actor.CreateStaticNPC(cfg, t0)
		require.NoError(t, err)
		require.NoError(t, d.Add(npc))
	}
	return d
}

func types(list []Interaction) []Type {
	out := make([]Type, len(list))
	for i, in := range list {
		out[i] = in.Type
	}
	return out
}

func TestGetAvailableInteractions_Empty(t *testing.T) {
	a := NewAggregator(Collaborators{NPCs: villageNPCs(t), Farm: &fakeMap{}}, nil)
	rec := &recorder{}

	got := a.GetAvailableInteractions(context.Background(), Request{
		Position:  world.Position{X: 40, Y: 40},
		MapID:     "village",
		Callbacks: rec.callbacks(),
	})
	assert.Empty(t, got)
	assert.Empty(t, rec.calls)
}

func TestGetAvailableInteractions_NPCs(t *testing.T) {
	store := state.NewMemoryStore()
	a := NewAggregator(Collaborators{NPCs: villageNPCs(t), Collections: store}, nil)
	rec := &recorder{}
	view := world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear)
	req := Request{
		Position:  world.Position{X: 3.5, Y: 3},
		MapID:     "village",
		Day:       7,
		View:      view,
		Callbacks: rec.callbacks(),
	}

	got := a.GetAvailableInteractions(context.Background(), req)
	assert.Equal(t, []Type{TypeTalk, TypeTalk, TypeGift}, types(got), "bram sorts before mira; resource needs acquaintance")
	assert.Equal(t, "Talk to Bram", got[0].Label)
	assert.Equal(t, "mira", got[2].TargetID)

	view.Friendship["mira"] = world.TierAcquaintance
	got = a.GetAvailableInteractions(context.Background(), req)
	require.Equal(t, []Type{TypeTalk, TypeTalk, TypeGift, TypeCollectResource}, types(got))
	assert.Equal(t, "Collect Egg", got[3].Label)

	require.NoError(t, got[3].Execute())
	assert.Equal(t, []string{"resource:egg"}, rec.calls)

	got = a.GetAvailableInteractions(context.Background(), req)
	assert.NotContains(t, types(got), TypeCollectResource, "collected once per day")

	req.Day = 8
	got = a.GetAvailableInteractions(context.Background(), req)
	assert.Contains(t, types(got), TypeCollectResource)
}

func TestGetAvailableInteractions_Deterministic(t *testing.T) {
	fm := &fakeMap{items: map[world.Tile][]PlacedItem{
		{X: 3, Y: 3}: {
			{ID: "p2", ItemID: "lantern"},
			{ID: "p1", ItemID: "easel", Actions: []string{"paint"}},
		},
	}}
	a := NewAggregator(Collaborators{NPCs: villageNPCs(t), PlacedItems: fm}, nil)
	req := Request{Position: world.Position{X: 3.5, Y: 3.5}, MapID: "village", Callbacks: (&recorder{}).callbacks()}

	first := a.GetAvailableInteractions(context.Background(), req)
	for range 20 {
		again := a.GetAvailableInteractions(context.Background(), req)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Type, again[i].Type)
			assert.Equal(t, first[i].TargetID, again[i].TargetID)
			assert.Equal(t, first[i].Label, again[i].Label)
		}
	}

	var labels []string
	for _, i := range first[3:] {
		labels = append(labels, i.Label)
	}
	assert.Equal(t, []string{"Pick Up Easel", "Paint Easel", "Pick Up Lantern"}, labels)
}

func TestGetAvailableInteractions_Farm(t *testing.T) {
	tile := world.Tile{X: 10, Y: 2}
	tests := []struct {
		name   string
		plot   Plot
		tool   Tool
		seed   string
		expect []string
	}{
		{"hoe on untilled", Plot{State: PlotUntilled}, ToolHoe, "", []string{"till:"}},
		{"hoe on tilled", Plot{State: PlotTilled}, ToolHoe, "", nil},
		{"seeds on tilled", Plot{State: PlotTilled}, ToolSeeds, "carrot", []string{"plant:carrot"}},
		{"seeds without a seed", Plot{State: PlotTilled}, ToolSeeds, "", nil},
		{"water planted", Plot{State: PlotPlanted, CropID: "carrot"}, ToolWateringCan, "", []string{"water_crop:carrot"}},
		{"water already watered", Plot{State: PlotPlanted, CropID: "carrot", Watered: true}, ToolWateringCan, "", nil},
		{"harvest by hand", Plot{State: PlotReady, CropID: "carrot"}, ToolNone, "", []string{"harvest:carrot"}},
		{"harvest with hoe", Plot{State: PlotReady, CropID: "carrot"}, ToolHoe, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(Collaborators{Farm: &fakeMap{plots: map[world.Tile]Plot{tile: tt.plot}}}, nil)
			rec := &recorder{}
			got := a.GetAvailableInteractions(context.Background(), Request{
				Position:  tile.Position(),
				MapID:     "farm",
				Tool:      tt.tool,
				SeedID:    tt.seed,
				Callbacks: rec.callbacks(),
			})
			for _, i := range got {
				require.NoError(t, i.Execute())
			}
			assert.Equal(t, tt.expect, rec.calls)
		})
	}
}

func TestGetAvailableInteractions_Water(t *testing.T) {
	tile := world.Tile{X: 1, Y: 1}
	a := NewAggregator(Collaborators{Water: &fakeMap{water: map[world.Tile]bool{tile: true}}}, nil)
	cb := (&recorder{}).callbacks()

	can := a.GetAvailableInteractions(context.Background(), Request{Position: tile.Position(), Tool: ToolWateringCan, Callbacks: cb})
	assert.Equal(t, []Type{TypeRefillWaterCan}, types(can))

	bucket := a.GetAvailableInteractions(context.Background(), Request{Position: tile.Position(), Tool: ToolBucket, Callbacks: cb})
	assert.Equal(t, []Type{TypeCollectWater}, types(bucket))

	hand := a.GetAvailableInteractions(context.Background(), Request{Position: tile.Position(), Callbacks: cb})
	assert.Empty(t, hand)
}

func TestGetAvailableInteractions_ForageOncePerDay(t *testing.T) {
	tile := world.Tile{X: 5, Y: 5}
	store := state.NewMemoryStore()
	fm := &fakeMap{forage: map[world.Tile]Forageable{tile: {ID: "berry_bush", ItemID: "wild_berry"}}}
	a := NewAggregator(Collaborators{Forage: fm, Collections: store}, nil)
	rec := &recorder{}
	req := Request{Position: tile.Position(), MapID: "meadow", Day: 1, Callbacks: rec.callbacks()}

	got := a.GetAvailableInteractions(context.Background(), req)
	require.Len(t, got, 1)
	assert.Equal(t, "Forage Wild Berry", got[0].Label)
	require.NoError(t, got[0].Execute())

	assert.Empty(t, a.GetAvailableInteractions(context.Background(), req))
	done, err := store.CollectedOn(context.Background(), state.ForageKey("meadow", 5, 5), 1)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestGetAvailableInteractions_CollectionErrorHides(t *testing.T) {
	tile := world.Tile{X: 5, Y: 5}
	fm := &fakeMap{forage: map[world.Tile]Forageable{tile: {ID: "bush", ItemID: "berry"}}}
	a := NewAggregator(Collaborators{Forage: fm, Collections: failingCollections{}}, nil)

	got := a.GetAvailableInteractions(context.Background(), Request{Position: tile.Position(), Callbacks: (&recorder{}).callbacks()})
	assert.Empty(t, got)
}

func TestGetAvailableInteractions_TransitionQuestGate(t *testing.T) {
	tile := world.Tile{X: 0, Y: 9}
	fm := &fakeMap{transitions: map[world.Tile]Transition{tile: {
		ID:         "mine_door",
		ToMap:      "old_mine",
		Predicates: conditionals.Predicates{RequiredQuest: "lost_cat", RequiredQuestStage: intPtr(2)},
	}}}
	a := NewAggregator(Collaborators{Transitions: fm}, nil)
	rec := &recorder{}
	view := world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear)
	req := Request{Position: tile.Position(), View: view, Callbacks: rec.callbacks()}

	view.QuestStages["lost_cat"] = 1
	assert.Empty(t, a.GetAvailableInteractions(context.Background(), req))

	view.QuestStages["lost_cat"] = 2
	got := a.GetAvailableInteractions(context.Background(), req)
	require.Len(t, got, 1)
	assert.Equal(t, "Go To Old Mine", got[0].Label)
	require.NoError(t, got[0].Execute())
	assert.Equal(t, []string{"go:old_mine"}, rec.calls)
}

func TestGetAvailableInteractions_WorldProvider(t *testing.T) {
	tile := world.Tile{X: 0, Y: 9}
	fm := &fakeMap{transitions: map[world.Tile]Transition{tile: {
		ID:         "mine_door",
		ToMap:      "old_mine",
		Predicates: conditionals.Predicates{RequiredQuest: "lost_cat", RequiredQuestStage: intPtr(2)},
	}}}
	started := world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear)
	started.QuestStages["lost_cat"] = 2

	tests := []struct {
		name      string
		provider  func(calls *int) WorldProvider
		view      conditionals.WorldView
		wantCount int
		wantCalls int
		wantLog   string
	}{
		{
			name: "provider supplies the save",
			provider: func(calls *int) WorldProvider {
				return func(context.Context) (conditionals.WorldView, error) {
					*calls++
					return started, nil
				}
			},
			wantCount: 1,
			wantCalls: 1,
		},
		{
			name: "request view wins",
			provider: func(calls *int) WorldProvider {
				return func(context.Context) (conditionals.WorldView, error) {
					*calls++
					return started, nil
				}
			},
			view:      world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear),
			wantCount: 0,
			wantCalls: 0,
		},
		{
			name: "provider error offers nothing",
			provider: func(calls *int) WorldProvider {
				return func(context.Context) (conditionals.WorldView, error) {
					*calls++
					return nil, errors.New("redis down")
				}
			},
			wantCount: 0,
			wantCalls: 1,
			wantLog:   "redis down",
		},
		{
			name: "provider without context offers nothing",
			provider: func(calls *int) WorldProvider {
				return func(context.Context) (conditionals.WorldView, error) {
					*calls++
					return nil, nil
				}
			},
			wantCount: 0,
			wantCalls: 1,
			wantLog:   "no context",
		},
		{
			name:      "no provider uses an empty world",
			provider:  func(*int) WorldProvider { return nil },
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			calls := 0
			a := NewAggregator(Collaborators{Transitions: fm, World: tt.provider(&calls)}, slog.New(slog.NewTextHandler(&buf, nil)))
			req := Request{Position: tile.Position(), View: tt.view, Callbacks: (&recorder{}).callbacks()}

			got := a.GetAvailableInteractions(context.Background(), req)
			assert.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
			}
		})
	}
}

func TestGetAvailableInteractions_Cobweb(t *testing.T) {
	tile := world.Tile{X: 2, Y: 2}
	fm := &fakeMap{cobwebs: map[world.Tile]Cobweb{tile: {ID: "web_1", QuestID: "spider", MinStage: 2, MaxStage: 3}}}
	a := NewAggregator(Collaborators{Cobwebs: fm}, nil)
	view := world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear)
	req := Request{Position: tile.Position(), View: view, Callbacks: (&recorder{}).callbacks()}

	for stage, want := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 0} {
		view.QuestStages["spider"] = stage
		assert.Len(t, a.GetAvailableInteractions(context.Background(), req), want, "stage %d", stage)
	}
}

func TestGetAvailableInteractions_NilCallbackNotOffered(t *testing.T) {
	a := NewAggregator(Collaborators{NPCs: villageNPCs(t)}, nil)
	got := a.GetAvailableInteractions(context.Background(), Request{
		Position:  world.Position{X: 3, Y: 3},
		MapID:     "village",
		Callbacks: Callbacks{OnGiveGift: func(string) error { return nil }},
	})
	assert.Equal(t, []Type{TypeGift}, types(got))
}

func TestNPCInteractions(t *testing.T) {
	list := []Interaction{{Type: TypeTalk}, {Type: TypeForage}, {Type: TypeGift}, {Type: TypeTransition}, {Type: TypeCollectResource}}
	assert.Equal(t, []Type{TypeTalk, TypeGift, TypeCollectResource}, types(NPCInteractions(list)))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Wild Berry", Title("wild_berry"))
	assert.Equal(t, "Go To Old Mine", Title("go_to_old_mine"))
}

func intPtr(i int) *int { return &i }
