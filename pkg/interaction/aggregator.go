package interaction

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// NPCLocator finds NPCs whose interaction radius contains a position.
// actor.Directory implements it.
type NPCLocator interface {
	InRange(mapID string, p world.Position) []*actor.NPC
}

// PlacedItemSource lists placed items on a tile.
type PlacedItemSource interface {
	ItemsAt(mapID string, tile world.Tile) []PlacedItem
}

// FarmPlots reports the plot on a tile, if any.
type FarmPlots interface {
	PlotAt(mapID string, tile world.Tile) (Plot, bool)
}

// ForageSource reports the forageable on a tile, if any.
type ForageSource interface {
	ForageableAt(mapID string, tile world.Tile) (Forageable, bool)
}

// WaterSource reports whether a tile is water.
type WaterSource interface {
	IsWater(mapID string, tile world.Tile) bool
}

// TransitionSource reports the map transition on a tile, if any.
type TransitionSource interface {
	TransitionAt(mapID string, tile world.Tile) (Transition, bool)
}

// CobwebSource reports the cobweb overlay on a tile, if any.
type CobwebSource interface {
	CobwebAt(mapID string, tile world.Tile) (Cobweb, bool)
}

// Collections tracks once-per-day collection. state.Store implements it.
type Collections interface {
	CollectedOn(ctx context.Context, key string, day int) (bool, error)
	MarkCollected(ctx context.Context, key string, day int) error
}

// WorldProvider reads the current world context, normally a snapshot of the
// save.
type WorldProvider func(ctx context.Context) (conditionals.WorldView, error)

// Collaborators are the per-domain sources the aggregator consults. Any of
// the domain sources may be nil, which disables that domain. World is asked
// for the world context when a request carries none.
type Collaborators struct {
	NPCs        NPCLocator
	PlacedItems PlacedItemSource
	Farm        FarmPlots
	Forage      ForageSource
	Water       WaterSource
	Transitions TransitionSource
	Cobwebs     CobwebSource
	Collections Collections
	World       WorldProvider
}

// Request describes one lookup. View is the world context snapshot for the
// current input pass; when nil the World collaborator supplies it, and with
// no World either an empty context is used (nothing started, stranger to
// everyone). Day is the in-game day used for daily collection.
type Request struct {
	Position  world.Position
	MapID     string
	Tool      Tool
	SeedID    string
	Day       int
	View      conditionals.WorldView
	Callbacks Callbacks
}

// Aggregator collects the interactions available at a position.
type Aggregator struct {
	c      Collaborators
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger uses slog.Default.
func NewAggregator(c Collaborators, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{c: c, logger: logger}
}

func (a *Aggregator) world(ctx context.Context) (conditionals.WorldView, error) {
	if a.c.World == nil {
		return world.NewContext(world.SeasonSpring, world.TimeDay, world.WeatherClear), nil
	}
	view, err := a.c.World(ctx)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, errors.New("world provider returned no context")
	}
	return view, nil
}

var style = map[Type]struct{ icon, color string }{
	TypeTalk:             {"speech", "#f4d35e"},
	TypeGift:             {"gift", "#ee6c9c"},
	TypeCollectResource:  {"basket", "#9bc53d"},
	TypePickup:           {"hand", "#e0e0e0"},
	TypePlacedItemAction: {"gear", "#c0c0c0"},
	TypeTill:             {"hoe", "#a0522d"},
	TypePlant:            {"seed", "#6b8e23"},
	TypeWaterCrop:        {"droplet", "#4fa3e0"},
	TypeHarvest:          {"wheat", "#e3b23c"},
	TypeCollectWater:     {"bucket", "#4fa3e0"},
	TypeRefillWaterCan:   {"watering_can", "#4fa3e0"},
	TypeForage:           {"leaf", "#5b8c5a"},
	TypeTransition:       {"door", "#b8860b"},
	TypeClearCobweb:      {"broom", "#999999"},
}

func newInteraction(t Type, target, label string, exec func() error) Interaction {
	s := style[t]
	return Interaction{Type: t, TargetID: target, Label: label, Icon: s.icon, Color: s.color, Execute: exec}
}

// GetAvailableInteractions returns every interaction whose preconditions hold
// at req.Position, in a fixed domain order: NPCs, placed items, farm, water,
// forage, transition, cobweb. Within a domain results are ordered by id, so
// repeated calls with the same inputs return the same list.
func (a *Aggregator) GetAvailableInteractions(ctx context.Context, req Request) []Interaction {
	if req.View == nil {
		view, err := a.world(ctx)
		if err != nil {
			a.logger.Error("failed to read world context", "map_id", req.MapID, "error", err)
			return nil
		}
		req.View = view
	}
	tile := req.Position.Tile()

	var out []Interaction
	out = append(out, a.npcInteractions(ctx, req)...)
	out = append(out, a.placedItemInteractions(req, tile)...)
	out = append(out, a.farmInteractions(req, tile)...)
	out = append(out, a.waterInteractions(req, tile)...)
	out = append(out, a.forageInteractions(ctx, req, tile)...)
	out = append(out, a.transitionInteractions(req, tile)...)
	out = append(out, a.cobwebInteractions(req, tile)...)
	return out
}

// NPCInteractions filters list down to the types the proximity menu offers.
func NPCInteractions(list []Interaction) []Interaction {
	var out []Interaction
	for _, i := range list {
		if i.Type.NPCRelevant() {
			out = append(out, i)
		}
	}
	return out
}

func (a *Aggregator) npcInteractions(ctx context.Context, req Request) []Interaction {
	if a.c.NPCs == nil {
		return nil
	}
	cb := req.Callbacks
	var out []Interaction
	for _, npc := range a.c.NPCs.InRange(req.MapID, req.Position) {
		id := npc.ID
		if cb.OnNPC != nil {
			out = append(out, newInteraction(TypeTalk, id, "Talk to "+npc.Name, func() error {
				return cb.OnNPC(id)
			}))
		}
		if cb.OnGiveGift != nil && npc.CanBefriend() {
			out = append(out, newInteraction(TypeGift, id, "Give Gift", func() error {
				return cb.OnGiveGift(id)
			}))
		}
		if i, ok := a.resourceInteraction(ctx, req, npc); ok {
			out = append(out, i)
		}
	}
	return out
}

func (a *Aggregator) resourceInteraction(ctx context.Context, req Request, npc *actor.NPC) (Interaction, bool) {
	res := npc.DailyResource
	cb := req.Callbacks.OnCollectResource
	if res == nil || cb == nil {
		return Interaction{}, false
	}
	required := res.RequiredTier
	if required == "" {
		required = world.TierStranger
	}
	if !req.View.GetFriendshipTier(npc.ID).AtLeast(required) {
		return Interaction{}, false
	}
	key := state.ResourceKey(npc.ID)
	if a.collected(ctx, key, req.Day) {
		return Interaction{}, false
	}

	result := ResourceResult{NPCID: npc.ID, ItemID: res.ItemID, Quantity: res.Quantity}
	label := labelOr(res.Label, "collect_"+res.ItemID)
	return newInteraction(TypeCollectResource, npc.ID, label, func() error {
		if err := cb(result); err != nil {
			return err
		}
		return a.markCollected(ctx, key, req.Day)
	}), true
}

func (a *Aggregator) placedItemInteractions(req Request, tile world.Tile) []Interaction {
	cb := req.Callbacks.OnPlacedItemAction
	if a.c.PlacedItems == nil || cb == nil {
		return nil
	}
	items := slices.Clone(a.c.PlacedItems.ItemsAt(req.MapID, tile))
	slices.SortFunc(items, func(x, y PlacedItem) int { return strings.Compare(x.ID, y.ID) })

	var out []Interaction
	for _, item := range items {
		name := labelOr(item.Label, item.ItemID)
		pickup := PlacedItemAction{PlacedID: item.ID, ItemID: item.ItemID, Action: "pickup"}
		out = append(out, newInteraction(TypePickup, item.ID, "Pick Up "+name, func() error {
			return cb(pickup)
		}))
		for _, verb := range item.Actions {
			act := PlacedItemAction{PlacedID: item.ID, ItemID: item.ItemID, Action: verb}
			out = append(out, newInteraction(TypePlacedItemAction, item.ID, Title(verb)+" "+name, func() error {
				return cb(act)
			}))
		}
	}
	return out
}

func (a *Aggregator) farmInteractions(req Request, tile world.Tile) []Interaction {
	cb := req.Callbacks.OnFarmAction
	if a.c.Farm == nil || cb == nil {
		return nil
	}
	plot, ok := a.c.Farm.PlotAt(req.MapID, tile)
	if !ok {
		return nil
	}

	var (
		action Type
		crop   = plot.CropID
		label  string
	)
	switch {
	case req.Tool == ToolHoe && plot.State == PlotUntilled:
		action, label = TypeTill, "Till Soil"
	case req.Tool == ToolSeeds && plot.State == PlotTilled && req.SeedID != "":
		action, crop, label = TypePlant, req.SeedID, "Plant "+Title(req.SeedID)
	case req.Tool == ToolWateringCan && plot.State == PlotPlanted && !plot.Watered:
		action, label = TypeWaterCrop, "Water "+Title(plot.CropID)
	case req.Tool == ToolNone && plot.State == PlotReady:
		action, label = TypeHarvest, "Harvest "+Title(plot.CropID)
	default:
		return nil
	}

	result := FarmResult{Action: action, MapID: req.MapID, Tile: tile, CropID: crop}
	return []Interaction{newInteraction(action, crop, label, func() error {
		return cb(result)
	})}
}

func (a *Aggregator) waterInteractions(req Request, tile world.Tile) []Interaction {
	if a.c.Water == nil || !a.c.Water.IsWater(req.MapID, tile) {
		return nil
	}
	result := WaterResult{MapID: req.MapID, Tile: tile}
	cb := req.Callbacks
	switch {
	case req.Tool == ToolWateringCan && cb.OnRefillWaterCan != nil:
		return []Interaction{newInteraction(TypeRefillWaterCan, "", "Refill Watering Can", func() error {
			return cb.OnRefillWaterCan(result)
		})}
	case req.Tool == ToolBucket && cb.OnCollectWater != nil:
		return []Interaction{newInteraction(TypeCollectWater, "", "Collect Water", func() error {
			return cb.OnCollectWater(result)
		})}
	}
	return nil
}

func (a *Aggregator) forageInteractions(ctx context.Context, req Request, tile world.Tile) []Interaction {
	cb := req.Callbacks.OnForage
	if a.c.Forage == nil || cb == nil {
		return nil
	}
	spot, ok := a.c.Forage.ForageableAt(req.MapID, tile)
	if !ok {
		return nil
	}
	key := state.ForageKey(req.MapID, tile.X, tile.Y)
	if a.collected(ctx, key, req.Day) {
		return nil
	}

	result := ForageResult{SpotID: spot.ID, ItemID: spot.ItemID, MapID: req.MapID, Tile: tile}
	return []Interaction{newInteraction(TypeForage, spot.ID, "Forage "+labelOr(spot.Label, spot.ItemID), func() error {
		if err := cb(result); err != nil {
			return err
		}
		return a.markCollected(ctx, key, req.Day)
	})}
}

func (a *Aggregator) transitionInteractions(req Request, tile world.Tile) []Interaction {
	cb := req.Callbacks.OnTransition
	if a.c.Transitions == nil || cb == nil {
		return nil
	}
	tr, ok := a.c.Transitions.TransitionAt(req.MapID, tile)
	if !ok || !conditionals.Evaluate(tr.Predicates, req.View, "") {
		return nil
	}
	result := TransitionResult{TransitionID: tr.ID, ToMap: tr.ToMap, ToPosition: tr.ToPosition}
	label := labelOr(tr.Label, "go_to_"+tr.ToMap)
	return []Interaction{newInteraction(TypeTransition, tr.ID, label, func() error {
		return cb(result)
	})}
}

func (a *Aggregator) cobwebInteractions(req Request, tile world.Tile) []Interaction {
	cb := req.Callbacks.OnClearCobweb
	if a.c.Cobwebs == nil || cb == nil {
		return nil
	}
	web, ok := a.c.Cobwebs.CobwebAt(req.MapID, tile)
	if !ok || !web.Open(req.View.GetQuestStage(web.QuestID)) {
		return nil
	}
	result := CobwebResult{CobwebID: web.ID, QuestID: web.QuestID, MapID: req.MapID, Tile: tile}
	return []Interaction{newInteraction(TypeClearCobweb, web.ID, "Clear Cobweb", func() error {
		return cb(result)
	})}
}

func (a *Aggregator) collected(ctx context.Context, key string, day int) bool {
	if a.c.Collections == nil {
		return false
	}
	done, err := a.c.Collections.CollectedOn(ctx, key, day)
	if err != nil {
		// Hide the interaction rather than risk a second collection.
		a.logger.Error("failed to read collection state", "key", key, "error", err)
		return true
	}
	return done
}

func (a *Aggregator) markCollected(ctx context.Context, key string, day int) error {
	if a.c.Collections == nil {
		return nil
	}
	return a.c.Collections.MarkCollected(ctx, key, day)
}
