package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/content"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/jwebster45206/hearth-engine/pkg/interaction"
	"github.com/jwebster45206/hearth-engine/pkg/presenter"
	"github.com/jwebster45206/hearth-engine/pkg/scheduler"
	"github.com/jwebster45206/hearth-engine/pkg/state"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

const (
	mapWidth  = 16
	mapHeight = 12

	giftPoints  = 15
	greetEvent  = "greet"
	giftEvent   = "gift_given"
	potionName  = "beast_speech"
	maxLogLines = 50
)

var (
	tools   = []interaction.Tool{interaction.ToolNone, interaction.ToolHoe, interaction.ToolSeeds, interaction.ToolWateringCan, interaction.ToolBucket}
	seeds   = []string{"turnip", "pumpkin", "strawberry"}
	weather = []world.Weather{world.WeatherClear, world.WeatherRain, world.WeatherFog, world.WeatherSnow, world.WeatherCherryBlossoms}
)

// session is one running village: the player, the world tables and the
// interaction pipeline. It implements presenter.UI and presenter.Projector;
// the terminal model only renders it.
type session struct {
	ctx       context.Context
	bundle    *content.Bundle
	npcs      *actor.Directory
	farm      *content.FarmTable
	placed    *content.PlacedItemTable
	cobwebs   *content.CobwebTable
	collab    interaction.Collaborators
	store     state.Store
	globals   state.GlobalEvents
	notifier  dialogue.Notifier
	resolver  *dialogue.Resolver
	sched     *scheduler.Scheduler
	presenter *presenter.Presenter
	logger    *slog.Logger

	env    state.Environment
	day    int
	mapID  string
	player world.Position
	facing world.Direction
	tool   int
	seed   int

	menu        *presenter.Menu
	highlighted string
	conv        *dialogue.Conversation
	turn        *dialogue.Turn
	speaker     string

	view      *world.Context
	inventory map[string]int
	log       []string
}

type sessionDeps struct {
	Store     state.Store
	Globals   state.GlobalEvents
	Notifier  dialogue.Notifier
	Presenter presenter.Config
	Logger    *slog.Logger
}

func newSession(ctx context.Context, b *content.Bundle, deps sessionDeps, now time.Time) (*session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	npcs, err := b.BuildDirectory(now)
	if err != nil {
		return nil, fmt.Errorf("failed to build npcs: %w", err)
	}

	s := &session{
		ctx:      ctx,
		bundle:   b,
		npcs:     npcs,
		farm:     content.NewFarmTable(b.Plots),
		placed:   content.NewPlacedItemTable(b.PlacedItems),
		cobwebs:  content.NewCobwebTable(b.Cobwebs),
		store:    deps.Store,
		globals:  deps.Globals,
		notifier: deps.Notifier,
		resolver: dialogue.NewResolver(logger),
		sched:    scheduler.New(now),
		logger:   logger,
		env: state.Environment{
			Season:    world.SeasonSpring,
			TimeOfDay: world.TimeDay,
			Weather:   world.WeatherClear,
		},
		day:    1,
		mapID:  b.StartMap,
		player: b.StartAt,
		facing: world.DirectionDown,
	}

	s.collab = b.Collaborators(npcs, s.farm, deps.Store)
	s.collab.PlacedItems = s.placed
	s.collab.Cobwebs = s.cobwebs
	s.collab.World = s.worldView
	agg := interaction.NewAggregator(s.collab, logger)
	s.presenter = presenter.New(deps.Presenter, agg, npcs, s, s, s.sched, logger)

	s.say(fmt.Sprintf("Welcome to %s.", b.Name))
	return s, nil
}

// ShowMenu implements presenter.UI.
func (s *session) ShowMenu(m presenter.Menu) {
	s.menu = &m
	s.highlighted = ""
}

func (s *session) HighlightOption(id string) { s.highlighted = id }
func (s *session) HideMenu()                 { s.menu, s.highlighted = nil, "" }

// ToScreen maps a tile position to its terminal cell; every tile is two
// columns wide.
func (s *session) ToScreen(p world.Position) presenter.Point {
	return presenter.Point{X: p.X * 2, Y: p.Y}
}

// tick advances timers, NPCs and the proximity menu to now.
func (s *session) tick(now time.Time) {
	s.sched.Advance(now)
	s.npcs.Update(now, s.mapID, s.player)
	s.presenter.HandleProximity(s.ctx, presenter.Proximity{
		Request: s.request(s.player),
		Player:  s.player,
		Blocked: s.blocked(),
	})
}

func (s *session) blocked() bool { return s.conv != nil }

func (s *session) move(dir world.Direction) {
	if s.blocked() {
		return
	}
	s.facing = dir
	next := step(s.player, dir)
	if next.X < 0 || next.Y < 0 || next.X >= mapWidth || next.Y >= mapHeight {
		return
	}
	s.player = next
}

// interact clicks the tile the player faces.
func (s *session) interact() {
	target := step(s.player, s.facing)
	s.presenter.HandleClick(s.ctx, presenter.Click{
		Request: s.request(target),
		Screen:  s.ToScreen(target),
		Player:  s.player,
		Blocked: s.blocked(),
	})
}

func step(p world.Position, dir world.Direction) world.Position {
	switch dir {
	case world.DirectionUp:
		p.Y--
	case world.DirectionDown:
		p.Y++
	case world.DirectionLeft:
		p.X--
	case world.DirectionRight:
		p.X++
	}
	return p
}

func (s *session) request(pos world.Position) interaction.Request {
	req := interaction.Request{
		Position:  pos,
		MapID:     s.mapID,
		Tool:      s.currentTool(),
		Day:       s.day,
		Callbacks: s.callbacks(),
	}
	if req.Tool == interaction.ToolSeeds {
		req.SeedID = seeds[s.seed]
	}
	return req
}

func (s *session) currentTool() interaction.Tool { return tools[s.tool] }

// snapshot returns the cached world context, reading the save again after
// anything changed it.
func (s *session) snapshot() *world.Context {
	wc, err := s.load(s.ctx)
	if err != nil {
		s.logger.Error("failed to read save state", "error", err)
		return world.NewContext(s.env.Season, s.env.TimeOfDay, s.env.Weather)
	}
	return wc
}

// worldView is the aggregator's world provider.
func (s *session) worldView(ctx context.Context) (conditionals.WorldView, error) {
	wc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return wc, nil
}

func (s *session) load(ctx context.Context) (*world.Context, error) {
	if s.view != nil {
		return s.view, nil
	}
	wc, err := state.Snapshot(ctx, s.store, s.globals, s.env, s.bundle.StartingPoints())
	if err != nil {
		return nil, err
	}
	inv, err := s.store.Inventory(ctx)
	if err != nil {
		s.logger.Error("failed to read inventory", "error", err)
	}
	s.view, s.inventory = wc, inv
	return wc, nil
}

func (s *session) invalidate() { s.view = nil }

func (s *session) say(line string) {
	s.log = append(s.log, line)
	if len(s.log) > maxLogLines {
		s.log = s.log[len(s.log)-maxLogLines:]
	}
}

func (s *session) callbacks() interaction.Callbacks {
	return interaction.Callbacks{
		OnNPC:              s.talk,
		OnGiveGift:         s.giveGift,
		OnCollectResource:  s.collectResource,
		OnPlacedItemAction: s.placedItemAction,
		OnFarmAction:       s.farmAction,
		OnCollectWater:     s.collectWater,
		OnRefillWaterCan:   s.refillWaterCan,
		OnForage:           s.forage,
		OnTransition:       s.transition,
		OnClearCobweb:      s.clearCobweb,
	}
}

func (s *session) talk(npcID string) error {
	npc, ok := s.npcs.Get(npcID)
	if !ok {
		return fmt.Errorf("unknown npc %q", npcID)
	}
	npc.Face(world.FacingToward(npc.Position(), s.player))
	npc.FireEvent(greetEvent, s.sched.Now())

	conv := dialogue.NewConversation(npc, s.resolver, s.store, s.logger)
	if s.notifier != nil {
		conv = conv.WithNotifier(s.notifier)
	}
	turn, ok := conv.Current(s.snapshot())
	if !ok {
		s.say(npc.Name + " has nothing to say.")
		return nil
	}
	s.conv, s.turn, s.speaker = conv, turn, npc.Name
	s.say(npc.Name + ": " + turn.Text)
	return nil
}

// respond picks the index-th visible response of the open conversation.
func (s *session) respond(index int) {
	if s.conv == nil || index < 0 || index >= len(s.turn.Responses) {
		return
	}
	s.say("You: " + s.turn.Responses[index].Text)
	err := s.conv.Select(s.ctx, s.snapshot(), index)
	s.invalidate()
	if err != nil {
		s.logger.Error("dialogue response failed", "npc", s.conv.NPCID(), "node", s.conv.NodeID(), "error", err)
		s.say("Something went wrong. " + err.Error())
		s.endConversation()
		return
	}
	if s.conv.IsClosed() {
		s.endConversation()
		return
	}
	turn, ok := s.conv.Current(s.snapshot())
	if !ok {
		s.endConversation()
		return
	}
	s.turn = turn
	s.say(s.speaker + ": " + turn.Text)
}

func (s *session) endConversation() {
	if s.conv != nil {
		s.conv.Close()
	}
	s.conv, s.turn, s.speaker = nil, nil, ""
}

func (s *session) giveGift(npcID string) error {
	npc, ok := s.npcs.Get(npcID)
	if !ok {
		return fmt.Errorf("unknown npc %q", npcID)
	}
	defer s.invalidate()

	points, err := s.store.AddFriendshipPoints(s.ctx, npcID, giftPoints+s.seedPoints(npcID))
	if err != nil {
		return err
	}
	if s.globals != nil {
		if _, err := s.globals.RecordGlobalEvent(s.ctx, giftEvent); err != nil {
			s.logger.Warn("failed to record gift", "npc", npcID, "error", err)
		}
	}
	s.say(fmt.Sprintf("%s loves the gift. (%s)", npc.Name, world.TierForPoints(points)))
	return nil
}

// seedPoints returns the content's starting points the first time the save
// records points for npcID, so the first gift builds on them.
func (s *session) seedPoints(npcID string) int {
	points, err := s.store.FriendshipPoints(s.ctx)
	if err != nil {
		return 0
	}
	if _, ok := points[npcID]; ok {
		return 0
	}
	return s.bundle.StartingPoints()[npcID]
}

func (s *session) collectResource(r interaction.ResourceResult) error {
	defer s.invalidate()
	if err := s.store.GiveItem(s.ctx, r.ItemID, r.Quantity); err != nil {
		return err
	}
	s.say(fmt.Sprintf("You collect %d %s.", r.Quantity, interaction.Title(r.ItemID)))
	return nil
}

func (s *session) placedItemAction(a interaction.PlacedItemAction) error {
	defer s.invalidate()
	if a.Action != "pickup" {
		s.say(fmt.Sprintf("You %s at the %s.", a.Action, interaction.Title(a.ItemID)))
		return nil
	}
	if !s.placed.Remove(a.PlacedID) {
		return fmt.Errorf("placed item %q is gone", a.PlacedID)
	}
	if err := s.store.GiveItem(s.ctx, a.ItemID, 1); err != nil {
		return err
	}
	s.say("You pick up the " + interaction.Title(a.ItemID) + ".")
	return nil
}

func (s *session) farmAction(r interaction.FarmResult) error {
	defer s.invalidate()
	s.farm.Apply(r)
	switch r.Action {
	case interaction.TypeTill:
		s.say("You till the soil.")
	case interaction.TypePlant:
		s.say("You plant " + interaction.Title(r.CropID) + " seeds.")
	case interaction.TypeWaterCrop:
		s.say("You water the " + interaction.Title(r.CropID) + ".")
	case interaction.TypeHarvest:
		if err := s.store.GiveItem(s.ctx, r.CropID, 1); err != nil {
			return err
		}
		s.say("You harvest a " + interaction.Title(r.CropID) + ".")
	}
	return nil
}

func (s *session) collectWater(interaction.WaterResult) error {
	defer s.invalidate()
	if err := s.store.GiveItem(s.ctx, "water", 1); err != nil {
		return err
	}
	s.say("You fill the bucket.")
	return nil
}

func (s *session) refillWaterCan(interaction.WaterResult) error {
	s.say("The watering can is full again.")
	return nil
}

func (s *session) forage(r interaction.ForageResult) error {
	defer s.invalidate()
	if err := s.store.GiveItem(s.ctx, r.ItemID, 1); err != nil {
		return err
	}
	s.say("You forage some " + interaction.Title(r.ItemID) + ".")
	return nil
}

func (s *session) transition(r interaction.TransitionResult) error {
	s.presenter.Close()
	s.mapID = r.ToMap
	s.player = r.ToPosition
	s.say("You head to the " + interaction.Title(r.ToMap) + ".")
	return nil
}

func (s *session) clearCobweb(r interaction.CobwebResult) error {
	defer s.invalidate()
	s.cobwebs.Clear(r.MapID, r.Tile)
	if err := s.store.AdvanceQuest(s.ctx, r.QuestID); err != nil {
		return err
	}
	s.say("You sweep away the cobweb.")
	return nil
}

// nextDay starts a new day: crops grow and daily collections reset.
func (s *session) nextDay() {
	s.day++
	s.farm.Grow()
	s.invalidate()
	s.say(fmt.Sprintf("Day %d begins.", s.day))
}

func (s *session) cycleTool() {
	s.tool = (s.tool + 1) % len(tools)
	s.presenter.Close()
}

func (s *session) cycleSeed() {
	s.seed = (s.seed + 1) % len(seeds)
}

func (s *session) cycleWeather() {
	for i, w := range weather {
		if w == s.env.Weather {
			s.env.Weather = weather[(i+1)%len(weather)]
			break
		}
	}
	s.invalidate()
}

func (s *session) toggleNight() {
	if s.env.TimeOfDay == world.TimeDay {
		s.env.TimeOfDay = world.TimeNight
	} else {
		s.env.TimeOfDay = world.TimeDay
	}
	s.invalidate()
}

func (s *session) togglePotion() {
	active := !s.snapshot().HasPotionEffect(potionName)
	if err := s.store.SetPotionEffect(s.ctx, potionName, active); err != nil {
		s.logger.Error("failed to set potion effect", "error", err)
		return
	}
	s.invalidate()
	if active {
		s.say("You drink a potion of " + interaction.Title(potionName) + ".")
	} else {
		s.say("The potion wears off.")
	}
}

// escape closes the conversation, then any menu.
func (s *session) escape() {
	if s.conv != nil {
		s.endConversation()
		return
	}
	s.presenter.HandleKey("escape")
}

func (s *session) close() {
	s.presenter.Teardown()
	s.sched.CancelAll()
}
