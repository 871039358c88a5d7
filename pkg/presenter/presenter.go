// Package presenter decides whether interactions run at once or go into a
// radial menu, and drives the hover and click selection protocol.
package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/interaction"
	"github.com/jwebster45206/hearth-engine/pkg/scheduler"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// State is the presenter's menu state.
type State string

const (
	StateIdle     State = "idle"
	StateMenuOpen State = "menu_open"
	StateClosing  State = "closing"
)

// MenuKind says what opened a menu.
type MenuKind string

const (
	MenuClick MenuKind = "click"
	MenuNPC   MenuKind = "npc"
)

// Point is a screen-space position.
type Point struct {
	X, Y float64
}

// Option is one entry of a radial menu.
type Option struct {
	ID       string
	Label    string
	Icon     string
	Color    string
	OnSelect func()
}

// Menu is what the UI is asked to show.
type Menu struct {
	Kind    MenuKind
	Options []Option
	Anchor  Point
	NPCID   string
}

// UI renders menus. The presenter calls it synchronously.
type UI interface {
	ShowMenu(m Menu)
	HighlightOption(optionID string)
	HideMenu()
}

// Projector maps world positions to screen positions.
type Projector interface {
	ToScreen(p world.Position) Point
}

// Source produces interactions. interaction.Aggregator implements it.
type Source interface {
	GetAvailableInteractions(ctx context.Context, req interaction.Request) []interaction.Interaction
}

// NPCFinder finds the closest NPC in interaction range. actor.Directory
// implements it.
type NPCFinder interface {
	NearestInRange(mapID string, p world.Position) (*actor.NPC, bool)
}

// Config holds the presenter's distances and delays.
type Config struct {
	InteractionRange    float64       // max tiles between player and clicked position
	HoverSelectDelay    time.Duration // hover time before an option is selected
	SelectFeedbackDelay time.Duration // pause between hover selection and OnSelect
	ClickFeedbackDelay  time.Duration // pause between a direct click and OnSelect
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		InteractionRange:    2.5,
		HoverSelectDelay:    700 * time.Millisecond,
		SelectFeedbackDelay: 150 * time.Millisecond,
		ClickFeedbackDelay:  100 * time.Millisecond,
	}
}

// Click is a world click. Request carries the clicked world position and the
// lookup context; Blocked is set while a dialogue, cutscene or modal is open.
type Click struct {
	Request interaction.Request
	Screen  Point
	Player  world.Position
	Blocked bool
}

// Proximity is a player movement poll. Request supplies the lookup context;
// its Position is replaced by the NPC's.
type Proximity struct {
	Request interaction.Request
	Player  world.Position
	Blocked bool
}

// Presenter is the interaction menu state machine. It is not safe for
// concurrent use; the game loop owns it.
type Presenter struct {
	cfg       Config
	source    Source
	npcs      NPCFinder
	ui        UI
	projector Projector
	sched     *scheduler.Scheduler
	logger    *slog.Logger

	state      State
	menu       *Menu
	anchorNPC  string
	dismissed  string
	hovered    string
	selected   string
	hoverTask  *scheduler.Task
	selectTask *scheduler.Task
	torn       bool
}

// New creates a presenter. A nil logger uses slog.Default.
func New(cfg Config, source Source, npcs NPCFinder, ui UI, projector Projector, sched *scheduler.Scheduler, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		cfg:       cfg,
		source:    source,
		npcs:      npcs,
		ui:        ui,
		projector: projector,
		sched:     sched,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current menu state.
func (p *Presenter) State() State { return p.state }

// Menu returns the open menu, or nil.
func (p *Presenter) Menu() *Menu { return p.menu }

// AnchorNPC returns the npc the proximity menu is showing for, or "".
func (p *Presenter) AnchorNPC() string { return p.anchorNPC }

// Selected returns the option id chosen and waiting for its feedback delay.
func (p *Presenter) Selected() string { return p.selected }

// HandleClick resolves a click: nothing, an immediate execution, or a menu.
func (p *Presenter) HandleClick(ctx context.Context, c Click) {
	if p.torn || c.Blocked {
		return
	}
	list := p.source.GetAvailableInteractions(ctx, c.Request)
	if len(list) == 0 {
		return
	}
	if c.Player.Distance(c.Request.Position) > p.cfg.InteractionRange {
		return
	}
	if len(list) == 1 {
		p.Close()
		p.run(list[0])
		return
	}
	p.open(Menu{Kind: MenuClick, Anchor: c.Screen}, list)
}

// HandleProximity opens, keeps or closes the NPC menu as the player moves.
func (p *Presenter) HandleProximity(ctx context.Context, prox Proximity) {
	if p.torn || prox.Blocked {
		return
	}
	if p.menu != nil && p.menu.Kind == MenuClick {
		return
	}

	npc, ok := p.npcs.NearestInRange(prox.Request.MapID, prox.Player)
	if !ok {
		p.dismissed = ""
		if p.menu != nil && p.menu.Kind == MenuNPC {
			p.Close()
		}
		return
	}
	if npc.ID != p.dismissed {
		p.dismissed = ""
	}
	if npc.ID == p.anchorNPC || npc.ID == p.dismissed {
		return
	}

	req := prox.Request
	req.Position = npc.Position()
	var list []interaction.Interaction
	for _, i := range interaction.NPCInteractions(p.source.GetAvailableInteractions(ctx, req)) {
		if i.TargetID == npc.ID {
			list = append(list, i)
		}
	}
	if len(list) == 0 {
		if p.menu != nil {
			p.Close()
		}
		return
	}

	var anchor Point
	if p.projector != nil {
		anchor = p.projector.ToScreen(npc.Position())
	}
	p.open(Menu{Kind: MenuNPC, Anchor: anchor, NPCID: npc.ID}, list)
	p.anchorNPC = npc.ID
}

// HoverOption starts the hover-select timer for id, replacing any pending one.
func (p *Presenter) HoverOption(id string) {
	if p.state != StateMenuOpen || p.option(id) == nil {
		return
	}
	p.hoverTask.Cancel()
	p.hovered = id
	p.hoverTask = p.sched.After(p.cfg.HoverSelectDelay, func() {
		p.hoverTask = nil
		p.selectOption(id, p.cfg.SelectFeedbackDelay)
	})
}

// LeaveOption cancels the hover timer if it belongs to id.
func (p *Presenter) LeaveOption(id string) {
	if p.hovered != id {
		return
	}
	p.hoverTask.Cancel()
	p.hoverTask = nil
	p.hovered = ""
}

// ClickOption selects id directly.
func (p *Presenter) ClickOption(id string) {
	if p.state != StateMenuOpen || p.option(id) == nil {
		return
	}
	p.hoverTask.Cancel()
	p.hoverTask = nil
	p.selectOption(id, p.cfg.ClickFeedbackDelay)
}

// HandleKey handles keyboard input. Escape closes an open menu; it reports
// whether the key was consumed.
func (p *Presenter) HandleKey(key string) bool {
	if key != "escape" && key != "esc" {
		return false
	}
	if p.menu == nil {
		return false
	}
	p.dismiss()
	return true
}

// Close hides any menu, cancels pending timers and returns to idle. Closing
// an NPC menu forgets its anchor so a later approach can reopen it.
func (p *Presenter) Close() {
	p.hoverTask.Cancel()
	p.selectTask.Cancel()
	p.hoverTask, p.selectTask = nil, nil
	p.hovered, p.selected = "", ""

	if p.menu != nil {
		if p.menu.Kind == MenuNPC {
			p.anchorNPC = ""
		}
		p.menu = nil
		p.ui.HideMenu()
	}
	p.state = StateIdle
}

// Teardown closes the menu and ignores all further input. Timers already
// scheduled become no-ops.
func (p *Presenter) Teardown() {
	p.Close()
	p.torn = true
}

func (p *Presenter) open(m Menu, list []interaction.Interaction) {
	p.Close()
	seen := make(map[string]int)
	for _, in := range list {
		id := fmt.Sprintf("%s:%s", in.Type, in.TargetID)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s#%d", id, n)
		} else {
			seen[id] = 1
		}
		m.Options = append(m.Options, Option{
			ID:       id,
			Label:    in.Label,
			Icon:     in.Icon,
			Color:    in.Color,
			OnSelect: func() { p.run(in) },
		})
	}
	p.menu = &m
	p.state = StateMenuOpen
	p.ui.ShowMenu(m)
}

// dismiss closes the menu on Escape. An NPC menu stays closed until the
// player leaves that NPC; picking an option closes without this lock.
func (p *Presenter) dismiss() {
	if p.menu != nil && p.menu.Kind == MenuNPC {
		p.dismissed = p.menu.NPCID
	}
	p.Close()
}

func (p *Presenter) option(id string) *Option {
	if p.menu == nil {
		return nil
	}
	for i := range p.menu.Options {
		if p.menu.Options[i].ID == id {
			return &p.menu.Options[i]
		}
	}
	return nil
}

func (p *Presenter) selectOption(id string, delay time.Duration) {
	opt := p.option(id)
	if opt == nil || p.state != StateMenuOpen {
		return
	}
	onSelect := opt.OnSelect
	p.selected = id
	p.hovered = ""
	p.state = StateClosing
	p.ui.HighlightOption(id)

	p.selectTask = p.sched.After(delay, func() {
		p.selectTask = nil
		p.Close()
		if onSelect != nil {
			onSelect()
		}
	})
}

// run executes an interaction. Errors and panics are logged; they never
// leave the presenter stuck.
func (p *Presenter) run(in interaction.Interaction) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("interaction panicked", "interaction", in.Type, "target", in.TargetID, "panic", r)
		}
	}()
	if in.Execute == nil {
		return
	}
	if err := in.Execute(); err != nil {
		p.logger.Error("interaction failed", "interaction", in.Type, "target", in.TargetID, "error", err)
	}
}
