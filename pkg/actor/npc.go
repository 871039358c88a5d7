package actor

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/behavior"
	"github.com/jwebster45206/hearth-engine/pkg/dialogue"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// Defaults applied by the factories when a config leaves a field at zero.
const (
	DefaultScale             = 1.0
	DefaultInteractionRadius = 1.5
	DefaultCollisionRadius   = 0.5
)

var ErrInvalidConfig = errors.New("invalid npc config")

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Behavior is how an NPC moves around its map.
type Behavior string

const (
	BehaviorStatic Behavior = "static"
	BehaviorWander Behavior = "wander"
	BehaviorPatrol Behavior = "patrol"
)

// FriendshipConfig controls whether and how an NPC can be befriended.
type FriendshipConfig struct {
	CanBefriend     bool     `json:"can_befriend" yaml:"can_befriend"`
	StartingPoints  int      `json:"starting_points,omitempty" yaml:"starting_points,omitempty"`
	LikedCategories []string `json:"liked_categories,omitempty" yaml:"liked_categories,omitempty"` // gift item categories
}

// DailyResourceConfig lets the player collect an item from the NPC once a day.
type DailyResourceConfig struct {
	ItemID       string               `json:"item_id" yaml:"item_id"`
	Quantity     int                  `json:"quantity" yaml:"quantity"`
	RequiredTier world.FriendshipTier `json:"required_tier,omitempty" yaml:"required_tier,omitempty"`
	Label        string               `json:"label,omitempty" yaml:"label,omitempty"`
}

// WanderConfig drives wandering and patrolling NPCs.
type WanderConfig struct {
	Radius       float64          `json:"radius,omitempty" yaml:"radius,omitempty"`               // wander distance from home
	Speed        float64          `json:"speed" yaml:"speed"`                                     // tiles per second
	Waypoints    []world.Position `json:"waypoints,omitempty" yaml:"waypoints,omitempty"`         // patrol route
	MovingStates []string         `json:"moving_states,omitempty" yaml:"moving_states,omitempty"` // empty means always moving
}

// Config is the factory input for an NPC.
type Config struct {
	ID                string               `json:"id" yaml:"id"`
	Name              string               `json:"name" yaml:"name"`
	MapID             string               `json:"map_id" yaml:"map_id"`
	Position          world.Position       `json:"position" yaml:"position"`
	Direction         world.Direction      `json:"direction,omitempty" yaml:"direction,omitempty"`
	Sprite            string               `json:"sprite" yaml:"sprite"`
	PortraitSprite    string               `json:"portrait_sprite,omitempty" yaml:"portrait_sprite,omitempty"`
	Scale             float64              `json:"scale,omitempty" yaml:"scale,omitempty"`
	InteractionRadius float64              `json:"interaction_radius,omitempty" yaml:"interaction_radius,omitempty"`
	CollisionRadius   float64              `json:"collision_radius,omitempty" yaml:"collision_radius,omitempty"`
	Behavior          Behavior             `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	States            *behavior.Definition `json:"states,omitempty" yaml:"states,omitempty"`
	InitialState      string               `json:"initial_state,omitempty" yaml:"initial_state,omitempty"`
	Dialogue          []dialogue.Node      `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`
	Friendship        *FriendshipConfig    `json:"friendship,omitempty" yaml:"friendship,omitempty"`
	DailyResource     *DailyResourceConfig `json:"daily_resource,omitempty" yaml:"daily_resource,omitempty"`
	Wander            *WanderConfig        `json:"wander,omitempty" yaml:"wander,omitempty"`
}

// NPC is a non-player character. Identity and configuration are fixed after
// construction; friendship and quest progress live in the save-state store.
type NPC struct {
	ID                string
	Name              string
	MapID             string
	Sprite            string
	PortraitSprite    string
	Scale             float64
	InteractionRadius float64
	CollisionRadius   float64
	Behavior          Behavior
	Friendship        *FriendshipConfig
	DailyResource     *DailyResourceConfig
	Wander            *WanderConfig

	position world.Position
	home     world.Position
	facing   world.Direction
	machine  *behavior.Machine
	dialogue *dialogue.Table

	// movement cursor
	waypoint   int
	lastUpdate time.Time
}

var _ dialogue.Source = (*NPC)(nil)

// CreateStaticNPC builds an NPC that stays where it is placed.
func CreateStaticNPC(cfg Config, now time.Time) (*NPC, error) {
	if cfg.Behavior != "" && cfg.Behavior != BehaviorStatic {
		return nil, fmt.Errorf("%w: %s: static npc with behavior %q", ErrInvalidConfig, cfg.ID, cfg.Behavior)
	}
	cfg.Behavior = BehaviorStatic
	cfg.Wander = nil
	return build(cfg, now)
}

// CreateWanderingNPC builds an NPC that wanders around its position or
// follows a patrol route.
func CreateWanderingNPC(cfg Config, now time.Time) (*NPC, error) {
	if cfg.Behavior == "" {
		cfg.Behavior = BehaviorWander
		if cfg.Wander != nil && len(cfg.Wander.Waypoints) > 0 {
			cfg.Behavior = BehaviorPatrol
		}
	}
	if cfg.Behavior != BehaviorWander && cfg.Behavior != BehaviorPatrol {
		return nil, fmt.Errorf("%w: %s: wandering npc with behavior %q", ErrInvalidConfig, cfg.ID, cfg.Behavior)
	}
	w := cfg.Wander
	switch {
	case w == nil || w.Speed <= 0:
		return nil, fmt.Errorf("%w: %s: wandering npc needs a positive speed", ErrInvalidConfig, cfg.ID)
	case cfg.Behavior == BehaviorWander && w.Radius <= 0:
		return nil, fmt.Errorf("%w: %s: wander radius must be positive", ErrInvalidConfig, cfg.ID)
	case cfg.Behavior == BehaviorPatrol && len(w.Waypoints) < 2:
		return nil, fmt.Errorf("%w: %s: patrol needs at least two waypoints", ErrInvalidConfig, cfg.ID)
	}
	return build(cfg, now)
}

func build(cfg Config, now time.Time) (*NPC, error) {
	if !idPattern.MatchString(cfg.ID) {
		return nil, fmt.Errorf("%w: id %q must be snake_case", ErrInvalidConfig, cfg.ID)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: %s: missing name", ErrInvalidConfig, cfg.ID)
	}
	if cfg.Sprite == "" && cfg.States == nil {
		return nil, fmt.Errorf("%w: %s: needs a sprite or animation states", ErrInvalidConfig, cfg.ID)
	}
	if cfg.Direction == "" {
		cfg.Direction = world.DirectionDown
	}
	if !cfg.Direction.Valid() {
		return nil, fmt.Errorf("%w: %s: unknown direction %q", ErrInvalidConfig, cfg.ID, cfg.Direction)
	}
	if cfg.Scale < 0 || cfg.InteractionRadius < 0 || cfg.CollisionRadius < 0 {
		return nil, fmt.Errorf("%w: %s: scale and radii cannot be negative", ErrInvalidConfig, cfg.ID)
	}
	if r := cfg.DailyResource; r != nil {
		if r.ItemID == "" || r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s: daily resource needs an item and a positive quantity", ErrInvalidConfig, cfg.ID)
		}
		if r.RequiredTier != "" && !r.RequiredTier.Valid() {
			return nil, fmt.Errorf("%w: %s: unknown friendship tier %q", ErrInvalidConfig, cfg.ID, r.RequiredTier)
		}
	}

	n := &NPC{
		ID:                cfg.ID,
		Name:              cfg.Name,
		MapID:             cfg.MapID,
		Sprite:            cfg.Sprite,
		PortraitSprite:    cfg.PortraitSprite,
		Scale:             orDefault(cfg.Scale, DefaultScale),
		InteractionRadius: orDefault(cfg.InteractionRadius, DefaultInteractionRadius),
		CollisionRadius:   orDefault(cfg.CollisionRadius, DefaultCollisionRadius),
		Behavior:          cfg.Behavior,
		Friendship:        cfg.Friendship,
		DailyResource:     cfg.DailyResource,
		Wander:            cfg.Wander,
		position:          cfg.Position,
		home:              cfg.Position,
		facing:            cfg.Direction,
		dialogue:          dialogue.NewTable(cfg.Dialogue),
		lastUpdate:        now,
	}

	if cfg.States != nil {
		initial := cfg.InitialState
		if initial == "" {
			return nil, fmt.Errorf("%w: %s: animation states need an initial state", ErrInvalidConfig, cfg.ID)
		}
		m, err := behavior.NewMachine(*cfg.States, initial, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, cfg.ID, err)
		}
		m.SetFacing(cfg.Direction)
		n.machine = m
	}
	return n, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// NPCID implements dialogue.Source.
func (n *NPC) NPCID() string { return n.ID }

// DialogueTable implements dialogue.Source.
func (n *NPC) DialogueTable() *dialogue.Table { return n.dialogue }

// Position returns the NPC's current position.
func (n *NPC) Position() world.Position { return n.position }

// Facing returns the direction the NPC faces.
func (n *NPC) Facing() world.Direction { return n.facing }

// Machine returns the NPC's state machine, or nil for unanimated NPCs.
func (n *NPC) Machine() *behavior.Machine { return n.machine }

// CanBefriend reports whether gifts are accepted.
func (n *NPC) CanBefriend() bool { return n.Friendship != nil && n.Friendship.CanBefriend }

// StartingPoints returns the friendship points a new save starts with.
func (n *NPC) StartingPoints() int {
	if n.Friendship == nil {
		return 0
	}
	return n.Friendship.StartingPoints
}

// CurrentSprite returns the animated sprite, or the static one.
func (n *NPC) CurrentSprite() string {
	if n.machine != nil {
		if s := n.machine.Sprite(); s != "" {
			return s
		}
	}
	return n.Sprite
}

// InInteractionRange reports whether p is within the NPC's interaction radius.
func (n *NPC) InInteractionRange(p world.Position) bool {
	return n.position.Distance(p) <= n.InteractionRadius
}

// Face turns the NPC toward dir.
func (n *NPC) Face(dir world.Direction) {
	if !dir.Valid() {
		return
	}
	n.facing = dir
	if n.machine != nil {
		n.machine.SetFacing(dir)
	}
}

// FireEvent sends an event to the NPC's state machine.
func (n *NPC) FireEvent(event string, now time.Time) bool {
	if n.machine == nil {
		return false
	}
	return n.machine.Fire(event, now)
}
