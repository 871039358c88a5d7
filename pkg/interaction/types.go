// Package interaction works out which interactions a world position offers
// and binds each one to the host's callbacks.
package interaction

import (
	"strings"

	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/world"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type identifies what an interaction does.
type Type string

const (
	TypeTalk             Type = "talk"
	TypeGift             Type = "gift"
	TypeCollectResource  Type = "collect_resource"
	TypePickup           Type = "pickup"
	TypePlacedItemAction Type = "placed_item_action"
	TypeTill             Type = "till"
	TypePlant            Type = "plant"
	TypeWaterCrop        Type = "water_crop"
	TypeHarvest          Type = "harvest"
	TypeCollectWater     Type = "collect_water"
	TypeRefillWaterCan   Type = "refill_water_can"
	TypeForage           Type = "forage"
	TypeTransition       Type = "transition"
	TypeClearCobweb      Type = "clear_cobweb"
)

// NPCRelevant reports whether t is offered by the proximity menu.
func (t Type) NPCRelevant() bool {
	switch t {
	case TypeTalk, TypeGift, TypeCollectResource:
		return true
	}
	return false
}

// Tool is the item the player has equipped.
type Tool string

const (
	ToolNone        Tool = ""
	ToolHoe         Tool = "hoe"
	ToolSeeds       Tool = "seeds"
	ToolWateringCan Tool = "watering_can"
	ToolBucket      Tool = "bucket"
)

// Interaction is a fully bound action. TargetID is the npc, item or spot it
// acts on. Execute takes no arguments and calls at most one host callback.
type Interaction struct {
	Type     Type
	TargetID string
	Label    string
	Icon     string
	Color    string
	Execute  func() error
}

// ResourceResult is passed to OnCollectResource.
type ResourceResult struct {
	NPCID    string
	ItemID   string
	Quantity int
}

// PlacedItemAction is passed to OnPlacedItemAction. Action is "pickup" for
// the pickup interaction.
type PlacedItemAction struct {
	PlacedID string
	ItemID   string
	Action   string
}

// FarmResult is passed to OnFarmAction.
type FarmResult struct {
	Action Type
	MapID  string
	Tile   world.Tile
	CropID string
}

// WaterResult is passed to OnCollectWater and OnRefillWaterCan.
type WaterResult struct {
	MapID string
	Tile  world.Tile
}

// ForageResult is passed to OnForage.
type ForageResult struct {
	SpotID string
	ItemID string
	MapID  string
	Tile   world.Tile
}

// TransitionResult is passed to OnTransition.
type TransitionResult struct {
	TransitionID string
	ToMap        string
	ToPosition   world.Position
}

// CobwebResult is passed to OnClearCobweb.
type CobwebResult struct {
	CobwebID string
	QuestID  string
	MapID    string
	Tile     world.Tile
}

// Callbacks is the host's callback map. A nil callback means the host does
// not support that interaction and it is never offered.
type Callbacks struct {
	OnNPC              func(npcID string) error
	OnGiveGift         func(npcID string) error
	OnCollectResource  func(ResourceResult) error
	OnPlacedItemAction func(PlacedItemAction) error
	OnFarmAction       func(FarmResult) error
	OnCollectWater     func(WaterResult) error
	OnRefillWaterCan   func(WaterResult) error
	OnForage           func(ForageResult) error
	OnTransition       func(TransitionResult) error
	OnClearCobweb      func(CobwebResult) error
}

// PlacedItem is a decoration or item the player put on the map.
type PlacedItem struct {
	ID      string     `json:"id" yaml:"id"`
	ItemID  string     `json:"item_id" yaml:"item_id"`
	MapID   string     `json:"map_id" yaml:"map_id"`
	Tile    world.Tile `json:"tile" yaml:"tile"`
	Label   string     `json:"label,omitempty" yaml:"label,omitempty"`
	Actions []string   `json:"actions,omitempty" yaml:"actions,omitempty"` // extra verbs besides pickup
}

// PlotState is the growth stage of a farm plot.
type PlotState string

const (
	PlotUntilled PlotState = "untilled"
	PlotTilled   PlotState = "tilled"
	PlotPlanted  PlotState = "planted"
	PlotReady    PlotState = "ready"
)

// Plot is a farm plot's state as reported by the farm simulation.
type Plot struct {
	State   PlotState
	CropID  string
	Watered bool
}

// Forageable is something that can be picked from a tile once a day.
type Forageable struct {
	ID     string     `json:"id" yaml:"id"`
	ItemID string     `json:"item_id" yaml:"item_id"`
	MapID  string     `json:"map_id" yaml:"map_id"`
	Tile   world.Tile `json:"tile" yaml:"tile"`
	Label  string     `json:"label,omitempty" yaml:"label,omitempty"`
}

// Transition moves the player to another map.
type Transition struct {
	ID         string         `json:"id" yaml:"id"`
	MapID      string         `json:"map_id" yaml:"map_id"`
	Tile       world.Tile     `json:"tile" yaml:"tile"`
	ToMap      string         `json:"to_map" yaml:"to_map"`
	ToPosition world.Position `json:"to_position" yaml:"to_position"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`

	conditionals.Predicates `yaml:",inline"`
}

// Cobweb is a quest overlay object the player can clear while the quest is
// between MinStage and MaxStage.
type Cobweb struct {
	ID       string     `json:"id" yaml:"id"`
	MapID    string     `json:"map_id" yaml:"map_id"`
	Tile     world.Tile `json:"tile" yaml:"tile"`
	QuestID  string     `json:"quest_id" yaml:"quest_id"`
	MinStage int        `json:"min_stage" yaml:"min_stage"`
	MaxStage int        `json:"max_stage,omitempty" yaml:"max_stage,omitempty"` // 0 means no upper bound
}

// Open reports whether the cobweb can be cleared at quest stage.
func (c Cobweb) Open(stage int) bool {
	if stage < max(c.MinStage, 1) {
		return false
	}
	return c.MaxStage == 0 || stage <= c.MaxStage
}

// Title turns a snake_case id into a display label.
func Title(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

func labelOr(label, id string) string {
	if label != "" {
		return label
	}
	return Title(id)
}
