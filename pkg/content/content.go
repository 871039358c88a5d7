// Package content loads village content (NPCs with their state machines and
// dialogue, plus the static map tables) from YAML.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/actor"
	"github.com/jwebster45206/hearth-engine/pkg/interaction"
	"github.com/jwebster45206/hearth-engine/pkg/world"
	"gopkg.in/yaml.v3"
)

var ErrInvalidContent = errors.New("invalid content")

// Archetype selects the NPC factory.
type Archetype string

const (
	ArchetypeStatic    Archetype = "static"
	ArchetypeWandering Archetype = "wandering"
)

// NPCSpec is one NPC entry: an archetype plus the factory config.
type NPCSpec struct {
	Archetype Archetype `json:"archetype" yaml:"archetype"`

	actor.Config `yaml:",inline"`
}

// WaterArea lists water tiles on one map.
type WaterArea struct {
	MapID string       `json:"map_id" yaml:"map_id"`
	Tiles []world.Tile `json:"tiles" yaml:"tiles"`
}

// PlotSpec is a farm plot's starting state.
type PlotSpec struct {
	MapID   string                `json:"map_id" yaml:"map_id"`
	Tile    world.Tile            `json:"tile" yaml:"tile"`
	State   interaction.PlotState `json:"state,omitempty" yaml:"state,omitempty"`
	CropID  string                `json:"crop_id,omitempty" yaml:"crop_id,omitempty"`
	Watered bool                  `json:"watered,omitempty" yaml:"watered,omitempty"`
}

// Bundle is everything one content file describes.
type Bundle struct {
	Name        string                   `json:"name" yaml:"name"`
	StartMap    string                   `json:"start_map" yaml:"start_map"`
	StartAt     world.Position           `json:"start_at" yaml:"start_at"`
	NPCs        []NPCSpec                `json:"npcs" yaml:"npcs"`
	Transitions []interaction.Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Forageables []interaction.Forageable `json:"forageables,omitempty" yaml:"forageables,omitempty"`
	Water       []WaterArea              `json:"water,omitempty" yaml:"water,omitempty"`
	PlacedItems []interaction.PlacedItem `json:"placed_items,omitempty" yaml:"placed_items,omitempty"`
	Cobwebs     []interaction.Cobweb     `json:"cobwebs,omitempty" yaml:"cobwebs,omitempty"`
	Plots       []PlotSpec               `json:"plots,omitempty" yaml:"plots,omitempty"`

	FileName string `json:"-" yaml:"-"`
}

// Load reads and parses a content file.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	b.FileName = filepath.Base(path)
	return b, nil
}

// Parse decodes a content document. Unknown fields are rejected.
func Parse(data []byte) (*Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidContent)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	return &b, nil
}

// BuildNPC runs the factory for spec's archetype. An empty archetype is
// static.
func BuildNPC(spec NPCSpec, now time.Time) (*actor.NPC, error) {
	switch spec.Archetype {
	case "", ArchetypeStatic:
		return actor.CreateStaticNPC(spec.Config, now)
	case ArchetypeWandering:
		return actor.CreateWanderingNPC(spec.Config, now)
	default:
		return nil, fmt.Errorf("%w: %s: unknown archetype %q", ErrInvalidContent, spec.ID, spec.Archetype)
	}
}

// BuildDirectory constructs every NPC in the bundle. All construction errors
// are reported together.
func (b *Bundle) BuildDirectory(now time.Time) (*actor.Directory, error) {
	dir := actor.NewDirectory()
	var errs []error
	for _, spec := range b.NPCs {
		npc, err := BuildNPC(spec, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := dir.Add(npc); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return dir, nil
}

// StartingPoints returns the friendship seed for every befriendable NPC.
func (b *Bundle) StartingPoints() map[string]int {
	seeds := make(map[string]int)
	for _, spec := range b.NPCs {
		if f := spec.Friendship; f != nil && f.CanBefriend && f.StartingPoints > 0 {
			seeds[spec.ID] = f.StartingPoints
		}
	}
	return seeds
}

// Collaborators wires the bundle's static tables, the NPC directory and the
// collection tracker into the aggregator's collaborator set.
func (b *Bundle) Collaborators(npcs *actor.Directory, farm *FarmTable, collections interaction.Collections) interaction.Collaborators {
	c := interaction.Collaborators{
		PlacedItems: NewPlacedItemTable(b.PlacedItems),
		Forage:      NewForageTable(b.Forageables),
		Water:       NewWaterTiles(b.Water),
		Transitions: NewTransitionTable(b.Transitions),
		Cobwebs:     NewCobwebTable(b.Cobwebs),
		Collections: collections,
	}
	if npcs != nil {
		c.NPCs = npcs
	}
	if farm != nil {
		c.Farm = farm
	}
	return c
}
