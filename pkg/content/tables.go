package content

import (
	"github.com/jwebster45206/hearth-engine/pkg/interaction"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

type tileKey struct {
	mapID string
	tile  world.Tile
}

// TransitionTable looks up map transitions by tile. Later entries on the same
// tile replace earlier ones.
type TransitionTable struct {
	byTile map[tileKey]interaction.Transition
}

func NewTransitionTable(list []interaction.Transition) *TransitionTable {
	t := &TransitionTable{byTile: make(map[tileKey]interaction.Transition, len(list))}
	for _, tr := range list {
		t.byTile[tileKey{tr.MapID, tr.Tile}] = tr
	}
	return t
}

func (t *TransitionTable) TransitionAt(mapID string, tile world.Tile) (interaction.Transition, bool) {
	tr, ok := t.byTile[tileKey{mapID, tile}]
	return tr, ok
}

// ForageTable looks up forageables by tile.
type ForageTable struct {
	byTile map[tileKey]interaction.Forageable
}

func NewForageTable(list []interaction.Forageable) *ForageTable {
	t := &ForageTable{byTile: make(map[tileKey]interaction.Forageable, len(list))}
	for _, f := range list {
		t.byTile[tileKey{f.MapID, f.Tile}] = f
	}
	return t
}

func (t *ForageTable) ForageableAt(mapID string, tile world.Tile) (interaction.Forageable, bool) {
	f, ok := t.byTile[tileKey{mapID, tile}]
	return f, ok
}

// WaterTiles is the set of water tiles across maps.
type WaterTiles struct {
	set map[tileKey]struct{}
}

func NewWaterTiles(areas []WaterArea) *WaterTiles {
	w := &WaterTiles{set: make(map[tileKey]struct{})}
	for _, a := range areas {
		for _, tile := range a.Tiles {
			w.set[tileKey{a.MapID, tile}] = struct{}{}
		}
	}
	return w
}

func (w *WaterTiles) IsWater(mapID string, tile world.Tile) bool {
	_, ok := w.set[tileKey{mapID, tile}]
	return ok
}

// PlacedItemTable holds placed items. Several items may share a tile; they
// are returned in placement order.
type PlacedItemTable struct {
	byTile map[tileKey][]interaction.PlacedItem
}

func NewPlacedItemTable(list []interaction.PlacedItem) *PlacedItemTable {
	t := &PlacedItemTable{byTile: make(map[tileKey][]interaction.PlacedItem)}
	for _, it := range list {
		t.Place(it)
	}
	return t
}

// Place adds an item to its tile.
func (t *PlacedItemTable) Place(it interaction.PlacedItem) {
	k := tileKey{it.MapID, it.Tile}
	t.byTile[k] = append(t.byTile[k], it)
}

// Remove deletes the placed item with id. It reports whether one was found.
func (t *PlacedItemTable) Remove(id string) bool {
	for k, items := range t.byTile {
		for i, it := range items {
			if it.ID != id {
				continue
			}
			items = append(items[:i:i], items[i+1:]...)
			if len(items) == 0 {
				delete(t.byTile, k)
			} else {
				t.byTile[k] = items
			}
			return true
		}
	}
	return false
}

func (t *PlacedItemTable) ItemsAt(mapID string, tile world.Tile) []interaction.PlacedItem {
	return t.byTile[tileKey{mapID, tile}]
}

// CobwebTable holds quest cobwebs until they are cleared.
type CobwebTable struct {
	byTile map[tileKey]interaction.Cobweb
}

func NewCobwebTable(list []interaction.Cobweb) *CobwebTable {
	t := &CobwebTable{byTile: make(map[tileKey]interaction.Cobweb, len(list))}
	for _, c := range list {
		t.byTile[tileKey{c.MapID, c.Tile}] = c
	}
	return t
}

func (t *CobwebTable) CobwebAt(mapID string, tile world.Tile) (interaction.Cobweb, bool) {
	c, ok := t.byTile[tileKey{mapID, tile}]
	return c, ok
}

// Clear removes the cobweb on a tile.
func (t *CobwebTable) Clear(mapID string, tile world.Tile) {
	delete(t.byTile, tileKey{mapID, tile})
}

// FarmTable is a minimal farm simulation: plots move untilled, tilled,
// planted, ready. Growth is driven by the host calling Grow.
type FarmTable struct {
	plots map[tileKey]interaction.Plot
}

func NewFarmTable(specs []PlotSpec) *FarmTable {
	f := &FarmTable{plots: make(map[tileKey]interaction.Plot, len(specs))}
	for _, s := range specs {
		state := s.State
		if state == "" {
			state = interaction.PlotUntilled
		}
		f.plots[tileKey{s.MapID, s.Tile}] = interaction.Plot{State: state, CropID: s.CropID, Watered: s.Watered}
	}
	return f
}

func (f *FarmTable) PlotAt(mapID string, tile world.Tile) (interaction.Plot, bool) {
	p, ok := f.plots[tileKey{mapID, tile}]
	return p, ok
}

// Apply records the outcome of a farm interaction on its plot. Results for
// tiles without a plot are ignored.
func (f *FarmTable) Apply(r interaction.FarmResult) {
	k := tileKey{r.MapID, r.Tile}
	p, ok := f.plots[k]
	if !ok {
		return
	}
	switch r.Action {
	case interaction.TypeTill:
		p = interaction.Plot{State: interaction.PlotTilled}
	case interaction.TypePlant:
		p = interaction.Plot{State: interaction.PlotPlanted, CropID: r.CropID}
	case interaction.TypeWaterCrop:
		p.Watered = true
	case interaction.TypeHarvest:
		p = interaction.Plot{State: interaction.PlotTilled}
	}
	f.plots[k] = p
}

// Grow advances every watered planted plot to ready and dries the rest.
func (f *FarmTable) Grow() {
	for k, p := range f.plots {
		if p.State == interaction.PlotPlanted && p.Watered {
			p.State = interaction.PlotReady
		}
		p.Watered = false
		f.plots[k] = p
	}
}
