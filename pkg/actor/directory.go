package actor

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/behavior"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// Directory holds the NPCs loaded for a save. It is owned by the game loop
// and passed to whatever needs NPC lookups.
type Directory struct {
	npcs map[string]*NPC
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{npcs: make(map[string]*NPC)}
}

// Add registers n. IDs must be unique.
func (d *Directory) Add(n *NPC) error {
	if _, ok := d.npcs[n.ID]; ok {
		return fmt.Errorf("%w: duplicate npc id %q", ErrInvalidConfig, n.ID)
	}
	d.npcs[n.ID] = n
	return nil
}

// Get returns the NPC with id, if any.
func (d *Directory) Get(id string) (*NPC, bool) {
	n, ok := d.npcs[id]
	return n, ok
}

// Len returns the number of NPCs.
func (d *Directory) Len() int { return len(d.npcs) }

// All returns every NPC ordered by id.
func (d *Directory) All() []*NPC {
	return d.filter(func(*NPC) bool { return true })
}

// OnMap returns the NPCs on mapID ordered by id.
func (d *Directory) OnMap(mapID string) []*NPC {
	return d.filter(func(n *NPC) bool { return n.MapID == mapID })
}

func (d *Directory) filter(keep func(*NPC) bool) []*NPC {
	var out []*NPC
	for _, n := range d.npcs {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b *NPC) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// InRange returns the NPCs on mapID whose interaction radius contains p,
// ordered by id.
func (d *Directory) InRange(mapID string, p world.Position) []*NPC {
	var out []*NPC
	for _, n := range d.OnMap(mapID) {
		if n.InInteractionRange(p) {
			out = append(out, n)
		}
	}
	return out
}

// NearestInRange returns the closest NPC whose interaction radius contains p.
// Equal distances resolve by id.
func (d *Directory) NearestInRange(mapID string, p world.Position) (*NPC, bool) {
	var best *NPC
	bestDist := math.Inf(1)
	for _, n := range d.InRange(mapID, p) {
		if dist := n.position.Distance(p); dist < bestDist {
			best, bestDist = n, dist
		}
	}
	return best, best != nil
}

// Update advances every NPC on mapID to now: movement first, then the state
// machine with the player's distance. NPCs turn to face the player when a
// proximity trigger fires. NPCs on other maps see no player.
func (d *Directory) Update(now time.Time, mapID string, player world.Position) {
	for _, n := range d.npcs {
		dist := behavior.NoPlayer
		if n.MapID == mapID {
			dist = n.position.Distance(player)
		}
		n.update(now, dist, player)
	}
}

func (n *NPC) update(now time.Time, dist float64, player world.Position) {
	dt := now.Sub(n.lastUpdate)
	if dt < 0 {
		return
	}
	n.lastUpdate = now

	if n.moving() {
		n.move(dt)
	}
	if n.machine == nil {
		return
	}
	if n.machine.Update(now, dist) && n.machine.Triggered() {
		n.Face(world.FacingToward(n.position, player))
	}
}

func (n *NPC) moving() bool {
	if n.Behavior == BehaviorStatic || n.Wander == nil {
		return false
	}
	if n.machine != nil && n.machine.Triggered() {
		return false
	}
	if len(n.Wander.MovingStates) == 0 || n.machine == nil {
		return true
	}
	return slices.Contains(n.Wander.MovingStates, n.machine.CurrentState())
}

// route returns the points the NPC walks between. Wanderers walk a square of
// side 2*Radius around their home; patrols follow their waypoints.
func (n *NPC) route() []world.Position {
	if n.Behavior == BehaviorPatrol {
		return n.Wander.Waypoints
	}
	r := n.Wander.Radius
	h := n.home
	return []world.Position{
		{X: h.X + r, Y: h.Y},
		{X: h.X + r, Y: h.Y + r},
		{X: h.X - r, Y: h.Y + r},
		{X: h.X - r, Y: h.Y - r},
		{X: h.X + r, Y: h.Y - r},
	}
}

func (n *NPC) move(dt time.Duration) {
	route := n.route()
	if len(route) == 0 {
		return
	}
	step := n.Wander.Speed * dt.Seconds()
	idle := 0
	for step > 0 && idle < len(route) {
		target := route[n.waypoint%len(route)]
		remaining := n.position.Distance(target)
		if remaining == 0 {
			n.waypoint = (n.waypoint + 1) % len(route)
			idle++
			continue
		}
		idle = 0
		n.Face(world.FacingToward(n.position, target))
		if step < remaining {
			f := step / remaining
			n.position.X += (target.X - n.position.X) * f
			n.position.Y += (target.Y - n.position.Y) * f
			return
		}
		n.position = target
		step -= remaining
		n.waypoint = (n.waypoint + 1) % len(route)
	}
}
