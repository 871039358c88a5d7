package behavior

import (
	"fmt"
	"math"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// NoPlayer is the distance to pass to Update when the player is not on the
// NPC's map.
var NoPlayer = math.Inf(1)

// Machine is the mutable cursor over a Definition. The current state is
// always a key of the definition's States.
type Machine struct {
	def    Definition
	facing world.Direction

	current         string
	frame           int
	lastStateChange time.Time
	lastFrameChange time.Time

	// proximity bookkeeping
	previous        string
	trigger         *ProximityTrigger
	recovering      bool
	recoveryStarted time.Time
}

// NewMachine validates def and starts the machine in initial at now.
func NewMachine(def Definition, initial string, now time.Time) (*Machine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if !def.Has(initial) {
		return nil, fmt.Errorf("%w: initial state %q", ErrUnknownState, initial)
	}
	return &Machine{
		def:             def,
		facing:          world.DirectionDown,
		current:         initial,
		lastStateChange: now,
		lastFrameChange: now,
	}, nil
}

// CurrentState returns the active state name.
func (m *Machine) CurrentState() string { return m.current }

// CurrentFrame returns the index into the active sprite list.
func (m *Machine) CurrentFrame() int { return m.frame }

// PreviousState returns the state that was active when the last proximity
// trigger fired, or "".
func (m *Machine) PreviousState() string { return m.previous }

// Facing returns the direction used to pick directional sprites.
func (m *Machine) Facing() world.Direction { return m.facing }

// SetFacing changes the facing. The frame index is clamped to the new sprite list.
func (m *Machine) SetFacing(dir world.Direction) {
	if !dir.Valid() || dir == m.facing {
		return
	}
	m.facing = dir
	if n := len(m.sprites()); n > 0 {
		m.frame %= n
	}
}

// Sprite returns the sprite for the current state, facing and frame.
func (m *Machine) Sprite() string {
	sprites := m.sprites()
	if len(sprites) == 0 {
		return ""
	}
	return sprites[m.frame%len(sprites)]
}

// RecoveryPending reports whether a proximity recovery timer is running.
func (m *Machine) RecoveryPending() bool { return m.recovering }

// Triggered reports whether the machine is in a proximity trigger state.
func (m *Machine) Triggered() bool { return m.trigger != nil }

// Update advances the machine to now. playerDistance is the distance from
// the NPC to the player; pass NoPlayer when there is none. It reports whether
// the state changed.
func (m *Machine) Update(now time.Time, playerDistance float64) bool {
	changed := m.updateProximity(now, playerDistance)
	if !changed {
		changed = m.updateDuration(now)
	}
	m.advanceFrame(now)
	return changed
}

// Fire applies the event transition declared by the current state. It
// reports whether a transition happened.
func (m *Machine) Fire(event string, now time.Time) bool {
	target, ok := m.def.States[m.current].Transitions[event]
	if !ok {
		return false
	}
	m.enter(target, now)
	m.clearTrigger()
	return true
}

func (m *Machine) updateProximity(now time.Time, dist float64) bool {
	if pt := m.def.States[m.current].ProximityTrigger; pt != nil && dist <= pt.Radius {
		if pt.TriggerState == m.current {
			return false
		}
		from := m.current
		m.enter(pt.TriggerState, now)
		m.previous = from
		m.trigger = pt
		m.recovering = false
		return true
	}

	if m.trigger == nil || m.current != m.trigger.TriggerState {
		return false
	}

	if dist < m.trigger.EffectiveRecoveryRadius() {
		m.recovering = false
		return false
	}
	if !m.recovering {
		m.recovering = true
		m.recoveryStarted = now
	}
	if now.Sub(m.recoveryStarted) < m.trigger.RecoveryDelay {
		return false
	}

	target := m.trigger.RecoveryState
	if target == "" {
		target = m.previous
	}
	m.enter(target, now)
	m.clearTrigger()
	return true
}

func (m *Machine) updateDuration(now time.Time) bool {
	st := m.def.States[m.current]
	if st.Duration <= 0 || st.NextState == "" {
		return false
	}
	if now.Sub(m.lastStateChange) < st.Duration {
		return false
	}
	m.enter(st.NextState, now)
	m.clearTrigger()
	return true
}

func (m *Machine) advanceFrame(now time.Time) {
	sprites := m.sprites()
	speed := m.def.States[m.current].AnimationSpeed
	if len(sprites) <= 1 || speed <= 0 {
		return
	}
	if now.Sub(m.lastFrameChange) >= speed {
		m.frame = (m.frame + 1) % len(sprites)
		m.lastFrameChange = now
	}
}

func (m *Machine) enter(state string, now time.Time) {
	if !m.def.Has(state) {
		// Validate rejects dangling references, so this only guards the invariant.
		return
	}
	m.current = state
	m.frame = 0
	m.lastStateChange = now
	m.lastFrameChange = now
}

func (m *Machine) clearTrigger() {
	m.trigger = nil
	m.recovering = false
}

func (m *Machine) sprites() []string {
	st := m.def.States[m.current]
	if dir, ok := st.DirectionalSprites[m.facing]; ok && len(dir) > 0 {
		return dir
	}
	return st.Sprites
}
