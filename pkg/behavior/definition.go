// Package behavior implements the per-NPC animated state machine: timed
// auto-transitions, event transitions, proximity reactions and sprite frame
// cycling.
package behavior

import (
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/conditionals"
	"github.com/jwebster45206/hearth-engine/pkg/world"
)

// DefaultRecoveryMargin is added to a trigger radius when no recovery radius
// is configured.
const DefaultRecoveryMargin = 1.5

var (
	ErrUnknownState = errors.New("unknown state")
	ErrInvalidState = errors.New("invalid state definition")
)

// ProximityTrigger moves the NPC into TriggerState when the player comes
// within Radius, and back out once the player is past RecoveryRadius for
// RecoveryDelay.
type ProximityTrigger struct {
	Radius         float64       `json:"radius" yaml:"radius"`
	TriggerState   string        `json:"trigger_state" yaml:"trigger_state"`
	RecoveryRadius float64       `json:"recovery_radius,omitempty" yaml:"recovery_radius,omitempty"` // default Radius+1.5
	RecoveryDelay  time.Duration `json:"recovery_delay,omitempty" yaml:"recovery_delay,omitempty"`
	RecoveryState  string        `json:"recovery_state,omitempty" yaml:"recovery_state,omitempty"`   // default: state before the trigger
}

// EffectiveRecoveryRadius returns the configured recovery radius or the default.
func (p ProximityTrigger) EffectiveRecoveryRadius() float64 {
	if p.RecoveryRadius > 0 {
		return p.RecoveryRadius
	}
	return p.Radius + DefaultRecoveryMargin
}

// StateDef describes one animation state.
type StateDef struct {
	Sprites            []string                     `json:"sprites" yaml:"sprites"`
	AnimationSpeed     time.Duration                `json:"animation_speed,omitempty" yaml:"animation_speed,omitempty"`
	Duration           time.Duration                `json:"duration,omitempty" yaml:"duration,omitempty"`
	NextState          string                       `json:"next_state,omitempty" yaml:"next_state,omitempty"`
	Transitions        map[string]string            `json:"transitions,omitempty" yaml:"transitions,omitempty"`                 // event -> state
	DirectionalSprites map[world.Direction][]string `json:"directional_sprites,omitempty" yaml:"directional_sprites,omitempty"`
	ProximityTrigger   *ProximityTrigger            `json:"proximity_trigger,omitempty" yaml:"proximity_trigger,omitempty"`
}

// Definition is the full set of states for one NPC. In YAML the states sit
// directly under the key that holds the definition.
type Definition struct {
	States map[string]StateDef `json:"states" yaml:",inline"`
}

// Has reports whether name is a declared state.
func (d Definition) Has(name string) bool {
	_, ok := d.States[name]
	return ok
}

// Validate checks that every state reference points at a declared state and
// that timings are usable. All problems are joined into one error.
func (d Definition) Validate() error {
	if len(d.States) == 0 {
		return fmt.Errorf("%w: no states declared", ErrInvalidState)
	}

	var errs []error
	ref := func(from, field, target string) {
		if target != "" && !d.Has(target) {
			errs = append(errs, fmt.Errorf("%w: state %q %s references %q", ErrUnknownState, from, field, target))
		}
	}

	for _, name := range conditionals.SortedKeys(d.States) {
		st := d.States[name]
		if len(st.Sprites) == 0 {
			errs = append(errs, fmt.Errorf("%w: state %q has no sprites", ErrInvalidState, name))
		}
		if len(st.Sprites) > 1 && st.AnimationSpeed <= 0 {
			errs = append(errs, fmt.Errorf("%w: state %q animates %d sprites without an animation speed", ErrInvalidState, name, len(st.Sprites)))
		}
		if st.Duration < 0 {
			errs = append(errs, fmt.Errorf("%w: state %q has a negative duration", ErrInvalidState, name))
		}
		if st.Duration > 0 && st.NextState == "" {
			errs = append(errs, fmt.Errorf("%w: state %q has a duration but no next state", ErrInvalidState, name))
		}
		ref(name, "next_state", st.NextState)

		for _, event := range conditionals.SortedKeys(st.Transitions) {
			ref(name, "transition "+event, st.Transitions[event])
		}
		for dir, sprites := range st.DirectionalSprites {
			if !dir.Valid() {
				errs = append(errs, fmt.Errorf("%w: state %q has sprites for unknown direction %q", ErrInvalidState, name, dir))
			}
			if len(sprites) == 0 {
				errs = append(errs, fmt.Errorf("%w: state %q has an empty %s sprite list", ErrInvalidState, name, dir))
			}
		}

		if pt := st.ProximityTrigger; pt != nil {
			if pt.Radius <= 0 {
				errs = append(errs, fmt.Errorf("%w: state %q proximity trigger needs a positive radius", ErrInvalidState, name))
			}
			if pt.TriggerState == "" {
				errs = append(errs, fmt.Errorf("%w: state %q proximity trigger has no trigger state", ErrInvalidState, name))
			}
			if pt.RecoveryRadius > 0 && pt.RecoveryRadius < pt.Radius {
				errs = append(errs, fmt.Errorf("%w: state %q recovery radius is inside the trigger radius", ErrInvalidState, name))
			}
			ref(name, "trigger_state", pt.TriggerState)
			ref(name, "recovery_state", pt.RecoveryState)
		}
	}
	return errors.Join(errs...)
}
