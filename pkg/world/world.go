package world

import "math"

// Season is the in-game season.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// TimeOfDay is the coarse day/night phase.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeNight TimeOfDay = "night"
)

// Valid reports whether s is one of the four seasons.
func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter:
		return true
	}
	return false
}

func (t TimeOfDay) Valid() bool { return t == TimeDay || t == TimeNight }

// Weather is the current weather condition.
type Weather string

const (
	WeatherClear          Weather = "clear"
	WeatherRain           Weather = "rain"
	WeatherSnow           Weather = "snow"
	WeatherFog            Weather = "fog"
	WeatherMist           Weather = "mist"
	WeatherStorm          Weather = "storm"
	WeatherCherryBlossoms Weather = "cherry_blossoms"
)

// Valid reports whether w is a known weather condition.
func (w Weather) Valid() bool {
	switch w {
	case WeatherClear, WeatherRain, WeatherSnow, WeatherFog, WeatherMist, WeatherStorm, WeatherCherryBlossoms:
		return true
	}
	return false
}

// Direction is the facing of an actor.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether d is one of the four facings.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// Position is a point in world tile space. Tiles are unit squares, so a tile
// centre has .5 fractions only if the host chooses to place actors that way.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Tile returns the integer tile containing p.
func (p Position) Tile() Tile {
	return Tile{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y))}
}

// Tile is an integer tile coordinate on a map.
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Position returns the tile's origin as a Position.
func (t Tile) Position() Position {
	return Position{X: float64(t.X), Y: float64(t.Y)}
}

// FacingToward returns the direction that points from p toward q along the
// dominant axis. Ties favour the vertical axis.
func FacingToward(p, q Position) Direction {
	dx := q.X - p.X
	dy := q.Y - p.Y
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return DirectionRight
		}
		return DirectionLeft
	}
	if dy < 0 {
		return DirectionUp
	}
	return DirectionDown
}
