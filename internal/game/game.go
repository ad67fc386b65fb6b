package game

import "time"

// Version of the game.
// Bumping this number will eventually make clients reload the WASM.
//
// If you set this to an empty string, a random version number will be
// used, and force the reload of the WASM on every restart (the reload
// still only happens after the first page is loaded, so there is a delay).
// This is useful during development.
var Version = "v0.2.0"

// Rules holds the tunable numbers of a game session.
type Rules struct {
	LevelDuration       time.Duration // Time available for each level.
	WrongClickPenalty   time.Duration // Time lost on a click that hits nothing.
	TimeBoost           time.Duration // Time added by a time powerup, capped at LevelDuration.
	CompleteDelay       time.Duration // Pause on the "level complete" screen before advancing.
	WarnAt              time.Duration // Time left at which the client is warned (beeps).
	PointsPerDifference int
	StartingPowerups    Powerups
}

// DefaultRules returns the standard rules: one minute per level.
func DefaultRules() Rules {
	return Rules{
		LevelDuration:       60 * time.Second,
		WrongClickPenalty:   5 * time.Second,
		TimeBoost:           15 * time.Second,
		CompleteDelay:       2 * time.Second,
		WarnAt:              5 * time.Second,
		PointsPerDifference: 10,
		StartingPowerups:    Powerups{Time: 3, Hints: 2, Skips: 1},
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
