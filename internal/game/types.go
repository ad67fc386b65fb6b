package game

import (
	"fmt"
	"strings"
)

// Powerups counts the consumable helpers a player owns.
type Powerups struct {
	Time  int `json:"time"`  // Adds time to the clock.
	Hints int `json:"hints"` // Reveals one difference.
	Skips int `json:"skips"` // Skips the level.
}

// Add returns the sum of both counts.
func (p Powerups) Add(other Powerups) Powerups {
	return Powerups{
		Time:  p.Time + other.Time,
		Hints: p.Hints + other.Hints,
		Skips: p.Skips + other.Skips,
	}
}

// IsZero reports whether there is nothing in p.
func (p Powerups) IsZero() bool {
	return p == Powerups{}
}

func (p Powerups) String() string {
	return fmt.Sprintf("time=%d hints=%d skips=%d", p.Time, p.Hints, p.Skips)
}

// PowerupKind names one of the powerups.
type PowerupKind string

const (
	PowerupTime PowerupKind = "time"
	PowerupHint PowerupKind = "hint"
	PowerupSkip PowerupKind = "skip"
)

// Status of the current level attempt.
type Status string

const (
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed" // All differences found, waiting to advance.
	StatusFailed    Status = "failed"    // Time ran out.
	StatusFinished  Status = "finished"  // Last level completed.
)

// LevelScore is the score breakdown of a finished level.
type LevelScore struct {
	Differences int `json:"differences"` // Points for the differences found.
	TimeBonus   int `json:"time_bonus"`  // One point per second left.
	Total       int `json:"total"`
}

// FoundRegion is a region already matched, sent to the client so it can draw it.
type FoundRegion struct {
	Index  int    `json:"index"`
	Region Region `json:"region"`
}

// SessionState is the client's view of a session.
type SessionState struct {
	ID             string        `json:"id"`
	Level          int           `json:"level"` // Zero based.
	LevelCount     int           `json:"level_count"`
	ImageLeft      string        `json:"image_left"`
	ImageRight     string        `json:"image_right"`
	Found          []FoundRegion `json:"found"`
	TimeLeft       int           `json:"time_left"` // Seconds.
	LevelDuration  int           `json:"level_duration"`
	Status         Status        `json:"status"`
	Paused         bool          `json:"paused"`
	TotalScore     int           `json:"total_score"`
	LevelScore     int           `json:"level_score"` // Score the level would be worth now.
	LastLevelScore LevelScore    `json:"last_level_score"`
	Powerups       Powerups      `json:"powerups"`
}

func (s SessionState) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s: level=%d/%d, status=%s, paused=%t, timeLeft=%d, score=%d, powerups=(%s), found: ",
		s.ID, s.Level+1, s.LevelCount, s.Status, s.Paused, s.TimeLeft, s.TotalScore, s.Powerups)
	for _, f := range s.Found {
		fmt.Fprintf(&sb, "%d, ", f.Index)
	}
	return sb.String()
}
