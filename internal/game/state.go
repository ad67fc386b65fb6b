package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPlaying is returned for actions that need a running, unpaused level.
	ErrNotPlaying = errors.New("level is not being played")

	// ErrNoPowerup is returned when the player has none of the requested powerup left.
	ErrNoPowerup = errors.New("no powerup left")

	// ErrNotCompleted is returned by Advance when the level is not complete.
	ErrNotCompleted = errors.New("level is not completed")
)

// Session is one player's run through the levels.
//
// It is not safe for concurrent use: the owner (one connection) serializes the calls.
type Session struct {
	ID string

	rules  Rules
	levels []Level

	level      int
	found      FoundSet
	timeLeft   int // Seconds.
	status     Status
	paused     bool
	totalScore int
	lastScore  LevelScore
	powerups   Powerups
}

// NewSession starts a session at the first level with a full clock.
func NewSession(id string, levels []Level, rules Rules, powerups Powerups) *Session {
	s := &Session{
		ID:       id,
		rules:    rules,
		levels:   levels,
		powerups: powerups,
	}
	s.resetLevel()
	return s
}

func (s *Session) resetLevel() {
	s.found = make(FoundSet, DifferencesPerLevel)
	s.timeLeft = seconds(s.rules.LevelDuration)
	s.status = StatusPlaying
}

// Level returns the level currently played.
func (s *Session) Level() Level {
	return s.levels[s.level]
}

// LevelIndex returns the zero based index of the current level.
func (s *Session) LevelIndex() int {
	return s.level
}

// Status of the current level.
func (s *Session) Status() Status {
	return s.status
}

// TimeLeft in seconds.
func (s *Session) TimeLeft() int {
	return s.timeLeft
}

// Found returns a copy of the found-set.
func (s *Session) Found() FoundSet {
	return s.found.Clone()
}

// Powerups returns the powerups owned.
func (s *Session) Powerups() Powerups {
	return s.powerups
}

// TotalScore accumulated over the completed or skipped levels.
func (s *Session) TotalScore() int {
	return s.totalScore
}

// Paused reports whether the clock is paused.
func (s *Session) Paused() bool {
	return s.paused
}

func (s *Session) active() bool {
	return s.status == StatusPlaying && !s.paused
}

// TickOutcome reports what a Tick changed.
type TickOutcome struct {
	Changed bool // Clock moved (or the level failed).
	Warn    bool // Clock just reached the warning mark.
	Failed  bool // Time ran out.
}

// Tick accounts for one second of play.
func (s *Session) Tick() TickOutcome {
	if !s.active() {
		return TickOutcome{}
	}
	if s.timeLeft <= 1 {
		s.timeLeft = 0
		s.status = StatusFailed
		return TickOutcome{Changed: true, Failed: true}
	}
	s.timeLeft--
	return TickOutcome{Changed: true, Warn: s.timeLeft == seconds(s.rules.WarnAt)}
}

// ClickOutcome is the result of a click on the altered image.
type ClickOutcome struct {
	ClickResult
	Base      Point // Click position in base space.
	Ignored   bool  // The level was not being played.
	Completed bool  // The click found the last difference.
	Failed    bool  // The wrong click penalty used up the clock.
}

// Click handles a click at p, given in display space, for an image rendered with transform t.
// Every unfound region hit is marked found; a click hitting nothing costs time.
func (s *Session) Click(p Point, t Transform) ClickOutcome {
	if !s.active() {
		return ClickOutcome{Ignored: true}
	}
	base := t.ToBase(p)
	out := ClickOutcome{
		ClickResult: ResolveClick(base, s.Level().Differences, s.found),
		Base:        base,
	}
	for _, i := range out.Matched {
		s.found.Add(i)
	}
	if out.Wrong() {
		s.timeLeft = max(0, s.timeLeft-seconds(s.rules.WrongClickPenalty))
		if s.timeLeft == 0 {
			s.status = StatusFailed
			out.Failed = true
		}
	}
	out.Completed = s.checkCompleted()
	return out
}

func (s *Session) checkCompleted() bool {
	if s.status == StatusPlaying && s.found.Len() >= DifferencesPerLevel {
		s.status = StatusCompleted
		return true
	}
	return false
}

// Use consumes one powerup of the given kind.
func (s *Session) Use(kind PowerupKind) error {
	switch kind {
	case PowerupTime:
		return s.AddTime()
	case PowerupHint:
		_, err := s.Hint()
		return err
	case PowerupSkip:
		return s.Skip()
	}
	return fmt.Errorf("unknown powerup %q", kind)
}

// AddTime adds the time boost to the clock, capped at the level duration.
func (s *Session) AddTime() error {
	if !s.active() {
		return ErrNotPlaying
	}
	if s.powerups.Time <= 0 {
		return fmt.Errorf("%w: %s", ErrNoPowerup, PowerupTime)
	}
	s.timeLeft = min(s.timeLeft+seconds(s.rules.TimeBoost), seconds(s.rules.LevelDuration))
	s.powerups.Time--
	return nil
}

// Hint marks the first unfound difference as found and returns its index.
func (s *Session) Hint() (int, error) {
	if !s.active() {
		return -1, ErrNotPlaying
	}
	if s.powerups.Hints <= 0 {
		return -1, fmt.Errorf("%w: %s", ErrNoPowerup, PowerupHint)
	}
	for i := range s.Level().Differences {
		if s.found.Has(i) {
			continue
		}
		s.found.Add(i)
		s.powerups.Hints--
		s.checkCompleted()
		return i, nil
	}
	return -1, ErrNotPlaying
}

// Skip moves to the next level, scoring the current one as it stands.
func (s *Session) Skip() error {
	if !s.active() {
		return ErrNotPlaying
	}
	if s.powerups.Skips <= 0 {
		return fmt.Errorf("%w: %s", ErrNoPowerup, PowerupSkip)
	}
	s.powerups.Skips--
	s.nextLevel()
	return nil
}

// Advance moves on from a completed level.
func (s *Session) Advance() error {
	if s.status != StatusCompleted {
		return ErrNotCompleted
	}
	s.nextLevel()
	return nil
}

// levelScore is what the current level is worth if it ended now.
func (s *Session) levelScore() LevelScore {
	diffs := s.found.Len() * s.rules.PointsPerDifference
	return LevelScore{Differences: diffs, TimeBonus: s.timeLeft, Total: diffs + s.timeLeft}
}

func (s *Session) nextLevel() {
	s.lastScore = s.levelScore()
	s.totalScore += s.lastScore.Total
	s.paused = false
	if s.level >= len(s.levels)-1 {
		s.status = StatusFinished
		return
	}
	s.level++
	s.resetLevel()
}

// Restart goes back to the first level, clearing the score. Powerups are kept.
func (s *Session) Restart() {
	s.level = 0
	s.totalScore = 0
	s.lastScore = LevelScore{}
	s.paused = false
	s.resetLevel()
}

// Pause stops the clock and ignores clicks until Resume.
func (s *Session) Pause() {
	s.paused = true
}

// Resume restarts the clock.
func (s *Session) Resume() {
	s.paused = false
}

// Grant adds purchased powerups.
func (s *Session) Grant(p Powerups) {
	s.powerups = s.powerups.Add(p)
}

// Snapshot returns the state sent to the client.
func (s *Session) Snapshot() SessionState {
	level := s.Level()
	found := make([]FoundRegion, 0, s.found.Len())
	for _, i := range s.found.Indices() {
		if i < len(level.Differences) {
			found = append(found, FoundRegion{Index: i, Region: level.Differences[i]})
		}
	}
	return SessionState{
		ID:             s.ID,
		Level:          s.level,
		LevelCount:     len(s.levels),
		ImageLeft:      level.ImageLeft,
		ImageRight:     level.ImageRight,
		Found:          found,
		TimeLeft:       s.timeLeft,
		LevelDuration:  seconds(s.rules.LevelDuration),
		Status:         s.status,
		Paused:         s.paused,
		TotalScore:     s.totalScore,
		LevelScore:     s.levelScore().Total,
		LastLevelScore: s.lastScore,
		Powerups:       s.powerups,
	}
}
