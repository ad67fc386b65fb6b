package game

import (
	"errors"
	"slices"
	"testing"
)

func testLevels(n int) []Level {
	levels := make([]Level, n)
	for i := range levels {
		levels[i] = Level{
			ImageLeft:   "left.png",
			ImageRight:  "right.png",
			Differences: testRegions(),
		}
	}
	return levels
}

func newTestSession(levels int) *Session {
	rules := DefaultRules()
	return NewSession("test", testLevels(levels), rules, rules.StartingPowerups)
}

func tickN(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func findAll(t *testing.T, s *Session) {
	t.Helper()
	for _, r := range s.Level().Differences {
		s.Click(Point{X: r.X, Y: r.Y}, Identity)
	}
	if s.Status() != StatusCompleted {
		t.Fatalf("expected the level to be completed, got %s", s.Status())
	}
}

func TestSessionClick(t *testing.T) {
	s := newTestSession(2)

	out := s.Click(Point{X: 100, Y: 100}, Identity)
	if !slices.Equal(out.Matched, []int{0}) {
		t.Fatalf("expected region 0 to be found, got %+v", out)
	}

	// Clicking it again is neutral.
	out = s.Click(Point{X: 105, Y: 95}, Identity)
	if !out.AlreadyFoundHit || out.Wrong() || s.TimeLeft() != 60 {
		t.Errorf("expected a neutral click, got %+v with %ds left", out, s.TimeLeft())
	}

	// Wrong click costs 5 seconds.
	out = s.Click(Point{X: 700, Y: 700}, Identity)
	if !out.Wrong() {
		t.Errorf("expected a wrong click, got %+v", out)
	}
	if s.TimeLeft() != 55 {
		t.Errorf("expected 55s left, got %d", s.TimeLeft())
	}
	if s.Found().Len() != 1 {
		t.Errorf("found-set changed on a wrong click: %v", s.Found().Indices())
	}

	// Display space clicks are mapped to base space: 62.5 * 800/500 = 100.
	out = s.Click(Point{X: 187.5, Y: 62.5}, NewTransform(500, 500))
	if !slices.Equal(out.Matched, []int{1}) || out.Base != (Point{X: 300, Y: 100}) {
		t.Errorf("expected region 1 at base (300, 100), got %+v", out)
	}
}

func TestSessionCompleteAndAdvance(t *testing.T) {
	s := newTestSession(2)
	tickN(s, 10)
	findAll(t, s)

	// Completed levels ignore clicks and ticks until advanced.
	if out := s.Click(Point{X: 700, Y: 700}, Identity); !out.Ignored {
		t.Errorf("click should be ignored on a completed level")
	}
	if out := s.Tick(); out.Changed {
		t.Errorf("clock should be stopped on a completed level")
	}

	if err := s.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	want := LevelScore{Differences: 50, TimeBonus: 50, Total: 100}
	if got := s.Snapshot().LastLevelScore; got != want {
		t.Errorf("last level score = %+v, want %+v", got, want)
	}
	if s.TotalScore() != 100 || s.LevelIndex() != 1 || s.TimeLeft() != 60 || s.Found().Len() != 0 {
		t.Errorf("unexpected state after advancing: %s", s.Snapshot().String())
	}
	if err := s.Advance(); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("expected ErrNotCompleted, got %v", err)
	}

	findAll(t, s)
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.Status() != StatusFinished || s.TotalScore() != 210 {
		t.Errorf("expected a finished game with 210 points, got %s", s.Snapshot().String())
	}
}

func TestSessionTimer(t *testing.T) {
	s := newTestSession(1)
	warned := 0
	for i := 0; i < 59; i++ {
		out := s.Tick()
		if out.Warn {
			warned++
			if s.TimeLeft() != 5 {
				t.Errorf("warned with %ds left", s.TimeLeft())
			}
		}
	}
	if warned != 1 {
		t.Errorf("expected one warning, got %d", warned)
	}
	if s.TimeLeft() != 1 || s.Status() != StatusPlaying {
		t.Fatalf("expected 1s left, got %d (%s)", s.TimeLeft(), s.Status())
	}
	out := s.Tick()
	if !out.Failed || s.Status() != StatusFailed || s.TimeLeft() != 0 {
		t.Errorf("expected the level to fail, got %+v (%s, %ds)", out, s.Status(), s.TimeLeft())
	}
	if out := s.Click(Point{X: 100, Y: 100}, Identity); !out.Ignored {
		t.Errorf("click should be ignored on a failed level")
	}
}

func TestSessionPenaltyFloor(t *testing.T) {
	s := newTestSession(1)
	tickN(s, 57)
	out := s.Click(Point{X: 700, Y: 700}, Identity)
	if s.TimeLeft() != 0 || !out.Failed || s.Status() != StatusFailed {
		t.Errorf("expected the penalty to stop at 0 and fail the level, got %ds (%s)", s.TimeLeft(), s.Status())
	}
}

func TestSessionPause(t *testing.T) {
	s := newTestSession(1)
	s.Pause()
	if out := s.Tick(); out.Changed || s.TimeLeft() != 60 {
		t.Errorf("clock should not run while paused")
	}
	if out := s.Click(Point{X: 100, Y: 100}, Identity); !out.Ignored {
		t.Errorf("click should be ignored while paused")
	}
	if err := s.AddTime(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
	s.Resume()
	s.Tick()
	if s.TimeLeft() != 59 {
		t.Errorf("expected 59s after resuming, got %d", s.TimeLeft())
	}
}

func TestSessionPowerups(t *testing.T) {
	t.Run("time", func(t *testing.T) {
		s := newTestSession(1)
		tickN(s, 3)
		if err := s.AddTime(); err != nil {
			t.Fatal(err)
		}
		if s.TimeLeft() != 60 {
			t.Errorf("time boost should be capped at 60s, got %d", s.TimeLeft())
		}
		tickN(s, 30)
		if err := s.Use(PowerupTime); err != nil {
			t.Fatal(err)
		}
		if s.TimeLeft() != 45 {
			t.Errorf("expected 45s, got %d", s.TimeLeft())
		}
		if err := s.AddTime(); err != nil {
			t.Fatal(err)
		}
		if err := s.AddTime(); !errors.Is(err, ErrNoPowerup) {
			t.Errorf("expected ErrNoPowerup, got %v", err)
		}
		if s.Powerups().Time != 0 {
			t.Errorf("expected all time powerups used, got %s", s.Powerups())
		}
	})

	t.Run("hint", func(t *testing.T) {
		s := newTestSession(1)
		s.Click(Point{X: 100, Y: 100}, Identity)
		idx, err := s.Hint()
		if err != nil || idx != 1 {
			t.Fatalf("expected hint on region 1, got %d, %v", idx, err)
		}
		s.Grant(Powerups{Hints: 5})
		for i := 0; i < 3; i++ {
			if _, err := s.Hint(); err != nil {
				t.Fatal(err)
			}
		}
		if s.Status() != StatusCompleted {
			t.Errorf("hints revealing the last difference should complete the level, got %s", s.Status())
		}
		if s.Powerups().Hints != 3 {
			t.Errorf("expected 3 hints left, got %s", s.Powerups())
		}
		if _, err := s.Hint(); !errors.Is(err, ErrNotPlaying) {
			t.Errorf("expected ErrNotPlaying on a completed level, got %v", err)
		}
	})

	t.Run("skip", func(t *testing.T) {
		s := newTestSession(3)
		s.Click(Point{X: 100, Y: 100}, Identity)
		tickN(s, 20)
		if err := s.Skip(); err != nil {
			t.Fatal(err)
		}
		if s.LevelIndex() != 1 || s.Found().Len() != 0 || s.TimeLeft() != 60 {
			t.Errorf("unexpected state after skip: %s", s.Snapshot().String())
		}
		if s.TotalScore() != 50 {
			t.Errorf("skip should score the level as it stood (10 + 40), got %d", s.TotalScore())
		}
		if err := s.Use(PowerupSkip); !errors.Is(err, ErrNoPowerup) {
			t.Errorf("expected ErrNoPowerup, got %v", err)
		}
		if err := s.Use("teleport"); err == nil {
			t.Errorf("expected an error for an unknown powerup")
		}
	})
}

func TestSessionRestart(t *testing.T) {
	s := newTestSession(3)
	findAll(t, s)
	_ = s.Advance()
	s.Click(Point{X: 100, Y: 100}, Identity)
	tickN(s, 60)
	if s.Status() != StatusFailed {
		t.Fatalf("expected failure, got %s", s.Status())
	}
	powerups := s.Powerups()
	s.Restart()
	if s.LevelIndex() != 0 || s.TotalScore() != 0 || s.Found().Len() != 0 || s.TimeLeft() != 60 || s.Status() != StatusPlaying {
		t.Errorf("unexpected state after restart: %s", s.Snapshot().String())
	}
	if s.Powerups() != powerups {
		t.Errorf("restart should keep the powerups")
	}
}

func TestSessionSnapshot(t *testing.T) {
	s := newTestSession(4)
	s.Click(Point{X: 300, Y: 300}, Identity)
	s.Click(Point{X: 100, Y: 300}, Identity)
	state := s.Snapshot()
	if state.LevelCount != 4 || state.ImageRight != "right.png" || state.LevelDuration != 60 {
		t.Errorf("unexpected snapshot: %s", state.String())
	}
	if len(state.Found) != 2 || state.Found[0].Index != 3 || state.Found[1].Index != 4 {
		t.Errorf("expected regions 3 and 4 found, in order, got %+v", state.Found)
	}
	if state.LevelScore != 80 {
		t.Errorf("expected a level score of 80, got %d", state.LevelScore)
	}
}
