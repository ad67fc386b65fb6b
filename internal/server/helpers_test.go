package server

import "github.com/spicycabbage/spotdiff/internal/game"

// testLevels are levels with five well separated circles of radius 30.
func testLevels(n int) []game.Level {
	levels := make([]game.Level, n)
	for i := range levels {
		levels[i] = game.Level{
			ImageLeft:  "left.png",
			ImageRight: "right.png",
			Differences: []game.Region{
				game.NewCircle(100, 100, 30),
				game.NewCircle(300, 100, 30),
				game.NewCircle(500, 100, 30),
				game.NewCircle(100, 300, 30),
				game.NewCircle(300, 300, 30),
			},
		}
	}
	return levels
}
