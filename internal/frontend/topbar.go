package frontend

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// TopBar shows the sound toggle and, while playing, the level, score and clock.
type TopBar struct {
	app.Compo
}

func (t *TopBar) onToggleSound(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.ToggleSound()
}

func (t *TopBar) onBannerClick(ctx app.Context, e app.Event) {
	ctx.Navigate("/")
}

func (t *TopBar) Render() app.UI {
	soundIcon := "🔊"
	if !State.SoundEnabled {
		soundIcon = "🔇"
	}

	var stats []app.UI
	if s := State.Session; s != nil {
		timerClass := "timer"
		if s.TimeLeft <= 10 {
			timerClass += " timer-low"
		}
		stats = append(stats,
			app.Li().Text(fmt.Sprintf("Level %d/%d", s.Level+1, s.LevelCount)),
			app.Li().Text(fmt.Sprintf("Score %d", s.TotalScore)),
			app.Li().Body(app.Strong().Class(timerClass).Text(formatClock(s.TimeLeft))),
		)
	}

	actions := append(stats,
		app.Li().Body(app.A().Href("/store").Text("Store")),
		app.Li().Body(
			app.A().
				Href("#").
				OnClick(t.onToggleSound).
				Style("text-decoration", "none").
				Body(
					app.Span().
						Class("sound-icon").
						Style("font-family", "system-ui").
						Text(soundIcon),
				),
		),
	)

	return app.Nav().Body(
		app.Ul().Body(
			app.Li().Body(
				app.Strong().
					Style("cursor", "pointer").
					OnClick(t.onBannerClick).
					Text("Spot the Difference"),
			),
		),
		app.Ul().Body(actions...),
	)
}

// formatClock formats seconds as m:ss.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
