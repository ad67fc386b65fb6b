package frontend

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/game"
)

// PowerupBar shows the powerups left, with a button to use each of them.
type PowerupBar struct {
	app.Compo
	Powerups game.Powerups
	Disabled bool
}

func (p *PowerupBar) use(kind game.PowerupKind) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		State.Audio.Reset()
		State.SendPowerup(kind)
	}
}

func (p *PowerupBar) button(kind game.PowerupKind, icon, label string, count int) app.UI {
	return app.Button().
		Class("outline").
		Title(label).
		Disabled(p.Disabled || count <= 0).
		OnClick(p.use(kind)).
		Text(fmt.Sprintf("%s %s (%d)", icon, label, count))
}

func (p *PowerupBar) Render() app.UI {
	return app.Div().Class("powerup-bar").Body(
		p.button(game.PowerupTime, "⏱", "+15s", p.Powerups.Time),
		p.button(game.PowerupHint, "💡", "Hint", p.Powerups.Hints),
		p.button(game.PowerupSkip, "⏭", "Skip", p.Powerups.Skips),
		app.A().Href("/store").Role("button").Class("secondary").Text("Get more"),
	)
}
