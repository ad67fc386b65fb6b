package frontend

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// Home is the start screen.
type Home struct {
	app.Compo
}

func (h *Home) OnMount(ctx app.Context) {
	klog.V(1).Infof("Home: OnMount called")
	State.Listeners["home"] = func() {
		ctx.Dispatch(func(ctx app.Context) {})
	}
}

func (h *Home) OnDismount() {
	delete(State.Listeners, "home")
}

func (h *Home) OnAppUpdate(ctx app.Context) {
	klog.Infof("Home component: App update available, reloading...")
	ctx.Reload()
}

func (h *Home) onPlay(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Audio.Reset()
	ctx.Navigate("/play")
}

func (h *Home) onRestart(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Audio.Reset()
	State.SendRestart()
	ctx.Navigate("/play")
}

func (h *Home) Render() app.UI {
	play := "Play"
	var restart app.UI
	if s := State.Session; State.Connected() && (s.Level > 0 || len(s.Found) > 0) {
		play = fmt.Sprintf("Continue level %d", s.Level+1)
		restart = app.Button().Class("secondary").OnClick(h.onRestart).Text("Start over")
	}

	return app.Main().Class("container").Body(
		&TopBar{},
		app.Article().Body(
			app.Header().Body(
				app.H2().Text("Spot the Difference"),
			),
			app.P().Text("Find the 5 differences between the two pictures before the time runs out."),
			app.Ul().Body(
				app.Li().Text("Click on the picture on the right where you see a difference."),
				app.Li().Text("A wrong click costs you 5 seconds."),
				app.Li().Text("Powerups add time, reveal a difference or skip the level."),
				app.Li().Text("Every difference is worth 10 points, and every second left is a bonus point."),
			),
			app.Footer().Body(
				app.Button().OnClick(h.onPlay).Text(play),
				restart,
			),
		),
	)
}
