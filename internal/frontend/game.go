package frontend

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/game"
	"k8s.io/klog/v2"
)

// MissDuration is how long a wrong click marker stays on screen.
const MissDuration = 500 * time.Millisecond

// Game shows the image pair of the current level and captures the clicks.
type Game struct {
	app.Compo
	State *game.SessionState
	Error string

	// Rendered size of each image.
	width, height float64

	// Last wrong click, in display coordinates.
	miss       *game.Point
	missGen    int
	lastResult *game.ResultMessage

	onUpdate func()
}

func (g *Game) OnAppUpdate(ctx app.Context) {
	klog.Infof("Game component: App update available, not reloading not to interrupt the game...")
}

func (g *Game) OnMount(ctx app.Context) {
	klog.V(1).Infof("Game component: OnMount called")
	g.resize()
	g.State = State.Session
	if g.State != nil {
		State.PreloadLevels(g.State.Level)
	}
	g.onUpdate = func() {
		ctx.Dispatch(func(ctx app.Context) {
			if s := State.Session; s != nil && (g.State == nil || g.State.Level != s.Level) {
				State.PreloadLevels(s.Level)
			}
			g.State = State.Session
			g.Error = State.Error
			if r := State.Result; r != g.lastResult {
				g.lastResult = r
				if r != nil && !r.Wrong {
					g.miss = nil
				}
			}
		})
	}
	State.Listeners["game"] = g.onUpdate
}

func (g *Game) OnDismount() {
	klog.V(1).Infof("Game component: OnDismount called")
	delete(State.Listeners, "game")
}

func (g *Game) OnNav(ctx app.Context) {
	klog.V(1).Infof("Game component: OnNav called")
	if app.IsServer {
		return
	}
	State.LoadLevelImages(ctx)
	if State.Conn != nil {
		return
	}
	if err := State.ConnectWS(); err != nil {
		g.Error = fmt.Sprintf("Failed to connect to the game: %v", err)
		klog.Errorf("Game component: Error connecting: %v", err)
	}
}

func (g *Game) OnResize(ctx app.Context) {
	g.resize()
}

func (g *Game) resize() {
	if app.IsServer {
		g.width, g.height = game.DesktopDisplaySize, game.DesktopDisplaySize
		return
	}
	w, h := app.Window().Size()
	g.width, g.height = game.DisplaySize(float64(w), float64(h))
	klog.V(1).Infof("Game component: viewport %dx%d, images at %.0fx%.0f", w, h, g.width, g.height)
}

// onImageClick sends the click offset, relative to the image, with the size the image is
// actually rendered at.
func (g *Game) onImageClick(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Audio.Reset()
	if g.State == nil || g.State.Status != game.StatusPlaying || g.State.Paused {
		return
	}
	x, y := e.Get("offsetX").Float(), e.Get("offsetY").Float()
	src := ctx.JSSrc()
	w, h := src.Get("clientWidth").Float(), src.Get("clientHeight").Float()
	if w <= 0 || h <= 0 {
		w, h = g.width, g.height
	}
	State.SendClick(x, y, w, h)

	// Cleared after MissDuration, or as soon as the click turns out to be a match.
	g.miss = &game.Point{X: x, Y: y}
	g.missGen++
	gen := g.missGen
	ctx.After(MissDuration, func(ctx app.Context) {
		if g.missGen == gen {
			g.miss = nil
		}
	})
}

func (g *Game) onPause(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.SendPause()
}

func (g *Game) onResume(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Audio.Reset()
	State.SendResume()
}

func (g *Game) onRestart(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Audio.Reset()
	State.SendRestart()
}

func (g *Game) onRetry(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if err := State.ConnectWS(); err != nil {
		g.Error = fmt.Sprintf("Failed to connect to the game: %v", err)
	}
}

// renderRegion draws a found region over an image rendered at the component's size.
func (g *Game) renderRegion(f game.FoundRegion) app.UI {
	t := game.NewTransform(g.width, g.height)
	center := t.ToDisplay(game.Point{X: f.Region.X, Y: f.Region.Y})
	var rx, ry, rotation float64
	if e, ok := f.Region.Ellipse(); ok {
		rx, ry, rotation = e.RadiusX, e.RadiusY, e.Rotation
	} else {
		c, _ := f.Region.Circle()
		rx, ry = c.Radius, c.Radius
	}
	rx, ry = rx/t.ScaleX, ry/t.ScaleY
	return app.Div().
		Class("found-marker").
		Style("left", px(center.X-rx)).
		Style("top", px(center.Y-ry)).
		Style("width", px(2*rx)).
		Style("height", px(2*ry)).
		Style("transform", fmt.Sprintf("rotate(%gdeg)", rotation))
}

func (g *Game) renderImage(src string, clickable bool) app.UI {
	var overlays []app.UI
	for _, f := range g.State.Found {
		overlays = append(overlays, g.renderRegion(f))
	}
	img := app.Img().
		Src(src).
		Alt("level picture").
		Draggable(false).
		Style("width", px(g.width)).
		Style("height", px(g.height))
	if clickable {
		img = img.OnClick(g.onImageClick)
		if g.miss != nil {
			overlays = append(overlays, app.Div().
				Class("miss-marker").
				Style("left", px(g.miss.X)).
				Style("top", px(g.miss.Y)).
				Text("✕"))
		}
	}
	return app.Div().Class("image-pane").Body(append([]app.UI{img}, overlays...)...)
}

func (g *Game) renderModal() app.UI {
	s := g.State
	var title, text string
	var actions []app.UI
	switch {
	case s.Status == game.StatusCompleted:
		title = "Level complete!"
		text = fmt.Sprintf("%d points, with %d bonus points for the time left.", s.LevelScore, s.TimeLeft)
	case s.Status == game.StatusFailed:
		title = "Time's up"
		text = fmt.Sprintf("You found %d of %d differences. Final score: %d.", len(s.Found), game.DifferencesPerLevel, s.TotalScore)
		actions = append(actions, app.Button().OnClick(g.onRestart).Text("Play again"))
	case s.Status == game.StatusFinished:
		title = "You finished all the levels!"
		text = fmt.Sprintf("Final score: %d.", s.TotalScore)
		actions = append(actions, app.Button().OnClick(g.onRestart).Text("Play again"))
	case s.Paused:
		title = "Paused"
		actions = append(actions, app.Button().OnClick(g.onResume).Text("Resume"))
	default:
		return nil
	}
	return app.Dialog().Open(true).Body(
		app.Article().Body(
			app.H3().Text(title),
			app.If(text != "", func() app.UI { return app.P().Text(text) }),
			app.Footer().Body(actions...),
		),
	)
}

func (g *Game) Render() app.UI {
	if g.Error != "" && g.State == nil {
		return app.Main().Class("container").Body(
			&TopBar{},
			app.Article().Body(
				app.H2().Text("Game Error"),
				app.P().Style("color", "red").Text(g.Error),
				app.Button().OnClick(g.onRetry).Text("Reconnect"),
			),
		)
	}

	if g.State == nil {
		return app.Main().Class("container").Body(
			&TopBar{},
			app.Div().Aria("busy", "true").Text("Connecting to game..."),
		)
	}

	s := g.State
	var errorLine app.UI
	if g.Error != "" {
		errorLine = app.P().Class("game-error").Text(g.Error)
	}
	pauseButton := app.Button().Class("secondary outline").OnClick(g.onPause).Text("Pause")
	return app.Main().Class("container").Body(
		&TopBar{},
		app.Div().Class("image-pair").Body(
			g.renderImage(s.ImageLeft, false),
			g.renderImage(s.ImageRight, true),
		),
		app.P().Text(fmt.Sprintf("Found %d of %d", len(s.Found), game.DifferencesPerLevel)),
		&PowerupBar{Powerups: s.Powerups, Disabled: s.Status != game.StatusPlaying || s.Paused},
		pauseButton,
		errorLine,
		g.renderModal(),
	)
}

func px(v float64) string {
	return fmt.Sprintf("%.1fpx", v)
}
