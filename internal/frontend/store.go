package frontend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/game"
	"k8s.io/klog/v2"
)

// storePackage is a powerup package as served by /api/packages.
type storePackage struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Powerups    game.Powerups `json:"powerups"`
	Popular     bool          `json:"popular"`
	Color       string        `json:"color"`
	PaymentLink string        `json:"paymentLink"`
}

func (p storePackage) priceString() string {
	return fmt.Sprintf("$%d.%02d", p.Price/100, p.Price%100)
}

// parsePackages decodes the package catalog, cheapest first.
func parsePackages(r io.Reader) ([]storePackage, error) {
	var resp struct {
		Packages map[string]storePackage `json:"packages"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode packages: %w", err)
	}
	packages := make([]storePackage, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		packages = append(packages, p)
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Price < packages[j].Price })
	return packages, nil
}

// apiURL returns the absolute URL of an API path, on the server the app was loaded from.
func apiURL(path string) string {
	u := app.Window().URL()
	return fmt.Sprintf("%s://%s/api%s", u.Scheme, u.Host, path)
}

var apiClient = &http.Client{Timeout: 10 * time.Second}

func fetchPackages() ([]storePackage, error) {
	resp, err := apiClient.Get(apiURL("/packages"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch packages: %s", resp.Status)
	}
	return parsePackages(resp.Body)
}

// claimTimeout is how long a claim waits for new powerups before reporting none were found.
const claimTimeout = 5 * time.Second

// pendingClaim follows a claim until the server answers it. The server grants the powerups
// and sends the new state, or sends an error.
type pendingClaim struct {
	// Powerups before the claim, or nil if the session state was not received yet.
	before *game.Powerups
	email  string
}

func newPendingClaim(session *game.SessionState, email string) *pendingClaim {
	c := &pendingClaim{email: email}
	if session != nil {
		before := session.Powerups
		c.before = &before
	}
	return c
}

// update checks the claim against an update of the client state. It returns the message
// or the error to show once the claim is answered.
func (c *pendingClaim) update(session *game.SessionState, errMsg string) (message, err string, done bool) {
	if errMsg != "" {
		return "", errMsg, true
	}
	if session == nil {
		return "", "", false
	}
	if c.before == nil {
		before := session.Powerups
		c.before = &before
		return "", "", false
	}
	now := session.Powerups
	if now == *c.before {
		return "", "", false
	}
	gained := game.Powerups{
		Time:  now.Time - c.before.Time,
		Hints: now.Hints - c.before.Hints,
		Skips: now.Skips - c.before.Skips,
	}
	return fmt.Sprintf("Thanks for your purchase! Added %d time boosts, %d hints and %d skips.",
		gained.Time, gained.Hints, gained.Skips), "", true
}

// timeoutMessage is shown when the server answered without granting anything.
func (c *pendingClaim) timeoutMessage() string {
	if c.email != "" {
		return fmt.Sprintf("No new purchases found for %s. Payments can take a minute to arrive: try again shortly.", c.email)
	}
	return "No new powerups were added."
}

// Store lists the powerup packages, with their payment links, and claims the purchases.
type Store struct {
	app.Compo
	packages []storePackage
	email    string
	message  string
	err      string
	claim    *pendingClaim
}

func (s *Store) OnMount(ctx app.Context) {
	klog.V(1).Infof("Store: OnMount called")
	State.Listeners["store"] = func() {
		session, errMsg := State.Session, State.Error
		ctx.Dispatch(func(ctx app.Context) {
			s.onStateUpdate(session, errMsg)
		})
	}
	if app.IsServer {
		return
	}
	ctx.Async(func() {
		packages, err := fetchPackages()
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Store: %v", err)
				s.err = "The store is not available right now"
				return
			}
			s.packages = packages
		})
	})
}

func (s *Store) OnDismount() {
	delete(State.Listeners, "store")
}

func (s *Store) onStateUpdate(session *game.SessionState, errMsg string) {
	if s.claim == nil {
		if errMsg != "" {
			s.err = errMsg
		}
		return
	}
	message, err, done := s.claim.update(session, errMsg)
	if !done {
		return
	}
	s.claim = nil
	s.message, s.err = message, err
}

// startClaim sends a claim, connecting first if needed, and waits for its outcome.
func (s *Store) startClaim(ctx app.Context, email, intentID string) {
	session := State.Session
	if State.Conn == nil {
		if err := State.ConnectWS(); err != nil {
			s.err = fmt.Sprintf("Failed to connect to the game: %v", err)
			return
		}
		// The join state comes first.
		session = nil
	}
	claim := newPendingClaim(session, email)
	s.err, s.message = "", "Checking your purchases..."
	State.Error = ""
	s.claim = claim
	State.SendClaim(email, intentID)
	ctx.After(claimTimeout, func(ctx app.Context) {
		if s.claim == claim {
			s.claim = nil
			s.message = claim.timeoutMessage()
		}
	})
}

// OnNav claims the payment intent the checkout redirected back with, if any.
func (s *Store) OnNav(ctx app.Context) {
	if app.IsServer {
		return
	}
	intentID := app.Window().URL().Query().Get("payment_intent")
	if intentID == "" {
		return
	}
	klog.Infof("Store: claiming payment intent %s", intentID)
	s.startClaim(ctx, "", intentID)
}

func (s *Store) onEmailChange(ctx app.Context, e app.Event) {
	s.email = strings.TrimSpace(ctx.JSSrc().Get("value").String())
}

func (s *Store) onClaim(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if s.email == "" {
		s.err = "Enter the email used for the purchase"
		return
	}
	s.startClaim(ctx, s.email, "")
}

func (s *Store) renderPackage(p storePackage) app.UI {
	link := p.PaymentLink
	if link != "" && s.email != "" {
		link += "?prefilled_email=" + url.QueryEscape(s.email)
	}
	return app.Article().Class("package", "package-"+p.Color).Body(
		app.Header().Body(
			app.H3().Text(p.Name),
			app.If(p.Popular, func() app.UI { return app.Mark().Text("Most popular") }),
		),
		app.P().Text(p.Description),
		app.Ul().Body(
			app.Li().Text(fmt.Sprintf("⏱ %d time boosts", p.Powerups.Time)),
			app.Li().Text(fmt.Sprintf("💡 %d hints", p.Powerups.Hints)),
			app.Li().Text(fmt.Sprintf("⏭ %d skips", p.Powerups.Skips)),
		),
		app.Footer().Body(
			app.A().Href(link).Target("_blank").Role("button").Text("Buy for "+p.priceString()),
		),
	)
}

func (s *Store) Render() app.UI {
	var body []app.UI
	if s.packages == nil && s.err == "" {
		body = append(body, app.Div().Aria("busy", "true").Text("Loading the store..."))
	}
	for _, p := range s.packages {
		body = append(body, s.renderPackage(p))
	}

	return app.Main().Class("container").Body(
		&TopBar{},
		app.H2().Text("Powerup Store"),
		app.If(s.err != "", func() app.UI { return app.P().Style("color", "red").Text(s.err) }),
		app.If(s.message != "", func() app.UI { return app.P().Text(s.message) }),
		app.Div().Class("grid").Body(body...),
		app.Article().Body(
			app.H3().Text("Already bought?"),
			app.Form().OnSubmit(s.onClaim).Body(
				app.Label().For("email").Text("Email used at checkout"),
				app.Input().
					Type("email").
					ID("email").
					Name("email").
					Placeholder("you@example.com").
					Value(s.email).
					OnInput(s.onEmailChange),
				app.Button().Type("submit").Text("Claim my powerups"),
			),
		),
		app.A().Href("/play").Text("Back to the game"),
	)
}
