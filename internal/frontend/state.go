package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/game"
	"k8s.io/klog/v2"
)

// Keys of the values kept in the browser's local storage.
const (
	storagePlayerID = "spotdiff_player"
	storagePowerups = "spotdiff_powerups"
	storageSound    = "spotdiff_sound"
)

// GlobalClientState manages the connection and the latest session state sent by the server.
type GlobalClientState struct {
	PlayerID string
	Session  *game.SessionState
	Result   *game.ResultMessage // Last click or hint outcome, for the overlays.
	Error    string
	Conn     *websocket.Conn

	Audio        *AudioService
	SoundEnabled bool

	// Image pairs of all levels, and the images already prefetched.
	images     []levelImages
	prefetched map[string]bool
	prefetch   func(url string)

	// Listeners for state updates
	Listeners map[string]func()
}

var State *GlobalClientState

// InitState creates the global state, if not created yet.
func InitState() {
	if State != nil {
		klog.V(1).Infof("InitState: state already exists")
		return
	}
	klog.V(1).Infof("InitState: creating new state")
	State = &GlobalClientState{
		Audio:        NewAudioService(nil),
		SoundEnabled: true,
		Listeners:    make(map[string]func()),
		prefetch:     prefetchLink,
	}
	for name, src := range defaultSounds {
		State.Audio.Register(name, src)
	}
	if !app.IsServer {
		State.PlayerID = loadPlayerID()
		var sound bool
		if loadStored(storageSound, &sound) {
			State.SoundEnabled = sound
			State.Audio.SetEnabled(sound)
		}
	}
}

// RegisterRoutes registers the pages of the game.
func RegisterRoutes() {
	app.Route("/", func() app.Composer { return &Home{} })
	app.Route("/play", func() app.Composer { return &Game{} })
	app.Route("/store", func() app.Composer { return &Store{} })
}

func (s *GlobalClientState) Notify() {
	klog.V(1).Infof("GlobalClientState: Notifying %d listeners", len(s.Listeners))
	for _, l := range s.Listeners {
		if l != nil {
			l()
		}
	}
}

func (s *GlobalClientState) ToggleSound() {
	s.SoundEnabled = !s.SoundEnabled
	s.Audio.SetEnabled(s.SoundEnabled)
	s.Audio.Reset()
	storeValue(storageSound, s.SoundEnabled)
	klog.Infof("ToggleSound: SoundEnabled is now %v", s.SoundEnabled)
	s.Notify()
}

// Connected reports whether there is a live session.
func (s *GlobalClientState) Connected() bool {
	return s.Conn != nil && s.Session != nil
}

// ConnectWS connects to the server and joins with the powerups saved in the browser.
func (s *GlobalClientState) ConnectWS() error {
	if s.Conn != nil {
		klog.Infof("ConnectWS: Closing existing connection")
		s.Conn.CloseNow()
		s.Conn = nil
	}

	u := app.Window().URL()
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", scheme, u.Host)
	klog.Infof("ConnectWS: Connecting to %s", wsURL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		klog.Errorf("ConnectWS: Dial failed: %v", err)
		return fmt.Errorf("dial failed: %w", err)
	}
	s.Conn = conn

	join := game.JoinMessage{PlayerID: s.PlayerID}
	var saved game.Powerups
	if loadStored(storagePowerups, &saved) {
		join.Powerups = &saved
	}
	joinMsg, err := game.NewWsMessage(game.MsgTypeJoin, join)
	if err != nil {
		return fmt.Errorf("failed to create join message: %w", err)
	}
	if err := wsjson.Write(ctx, conn, joinMsg); err != nil {
		klog.Errorf("ConnectWS: Failed to send join: %v", err)
		return fmt.Errorf("failed to send join: %w", err)
	}

	klog.Infof("ConnectWS: Joined as %q. Starting read loop.", s.PlayerID)
	go s.readLoop(conn)
	return nil
}

func (s *GlobalClientState) readLoop(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		var msg game.WsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			klog.Errorf("readLoop: WS read error: %v", err)
			break
		}
		klog.V(1).Infof("readLoop: received message type: %s", msg.Type)
		s.handleMessage(msg)
	}
	if s.Conn == conn {
		s.Conn = nil
		s.Error = "Connection to the server lost"
		s.Notify()
	}
}

func (s *GlobalClientState) handleMessage(msg game.WsMessage) {
	p, err := msg.Parse()
	if err != nil {
		klog.Errorf("handleMessage: Failed to parse %s message: %v", msg.Type, err)
		return
	}

	switch m := p.(type) {
	case *game.StateMessage:
		klog.V(1).Infof("handleMessage: %s", m.Session)
		s.Session = &m.Session
		s.Error = ""
		storeValue(storagePowerups, m.Session.Powerups)

	case *game.ResultMessage:
		s.Result = m
		s.playResult(m)

	case *game.ErrorMessage:
		klog.Warningf("handleMessage: server error: %s", m.Message)
		s.Error = m.Message

	default:
		klog.Warningf("handleMessage: unexpected %s message", msg.Type)
		return
	}
	s.Notify()
}

// playResult plays the sound effects of a result, most significant first.
func (s *GlobalClientState) playResult(r *game.ResultMessage) {
	switch {
	case r.Failed:
		s.Audio.Play(SoundFail)
	case r.Completed:
		s.Audio.Play(SoundComplete)
	case r.Warn:
		s.Audio.Play(SoundWarn)
	case r.Wrong:
		s.Audio.Play(SoundWrong)
	case len(r.Matched) > 0:
		s.Audio.Play(SoundFound)
	}
}

// send writes a message to the server, if connected.
func (s *GlobalClientState) send(msgType game.MessageType, payload any) {
	if s.Conn == nil {
		klog.Warningf("send: not connected, dropping %s message", msgType)
		return
	}
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		klog.Errorf("send: Failed to create %s message: %v", msgType, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	if err := wsjson.Write(ctx, s.Conn, msg); err != nil {
		klog.Errorf("send: Failed to send %s message: %v", msgType, err)
	}
}

// SendClick sends a click at offset (x, y) of an image rendered at width x height.
func (s *GlobalClientState) SendClick(x, y, width, height float64) {
	s.send(game.MsgTypeClick, game.ClickMessage{X: x, Y: y, DisplayWidth: width, DisplayHeight: height})
}

func (s *GlobalClientState) SendPowerup(kind game.PowerupKind) {
	s.send(game.MsgTypePowerup, game.PowerupMessage{Kind: kind})
}

func (s *GlobalClientState) SendPause() {
	s.send(game.MsgTypePause, nil)
}

func (s *GlobalClientState) SendResume() {
	s.send(game.MsgTypeResume, nil)
}

func (s *GlobalClientState) SendRestart() {
	s.send(game.MsgTypeRestart, nil)
}

// SendClaim asks the server to grant purchased powerups, by payment intent or by email.
func (s *GlobalClientState) SendClaim(email, paymentIntentID string) {
	s.send(game.MsgTypeClaim, game.ClaimMessage{Email: email, PaymentIntentID: paymentIntentID})
}

// loadPlayerID returns the id saved in the browser, creating one for new players.
func loadPlayerID() string {
	var id string
	if loadStored(storagePlayerID, &id) && id != "" {
		return id
	}
	id = uuid.NewString()
	storeValue(storagePlayerID, id)
	return id
}

// loadStored decodes the JSON value saved under key into v. It reports whether one was found.
func loadStored(key string, v any) bool {
	if app.IsServer {
		return false
	}
	item := app.Window().Get("localStorage").Call("getItem", key)
	if !item.Truthy() {
		return false
	}
	if err := json.Unmarshal([]byte(item.String()), v); err != nil {
		klog.Warningf("Ignoring invalid %q in local storage: %v", key, err)
		return false
	}
	return true
}

func storeValue(key string, v any) {
	if app.IsServer {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("Failed to encode %q: %v", key, err)
		return
	}
	app.Window().Get("localStorage").Call("setItem", key, string(data))
}
