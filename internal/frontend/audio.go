package frontend

import (
	"sync"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// Sound effects, registered by InitState.
const (
	SoundFound    = "found"
	SoundWrong    = "wrong"
	SoundWarn     = "warn"
	SoundComplete = "complete"
	SoundFail     = "fail"
)

var defaultSounds = map[string]string{
	SoundFound:    "/web/sounds/found.wav",
	SoundWrong:    "/web/sounds/wrong.wav",
	SoundWarn:     "/web/sounds/beep.wav",
	SoundComplete: "/web/sounds/complete.wav",
	SoundFail:     "/web/sounds/fail.wav",
}

// errNotAllowed is the name of the DOMException browsers raise when playback is attempted
// before any user interaction.
const errNotAllowed = "NotAllowedError"

// Player plays one sound. Play reports a failure asynchronously through onError, with the
// name of the browser error.
type Player interface {
	Play(volume float64, onError func(name string))
}

// AudioStatus describes the audio service.
type AudioStatus struct {
	Enabled bool
	Blocked bool // Browser refused playback: waiting for a user interaction.
	Sounds  int
}

// AudioService plays the game sound effects. It is owned by the client state and created
// with NewAudioService: nothing is played before Register.
type AudioService struct {
	mu        sync.Mutex
	newPlayer func(src string) Player
	players   map[string]Player
	enabled   bool
	blocked   bool
	volume    float64
}

// NewAudioService creates the service. newPlayer creates the player of each registered sound:
// if nil, HTML audio elements are used.
func NewAudioService(newPlayer func(src string) Player) *AudioService {
	if newPlayer == nil {
		newPlayer = newHTMLPlayer
	}
	return &AudioService{
		newPlayer: newPlayer,
		players:   make(map[string]Player),
		enabled:   true,
		volume:    0.5,
	}
}

// Register associates name with the sound at src, replacing any previous one.
func (a *AudioService) Register(name, src string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.players[name] = a.newPlayer(src)
}

// Play plays the named sound, unless disabled or blocked by the browser.
func (a *AudioService) Play(name string) {
	a.mu.Lock()
	p, found := a.players[name]
	play := a.enabled && !a.blocked && found
	volume := a.volume
	a.mu.Unlock()
	if !found {
		klog.Warningf("AudioService: unknown sound %q", name)
	}
	if !play {
		return
	}
	p.Play(volume, func(errName string) {
		if errName != errNotAllowed {
			klog.V(1).Infof("AudioService: failed to play %q: %s", name, errName)
			return
		}
		klog.Infof("AudioService: playback blocked by the browser, waiting for a user interaction")
		a.mu.Lock()
		a.blocked = true
		a.mu.Unlock()
	})
}

// SetEnabled turns the sound effects on or off.
func (a *AudioService) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// Reset clears the blocked state. Called on user interactions, after which browsers allow
// playback again.
func (a *AudioService) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocked = false
}

func (a *AudioService) Status() AudioStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AudioStatus{Enabled: a.enabled, Blocked: a.blocked, Sounds: len(a.players)}
}

// htmlPlayer plays a sound with a new HTML audio element per play, so overlapping effects work.
type htmlPlayer struct {
	src string
}

func newHTMLPlayer(src string) Player {
	return &htmlPlayer{src: src}
}

func (p *htmlPlayer) Play(volume float64, onError func(name string)) {
	if app.IsServer {
		return
	}
	audio := app.Window().Get("document").Call("createElement", "audio")
	audio.Set("src", p.src)
	audio.Set("volume", volume)
	promise := audio.Call("play")
	if !promise.Truthy() {
		return
	}
	var onFailure app.Func
	onFailure = app.FuncOf(func(this app.Value, args []app.Value) any {
		defer onFailure.Release()
		name := "unknown"
		if len(args) > 0 && args[0].Truthy() {
			name = args[0].Get("name").String()
		}
		onError(name)
		return nil
	})
	promise.Call("catch", onFailure)
}
