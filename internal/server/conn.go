package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/spicycabbage/spotdiff/internal/game"
	"github.com/spicycabbage/spotdiff/internal/payment"
	"k8s.io/klog/v2"
)

// writeTimeout bounds each message sent to a client.
const writeTimeout = 5 * time.Second

// Connection is one client and the game session it plays.
type Connection struct {
	PlayerID string

	conn   *websocket.Conn
	server *ServerState

	// mu serializes the session updates and the messages sent about them.
	mu      sync.Mutex
	Session *game.Session
	advance *time.Timer // Pending move to the next level, after a completed one.
}

// HandleWS upgrades the request to a WebSocket. The first message must be a join, after
// which the connection owns a new session until it is closed.
func (s *ServerState) HandleWS(w http.ResponseWriter, r *http.Request) {
	// The server timeouts are meant for plain requests, not for the long lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		klog.Errorf("Failed to accept WebSocket: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var msg game.WsMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		klog.V(1).Infof("Failed to read join message: %v", err)
		return
	}
	if msg.Type != game.MsgTypeJoin {
		klog.Warningf("Expected join message, got %s", msg.Type)
		conn.Close(websocket.StatusPolicyViolation, "first message must be a join")
		return
	}
	p, err := msg.Parse()
	if err != nil {
		klog.Warningf("Failed to parse join message: %v", err)
		conn.Close(websocket.StatusUnsupportedData, "invalid join message")
		return
	}
	join := p.(*game.JoinMessage)

	c := s.join(conn, join)
	defer s.leave(c)

	c.mu.Lock()
	c.sendState(ctx)
	c.mu.Unlock()

	go c.runClock(ctx)

	for {
		var msg game.WsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				klog.V(1).Infof("Session %s: read error: %v", c.Session.ID, err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

// join creates the session of a new connection.
func (s *ServerState) join(conn *websocket.Conn, join *game.JoinMessage) *Connection {
	powerups := s.rules.StartingPowerups
	if join.Powerups != nil {
		powerups = *join.Powerups
	}
	session := game.NewSession(uuid.NewString(), s.levels, s.rules, powerups)
	c := &Connection{
		PlayerID: join.PlayerID,
		conn:     conn,
		server:   s,
		Session:  session,
	}

	s.mu.Lock()
	s.Sessions[session.ID] = c
	n := len(s.Sessions)
	s.mu.Unlock()
	klog.Infof("Player %q joined: session %s (%d active)", join.PlayerID, session.ID, n)
	return c
}

func (s *ServerState) leave(c *Connection) {
	c.mu.Lock()
	if c.advance != nil {
		c.advance.Stop()
	}
	id, score := c.Session.ID, c.Session.TotalScore()
	c.mu.Unlock()

	s.mu.Lock()
	delete(s.Sessions, id)
	s.mu.Unlock()
	klog.Infof("Session %s closed with score %d", id, score)
}

func (s *ServerState) closeSessions() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.Sessions {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// runClock ticks the session once a second until ctx is done.
func (c *Connection) runClock(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.mu.Lock()
		out := c.Session.Tick()
		if out.Changed {
			if out.Warn || out.Failed {
				c.send(ctx, game.MsgTypeResult, &game.ResultMessage{Warn: out.Warn, Failed: out.Failed})
			}
			c.sendState(ctx)
		}
		c.mu.Unlock()
	}
}

// handle processes one client message.
func (c *Connection) handle(ctx context.Context, msg game.WsMessage) {
	p, err := msg.Parse()
	if err != nil {
		klog.Warningf("Session %s: failed to parse %s message: %v", c.Session.ID, msg.Type, err)
		c.mu.Lock()
		c.sendError(ctx, fmt.Errorf("invalid %s message", msg.Type))
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	session := c.Session
	switch m := p.(type) {
	case *game.ClickMessage:
		out := session.Click(game.Point{X: m.X, Y: m.Y}, m.Transform())
		if out.Ignored {
			c.sendState(ctx)
			return
		}
		klog.V(1).Infof("Session %s: click at %v: matched=%v already=%t", session.ID, out.Base, out.Matched, out.AlreadyFoundHit)
		c.send(ctx, game.MsgTypeResult, &game.ResultMessage{
			Matched:      out.Matched,
			AlreadyFound: out.AlreadyFoundHit,
			Wrong:        out.Wrong(),
			Completed:    out.Completed,
			Failed:       out.Failed,
		})
		if out.Completed {
			c.scheduleAdvance(ctx)
		}

	case *game.PowerupMessage:
		if err := c.usePowerup(ctx, m.Kind); err != nil {
			c.sendError(ctx, err)
		}

	case *game.PauseMessage:
		session.Pause()
	case *game.ResumeMessage:
		session.Resume()
	case *game.RestartMessage:
		if c.advance != nil {
			c.advance.Stop()
		}
		session.Restart()

	case *game.ClaimMessage:
		// Whatever was confirmed is granted, even if a later step failed: the ledger already
		// has it and won't grant it again.
		granted, err := c.claim(ctx, m)
		if !granted.IsZero() {
			session.Grant(granted)
			klog.Infof("Session %s: granted %s", session.ID, granted)
		}
		if err != nil {
			c.sendError(ctx, err)
		}

	default:
		c.sendError(ctx, fmt.Errorf("unexpected %s message", msg.Type))
		return
	}
	c.sendState(ctx)
}

func (c *Connection) usePowerup(ctx context.Context, kind game.PowerupKind) error {
	if kind != game.PowerupHint {
		return c.Session.Use(kind)
	}
	idx, err := c.Session.Hint()
	if err != nil {
		return err
	}
	completed := c.Session.Status() == game.StatusCompleted
	c.send(ctx, game.MsgTypeResult, &game.ResultMessage{Matched: []int{idx}, Completed: completed})
	if completed {
		c.scheduleAdvance(ctx)
	}
	return nil
}

// scheduleAdvance moves on from the completed level after the configured delay.
func (c *Connection) scheduleAdvance(ctx context.Context) {
	c.advance = time.AfterFunc(c.server.rules.CompleteDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := c.Session.Advance(); err != nil {
			// Restarted in the meantime.
			return
		}
		c.sendState(ctx)
	})
}

func (c *Connection) claim(ctx context.Context, m *game.ClaimMessage) (game.Powerups, error) {
	payments := c.server.payments
	if payments == nil {
		return game.Powerups{}, payment.ErrPaymentsDisabled
	}
	var total game.Powerups
	if m.PaymentIntentID != "" {
		conf, err := payments.Confirm(ctx, m.PaymentIntentID)
		if err != nil {
			return game.Powerups{}, err
		}
		total = total.Add(conf.Powerups)
	}
	if m.Email != "" {
		pending, _, err := payments.Claim(ctx, m.Email)
		if err != nil {
			return total, err
		}
		total = total.Add(pending)
	}
	return total, nil
}

// send writes a message to the client. Errors are logged: a broken connection is noticed
// by the read loop.
func (c *Connection) send(ctx context.Context, msgType game.MessageType, payload any) {
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		klog.Errorf("Failed to create %s message: %v", msgType, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		klog.V(1).Infof("Session %s: failed to send %s: %v", c.Session.ID, msgType, err)
	}
}

func (c *Connection) sendState(ctx context.Context) {
	c.send(ctx, game.MsgTypeState, &game.StateMessage{Session: c.Session.Snapshot()})
}

// sendError reports err to the client, with the messages players can act on.
func (c *Connection) sendError(ctx context.Context, err error) {
	message := err.Error()
	switch {
	case errors.Is(err, game.ErrNoPowerup):
		message = "No powerups of this kind left: visit the store to get more"
	case errors.Is(err, game.ErrNotPlaying):
		message = "The level is not being played"
	case errors.Is(err, payment.ErrAlreadyClaimed):
		message = "This purchase was already claimed"
	case errors.Is(err, payment.ErrPaymentIncomplete):
		message = "Payment not completed"
	case errors.Is(err, payment.ErrPaymentsDisabled):
		message = "Purchases are not available"
	}
	c.send(ctx, game.MsgTypeError, &game.ErrorMessage{Message: message})
}
