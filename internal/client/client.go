// Package client is the root object of a game session. It owns the one Session
// per process: inbound frames are decoded and folded by the store, and every
// outbound intent passes its guard before it reaches the transport.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/codenames-client/internal/engine"
	"github.com/DoyleJ11/codenames-client/internal/guard"
	"github.com/DoyleJ11/codenames-client/internal/session"
	"github.com/DoyleJ11/codenames-client/internal/transport"
	"github.com/DoyleJ11/codenames-client/internal/types"
	"github.com/DoyleJ11/codenames-client/internal/view"
)

var ErrAlreadyConnected = errors.New("client: already connected")

// Transport is the part of transport.Adapter the client depends on.
type Transport interface {
	Subscribe(event string, h transport.Handler)
	Connect(ctx context.Context, token string) error
	Emit(ctx context.Context, event string, payload any) error
	Disconnect()
}

type Client struct {
	tr       Transport
	store    *session.Store
	inflight *guard.Inflight
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New wires every inbound event to the store exactly once.
func New(parent context.Context, tr Transport, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		tr:       tr,
		store:    session.NewStore(ctx, log),
		inflight: guard.NewInflight(),
		log:      log.Named("client"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, name := range types.InboundEvents {
		tr.Subscribe(name, func(data json.RawMessage) { c.handle(name, data) })
	}
	return c
}

// handle runs on the transport's reader. The event is applied before its
// intent is released, so a guard never sees a cleared intent with stale state.
func (c *Client) handle(name string, data json.RawMessage) {
	defer c.inflight.Observe(name)
	if name == engine.EvtRoomError && c.inflight.IsPending(guard.IntentJoinRoom) {
		defer c.apply(c.ctx, engine.JoinAbandoned{})
	}

	ev, err := types.Decode(name, data)
	if err != nil {
		c.log.Warn("dropping inbound frame", zap.String("event", name), zap.Error(err))
		return
	}
	c.apply(c.ctx, ev)
}

func (c *Client) apply(ctx context.Context, ev engine.Event) {
	if err := c.store.Dispatch(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug("event not applied", zap.String("event", ev.Name()), zap.Error(err))
	}
}

func (c *Client) session(ctx context.Context) (engine.Session, error) {
	snap, err := c.store.State(ctx)
	return snap.Session, err
}

// Connect opens the connection for id. The connection lives until Logout or
// Close, not until ctx is done.
func (c *Client) Connect(ctx context.Context, id engine.Identity) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if s.Connection != engine.ConnDisconnected {
		return ErrAlreadyConnected
	}
	if err := c.store.Dispatch(ctx, engine.ConnectRequested{Identity: id}); err != nil {
		return err
	}
	c.log.Info("connecting", zap.String("username", id.Username))
	return c.tr.Connect(c.ctx, id.AuthToken)
}

func (c *Client) CreateRoom(ctx context.Context, customName, username string) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.CreateRoom(s, customName, username); err != nil {
		return err
	}
	name, _ := guard.ValidateUsername(username)
	code := ""
	if strings.TrimSpace(customName) != "" {
		code, _ = guard.NormalizeRoomCode(customName)
	}
	return c.emit(ctx, guard.IntentCreateRoom, types.EvtCreateRoom, types.CreateRoom{
		CustomName: code,
		Username:   name,
		UserID:     s.Identity.UserID,
	})
}

func (c *Client) JoinRoom(ctx context.Context, roomCode, username string) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.JoinRoom(s, roomCode, username); err != nil {
		return err
	}
	code, _ := guard.NormalizeRoomCode(roomCode)
	name, _ := guard.ValidateUsername(username)

	if err := c.inflight.Begin(guard.IntentJoinRoom); err != nil {
		return err
	}
	if err := c.store.Dispatch(ctx, engine.JoinRequested{Code: code}); err != nil {
		c.inflight.Cancel(guard.IntentJoinRoom)
		return err
	}
	payload := types.JoinRoom{RoomCode: code, Username: name, UserID: s.Identity.UserID}
	if err := c.tr.Emit(ctx, types.EvtJoinRoom, payload); err != nil {
		c.apply(c.ctx, engine.JoinAbandoned{})
		c.inflight.Cancel(guard.IntentJoinRoom)
		return err
	}
	return nil
}

// LeaveRoom drops the room locally and returns to the lobby. The server has no
// leave event; a later createRoom or joinRoom replaces the membership.
func (c *Client) LeaveRoom(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.LeaveRoom(s); err != nil {
		return err
	}
	if err := c.store.Dispatch(ctx, engine.RoomLeft{}); err != nil {
		return err
	}
	c.inflight.Clear()
	c.log.Info("left room", zap.String("room", s.Room.Code))
	return nil
}

func (c *Client) SetRole(ctx context.Context, team engine.Team, role engine.Role) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.SetRole(s, team, role); err != nil {
		return err
	}
	return c.emit(ctx, guard.IntentSetRole, types.EvtSetRole, types.SetRole{Team: team, Role: role})
}

func (c *Client) StartGame(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.StartGame(s); err != nil {
		return err
	}
	return c.emit(ctx, guard.IntentStartGame, types.EvtStartGame, nil)
}

func (c *Client) GiveClue(ctx context.Context, text string, count int) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.GiveClue(s, text, count); err != nil {
		return err
	}
	return c.emit(ctx, guard.IntentGiveClue, types.EvtGiveClue, types.GiveClue{Clue: strings.TrimSpace(text), Count: count})
}

func (c *Client) MakeGuess(ctx context.Context, cardIndex int) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.MakeGuess(s, cardIndex); err != nil {
		return err
	}
	return c.emit(ctx, guard.IntentMakeGuess, types.EvtMakeGuess, types.MakeGuess{CardIndex: cardIndex})
}

func (c *Client) EndTurn(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := guard.EndTurn(s); err != nil {
		return err
	}
	return c.emit(ctx, guard.IntentEndTurn, types.EvtEndTurn, nil)
}

func (c *Client) emit(ctx context.Context, intent guard.Intent, event string, payload any) error {
	if err := c.inflight.Begin(intent); err != nil {
		return err
	}
	if err := c.tr.Emit(ctx, event, payload); err != nil {
		c.inflight.Cancel(intent)
		return err
	}
	c.log.Debug("emitted", zap.String("event", event))
	return nil
}

// Pending reports whether intent is waiting for the server's answer.
func (c *Client) Pending(intent guard.Intent) bool { return c.inflight.IsPending(intent) }

// Logout closes the connection and drops the whole Session, token included.
func (c *Client) Logout(ctx context.Context) error {
	c.tr.Disconnect()
	c.log.Info("logged out")
	return c.store.Dispatch(ctx, engine.LoggedOut{})
}

func (c *Client) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return c.store.State(ctx)
}

// View returns the role-scoped view of the current session.
func (c *Client) View(ctx context.Context) (view.View, error) {
	s, err := c.session(ctx)
	if err != nil {
		return view.View{}, err
	}
	return view.Build(s), nil
}

// Subscribe delivers the current snapshot and then every change to out.
func (c *Client) Subscribe(id string, out chan session.Update) {
	c.send(session.Subscribe{ID: id, Outbox: out})
}

func (c *Client) Unsubscribe(id string) {
	c.send(session.Unsubscribe{ID: id})
}

func (c *Client) send(m session.Msg) {
	select {
	case c.store.Inbox() <- m:
	case <-c.store.Done():
	}
}

// Close disconnects and stops the store.
func (c *Client) Close() {
	c.tr.Disconnect()
	c.cancel()
	c.store.Close()
}
