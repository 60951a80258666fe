package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/codenames-client/internal/engine"
	"github.com/DoyleJ11/codenames-client/internal/types"
)

var (
	ErrNotConnected     = errors.New("transport: not connected")
	ErrAlreadyConnected = errors.New("transport: already connected")
)

// Handler receives the raw payload of one inbound frame. Handlers are called
// one at a time, in the order frames were read within an epoch.
type Handler func(data json.RawMessage)

type Options struct {
	URL          string
	MaxAttempts  uint          // dial attempts per (re)connect cycle
	InitialDelay time.Duration // first retry delay, doubled up to MaxDelay
	MaxDelay     time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration // zero disables keepalive pings
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

func (o *Options) setDefaults() {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.InitialDelay == 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Adapter owns at most one logical connection. Its handler registry outlives
// every epoch, so handlers registered before or after Connect see all frames.
type Adapter struct {
	opts Options
	log  *zap.Logger

	hmu      sync.RWMutex
	handlers map[string][]Handler

	mu     sync.Mutex
	epoch  *epoch
	cancel context.CancelFunc
	done   chan struct{}
}

// epoch is one established connection, bounded by connect and disconnect.
type epoch struct {
	id   string
	out  chan types.Frame
	done <-chan struct{}
}

func New(opts Options) *Adapter {
	opts.setDefaults()
	return &Adapter{
		opts:     opts,
		log:      opts.Logger.Named("transport"),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers h for event. Registration is permanent.
func (a *Adapter) Subscribe(event string, h Handler) {
	a.hmu.Lock()
	defer a.hmu.Unlock()
	a.handlers[event] = append(a.handlers[event], h)
}

func (a *Adapter) dispatch(event string, data json.RawMessage) {
	a.hmu.RLock()
	hs := a.handlers[event]
	a.hmu.RUnlock()
	if len(hs) == 0 {
		a.log.Debug("no handler", zap.String("event", event))
		return
	}
	for _, h := range hs {
		h(data)
	}
}

func (a *Adapter) dispatchLifecycle(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.log.Error("marshal lifecycle event", zap.String("event", event), zap.Error(err))
		return
	}
	a.dispatch(event, data)
}

// Connect starts the connection supervisor and returns immediately; progress
// is reported through the lifecycle events. token is sent as a bearer token.
func (a *Adapter) Connect(ctx context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.supervise(ctx, token, a.done)
	return nil
}

// Disconnect closes the connection and stops reconnecting. It blocks until
// the final disconnect event has been dispatched.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Emit queues one outbound frame on the live epoch.
func (a *Adapter) Emit(ctx context.Context, event string, payload any) error {
	f, err := types.NewFrame(event, payload)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", event, err)
	}
	a.mu.Lock()
	ep := a.epoch
	a.mu.Unlock()
	if ep == nil {
		return ErrNotConnected
	}
	select {
	case ep.out <- f:
		return nil
	case <-ep.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether an epoch is live.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch != nil
}

func (a *Adapter) supervise(ctx context.Context, token string, done chan struct{}) {
	defer func() {
		a.mu.Lock()
		a.cancel()
		a.cancel, a.done = nil, nil
		a.mu.Unlock()
		close(done)
	}()

	reconnecting := false
	for {
		conn, err := a.dial(ctx, token, reconnecting)
		if err != nil {
			if ctx.Err() != nil {
				a.dispatchLifecycle(engine.EvtDisconnect, types.DisconnectData{Reason: "client disconnect"})
				return
			}
			a.log.Warn("giving up", zap.Error(err))
			a.dispatchLifecycle(engine.EvtReconnectFailed, types.ReconnectFailedData{Message: err.Error()})
			return
		}

		reason := a.serve(ctx, conn)
		if ctx.Err() != nil {
			a.dispatchLifecycle(engine.EvtDisconnect, types.DisconnectData{Reason: "client disconnect"})
			return
		}
		a.dispatchLifecycle(engine.EvtDisconnect, types.DisconnectData{Reason: reason, WillRetry: true})
		reconnecting = true
	}
}

func (a *Adapter) dial(ctx context.Context, token string, reconnecting bool) (*websocket.Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	attempt := 0
	op := func() (*websocket.Conn, error) {
		attempt++
		if reconnecting {
			a.dispatchLifecycle(engine.EvtReconnectAttempt, types.ReconnectAttemptData{Attempt: attempt})
		}
		conn, resp, err := websocket.Dial(ctx, a.opts.URL, &websocket.DialOptions{
			HTTPClient: a.opts.HTTPClient,
			HTTPHeader: header,
		})
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		a.dispatchLifecycle(engine.EvtConnectError, types.ConnectErrorData{Message: err.Error(), Attempt: attempt})
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.opts.InitialDelay
	b.MaxInterval = a.opts.MaxDelay

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(a.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.log.Info("dial failed, retrying", zap.Error(err), zap.Duration("in", next))
		}),
	)
}

// serve runs one epoch until the connection drops or ctx is cancelled, and
// returns the disconnect reason.
func (a *Adapter) serve(ctx context.Context, conn *websocket.Conn) string {
	g, gctx := errgroup.WithContext(ctx)
	ep := &epoch{
		id:   uuid.NewString(),
		out:  make(chan types.Frame, 16),
		done: gctx.Done(),
	}
	log := a.log.With(zap.String("epoch", ep.id))

	a.mu.Lock()
	a.epoch = ep
	a.mu.Unlock()
	log.Info("connected", zap.String("url", a.opts.URL))

	g.Go(func() error { return a.readLoop(gctx, conn, log) })
	g.Go(func() error { return a.writeLoop(gctx, conn, ep.out) })
	err := g.Wait()

	a.mu.Lock()
	a.epoch = nil
	a.mu.Unlock()

	if ctx.Err() != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	} else {
		_ = conn.CloseNow()
	}

	reason := "connection lost"
	if err != nil {
		reason = err.Error()
	}
	log.Info("disconnected", zap.String("reason", reason))
	return reason
}

func (a *Adapter) readLoop(ctx context.Context, conn *websocket.Conn, log *zap.Logger) error {
	first := true
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return errors.New("server closed connection")
			}
			return err
		}

		var f types.Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			log.Warn("bad frame", zap.ByteString("data", data), zap.Error(err))
			continue
		}

		// The server's handshake carries our connection id; if it never comes,
		// the epoch still starts with an anonymous connect.
		if first {
			first = false
			if f.Event != engine.EvtConnect {
				a.dispatch(engine.EvtConnect, nil)
			}
		}
		a.dispatch(f.Event, f.Data)
	}
}

func (a *Adapter) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan types.Frame) error {
	var tick <-chan time.Time
	if a.opts.PingInterval > 0 {
		t := time.NewTicker(a.opts.PingInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case f := <-out:
			payload, err := json.Marshal(f)
			if err != nil {
				return err
			}
			wctx, cancel := context.WithTimeout(ctx, a.opts.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return err
			}

		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, a.opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}
