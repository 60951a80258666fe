package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

type Msg interface{ isStoreMsg() }

// Inbound feeds one event to the reducer. Done, if set, must be buffered; it
// receives the reducer's verdict once the event has been applied or ignored.
type Inbound struct {
	Event engine.Event
	Done  chan error
}

func (Inbound) isStoreMsg() {}

type Subscribe struct {
	ID     string
	Outbox chan Update // receives the current snapshot immediately, then every change
}

func (Subscribe) isStoreMsg() {}

type Unsubscribe struct{ ID string }

func (Unsubscribe) isStoreMsg() {}

type GetState struct {
	Reply chan Snapshot
}

func (GetState) isStoreMsg() {}

type Shutdown struct{}

func (Shutdown) isStoreMsg() {}

type Snapshot struct {
	Version int
	Session engine.Session
}

type Update struct {
	Snapshot
	Notices []engine.Notice
}

// Store owns the single authoritative Session. Only its loop goroutine calls
// engine.Apply, so events are folded strictly in arrival order.
type Store struct {
	inbox   chan Msg
	state   engine.Session
	version int
	subs    map[string]chan Update
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewStore(parent context.Context, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Store{
		inbox:  make(chan Msg, 64),
		state:  engine.NewSession(),
		subs:   make(map[string]chan Update),
		log:    log.Named("session"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Subscribe:
				s.subs[msg.ID] = msg.Outbox
				deliver(msg.Outbox, Update{Snapshot: s.snapshot()})

			case Unsubscribe:
				if ch, ok := s.subs[msg.ID]; ok {
					close(ch)
					delete(s.subs, msg.ID)
				}

			case Inbound:
				err := s.apply(msg.Event)
				if msg.Done != nil {
					msg.Done <- err
				}

			case GetState:
				msg.Reply <- s.snapshot()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Store) apply(ev engine.Event) error {
	notices, next, err := engine.Apply(s.state, ev)
	if err != nil {
		s.log.Warn("event ignored",
			zap.String("event", eventName(ev)),
			zap.String("phase", string(s.state.Phase)),
			zap.Error(err),
		)
		return err
	}
	s.state = next
	s.version++
	s.log.Debug("event applied",
		zap.String("event", ev.Name()),
		zap.String("phase", string(next.Phase)),
		zap.Int("version", s.version),
	)
	s.broadcast(Update{Snapshot: s.snapshot(), Notices: notices})
	return nil
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{Version: s.version, Session: s.state}
}

func (s *Store) shutdown() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}

func (s *Store) broadcast(u Update) {
	for _, ch := range s.subs {
		deliver(ch, u)
	}
}

// deliver never blocks the loop. A subscriber that has fallen behind only ever
// holds the newest snapshot; notices from the update it missed are carried over.
func deliver(ch chan Update, u Update) {
	if cap(ch) == 0 {
		select {
		case ch <- u:
		default:
		}
		return
	}
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case stale := <-ch:
			u.Notices = append(stale.Notices, u.Notices...)
		default:
		}
	}
}

func eventName(ev engine.Event) string {
	if ev == nil {
		return "<nil>"
	}
	return ev.Name()
}

// Inbox exposes the inbox so the client and tests can send messages.
func (s *Store) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the loop has exited.
func (s *Store) Done() <-chan struct{} { return s.done }

// Dispatch applies ev and waits for the verdict.
func (s *Store) Dispatch(ctx context.Context, ev engine.Event) error {
	done := make(chan error, 1)
	select {
	case s.inbox <- Inbound{Event: ev, Done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Post queues ev without waiting. It is used from the transport's reader so a
// slow subscriber can never stall socket reads beyond the inbox buffer.
func (s *Store) Post(ev engine.Event) {
	select {
	case s.inbox <- Inbound{Event: ev}:
	case <-s.done:
	}
}

// State returns the current snapshot.
func (s *Store) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrClosed
	}
}

// Close stops the loop and waits for it to exit.
func (s *Store) Close() {
	s.cancel()
	<-s.done
}
