package guard

import (
	"sync"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

// Intent names an outbound action; values are the wire event names.
type Intent string

const (
	IntentCreateRoom Intent = "createRoom"
	IntentJoinRoom   Intent = "joinRoom"
	IntentSetRole    Intent = "setRole"
	IntentStartGame  Intent = "startGame"
	IntentGiveClue   Intent = "giveClue"
	IntentMakeGuess  Intent = "makeGuess"
	IntentEndTurn    Intent = "endTurn"
)

// There is no request/response correlation on the wire, so an intent stays
// pending until any of these inbound events arrives.
var terminators = map[Intent][]string{
	IntentCreateRoom: {engine.EvtRoomCreated, engine.EvtRoomError},
	IntentJoinRoom:   {engine.EvtRoomUpdate, engine.EvtRoomError},
	IntentSetRole:    {engine.EvtRoomUpdate, engine.EvtRoleError, engine.EvtRoomError},
	IntentStartGame:  {engine.EvtGameStarted, engine.EvtGameError, engine.EvtRoomError},
	IntentGiveClue:   {engine.EvtClueGiven, engine.EvtClueError, engine.EvtGameError},
	IntentMakeGuess:  {engine.EvtCardRevealed, engine.EvtGuessError, engine.EvtGameError, engine.EvtGameUpdate},
	IntentEndTurn:    {engine.EvtGameUpdate, engine.EvtGameError},
}

// Inflight suppresses duplicate emits of the same intent while one is outstanding.
type Inflight struct {
	mu      sync.Mutex
	pending map[Intent]bool
}

func NewInflight() *Inflight {
	return &Inflight{pending: make(map[Intent]bool)}
}

// Begin marks the intent pending, or rejects with Pending if it already is.
func (f *Inflight) Begin(i Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending[i] {
		return reject(Pending)
	}
	f.pending[i] = true
	return nil
}

// Cancel clears an intent whose emit never left the client.
func (f *Inflight) Cancel(i Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, i)
}

// Observe clears every intent terminated by the inbound event. A disconnect
// ends the epoch, so nothing pending can be answered any more.
func (f *Inflight) Observe(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == engine.EvtDisconnect {
		clear(f.pending)
		return
	}
	for i := range f.pending {
		for _, name := range terminators[i] {
			if name == event {
				delete(f.pending, i)
				break
			}
		}
	}
}

// Clear forgets every pending intent.
func (f *Inflight) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.pending)
}

func (f *Inflight) IsPending(i Intent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[i]
}
