package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

var errQuit = errors.New("quit")

type commandKind string

const (
	cmdCreate  commandKind = "create"
	cmdJoin    commandKind = "join"
	cmdLeave   commandKind = "leave"
	cmdRole    commandKind = "role"
	cmdStart   commandKind = "start"
	cmdClue    commandKind = "clue"
	cmdGuess   commandKind = "guess"
	cmdEnd     commandKind = "end"
	cmdBoard   commandKind = "board"
	cmdPlayers commandKind = "players"
	cmdHelp    commandKind = "help"
	cmdQuit    commandKind = "quit"
)

type command struct {
	kind  commandKind
	code  string
	team  engine.Team
	role  engine.Role
	word  string
	count int
	index int
}

const helpText = `commands:
  create [CODE]        create a room, optionally with a custom code
  join CODE            join a room
  leave                leave the room and go back to the lobby
  role TEAM ROLE       pick a seat, e.g. "role red spymaster"
  start                start the game (host only)
  clue WORD N          give a clue for N words
  guess I              reveal card I (0-24)
  end                  end your team's turn
  board                show the board
  players              show the room
  quit                 exit`

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errors.New("empty command")
	}
	kind := commandKind(strings.ToLower(fields[0]))
	args := fields[1:]

	switch kind {
	case cmdLeave, cmdStart, cmdEnd, cmdBoard, cmdPlayers, cmdHelp, cmdQuit:
		if len(args) != 0 {
			return command{}, fmt.Errorf("%s takes no arguments", kind)
		}
		return command{kind: kind}, nil

	case cmdCreate:
		if len(args) > 1 {
			return command{}, errors.New("usage: create [CODE]")
		}
		c := command{kind: kind}
		if len(args) == 1 {
			c.code = args[0]
		}
		return c, nil

	case cmdJoin:
		if len(args) != 1 {
			return command{}, errors.New("usage: join CODE")
		}
		return command{kind: kind, code: args[0]}, nil

	case cmdRole:
		if len(args) != 2 {
			return command{}, errors.New("usage: role TEAM ROLE")
		}
		return command{
			kind: kind,
			team: engine.Team(strings.ToUpper(args[0])),
			role: engine.Role(strings.ToUpper(args[1])),
		}, nil

	case cmdClue:
		if len(args) < 2 {
			return command{}, errors.New("usage: clue WORD N")
		}
		n, err := strconv.Atoi(args[len(args)-1])
		if err != nil {
			return command{}, fmt.Errorf("clue count: %w", err)
		}
		return command{kind: kind, word: strings.Join(args[:len(args)-1], " "), count: n}, nil

	case cmdGuess:
		if len(args) != 1 {
			return command{}, errors.New("usage: guess I")
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return command{}, fmt.Errorf("card index: %w", err)
		}
		return command{kind: kind, index: i}, nil
	}
	return command{}, fmt.Errorf("unknown command %q (try help)", fields[0])
}
