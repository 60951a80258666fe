package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/codenames-client/internal/client"
	"github.com/DoyleJ11/codenames-client/internal/engine"
	"github.com/DoyleJ11/codenames-client/internal/guard"
	"github.com/DoyleJ11/codenames-client/internal/httpapi"
	"github.com/DoyleJ11/codenames-client/internal/session"
	"github.com/DoyleJ11/codenames-client/internal/transport"
	"github.com/DoyleJ11/codenames-client/internal/view"
)

var errConnectionFailed = errors.New("connection failed")

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) (err error) {
	log, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := transport.New(transport.Options{
		URL:          cfg.server,
		MaxAttempts:  cfg.retries,
		InitialDelay: cfg.retryDelay,
		PingInterval: cfg.pingInterval,
		Logger:       log,
	})
	c := client.New(ctx, tr, log)
	defer c.Close()

	if cfg.warmup {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := tr.Warmup(wctx); err != nil {
			log.Warn("warmup failed", zap.Error(err))
		}
		cancel()
	}

	updates := make(chan session.Update, 16)
	c.Subscribe("cli", updates)

	identity := engine.Identity{UserID: cfg.userID, Username: cfg.username, AuthToken: cfg.token}
	if err := c.Connect(ctx, identity); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.inspect != "" {
		srv = &http.Server{
			Addr:              cfg.inspect,
			Handler:           httpapi.SetupRoutes(c),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("inspector listening", zap.String("addr", cfg.inspect))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	u := &ui{c: c, cfg: cfg, out: out, log: log}
	lines := readLines(in)
	g.Go(func() error { return u.loop(gctx, updates, lines) })

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}
	return multierr.Append(err, c.Logout(context.Background()))
}

// readLines feeds stdin lines to the loop; reads cannot be cancelled, so the
// goroutine ends only at EOF.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

type ui struct {
	c   *client.Client
	cfg *Config
	out io.Writer
	log *zap.Logger

	phase    engine.Phase
	version  int
	rendered bool
	autoDone bool
	qrShown  bool
}

func (u *ui) loop(ctx context.Context, updates <-chan session.Update, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if err := u.onUpdate(ctx, up); err != nil {
				return err
			}

		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if line == "" {
				continue
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(u.out, "!", err)
				continue
			}
			if err := u.exec(ctx, cmd); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Fprintln(u.out, "!", describe(err))
			}
		}
	}
}

func (u *ui) onUpdate(ctx context.Context, up session.Update) error {
	for _, n := range up.Notices {
		switch n.Kind {
		case engine.NoticeConnectionFailed:
			fmt.Fprintln(u.out, "! could not reach the server:", n.Message)
			return fmt.Errorf("%w: %s", errConnectionFailed, n.Message)
		case engine.NoticePresence:
			fmt.Fprintf(u.out, "* %s %s\n", n.Message, presenceVerb(n.Event))
		case engine.NoticeGameOver:
			fmt.Fprintln(u.out, "*", n.Message)
		default:
			fmt.Fprintf(u.out, "! %s: %s\n", n.Event, n.Message)
		}
	}

	// Every new snapshot is drawn again; a redelivered version is not.
	if u.rendered && up.Version <= u.version {
		return nil
	}
	u.rendered, u.version = true, up.Version

	s := up.Session
	if s.Phase != u.phase {
		u.phase = s.Phase
		fmt.Fprintf(u.out, "-- %s\n", s.Phase)
		if s.Phase == engine.PhaseInLobby && !u.autoDone {
			u.autoDone = true
			return u.autoRoom(ctx)
		}
	}

	v := view.Build(s)
	switch {
	case s.Phase.InRoom():
		if u.cfg.qr && !u.qrShown && v.RoomCode != "" {
			u.qrShown = true
			if err := renderQR(u.out, v.RoomCode); err != nil {
				u.log.Warn("qr", zap.Error(err))
			}
		}
		renderPlayers(u.out, v)

	case s.Phase.InGame() || s.Phase == engine.PhaseGameOver:
		renderBoard(u.out, v)
	}
	return nil
}

func (u *ui) autoRoom(ctx context.Context) error {
	var err error
	switch {
	case u.cfg.create:
		err = u.c.CreateRoom(ctx, u.cfg.roomName, u.cfg.username)
	case u.cfg.join != "":
		err = u.c.JoinRoom(ctx, u.cfg.join, u.cfg.username)
	default:
		fmt.Fprintln(u.out, "connected; type help for commands")
		return nil
	}
	if err != nil {
		fmt.Fprintln(u.out, "!", describe(err))
	}
	return nil
}

func (u *ui) exec(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case cmdCreate:
		return u.c.CreateRoom(ctx, cmd.code, u.cfg.username)
	case cmdJoin:
		return u.c.JoinRoom(ctx, cmd.code, u.cfg.username)
	case cmdLeave:
		return u.c.LeaveRoom(ctx)
	case cmdRole:
		return u.c.SetRole(ctx, cmd.team, cmd.role)
	case cmdStart:
		return u.c.StartGame(ctx)
	case cmdClue:
		return u.c.GiveClue(ctx, cmd.word, cmd.count)
	case cmdGuess:
		return u.c.MakeGuess(ctx, cmd.index)
	case cmdEnd:
		return u.c.EndTurn(ctx)
	case cmdBoard:
		v, err := u.c.View(ctx)
		if err != nil {
			return err
		}
		renderBoard(u.out, v)
	case cmdPlayers:
		v, err := u.c.View(ctx)
		if err != nil {
			return err
		}
		renderPlayers(u.out, v)
	case cmdHelp:
		fmt.Fprintln(u.out, helpText)
	case cmdQuit:
		return errQuit
	}
	return nil
}

func describe(err error) string {
	if reason := guard.ReasonOf(err); reason != "" {
		return "rejected: " + string(reason)
	}
	return err.Error()
}

func presenceVerb(event string) string {
	if event == engine.EvtPlayerReconnected {
		return "reconnected"
	}
	return "disconnected"
}
