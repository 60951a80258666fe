package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/codenames-client/internal/guard"
)

type Config struct {
	server       string
	username     string
	userID       string
	token        string
	create       bool
	roomName     string
	join         string
	inspect      string
	qr           bool
	retries      uint
	retryDelay   time.Duration
	pingInterval time.Duration
	warmup       bool
	verbose      bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid --server (want ws:// or wss:// URL): %q", c.server)
	}
	name, err := guard.ValidateUsername(c.username)
	if err != nil {
		return fmt.Errorf("invalid --username (must be %d-%d characters): %q",
			guard.MinUsernameLen, guard.MaxUsernameLen, c.username)
	}
	c.username = name
	if c.create && c.join != "" {
		return errors.New("--create and --join are mutually exclusive")
	}
	if c.roomName != "" {
		if !c.create {
			return errors.New("--room-name requires --create")
		}
		if _, err := guard.NormalizeRoomCode(c.roomName); err != nil {
			return fmt.Errorf("invalid --room-name (must be %d characters): %q", guard.RoomCodeLen, c.roomName)
		}
	}
	if c.join != "" {
		if _, err := guard.NormalizeRoomCode(c.join); err != nil {
			return fmt.Errorf("invalid --join (must be %d characters): %q", guard.RoomCodeLen, c.join)
		}
	}
	if c.retries < 1 {
		return fmt.Errorf("invalid --retries (must be at least 1): %d", c.retries)
	}
	if c.userID == "" {
		c.userID = uuid.NewString()
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CODENAMES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "codenames-client",
		Short:         "Terminal client for a Codenames game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:3000/ws", "game server WebSocket URL (env: CODENAMES_SERVER)")
	fs.StringVarP(&cfg.username, "username", "u", "", "display name, 2-20 characters (env: CODENAMES_USERNAME)")
	fs.StringVar(&cfg.userID, "user-id", "", "stable user id; random if empty (env: CODENAMES_USER_ID)")
	fs.StringVar(&cfg.token, "token", "", "bearer token sent on connect (env: CODENAMES_TOKEN)")
	fs.BoolVar(&cfg.create, "create", false, "create a room once connected (env: CODENAMES_CREATE)")
	fs.StringVar(&cfg.roomName, "room-name", "", "custom 6-character code for --create (env: CODENAMES_ROOM_NAME)")
	fs.StringVarP(&cfg.join, "join", "j", "", "join the room with this code once connected (env: CODENAMES_JOIN)")
	fs.StringVar(&cfg.inspect, "inspect", "", "serve the projected view on this address, e.g. :8081 (env: CODENAMES_INSPECT)")
	fs.BoolVar(&cfg.qr, "qr", false, "print the room code as a QR code (env: CODENAMES_QR)")
	fs.UintVar(&cfg.retries, "retries", 5, "dial attempts before giving up (env: CODENAMES_RETRIES)")
	fs.DurationVar(&cfg.retryDelay, "retry-delay", time.Second, "initial delay between dial attempts (env: CODENAMES_RETRY_DELAY)")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 25*time.Second, "keepalive ping interval, 0 to disable (env: CODENAMES_PING_INTERVAL)")
	fs.BoolVar(&cfg.warmup, "warmup", true, "wake the server over HTTP before dialing (env: CODENAMES_WARMUP)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CODENAMES_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("codenames-client v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
