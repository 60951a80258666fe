package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		server:     "wss://example.com/ws",
		username:   " cal ",
		retries:    5,
		retryDelay: time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, "cal", cfg.username)
	assert.NotEmpty(t, cfg.userID, "a user id is generated")

	cases := map[string]func(*Config){
		"http server":        func(c *Config) { c.server = "http://example.com" },
		"no host":            func(c *Config) { c.server = "ws://" },
		"short username":     func(c *Config) { c.username = "c" },
		"create and join":    func(c *Config) { c.create, c.join = true, "ABC123" },
		"room name w/o crea": func(c *Config) { c.roomName = "ABC123" },
		"bad room name":      func(c *Config) { c.create, c.roomName = true, "ABC" },
		"bad join code":      func(c *Config) { c.join = "ABCDEFG" },
		"zero retries":       func(c *Config) { c.retries = 0 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		assert.Error(t, cfg.validate(), name)
	}
}

func TestNewCmdReadsEnv(t *testing.T) {
	t.Setenv("CODENAMES_USERNAME", "bea")
	t.Setenv("CODENAMES_RETRIES", "7")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, "bea", cfg.username)
	assert.Equal(t, uint(7), cfg.retries)
	assert.Equal(t, "ws://localhost:3000/ws", cfg.server)
}
