package web

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "CAPTCHA_LISTEN"
	EnvDevMode    = "CAPTCHA_DEV"
	EnvRedisAddr  = "CAPTCHA_REDIS_ADDR"
)

// ServerConfig contains settings for running the HTTP server.
//
// RedisAddr is optional; when empty challenges are kept in memory.
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
	RedisAddr  string
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	listenAddr := os.Getenv(EnvListenAddr)
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	devMode := false
	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		devMode = parsed
	}

	return ServerConfig{
		ListenAddr: listenAddr,
		DevMode:    devMode,
		RedisAddr:  os.Getenv(EnvRedisAddr),
	}, nil
}
