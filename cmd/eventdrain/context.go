package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/zero-day-ai/eventdrain"
	"github.com/zero-day-ai/eventdrain/config"
	"github.com/zero-day-ai/eventdrain/queue"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	lookupEnv    func(string) (string, bool)

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, lookupEnv func(string) (string, bool)) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		lookupEnv:    lookupEnv,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Resolve(path, c.lookupEnv)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.LogLevel = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// validConfig returns the resolved configuration after validation. A missing
// Redis host is a startup fault.
func (c *commandContext) validConfig(op string) (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, eventdrain.ErrMissingRedisHost) {
			return nil, eventdrain.NewStartupError(op, err)
		}
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func redisOptions(cfg *config.Config) queue.RedisOptions {
	return queue.RedisOptions{
		URL:            queue.URLFromHost(cfg.Redis.Host),
		ConnectTimeout: cfg.Redis.GetConnectTimeout(),
	}
}
