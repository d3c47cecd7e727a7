package app

import (
	"context"
	"fmt"

	"deskchat/internal/retention"
	"deskchat/pkg/api/handlers"
	"deskchat/pkg/bot"
	"deskchat/pkg/config"
	"deskchat/pkg/llm"
	"deskchat/pkg/logger"
	"deskchat/pkg/store"
	"deskchat/pkg/validation"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App holds the wired service.
type App struct {
	res       config.EffectiveConfigResult
	retention *retention.Runner
}

// New validates configuration and wires the service components.
func New(res config.EffectiveConfigResult) (*App, error) {
	cfg := &res.Config

	logger.Init(cfg.Logging.Level)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	config.SetRuntime(&config.RuntimeConfig{
		TokenSecrets: cfg.Security.Token.Secrets,
		TokenTTL:     cfg.Security.Token.TTL.Duration(),
	})
	validation.SetLimits(validation.Limits{
		MaxMessageLen:  cfg.Validation.MaxMessageLen,
		MaxQuestionLen: cfg.Validation.MaxQuestionLen,
		MaxAnswerLen:   cfg.Validation.MaxAnswerLen,
		MaxKeywords:    cfg.Validation.MaxKeywords,
	})

	if err := store.Open(cfg.Server.DBPath); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var completer llm.Completer
	if cfg.LLM.APIKey != "" {
		c, err := llm.New(cfg.LLM)
		if err != nil {
			store.Close()
			return nil, err
		}
		completer = c
	} else {
		logger.Warn("llm_disabled", "reason", "no api key configured; unmatched messages get the fallback reply")
	}

	handlers.SetChatRouter(&bot.Router{
		Completer:     completer,
		HistoryWindow: cfg.Chat.HistoryWindow,
		ReplyDelay:    cfg.Chat.ReplyDelay.Duration(),
		Apology:       cfg.Chat.Apology,
		SystemPrompt:  cfg.Chat.SystemPrompt,
	})

	a := &App{res: res}
	if cfg.Retention.Enabled {
		r, err := retention.New(cfg.Retention)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.retention = r
	}
	return a, nil
}

// Run serves HTTP until ctx is canceled, then shuts down cleanly.
func (a *App) Run(ctx context.Context) error {
	if a.retention != nil {
		go a.retention.Run(ctx)
	}
	err := a.serveHTTP(ctx)
	if cerr := store.Close(); cerr != nil {
		logger.Error("store_close_failed", "err", cerr)
	}
	return err
}
