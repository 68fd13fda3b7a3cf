// Package app wires storage, transport, chat state and the daily broadcast
// into one running bot.
package app

import (
	"context"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"motibot/internal/chat"
	"motibot/internal/config"
	"motibot/internal/llm"
	"motibot/internal/services/broadcast"
	"motibot/internal/services/scheduler"
	"motibot/internal/storage"
	kit "motibot/internal/transport"
	"motibot/internal/transport/telegram"
	logx "motibot/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter
	history *chat.History
	gen     *chat.Generator
	caster  *broadcast.Service
	daily   *scheduler.Daily

	updates chan kit.Update

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.PollTimeoutDuration(),
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeoutDuration(),
	}, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	var completer llm.Completer
	if cfg.Groq.APIKey != "" {
		completer = llm.New(llm.Config{
			APIKey:      cfg.Groq.APIKey,
			BaseURL:     cfg.Groq.BaseURL,
			Model:       cfg.Groq.Model,
			MaxTokens:   cfg.Groq.MaxTokens,
			Temperature: cfg.Groq.Temperature,
		})
	} else {
		log.Warn("no Groq API key configured; replies degrade to fallback text")
	}

	a := &App{
		cfgPath: cfgPath,
		cfg:     cfg,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		history: chat.NewHistory(cfg.Groq.MaxHistory),
		gen:     chat.NewGenerator(completer, logSvc.Logger().With(logx.String("comp", "chat"))),
	}
	a.caster = broadcast.New(
		broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec},
		store, ad,
		logSvc.Logger().With(logx.String("comp", "broadcast")),
	)
	a.daily, err = scheduler.NewDaily(
		"daily-broadcast",
		cfg.Broadcast.Time, cfg.Broadcast.Timezone,
		a.sendDaily,
		logSvc.Logger().With(logx.String("comp", "scheduler")),
	)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	console := true
	if cfg.Logging.Console != nil {
		console = *cfg.Logging.Console
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.updates = make(chan kit.Update, 256)
	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		a.cancel = nil
		return err
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.dispatch(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.daily.Run(runCtx)
	}()

	// Config hot-reload only retargets logging; the broadcast schedule is
	// fixed for the lifetime of the process.
	if cfgCh, err := config.Watch(runCtx, a.cfgPath, a.log); err != nil {
		a.log.Warn("config watch unavailable", logx.Err(err))
	} else {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for cfg := range cfgCh {
				a.logs.Apply(mapLogConfig(cfg))
				a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("bot started",
		logx.String("broadcast_at", a.cfg.Broadcast.Time),
		logx.String("tz", a.cfg.Broadcast.Timezone),
		logx.Bool("generation", a.gen.Configured()),
	)
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.runMu.Unlock()
	if cancel == nil {
		return nil
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	_ = a.adapter.Stop(ctx)
	a.wg.Wait()
	err := a.store.Close()
	a.log.Info("bot stopped")
	_ = a.logs.Close()
	return err
}
