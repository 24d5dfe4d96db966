// Package app wires the bot together and owns startup/shutdown ordering.
package app

import (
	"context"
	"time"

	"lootbot/internal/catalog"
	"lootbot/internal/config"
	"lootbot/internal/cycle"
	"lootbot/internal/ledger"
	"lootbot/internal/notifier"
	"lootbot/internal/registry"
	"lootbot/internal/router"
	"lootbot/internal/sched"
	"lootbot/internal/transport"
	"lootbot/internal/transport/telegram"
	"lootbot/internal/web"
	"lootbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	log  logx.Logger
	logs *logx.Service

	adapter  *telegram.Adapter
	registry *registry.Registry
	runner   *cycle.Runner
	router   *router.Router
	sched    *sched.Scheduler
	web      *web.Server

	updates chan transport.Update
}

func New(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO")

	cfgm := config.NewManager(cfgPath, bootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	// The log service can relay warnings to an operator chat through
	// the adapter; plain text, no markup.
	logSvc, log := logx.New(mapLogging(cfg.Logging), func(ctx context.Context, chatID int64, text string) error {
		_, err := adapter.SendText(ctx, chatID, text, nil)
		return err
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	led := ledger.Open(cfg.Storage.LedgerPath, log.With(logx.String("comp", "ledger")))

	reg, err := registry.Open(cfg.Storage.RegistryPath, log.With(logx.String("comp", "registry")))
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := config.ParseDuration("catalog.timeout", cfg.Catalog.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	client := catalog.NewClient(cfg.Catalog.URL, fetchTimeout, log.With(logx.String("comp", "catalog")))
	filter := catalog.NewFilter(cfg.Check.PriceFloorCents, log.With(logx.String("comp", "filter")))
	notif := notifier.New(adapter, cfg.Telegram.RatePerSec, log.With(logx.String("comp", "notifier")))

	runner := cycle.New(client, filter, led, reg, notif, log.With(logx.String("comp", "cycle")))

	rt := router.New(adapter, reg, runner, cfg.Check.Times, log.With(logx.String("comp", "router")))

	schedLog := log.With(logx.String("comp", "sched"))
	schd := sched.New(cfg.Check.Times, cfg.Check.Timezone, func(ctx context.Context) {
		res := runner.Run(ctx)
		if res.Err != nil {
			schedLog.Warn("scheduled check failed", logx.Err(res.Err))
		}
	}, schedLog)

	webSrv := web.New(cfg.Web.Addr, reg, log.With(logx.String("comp", "web")))

	a := &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		adapter:  adapter,
		registry: reg,
		runner:   runner,
		router:   rt,
		sched:    schd,
		web:      webSrv,
		updates:  make(chan transport.Update, 64),
	}
	cfgm.OnReload = a.onReload
	return a, nil
}

// Start brings every component up. Components keep running until ctx ends.
func (a *App) Start(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return err
	}
	go a.router.Run(ctx, a.updates)
	a.web.Start()
	go func() {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watch unavailable", logx.Err(err))
		}
	}()

	a.log.Info("lootbot started")
	return nil
}

// Stop shuts components down in reverse dependency order.
func (a *App) Stop(ctx context.Context) error {
	a.sched.Stop()
	if err := a.web.Stop(ctx); err != nil {
		a.log.Warn("web shutdown error", logx.Err(err))
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("telegram shutdown error", logx.Err(err))
	}
	if err := a.registry.Close(); err != nil {
		a.log.Warn("registry close error", logx.Err(err))
	}
	a.log.Info("lootbot stopped")
	a.logs.Close()
	return nil
}

// onReload applies the safely hot-swappable parts of a new config:
// logging sinks and the check schedule. Everything else (token, storage
// paths, web addr) needs a restart.
func (a *App) onReload(cfg *config.Config) {
	a.logs.Apply(mapLogging(cfg.Logging))
	if err := a.sched.Apply(cfg.Check.Times, cfg.Check.Timezone); err != nil {
		a.log.Warn("schedule reload rejected", logx.Err(err))
	}
}

func mapLogging(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			ChatID:     c.Telegram.ChatID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}
