// Package app wires the school bot: configuration, storage, the Telegram
// runtime and the conversation engine.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schoolbot/core/bootstrap"
	corecmd "github.com/m3rciful/schoolbot/core/cmd"
	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/metrics"
	coretelegram "github.com/m3rciful/schoolbot/core/telegram"
	"github.com/m3rciful/schoolbot/core/telegram/commands"
	"github.com/m3rciful/schoolbot/core/telegram/helpers"
	"github.com/m3rciful/schoolbot/core/telegram/router"
	"github.com/m3rciful/schoolbot/core/telegram/sender"
	"github.com/m3rciful/schoolbot/internal/auth"
	"github.com/m3rciful/schoolbot/internal/broadcast"
	"github.com/m3rciful/schoolbot/internal/channel"
	"github.com/m3rciful/schoolbot/internal/flow"
	"github.com/m3rciful/schoolbot/internal/posts"
	"github.com/m3rciful/schoolbot/internal/results"
	"github.com/m3rciful/schoolbot/internal/storage"
	"github.com/m3rciful/schoolbot/migrations"
)

// App is the assembled bot.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	store   *storage.SQL
	client  *channel.Telebot
	metrics *metrics.Metrics
	engine  *flow.Engine
	adapter *flow.Adapter
	server  *metrics.Server
}

// LoadConfig adapts Load to core/cmd.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap adapts Build to core/cmd.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := Build(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Build runs the bootstrap pipeline and assembles the app. Zero fields of
// opts are filled from cfg.
func Build(ctx context.Context, cfg *Config, opts bootstrap.Options) (*App, error) {
	if opts.Config == nil {
		opts.Config = &cfg.Config
	}
	if opts.Database.Driver == "" {
		opts.Database = cfg.Database
	}
	if opts.Migrations == nil {
		opts.Migrations = migrations.FS
	}
	opts.Modules.Seeders = append(opts.Modules.Seeders, resultsSeeder(cfg.School.ResultsFile))

	res, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

func resultsSeeder(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, _ bootstrap.Storage) error {
		created, err := results.EnsureSample(path)
		if err != nil {
			return err
		}
		if created {
			logger.LogEvent(ctx, logger.SEED, slog.LevelInfo, "results.sample",
				slog.String("status", "ok"),
				slog.String("file", path),
			)
		}
		return nil
	})
}

// New assembles the app on an open, migrated database. The Telegram client
// stays unbound until the runtime starts.
func New(cfg *Config, db *sqlx.DB) *App {
	a := &App{
		cfg:     cfg,
		db:      db,
		store:   storage.NewSQL(db),
		client:  channel.NewTelebot(nil),
		metrics: metrics.New(),
	}
	s := cfg.School
	ch := channel.Ref(s.ChannelID)
	var support tele.Recipient
	if s.SupportID != 0 {
		support = tele.ChatID(s.SupportID)
	}

	a.engine = flow.New(flow.Config{
		Client:      a.client,
		Gate:        auth.NewGate(a.client, ch, s.AdminSecret),
		Posts:       posts.New(a.store, a.client, ch),
		Broadcast:   broadcast.New(a.store, a.client, broadcast.Options{PerSecond: s.BroadcastRate, Metrics: a.metrics}),
		Subscribers: a.store,
		Results:     results.New(s.ResultsFile),
		SupportChat: support,
		ChannelURL:  s.ChannelURL,
		RecentPosts: s.RecentPosts,
		ResultsTTL:  time.Duration(s.ResultsTTLSeconds) * time.Second,
		Metrics:     a.metrics,
		Discard:     queuedDelete(a.client),
	})
	a.adapter = flow.NewAdapter(a.engine)
	return a
}

// queuedDelete removes user messages through the shared send queue so the
// handler does not wait on the API.
func queuedDelete(client channel.Client) func(context.Context, channel.Message) {
	return func(ctx context.Context, msg channel.Message) {
		ctx = context.WithoutCancel(ctx)
		_ = helpers.Dispatch(ctx, "delete.input", "deleteMessage", func() error {
			return client.Delete(ctx, msg)
		})
	}
}

// Engine exposes the conversation engine.
func (a *App) Engine() *flow.Engine { return a.engine }

// Registry builds the command and callback registry.
func (a *App) Registry() (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{flow.CmdStart, commands.Command{Description: "Start the bot"}},
		{flow.CmdCancel, commands.Command{Description: "Cancel and return to the main menu"}},
		{flow.CmdAdmin, commands.Command{Description: "Admin login", Hidden: true}},
	}
	for _, c := range cmds {
		c.cmd.Handler = a.adapter.CommandHandler(c.name)
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	if err := reg.RegisterCallbacks(flow.CallbackKeys(), a.adapter.Button); err != nil {
		return nil, fmt.Errorf("app: register callbacks: %w", err)
	}
	return reg, nil
}

// TelegramRunOptions assembles the runtime options.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg, err := a.Registry()
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Expired: "This button is no longer active."}))
	routes = append(routes, router.TextRoutes(a.adapter, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.metrics, nil),
		Routes:      routes,
		DispatcherOptions: sender.Options{
			MaxRetries: 2,
			OnFailure:  a.metrics.SendFailure,
		},
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.client.Bind(rt.Bot)
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return nil
	}
	srv, err := metrics.Start(listen, a.metrics, a.store)
	if err != nil {
		return err
	}
	a.server = srv
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	var firstErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}
	return firstErr
}
