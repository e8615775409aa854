package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/internal/discord"
	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/admin"
	"github.com/goliatone/go-orderwizard/pkg/config"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// CoreModule provides the stores, the catalog, the mail transport and both
// wizards.
var CoreModule = fx.Module("core",
	fx.Provide(
		newLogger,
		openDatabase,
		fx.Annotate(newGate, fx.As(new(access.Gate))),
		newCodeStore,
		fx.Annotate(newProfiles, fx.As(new(profile.Store))),
		newRegistry,
		newSender,
		newSessions,
		newWizard,
		newSettings,
		newComposer,
	),
)

// SweeperModule expires idle wizard sessions and admin tokens.
var SweeperModule = fx.Module("sweeper",
	fx.Invoke(runSweeper),
)

// AdminModule serves the admin HTTP API.
var AdminModule = fx.Module("admin",
	fx.Provide(newAdminServer),
	fx.Invoke(runAdmin),
)

// DiscordModule runs the Discord bot when a token is configured.
var DiscordModule = fx.Module("discord",
	fx.Invoke(runDiscord),
)

// Server returns the options of the long running service.
func Server(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		CoreModule,
		SweeperModule,
		AdminModule,
		DiscordModule,
	)
}

// Run starts the core module, calls fn with its dependencies (an fx.Invoke
// target) and stops again. It backs the one-shot CLI commands.
func Run(ctx context.Context, cfg config.Config, fn any) error {
	app := fx.New(
		fx.Supply(cfg),
		fx.NopLogger,
		CoreModule,
		fx.Invoke(fn),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.WithoutCancel(ctx))
}

type sweeperParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Sessions  *wizard.SessionStore
	Admin     *admin.Server `optional:"true"`
}

func runSweeper(p sweeperParams) {
	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go p.Sessions.Run(ctx, p.Config.Session.SweepInterval)
			if p.Admin != nil {
				go sweepTokens(ctx, p.Admin.Tokens(), p.Config.Session.SweepInterval)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func sweepTokens(ctx context.Context, tokens *admin.TokenStore, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens.Sweep()
		}
	}
}

func newAdminServer(cfg config.Config, gate access.Gate, codes *access.CodeStore, logger *zap.Logger) (*admin.Server, error) {
	return admin.NewServer(context.Background(), gate, codes,
		admin.WithPassword(cfg.Admin.Password),
		admin.WithTokens(admin.NewTokenStore(cfg.Admin.TokenTTL, nil)),
		admin.WithLogger(logger.Named("admin")),
	)
}

func runAdmin(lc fx.Lifecycle, cfg config.Config, srv *admin.Server, logger *zap.Logger) {
	httpServer := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if cfg.Admin.Password == "" {
				logger.Warn("admin password is empty, login is disabled")
			}
			ln, err := net.Listen("tcp", cfg.Admin.Addr)
			if err != nil {
				return err
			}
			logger.Info("admin api listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("admin api stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}

type discordParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Logger    *zap.Logger
	Wizard    *wizard.Wizard
	Settings  *wizard.SettingsWizard
	Gate      access.Gate
	Codes     *access.CodeStore
	Registry  *templates.Registry
	Replies   *replies.Composer
}

func runDiscord(p discordParams) error {
	if p.Config.Discord.Token == "" {
		p.Logger.Warn("no discord token configured, the bot is disabled")
		return nil
	}
	bot, err := discord.New(discord.Deps{
		Wizard:   p.Wizard,
		Settings: p.Settings,
		Gate:     p.Gate,
		Codes:    p.Codes,
		Catalog:  p.Registry,
		Replies:  p.Replies,
		Logger:   p.Logger.Named("discord"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return bot.Open(ctx, p.Config.Discord.Token, p.Config.Discord.GuildID)
		},
		OnStop: func(context.Context) error {
			cancel()
			return bot.Close()
		},
	})
	return nil
}
