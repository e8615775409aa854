package app

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/config"
	"github.com/goliatone/go-orderwizard/pkg/logging"
	"github.com/goliatone/go-orderwizard/pkg/mail"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/storage"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

const tracerName = "github.com/goliatone/go-orderwizard"

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func openDatabase(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", zap.String("path", cfg.Database.Path))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func newGate(db *sql.DB) (*access.SQLiteStore, error) {
	return access.NewSQLiteStore(context.Background(), db)
}

func newCodeStore(db *sql.DB, gate access.Gate) (*access.CodeStore, error) {
	return access.NewCodeStore(context.Background(), db, gate)
}

func newProfiles(db *sql.DB) (*profile.SQLiteStore, error) {
	return profile.NewSQLiteStore(context.Background(), db)
}

func newRegistry(logger *zap.Logger) (*templates.Registry, error) {
	return templates.Default(templates.WithLogger(logger))
}

// newSender relays through SMTP when a host is configured and otherwise
// writes .eml files into the outbox directory.
func newSender(cfg config.Config, logger *zap.Logger) (mail.Sender, error) {
	if cfg.SMTP.Configured() {
		return mail.NewSMTPSender(cfg.SMTP, logger)
	}
	logger.Warn("no smtp host configured, writing orders to the outbox", zap.String("dir", cfg.Mail.OutboxDir))
	return &mail.FileSender{Dir: cfg.Mail.OutboxDir}, nil
}

func newSessions(cfg config.Config, logger *zap.Logger) *wizard.SessionStore {
	return wizard.NewSessionStore(
		wizard.WithTTL(cfg.Session.TTL),
		wizard.WithStoreLogger(logger.Named("sessions")),
	)
}

type wizardParams struct {
	fx.In

	Config   config.Config
	Logger   *zap.Logger
	Registry *templates.Registry
	Gate     access.Gate
	Sender   mail.Sender
	Sessions *wizard.SessionStore
	Profiles profile.Store
}

func newWizard(p wizardParams) (*wizard.Wizard, error) {
	ids, err := render.NewSnowflakeIDs(p.Config.Orders.NodeID)
	if err != nil {
		return nil, err
	}
	return wizard.New(p.Registry, p.Gate, p.Sender,
		wizard.WithSessionStore(p.Sessions),
		wizard.WithProfiles(p.Profiles),
		wizard.WithIDGenerator(ids),
		wizard.WithFromAddress(p.Config.SMTP.From),
		wizard.WithLogger(p.Logger.Named("wizard")),
		wizard.WithTracer(otel.Tracer(tracerName)),
	)
}

func newSettings(sessions *wizard.SessionStore, profiles profile.Store, logger *zap.Logger) (*wizard.SettingsWizard, error) {
	return wizard.NewSettingsWizard(sessions, profiles, logger.Named("settings"))
}

func newComposer(cfg config.Config) (*replies.Composer, error) {
	var opts []replies.Option
	if cfg.Replies.Dir != "" {
		opts = append(opts, replies.WithBaseDir(cfg.Replies.Dir))
	}
	return replies.NewComposer(opts...)
}
