package app

import (
	"context"
	"testing"

	"go.uber.org/fx"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/config"
	"github.com/goliatone/go-orderwizard/pkg/storage"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = storage.MemoryPath
	cfg.Mail.OutboxDir = t.TempDir()
	cfg.Log.Level = "error"
	cfg.Admin.Addr = "127.0.0.1:0"
	return cfg
}

func TestServerGraphIsComplete(t *testing.T) {
	if err := fx.ValidateApp(Server(testConfig(t))); err != nil {
		t.Fatalf("validate app: %v", err)
	}
}

func TestRun_ProvidesWiredCore(t *testing.T) {
	ctx := context.Background()
	err := Run(ctx, testConfig(t), func(gate access.Gate, codes *access.CodeStore, reg *templates.Registry, w *wizard.Wizard) error {
		if len(reg.List()) == 0 {
			t.Errorf("expected the embedded catalog")
		}
		issued, err := codes.Generate(ctx, access.Code31Days, 1)
		if err != nil {
			return err
		}
		if _, err := codes.Redeem(ctx, issued[0].Code, "u1"); err != nil {
			return err
		}
		decision, err := gate.Check(ctx, "u1")
		if err != nil {
			return err
		}
		if !decision.Unlimited {
			t.Errorf("expected unlimited access after redeeming, got %+v", decision)
		}
		if w.Sessions() == nil {
			t.Errorf("expected a session store")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}
