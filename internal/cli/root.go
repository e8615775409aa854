package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-orderwizard/pkg/config"
)

type globalFlags struct {
	configFile string
	envFile    string
	dbPath     string
	logLevel   string
}

// NewRootCommand builds the orderwizard command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "orderwizard",
		Short: "Order confirmation wizard",
		Long: `orderwizard collects order details in a short multi-step wizard, renders a
branded confirmation document and emails it, gated by per-user access.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file (default .env)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newServeCmd(flags),
		newWizardCmd(flags),
		newGrantCmd(flags),
		newRevokeAllCmd(flags),
		newLimitCmd(flags),
		newRedeemCmd(flags),
		newCodesCmd(flags),
		newTemplatesCmd(flags),
		newRenderCmd(flags),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (f *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: f.configFile, EnvFile: f.envFile})
	if err != nil {
		return config.Config{}, err
	}
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}
