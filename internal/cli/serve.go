package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/goliatone/go-orderwizard/internal/app"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the Discord bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			svc := fx.New(app.Server(cfg))
			if err := svc.Err(); err != nil {
				return err
			}
			svc.Run()
			return nil
		},
	}
}
