package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/internal/app"
	"github.com/goliatone/go-orderwizard/pkg/console"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

func newWizardCmd(flags *globalFlags) *cobra.Command {
	var (
		templateID string
		userID     string
		settings   bool
	)
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Fill in an order (or your settings) in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(w *wizard.Wizard, sw *wizard.SettingsWizard, reg *templates.Registry, composer *replies.Composer, logger *zap.Logger) error {
				c, err := console.New(w, reg, composer,
					console.WithDriver(console.NewSurveyDriver(cmd.OutOrStdout())),
					console.WithSettings(sw),
					console.WithLogger(logger.Named("console")),
				)
				if err != nil {
					return err
				}
				if settings {
					_, err = c.RunSettings(cmd.Context(), userID)
					return err
				}
				_, err = c.RunOrder(cmd.Context(), userID, templateID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id (asked when empty)")
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user the order is counted against")
	cmd.Flags().BoolVar(&settings, "settings", false, "edit the saved profile instead of ordering")
	return cmd
}
