package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-orderwizard/internal/app"
	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/replies"
)

func newGrantCmd(flags *globalFlags) *cobra.Command {
	var days, uses int
	cmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Grant days of unlimited access and/or set remaining uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			daysSet, usesSet := cmd.Flags().Changed("days"), cmd.Flags().Changed("uses")
			if !daysSet && !usesSet {
				return errors.New("set --days, --uses or both")
			}
			if daysSet && (days < 1 || days > 36500) {
				return fmt.Errorf("--days must be within 1..36500, got %d", days)
			}
			if usesSet && uses < 0 {
				return fmt.Errorf("--uses must not be negative, got %d", uses)
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			user := args[0]
			return app.Run(cmd.Context(), cfg, func(gate access.Gate, composer *replies.Composer) error {
				var grant access.Grant
				if daysSet {
					grant = access.GrantDays(time.Now(), days)
				}
				if usesSet {
					grant.Uses = access.GrantUses(uses).Uses
				}
				if err := gate.Grant(cmd.Context(), user, grant); err != nil {
					return err
				}
				msg, err := composer.Granted(user, days, uses, grant.Until)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "days of unlimited access")
	cmd.Flags().IntVar(&uses, "uses", 0, "remaining uses")
	return cmd
}

func newRevokeAllCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "revoke-all",
		Short: "Remove every grant and counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to revoke all access without --yes")
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(gate access.Gate, composer *replies.Composer) error {
				if err := gate.RevokeAll(cmd.Context()); err != nil {
					return err
				}
				return printReply(cmd, composer.Revoked)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func newLimitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "limit <user-id>",
		Aliases: []string{"status"},
		Short:   "Show the access of a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(gate access.Gate, composer *replies.Composer) error {
				st, err := gate.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printReply(cmd, func() (string, error) { return composer.Status(st) })
			})
		},
	}
}

func newRedeemCmd(flags *globalFlags) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "redeem <code>",
		Short: "Redeem an access code for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(codes *access.CodeStore, gate access.Gate, composer *replies.Composer) error {
				return redeem(cmd, codes, gate, composer, args[0], user)
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	return cmd
}

func redeem(cmd *cobra.Command, codes *access.CodeStore, gate access.Gate, composer *replies.Composer, code, user string) error {
	ctx := cmd.Context()
	redeemed, err := codes.Redeem(ctx, code, user)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), composer.Failure(err, nil))
		return err
	}
	st, err := gate.Status(ctx, user)
	if err != nil {
		return err
	}
	return printReply(cmd, func() (string, error) { return composer.Redeemed(redeemed, st) })
}

func printReply(cmd *cobra.Command, compose func() (string, error)) error {
	msg, err := compose()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}
