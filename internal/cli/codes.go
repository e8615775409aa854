package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-orderwizard/internal/app"
	"github.com/goliatone/go-orderwizard/pkg/access"
)

func newCodesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Redeem code utilities",
	}
	cmd.AddCommand(newCodesGenerateCmd(flags), newCodesListCmd(flags), newCodesStatsCmd(flags))
	return cmd
}

func newCodesGenerateCmd(flags *globalFlags) *cobra.Command {
	var (
		typ   string
		count int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Issue new redeem codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codeType, err := access.ParseCodeType(typ)
			if err != nil {
				return err
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(codes *access.CodeStore) error {
				issued, err := codes.Generate(cmd.Context(), codeType, count)
				if err != nil {
					return err
				}
				for _, c := range issued {
					fmt.Fprintln(cmd.OutOrStdout(), c.Code)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(access.Code31Days), "code type: lifetime or 31days")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of codes (1-1000)")
	return cmd
}

func newCodesListCmd(flags *globalFlags) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List redeem codes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := access.ParseCodeFilter(filter)
			if err != nil {
				return err
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(codes *access.CodeStore) error {
				list, err := codes.List(cmd.Context(), f)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tTYPE\tCREATED\tUSED BY\tUSED AT")
				for _, c := range list {
					usedAt := "-"
					if c.UsedAt != nil {
						usedAt = c.UsedAt.Format(time.RFC3339)
					}
					usedBy := c.UsedBy
					if usedBy == "" {
						usedBy = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Code, c.Type, c.CreatedAt.Format(time.RFC3339), usedBy, usedAt)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(access.FilterAll), "all, 31days, lifetime, unused or used")
	return cmd
}

func newCodesStatsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count codes by state and type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, func(codes *access.CodeStore) error {
				st, err := codes.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nunused: %d\nused: %d\nlifetime: %d\n31days: %d\n",
					st.Total, st.Unused, st.Used, st.Lifetime, st.Days31)
				return nil
			})
		},
	}
}
