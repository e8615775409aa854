package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/templates"
)

func newTemplatesCmd(_ *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the template catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := templates.Default()
			if err != nil {
				return err
			}
			composer, err := replies.NewComposer()
			if err != nil {
				return err
			}
			return printReply(cmd, func() (string, error) { return composer.Catalog(reg.List()) })
		},
	}
}

func newRenderCmd(_ *globalFlags) *cobra.Command {
	var (
		templateID string
		answers    string
		output     string
		orderID    string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an order document from a YAML answers file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := templates.Default()
			if err != nil {
				return err
			}
			desc, err := reg.Describe(templateID)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(answers)
			if err != nil {
				return fmt.Errorf("read answers: %w", err)
			}
			fields, err := render.ParseAnswers(data)
			if err != nil {
				return err
			}

			var opts []render.ContextOption
			if orderID != "" {
				opts = append(opts, render.WithIDGenerator(fixedID(orderID)))
			}
			rc, err := render.NewContext(desc, fields, model.UserProfile{}, opts...)
			if err != nil {
				composer, cerr := replies.NewComposer()
				if cerr == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), composer.Failure(err, nil))
				}
				return err
			}
			doc, err := render.NewEngine().RenderDocument(cmd.Context(), reg, rc)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(output, doc, 0o644)
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id")
	cmd.Flags().StringVarP(&answers, "answers", "a", "", "YAML file mapping field ids to answers")
	cmd.Flags().StringVarP(&output, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&orderID, "order-number", "", "fixed order number instead of a generated one")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

type fixedID string

func (f fixedID) NextID() string { return string(f) }
