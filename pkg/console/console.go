package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// Catalog lists the templates a user can pick from.
type Catalog interface {
	List() []model.TemplateDescriptor
}

// Option configures a Console.
type Option func(*Console)

// WithDriver replaces the survey driver.
func WithDriver(driver PromptDriver) Option {
	return func(c *Console) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// WithSettings enables RunSettings.
func WithSettings(settings *wizard.SettingsWizard) Option {
	return func(c *Console) { c.settings = settings }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxAttempts bounds how often a step is re-asked after validation
// failures. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(c *Console) { c.maxAttempts = n }
}

// Console drives the order and settings wizards from a terminal for a single
// local user.
type Console struct {
	wizard      *wizard.Wizard
	settings    *wizard.SettingsWizard
	catalog     Catalog
	replies     *replies.Composer
	driver      PromptDriver
	logger      *zap.Logger
	maxAttempts int
}

// New builds a console. The survey driver writing to stdout is the default.
func New(w *wizard.Wizard, catalog Catalog, composer *replies.Composer, opts ...Option) (*Console, error) {
	if w == nil || catalog == nil || composer == nil {
		return nil, errors.New("console: wizard, catalog and composer are required")
	}
	c := &Console{
		wizard:  w,
		catalog: catalog,
		replies: composer,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.driver == nil {
		c.driver = NewSurveyDriver(nil)
	}
	return c, nil
}

// PickTemplate asks the user to choose a template from the catalog.
func (c *Console) PickTemplate(ctx context.Context) (string, error) {
	list := c.catalog.List()
	if len(list) == 0 {
		return "", errors.New("console: the template catalog is empty")
	}
	options := make([]string, len(list))
	for i, d := range list {
		options[i] = fmt.Sprintf("%s (%s)", d.DisplayTitle(), d.ID)
	}
	idx, err := c.driver.Select(ctx, SelectConfig{
		Message:  "Choose a template",
		Options:  options,
		PageSize: 15,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(list) {
		return "", fmt.Errorf("console: invalid template choice %d", idx)
	}
	return list[idx].ID, nil
}

// RunOrder walks userID through the order wizard for templateID, asking for
// one when templateID is empty. Validation failures are shown and the step is
// asked again with the previous answers prefilled.
func (c *Console) RunOrder(ctx context.Context, userID, templateID string) (wizard.Receipt, error) {
	if strings.TrimSpace(templateID) == "" {
		id, err := c.PickTemplate(ctx)
		if err != nil {
			return wizard.Receipt{}, err
		}
		templateID = id
	}

	prompt, err := c.wizard.Start(ctx, userID, templateID)
	if err != nil {
		return wizard.Receipt{}, c.fail(ctx, err, nil)
	}

	for {
		outcome, err := c.runStep(ctx, userID, prompt)
		if err != nil {
			if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
				if abandonErr := c.wizard.Abandon(context.WithoutCancel(ctx), userID); abandonErr != nil {
					c.logger.Warn("abandon wizard", zap.Error(abandonErr))
				}
				return wizard.Receipt{}, err
			}
			return wizard.Receipt{}, c.fail(ctx, err, prompt.Fields)
		}
		if outcome.Done() {
			msg, err := c.replies.Receipt(*outcome.Receipt)
			if err != nil {
				return *outcome.Receipt, err
			}
			return *outcome.Receipt, c.driver.Info(ctx, msg)
		}
		prompt = *outcome.Prompt
	}
}

// runStep asks prompt's fields and submits them until the step is accepted.
// The last step is only submitted once the user confirms sending.
func (c *Console) runStep(ctx context.Context, userID string, prompt wizard.Prompt) (wizard.Outcome, error) {
	if err := c.showPrompt(ctx, prompt); err != nil {
		return wizard.Outcome{}, err
	}
	for attempt := 1; ; attempt++ {
		values, err := c.ask(ctx, prompt.Fields)
		if err != nil {
			return wizard.Outcome{}, err
		}
		if prompt.Step == prompt.Steps {
			send, err := c.driver.Confirm(ctx, ConfirmConfig{
				Message: "Send the order now?",
				Default: true,
				Help:    "Answer no to edit this part again.",
			})
			if err != nil {
				return wizard.Outcome{}, err
			}
			if !send {
				prompt.Fields = prefill(prompt.Fields, values)
				continue
			}
		}

		outcome, err := c.submit(ctx, userID, prompt, values)
		if err == nil {
			return outcome, nil
		}
		if !wizard.IsValidation(err) || (c.maxAttempts > 0 && attempt >= c.maxAttempts) {
			return wizard.Outcome{}, err
		}
		if infoErr := c.driver.Info(ctx, c.replies.Failure(err, prompt.Fields)); infoErr != nil {
			return wizard.Outcome{}, infoErr
		}
		prompt.Fields = prefill(prompt.Fields, values)
	}
}

func (c *Console) submit(ctx context.Context, userID string, prompt wizard.Prompt, values map[string]string) (wizard.Outcome, error) {
	switch prompt.State {
	case wizard.StateStep1:
		next, err := c.wizard.SubmitStep1(ctx, userID, values)
		if err != nil {
			return wizard.Outcome{}, err
		}
		return wizard.Outcome{Prompt: &next}, nil
	case wizard.StateStep2:
		return c.wizard.SubmitStep2(ctx, userID, values)
	case wizard.StateStep3:
		return c.wizard.SubmitStep3(ctx, userID, values)
	}
	return wizard.Outcome{}, fmt.Errorf("console: unexpected wizard state %s", prompt.State)
}

// RunSettings walks userID through the two settings steps and saves the
// profile.
func (c *Console) RunSettings(ctx context.Context, userID string) (model.UserProfile, error) {
	if c.settings == nil {
		return model.UserProfile{}, errors.New("console: settings are not configured")
	}
	prompt, err := c.settings.Start(ctx, userID)
	if err != nil {
		return model.UserProfile{}, c.fail(ctx, err, nil)
	}

	for {
		if err := c.showPrompt(ctx, prompt); err != nil {
			return model.UserProfile{}, err
		}
		values, err := c.ask(ctx, prompt.Fields)
		if err != nil {
			return model.UserProfile{}, err
		}

		switch prompt.State {
		case wizard.StateSettings1:
			next, err := c.settings.SubmitStep1(ctx, userID, values)
			if wizard.IsValidation(err) {
				if err := c.driver.Info(ctx, c.replies.Failure(err, prompt.Fields)); err != nil {
					return model.UserProfile{}, err
				}
				prompt.Fields = prefill(prompt.Fields, values)
				continue
			}
			if err != nil {
				return model.UserProfile{}, c.fail(ctx, err, prompt.Fields)
			}
			prompt = next
		default:
			saved, err := c.settings.SubmitStep2(ctx, userID, values)
			if wizard.IsValidation(err) {
				if err := c.driver.Info(ctx, c.replies.Failure(err, prompt.Fields)); err != nil {
					return model.UserProfile{}, err
				}
				prompt.Fields = prefill(prompt.Fields, values)
				continue
			}
			if err != nil {
				return model.UserProfile{}, c.fail(ctx, err, prompt.Fields)
			}
			msg, err := c.replies.ProfileSaved(saved)
			if err != nil {
				return saved, err
			}
			return saved, c.driver.Info(ctx, msg)
		}
	}
}

func (c *Console) showPrompt(ctx context.Context, prompt wizard.Prompt) error {
	msg, err := c.replies.Prompt(prompt)
	if err != nil {
		return err
	}
	return c.driver.Info(ctx, msg)
}

func (c *Console) ask(ctx context.Context, fields []model.Field) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		cfg := InputConfig{
			Message: f.Label,
			Default: f.Default,
			Help:    f.Placeholder,
		}
		if f.Required && f.Default == "" {
			label := f.Label
			cfg.Validator = func(v string) error {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("%s is required", label)
				}
				return nil
			}
		}
		v, err := c.driver.Input(ctx, cfg)
		if err != nil {
			return nil, err
		}
		values[f.ID] = v
	}
	return values, nil
}

// fail shows err to the user and returns it.
func (c *Console) fail(ctx context.Context, err error, fields []model.Field) error {
	c.logger.Debug("wizard step failed", zap.Error(err), zap.String("text_code", wizard.TextCode(err)))
	if infoErr := c.driver.Info(ctx, c.replies.Failure(err, fields)); infoErr != nil {
		c.logger.Warn("show failure", zap.Error(infoErr))
	}
	return err
}

func prefill(fields []model.Field, values map[string]string) []model.Field {
	out := make([]model.Field, len(fields))
	copy(out, fields)
	for i := range out {
		if v := strings.TrimSpace(values[out[i].ID]); v != "" {
			out[i].Default = v
		}
	}
	return out
}
