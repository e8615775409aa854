package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/steps"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// Responder answers interactions. *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Redeemer turns an access code into a grant.
type Redeemer interface {
	Redeem(ctx context.Context, code, userID string) (access.Code, error)
}

// Catalog lists the templates offered in the order menu.
type Catalog interface {
	List() []model.TemplateDescriptor
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Wizard   *wizard.Wizard
	Settings *wizard.SettingsWizard
	Gate     access.Gate
	Codes    Redeemer
	Catalog  Catalog
	Replies  *replies.Composer
	Logger   *zap.Logger
	Now      func() time.Time
}

// Bot adapts the wizards and the access ledger to Discord interactions. Every
// interaction is acknowledged with a modal, an ephemeral message or a deferral
// followed by an ephemeral followup.
type Bot struct {
	Deps
	session *discordgo.Session
}

// New validates deps and builds a bot.
func New(deps Deps) (*Bot, error) {
	switch {
	case deps.Wizard == nil:
		return nil, errors.New("discord: wizard is required")
	case deps.Settings == nil:
		return nil, errors.New("discord: settings wizard is required")
	case deps.Gate == nil:
		return nil, errors.New("discord: gate is required")
	case deps.Codes == nil:
		return nil, errors.New("discord: code store is required")
	case deps.Catalog == nil:
		return nil, errors.New("discord: catalog is required")
	case deps.Replies == nil:
		return nil, errors.New("discord: reply composer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Bot{Deps: deps}, nil
}

// Open connects to the gateway with token and registers the slash commands on
// guildID (globally when empty). Interactions are handled with ctx.
func (b *Bot) Open(ctx context.Context, token, guildID string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("discord: bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.Handle(ctx, s, ic.Interaction)
	})
	if err := s.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	if s.State == nil || s.State.User == nil {
		s.Close()
		return errors.New("discord: gateway did not report the bot user")
	}
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands()); err != nil {
		s.Close()
		return fmt.Errorf("discord: register commands: %w", err)
	}
	b.session = s
	b.Logger.Info("discord bot connected", zap.String("bot", s.State.User.Username), zap.String("guild_id", guildID))
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	return err
}

// Handle dispatches one interaction and always responds to it. Modal submits
// may render and mail an order, so they are deferred first and answered with
// a followup message.
func (b *Bot) Handle(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if i == nil {
		return
	}
	user := userID(i)
	logger := b.Logger.With(zap.String("user_id", user), zap.String("interaction", i.ID))

	var resp *discordgo.InteractionResponse
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		resp = b.command(ctx, i, user)
	case discordgo.InteractionMessageComponent:
		resp = b.component(ctx, i, user)
	case discordgo.InteractionModalSubmit:
		if err := r.InteractionRespond(i, deferred()); err != nil {
			logger.Warn("defer interaction", zap.Error(err))
			return
		}
		resp = b.modalSubmit(ctx, i, user)
		if resp == nil {
			resp = ephemeral("Unknown action.")
		}
		if _, err := r.FollowupMessageCreate(i, true, followup(resp)); err != nil {
			logger.Warn("send followup", zap.Error(err))
		}
		return
	default:
		return
	}
	if resp == nil {
		resp = ephemeral("Unknown action.")
	}
	if err := r.InteractionRespond(i, resp); err != nil {
		logger.Warn("respond to interaction", zap.Error(err))
	}
}

func (b *Bot) command(ctx context.Context, i *discordgo.Interaction, user string) *discordgo.InteractionResponse {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)

	switch data.Name {
	case cmdOrder:
		list := b.Catalog.List()
		if len(list) == 0 {
			return ephemeral("No templates are available.")
		}
		return ephemeral("🛒 Choose the template for your order:", templateMenu(list))
	case cmdSettings:
		prompt, err := b.Settings.Start(ctx, user)
		if err != nil {
			return b.failure(err, nil)
		}
		return modal(settingsModalID(prompt.Step), prompt)
	case cmdTemplates:
		return b.text(b.Replies.Catalog(b.Catalog.List()))
	case cmdRedeem:
		code, err := b.Codes.Redeem(ctx, opts.stringOpt("code"), user)
		if err != nil {
			return b.failure(err, nil)
		}
		st, err := b.Gate.Status(ctx, user)
		if err != nil {
			return b.failure(err, nil)
		}
		b.Logger.Info("code redeemed", zap.String("user_id", user), zap.String("type", string(code.Type)))
		return b.text(b.Replies.Redeemed(code, st))
	case cmdCheckLimit, cmdCheckAccess:
		target := user
		if other := opts.userOpt("user"); other != "" && other != user {
			if !isAdmin(i) {
				return ephemeral("❌ Only administrators can inspect other users.")
			}
			target = other
		}
		st, err := b.Gate.Status(ctx, target)
		if err != nil {
			return b.failure(err, nil)
		}
		return b.text(b.Replies.Status(st))
	case cmdSetLimit, cmdGrantAccess, cmdRemoveAllAccess:
		if !isAdmin(i) {
			return ephemeral("❌ This command is for administrators only.")
		}
		return b.adminCommand(ctx, data.Name, opts, user)
	}
	return nil
}

func (b *Bot) adminCommand(ctx context.Context, name string, opts options, admin string) *discordgo.InteractionResponse {
	switch name {
	case cmdSetLimit:
		target, uses := opts.userOpt("user"), int(opts.intOpt("uses"))
		if err := b.Gate.Grant(ctx, target, access.GrantUses(uses)); err != nil {
			return b.failure(err, nil)
		}
		b.Logger.Info("limit set", zap.String("admin", admin), zap.String("user_id", target), zap.Int("uses", uses))
		return b.text(b.Replies.Granted(target, 0, uses, nil))
	case cmdGrantAccess:
		target, days := opts.userOpt("user"), int(opts.intOpt("days"))
		grant := access.GrantDays(b.Now(), days)
		if err := b.Gate.Grant(ctx, target, grant); err != nil {
			return b.failure(err, nil)
		}
		b.Logger.Info("access granted", zap.String("admin", admin), zap.String("user_id", target), zap.Int("days", days))
		return b.text(b.Replies.Granted(target, days, 0, grant.Until))
	default:
		if err := b.Gate.RevokeAll(ctx); err != nil {
			return b.failure(err, nil)
		}
		b.Logger.Warn("all access revoked", zap.String("admin", admin))
		return b.text(b.Replies.Revoked())
	}
}

func (b *Bot) component(ctx context.Context, i *discordgo.Interaction, user string) *discordgo.InteractionResponse {
	data := i.MessageComponentData()
	id := data.CustomID

	switch {
	case id == idTemplateMenu:
		if len(data.Values) == 0 {
			return ephemeral("Choose a template first.")
		}
		return b.startOrder(ctx, user, data.Values[0])
	case strings.HasPrefix(id, idOrderRestart):
		return b.startOrder(ctx, user, strings.TrimPrefix(id, idOrderRestart))
	case strings.HasPrefix(id, idOrderContinue):
		step, ok := stepSuffix(id, idOrderContinue)
		if !ok {
			return nil
		}
		var (
			prompt wizard.Prompt
			err    error
		)
		switch step {
		case 2:
			prompt, err = b.Wizard.Step2Prompt(ctx, user)
		case 3:
			prompt, err = b.Wizard.Step3Prompt(ctx, user)
		default:
			return nil
		}
		if err != nil {
			return b.failure(err, nil)
		}
		return modal(orderModalID(step), prompt)
	case id == idSettingsResume:
		prompt, err := b.Settings.Step2Prompt(ctx, user)
		if err != nil {
			return b.failure(err, nil)
		}
		return modal(settingsModalID(2), prompt)
	case id == idSettingsAgain:
		prompt, err := b.Settings.Start(ctx, user)
		if err != nil {
			return b.failure(err, nil)
		}
		return modal(settingsModalID(1), prompt)
	}
	return nil
}

func (b *Bot) startOrder(ctx context.Context, user, templateID string) *discordgo.InteractionResponse {
	prompt, err := b.Wizard.Start(ctx, user, templateID)
	if err != nil {
		return b.failure(err, nil)
	}
	return modal(orderModalID(1), prompt)
}

func (b *Bot) modalSubmit(ctx context.Context, i *discordgo.Interaction, user string) *discordgo.InteractionResponse {
	data := i.ModalSubmitData()
	values := modalValues(data.Components)

	if step, ok := stepSuffix(data.CustomID, idOrderModal); ok {
		return b.submitOrder(ctx, user, step, values)
	}
	if step, ok := stepSuffix(data.CustomID, idSettingsModal); ok {
		return b.submitSettings(ctx, user, step, values)
	}
	return nil
}

func (b *Bot) submitOrder(ctx context.Context, user string, step int, values map[string]string) *discordgo.InteractionResponse {
	var (
		outcome wizard.Outcome
		err     error
	)
	switch step {
	case 1:
		var next wizard.Prompt
		next, err = b.Wizard.SubmitStep1(ctx, user, values)
		outcome.Prompt = &next
	case 2:
		outcome, err = b.Wizard.SubmitStep2(ctx, user, values)
	default:
		outcome, err = b.Wizard.SubmitStep3(ctx, user, values)
	}

	if err != nil {
		return b.orderFailure(ctx, user, step, err)
	}
	if outcome.Done() {
		return b.text(b.Replies.Receipt(*outcome.Receipt))
	}
	next := *outcome.Prompt
	return b.continueTo(next, button(fmt.Sprintf("Continue (%d/%d)", next.Step, next.Steps), orderContinueID(next.Step), discordgo.PrimaryButton))
}

// orderFailure explains err. A validation failure keeps the step open, so the
// reply carries a button that reopens it.
func (b *Bot) orderFailure(ctx context.Context, user string, step int, err error) *discordgo.InteractionResponse {
	if !wizard.IsValidation(err) {
		return b.failure(err, nil)
	}
	msg := b.Replies.Failure(err, stepFields(ctx, b.Wizard, user, step))
	if step == 1 {
		sess, ok := b.Wizard.Sessions().Get(ctx, user)
		if !ok {
			return ephemeral(msg)
		}
		return ephemeral(msg, button("Try again", idOrderRestart+sess.TemplateID, discordgo.SecondaryButton))
	}
	return ephemeral(msg, button("Try again", orderContinueID(step), discordgo.SecondaryButton))
}

func stepFields(ctx context.Context, w *wizard.Wizard, user string, step int) []model.Field {
	var (
		p   wizard.Prompt
		err error
	)
	switch step {
	case 2:
		p, err = w.Step2Prompt(ctx, user)
	case 3:
		p, err = w.Step3Prompt(ctx, user)
	default:
		return steps.Step1()
	}
	if err != nil {
		return nil
	}
	return p.Fields
}

func (b *Bot) submitSettings(ctx context.Context, user string, step int, values map[string]string) *discordgo.InteractionResponse {
	if step == 1 {
		next, err := b.Settings.SubmitStep1(ctx, user, values)
		if wizard.IsValidation(err) {
			return ephemeral(b.Replies.Failure(err, steps.SettingsStep1()), button("Try again", idSettingsAgain, discordgo.SecondaryButton))
		}
		if err != nil {
			return b.failure(err, nil)
		}
		return b.continueTo(next, button("Continue (2/2)", idSettingsResume, discordgo.PrimaryButton))
	}

	saved, err := b.Settings.SubmitStep2(ctx, user, values)
	if wizard.IsValidation(err) {
		return ephemeral(b.Replies.Failure(err, steps.SettingsStep2()), button("Try again", idSettingsResume, discordgo.SecondaryButton))
	}
	if err != nil {
		return b.failure(err, nil)
	}
	return b.text(b.Replies.ProfileSaved(saved))
}

func (b *Bot) continueTo(next wizard.Prompt, action discordgo.MessageComponent) *discordgo.InteractionResponse {
	msg, err := b.Replies.Prompt(next)
	if err != nil {
		return b.failure(err, nil)
	}
	return ephemeral(msg, action)
}

func (b *Bot) text(msg string, err error) *discordgo.InteractionResponse {
	if err != nil {
		return b.failure(err, nil)
	}
	return ephemeral(msg)
}

func (b *Bot) failure(err error, fields []model.Field) *discordgo.InteractionResponse {
	b.Logger.Debug("interaction failed", zap.Error(err), zap.String("text_code", wizard.TextCode(err)))
	return ephemeral(b.Replies.Failure(err, fields))
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(list []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(list))
	for _, o := range list {
		out[o.Name] = o
	}
	return out
}

func (o options) stringOpt(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (o options) intOpt(name string) int64 {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return opt.IntValue()
	}
	return 0
}

func (o options) userOpt(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionUser {
		return opt.UserValue(nil).ID
	}
	return ""
}
