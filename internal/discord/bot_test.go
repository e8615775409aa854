package discord

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/mail"
	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/testsupport"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// recorder keeps every answer in order. Followups are stored as channel
// message responses so tests read them like direct replies.
type recorder struct {
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	deferErr  error
}

func (r *recorder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	if resp.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		return r.deferErr
	}
	return nil
}

func (r *recorder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.followups = append(r.followups, data)
	r.responses = append(r.responses, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    data.Content,
			Components: data.Components,
			Flags:      data.Flags,
		},
	})
	return &discordgo.Message{Content: data.Content}, nil
}

func (r *recorder) types() []discordgo.InteractionResponseType {
	out := make([]discordgo.InteractionResponseType, 0, len(r.responses))
	for _, resp := range r.responses {
		out = append(out, resp.Type)
	}
	return out
}

func (r *recorder) last(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	if len(r.responses) == 0 {
		t.Fatalf("no response recorded")
	}
	return r.responses[len(r.responses)-1]
}

type nopSender struct{}

func (nopSender) Send(context.Context, mail.Message) (string, error) { return "<msg@orderwizard>", nil }

type stubRedeemer struct {
	gate access.Gate
}

func (s stubRedeemer) Redeem(ctx context.Context, code, userID string) (access.Code, error) {
	if code != "AAAA-BBBB-CCCC-DDDD" {
		return access.Code{}, access.ErrNoUses
	}
	if err := s.gate.Grant(ctx, userID, access.GrantDays(testsupport.FixedTime, access.CodeLifetime.Days())); err != nil {
		return access.Code{}, err
	}
	return access.Code{Code: code, Type: access.CodeLifetime, Used: true, UsedBy: userID}, nil
}

type fixture struct {
	bot  *Bot
	gate *access.MemoryStore
	rec  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := templates.NewRegistry(fstest.MapFS{
		"order.html": &fstest.MapFile{Data: []byte(`<p>PRODUCT_NAME</p><p>TOTAL</p>`)},
	})
	reg.MustRegister(model.TemplateDescriptor{ID: "plain", Title: "Plain", DocumentRef: "order.html"})
	reg.MustRegister(model.TemplateDescriptor{
		ID:           "third",
		Title:        "Third",
		DocumentRef:  "order.html",
		Capabilities: model.NewCapabilities(model.CapThirdStep, model.CapCurrency, model.CapCardEnd),
	})

	clock := testsupport.Clock()
	gate := access.NewMemoryStore(access.WithClock(clock))
	sessions := wizard.NewSessionStore()
	profiles := profile.NewMemoryStore()
	w, err := wizard.New(reg, gate, nopSender{},
		wizard.WithSessionStore(sessions),
		wizard.WithProfiles(profiles),
		wizard.WithClock(clock),
		wizard.WithIDGenerator(&testsupport.SequenceIDs{Prefix: "ORD-"}),
	)
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	settings, err := wizard.NewSettingsWizard(sessions, profiles, nil)
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	composer, err := replies.NewComposer()
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}
	bot, err := New(Deps{
		Wizard:   w,
		Settings: settings,
		Gate:     gate,
		Codes:    stubRedeemer{gate: gate},
		Catalog:  reg,
		Replies:  composer,
		Now:      clock,
	})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return &fixture{bot: bot, gate: gate, rec: &recorder{}}
}

func member(id string, admin bool) *discordgo.Member {
	m := &discordgo.Member{User: &discordgo.User{ID: id}}
	if admin {
		m.Permissions = discordgo.PermissionAdministrator
	}
	return m
}

func (f *fixture) command(t *testing.T, m *discordgo.Member, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	t.Helper()
	f.bot.Handle(context.Background(), f.rec, &discordgo.Interaction{
		ID:     "i-" + name,
		Type:   discordgo.InteractionApplicationCommand,
		Member: m,
		Data:   discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	})
	return f.rec.last(t)
}

func (f *fixture) click(t *testing.T, m *discordgo.Member, customID string, values ...string) *discordgo.InteractionResponse {
	t.Helper()
	f.bot.Handle(context.Background(), f.rec, &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: m,
		Data:   discordgo.MessageComponentInteractionData{CustomID: customID, Values: values},
	})
	return f.rec.last(t)
}

func (f *fixture) submit(t *testing.T, m *discordgo.Member, customID string, values map[string]string) *discordgo.InteractionResponse {
	t.Helper()
	var rows []discordgo.MessageComponent
	for id, v := range values {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: v},
		}})
	}
	f.bot.Handle(context.Background(), f.rec, &discordgo.Interaction{
		Type:   discordgo.InteractionModalSubmit,
		Member: m,
		Data:   discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	})
	return f.rec.last(t)
}

func buttonID(t *testing.T, resp *discordgo.InteractionResponse) string {
	t.Helper()
	for _, c := range resp.Data.Components {
		row, ok := c.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if b, ok := inner.(discordgo.Button); ok {
				return b.CustomID
			}
		}
	}
	t.Fatalf("no button in %+v", resp.Data)
	return ""
}

func inputIDs(resp *discordgo.InteractionResponse) []string {
	var ids []string
	for _, c := range resp.Data.Components {
		row := c.(discordgo.ActionsRow)
		ids = append(ids, row.Components[0].(discordgo.TextInput).CustomID)
	}
	return ids
}

func userOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func TestOrder_ThreeStepFlowThroughModals(t *testing.T) {
	f := newFixture(t)
	user := member("u1", false)
	if err := f.gate.Grant(context.Background(), "u1", access.GrantUses(2)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	resp := f.command(t, user, cmdOrder)
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected an ephemeral reply")
	}
	menu := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	if len(menu.Options) != 2 || menu.Options[0].Value != "plain" {
		t.Fatalf("unexpected menu %+v", menu.Options)
	}

	resp = f.click(t, user, idTemplateMenu, "third")
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "order:step:1" {
		t.Fatalf("expected the step 1 modal, got %+v", resp)
	}
	if diff := cmp.Diff([]string{"brand", "product", "size", "price"}, inputIDs(resp)); diff != "" {
		t.Fatalf("step 1 inputs (-want +got):\n%s", diff)
	}
	if resp.Data.Title != "Third (1/3)" {
		t.Fatalf("unexpected title %q", resp.Data.Title)
	}

	order := testsupport.OrderFields(nil)
	resp = f.submit(t, user, "order:step:1", map[string]string{
		"brand": order["brand"], "product": order["product"], "size": order["size"], "price": order["price"],
	})
	if got := buttonID(t, resp); got != "order:continue:2" {
		t.Fatalf("expected continue to step 2, got %q", got)
	}

	resp = f.click(t, user, "order:continue:2")
	if resp.Data.CustomID != "order:step:2" {
		t.Fatalf("expected the step 2 modal, got %q", resp.Data.CustomID)
	}
	resp = f.submit(t, user, "order:step:2", map[string]string{
		"email": order["email"], "date": order["date"], "image_url": order["image_url"],
	})
	if got := buttonID(t, resp); got != "order:continue:3" {
		t.Fatalf("expected continue to step 3, got %q", got)
	}

	resp = f.click(t, user, "order:continue:3")
	if diff := cmp.Diff([]string{"currency", "card_end"}, inputIDs(resp)); diff != "" {
		t.Fatalf("step 3 inputs (-want +got):\n%s", diff)
	}
	resp = f.submit(t, user, "order:step:3", map[string]string{"currency": "€", "card_end": "1234"})
	for _, fragment := range []string{"Order sent!", "268.90€", "ORD-1", "Remaining: 1 use."} {
		if !strings.Contains(resp.Data.Content, fragment) {
			t.Fatalf("expected %q in %q", fragment, resp.Data.Content)
		}
	}
}

func TestOrder_ValidationFailureOffersRetry(t *testing.T) {
	f := newFixture(t)
	user := member("u1", false)
	if err := f.gate.Grant(context.Background(), "u1", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	f.click(t, user, idTemplateMenu, "plain")

	resp := f.submit(t, user, "order:step:1", map[string]string{"brand": "Nike", "product": "AJ1", "price": "free"})
	if got := buttonID(t, resp); got != "order:restart:plain" {
		t.Fatalf("expected restart button, got %q", got)
	}

	f.submit(t, user, "order:step:1", map[string]string{"brand": "Nike", "product": "AJ1", "price": "100"})
	resp = f.submit(t, user, "order:step:2", map[string]string{"email": "nope", "date": "22/12/2024", "image_url": "https://i.imgur.com/a.jpg"})
	if !strings.Contains(resp.Data.Content, "- Email: enter a valid email address") {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}
	if got := buttonID(t, resp); got != "order:continue:2" {
		t.Fatalf("expected retry of step 2, got %q", got)
	}
}

func TestOrder_DeniedWithoutAccess(t *testing.T) {
	f := newFixture(t)
	resp := f.click(t, member("u2", false), idTemplateMenu, "plain")
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource || !strings.Contains(resp.Data.Content, "No access!") {
		t.Fatalf("expected the denial, got %+v", resp.Data)
	}
}

func TestContinueWithoutSession(t *testing.T) {
	f := newFixture(t)
	resp := f.click(t, member("u3", false), "order:continue:2")
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral || resp.Data.Content == "" {
		t.Fatalf("expected an ephemeral failure, got %+v", resp.Data)
	}
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)

	resp := f.command(t, member("u1", false), cmdSetLimit, userOpt("u9"), intOpt("uses", 3))
	if !strings.Contains(resp.Data.Content, "administrators only") {
		t.Fatalf("expected refusal, got %q", resp.Data.Content)
	}

	admin := member("root", true)
	resp = f.command(t, admin, cmdSetLimit, userOpt("u9"), intOpt("uses", 3))
	if resp.Data.Content != "✅ Limit for **u9** set to **3** uses." {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}

	resp = f.command(t, admin, cmdCheckLimit, userOpt("u9"))
	if resp.Data.Content != "📊 **u9** has 3 uses left." {
		t.Fatalf("unexpected status %q", resp.Data.Content)
	}

	resp = f.command(t, member("u1", false), cmdCheckAccess, userOpt("u9"))
	if !strings.Contains(resp.Data.Content, "Only administrators") {
		t.Fatalf("expected refusal, got %q", resp.Data.Content)
	}

	resp = f.command(t, admin, cmdGrantAccess, userOpt("u9"), intOpt("days", 31))
	if !strings.Contains(resp.Data.Content, "set to **31** days") {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}

	resp = f.command(t, admin, cmdRemoveAllAccess)
	if resp.Data.Content != "✅ All access and limits were removed." {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}
	decision, err := f.gate.Check(context.Background(), "u9")
	if err != nil || decision.Allowed {
		t.Fatalf("expected no access, got %+v %v", decision, err)
	}
}

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	user := member("u4", false)
	code := &discordgo.ApplicationCommandInteractionDataOption{Name: "code", Type: discordgo.ApplicationCommandOptionString, Value: "AAAA-BBBB-CCCC-DDDD"}

	resp := f.command(t, user, cmdRedeem, code)
	if !strings.Contains(resp.Data.Content, "lifetime access") {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}
	decision, err := f.gate.Check(context.Background(), "u4")
	if err != nil || !decision.Unlimited {
		t.Fatalf("expected unlimited access, got %+v %v", decision, err)
	}
}

func TestSettingsFlow(t *testing.T) {
	f := newFixture(t)
	user := member("u5", false)

	resp := f.command(t, user, cmdSettings)
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "settings:step:1" {
		t.Fatalf("expected the settings modal, got %+v", resp)
	}
	resp = f.submit(t, user, "settings:step:1", map[string]string{
		"full_name": "Jan Kowalski", "email": "jan@example.com", "street": "ul. Długa 5", "city": "Kraków", "postal_code": "30-001",
	})
	if got := buttonID(t, resp); got != idSettingsResume {
		t.Fatalf("expected continue button, got %q", got)
	}
	resp = f.click(t, user, idSettingsResume)
	if diff := cmp.Diff([]string{"country"}, inputIDs(resp)); diff != "" {
		t.Fatalf("settings step 2 (-want +got):\n%s", diff)
	}
	resp = f.submit(t, user, "settings:step:2", map[string]string{"country": "Polska"})
	if !strings.Contains(resp.Data.Content, "Settings saved!") {
		t.Fatalf("unexpected content %q", resp.Data.Content)
	}
}

func TestModalValues_FromGatewayPayload(t *testing.T) {
	payload := `{
		"id": "1", "type": 5, "member": {"user": {"id": "u1"}},
		"data": {"custom_id": "order:step:1", "components": [
			{"type": 1, "components": [{"type": 4, "custom_id": "brand", "value": "Nike"}]},
			{"type": 1, "components": [{"type": 4, "custom_id": "price", "value": "250"}]}
		]}
	}`
	var ic discordgo.InteractionCreate
	if err := json.Unmarshal([]byte(payload), &ic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data := ic.ModalSubmitData()
	want := map[string]string{"brand": "Nike", "price": "250"}
	if diff := cmp.Diff(want, modalValues(data.Components)); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
	if userID(ic.Interaction) != "u1" {
		t.Fatalf("unexpected user %q", userID(ic.Interaction))
	}
}

func TestClip(t *testing.T) {
	if got := clip("Nike Air Jordan 1 Retro High OG Chicago Lost and Found", 20); got != "Nike Air Jordan 1 R…" {
		t.Fatalf("unexpected clip %q", got)
	}
	if got := clip("short", 20); got != "short" {
		t.Fatalf("unexpected clip %q", got)
	}
}

func TestModalSubmit_DefersThenFollowsUp(t *testing.T) {
	f := newFixture(t)
	user := member("u1", false)
	if err := f.gate.Grant(context.Background(), "u1", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	f.click(t, user, idTemplateMenu, "plain")
	order := testsupport.OrderFields(nil)
	f.submit(t, user, "order:step:1", map[string]string{
		"brand": order["brand"], "product": order["product"], "size": order["size"], "price": order["price"],
	})
	f.click(t, user, "order:continue:2")

	f.rec.responses, f.rec.followups = nil, nil
	f.submit(t, user, "order:step:2", map[string]string{
		"email": order["email"], "date": order["date"], "image_url": order["image_url"],
	})

	want := []discordgo.InteractionResponseType{
		discordgo.InteractionResponseDeferredChannelMessageWithSource,
		discordgo.InteractionResponseChannelMessageWithSource,
	}
	if diff := cmp.Diff(want, f.rec.types()); diff != "" {
		t.Fatalf("response sequence (-want +got):\n%s", diff)
	}
	if f.rec.responses[0].Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected an ephemeral deferral")
	}
	if len(f.rec.followups) != 1 || f.rec.followups[0].Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected one ephemeral followup, got %+v", f.rec.followups)
	}
	if !strings.Contains(f.rec.followups[0].Content, "Order sent!") {
		t.Fatalf("expected the receipt in the followup, got %q", f.rec.followups[0].Content)
	}
}

func TestModalSubmit_FailedDeferralSkipsTheOrder(t *testing.T) {
	f := newFixture(t)
	user := member("u1", false)
	if err := f.gate.Grant(context.Background(), "u1", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	f.click(t, user, idTemplateMenu, "plain")

	f.rec.deferErr = errors.New("unknown interaction")
	f.submit(t, user, "order:step:1", map[string]string{"brand": "Nike", "product": "AJ1", "price": "250"})
	if len(f.rec.followups) != 0 {
		t.Fatalf("expected no followup after a failed deferral")
	}
	sess, ok := f.bot.Wizard.Sessions().Get(context.Background(), "u1")
	if !ok || sess.State != wizard.StateStep1 {
		t.Fatalf("expected step 1 to stay open, got %+v", sess)
	}
}
