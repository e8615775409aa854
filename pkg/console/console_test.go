package console_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/console"
	"github.com/goliatone/go-orderwizard/pkg/mail"
	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/replies"
	"github.com/goliatone/go-orderwizard/pkg/templates"
	"github.com/goliatone/go-orderwizard/pkg/testsupport"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// stubDriver answers inputs by prompt message. A label without a scripted
// answer takes the field default.
type stubDriver struct {
	answers  map[string][]string
	selected []int
	infos    []string
	abortOn  string
	confirms []bool
	asked    []string
}

func (s *stubDriver) Input(_ context.Context, cfg console.InputConfig) (string, error) {
	if cfg.Message == s.abortOn {
		return "", console.ErrAborted
	}
	queue := s.answers[cfg.Message]
	if len(queue) == 0 {
		return cfg.Default, nil
	}
	s.answers[cfg.Message] = queue[1:]
	return queue[0], nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg console.ConfirmConfig) (bool, error) {
	s.asked = append(s.asked, cfg.Message)
	if len(s.confirms) == 0 {
		return cfg.Default, nil
	}
	answer := s.confirms[0]
	s.confirms = s.confirms[1:]
	return answer, nil
}

func (s *stubDriver) Select(context.Context, console.SelectConfig) (int, error) {
	if len(s.selected) == 0 {
		return -1, errors.New("no select scripted")
	}
	idx := s.selected[0]
	s.selected = s.selected[1:]
	return idx, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func (s *stubDriver) saw(fragment string) bool {
	for _, msg := range s.infos {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

type sender struct{ sent int }

func (s *sender) Send(context.Context, mail.Message) (string, error) {
	s.sent++
	return "<msg@orderwizard>", nil
}

type fixture struct {
	console  *console.Console
	driver   *stubDriver
	gate     *access.MemoryStore
	sessions *wizard.SessionStore
	sender   *sender
}

func newFixture(t *testing.T, driver *stubDriver) *fixture {
	t.Helper()
	reg := templates.NewRegistry(fstest.MapFS{
		"order.html": &fstest.MapFile{Data: []byte(`<p>PRODUCT_NAME</p><p>TOTAL</p>`)},
	})
	reg.MustRegister(model.TemplateDescriptor{ID: "plain", Title: "Plain", DocumentRef: "order.html"})
	reg.MustRegister(model.TemplateDescriptor{ID: "stockx", Title: "StockX", DocumentRef: "order.html"})

	gate := access.NewMemoryStore()
	sessions := wizard.NewSessionStore()
	profiles := profile.NewMemoryStore()
	out := &sender{}
	w, err := wizard.New(reg, gate, out,
		wizard.WithSessionStore(sessions),
		wizard.WithProfiles(profiles),
		wizard.WithClock(testsupport.Clock()),
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
	c, err := console.New(w, reg, composer, console.WithDriver(driver), console.WithSettings(settings))
	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	return &fixture{console: c, driver: driver, gate: gate, sessions: sessions, sender: out}
}

func orderAnswers(overrides map[string][]string) map[string][]string {
	f := testsupport.OrderFields(nil)
	answers := map[string][]string{}
	for _, id := range []string{
		model.FieldBrand, model.FieldProduct, model.FieldSize, model.FieldPrice,
		model.FieldEmail, model.FieldDate, model.FieldImageURL,
	} {
		answers[model.FieldFor(id).Label] = []string{f[id]}
	}
	for label, values := range overrides {
		answers[label] = values
	}
	return answers
}

func TestRunOrder_DispatchesAndShowsReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubDriver{answers: orderAnswers(nil)})
	if err := f.gate.Grant(ctx, "local", access.GrantUses(2)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	receipt, err := f.console.RunOrder(ctx, "local", "plain")
	if err != nil {
		t.Fatalf("run order: %v", err)
	}
	if receipt.Total != "268.90" || receipt.OrderNumber != "ORD-1" || receipt.Remaining != 1 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if f.sender.sent != 1 {
		t.Fatalf("expected one message, got %d", f.sender.sent)
	}
	for _, fragment := range []string{"(part 1/2)", "(part 2/2)", "**Order number:** ORD-1", "Remaining: 1 use."} {
		if !f.driver.saw(fragment) {
			t.Fatalf("expected %q in %q", fragment, f.driver.infos)
		}
	}
}

func TestRunOrder_ReasksStepAfterValidationFailure(t *testing.T) {
	ctx := context.Background()
	email := model.FieldFor(model.FieldEmail).Label
	f := newFixture(t, &stubDriver{answers: orderAnswers(map[string][]string{
		email: {"not-an-email", "buyer@example.com"},
	})})
	if err := f.gate.Grant(ctx, "local", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	receipt, err := f.console.RunOrder(ctx, "local", "plain")
	if err != nil {
		t.Fatalf("run order: %v", err)
	}
	if receipt.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", receipt.Email)
	}
	if !f.driver.saw("- Email: enter a valid email address") {
		t.Fatalf("expected the validation message, got %q", f.driver.infos)
	}
}

func TestRunOrder_DecliningTheLastStepAsksItAgain(t *testing.T) {
	ctx := context.Background()
	email := model.FieldFor(model.FieldEmail).Label
	f := newFixture(t, &stubDriver{
		answers: orderAnswers(map[string][]string{
			email: {"first@example.com", "second@example.com"},
		}),
		confirms: []bool{false, true},
	})
	if err := f.gate.Grant(ctx, "local", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	receipt, err := f.console.RunOrder(ctx, "local", "plain")
	if err != nil {
		t.Fatalf("run order: %v", err)
	}
	if receipt.Email != "second@example.com" {
		t.Fatalf("expected the edited email, got %q", receipt.Email)
	}
	if f.sender.sent != 1 {
		t.Fatalf("expected one message, got %d", f.sender.sent)
	}
	if diff := cmp.Diff([]string{"Send the order now?", "Send the order now?"}, f.driver.asked); diff != "" {
		t.Fatalf("confirmations (-want +got):\n%s", diff)
	}
}

func TestRunOrder_PicksTemplateWhenNoneGiven(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubDriver{answers: orderAnswers(nil), selected: []int{1}})
	if err := f.gate.Grant(ctx, "local", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	receipt, err := f.console.RunOrder(ctx, "local", "")
	if err != nil {
		t.Fatalf("run order: %v", err)
	}
	if receipt.TemplateID != "stockx" {
		t.Fatalf("expected the second template, got %q", receipt.TemplateID)
	}
}

func TestRunOrder_DeniedWithoutAccess(t *testing.T) {
	f := newFixture(t, &stubDriver{answers: orderAnswers(nil)})

	_, err := f.console.RunOrder(context.Background(), "local", "plain")
	if reason, ok := wizard.AccessReason(err); !ok || reason != access.ReasonNoAccess {
		t.Fatalf("expected no_access denial, got %v", err)
	}
	if !f.driver.saw("**No access!**") {
		t.Fatalf("expected the denial message, got %q", f.driver.infos)
	}
}

func TestRunOrder_AbortAbandonsSession(t *testing.T) {
	ctx := context.Background()
	driver := &stubDriver{answers: orderAnswers(nil), abortOn: model.FieldFor(model.FieldEmail).Label}
	f := newFixture(t, driver)
	if err := f.gate.Grant(ctx, "local", access.GrantUses(1)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if _, err := f.console.RunOrder(ctx, "local", "plain"); !errors.Is(err, console.ErrAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if _, ok := f.sessions.Get(ctx, "local"); ok {
		t.Fatalf("expected the session to be abandoned")
	}
	if f.sender.sent != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestRunSettings_SavesProfile(t *testing.T) {
	driver := &stubDriver{answers: map[string][]string{
		"Full name":         {"Jan Kowalski"},
		"Email":             {"bad", "jan@example.com"},
		"Street and number": {"ul. Długa 5"},
		"City":              {"Kraków"},
		"Postal code":       {"30-001"},
		"Country":           {"Polska"},
	}}
	f := newFixture(t, driver)

	saved, err := f.console.RunSettings(context.Background(), "local")
	if err != nil {
		t.Fatalf("run settings: %v", err)
	}
	want := model.UserProfile{
		FullName:   "Jan Kowalski",
		Email:      "jan@example.com",
		Street:     "ul. Długa 5",
		City:       "Kraków",
		PostalCode: "30-001",
		Country:    "Polska",
	}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
	if !driver.saw("**Settings saved!**") {
		t.Fatalf("expected confirmation, got %q", driver.infos)
	}
}
