package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/mail"
	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/steps"
	"github.com/goliatone/go-orderwizard/pkg/validation"
)

const tracerName = "github.com/goliatone/go-orderwizard/pkg/wizard"

// TemplateSource resolves templates and their documents.
type TemplateSource interface {
	Describe(id string) (model.TemplateDescriptor, error)
	LoadDocument(ref string) ([]byte, error)
}

// Option customises the Wizard.
type Option func(*Wizard)

// WithSessionStore shares a session store, e.g. to run its sweeper.
func WithSessionStore(store *SessionStore) Option {
	return func(w *Wizard) {
		w.sessions = store
	}
}

// WithProfiles sets the profile store used for prefills and fallbacks.
func WithProfiles(store profile.Store) Option {
	return func(w *Wizard) {
		w.profiles = store
	}
}

// WithEngine overrides the render engine.
func WithEngine(engine *render.Engine) Option {
	return func(w *Wizard) {
		w.engine = engine
	}
}

// WithIDGenerator sets the order number source.
func WithIDGenerator(ids render.IDGenerator) Option {
	return func(w *Wizard) {
		w.ids = ids
	}
}

// WithClock overrides the time source used for order dates.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		w.now = now
	}
}

// WithFromAddress sets the sender address of order emails.
func WithFromAddress(addr string) Option {
	return func(w *Wizard) {
		w.from = addr
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithTracer sets the tracer used around finalisation.
func WithTracer(tracer trace.Tracer) Option {
	return func(w *Wizard) {
		w.tracer = tracer
	}
}

// Wizard runs the order flow: template, step 1, step 2, optional step 3, then
// render, dispatch and quota accounting.
type Wizard struct {
	templates TemplateSource
	gate      access.Gate
	sender    mail.Sender

	sessions *SessionStore
	profiles profile.Store
	engine   *render.Engine
	ids      render.IDGenerator
	now      func() time.Time
	from     string
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New builds a Wizard. Missing optional collaborators get in-memory defaults.
func New(templates TemplateSource, gate access.Gate, sender mail.Sender, options ...Option) (*Wizard, error) {
	if templates == nil || gate == nil || sender == nil {
		return nil, errors.New("wizard: templates, gate and sender are required")
	}
	w := &Wizard{templates: templates, gate: gate, sender: sender}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if err := w.applyDefaults(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wizard) applyDefaults() error {
	if w.sessions == nil {
		w.sessions = NewSessionStore()
	}
	if w.profiles == nil {
		w.profiles = profile.NewMemoryStore()
	}
	if w.engine == nil {
		w.engine = render.NewEngine()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.tracer == nil {
		w.tracer = otel.Tracer(tracerName)
	}
	if w.ids == nil {
		ids, err := render.NewSnowflakeIDs(0)
		if err != nil {
			return fmt.Errorf("wizard: %w", err)
		}
		w.ids = ids
	}
	return nil
}

// Sessions exposes the session store.
func (w *Wizard) Sessions() *SessionStore { return w.sessions }

// Start checks access for userID and opens step 1 of templateID, replacing
// any session in progress.
func (w *Wizard) Start(ctx context.Context, userID, templateID string) (Prompt, error) {
	desc, err := w.templates.Describe(templateID)
	if err != nil {
		return Prompt{}, err
	}

	decision, err := w.gate.Check(ctx, userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("wizard: access check: %w", err)
	}
	if !decision.Allowed {
		w.logger.Info("wizard start denied",
			zap.String("user", userID),
			zap.String("template", desc.ID),
			zap.String("reason", string(decision.Reason)),
		)
		return Prompt{}, AccessDenied(decision)
	}

	var prompt Prompt
	err = w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		tx.Session = &Session{
			UserID:     userID,
			TemplateID: desc.ID,
			State:      StateStep1,
			Fields:     map[string]string{},
			Unlimited:  decision.Unlimited,
			CreatedAt:  tx.Now,
		}
		tx.Save()
		prompt = w.prompt(tx.Session, desc, StateStep1, steps.Step1(), nil)
		return nil
	})
	if err != nil {
		return Prompt{}, err
	}
	w.logger.Debug("wizard started", zap.String("user", userID), zap.String("template", desc.ID))
	return prompt, nil
}

// SubmitStep1 validates brand, product, size and price and opens step 2. On
// failure the step stays open and stored answers are untouched.
func (w *Wizard) SubmitStep1(ctx context.Context, userID string, values map[string]string) (Prompt, error) {
	var prompt Prompt
	err := w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		sess, desc, err := w.open(tx, userID, StateStep1)
		if err != nil {
			return err
		}

		answers, reqErr := collect(steps.Step1(), values)
		var priceErr error
		if answers[model.FieldPrice] != "" {
			_, priceErr = validation.ParsePrice(answers[model.FieldPrice])
		}
		if err := validation.Join("step 1 has invalid answers", reqErr, priceErr); err != nil {
			return err
		}

		sess.Merge(answers)
		sess.State = StateStep2
		tx.Save()
		prompt, err = w.step2Prompt(ctx, sess, desc)
		return err
	})
	return prompt, err
}

// Step2Prompt re-renders the open step 2.
func (w *Wizard) Step2Prompt(ctx context.Context, userID string) (Prompt, error) {
	var prompt Prompt
	err := w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		sess, desc, err := w.open(tx, userID, StateStep2)
		if err != nil {
			return err
		}
		prompt, err = w.step2Prompt(ctx, sess, desc)
		return err
	})
	return prompt, err
}

// Step3Prompt re-renders the open step 3.
func (w *Wizard) Step3Prompt(ctx context.Context, userID string) (Prompt, error) {
	var prompt Prompt
	err := w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		sess, desc, err := w.open(tx, userID, StateStep3)
		if err != nil {
			return err
		}
		prompt = w.prompt(sess, desc, StateStep3, steps.Step3(desc.Capabilities), sess.Fields)
		return nil
	})
	return prompt, err
}

// SubmitStep2 validates the contact and product details. It opens step 3 when
// the template has one, otherwise it finalises the order.
func (w *Wizard) SubmitStep2(ctx context.Context, userID string, values map[string]string) (Outcome, error) {
	var out Outcome
	err := w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		sess, desc, err := w.open(tx, userID, StateStep2)
		if err != nil {
			return err
		}

		fields := steps.Step2(desc.Capabilities)
		answers, err := validateStep2(fields, values)
		if err != nil {
			return err
		}
		sess.Merge(answers)

		if steps.HasStep3(desc.Capabilities) {
			sess.State = StateStep3
			tx.Save()
			prompt := w.prompt(sess, desc, StateStep3, steps.Step3(desc.Capabilities), sess.Fields)
			out.Prompt = &prompt
			return nil
		}

		receipt, err := w.finalize(ctx, tx, desc)
		if err != nil {
			return err
		}
		out.Receipt = &receipt
		return nil
	})
	return out, err
}

// SubmitStep3 stores the payment and delivery details and finalises the order.
func (w *Wizard) SubmitStep3(ctx context.Context, userID string, values map[string]string) (Outcome, error) {
	var out Outcome
	err := w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		sess, desc, err := w.open(tx, userID, StateStep3)
		if err != nil {
			return err
		}

		answers, err := collect(steps.Step3(desc.Capabilities), values)
		if err != nil {
			return err
		}
		sess.Merge(answers)

		receipt, err := w.finalize(ctx, tx, desc)
		if err != nil {
			return err
		}
		out.Receipt = &receipt
		return nil
	})
	return out, err
}

// Abandon discards the user's session. It is a no-op without one.
func (w *Wizard) Abandon(ctx context.Context, userID string) error {
	return w.sessions.WithSession(ctx, userID, func(tx *Tx) error {
		if tx.Session != nil {
			w.logger.Debug("wizard abandoned",
				zap.String("user", userID),
				zap.String("state", string(tx.Session.State)),
			)
		}
		tx.Clear()
		return nil
	})
}

// open loads the live session for a continuation and checks it is at want.
func (w *Wizard) open(tx *Tx, userID string, want State) (*Session, model.TemplateDescriptor, error) {
	if err := expect(tx, userID, want); err != nil {
		return nil, model.TemplateDescriptor{}, err
	}
	sess := tx.Session
	desc, err := w.templates.Describe(sess.TemplateID)
	if err != nil {
		tx.Clear()
		return nil, model.TemplateDescriptor{}, err
	}
	return sess, desc, nil
}

func (w *Wizard) step2Prompt(ctx context.Context, sess *Session, desc model.TemplateDescriptor) (Prompt, error) {
	saved := map[string]string{}
	p, ok, err := w.profiles.Get(ctx, sess.UserID)
	if err != nil {
		w.logger.Warn("profile lookup failed", zap.String("user", sess.UserID), zap.Error(err))
	} else if ok {
		saved[model.FieldEmail] = p.Email
	}
	return w.prompt(sess, desc, StateStep2, steps.Step2(desc.Capabilities), sess.Fields, saved), nil
}

func (w *Wizard) prompt(sess *Session, desc model.TemplateDescriptor, state State, fields []model.Field, defaults ...map[string]string) Prompt {
	total := 2
	if steps.HasStep3(desc.Capabilities) {
		total = 3
	}
	step := 1
	switch state {
	case StateStep2:
		step = 2
	case StateStep3:
		step = 3
	}
	return Prompt{
		UserID:     sess.UserID,
		TemplateID: desc.ID,
		Title:      desc.DisplayTitle(),
		State:      state,
		Step:       step,
		Steps:      total,
		Fields:     withDefaults(fields, defaults...),
	}
}

func validateStep2(fields []model.Field, values map[string]string) (map[string]string, error) {
	answers, reqErr := collect(fields, values)
	errs := []error{reqErr}

	// blank required answers are already reported by collect
	if v := answers[model.FieldEmail]; v != "" {
		email, err := validation.CheckEmail(v)
		errs = append(errs, err)
		answers[model.FieldEmail] = email
	}
	if v := answers[model.FieldImageURL]; v != "" {
		link, err := validation.CheckURL(v)
		errs = append(errs, err)
		answers[model.FieldImageURL] = link
	}
	answers[model.FieldDate] = validation.NormalizeDate(answers[model.FieldDate])

	if offered(fields, model.FieldTaxes) {
		_, err := validation.ParseTaxes(answers[model.FieldTaxes])
		errs = append(errs, err)
	}
	if offered(fields, model.FieldQuantity) {
		_, err := validation.ParseQuantity(answers[model.FieldQuantity])
		errs = append(errs, err)
	}

	if err := validation.Join("step 2 has invalid answers", errs...); err != nil {
		return nil, err
	}
	return answers, nil
}

// finalize renders and dispatches the order, then consumes one use unless
// access was unlimited when the session started. The session is cleared in
// every case; a delivery failure leaves the quota untouched.
func (w *Wizard) finalize(ctx context.Context, tx *Tx, desc model.TemplateDescriptor) (Receipt, error) {
	sess := tx.Session
	sess.State = StateRendering
	tx.Clear()

	ctx, span := w.tracer.Start(ctx, "wizard.finalize", trace.WithAttributes(
		attribute.String("template", desc.ID),
		attribute.Bool("unlimited", sess.Unlimited),
	))
	defer span.End()

	logger := w.logger.With(zap.String("user", sess.UserID), zap.String("template", desc.ID))

	prof, _, err := w.profiles.Get(ctx, sess.UserID)
	if err != nil {
		logger.Warn("profile lookup failed, rendering with defaults", zap.Error(err))
		prof = model.UserProfile{}
	}

	rc, err := render.NewContext(desc, sess.Fields, prof,
		render.WithClock(w.now),
		render.WithIDGenerator(w.ids),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context")
		return Receipt{}, renderFailure(err)
	}
	span.SetAttributes(attribute.String("order_number", rc.OrderNumber))

	body, err := w.engine.RenderDocument(ctx, w.templates, rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render")
		logger.Error("render failed", zap.Error(err))
		return Receipt{}, renderFailure(err)
	}

	msg := mail.Envelope(desc, mail.Order{
		Brand:   rc.Brand,
		Product: rc.Product,
		Size:    rc.Size,
		Email:   rc.Email,
	}, w.from, body)

	messageID, err := w.sender.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch")
		logger.Warn("order dispatch failed", zap.Error(err))
		return Receipt{}, TransportFailure(err)
	}
	sess.State = StateDispatched

	receipt := Receipt{
		TemplateID:    desc.ID,
		TemplateTitle: desc.DisplayTitle(),
		Email:         rc.Email,
		Product:       rc.ProductName(),
		Size:          rc.Size,
		Total:         render.FormatAmount(rc.Total),
		Currency:      rc.Currency,
		OrderNumber:   rc.OrderNumber,
		MessageID:     messageID,
		Unlimited:     sess.Unlimited,
	}

	if !sess.Unlimited {
		remaining, err := w.gate.ConsumeOne(ctx, sess.UserID)
		if err != nil {
			// the email is already out; report and keep the receipt
			span.RecordError(err)
			logger.Error("quota consume failed after dispatch", zap.Error(err))
		}
		receipt.Remaining = remaining
	}

	logger.Info("order dispatched",
		zap.String("order_number", rc.OrderNumber),
		zap.String("message_id", messageID),
		zap.Bool("unlimited", receipt.Unlimited),
		zap.Int("remaining", receipt.Remaining),
	)
	return receipt, nil
}
