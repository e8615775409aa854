package replies

import (
	"embed"
	"io/fs"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/steps"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

//go:embed templates/*.tpl
var embedded embed.FS

// Templates returns the embedded reply templates.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

const fallbackMessage = "Something went wrong. Please try again."

// Composer turns wizard results and errors into reply text.
type Composer struct {
	engine *Engine
}

// NewComposer builds a composer over the embedded templates. Options are
// applied after the defaults, so WithBaseDir overrides individual files.
func NewComposer(options ...Option) (*Composer, error) {
	engine, err := NewEngine(append([]Option{WithFS(Templates())}, options...)...)
	if err != nil {
		return nil, err
	}
	return &Composer{engine: engine}, nil
}

// Engine exposes the underlying template engine.
func (c *Composer) Engine() *Engine { return c.engine }

// Receipt confirms a dispatched order.
func (c *Composer) Receipt(r wizard.Receipt) (string, error) {
	return c.engine.Render("receipt", map[string]any{
		"templateTitle": r.TemplateTitle,
		"email":         r.Email,
		"product":       r.Product,
		"size":          r.Size,
		"total":         r.Total,
		"currency":      r.Currency,
		"orderNumber":   r.OrderNumber,
		"unlimited":     r.Unlimited,
		"remaining":     r.Remaining,
	})
}

// Prompt is the header shown above a step's inputs.
func (c *Composer) Prompt(p wizard.Prompt) (string, error) {
	return c.engine.Render("prompt", map[string]any{
		"title": p.Title,
		"step":  p.Step,
		"steps": p.Steps,
	})
}

// Catalog lists the templates a user can pick.
func (c *Composer) Catalog(list []model.TemplateDescriptor) (string, error) {
	items := make([]any, 0, len(list))
	for _, desc := range list {
		items = append(items, map[string]any{
			"id":        desc.ID,
			"title":     desc.DisplayTitle(),
			"thirdStep": steps.HasStep3(desc.Capabilities),
		})
	}
	return c.engine.Render("catalog", map[string]any{"templates": items})
}

// Status describes a user's access for the limit and access checks.
func (c *Composer) Status(st access.Status) (string, error) {
	return c.engine.Render("status", map[string]any{
		"userId":    st.UserID,
		"unlimited": st.Unlimited,
		"counted":   st.Counted,
		"remaining": st.Remaining,
		"reason":    string(st.Reason),
		"expiresAt": formatDate(st.ExpiresAt),
		"daysLeft":  st.DaysLeft,
	})
}

// Redeemed confirms a redeemed code. st is the user's status after redeeming.
func (c *Composer) Redeemed(code access.Code, st access.Status) (string, error) {
	return c.engine.Render("redeemed", map[string]any{
		"type":      string(code.Type),
		"days":      code.Type.Days(),
		"expiresAt": formatDate(st.ExpiresAt),
	})
}

// Granted confirms an administrator grant. days wins over uses when set.
func (c *Composer) Granted(userID string, days, uses int, until *time.Time) (string, error) {
	return c.engine.Render("granted", map[string]any{
		"userId":    userID,
		"byDays":    days > 0,
		"days":      days,
		"uses":      uses,
		"expiresAt": formatDate(until),
	})
}

// Revoked confirms that every grant was removed.
func (c *Composer) Revoked() (string, error) {
	return c.engine.Render("revoked", nil)
}

// ProfileSaved confirms the settings wizard.
func (c *Composer) ProfileSaved(p model.UserProfile) (string, error) {
	return c.engine.Render("profile_saved", map[string]any{
		"fullName":   p.FullName,
		"email":      p.Email,
		"street":     p.Street,
		"city":       p.City,
		"postalCode": p.PostalCode,
		"country":    p.Country,
	})
}

// Failure explains err to the user. fields are the prompts of the step that
// failed, used to label validation messages. It never fails; when a template
// cannot render the plain error message is returned.
func (c *Composer) Failure(err error, fields []model.Field) string {
	if err == nil {
		return ""
	}

	var (
		out     string
		rendErr error
	)
	switch {
	case wizard.IsValidation(err):
		lines := render.MapError(fields, err).Lines(fields)
		out, rendErr = c.engine.Render("validation", map[string]any{"lines": toAny(lines)})
	default:
		if reason, ok := wizard.AccessReason(err); ok {
			out, rendErr = c.engine.Render("access_denied", map[string]any{
				"reason":    string(reason),
				"expiresAt": expiryOf(err),
			})
			break
		}
		out, rendErr = c.engine.Render("error", map[string]any{"message": userMessage(err)})
	}
	if rendErr != nil {
		return "❌ " + userMessage(err)
	}
	return out
}

// userMessage returns the go-errors message for domain errors and a generic
// line for anything else, so internals never reach the user.
func userMessage(err error) string {
	var e *goerrors.Error
	if !goerrors.As(err, &e) || e == nil || e.Category == goerrors.CategoryInternal {
		return fallbackMessage
	}
	return sentence(e.Message)
}

func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return fallbackMessage
	}
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "!") {
		msg += "."
	}
	return msg
}

func expiryOf(err error) string {
	var e *goerrors.Error
	if !goerrors.As(err, &e) || e == nil {
		return ""
	}
	raw, _ := e.Metadata["expires_at"].(string)
	t, perr := time.Parse(time.RFC3339, raw)
	if perr != nil {
		return ""
	}
	return formatDate(&t)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(render.DateLayout)
}

func toAny(lines []string) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
