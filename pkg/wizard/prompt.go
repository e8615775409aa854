package wizard

import (
	"strings"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/validation"
)

// Prompt is one step presented to the user. Field defaults carry previously
// entered values so a re-prompt does not lose input.
type Prompt struct {
	UserID     string        `json:"userId"`
	TemplateID string        `json:"templateId,omitempty"`
	Title      string        `json:"title"`
	State      State         `json:"state"`
	Step       int           `json:"step"`
	Steps      int           `json:"steps"`
	Fields     []model.Field `json:"fields"`
}

// Outcome is the result of a step submission: either the next prompt or the
// receipt of a dispatched order.
type Outcome struct {
	Prompt  *Prompt  `json:"prompt,omitempty"`
	Receipt *Receipt `json:"receipt,omitempty"`
}

// Done reports whether the order was dispatched.
func (o Outcome) Done() bool { return o.Receipt != nil }

// Receipt summarises a dispatched order.
type Receipt struct {
	TemplateID    string `json:"templateId"`
	TemplateTitle string `json:"templateTitle"`
	Email         string `json:"email"`
	Product       string `json:"product"`
	Size          string `json:"size,omitempty"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
	OrderNumber   string `json:"orderNumber"`
	MessageID     string `json:"messageId"`
	Unlimited     bool   `json:"unlimited"`
	Remaining     int    `json:"remaining"`
}

// TotalWithCurrency renders the total the way the confirmation shows it.
func (r Receipt) TotalWithCurrency() string {
	return r.Total + r.Currency
}

// ValidationMessages maps a step validation error onto the prompt fields.
func (p Prompt) ValidationMessages(err error) render.ErrorMapping {
	return render.MapError(p.Fields, err)
}

// collect picks the answers for fields out of values and checks required ones.
// Keys that do not belong to the step are ignored.
func collect(fields []model.Field, values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	var errs []error
	for _, f := range fields {
		v := strings.TrimSpace(values[f.ID])
		if f.Required && f.Default == "" {
			errs = append(errs, validation.Required(f.ID, v))
		}
		out[f.ID] = v
	}
	return out, validation.Join("some answers are missing", errs...)
}

func withDefaults(fields []model.Field, defaults ...map[string]string) []model.Field {
	out := make([]model.Field, len(fields))
	copy(out, fields)
	for i := range out {
		for _, d := range defaults {
			if v := strings.TrimSpace(d[out[i].ID]); v != "" {
				out[i].Default = v
				break
			}
		}
	}
	return out
}

func offered(fields []model.Field, id string) bool {
	for _, f := range fields {
		if f.ID == id {
			return true
		}
	}
	return false
}
