package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/validation"
)

// DateLayout is the DD/MM/YYYY form used for order dates.
const DateLayout = "02/01/2006"

// IDGenerator issues order numbers.
type IDGenerator interface {
	NextID() string
}

// SnowflakeIDs issues time-ordered decimal order numbers unique per node.
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs creates a generator for the given node id (0-1023).
func NewSnowflakeIDs(node int64) (*SnowflakeIDs, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("render: snowflake node %d: %w", node, err)
	}
	return &SnowflakeIDs{node: n}, nil
}

// NextID returns a fresh order number.
func (g *SnowflakeIDs) NextID() string {
	return g.node.Generate().String()
}

// Context holds everything a document needs. It is derived from the collected
// session values once and never persisted.
type Context struct {
	Template model.TemplateDescriptor
	Profile  model.UserProfile

	Brand    string
	Product  string
	Size     string
	Email    string
	Date     string
	ImageURL string

	StyleID           string
	Colour            string
	Reference         string
	FirstName         string
	WholeName         string
	Currency          string
	PhoneNumber       string
	CardEnd           string
	EstimatedDelivery string

	Price    float64
	Taxes    float64
	Quantity int

	Subtotal      float64
	ProcessingFee float64
	ShippingFee   float64
	Total         float64

	OrderNumber string
	RenderedAt  time.Time
}

// ContextOption customises NewContext.
type ContextOption func(*contextConfig)

type contextConfig struct {
	now func() time.Time
	ids IDGenerator
}

// WithClock overrides the time source used for the default order date.
func WithClock(now func() time.Time) ContextOption {
	return func(cfg *contextConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithIDGenerator sets the order number source.
func WithIDGenerator(ids IDGenerator) ContextOption {
	return func(cfg *contextConfig) {
		if ids != nil {
			cfg.ids = ids
		}
	}
}

// NewContext validates the numeric values in fields and derives the totals.
// Without an IDGenerator a snowflake node 0 is used.
func NewContext(desc model.TemplateDescriptor, fields map[string]string, profile model.UserProfile, opts ...ContextOption) (Context, error) {
	cfg := contextConfig{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ids == nil {
		ids, err := NewSnowflakeIDs(0)
		if err != nil {
			return Context{}, err
		}
		cfg.ids = ids
	}

	get := func(id string) string { return strings.TrimSpace(fields[id]) }

	price, priceErr := validation.ParsePrice(get(model.FieldPrice))
	taxes, taxesErr := validation.ParseTaxes(get(model.FieldTaxes))
	quantity, qtyErr := validation.ParseQuantity(get(model.FieldQuantity))
	if err := validation.Join("order values are invalid", priceErr, taxesErr, qtyErr); err != nil {
		return Context{}, err
	}

	now := cfg.now()
	date := validation.NormalizeDate(get(model.FieldDate))
	if date == "" {
		date = now.Format(DateLayout)
	}
	currency := get(model.FieldCurrency)
	if currency == "" {
		currency = desc.DefaultCurrency()
	}

	rc := Context{
		Template:          desc,
		Profile:           profile,
		Brand:             get(model.FieldBrand),
		Product:           get(model.FieldProduct),
		Size:              get(model.FieldSize),
		Email:             get(model.FieldEmail),
		Date:              date,
		ImageURL:          get(model.FieldImageURL),
		StyleID:           get(model.FieldStyleID),
		Colour:            get(model.FieldColour),
		Reference:         get(model.FieldReference),
		FirstName:         get(model.FieldFirstName),
		WholeName:         get(model.FieldWholeName),
		Currency:          currency,
		PhoneNumber:       get(model.FieldPhoneNumber),
		CardEnd:           get(model.FieldCardEnd),
		EstimatedDelivery: get(model.FieldEstimatedDelivery),
		Price:             price,
		Taxes:             taxes,
		Quantity:          quantity,
		ProcessingFee:     ProcessingFee,
		ShippingFee:       ShippingFee,
		OrderNumber:       cfg.ids.NextID(),
		RenderedAt:        now,
	}
	rc.Subtotal = Round2(price * float64(quantity))
	rc.Total = Round2(rc.Subtotal + rc.ProcessingFee + rc.ShippingFee + rc.Taxes)
	return rc, nil
}

// Money formats v with the order currency and the template layout.
func (c Context) Money(v float64) string {
	return FormatMoney(v, c.Currency, c.Template.Layout())
}

// ProductName is "brand product".
func (c Context) ProductName() string {
	return strings.TrimSpace(c.Brand + " " + c.Product)
}
