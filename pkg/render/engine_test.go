package render_test

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/render"
	"github.com/goliatone/go-orderwizard/pkg/testsupport"
	"github.com/goliatone/go-orderwizard/pkg/validation"
)

var (
	nike   = model.TemplateDescriptor{ID: "nike", DocumentRef: "nike.html", Capabilities: model.NewCapabilities(model.CapCurrency, model.CapCardEnd)}
	stockx = model.TemplateDescriptor{ID: "stockx", DocumentRef: "stockx_new.html", MoneyLayout: model.MoneyLeading}
)

func newContext(t *testing.T, desc model.TemplateDescriptor, overrides map[string]string, profile model.UserProfile) render.Context {
	t.Helper()

	rc, err := render.NewContext(desc, testsupport.OrderFields(overrides), profile,
		render.WithClock(testsupport.Clock()),
		render.WithIDGenerator(&testsupport.SequenceIDs{Prefix: "ORD-"}),
	)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return rc
}

func renderString(t *testing.T, rc render.Context, body string) string {
	t.Helper()

	out, err := render.NewEngine().Render(testsupport.Context(), rc, []byte(body))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func TestNewContext_SingleItemTotals(t *testing.T) {
	rc := newContext(t, nike, nil, model.UserProfile{})

	if rc.Subtotal != 250 {
		t.Fatalf("expected subtotal 250, got %v", rc.Subtotal)
	}
	if got := render.FormatAmount(rc.Total); got != "268.90" {
		t.Fatalf("expected total 268.90, got %s", got)
	}
	if got := renderString(t, rc, "TOTAL"); got != "268.90$" {
		t.Fatalf("unexpected trailing layout: %q", got)
	}
}

func TestNewContext_ThousandsPriceWithQuantityAndTaxes(t *testing.T) {
	rc := newContext(t, nike, map[string]string{
		model.FieldPrice:    "$1,200",
		model.FieldQuantity: "2",
		model.FieldTaxes:    "15.00",
	}, model.UserProfile{})

	if rc.Price != 1200 {
		t.Fatalf("expected cleaned price 1200, got %v", rc.Price)
	}
	if got := render.FormatAmount(rc.Subtotal); got != "2400.00" {
		t.Fatalf("expected subtotal 2400.00, got %s", got)
	}
	if got := render.FormatAmount(rc.Total); got != "2433.90" {
		t.Fatalf("expected total 2433.90, got %s", got)
	}
}

func TestNewContext_Defaults(t *testing.T) {
	rc := newContext(t, model.TemplateDescriptor{ID: "grailpoint", Currency: "zł"}, map[string]string{
		model.FieldDate: "",
	}, model.UserProfile{})

	if rc.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", rc.Quantity)
	}
	if rc.Currency != "zł" {
		t.Fatalf("expected template currency, got %q", rc.Currency)
	}
	if rc.Date != "22/12/2024" {
		t.Fatalf("expected clock date, got %q", rc.Date)
	}
	if rc.OrderNumber != "ORD-1" {
		t.Fatalf("unexpected order number %q", rc.OrderNumber)
	}
}

func TestNewContext_InvalidValues(t *testing.T) {
	_, err := render.NewContext(nike, testsupport.OrderFields(map[string]string{
		model.FieldPrice:    "free",
		model.FieldQuantity: "0",
	}), model.UserProfile{}, render.WithIDGenerator(&testsupport.SequenceIDs{}))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !validation.Is(err, validation.CodeInvalidNumber) {
		t.Fatalf("expected invalid number code, got %v", err)
	}
	mapped := render.MapError([]model.Field{model.FieldFor(model.FieldPrice), model.FieldFor(model.FieldQuantity)}, err)
	if len(mapped.Fields[model.FieldPrice]) != 1 || len(mapped.Fields[model.FieldQuantity]) != 1 {
		t.Fatalf("expected both fields mapped, got %#v", mapped)
	}
}

func TestEngine_LongestMatchWins(t *testing.T) {
	rc := newContext(t, nike, map[string]string{
		model.FieldStyleID: "DZ5485-612",
	}, model.UserProfile{})

	got := renderString(t, rc, "PRODUCTSIZE|SIZE|ORDERDATE|DATE|STYLE_ID|STYLE|TOTAL*|ORDER_TOTAL|PRODUCTPRICE|PRICE")
	want := "42|42|22/12/2024|22/12/2024|DZ5485-612|DZ5485-612|268.90$*|268.90$|250.00$|250.00$"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_WordBoundedTokens(t *testing.T) {
	rc := newContext(t, nike, nil, model.UserProfile{})

	body := "XSIZE SIZEY _DATE EMAILS (EMAIL)"
	want := "XSIZE SIZEY _DATE EMAILS (buyer@example.com)"
	if got := renderString(t, rc, body); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEngine_EscapesAndNeverRescans(t *testing.T) {
	rc := newContext(t, nike, map[string]string{
		model.FieldBrand:   `<b>"A&B"</b>`,
		model.FieldProduct: "SIZE",
		model.FieldColour:  "it's",
	}, model.UserProfile{})

	got := renderString(t, rc, "PRODUCT_NAME / PRODUCT / COLOUR")
	want := "&lt;b&gt;&quot;A&amp;B&quot;&lt;/b&gt; SIZE / SIZE / it&#39;s"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEngine_LeadingMoneyLayout(t *testing.T) {
	rc := newContext(t, stockx, nil, model.UserProfile{})

	got := renderString(t, rc, "PRICE FEE TAXES")
	if want := "$ 250.00 $ 5.95 $ 0.00"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEngine_NameAndAddressFallbacks(t *testing.T) {
	body := "FIRSTNAME|WHOLE_NAME|FULL_NAME|ADDRESS1|BILLING1|ADDRESS3|BILLING2|STREET|PHONE_NUMBER|CARD_END"

	cases := []struct {
		name      string
		overrides map[string]string
		profile   model.UserProfile
		want      string
	}{
		{
			name: "literal defaults",
			want: "Jan|Jan Kowalski|Jan Kowalski|Customer|Customer|City, Postal Code|Billing Address Line 1|ul. Przykładowa 123|+1 234 567 890|1234",
		},
		{
			name: "step values",
			overrides: map[string]string{
				model.FieldFirstName:   "Anna",
				model.FieldWholeName:   "Anna Nowak",
				model.FieldPhoneNumber: "+48 600 100 200",
				model.FieldCardEnd:     "9876",
			},
			want: "Anna|Anna Nowak|Anna Nowak|Anna|Anna Nowak|City, Postal Code|Billing Address Line 1|ul. Przykładowa 123|+48 600 100 200|9876",
		},
		{
			name:      "profile first",
			overrides: map[string]string{model.FieldFirstName: "Anna"},
			profile: model.UserProfile{
				FullName:   "Piotr Zieliński",
				Street:     "ul. Długa 5",
				City:       "Kraków",
				PostalCode: "30-001",
			},
			want: "Piotr Zieliński|Piotr Zieliński|Piotr Zieliński|Piotr Zieliński|Piotr Zieliński|Kraków, 30-001|ul. Długa 5|ul. Długa 5|+1 234 567 890|1234",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc := newContext(t, nike, tc.overrides, tc.profile)
			if diff := cmp.Diff(tc.want, renderString(t, rc, body)); diff != "" {
				t.Fatalf("render mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_Idempotent(t *testing.T) {
	rc := newContext(t, nike, nil, model.UserProfile{})
	engine := render.NewEngine()
	body := []byte("ORDER_NUMBER TOTAL SHIPPING_JAN")

	first, err := engine.Render(testsupport.Context(), rc, body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := engine.Render(testsupport.Context(), rc, body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical output, got %q and %q", first, second)
	}
}

func TestEngine_Golden(t *testing.T) {
	rc := newContext(t, stockx, map[string]string{
		model.FieldPrice:    "$1,200",
		model.FieldQuantity: "2",
		model.FieldTaxes:    "15.00",
	}, model.UserProfile{})

	body := testsupport.MustReadGolden(t, filepath.Join("testdata", "receipt.html"))
	out, err := render.NewEngine().Render(testsupport.Context(), rc, body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	goldenPath := filepath.Join("testdata", "receipt.golden.html")
	if testsupport.WriteMaybeGolden(t, goldenPath, out) {
		return
	}
	want := testsupport.MustReadGoldenString(t, goldenPath)
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}

func TestSnowflakeIDs_Unique(t *testing.T) {
	ids, err := render.NewSnowflakeIDs(7)
	if err != nil {
		t.Fatalf("new snowflake ids: %v", err)
	}
	a, b := ids.NextID(), ids.NextID()
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if _, err := strconv.ParseInt(a, 10, 64); err != nil {
		t.Fatalf("expected decimal id, got %q", a)
	}
	if _, err := render.NewSnowflakeIDs(5000); err == nil {
		t.Fatalf("expected node range error")
	}
}

func TestParseAnswers(t *testing.T) {
	got, err := render.ParseAnswers([]byte("brand: Nike\nprice: 250.00\nquantity: 2\nsize: \"42\"\n"))
	if err != nil {
		t.Fatalf("parse answers: %v", err)
	}
	want := map[string]string{"brand": "Nike", "price": "250.00", "quantity": "2", "size": "42"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}

	if _, err := render.ParseAnswers([]byte("brand: [a, b]\n")); err == nil {
		t.Fatalf("expected an error for a list answer")
	}
}
