package model

// Field identifiers exchanged at step boundaries. The same ids key the
// collected values of a wizard session.
const (
	FieldBrand    = "brand"
	FieldProduct  = "product"
	FieldSize     = "size"
	FieldPrice    = "price"
	FieldEmail    = "email"
	FieldDate     = "date"
	FieldImageURL = "image_url"

	FieldStyleID           = "style_id"
	FieldColour            = "colour"
	FieldTaxes             = "taxes"
	FieldReference         = "reference"
	FieldFirstName         = "first_name"
	FieldWholeName         = "whole_name"
	FieldQuantity          = "quantity"
	FieldCurrency          = "currency"
	FieldPhoneNumber       = "phone_number"
	FieldCardEnd           = "card_end"
	FieldEstimatedDelivery = "estimated_delivery"

	FieldFullName   = "full_name"
	FieldStreet     = "street"
	FieldCity       = "city"
	FieldPostalCode = "postal_code"
	FieldCountry    = "country"
)

// Field describes one prompt presented to the user.
type Field struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required"`
}

var fieldCatalog = map[string]Field{
	FieldBrand:             {ID: FieldBrand, Label: "Brand", Placeholder: "e.g. Nike", Required: true},
	FieldProduct:           {ID: FieldProduct, Label: "Product name", Placeholder: "e.g. Air Jordan 1", Required: true},
	FieldSize:              {ID: FieldSize, Label: "Size (optional)", Placeholder: "e.g. 42"},
	FieldPrice:             {ID: FieldPrice, Label: "Price (number only)", Placeholder: "e.g. 250.00", Required: true},
	FieldEmail:             {ID: FieldEmail, Label: "Email", Placeholder: "e.g. customer@example.com", Required: true},
	FieldDate:              {ID: FieldDate, Label: "Date (e.g. 22/12/2024)", Placeholder: "e.g. 22/12/2024", Required: true},
	FieldImageURL:          {ID: FieldImageURL, Label: "Image link (public URL)", Placeholder: "https://i.imgur.com/abc123.jpg", Required: true},
	FieldStyleID:           {ID: FieldStyleID, Label: "Style ID", Placeholder: "e.g. DZ5485-612", Required: true},
	FieldColour:            {ID: FieldColour, Label: "Colour", Placeholder: "e.g. Black, White", Required: true},
	FieldTaxes:             {ID: FieldTaxes, Label: "Taxes (number only)", Placeholder: "e.g. 15.00"},
	FieldReference:         {ID: FieldReference, Label: "Reference number", Placeholder: "e.g. REF123456", Required: true},
	FieldFirstName:         {ID: FieldFirstName, Label: "First name", Placeholder: "e.g. Jan", Required: true},
	FieldWholeName:         {ID: FieldWholeName, Label: "Full name", Placeholder: "e.g. Jan Kowalski", Required: true},
	FieldQuantity:          {ID: FieldQuantity, Label: "Quantity", Placeholder: "e.g. 1", Default: "1", Required: true},
	FieldCurrency:          {ID: FieldCurrency, Label: "Currency: $, € or zł", Placeholder: "e.g. $", Default: DefaultCurrency, Required: true},
	FieldPhoneNumber:       {ID: FieldPhoneNumber, Label: "Phone number", Placeholder: "e.g. +48 123 456 789", Required: true},
	FieldCardEnd:           {ID: FieldCardEnd, Label: "Last 4 card digits", Placeholder: "e.g. 1234", Required: true},
	FieldEstimatedDelivery: {ID: FieldEstimatedDelivery, Label: "Estimated delivery date", Placeholder: "e.g. 25/12/2024", Required: true},

	FieldFullName:   {ID: FieldFullName, Label: "Full name", Placeholder: "e.g. Jan Kowalski", Required: true},
	FieldStreet:     {ID: FieldStreet, Label: "Street and number", Placeholder: "e.g. ul. Przykładowa 123", Required: true},
	FieldCity:       {ID: FieldCity, Label: "City", Placeholder: "e.g. Warszawa", Required: true},
	FieldPostalCode: {ID: FieldPostalCode, Label: "Postal code", Placeholder: "e.g. 00-000", Required: true},
	FieldCountry:    {ID: FieldCountry, Label: "Country", Placeholder: "e.g. Polska", Required: true},
}

// FieldFor returns the prompt definition for id. Unknown ids yield a bare
// required field labelled with the id.
func FieldFor(id string) Field {
	if f, ok := fieldCatalog[id]; ok {
		return f
	}
	return Field{ID: id, Label: id, Required: true}
}

// FieldsFor maps ids to prompt definitions, preserving order.
func FieldsFor(ids ...string) []Field {
	out := make([]Field, 0, len(ids))
	for _, id := range ids {
		out = append(out, FieldFor(id))
	}
	return out
}

// FieldIDs extracts the ids of fields in order.
func FieldIDs(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.ID)
	}
	return out
}
