package render

import (
	"strconv"
	"strings"
)

// Literal defaults used when neither the profile nor the session has a value.
const (
	DefaultFirstName  = "Jan"
	DefaultFullName   = "Jan Kowalski"
	DefaultCustomer   = "Customer"
	DefaultStreet     = "ul. Przykładowa 123"
	DefaultPostalCode = "00-000"
	DefaultCity       = "Warszawa"
	DefaultCountry    = "Country"
	DefaultPhone      = "+1 234 567 890"
	DefaultCardEnd    = "1234"
)

type token struct {
	name string
	// bounded tokens only match between non-word characters.
	bounded bool
	value   func(Context) string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (c Context) addressName() string {
	return firstNonEmpty(c.Profile.FullName, c.FirstName, c.WholeName, DefaultCustomer)
}

func (c Context) billingName() string {
	return firstNonEmpty(c.Profile.FullName, c.WholeName, c.FirstName, DefaultCustomer)
}

func (c Context) cityLine(fallback string) string {
	if c.Profile.IsZero() {
		return fallback
	}
	return firstNonEmpty(c.Profile.City, DefaultCity) + ", " + firstNonEmpty(c.Profile.PostalCode, DefaultPostalCode)
}

func (c Context) countryLine() string {
	return firstNonEmpty(c.Profile.Country, DefaultCountry)
}

func addressTokens(prefix string, name func(Context) string, line2 string) []token {
	return []token{
		{name: prefix + "1", value: name},
		{name: prefix + "2", value: func(c Context) string { return firstNonEmpty(c.Profile.Street, line2) }},
		{name: prefix + "3", value: func(c Context) string { return c.cityLine("City, Postal Code") }},
		{name: prefix + "4", value: Context.countryLine},
		{name: prefix + "5", value: func(Context) string { return "" }},
	}
}

func vocabulary() []token {
	price := func(c Context) string { return c.Money(c.Price) }
	total := func(c Context) string { return c.Money(c.Total) }
	styleID := func(c Context) string { return c.StyleID }
	size := func(c Context) string { return c.Size }
	date := func(c Context) string { return c.Date }
	orderNumber := func(c Context) string { return c.OrderNumber }
	colour := func(c Context) string { return c.Colour }
	image := func(c Context) string { return c.ImageURL }
	currency := func(c Context) string { return c.Currency }
	firstName := func(c Context) string {
		return firstNonEmpty(c.Profile.FullName, c.FirstName, DefaultFirstName)
	}
	wholeName := func(c Context) string {
		return firstNonEmpty(c.Profile.FullName, c.WholeName, DefaultFullName)
	}

	tokens := []token{
		{name: "PRODUCT_IMAGE", value: image},
		{name: "PRODUCT_LINK", value: image},
		{name: "PRODUCT_NAME", value: Context.ProductName},
		{name: "PRODUCTNAME", value: Context.ProductName},
		{name: "PRODUCT_SUBTOTAL", value: func(c Context) string { return c.Money(c.Subtotal) }},
		{name: "PRODUCT_QTY", value: func(c Context) string { return "Qty " + strconv.Itoa(c.Quantity) }},
		{name: "PRODUCT_PRICE", value: price},
		{name: "PRODUCTPRICE", value: price},
		{name: "ORDER_PRICE", value: price},
		{name: "PRODUCT_COLOUR", value: colour},
		{name: "PRODUCTSTYLE", value: styleID},
		{name: "PRODUCTSIZE", value: size},
		{name: "PRODUCT", value: func(c Context) string { return c.Product }},
		{name: "STYLE_ID", value: styleID},
		{name: "STYLE", bounded: true, value: styleID},
		{name: "SIZE", bounded: true, value: size},
		{name: "PRICE", value: price},
		{name: "FEE", value: func(c Context) string { return c.Money(c.ProcessingFee) }},
		{name: "SHIPPING", value: func(c Context) string { return c.Money(c.ShippingFee) }},
		{name: "TAXES", value: func(c Context) string { return c.Money(c.Taxes) }},
		{name: "TOTAL*", value: func(c Context) string { return total(c) + "*" }},
		{name: "TOTAL", value: total},
		{name: "ORDER_TOTAL", value: total},
		{name: "CARTTOTAL", value: total},
		{name: "DATE", bounded: true, value: date},
		{name: "ORDERDATE", value: date},
		{name: "ORDER_NUMBER", value: orderNumber},
		{name: "ORDERNUMBER", value: orderNumber},
		{name: "COLOUR", bounded: true, value: colour},
		{name: "REFERENCE", bounded: true, value: func(c Context) string { return c.Reference }},
		{name: "FIRSTNAME", bounded: true, value: firstName},
		{name: "FIRST_NAME", value: firstName},
		{name: "WHOLE_NAME", value: wholeName},
		{name: "WHOLENAME", value: wholeName},
		{name: "FULL_NAME", value: func(c Context) string {
			return firstNonEmpty(c.Profile.FullName, c.WholeName, c.FirstName, DefaultFullName)
		}},
		{name: "EMAIL", bounded: true, value: func(c Context) string { return c.Email }},
		{name: "QUANTITY", bounded: true, value: func(c Context) string { return strconv.Itoa(c.Quantity) }},
		{name: "CURRENCY_STR", value: currency},
		{name: "CURRENCY", bounded: true, value: currency},
		{name: "PHONE_NUMBER", value: func(c Context) string { return firstNonEmpty(c.PhoneNumber, DefaultPhone) }},
		{name: "CARD_END", value: func(c Context) string { return firstNonEmpty(c.CardEnd, DefaultCardEnd) }},
		{name: "ESTIMATED_DELIVERY", value: func(c Context) string { return c.EstimatedDelivery }},
		{name: "STREET", value: func(c Context) string { return firstNonEmpty(c.Profile.Street, DefaultStreet) }},
		{name: "POSTAL_CODE", value: func(c Context) string { return firstNonEmpty(c.Profile.PostalCode, DefaultPostalCode) }},
		{name: "CITY", value: func(c Context) string { return firstNonEmpty(c.Profile.City, DefaultCity) }},
		{name: "SHIPPING_JAN", value: func(c Context) string {
			return firstNonEmpty(c.Profile.FullName, c.FirstName, c.WholeName, DefaultFullName)
		}},
		{name: "BILLING_JAN", value: func(c Context) string {
			return firstNonEmpty(c.Profile.FullName, c.WholeName, c.FirstName, DefaultFullName)
		}},
	}
	tokens = append(tokens, addressTokens("ADDRESS", Context.addressName, "Shipping Address Line 1")...)
	tokens = append(tokens, addressTokens("SHIPPING", Context.addressName, "Shipping Address Line 1")...)
	tokens = append(tokens, addressTokens("BILLING", Context.billingName, "Billing Address Line 1")...)
	return tokens
}
