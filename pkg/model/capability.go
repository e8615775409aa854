package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability is a single named requirement a template places on the wizard.
type Capability uint32

const (
	CapStyleID Capability = 1 << iota
	CapColour
	CapTaxes
	CapReference
	CapFirstName
	CapWholeName
	CapQuantity
	CapCurrency
	CapPhoneNumber
	CapCardEnd
	CapEstimatedDelivery
	CapThirdStep

	// Informational flags kept from the catalog. They never produce prompts.
	CapShippingAddress
	CapSize
	CapDiscount
	CapShippingPrice
	CapStreet
	CapPostalCode
	CapCity
)

var capabilityOrder = []Capability{
	CapStyleID, CapColour, CapTaxes, CapReference, CapFirstName, CapWholeName,
	CapQuantity, CapCurrency, CapPhoneNumber, CapCardEnd, CapEstimatedDelivery,
	CapThirdStep, CapShippingAddress, CapSize, CapDiscount, CapShippingPrice,
	CapStreet, CapPostalCode, CapCity,
}

var capabilityNames = map[Capability]string{
	CapStyleID:           "styleId",
	CapColour:            "colour",
	CapTaxes:             "taxes",
	CapReference:         "reference",
	CapFirstName:         "firstName",
	CapWholeName:         "wholeName",
	CapQuantity:          "quantity",
	CapCurrency:          "currency",
	CapPhoneNumber:       "phoneNumber",
	CapCardEnd:           "cardEnd",
	CapEstimatedDelivery: "estimatedDelivery",
	CapThirdStep:         "thirdStep",
	CapShippingAddress:   "shippingAddress",
	CapSize:              "size",
	CapDiscount:          "discount",
	CapShippingPrice:     "shippingPrice",
	CapStreet:            "street",
	CapPostalCode:        "postalCode",
	CapCity:              "city",
}

// String returns the catalog name of the capability.
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", uint32(c))
}

// ParseCapability resolves a catalog name (case-insensitive, with an optional
// "needs" prefix) to its Capability.
func ParseCapability(name string) (Capability, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "needs")
	if key == "modal3" {
		return CapThirdStep, nil
	}
	for c, n := range capabilityNames {
		if strings.ToLower(n) == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("model: unknown capability %q", name)
}

// Capabilities is a set of Capability flags.
type Capabilities uint32

// NewCapabilities builds a set from the given flags.
func NewCapabilities(caps ...Capability) Capabilities {
	var set Capabilities
	return set.With(caps...)
}

// ParseCapabilities builds a set from catalog names.
func ParseCapabilities(names []string) (Capabilities, error) {
	var set Capabilities
	for _, name := range names {
		c, err := ParseCapability(name)
		if err != nil {
			return 0, err
		}
		set = set.With(c)
	}
	return set, nil
}

// Has reports whether c is in the set.
func (s Capabilities) Has(c Capability) bool {
	return uint32(s)&uint32(c) != 0
}

// With returns a copy of the set with the flags added.
func (s Capabilities) With(caps ...Capability) Capabilities {
	for _, c := range caps {
		s |= Capabilities(c)
	}
	return s
}

// Without returns a copy of the set with the flags removed.
func (s Capabilities) Without(caps ...Capability) Capabilities {
	for _, c := range caps {
		s &^= Capabilities(c)
	}
	return s
}

// Names lists the set members in declaration order.
func (s Capabilities) Names() []string {
	var out []string
	for _, c := range capabilityOrder {
		if s.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}

// MarshalJSON encodes the set as a list of names.
func (s Capabilities) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes a list of names.
func (s *Capabilities) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParseCapabilities(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
