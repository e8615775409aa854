// Package steps computes which prompts each wizard step offers. The packing
// rules are pure functions of a template's capability set so they can be
// tested in isolation and shared by the catalog loader and the wizard.
package steps

import (
	"github.com/goliatone/go-orderwizard/pkg/model"
)

// Capacity is the maximum number of prompts a single step may carry.
const Capacity = 5

type slot struct {
	capability model.Capability
	field      string
}

var (
	orderStep1 = []string{model.FieldBrand, model.FieldProduct, model.FieldSize, model.FieldPrice}
	orderStep2 = []string{model.FieldEmail, model.FieldDate, model.FieldImageURL}

	// Filled while capacity remains, regardless of the third-step flag.
	step2Priority = []slot{
		{model.CapStyleID, model.FieldStyleID},
		{model.CapColour, model.FieldColour},
		{model.CapTaxes, model.FieldTaxes},
		{model.CapReference, model.FieldReference},
		{model.CapFirstName, model.FieldFirstName},
		{model.CapWholeName, model.FieldWholeName},
		{model.CapQuantity, model.FieldQuantity},
	}

	// Filled in step 2 only when the template has no third step.
	step2Deferrable = []slot{
		{model.CapCurrency, model.FieldCurrency},
		{model.CapPhoneNumber, model.FieldPhoneNumber},
		{model.CapCardEnd, model.FieldCardEnd},
		{model.CapEstimatedDelivery, model.FieldEstimatedDelivery},
	}

	step3Priority = []slot{
		{model.CapCurrency, model.FieldCurrency},
		{model.CapCardEnd, model.FieldCardEnd},
		{model.CapEstimatedDelivery, model.FieldEstimatedDelivery},
		{model.CapPhoneNumber, model.FieldPhoneNumber},
	}

	settingsStep1 = []string{model.FieldFullName, model.FieldEmail, model.FieldStreet, model.FieldCity, model.FieldPostalCode}
	settingsStep2 = []string{model.FieldCountry}
)

// Step1 returns the fixed order prompts: brand, product, size and price.
func Step1() []model.Field {
	return model.FieldsFor(orderStep1...)
}

// Step2 packs the second order step for caps.
func Step2(caps model.Capabilities) []model.Field {
	ids := append([]string(nil), orderStep2...)
	ids = fill(ids, caps, step2Priority)
	if !caps.Has(model.CapThirdStep) {
		ids = fill(ids, caps, step2Deferrable)
	}
	return model.FieldsFor(ids...)
}

// Step3 packs the optional third order step. It is empty unless caps carries
// the third-step flag.
func Step3(caps model.Capabilities) []model.Field {
	if !caps.Has(model.CapThirdStep) {
		return nil
	}
	return model.FieldsFor(fill(nil, caps, step3Priority)...)
}

// HasStep3 reports whether the template opens a third step.
func HasStep3(caps model.Capabilities) bool {
	return caps.Has(model.CapThirdStep)
}

// SettingsStep1 returns the first profile settings step.
func SettingsStep1() []model.Field {
	return model.FieldsFor(settingsStep1...)
}

// SettingsStep2 returns the second profile settings step.
func SettingsStep2() []model.Field {
	return model.FieldsFor(settingsStep2...)
}

// Overflows reports whether every prompt caps asks for would not fit in step 2.
func Overflows(caps model.Capabilities) bool {
	return len(orderStep2)+count(caps, step2Priority)+count(caps, step2Deferrable) > Capacity
}

// Unreachable lists required capabilities that no step will ever prompt for.
func Unreachable(caps model.Capabilities) []model.Capability {
	offered := make(map[string]struct{})
	for _, f := range Step2(caps) {
		offered[f.ID] = struct{}{}
	}
	for _, f := range Step3(caps) {
		offered[f.ID] = struct{}{}
	}

	var out []model.Capability
	for _, group := range [][]slot{step2Priority, step2Deferrable} {
		for _, s := range group {
			if !caps.Has(s.capability) {
				continue
			}
			if _, ok := offered[s.field]; !ok {
				out = append(out, s.capability)
			}
		}
	}
	return out
}

// Offered reports whether caps makes the wizard ask for field in any step.
func Offered(caps model.Capabilities, field string) bool {
	for _, fields := range [][]model.Field{Step1(), Step2(caps), Step3(caps)} {
		for _, f := range fields {
			if f.ID == field {
				return true
			}
		}
	}
	return false
}

func fill(ids []string, caps model.Capabilities, slots []slot) []string {
	for _, s := range slots {
		if len(ids) >= Capacity {
			break
		}
		if caps.Has(s.capability) {
			ids = append(ids, s.field)
		}
	}
	return ids
}

func count(caps model.Capabilities, slots []slot) int {
	n := 0
	for _, s := range slots {
		if caps.Has(s.capability) {
			n++
		}
	}
	return n
}
