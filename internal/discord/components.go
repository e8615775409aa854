package discord

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/wizard"
)

// Custom ids carried by components and modals. Ids with a trailing colon take
// a suffix.
const (
	idTemplateMenu   = "order:template"
	idOrderModal     = "order:step:"
	idOrderContinue  = "order:continue:"
	idOrderRestart   = "order:restart:"
	idSettingsModal  = "settings:step:"
	idSettingsResume = "settings:continue"
	idSettingsAgain  = "settings:restart"
)

// Discord limits.
const (
	maxMenuOptions = 25
	maxModalInputs = 5
	maxLabel       = 45
	maxTitle       = 45
	maxOptionLabel = 100
	maxContent     = 2000
)

func ephemeral(content string, components ...discordgo.MessageComponent) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    clip(content, maxContent),
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: components,
		},
	}
}

// deferred acknowledges an interaction whose answer follows as a followup.
func deferred() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
}

func followup(resp *discordgo.InteractionResponse) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{Flags: discordgo.MessageFlagsEphemeral}
	if resp != nil && resp.Data != nil {
		params.Content = resp.Data.Content
		params.Components = resp.Data.Components
	}
	return params
}

func templateMenu(list []model.TemplateDescriptor) discordgo.MessageComponent {
	if len(list) > maxMenuOptions {
		list = list[:maxMenuOptions]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(list))
	for _, d := range list {
		options = append(options, discordgo.SelectMenuOption{
			Label: clip(d.DisplayTitle(), maxOptionLabel),
			Value: d.ID,
		})
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    idTemplateMenu,
			Placeholder: "Choose a template",
			Options:     options,
		},
	}}
}

func button(label, customID string, style discordgo.ButtonStyle) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: label, Style: style, CustomID: customID},
	}}
}

// modal maps a wizard prompt onto a Discord modal, one short text input per
// field.
func modal(customID string, p wizard.Prompt) *discordgo.InteractionResponse {
	fields := p.Fields
	if len(fields) > maxModalInputs {
		fields = fields[:maxModalInputs]
	}
	rows := make([]discordgo.MessageComponent, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.ID,
				Label:       clip(f.Label, maxLabel),
				Style:       discordgo.TextInputShort,
				Placeholder: clip(f.Placeholder, 100),
				Value:       f.Default,
				Required:    f.Required && f.Default == "",
			},
		}})
	}
	title := fmt.Sprintf("%s (%d/%d)", p.Title, p.Step, p.Steps)
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      clip(title, maxTitle),
			Components: rows,
		},
	}
}

func orderModalID(step int) string   { return idOrderModal + strconv.Itoa(step) }
func orderContinueID(step int) string { return idOrderContinue + strconv.Itoa(step) }
func settingsModalID(step int) string { return idSettingsModal + strconv.Itoa(step) }

// stepSuffix parses the step number after prefix.
func stepSuffix(customID, prefix string) (int, bool) {
	if !strings.HasPrefix(customID, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(customID[len(prefix):])
	if err != nil || n < 1 || n > 3 {
		return 0, false
	}
	return n, true
}

// modalValues flattens the text inputs of a submitted modal by custom id.
func modalValues(components []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	var walk func([]discordgo.MessageComponent)
	walk = func(list []discordgo.MessageComponent) {
		for _, c := range list {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				out[v.CustomID] = v.Value
			case discordgo.TextInput:
				out[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return out
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
