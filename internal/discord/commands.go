package discord

import "github.com/bwmarrin/discordgo"

// Slash command names.
const (
	cmdOrder           = "order"
	cmdSettings        = "settings"
	cmdTemplates       = "templates"
	cmdRedeem          = "redeem"
	cmdCheckLimit      = "checklimit"
	cmdCheckAccess     = "checkaccess"
	cmdSetLimit        = "setlimit"
	cmdGrantAccess     = "grantaccess"
	cmdRemoveAllAccess = "removeallaccess"
)

var adminPermission = int64(discordgo.PermissionAdministrator)

// Commands is the slash command set registered on the guild.
func Commands() []*discordgo.ApplicationCommand {
	userOption := func(required bool, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    required,
		}
	}
	minOne := float64(1)
	minZero := float64(0)

	return []*discordgo.ApplicationCommand{
		{Name: cmdOrder, Description: "Start a new order"},
		{Name: cmdSettings, Description: "Save your name, email and address for orders"},
		{Name: cmdTemplates, Description: "List the available templates"},
		{
			Name:        cmdRedeem,
			Description: "Redeem an access code",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "code",
				Description: "Code in the form XXXX-XXXX-XXXX-XXXX",
				Required:    true,
			}},
		},
		{
			Name:        cmdCheckLimit,
			Description: "Show remaining uses",
			Options:     []*discordgo.ApplicationCommandOption{userOption(false, "User to inspect (administrators only)")},
		},
		{
			Name:        cmdCheckAccess,
			Description: "Show access expiry",
			Options:     []*discordgo.ApplicationCommandOption{userOption(false, "User to inspect (administrators only)")},
		},
		{
			Name:                     cmdSetLimit,
			Description:              "Set the remaining uses of a user",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true, "User to update"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "uses",
					Description: "Remaining uses",
					Required:    true,
					MinValue:    &minZero,
				},
			},
		},
		{
			Name:                     cmdGrantAccess,
			Description:              "Grant unlimited access for a number of days",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				userOption(true, "User to update"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Days of access",
					Required:    true,
					MinValue:    &minOne,
					MaxValue:    36500,
				},
			},
		},
		{
			Name:                     cmdRemoveAllAccess,
			Description:              "Remove every grant and counter",
			DefaultMemberPermissions: &adminPermission,
		},
	}
}
