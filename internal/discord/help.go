package discord

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const helpText = "**Commands:**\n" +
	"`.join` - Join the queue, add an optional message in quotes (max 50 characters) i.e. `.join \"available at 9pm\"`\n" +
	"`.leave` - Leave the queue\n" +
	"`.list` - List all players in the queue\n" +
	"`.steamid` - Set your steam id i.e. `.steamid STEAM_0:1:12345678`\n" +
	"`.maps` - List all maps available for play\n" +
	"`.teamname` - Set a custom team name for when you are a captain i.e. `.teamname TeamName`\n" +
	"\n_These are commands used during the `.start` process:_\n" +
	"`.captain` - Add yourself as a captain\n" +
	"`.pick` - If you are a captain, pick a player i.e. `.pick @player`\n" +
	"`.ct` / `.t` - As the second captain, choose your starting side\n" +
	"`.ready` - After the draft, ready up\n" +
	"`.unready` - Cancel your `.ready` status\n" +
	"`.readylist` - List players not readied up\n"

const adminHelpText = "\n_These are admin commands:_\n" +
	"`.start` - Start the match setup process\n" +
	"`.kick` - Kick a player i.e. `.kick @player`\n" +
	"`.addmap` - Add a map to the vote i.e. `.addmap de_dust2` _Note: the map must be present on the server._\n" +
	"`.removemap` - Remove a map from the vote i.e. `.removemap de_dust2`\n" +
	"`.recoverqueue` - Manually set the queue, tag every player to add after the command\n" +
	"`.clear` - Clear the queue\n" +
	"`.cancel` - Cancel the `.start` process\n"

// sendHelp DMs the command list; admins get the admin section appended.
func (r *Router) sendHelp(dg *discordgo.Session, m *discordgo.MessageCreate, admin bool) {
	text := helpText
	if admin {
		text += adminHelpText
	}
	dm, err := dg.UserChannelCreate(m.Author.ID)
	if err != nil {
		r.log.Warn("help dm channel failed", zap.Error(err))
		return
	}
	if _, err := dg.ChannelMessageSend(dm.ID, text); err != nil {
		r.log.Warn("help dm failed", zap.Error(err))
	}
}
