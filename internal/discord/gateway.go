// Package discord adapts the session coordinator to Discord: the chat
// gateway on one side, the dot-command router on the other. Everything
// Discord-specific (mentions, emoji, roles, DMs) stays in here.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Martig3/dathost-discord-scrimbot/internal/chat"
	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

type GatewayConfig struct {
	// GuildID scopes voice moves and role grants. Without it those calls
	// fail, which their callers treat as best effort.
	GuildID string

	// Custom emotes for the side pick prompt, optional as a pair each.
	EmoteCTName string
	EmoteCTID   string
	EmoteTName  string
	EmoteTID    string
}

// Gateway implements chat.Gateway on a discordgo session.
type Gateway struct {
	dg  *discordgo.Session
	cfg GatewayConfig
	log *zap.Logger
}

func NewGateway(dg *discordgo.Session, cfg GatewayConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{dg: dg, cfg: cfg, log: log}
}

func (g *Gateway) Send(ctx context.Context, channel, text string) (chat.MessageRef, error) {
	msg, err := g.dg.ChannelMessageSend(channel, text, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return chat.MessageRef{Channel: channel, ID: msg.ID}, nil
}

// SendBallot posts one line per option, regional indicator first so the
// seeded reactions line up visually with the list.
func (g *Gateway) SendBallot(ctx context.Context, channel string, options []engine.BallotOption) (chat.MessageRef, error) {
	var b strings.Builder
	b.WriteString("Map vote:")
	for _, opt := range options {
		emoji, ok := symbolEmoji(opt.Symbol)
		if !ok {
			return chat.MessageRef{}, fmt.Errorf("ballot symbol %q has no emoji", opt.Symbol)
		}
		fmt.Fprintf(&b, "\n%s `%s`", emoji, opt.Map)
	}
	return g.Send(ctx, channel, b.String())
}

func (g *Gateway) React(ctx context.Context, ref chat.MessageRef, symbol string) error {
	apiName, err := g.reactionName(symbol)
	if err != nil {
		return err
	}
	if err := g.dg.MessageReactionAdd(ref.Channel, ref.ID, apiName, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("react %s: %w", symbol, err)
	}
	return nil
}

// reactionName maps a symbol to the identifier the reaction endpoints
// expect: the emoji itself for unicode, name:id for custom emotes.
func (g *Gateway) reactionName(symbol string) (string, error) {
	if emoji, ok := symbolEmoji(symbol); ok {
		return emoji, nil
	}
	switch symbol {
	case "ct":
		if g.cfg.EmoteCTName == "" {
			return "", fmt.Errorf("no ct emote configured")
		}
		return g.cfg.EmoteCTName + ":" + g.cfg.EmoteCTID, nil
	case "t":
		if g.cfg.EmoteTName == "" {
			return "", fmt.Errorf("no t emote configured")
		}
		return g.cfg.EmoteTName + ":" + g.cfg.EmoteTID, nil
	}
	return "", fmt.Errorf("unknown reaction symbol %q", symbol)
}

// ReactionCounts reads the message back and tallies reactions per
// symbol. Counts include the bot's own seed reactions, same as the
// counts Discord displays.
func (g *Gateway) ReactionCounts(ctx context.Context, ref chat.MessageRef) (map[string]int, error) {
	msg, err := g.dg.ChannelMessage(ref.Channel, ref.ID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("read reactions: %w", err)
	}
	counts := make(map[string]int, len(msg.Reactions))
	for _, r := range msg.Reactions {
		if r.Emoji == nil {
			continue
		}
		if sym, ok := emojiSymbol(r.Emoji.Name); ok {
			counts[sym] += r.Count
			continue
		}
		switch r.Emoji.Name {
		case g.cfg.EmoteCTName:
			counts["ct"] += r.Count
		case g.cfg.EmoteTName:
			counts["t"] += r.Count
		}
	}
	return counts, nil
}

func (g *Gateway) MoveToVoice(ctx context.Context, playerID, channelID string) error {
	if g.cfg.GuildID == "" {
		return fmt.Errorf("no guild configured for voice moves")
	}
	if err := g.dg.GuildMemberMove(g.cfg.GuildID, playerID, &channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("move %s to voice: %w", playerID, err)
	}
	return nil
}
