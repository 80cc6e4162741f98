// Package chat is the seam between the match coordinator and whatever
// platform the players type into. The coordinator speaks plain text and
// abstract reaction symbols; adapters own mentions, emoji and markup.
package chat

import (
	"context"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

// MessageRef identifies a posted message so reactions can be added to it
// and read back later.
type MessageRef struct {
	Channel string
	ID      string
}

// Gateway is implemented by platform adapters. Reaction symbols are the
// lowercase letters 'a'..'z' for ballot lines plus "ct" and "t" for the
// side pick prompt; how a symbol renders is the adapter's business.
type Gateway interface {
	// Send posts text to a channel and returns a reference to the message.
	Send(ctx context.Context, channel, text string) (MessageRef, error)

	// SendBallot posts the map ballot, one rendered line per option.
	SendBallot(ctx context.Context, channel string, options []engine.BallotOption) (MessageRef, error)

	// React adds the bot's own reaction for a symbol to a message.
	React(ctx context.Context, ref MessageRef, symbol string) error

	// ReactionCounts reads back per-symbol reaction tallies. Counts include
	// the bot's own seed reactions.
	ReactionCounts(ctx context.Context, ref MessageRef) (map[string]int, error)

	// MoveToVoice drags a player into a voice channel. Best effort.
	MoveToVoice(ctx context.Context, playerID, channelID string) error
}
