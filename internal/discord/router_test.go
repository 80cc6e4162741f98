package discord

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		content string
		word    string
		rest    string
	}{
		{".join", ".join", ""},
		{".join \"late start\"", ".join", "\"late start\""},
		{"  .LIST  ", ".list", ""},
		{".steamid STEAM_0:1:123", ".steamid", "STEAM_0:1:123"},
		{"hello there", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		word, rest := splitCommand(tc.content)
		if word != tc.word || rest != tc.rest {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q", tc.content, word, rest, tc.word, tc.rest)
		}
	}
}

func TestParseNote(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{`.join "available at 9pm"`, "available at 9pm"},
		{`.join`, ""},
		{`.join no quotes here`, ""},
		{`.join "first" and "second"`, "first"},
		{`.join ""`, ""},
	}
	for _, tc := range cases {
		if got := parseNote(tc.content); got != tc.want {
			t.Errorf("parseNote(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestParseNoteTruncates(t *testing.T) {
	long := strings.Repeat("x", engine.MaxNoteLen+20)
	got := parseNote(`.join "` + long + `"`)
	assert.Len(t, got, engine.MaxNoteLen)
}

func TestParseNoteTruncatesOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the limit must be dropped whole.
	note := strings.Repeat("x", engine.MaxNoteLen-1) + "éé"
	got := parseNote(`.join "` + note + `"`)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), engine.MaxNoteLen)
	assert.Equal(t, strings.Repeat("x", engine.MaxNoteLen-1), got)
}

func TestSymbolEmojiRoundTrip(t *testing.T) {
	for c := byte('a'); c <= 'z'; c++ {
		sym := string(c)
		emoji, ok := symbolEmoji(sym)
		if !ok {
			t.Fatalf("no emoji for %q", sym)
		}
		back, ok := emojiSymbol(emoji)
		if !ok || back != sym {
			t.Fatalf("emojiSymbol(%q) = %q, %v; want %q", emoji, back, ok, sym)
		}
	}
}

func TestSymbolEmojiRejectsNonSymbols(t *testing.T) {
	for _, sym := range []string{"", "A", "ab", "1", "ct"} {
		if _, ok := symbolEmoji(sym); ok {
			t.Errorf("symbolEmoji(%q) unexpectedly ok", sym)
		}
	}
	if _, ok := emojiSymbol("x"); ok {
		t.Error("emojiSymbol accepted a plain letter")
	}
}

func TestErrorReplyCoversSentinels(t *testing.T) {
	sentinels := []error{
		engine.ErrNoSteamID,
		engine.ErrQueueFull,
		engine.ErrAlreadyQueued,
		engine.ErrNotQueued,
		engine.ErrQueueNotFull,
		engine.ErrEmptyBallot,
		engine.ErrAlreadyCaptain,
		engine.ErrNotCaptain,
		engine.ErrWrongTurn,
		engine.ErrAlreadyPicked,
		engine.ErrNotSidePicker,
		engine.ErrAlreadyReady,
		engine.ErrNotReady,
		engine.ErrAdminRequired,
		engine.ErrWrongPhase,
	}
	fallback := errorReply(assert.AnError)
	for _, err := range sentinels {
		msg := errorReply(err)
		assert.NotEmpty(t, msg)
		assert.NotEqual(t, fallback, msg, "no dedicated reply for %v", err)
	}
}

func TestGatewayReactionNames(t *testing.T) {
	g := NewGateway(nil, GatewayConfig{
		EmoteCTName: "ct_side", EmoteCTID: "111",
		EmoteTName: "t_side", EmoteTID: "222",
	}, nil)

	name, err := g.reactionName("a")
	assert.NoError(t, err)
	assert.Equal(t, "\U0001F1E6", name)

	name, err = g.reactionName("ct")
	assert.NoError(t, err)
	assert.Equal(t, "ct_side:111", name)

	name, err = g.reactionName("t")
	assert.NoError(t, err)
	assert.Equal(t, "t_side:222", name)

	_, err = g.reactionName("zz")
	assert.Error(t, err)
}

func TestGatewayReactionNameWithoutEmotes(t *testing.T) {
	g := NewGateway(nil, GatewayConfig{}, nil)
	_, err := g.reactionName("ct")
	assert.Error(t, err)
}
