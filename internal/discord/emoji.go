package discord

// Ballot symbols are the letters 'a'..'z'; on Discord they render as the
// regional indicator emojis so every ballot line gets a distinct,
// reactable glyph.

const regionalIndicatorA = 0x1F1E6

// symbolEmoji renders a single-letter ballot symbol as its regional
// indicator emoji.
func symbolEmoji(symbol string) (string, bool) {
	if len(symbol) != 1 || symbol[0] < 'a' || symbol[0] > 'z' {
		return "", false
	}
	return string(rune(regionalIndicatorA + int(symbol[0]-'a'))), true
}

// emojiSymbol maps a regional indicator emoji back to its ballot symbol.
func emojiSymbol(emoji string) (string, bool) {
	r := []rune(emoji)
	if len(r) != 1 || r[0] < regionalIndicatorA || r[0] > regionalIndicatorA+25 {
		return "", false
	}
	return string(rune('a' + (r[0] - regionalIndicatorA))), true
}
