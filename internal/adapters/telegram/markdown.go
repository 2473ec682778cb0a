package telegram

import "strings"

const messageLimit = 4096

// markdownReserved lists the MarkdownV2 characters that must be escaped in
// report text. '*' and '`' are absent: reports use them for bold markers and
// code blocks.
const markdownReserved = "_[]()~>#+-=|{}.!"

// EscapeMarkdownV2 escapes reserved MarkdownV2 characters before handoff to
// the bot API, leaving bold markers intact.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownReserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitMessage breaks report text into chunks that fit Telegram's message
// size limit. Lines are accumulated whole so listings stay readable; only a
// single line longer than the limit itself is cut mid-line.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	var chunk []rune
	flush := func() {
		if s := strings.Trim(string(chunk), "\n"); s != "" {
			parts = append(parts, s)
		}
		chunk = chunk[:0]
	}

	for _, line := range strings.Split(trimmed, "\n") {
		runes := []rune(line)
		if len(chunk) > 0 && len(chunk)+1+len(runes) > messageLimit {
			flush()
		}
		for len(runes) > messageLimit {
			flush()
			parts = append(parts, string(runes[:messageLimit]))
			runes = runes[messageLimit:]
		}
		if len(chunk) > 0 {
			chunk = append(chunk, '\n')
		}
		chunk = append(chunk, runes...)
	}
	flush()

	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}
