package assistant

import (
	"regexp"
	"strings"
)

// MaxReplyRunes is the Discord embed description limit.
const MaxReplyRunes = 4096

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripMention removes every mention token of botID and trims the rest.
func StripMention(content, botID string) string {
	if botID != "" {
		content = strings.ReplaceAll(content, "<@"+botID+">", "")
		content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	}
	return strings.TrimSpace(content)
}

func cleanReply(reply string) string {
	reply = thinkBlock.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(reply)

	runes := []rune(reply)
	if len(runes) > MaxReplyRunes {
		const marker = "\n\n[truncated]"
		reply = string(runes[:MaxReplyRunes-len([]rune(marker))]) + marker
	}
	return reply
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}
