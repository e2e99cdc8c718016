package slack

import (
	"strings"
	"unicode"
)

const maxChannelNameLen = 80

// prohibitedRunes may not appear in a channel name even outside ASCII
var prohibitedRunes = map[rune]struct{}{
	'。': {}, '、': {}, '！': {}, '？': {},
}

// NormalizeChannelName turns a human typed channel name into the form Slack accepts:
// lowercase, spaces as hyphens, no ASCII punctuation except '-' and '_', at most 80 bytes.
func NormalizeChannelName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	name = strings.ReplaceAll(name, " ", "-")

	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case r > unicode.MaxASCII:
			if _, ng := prohibitedRunes[r]; ng {
				return -1
			}
			return r
		default:
			return -1
		}
	}, name)

	return strings.TrimRight(truncateToMaxBytes(normalized, maxChannelNameLen), "-")
}

// ResolveChannel returns a value usable as the channel argument of chat.postMessage.
// Channel IDs (C…, G…) pass through; anything else is treated as a channel name.
func ResolveChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	if isChannelID(channel) {
		return channel
	}
	return "#" + NormalizeChannelName(channel)
}

func isChannelID(s string) bool {
	if len(s) < 9 || (s[0] != 'C' && s[0] != 'G') {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
