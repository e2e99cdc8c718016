package slack

import "github.com/slack-go/slack"

// Export internal functions and types for testing
var (
	// TruncateToMaxBytes is exported for testing UTF-8 truncation
	TruncateToMaxBytes = truncateToMaxBytes
)

// BuildFailureMessage is exported for testing message rendering
func BuildFailureMessage(title, passID string, lines []string, footer string) ([]slack.Block, string) {
	msg := buildFailureMessage(title, passID, lines, footer)
	return msg.blocks, msg.text
}
