package rules

import (
	"regexp"

	"github.com/guildwarden/warden/automod"
)

var _ automod.MessageRuleFunc = LinkMessageRule

var linkRegex = regexp.MustCompile(`(?i)https?://`)

// Deletes messages containing a web link, unless the author can manage messages in the channel.
func LinkMessageRule(c *automod.MessageContext) error {
	if c.Message.CanManageMessages {
		return nil
	}
	if linkRegex.MatchString(c.Message.Text) {
		c.AddHit("link")
		c.DeleteMessage()
	}
	return nil
}
