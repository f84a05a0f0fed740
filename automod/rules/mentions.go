package rules

import (
	"time"

	"github.com/guildwarden/warden/automod"
	"github.com/guildwarden/warden/automod/casestore"
)

var _ automod.MessageRuleFunc = MassMentionMessageRule

var (
	massMentionThreshold = 5
	massMentionTimeout   = 10 * time.Minute
)

const MassMentionReason = "Mass mentions"

// Deletes messages which mention many users at once, times out the author, and records a case.
func MassMentionMessageRule(c *automod.MessageContext) error {
	if c.Message.MentionCount < massMentionThreshold {
		return nil
	}
	c.AddHit("mass-mention")
	c.DeleteMessage()
	c.TimeoutAuthor(massMentionTimeout, MassMentionReason)
	c.RecordCase(casestore.ActionAutomodMute, MassMentionReason)
	return nil
}
