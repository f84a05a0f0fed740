package rules

import (
	"github.com/guildwarden/warden/automod"
)

// Content rules, in the order they are evaluated. All of them run on every message that was not flagged as spam.
func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		MessageRules: []automod.MessageRuleFunc{
			LinkMessageRule,
			CapsMessageRule,
			MassMentionMessageRule,
		},
	}
	return rules
}
