package rules

import (
	"unicode"
	"unicode/utf8"

	"github.com/guildwarden/warden/automod"
)

var _ automod.MessageRuleFunc = CapsMessageRule

var (
	// messages this short (in characters) are never checked
	capsMinLength = 10
	capsThreshold = 0.7
)

// Fraction of characters (not just letters) in the text which are uppercase.
func CapsRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return 0
	}
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}

// Deletes long messages which are mostly uppercase.
func CapsMessageRule(c *automod.MessageContext) error {
	if utf8.RuneCountInString(c.Message.Text) <= capsMinLength {
		return nil
	}
	if CapsRatio(c.Message.Text) > capsThreshold {
		c.AddHit("caps")
		c.DeleteMessage()
	}
	return nil
}
