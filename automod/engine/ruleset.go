package engine

import (
	"errors"
	"fmt"
)

type RuleSet struct {
	MessageRules []MessageRuleFunc
}

// Runs every message rule in order. A failing rule does not prevent the remaining rules from running; all failures are returned together.
func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	var errs []error
	for i, f := range r.MessageRules {
		if err := f(c); err != nil {
			errs = append(errs, fmt.Errorf("message rule %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
