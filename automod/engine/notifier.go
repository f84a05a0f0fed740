package engine

import (
	"context"

	"github.com/guildwarden/warden/automod/casestore"
)

// Interface for a type that can handle sending notifications about newly recorded cases.
type Notifier interface {
	Name() string
	SendCase(ctx context.Context, c casestore.Case) error
}

// Delivers new cases to every configured notifier. Failures are logged and counted, never returned.
func (eng *Engine) notifyCases(ctx context.Context, cases []casestore.Case) {
	if len(eng.Notifiers) == 0 || len(cases) == 0 {
		return
	}
	for _, n := range eng.Notifiers {
		for _, c := range cases {
			nctx, cancel := context.WithTimeout(ctx, eng.actionTimeout())
			err := n.SendCase(nctx, c)
			cancel()
			if err != nil {
				eng.Logger.Error("failed to deliver case notification", "notifier", n.Name(), "case", c.ID, "err", err)
				notifyErrorCount.WithLabelValues(n.Name()).Inc()
			}
		}
	}
}
