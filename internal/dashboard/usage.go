package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"billdash/internal/guard"
	"billdash/internal/models"
)

// UsageView is the quota meter plus monthly history.
type UsageView struct {
	Decision guard.Decision
	Usage    *models.UsageSnapshot
	History  []models.UsageRecord
	// Warning is set when usage crosses UsageDangerThreshold.
	Warning *Alert
}

// Usage is the usage analytics page.
type Usage struct {
	*deps
}

// Load fetches the snapshot and the history concurrently.
func (u *Usage) Load(ctx context.Context) UsageView {
	decision := guard.Require(ctx, u.sessions)
	if !decision.Proceeds() {
		return UsageView{Decision: decision}
	}

	view := UsageView{Decision: decision}
	var g errgroup.Group
	g.Go(func() error {
		usage, err := u.api.GetUsage(ctx)
		if err != nil {
			u.logger.ErrorContext(ctx, "error fetching usage", "error", err)
			return nil
		}
		view.Usage = usage
		return nil
	})
	g.Go(func() error {
		history, err := u.api.GetUsageHistory(ctx)
		if err != nil {
			u.logger.ErrorContext(ctx, "error fetching usage history", "error", err)
			return nil
		}
		view.History = history
		return nil
	})
	_ = g.Wait()

	if UsageLevel(view.Usage) == LevelDanger {
		view.Warning = danger(fmt.Sprintf("Warning: You've used %s%% of your monthly quota.", view.Usage.PercentageUsed))
	}
	return view
}
