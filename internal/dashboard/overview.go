package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"billdash/internal/guard"
	"billdash/internal/models"
	domainerrors "billdash/pkg/domain-errors"
)

// DashboardView is the signed-in overview: tenant card plus usage meter.
// A panel whose fetch failed is nil.
type DashboardView struct {
	Decision guard.Decision
	User     *models.User
	Tenant   *models.Tenant
	Usage    *models.UsageSnapshot
	Alert    *Alert
}

// UsageLevel is the meter colour for the current usage.
func (v DashboardView) UsageLevel() Level {
	return UsageLevel(v.Usage)
}

// Dashboard is the overview page and its demo call.
type Dashboard struct {
	*deps
}

// Load fetches tenant and usage concurrently. Either may finish first and a
// failure of one leaves the other panel intact.
func (d *Dashboard) Load(ctx context.Context) DashboardView {
	decision := guard.Require(ctx, d.sessions)
	if !decision.Proceeds() {
		return DashboardView{Decision: decision}
	}

	view := DashboardView{Decision: decision}
	if sess, err := d.sessions.Read(ctx); err == nil {
		view.User = sess.User
	} else {
		d.logger.WarnContext(ctx, "failed to read session", "error", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		tenant, err := d.api.GetTenant(ctx)
		if err != nil {
			d.logger.ErrorContext(ctx, "error fetching tenant", "error", err, "code", domainerrors.Classify(err))
			return nil
		}
		view.Tenant = tenant
		return nil
	})
	g.Go(func() error {
		usage, err := d.api.GetUsage(ctx)
		if err != nil {
			d.logger.ErrorContext(ctx, "error fetching usage", "error", err, "code", domainerrors.Classify(err))
			return nil
		}
		view.Usage = usage
		return nil
	})
	_ = g.Wait()

	return view
}

// TestCallResult is the outcome of a metered demo call.
type TestCallResult struct {
	Decision guard.Decision
	Usage    *models.UsageSnapshot
	Alert    *Alert
}

// TestCall spends one unit of quota and refreshes the usage meter.
func (d *Dashboard) TestCall(ctx context.Context) TestCallResult {
	decision := guard.Require(ctx, d.sessions)
	if !decision.Proceeds() {
		return TestCallResult{Decision: decision}
	}

	result := TestCallResult{Decision: decision}
	if _, err := d.api.GetDemoData(ctx); err != nil {
		result.Alert = testCallAlert(err)
		return result
	}

	usage, err := d.api.GetUsage(ctx)
	if err != nil {
		result.Alert = testCallAlert(err)
		return result
	}
	result.Usage = usage
	result.Alert = success(MsgTestCallSucceeded)
	return result
}

func testCallAlert(err error) *Alert {
	if domainerrors.HasCode(err, domainerrors.CodeRateLimit) {
		return danger(MsgRateLimitExceeded)
	}
	return danger(MsgTestCallFailed + domainerrors.SummaryOf(err))
}

// UsageLevel flags usage above UsageDangerThreshold percent.
func UsageLevel(u *models.UsageSnapshot) Level {
	if u != nil && u.PercentageUsed.Value > UsageDangerThreshold {
		return LevelDanger
	}
	return LevelSuccess
}
