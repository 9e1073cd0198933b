package billing

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"billdash/internal/dashboard"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	PagesFor(name string) *dashboard.Pages
	CurrentPages() *dashboard.Pages
	RecordAlert(alert *dashboard.Alert)
	GetLastAlert() *dashboard.Alert
}

// RegisterSteps registers metering and invoicing step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &billingSteps{tc: tc}

	// Metering steps
	ctx.Step(`^"([^"]*)" makes (\d+) test calls?$`, steps.makesTestCalls)
	ctx.Step(`^the usage page should show (\d+) of (\d+) calls used$`, steps.usageShouldShow)
	ctx.Step(`^the usage page should warn "([^"]*)"$`, steps.usageShouldWarn)
	ctx.Step(`^the usage page should not warn$`, steps.usageShouldNotWarn)
	ctx.Step(`^the usage history should list (\d+) months?$`, steps.historyShouldList)

	// Invoice steps
	ctx.Step(`^"([^"]*)" generates an invoice$`, steps.generatesInvoice)
	ctx.Step(`^"([^"]*)" should see (\d+) invoices?$`, steps.shouldSeeInvoices)
	ctx.Step(`^the latest invoice should be "([^"]*)" with amount "([^"]*)"$`, steps.latestInvoiceShouldBe)
	ctx.Step(`^the invoice button should be (shown|hidden) for "([^"]*)"$`, steps.invoiceButtonShould)
}

type billingSteps struct {
	tc TestContext
}

func (s *billingSteps) makesTestCalls(ctx context.Context, name string, n int) error {
	pages := s.tc.PagesFor(name)
	for i := 0; i < n; i++ {
		res := pages.Dashboard.TestCall(ctx)
		if res.Decision.Location != "" {
			return fmt.Errorf("test call redirected to %q", res.Decision.Location)
		}
		s.tc.RecordAlert(res.Alert)
	}
	return nil
}

func (s *billingSteps) usageShouldShow(ctx context.Context, used, limit int) error {
	view := s.tc.CurrentPages().Usage.Load(ctx)
	if view.Usage == nil {
		return fmt.Errorf("usage panel is empty")
	}
	if view.Usage.Used != int64(used) || view.Usage.Limit != int64(limit) {
		return fmt.Errorf("expected %d/%d but got %d/%d", used, limit, view.Usage.Used, view.Usage.Limit)
	}
	return nil
}

func (s *billingSteps) usageShouldWarn(ctx context.Context, text string) error {
	view := s.tc.CurrentPages().Usage.Load(ctx)
	if view.Warning == nil {
		return fmt.Errorf("expected warning %q but there was none", text)
	}
	if view.Warning.Text != text {
		return fmt.Errorf("expected warning %q but got %q", text, view.Warning.Text)
	}
	return nil
}

func (s *billingSteps) usageShouldNotWarn(ctx context.Context) error {
	if view := s.tc.CurrentPages().Usage.Load(ctx); view.Warning != nil {
		return fmt.Errorf("unexpected warning: %s", view.Warning.Text)
	}
	return nil
}

func (s *billingSteps) historyShouldList(ctx context.Context, n int) error {
	view := s.tc.CurrentPages().Usage.Load(ctx)
	if len(view.History) != n {
		return fmt.Errorf("expected %d history rows but got %d", n, len(view.History))
	}
	return nil
}

func (s *billingSteps) generatesInvoice(ctx context.Context, name string) error {
	view := s.tc.PagesFor(name).Billing.GenerateInvoice(ctx)
	if view.Decision.Location != "" {
		return fmt.Errorf("billing page redirected to %q", view.Decision.Location)
	}
	s.tc.RecordAlert(view.Alert)
	return nil
}

func (s *billingSteps) shouldSeeInvoices(ctx context.Context, name string, n int) error {
	view := s.tc.PagesFor(name).Billing.Load(ctx)
	if len(view.Invoices) != n {
		return fmt.Errorf("expected %d invoices but got %d", n, len(view.Invoices))
	}
	return nil
}

func (s *billingSteps) latestInvoiceShouldBe(ctx context.Context, status, amount string) error {
	view := s.tc.CurrentPages().Billing.Load(ctx)
	if len(view.Invoices) == 0 {
		return fmt.Errorf("no invoices listed")
	}
	latest := view.Invoices[0]
	if latest.Status != status || latest.AmountDue.String() != amount {
		return fmt.Errorf("expected %s %s but got %s %s", status, amount, latest.Status, latest.AmountDue.String())
	}
	return nil
}

func (s *billingSteps) invoiceButtonShould(ctx context.Context, state, name string) error {
	view := s.tc.PagesFor(name).Billing.Load(ctx)
	if want := state == "shown"; view.IsAdmin != want {
		return fmt.Errorf("expected invoice button %s for %s", state, name)
	}
	return nil
}
